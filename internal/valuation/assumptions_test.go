package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/valuator-backend/internal/models"
)

func TestClassify_DeadBandIsExclusive(t *testing.T) {
	tests := []struct {
		intrinsic float64
		want      Verdict
	}{
		{110, FairValue},
		{110.01, Undervalued},
		{90, FairValue},
		{89.99, Overvalued},
		{100, FairValue},
		{250, Undervalued},
		{10, Overvalued},
	}
	for _, tt := range tests {
		got, upside := Classify(tt.intrinsic, 100)
		assert.Equal(t, tt.want, got, "intrinsic %v", tt.intrinsic)
		require.NotNil(t, upside)
		assert.InDelta(t, tt.intrinsic-100, *upside, 1e-9)
	}
}

func TestClassify_BoundaryAtNonRoundPrices(t *testing.T) {
	tests := []struct {
		intrinsic, price float64
		want             Verdict
	}{
		{55, 50, FairValue},
		{45, 50, FairValue},
		{13.2, 12, FairValue},
		{10.8, 12, FairValue},
		{55.01, 50, Undervalued},
		{13.21, 12, Undervalued},
		{44.99, 50, Overvalued},
		{10.79, 12, Overvalued},
	}
	for _, tt := range tests {
		got, upside := Classify(tt.intrinsic, tt.price)
		assert.Equal(t, tt.want, got, "intrinsic %v price %v", tt.intrinsic, tt.price)
		require.NotNil(t, upside)
	}
}

func TestDefaultAssumptions_HugePEStaysFinite(t *testing.T) {
	a := DefaultAssumptions(&models.FinancialRecord{Quote: models.Quote{PE: f(1e307)}})
	assert.Equal(t, 1e307, a.TerminalMultiple)
}

func TestClassify_NoPrice(t *testing.T) {
	v, upside := Classify(120, 0)
	assert.Equal(t, Unavailable, v)
	assert.Nil(t, upside)
}

func TestDefaultAssumptions(t *testing.T) {
	a := DefaultAssumptions(&models.FinancialRecord{
		Quote:  models.Quote{EPS: f(6.1149)},
		Ratios: models.Ratios{PE: f(31.456)},
	})
	assert.Equal(t, 15.0, a.EPSGrowthRate)
	assert.Equal(t, 15.0, a.DiscountRate)
	assert.Equal(t, 31.46, a.TerminalMultiple)
	require.NotNil(t, a.CurrentEPS)
	assert.Equal(t, 6.11, *a.CurrentEPS)
	assert.Equal(t, ExitMultiple, a.ExitModel)

	a = DefaultAssumptions(&models.FinancialRecord{})
	assert.Equal(t, 20.0, a.TerminalMultiple)
	assert.Nil(t, a.CurrentEPS)
}

func TestParseRate(t *testing.T) {
	assert.Equal(t, 12.5, ParseRate("12.5"))
	assert.Equal(t, -3.0, ParseRate(" -3 "))
	assert.Equal(t, 0.0, ParseRate(""))
	assert.Equal(t, 0.0, ParseRate("abc"))
	assert.Equal(t, 0.0, ParseRate("NaN"))
	assert.Equal(t, 0.0, ParseRate("Inf"))
}

func TestParseExitModel(t *testing.T) {
	m, err := ParseExitModel("")
	require.NoError(t, err)
	assert.Equal(t, ExitMultiple, m)

	m, err = ParseExitModel("Perpetuity")
	require.NoError(t, err)
	assert.Equal(t, ExitPerpetuity, m)

	_, err = ParseExitModel("blend")
	assert.Error(t, err)
}
