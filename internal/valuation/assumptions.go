package valuation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kjannette/valuator-backend/internal/models"
)

type ExitModel string

const (
	// ExitMultiple prices year five at TerminalMultiple × EPS.
	ExitMultiple ExitModel = "multiple"
	// ExitPerpetuity discounts each year's EPS plus a Gordon-growth terminal value.
	ExitPerpetuity ExitModel = "perpetuity"
)

const (
	DefaultGrowthRate       = 15.0
	DefaultDiscountRate     = 15.0
	DefaultTerminalMultiple = 20.0
	DefaultTerminalGrowth   = 3.0
)

// Assumptions are the user-chosen inputs of one calculation. Rates are
// percentages: 10 means 10%.
type Assumptions struct {
	EPSGrowthRate      float64   `json:"epsGrowthRate"`
	DiscountRate       float64   `json:"discountRate"`
	TerminalMultiple   float64   `json:"terminalMultiple"`
	CurrentEPS         *float64  `json:"currentEps,omitempty"`
	ExitModel          ExitModel `json:"exitModel"`
	TerminalGrowthRate float64   `json:"terminalGrowthRate"`
}

func (a Assumptions) exitModel() ExitModel {
	if a.ExitModel == ExitPerpetuity {
		return ExitPerpetuity
	}
	return ExitMultiple
}

// DefaultAssumptions seeds the inputs for r: the terminal multiple starts at
// the record's P/E, rounded to cents.
func DefaultAssumptions(r *models.FinancialRecord) Assumptions {
	a := Assumptions{
		EPSGrowthRate:      DefaultGrowthRate,
		DiscountRate:       DefaultDiscountRate,
		TerminalMultiple:   DefaultTerminalMultiple,
		ExitModel:          ExitMultiple,
		TerminalGrowthRate: DefaultTerminalGrowth,
	}
	if r == nil {
		return a
	}
	if pe := r.PE(); pe != nil {
		a.TerminalMultiple = round2(*pe)
	}
	if eps := r.EPS(); eps != nil {
		v := round2(*eps)
		a.CurrentEPS = &v
	}
	return a
}

// ParseRate reads one numeric input field. Anything that is not a finite
// number becomes 0.
func ParseRate(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !isFinite(v) {
		return 0
	}
	return v
}

// ParseExitModel accepts "multiple" or "perpetuity"; empty means multiple.
func ParseExitModel(s string) (ExitModel, error) {
	switch ExitModel(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExitMultiple:
		return ExitMultiple, nil
	case ExitPerpetuity:
		return ExitPerpetuity, nil
	}
	return "", fmt.Errorf("unknown exit model %q", s)
}

// round2 rounds to cents. Values too large to scale are returned unchanged.
func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if !isFinite(r) {
		return v
	}
	if r == 0 {
		return 0
	}
	return r
}
