package reconcile

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/valuator-backend/internal/models"
)

func snap(rows ...map[string]any) models.RawSnapshot {
	return models.RawSnapshot(rows)
}

func baseSnapshots() models.Snapshots {
	return models.Snapshots{
		Symbol: "aapl",
		Profile: snap(map[string]any{
			"symbol":            "AAPL",
			"companyName":       "Apple Inc.",
			"exchangeShortName": "NASDAQ",
			"industry":          "Consumer Electronics",
			"website":           "https://apple.com",
			"image":             "https://images.example/AAPL.png",
			"price":             190.5,
			"changes":           -1.25,
			"mktCap":            2.9e12,
		}),
		Metrics: snap(map[string]any{"epsTTM": 6.4, "returnOnEquityTTM": 1.6}),
		Ratios:  snap(map[string]any{"priceEarningsRatioTTM": 29.7, "debtToEquityRatioTTM": 1.8}),
		Quote:   snap(map[string]any{"pe": 30.1}),
		Income: snap(
			map[string]any{"date": "2024-09-28", "eps": 6.11},
			map[string]any{"date": "2023-09-30", "eps": 6.16},
			map[string]any{"date": "2022-09-24", "eps": 6.15},
		),
	}
}

func TestReconcile_Profile(t *testing.T) {
	rec, err := Reconcile(baseSnapshots())
	require.NoError(t, err)

	assert.Equal(t, "AAPL", rec.Profile.Symbol)
	assert.Equal(t, "Apple Inc.", rec.Profile.CompanyName)
	assert.Equal(t, "NASDAQ", rec.Profile.Exchange)
	assert.Equal(t, 190.5, rec.Profile.Price)
	assert.Equal(t, -1.25, rec.Profile.Change)
	assert.Equal(t, 2.9e12, rec.Profile.MarketCap)
}

func TestReconcile_EmptyProfileIsNotFound(t *testing.T) {
	s := baseSnapshots()
	s.Profile = models.RawSnapshot{}

	rec, err := Reconcile(s)
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.True(t, errors.Is(err, ErrNotFound))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "AAPL", nf.Symbol)
	assert.Equal(t, `no data found for ticker "AAPL"`, err.Error())
}

func TestReconcile_MissingSnapshotsTolerated(t *testing.T) {
	s := models.Snapshots{
		Symbol:  "XYZ",
		Profile: snap(map[string]any{"symbol": "XYZ"}),
	}
	rec, err := Reconcile(s)
	require.NoError(t, err)

	assert.Equal(t, 0.0, rec.Profile.MarketCap)
	assert.Equal(t, 0.0, rec.Profile.Price)
	assert.Nil(t, rec.Quote.PE)
	assert.Nil(t, rec.Quote.EPS)
	assert.Nil(t, rec.Metrics.EPS)
	assert.Nil(t, rec.Ratios.PE)
	assert.Empty(t, rec.HistoricalEarnings)
	assert.Empty(t, rec.Peers)
}

func TestReconcile_MarketCapFallback(t *testing.T) {
	s := baseSnapshots()
	s.Profile[0]["mktCap"] = nil
	s.Profile[0]["marketCap"] = 1.5e9

	rec, err := Reconcile(s)
	require.NoError(t, err)
	assert.Equal(t, 1.5e9, rec.Profile.MarketCap)
}

func TestReconcile_QuoteEPSPrefersIncome(t *testing.T) {
	s := baseSnapshots()
	s.Quote[0]["eps"] = 9.99

	rec, err := Reconcile(s)
	require.NoError(t, err)
	require.NotNil(t, rec.Quote.EPS)
	assert.Equal(t, 6.11, *rec.Quote.EPS)

	s.Income = models.RawSnapshot{}
	rec, err = Reconcile(s)
	require.NoError(t, err)
	require.NotNil(t, rec.Quote.EPS)
	assert.Equal(t, 9.99, *rec.Quote.EPS)
}

func TestReconcile_MetricsEPSChain(t *testing.T) {
	s := baseSnapshots()
	delete(s.Metrics[0], "epsTTM")
	s.Metrics[0]["netIncomePerShareTTM"] = 5.5

	rec, err := Reconcile(s)
	require.NoError(t, err)
	assert.Equal(t, 5.5, *rec.Metrics.EPS)

	delete(s.Metrics[0], "netIncomePerShareTTM")
	rec, err = Reconcile(s)
	require.NoError(t, err)
	assert.Equal(t, 6.11, *rec.Metrics.EPS)
}

func TestReconcile_RatioPESynonyms(t *testing.T) {
	for _, key := range []string{"priceEarningsRatioTTM", "peRatioTTM", "priceToEarningsRatioTTM"} {
		s := baseSnapshots()
		s.Ratios = snap(map[string]any{key: 17.0})
		rec, err := Reconcile(s)
		require.NoError(t, err)
		require.NotNil(t, rec.Ratios.PE, key)
		assert.Equal(t, 17.0, *rec.Ratios.PE, key)
	}
}

func TestReconcile_ZeroIsPresent(t *testing.T) {
	s := baseSnapshots()
	s.Quote = snap(map[string]any{"pe": 0.0, "priceEarnings": 12.0})

	rec, err := Reconcile(s)
	require.NoError(t, err)
	require.NotNil(t, rec.Quote.PE)
	assert.Equal(t, 0.0, *rec.Quote.PE)
}

func TestReconcile_StringsAreNotCoerced(t *testing.T) {
	s := baseSnapshots()
	s.Quote = snap(map[string]any{"pe": "31.2", "priceEarnings": 28.0})

	rec, err := Reconcile(s)
	require.NoError(t, err)
	assert.Equal(t, 28.0, *rec.Quote.PE)
}

func TestReconcile_JSONNumber(t *testing.T) {
	s := baseSnapshots()
	s.Ratios = snap(map[string]any{"peRatioTTM": json.Number("22.5")})

	rec, err := Reconcile(s)
	require.NoError(t, err)
	assert.Equal(t, 22.5, *rec.Ratios.PE)
}

func TestReconcile_HistoricalOrderPreserved(t *testing.T) {
	s := baseSnapshots()
	s.Income = snap(
		map[string]any{"date": "2020-01-01", "eps": 1.0},
		map[string]any{"date": "2024-01-01", "eps": 5.0},
		map[string]any{"date": "2022-01-01", "eps": 3.0},
		map[string]any{"date": "2021-01-01", "eps": nil},
		map[string]any{"fiscalDateEnding": "2019-01-01", "epsDiluted": 0.5},
		map[string]any{"date": "2018-01-01", "eps": 0.1},
	)

	rec, err := Reconcile(s)
	require.NoError(t, err)
	require.Len(t, rec.HistoricalEarnings, MaxHistoricalPoints)

	dates := []string{}
	for _, p := range rec.HistoricalEarnings {
		dates = append(dates, p.Date)
	}
	assert.Equal(t, []string{"2020-01-01", "2024-01-01", "2022-01-01", "2021-01-01", "2019-01-01"}, dates)
	assert.Nil(t, rec.HistoricalEarnings[3].EPS)
	assert.Equal(t, 0.5, *rec.HistoricalEarnings[4].EPS)
}

func TestReconcile_Peers(t *testing.T) {
	s := baseSnapshots()
	s.Peers = snap(
		map[string]any{"symbol": "MSFT", "pe": 35.0, "mktCap": 3.1e12},
		map[string]any{"symbol": "", "pe": 10.0},
		map[string]any{"symbol": "GOOGL", "marketCap": 2.0e12, "pe": math.NaN()},
	)

	rec, err := Reconcile(s)
	require.NoError(t, err)
	require.Len(t, rec.Peers, 2)
	assert.Equal(t, "MSFT", rec.Peers[0].Symbol)
	assert.Equal(t, 35.0, *rec.Peers[0].PE)
	assert.Equal(t, "GOOGL", rec.Peers[1].Symbol)
	assert.Nil(t, rec.Peers[1].PE)
	assert.Equal(t, 2.0e12, *rec.Peers[1].MarketCap)
}

// Every chain: when the primary candidate is null or NaN, a later finite
// candidate wins.
func TestResolvers_FirstFiniteWins(t *testing.T) {
	for _, r := range NumberResolvers() {
		if len(r.Candidates) < 2 {
			continue
		}
		for _, bad := range []any{nil, math.NaN(), math.Inf(1), "12"} {
			src := sources{}
			for _, c := range r.Candidates {
				if src[c.Source] == nil {
					src[c.Source] = map[string]any{}
				}
			}
			first := r.Candidates[0]
			last := r.Candidates[len(r.Candidates)-1]
			src[first.Source][first.Key] = bad
			src[last.Source][last.Key] = 42.0

			got := r.Resolve(src)
			require.NotNil(t, got, "%s with primary %v", r.Field, bad)
			assert.Equal(t, 42.0, *got, "%s with primary %v", r.Field, bad)
		}
	}
}

func TestResolvers_NegativeZeroNormalised(t *testing.T) {
	src := sources{SourceQuote: {"pe": math.Copysign(0, -1)}}
	got := QuotePE.Resolve(src)
	require.NotNil(t, got)
	assert.False(t, math.Signbit(*got))
}

var adversarial = []any{
	nil, math.NaN(), math.Inf(1), math.Inf(-1), math.Copysign(0, -1),
	"NaN", "Infinity", "", true, []any{1.0}, map[string]any{"v": 1.0},
	json.Number("nope"), 0.0, 1.5, -3.25, 1e308,
}

func randomRow(rng *rand.Rand, keys []string) map[string]any {
	row := map[string]any{}
	for _, k := range keys {
		if rng.Intn(4) == 0 {
			continue
		}
		row[k] = adversarial[rng.Intn(len(adversarial))]
	}
	return row
}

func allKeys(source Source) []string {
	seen := map[string]bool{}
	var keys []string
	for _, r := range NumberResolvers() {
		for _, c := range r.Candidates {
			if c.Source == source && !seen[c.Key] {
				seen[c.Key] = true
				keys = append(keys, c.Key)
			}
		}
	}
	return keys
}

func TestReconcile_NeverProducesNonFinite(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		profile := randomRow(rng, allKeys(SourceProfile))
		profile["symbol"] = "FUZZ"
		s := models.Snapshots{
			Symbol:  "FUZZ",
			Profile: snap(profile),
			Metrics: snap(randomRow(rng, allKeys(SourceMetrics))),
			Ratios:  snap(randomRow(rng, allKeys(SourceRatios))),
			Quote:   snap(randomRow(rng, append(allKeys(SourceQuote), "priceEarningsRatio", "mktCap", "marketCap"))),
			Income: snap(
				randomRow(rng, allKeys(SourceIncome)),
				randomRow(rng, allKeys(SourceIncome)),
			),
			Growth: snap(randomRow(rng, allKeys(SourceGrowth))),
			Peers: snap(
				func() map[string]any {
					row := randomRow(rng, []string{"pe", "mktCap", "marketCap"})
					row["symbol"] = "PEER"
					return row
				}(),
			),
		}

		rec, err := Reconcile(s)
		require.NoError(t, err)
		assertFiniteRecord(t, rec)
	}
}

func assertFiniteRecord(t *testing.T, rec *models.FinancialRecord) {
	t.Helper()
	check := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) || (v == 0 && math.Signbit(v)) {
			t.Fatalf("%s is not a clean finite number: %v", name, v)
		}
	}
	checkPtr := func(name string, v *float64) {
		if v != nil {
			check(name, *v)
		}
	}

	check("price", rec.Profile.Price)
	check("change", rec.Profile.Change)
	check("marketCap", rec.Profile.MarketCap)
	checkPtr("metrics.eps", rec.Metrics.EPS)
	checkPtr("metrics.pb", rec.Metrics.PriceToBook)
	checkPtr("metrics.dy", rec.Metrics.DividendYield)
	checkPtr("metrics.roe", rec.Metrics.ROE)
	checkPtr("metrics.de", rec.Metrics.DebtToEquity)
	checkPtr("metrics.rps", rec.Metrics.RevenuePerShare)
	checkPtr("metrics.growth", rec.Metrics.GrowthEPS)
	checkPtr("ratios.pe", rec.Ratios.PE)
	checkPtr("ratios.pb", rec.Ratios.PriceToBook)
	checkPtr("ratios.dy", rec.Ratios.DividendYield)
	checkPtr("ratios.roe", rec.Ratios.ROE)
	checkPtr("ratios.de", rec.Ratios.DebtToEquity)
	checkPtr("quote.pe", rec.Quote.PE)
	checkPtr("quote.eps", rec.Quote.EPS)
	for _, p := range rec.HistoricalEarnings {
		checkPtr("history.eps", p.EPS)
	}
	for _, p := range rec.Peers {
		checkPtr("peer.pe", p.PE)
		checkPtr("peer.mktCap", p.MarketCap)
	}
}
