package checklist

import "github.com/kjannette/valuator-backend/internal/models"

// Missing inputs fall back to these so that absent data always fails a check.
const (
	missingPE           = 99.0
	missingDebtToEquity = 99.0
	missingROE          = 0.0
)

const (
	maxPE            = 25.0
	maxDebtToEquity  = 1.0
	minROEPercent    = 15.0
	minGrowthYears   = 3
	minComparable    = 2
	earningsLookback = 5
)

const (
	LabelPE           = "P/E ratio below 25"
	LabelDebtToEquity = "Debt/Equity below 1"
	LabelROE          = "Return on equity above 15%"
	LabelEPSGrowth    = "EPS grew in at least 3 of the last 5 years"
)

type Check struct {
	Label  string `json:"label"`
	Passed bool   `json:"passed"`
}

// Evaluate applies the four health rules to r, always in the same order.
func Evaluate(r *models.FinancialRecord) []Check {
	if r == nil {
		r = &models.FinancialRecord{}
	}
	return []Check{
		{Label: LabelPE, Passed: valueOr(r.PE(), missingPE) < maxPE},
		{Label: LabelDebtToEquity, Passed: valueOr(r.DebtToEquity(), missingDebtToEquity) < maxDebtToEquity},
		{Label: LabelROE, Passed: valueOr(r.ROE(), missingROE)*100 > minROEPercent},
		{Label: LabelEPSGrowth, Passed: epsGrowthPassed(r.HistoricalEarnings)},
	}
}

// PassedCount is the number of checks that passed.
func PassedCount(checks []Check) int {
	n := 0
	for _, c := range checks {
		if c.Passed {
			n++
		}
	}
	return n
}

// epsGrowthPassed compares each point with its predecessor in the order
// given; a pair with a missing EPS is not comparable.
func epsGrowthPassed(history []models.EarningsPoint) bool {
	if len(history) > earningsLookback {
		history = history[:earningsLookback]
	}
	comparable, grew := 0, 0
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1].EPS, history[i].EPS
		if prev == nil || cur == nil {
			continue
		}
		comparable++
		if *cur > *prev {
			grew++
		}
	}
	if comparable < minComparable {
		return false
	}
	return grew >= minGrowthYears
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
