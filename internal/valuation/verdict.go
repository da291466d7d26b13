package valuation

type Verdict string

const (
	Undervalued Verdict = "undervalued"
	Overvalued  Verdict = "overvalued"
	FairValue   Verdict = "fair value"
	Unavailable Verdict = "unavailable"
)

// DeadBand is the exclusive ±10% tolerance around market price.
const DeadBand = 0.10

// Classify compares intrinsic value against market price. The returned
// upside is a percentage, nil when price is not positive.
func Classify(intrinsic, price float64) (Verdict, *float64) {
	if price <= 0 {
		return Unavailable, nil
	}
	upside := (intrinsic - price) / price
	pct := upside * 100
	switch {
	case upside > DeadBand:
		return Undervalued, &pct
	case upside < -DeadBand:
		return Overvalued, &pct
	}
	return FairValue, &pct
}
