package format

import (
	"fmt"
	"math"
)

// Missing is printed for absent or non-finite values.
const Missing = "–"

// Number renders v with two decimals and a B/M/K suffix for large positive
// values.
func Number(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return Missing
	}
	n := *v
	switch {
	case n > 1_000_000_000:
		return fmt.Sprintf("%.2fB", n/1_000_000_000)
	case n > 1_000_000:
		return fmt.Sprintf("%.2fM", n/1_000_000)
	case n > 1_000:
		return fmt.Sprintf("%.2fK", n/1_000)
	}
	return fmt.Sprintf("%.2f", n)
}

func Percentage(v *float64) string {
	s := Number(v)
	if s == Missing {
		return Missing
	}
	return s + "%"
}

// Ratio renders a fractional value (0.15) as a percentage (15.00%).
func Ratio(v *float64) string {
	if v == nil {
		return Missing
	}
	pct := *v * 100
	return Percentage(&pct)
}

func Money(v *float64) string {
	s := Number(v)
	if s == Missing {
		return Missing
	}
	return "$" + s
}
