package format

import (
	"math"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestNumber(t *testing.T) {
	tests := []struct {
		in   *float64
		want string
	}{
		{nil, Missing},
		{f(math.NaN()), Missing},
		{f(math.Inf(-1)), Missing},
		{f(0), "0.00"},
		{f(999.999), "1000.00"},
		{f(1000), "1000.00"},
		{f(1500), "1.50K"},
		{f(2_500_000), "2.50M"},
		{f(1_000_000_000), "1000.00M"},
		{f(2_910_000_000_000), "2910.00B"},
		{f(-5_000_000), "-5000000.00"},
	}
	for _, tt := range tests {
		if got := Number(tt.in); got != tt.want {
			t.Errorf("Number(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPercentageAndRatio(t *testing.T) {
	if got := Percentage(f(12.346)); got != "12.35%" {
		t.Errorf("Percentage = %q", got)
	}
	if got := Percentage(nil); got != Missing {
		t.Errorf("Percentage(nil) = %q", got)
	}
	if got := Ratio(f(0.156)); got != "15.60%" {
		t.Errorf("Ratio = %q", got)
	}
	if got := Ratio(nil); got != Missing {
		t.Errorf("Ratio(nil) = %q", got)
	}
	if got := Money(f(1500)); got != "$1.50K" {
		t.Errorf("Money = %q", got)
	}
}
