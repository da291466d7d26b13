package valuation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kjannette/valuator-backend/internal/models"
)

// Years is the fixed projection horizon.
const Years = 5

var (
	// ErrInsufficientData means current EPS is absent or zero. Callers show
	// an empty valuation rather than an error.
	ErrInsufficientData = errors.New("insufficient data: current EPS is absent or zero")
	ErrDegenerate       = errors.New("degenerate valuation")
)

// DegenerateError carries the inputs that made the math undefined.
type DegenerateError struct {
	Reason string
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("degenerate valuation: %s", e.Reason)
}

func (e *DegenerateError) Is(target error) bool {
	return target == ErrDegenerate
}

type ProjectionPoint struct {
	Year  int     `json:"year"`
	EPS   float64 `json:"eps"`
	Price float64 `json:"price"`
}

type Result struct {
	ExitModel      ExitModel         `json:"exitModel"`
	CurrentEPS     float64           `json:"currentEps"`
	CurrentPrice   float64           `json:"currentPrice"`
	IntrinsicValue float64           `json:"intrinsicValue"`
	EntryPrice     float64           `json:"entryPrice"`
	FuturePrice    float64           `json:"futurePrice"`
	ExpectedReturn float64           `json:"expectedReturn"`
	UpsidePercent  *float64          `json:"upsidePercent"`
	Verdict        Verdict           `json:"verdict"`
	Projections    []ProjectionPoint `json:"projections"`
}

// Project runs the five-year earnings projection for r under a. It is a
// pure function of its inputs; now only supplies the calendar year labels.
func Project(r *models.FinancialRecord, a Assumptions, now time.Time) (*Result, error) {
	if r == nil {
		return nil, ErrInsufficientData
	}
	eps0 := a.CurrentEPS
	if eps0 == nil {
		eps0 = r.EPS()
	}
	if eps0 == nil || *eps0 == 0 || !isFinite(*eps0) {
		return nil, ErrInsufficientData
	}

	g := a.EPSGrowthRate / 100
	d := a.DiscountRate / 100
	if 1+d == 0 {
		return nil, &DegenerateError{Reason: "discount rate of -100% cannot be discounted"}
	}

	res := &Result{
		ExitModel:    a.exitModel(),
		CurrentEPS:   *eps0,
		CurrentPrice: r.Profile.Price,
		Projections:  make([]ProjectionPoint, 0, Years),
	}

	year := now.Year()
	eps := *eps0
	pvEarnings := 0.0
	for i := 1; i <= Years; i++ {
		eps = *eps0 * math.Pow(1+g, float64(i))
		res.Projections = append(res.Projections, ProjectionPoint{
			Year:  year + i,
			EPS:   eps,
			Price: eps * a.TerminalMultiple,
		})
		pvEarnings += eps / math.Pow(1+d, float64(i))
	}

	discount := math.Pow(1+d, Years)
	res.FuturePrice = eps * a.TerminalMultiple
	res.EntryPrice = res.FuturePrice / discount

	switch res.ExitModel {
	case ExitPerpetuity:
		tg := a.TerminalGrowthRate / 100
		if d == tg {
			return nil, &DegenerateError{
				Reason: fmt.Sprintf("discount rate %.2f%% equals terminal growth rate %.2f%%", a.DiscountRate, a.TerminalGrowthRate),
			}
		}
		terminal := eps * (1 + tg) / (d - tg)
		res.IntrinsicValue = pvEarnings + terminal/discount
	default:
		res.IntrinsicValue = res.EntryPrice
	}

	res.ExpectedReturn = ExpectedReturn(res.FuturePrice, r.Profile.Price)
	res.Verdict, res.UpsidePercent = Classify(res.IntrinsicValue, r.Profile.Price)

	if err := res.checkFinite(); err != nil {
		return nil, err
	}
	return res, nil
}

// ExpectedReturn is the annualised percentage return of buying at price and
// selling at future after Years. Zero when price is not positive, -100 when
// the future price is wiped out.
func ExpectedReturn(future, price float64) float64 {
	if price <= 0 {
		return 0
	}
	if future <= 0 {
		return -100
	}
	return (math.Pow(future/price, 1.0/Years) - 1) * 100
}

func (r *Result) checkFinite() error {
	vals := map[string]float64{
		"intrinsic value": r.IntrinsicValue,
		"entry price":     r.EntryPrice,
		"future price":    r.FuturePrice,
		"expected return": r.ExpectedReturn,
	}
	if r.UpsidePercent != nil {
		vals["upside"] = *r.UpsidePercent
	}
	for _, p := range r.Projections {
		vals[fmt.Sprintf("projection %d", p.Year)] = p.Price
	}
	for name, v := range vals {
		if !isFinite(v) {
			return &DegenerateError{Reason: name + " is not finite"}
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
