package terminal

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/kjannette/valuator-backend/internal/checklist"
	"github.com/kjannette/valuator-backend/internal/format"
	"github.com/kjannette/valuator-backend/internal/models"
	"github.com/kjannette/valuator-backend/internal/peers"
	"github.com/kjannette/valuator-backend/internal/valuation"
)

const recordTmpl = `
{{.Name}} ({{.Symbol}}){{if .Exchange}} · {{.Exchange}}{{end}}{{if .Industry}} · {{.Industry}}{{end}}
Price: {{.Price}}   Market cap: {{.MarketCap}}

P/E: {{.PE}}   EPS: {{.EPS}}   P/B: {{.PriceToBook}}
Dividend yield: {{.DividendYield}}   ROE: {{.ROE}}   Debt/Equity: {{.DebtToEquity}}
EPS growth (latest year): {{.EPSGrowth}}

=== Checklist ({{.Passed}}/{{len .Checks}}) ===
{{range .Checks}}[{{if .Passed}}x{{else}} {{end}}] {{.Label}}
{{end}}
=== Peers ===
{{range .Peers}}{{if .IsMain}}*{{else}} {{end}} {{printf "%-16s" .Symbol}} P/E {{printf "%-10s" (num .PE)}} Cap {{num .MarketCap}}
{{end}}`

const valuationTmpl = `
=== Valuation ({{.ExitModel}} exit) ===
Growth {{pct .Growth}}   Discount {{pct .Discount}}   Multiple {{num .Multiple}}{{if .Perpetuity}}   Terminal growth {{pct .TerminalGrowth}}{{end}}
{{if .Result}}{{range .Result.Projections}}  {{.Year}}  EPS {{num (ptr .EPS)}}  Price {{money (ptr .Price)}}
{{end}}
Intrinsic value: {{money (ptr .Result.IntrinsicValue)}}   Current price: {{money (ptr .Result.CurrentPrice)}}
Entry price: {{money (ptr .Result.EntryPrice)}}   Expected return: {{pct (ptr .Result.ExpectedReturn)}} per year
Verdict: {{.Result.Verdict}}{{if .Result.UpsidePercent}} ({{signed .Result.UpsidePercent}}){{end}}
{{else}}Insufficient data: current EPS is missing or zero.
{{end}}`

// Reporter renders records and valuations as plain text.
type Reporter struct {
	writer    io.Writer
	record    *template.Template
	valuation *template.Template
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	funcs := template.FuncMap{
		"num":   format.Number,
		"pct":   format.Percentage,
		"money": format.Money,
		"ptr":   func(v float64) *float64 { return &v },
		"signed": func(v *float64) string {
			return fmt.Sprintf("%+.1f%%", *v)
		},
	}
	return &Reporter{
		writer:    writer,
		record:    template.Must(template.New("record").Funcs(funcs).Parse(recordTmpl)),
		valuation: template.Must(template.New("valuation").Funcs(funcs).Parse(valuationTmpl)),
	}
}

type recordView struct {
	Name, Symbol, Exchange, Industry string
	Price, MarketCap                 string
	PE, EPS, PriceToBook             string
	DividendYield, ROE, DebtToEquity string
	EPSGrowth                        string
	Checks                           []checklist.Check
	Passed                           int
	Peers                            []peers.Row
}

func (r *Reporter) Record(rec *models.FinancialRecord) error {
	checks := checklist.Evaluate(rec)
	price, mc := rec.Profile.Price, rec.Profile.MarketCap
	view := recordView{
		Name:          rec.Profile.CompanyName,
		Symbol:        rec.Profile.Symbol,
		Exchange:      rec.Profile.Exchange,
		Industry:      rec.Profile.Industry,
		Price:         format.Money(&price),
		MarketCap:     format.Money(&mc),
		PE:            format.Number(rec.PE()),
		EPS:           format.Number(rec.EPS()),
		PriceToBook:   format.Number(rec.PriceToBook()),
		DividendYield: format.Ratio(rec.DividendYield()),
		ROE:           format.Ratio(rec.ROE()),
		DebtToEquity:  format.Number(rec.DebtToEquity()),
		EPSGrowth:     format.Ratio(rec.Metrics.GrowthEPS),
		Checks:        checks,
		Passed:        checklist.PassedCount(checks),
		Peers:         peers.Compare(rec.Peers, rec.Summary()).Rows,
	}
	return r.record.Execute(r.writer, view)
}

type valuationView struct {
	ExitModel      valuation.ExitModel
	Perpetuity     bool
	Growth         *float64
	Discount       *float64
	Multiple       *float64
	TerminalGrowth *float64
	Result         *valuation.Result
}

// Valuation prints res under a. A nil res means the data was insufficient.
func (r *Reporter) Valuation(a valuation.Assumptions, res *valuation.Result) error {
	exit := a.ExitModel
	if exit == "" {
		exit = valuation.ExitMultiple
	}
	view := valuationView{
		ExitModel:      exit,
		Perpetuity:     exit == valuation.ExitPerpetuity,
		Growth:         &a.EPSGrowthRate,
		Discount:       &a.DiscountRate,
		Multiple:       &a.TerminalMultiple,
		TerminalGrowth: &a.TerminalGrowthRate,
		Result:         res,
	}
	return r.valuation.Execute(r.writer, view)
}

func (r *Reporter) Markdown(text string) error {
	_, err := fmt.Fprintf(r.writer, "\n%s\n", text)
	return err
}
