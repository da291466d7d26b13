package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kjannette/valuator-backend/internal/lookup"
	"github.com/kjannette/valuator-backend/internal/models"
	"github.com/kjannette/valuator-backend/internal/narrative"
	"github.com/kjannette/valuator-backend/internal/valuation"
)

type assumptionFlags struct {
	growth         float64
	discount       float64
	multiple       float64
	eps            float64
	exit           string
	terminalGrowth float64
}

func (f *assumptionFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.growth, "growth", 0, "Annual EPS growth rate in percent (default from config)")
	cmd.Flags().Float64Var(&f.discount, "discount", 0, "Discount rate in percent (default from config)")
	cmd.Flags().Float64Var(&f.multiple, "multiple", 0, "Terminal P/E multiple (default: current P/E)")
	cmd.Flags().Float64Var(&f.eps, "eps", 0, "Override current EPS")
	cmd.Flags().StringVar(&f.exit, "exit", string(valuation.ExitMultiple), "Exit model: multiple or perpetuity")
	cmd.Flags().Float64Var(&f.terminalGrowth, "terminal-growth", valuation.DefaultTerminalGrowth, "Perpetuity growth rate in percent")
}

// apply layers explicitly set flags over the defaults for rec.
func (f *assumptionFlags) apply(cmd *cobra.Command, base valuation.Assumptions) (valuation.Assumptions, error) {
	exit, err := valuation.ParseExitModel(f.exit)
	if err != nil {
		return base, err
	}
	a := base
	a.ExitModel = exit
	a.TerminalGrowthRate = f.terminalGrowth
	if cmd.Flags().Changed("growth") {
		a.EPSGrowthRate = f.growth
	}
	if cmd.Flags().Changed("discount") {
		a.DiscountRate = f.discount
	}
	if cmd.Flags().Changed("multiple") {
		a.TerminalMultiple = f.multiple
	}
	if cmd.Flags().Changed("eps") {
		eps := f.eps
		a.CurrentEPS = &eps
	}
	return a, nil
}

type LookupCmd struct {
	cli    *CLI
	flags  assumptionFlags
	asJSON bool
}

func NewLookupCmd(cli *CLI) *cobra.Command {
	lc := &LookupCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "lookup SYMBOL",
		Short: "Show fundamentals, checklist, peers and valuation for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE:  lc.run,
	}
	lc.flags.register(cmd)
	cmd.Flags().BoolVar(&lc.asJSON, "json", false, "Print the reconciled record and valuation as JSON")
	return cmd
}

func (lc *LookupCmd) run(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), lc.cli.opts.Timeout)
	defer cancel()

	rec, err := lc.cli.opts.Stocks.Fetch(ctx, lookup.NormalizeSymbol(args[0]))
	if err != nil {
		return fmt.Errorf("lookup %s: %w", args[0], err)
	}

	a, err := lc.flags.apply(cmd, lc.cli.defaults(rec))
	if err != nil {
		return err
	}
	res, err := valuation.Project(rec, a, lc.cli.now())
	if err != nil && !errors.Is(err, valuation.ErrInsufficientData) {
		return fmt.Errorf("valuation: %w", err)
	}

	if lc.asJSON {
		enc := json.NewEncoder(lc.cli.opts.Output)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Record      *models.FinancialRecord `json:"record"`
			Assumptions valuation.Assumptions   `json:"assumptions"`
			Valuation   *valuation.Result       `json:"valuation"`
		}{rec, a, res})
	}

	if err := lc.cli.reporter.Record(rec); err != nil {
		return err
	}
	return lc.cli.reporter.Valuation(a, res)
}

type AnalyzeCmd struct {
	cli  *CLI
	html bool
}

func NewAnalyzeCmd(cli *CLI) *cobra.Command {
	ac := &AnalyzeCmd{cli: cli}
	cmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Generate an AI analysis of a ticker",
		Args:  cobra.ExactArgs(1),
		RunE:  ac.run,
	}
	cmd.Flags().BoolVar(&ac.html, "html", false, "Print rendered HTML instead of markdown")
	return cmd
}

func (ac *AnalyzeCmd) run(cmd *cobra.Command, args []string) error {
	if ac.cli.opts.Analyst == nil || !ac.cli.opts.Analyst.Enabled() {
		return narrative.ErrDisabled
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), ac.cli.opts.Timeout)
	defer cancel()

	rec, err := ac.cli.opts.Stocks.Fetch(ctx, lookup.NormalizeSymbol(args[0]))
	if err != nil {
		return fmt.Errorf("lookup %s: %w", args[0], err)
	}
	analysis, err := ac.cli.opts.Analyst.Analyze(ctx, rec)
	if err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if ac.html {
		return ac.cli.reporter.Markdown(analysis.HTML)
	}
	return ac.cli.reporter.Markdown(analysis.Markdown)
}

func (cli *CLI) defaults(rec *models.FinancialRecord) valuation.Assumptions {
	a := valuation.DefaultAssumptions(rec)
	if cli.opts.DefaultGrowthRate != 0 {
		a.EPSGrowthRate = cli.opts.DefaultGrowthRate
	}
	if cli.opts.DefaultDiscountRate != 0 {
		a.DiscountRate = cli.opts.DefaultDiscountRate
	}
	return a
}
