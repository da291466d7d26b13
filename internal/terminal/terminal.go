package terminal

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kjannette/valuator-backend/internal/lookup"
	"github.com/kjannette/valuator-backend/internal/models"
	"github.com/kjannette/valuator-backend/internal/narrative"
)

// Analyzer is the AI write-up collaborator. It may be disabled.
type Analyzer interface {
	Enabled() bool
	Analyze(ctx context.Context, r *models.FinancialRecord) (*narrative.Analysis, error)
}

// CLI represents the command-line interface
type CLI struct {
	opts     Options
	reporter *Reporter
	rootCmd  *cobra.Command
}

// Options contain the collaborators and streams for the CLI
type Options struct {
	Stocks  lookup.Fetcher
	Analyst Analyzer
	Input   io.Reader
	Output  io.Writer
	// Timeout bounds one lookup or analysis.
	Timeout time.Duration
	Now     func() time.Time

	DefaultGrowthRate   float64
	DefaultDiscountRate float64
}

func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	cli := &CLI{
		opts:     opts,
		reporter: NewReporter(opts.Output),
	}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) now() time.Time {
	return cli.opts.Now()
}

// SetArgs overrides os.Args[1:], mainly for tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "valuate",
		Short:         "Stock fundamentals and intrinsic value calculator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(cli.opts.Output)
	cmd.SetIn(cli.opts.Input)

	cmd.AddCommand(NewLookupCmd(cli))
	cmd.AddCommand(NewAnalyzeCmd(cli))
	cmd.AddCommand(NewShellCmd(cli))

	return cmd
}
