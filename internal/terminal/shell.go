package terminal

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/kjannette/valuator-backend/internal/lookup"
	"github.com/kjannette/valuator-backend/internal/valuation"
)

const shellHelp = `Commands:
  <SYMBOL>                 look up a ticker (a newer lookup replaces one in flight)
  value [key=value ...]    re-run the valuation; keys: growth discount multiple eps exit tg
  show                     print the current record again
  analyze                  AI analysis of the current record
  reset                    clear the current record
  help                     this text
  quit                     leave the shell
`

// Shell is an interactive session over a single current record. Lookups run
// in the background; only the most recently started one is shown.
type Shell struct {
	cli     *CLI
	session *lookup.Session

	outMu sync.Mutex
	out   io.Writer

	mu           sync.Mutex
	overrides    map[string]string
	overridesFor string

	pending sync.WaitGroup
}

func NewShellCmd(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive lookup and valuation session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return NewShell(cli).Run(cmd.Context(), cli.opts.Input)
		},
	}
}

func NewShell(cli *CLI) *Shell {
	return &Shell{
		cli:       cli,
		session:   lookup.NewSession(cli.opts.Stocks),
		out:       cli.opts.Output,
		overrides: make(map[string]string),
	}
}

// Run reads commands until quit or end of input, then waits for lookups
// still in flight.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	s.print("=== Valuator shell ===\nType a ticker symbol, or 'help'.\n")

	scanner := bufio.NewScanner(in)
	for {
		s.print("\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch strings.ToLower(fields[0]) {
		case "quit", "exit":
			s.session.Reset()
			s.pending.Wait()
			s.print("Goodbye!\n")
			return nil
		case "help":
			s.print(shellHelp)
		case "reset":
			s.session.Reset()
			s.print("Cleared.\n")
		case "show":
			s.pending.Wait()
			s.show()
		case "value":
			s.pending.Wait()
			s.value(fields[1:])
		case "analyze":
			s.pending.Wait()
			s.analyze(ctx)
		default:
			if len(fields) > 1 {
				s.print(fmt.Sprintf("unknown command %q, type 'help'\n", fields[0]))
				continue
			}
			s.lookup(ctx, fields[0])
		}
	}

	s.pending.Wait()
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func (s *Shell) lookup(ctx context.Context, raw string) {
	sym := lookup.NormalizeSymbol(raw)
	s.print(fmt.Sprintf("Looking up %s...\n", sym))

	lctx, cancel := context.WithTimeout(ctx, s.cli.opts.Timeout)
	run := s.session.Begin(lctx, sym)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()

		st, err := run()
		switch {
		case errors.Is(err, lookup.ErrSuperseded):
			return
		case err != nil:
			s.print(fmt.Sprintf("lookup %s failed: %v\n", sym, err))
			return
		}

		a := s.assumptions(st, nil)
		res, verr := valuation.Project(st.Record, a, s.cli.now())
		s.render(func(r *Reporter) error {
			if err := r.Record(st.Record); err != nil {
				return err
			}
			return s.renderValuation(r, a, res, verr)
		})
	}()
}

func (s *Shell) show() {
	st := s.session.Current()
	if st == nil {
		s.print(lookup.ErrNoRecord.Error() + "\n")
		return
	}
	s.render(func(r *Reporter) error { return r.Record(st.Record) })
}

func (s *Shell) value(args []string) {
	st := s.session.Current()
	if st == nil {
		s.print(lookup.ErrNoRecord.Error() + "\n")
		return
	}

	set := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || !validKey(k) {
			s.print(fmt.Sprintf("bad argument %q, expected key=value\n", arg))
			return
		}
		set[strings.ToLower(k)] = v
	}
	if v, ok := set["exit"]; ok {
		if _, err := valuation.ParseExitModel(v); err != nil {
			s.print(err.Error() + "\n")
			return
		}
	}

	a := s.assumptions(st, set)
	res, err := s.session.Value(a)
	s.render(func(r *Reporter) error { return s.renderValuation(r, a, res, err) })
}

func (s *Shell) analyze(ctx context.Context) {
	st := s.session.Current()
	if st == nil {
		s.print(lookup.ErrNoRecord.Error() + "\n")
		return
	}
	an := s.cli.opts.Analyst
	if an == nil || !an.Enabled() {
		s.print("AI analysis is not configured\n")
		return
	}

	actx, cancel := context.WithTimeout(ctx, s.cli.opts.Timeout)
	defer cancel()
	analysis, err := an.Analyze(actx, st.Record)
	if err != nil {
		s.print(fmt.Sprintf("analysis failed: %v\n", err))
		return
	}
	s.render(func(r *Reporter) error { return r.Markdown(analysis.Markdown) })
}

// assumptions merges set into the overrides kept for the current lookup and
// layers them over the record's defaults. Overrides from an earlier lookup
// are dropped.
func (s *Shell) assumptions(st *lookup.State, set map[string]string) valuation.Assumptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overridesFor != st.LookupID {
		s.overrides = make(map[string]string)
		s.overridesFor = st.LookupID
	}
	for k, v := range set {
		s.overrides[k] = v
	}

	a := s.cli.defaults(st.Record)
	for k, v := range s.overrides {
		switch k {
		case "growth":
			a.EPSGrowthRate = valuation.ParseRate(v)
		case "discount":
			a.DiscountRate = valuation.ParseRate(v)
		case "multiple":
			a.TerminalMultiple = valuation.ParseRate(v)
		case "eps":
			eps := valuation.ParseRate(v)
			a.CurrentEPS = &eps
		case "tg":
			a.TerminalGrowthRate = valuation.ParseRate(v)
		case "exit":
			a.ExitModel, _ = valuation.ParseExitModel(v)
		}
	}
	return a
}

func (s *Shell) renderValuation(r *Reporter, a valuation.Assumptions, res *valuation.Result, err error) error {
	switch {
	case err == nil, errors.Is(err, valuation.ErrInsufficientData):
		return r.Valuation(a, res)
	default:
		_, werr := fmt.Fprintf(r.writer, "\nValuation unavailable: %v\n", err)
		return werr
	}
}

// render builds one report in memory so concurrent lookups never interleave
// their output.
func (s *Shell) render(fn func(r *Reporter) error) {
	var buf bytes.Buffer
	if err := fn(NewReporter(&buf)); err != nil {
		fmt.Fprintf(&buf, "render: %v\n", err)
	}
	s.print(buf.String())
}

func (s *Shell) print(text string) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	io.WriteString(s.out, text)
}

func validKey(k string) bool {
	switch strings.ToLower(k) {
	case "growth", "discount", "multiple", "eps", "exit", "tg":
		return true
	}
	return false
}
