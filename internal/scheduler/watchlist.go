package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/kjannette/valuator-backend/internal/models"
	"github.com/kjannette/valuator-backend/internal/valuation"
)

type SymbolSource interface {
	Symbols(ctx context.Context) ([]string, error)
}

type RecordFetcher interface {
	Fetch(ctx context.Context, symbol string) (*models.FinancialRecord, error)
}

type Alerter interface {
	VerdictChanged(ctx context.Context, symbol string, from, to valuation.Verdict, res *valuation.Result)
}

type RefresherConfig struct {
	Schedule     string        // standard 5-field cron spec
	GrowthRate   float64       // percent; 0 keeps the valuation default
	DiscountRate float64       // percent; 0 keeps the valuation default
	JobTimeout   time.Duration // per refresh run
	Now          func() time.Time
}

// Summary describes one refresh run.
type Summary struct {
	Checked int
	Failed  int
	Changed []string
}

// WatchlistRefresher re-values every watchlist ticker on a cron schedule and
// alerts when a verdict moves. Verdicts are kept in memory only.
type WatchlistRefresher struct {
	symbols SymbolSource
	fetcher RecordFetcher
	alerter Alerter
	cfg     RefresherConfig
	log     zerolog.Logger

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	last    map[string]valuation.Verdict
}

func NewWatchlistRefresher(symbols SymbolSource, fetcher RecordFetcher, alerter Alerter, cfg RefresherConfig, log zerolog.Logger) *WatchlistRefresher {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &WatchlistRefresher{
		symbols: symbols,
		fetcher: fetcher,
		alerter: alerter,
		cfg:     cfg,
		log:     log.With().Str("component", "scheduler").Logger(),
		last:    make(map[string]valuation.Verdict),
	}
}

func (w *WatchlistRefresher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		w.log.Info().Msg("already running")
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(w.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
		defer cancel()
		if _, err := w.refresh(ctx); err != nil {
			w.log.Error().Err(err).Msg("watchlist refresh failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", w.cfg.Schedule, err)
	}
	c.Start()

	w.cron = c
	w.running = true
	w.log.Info().Str("schedule", w.cfg.Schedule).Msg("started")
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (w *WatchlistRefresher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	c := w.cron
	w.running = false
	w.cron = nil
	w.mu.Unlock()

	<-c.Stop().Done()
	w.log.Info().Msg("stopped")
}

func (w *WatchlistRefresher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RefreshNow runs one refresh outside the schedule.
func (w *WatchlistRefresher) RefreshNow(ctx context.Context) (*Summary, error) {
	w.log.Info().Msg("manual refresh triggered")
	return w.refresh(ctx)
}

// LastVerdict returns the verdict seen on the previous refresh, if any.
func (w *WatchlistRefresher) LastVerdict(symbol string) (valuation.Verdict, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.last[symbol]
	return v, ok
}

func (w *WatchlistRefresher) refresh(ctx context.Context) (*Summary, error) {
	symbols, err := w.symbols.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}

	sum := &Summary{}
	for _, sym := range symbols {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		sum.Checked++

		verdict, res, err := w.value(ctx, sym)
		if err != nil {
			sum.Failed++
			w.log.Warn().Err(err).Str("symbol", sym).Msg("refresh failed")
			continue
		}

		w.mu.Lock()
		prev, seen := w.last[sym]
		w.last[sym] = verdict
		w.mu.Unlock()

		if seen && prev != verdict {
			sum.Changed = append(sum.Changed, sym)
			if w.alerter != nil && res != nil {
				w.alerter.VerdictChanged(ctx, sym, prev, verdict, res)
			}
		}
	}

	w.log.Info().
		Int("checked", sum.Checked).
		Int("failed", sum.Failed).
		Strs("changed", sum.Changed).
		Msg("watchlist refreshed")
	return sum, nil
}

func (w *WatchlistRefresher) value(ctx context.Context, sym string) (valuation.Verdict, *valuation.Result, error) {
	rec, err := w.fetcher.Fetch(ctx, sym)
	if err != nil {
		return "", nil, err
	}

	a := valuation.DefaultAssumptions(rec)
	if w.cfg.GrowthRate != 0 {
		a.EPSGrowthRate = w.cfg.GrowthRate
	}
	if w.cfg.DiscountRate != 0 {
		a.DiscountRate = w.cfg.DiscountRate
	}

	res, err := valuation.Project(rec, a, w.cfg.Now())
	if errors.Is(err, valuation.ErrInsufficientData) {
		return valuation.Unavailable, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	return res.Verdict, res, nil
}
