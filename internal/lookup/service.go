package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kjannette/valuator-backend/internal/cache"
	"github.com/kjannette/valuator-backend/internal/models"
	"github.com/kjannette/valuator-backend/internal/reconcile"
)

const DefaultMaxPeers = 8

var ErrInvalidSymbol = errors.New("invalid ticker symbol")

// MarketData is the subset of the market client a lookup needs.
type MarketData interface {
	Profile(ctx context.Context, symbol string) (models.RawSnapshot, error)
	KeyMetricsTTM(ctx context.Context, symbol string) (models.RawSnapshot, error)
	RatiosTTM(ctx context.Context, symbol string) (models.RawSnapshot, error)
	Quote(ctx context.Context, symbol string) (models.RawSnapshot, error)
	IncomeStatements(ctx context.Context, symbol string) (models.RawSnapshot, error)
	IncomeGrowth(ctx context.Context, symbol string) (models.RawSnapshot, error)
	Peers(ctx context.Context, symbol string) (models.RawSnapshot, error)
	BatchQuote(ctx context.Context, symbols []string) (models.RawSnapshot, error)
}

type Service struct {
	market   MarketData
	cache    cache.SnapshotCache
	maxPeers int
	log      zerolog.Logger
}

func NewService(market MarketData, c cache.SnapshotCache, log zerolog.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{
		market:   market,
		cache:    c,
		maxPeers: DefaultMaxPeers,
		log:      log.With().Str("component", "lookup").Logger(),
	}
}

// NormalizeSymbol trims and upper-cases user input.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Fetch loads and reconciles the record for symbol.
func (s *Service) Fetch(ctx context.Context, symbol string) (*models.FinancialRecord, error) {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return nil, ErrInvalidSymbol
	}

	snaps, err := s.Snapshots(ctx, sym)
	if err != nil {
		return nil, err
	}
	return reconcile.Reconcile(*snaps)
}

// Snapshots returns the raw bundle for sym, from cache when possible. The
// five required queries run concurrently and the first failure cancels the
// rest; growth and peers never fail the lookup.
func (s *Service) Snapshots(ctx context.Context, sym string) (*models.Snapshots, error) {
	if cached, err := s.cache.Get(ctx, sym); err != nil {
		s.log.Warn().Err(err).Str("symbol", sym).Msg("snapshot cache read failed")
	} else if cached != nil {
		s.log.Debug().Str("symbol", sym).Msg("snapshot cache hit")
		return cached, nil
	}

	start := time.Now()
	snaps := &models.Snapshots{Symbol: sym}
	g, gctx := errgroup.WithContext(ctx)

	required := []struct {
		dst   *models.RawSnapshot
		fetch func(context.Context, string) (models.RawSnapshot, error)
	}{
		{&snaps.Profile, s.market.Profile},
		{&snaps.Metrics, s.market.KeyMetricsTTM},
		{&snaps.Ratios, s.market.RatiosTTM},
		{&snaps.Quote, s.market.Quote},
		{&snaps.Income, s.market.IncomeStatements},
	}
	for _, q := range required {
		g.Go(func() error {
			snap, err := q.fetch(gctx, sym)
			if err != nil {
				return err
			}
			*q.dst = snap
			return nil
		})
	}

	g.Go(func() error {
		snap, err := s.market.IncomeGrowth(gctx, sym)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", sym).Msg("income growth unavailable")
			return nil
		}
		snaps.Growth = snap
		return nil
	})
	g.Go(func() error {
		snaps.Peers = s.peers(gctx, sym)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sym, err)
	}

	s.log.Info().
		Str("symbol", sym).
		Int("income_rows", len(snaps.Income)).
		Int("peers", len(snaps.Peers)).
		Dur("took", time.Since(start)).
		Msg("snapshots fetched")

	if !snaps.Profile.Empty() {
		if err := s.cache.Set(ctx, snaps); err != nil {
			s.log.Warn().Err(err).Str("symbol", sym).Msg("snapshot cache write failed")
		}
	}
	return snaps, nil
}

// peers fetches the peer list and fills missing P/E and market cap from a
// batch quote. Any failure yields an empty list.
func (s *Service) peers(ctx context.Context, sym string) models.RawSnapshot {
	list, err := s.market.Peers(ctx, sym)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", sym).Msg("peer list unavailable")
		return models.RawSnapshot{}
	}

	rows := make(models.RawSnapshot, 0, len(list))
	symbols := make([]string, 0, len(list))
	for _, row := range list {
		ps, _ := row["symbol"].(string)
		if ps == "" || strings.EqualFold(ps, sym) {
			continue
		}
		rows = append(rows, row)
		symbols = append(symbols, ps)
		if len(rows) == s.maxPeers {
			break
		}
	}
	if len(symbols) == 0 {
		return rows
	}

	quotes, err := s.market.BatchQuote(ctx, symbols)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", sym).Msg("peer quotes unavailable")
		return rows
	}
	bySymbol := make(map[string]map[string]any, len(quotes))
	for _, q := range quotes {
		if qs, ok := q["symbol"].(string); ok {
			bySymbol[strings.ToUpper(qs)] = q
		}
	}

	enriched := make(models.RawSnapshot, len(rows))
	for i, row := range rows {
		merged := make(map[string]any, len(row)+2)
		ps, _ := row["symbol"].(string)
		if q, ok := bySymbol[strings.ToUpper(ps)]; ok {
			for k, v := range q {
				merged[k] = v
			}
		}
		for k, v := range row {
			if v != nil {
				merged[k] = v
			}
		}
		enriched[i] = merged
	}
	return enriched
}
