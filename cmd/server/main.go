package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kjannette/valuator-backend/internal/api"
	"github.com/kjannette/valuator-backend/internal/cache"
	"github.com/kjannette/valuator-backend/internal/config"
	"github.com/kjannette/valuator-backend/internal/db"
	"github.com/kjannette/valuator-backend/internal/httputil"
	"github.com/kjannette/valuator-backend/internal/logging"
	"github.com/kjannette/valuator-backend/internal/lookup"
	"github.com/kjannette/valuator-backend/internal/market"
	"github.com/kjannette/valuator-backend/internal/narrative"
	"github.com/kjannette/valuator-backend/internal/notifications"
	"github.com/kjannette/valuator-backend/internal/repository"
	"github.com/kjannette/valuator-backend/internal/scheduler"
)

const banner = `
╔══════════════════════════════════════╗
║      Stock Valuator API v0.1         ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(log); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	cfg.Print(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health := map[string]api.HealthCheck{}

	// Database (watchlist only; the API runs without it)
	var watchlist *repository.WatchlistRepo
	pool, err := connectDB(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Str("component", "db").Msg("postgres unavailable, watchlist disabled")
	} else {
		defer func() {
			pool.Close()
			log.Info().Str("component", "db").Msg("connection pool closed")
		}()
		watchlist = repository.NewWatchlistRepo(pool)
		health["postgres"] = pool.Ping
	}

	// Snapshot cache
	var snapshots cache.SnapshotCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn().Err(err).Str("component", "cache").Msg("redis unavailable, caching disabled")
		} else {
			defer client.Close()
			snapshots = cache.NewRedisCache(client, cfg.SnapshotCacheTTL)
			health["redis"] = func(ctx context.Context) error { return pingRedis(ctx, client) }
		}
	}

	// Market data + lookups
	retry := httputil.DefaultRetry
	retry.Logger = log.With().Str("component", "retry").Logger()
	fmp := market.NewClient(cfg.FMPBaseURL, cfg.FMPAPIKey, log).WithRetry(retry)
	stocks := lookup.NewService(fmp, snapshots, log)

	// AI analysis
	var gen narrative.Generator
	if g, err := narrative.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel); err == nil {
		gen = g
	} else if !errors.Is(err, narrative.ErrDisabled) {
		log.Warn().Err(err).Str("component", "narrative").Msg("gemini client failed, AI analysis disabled")
	}
	analyst := narrative.NewAnalyst(gen, cfg.NarrativeLanguage, log)

	// Notifications
	notify := notifications.NewSender(cfg.WebhookURL, cfg.AppName, log)

	// 1. API server
	deps := api.Deps{
		Stocks:  stocks,
		Analyst: analyst,
		Health:  health,
	}
	if watchlist != nil {
		deps.Watchlist = watchlist
	}
	srv := api.NewServer(deps, api.Options{
		Port:                cfg.APIPort,
		APIKey:              cfg.APIKey,
		CORSOrigin:          cfg.CORSAllowOrigin,
		DefaultGrowthRate:   cfg.DefaultGrowthRate,
		DefaultDiscountRate: cfg.DefaultDiscountRate,
	}, log)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("component", "api").Msg("server error")
		}
	}()

	// 2. Watchlist refresher
	var refresher *scheduler.WatchlistRefresher
	if watchlist != nil && cfg.WatchlistRefreshCron != "" {
		refresher = scheduler.NewWatchlistRefresher(watchlist, stocks, notify, scheduler.RefresherConfig{
			Schedule:     cfg.WatchlistRefreshCron,
			GrowthRate:   cfg.DefaultGrowthRate,
			DiscountRate: cfg.DefaultDiscountRate,
		}, log)
		if err := refresher.Start(); err != nil {
			log.Fatal().Err(err).Str("component", "scheduler").Msg("start failed")
		}
	} else {
		log.Info().Str("component", "scheduler").Msg("skipped, watchlist storage or schedule not configured")
	}

	log.Info().Msg("all services started")

	<-ctx.Done()
	log.Info().Msg("shutting down gracefully")

	if refresher != nil {
		refresher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Str("component", "api").Msg("shutdown error")
	}
	log.Info().Msg("shutdown complete")
}

func connectDB(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	log.Info().Str("component", "db").Str("host", cfg.DBHost).Int("port", cfg.DBPort).Str("db", cfg.DBName).Msg("connecting")
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.TestConnection(pool, log); err != nil {
		pool.Close()
		return nil, err
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func pingRedis(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
