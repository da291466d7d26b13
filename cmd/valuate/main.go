package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/kjannette/valuator-backend/internal/cache"
	"github.com/kjannette/valuator-backend/internal/config"
	"github.com/kjannette/valuator-backend/internal/httputil"
	"github.com/kjannette/valuator-backend/internal/logging"
	"github.com/kjannette/valuator-backend/internal/lookup"
	"github.com/kjannette/valuator-backend/internal/market"
	"github.com/kjannette/valuator-backend/internal/narrative"
	"github.com/kjannette/valuator-backend/internal/terminal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	if cfg.FMPAPIKey == "" {
		fmt.Fprintln(os.Stderr, "Error: FMP_API_KEY is required")
		os.Exit(1)
	}

	// Diagnostics go to stderr so command output stays clean.
	log := logging.NewWithWriter(os.Stderr, logLevel(cfg.LogLevel), "console")
	ctx := context.Background()

	var snapshots cache.SnapshotCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		if client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err == nil {
			defer client.Close()
			snapshots = cache.NewRedisCache(client, cfg.SnapshotCacheTTL)
		} else {
			log.Warn().Err(err).Str("component", "cache").Msg("redis unavailable, caching disabled")
		}
	}

	retry := httputil.DefaultRetry
	retry.Logger = log.With().Str("component", "retry").Logger()
	fmp := market.NewClient(cfg.FMPBaseURL, cfg.FMPAPIKey, log).WithRetry(retry)

	var gen narrative.Generator
	if g, err := narrative.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel); err == nil {
		gen = g
	} else if !errors.Is(err, narrative.ErrDisabled) {
		log.Warn().Err(err).Str("component", "narrative").Msg("gemini client failed, AI analysis disabled")
	}

	cli := terminal.NewCLI(terminal.Options{
		Stocks:              lookup.NewService(fmp, snapshots, log),
		Analyst:             narrative.NewAnalyst(gen, cfg.NarrativeLanguage, log),
		Output:              os.Stdout,
		Input:               os.Stdin,
		DefaultGrowthRate:   cfg.DefaultGrowthRate,
		DefaultDiscountRate: cfg.DefaultDiscountRate,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// logLevel keeps the CLI quiet unless debug logging was asked for.
func logLevel(configured string) string {
	if lvl, err := zerolog.ParseLevel(configured); err == nil && lvl < zerolog.InfoLevel {
		return configured
	}
	return "warn"
}
