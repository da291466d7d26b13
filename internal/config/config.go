package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Config struct {
	// Secrets (from .env)
	FMPAPIKey       string
	GeminiAPIKey    string
	WebhookURL      string
	AppName         string
	APIKey          string
	CORSAllowOrigin string

	// Upstreams
	FMPBaseURL        string
	GeminiModel       string
	NarrativeLanguage string

	// Server
	APIPort  int
	LogLevel string
	// LogFormat is "json" or "console".
	LogFormat string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Snapshot cache
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	SnapshotCacheTTL time.Duration

	// Watchlist refresh
	WatchlistRefreshCron string

	// Valuation defaults
	DefaultGrowthRate   float64
	DefaultDiscountRate float64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Secrets
		FMPAPIKey:       envStr("FMP_API_KEY", ""),
		GeminiAPIKey:    envStr("GEMINI_API_KEY", ""),
		WebhookURL:      envStr("WEBHOOK_URL", ""),
		AppName:         envStr("APP_NAME", "Valuator"),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		// Upstreams
		FMPBaseURL:        envStr("FMP_BASE_URL", "https://financialmodelingprep.com/stable"),
		GeminiModel:       envStr("GEMINI_MODEL", "gemini-2.5-flash"),
		NarrativeLanguage: envStr("NARRATIVE_LANGUAGE", "English"),

		// Server
		APIPort:   envInt("API_PORT", 8080),
		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "json"),

		// Database
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "valuator"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// Cache
		RedisAddr:        envStr("REDIS_ADDR", ""),
		RedisPassword:    envStr("REDIS_PASSWORD", ""),
		RedisDB:          envInt("REDIS_DB", 0),
		SnapshotCacheTTL: envDuration("SNAPSHOT_CACHE_TTL", 15*time.Minute),

		WatchlistRefreshCron: envStr("WATCHLIST_REFRESH_CRON", "0 22 * * 1-5"),

		DefaultGrowthRate:   envFloat("DEFAULT_GROWTH_RATE", 15),
		DefaultDiscountRate: envFloat("DEFAULT_DISCOUNT_RATE", 15),
	}

	return cfg, nil
}

// Validate returns an error for settings the server cannot run without and
// logs a warning for optional features that are switched off.
func (c *Config) Validate(log zerolog.Logger) error {
	var errs []string

	if c.FMPAPIKey == "" {
		errs = append(errs, "FMP_API_KEY is required")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Sprintf("API_PORT %d is out of range", c.APIPort))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	if c.SnapshotCacheTTL < 0 {
		errs = append(errs, "SNAPSHOT_CACHE_TTL must not be negative")
	}
	if c.WatchlistRefreshCron != "" {
		if _, err := cron.ParseStandard(c.WatchlistRefreshCron); err != nil {
			errs = append(errs, fmt.Sprintf("WATCHLIST_REFRESH_CRON is invalid: %v", err))
		}
	}

	for _, r := range []struct {
		key string
		val float64
	}{
		{"DEFAULT_GROWTH_RATE", c.DefaultGrowthRate},
		{"DEFAULT_DISCOUNT_RATE", c.DefaultDiscountRate},
	} {
		if math.IsNaN(r.val) || math.IsInf(r.val, 0) || r.val <= -100 {
			errs = append(errs, fmt.Sprintf("%s must be a finite percentage above -100, got %v", r.key, r.val))
		}
	}

	if c.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set, AI analysis is disabled")
	}
	if c.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR not set, upstream snapshots will not be cached")
	}
	if c.WebhookURL == "" {
		log.Warn().Msg("WEBHOOK_URL not set, verdict alerts are logged only")
	}
	if c.APIKey == "" {
		log.Warn().Msg("API_KEY not set, REST API has no authentication")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print(log zerolog.Logger) {
	log.Info().
		Str("app", c.AppName).
		Int("api_port", c.APIPort).
		Str("fmp_base_url", c.FMPBaseURL).
		Str("fmp_api_key", boolLabel(c.FMPAPIKey != "", "configured", "not set")).
		Str("gemini_model", c.GeminiModel).
		Str("gemini_api_key", boolLabel(c.GeminiAPIKey != "", "configured", "not set")).
		Str("narrative_language", c.NarrativeLanguage).
		Str("db", fmt.Sprintf("%s:%d/%s", c.DBHost, c.DBPort, c.DBName)).
		Str("redis", boolLabel(c.RedisAddr != "", c.RedisAddr, "disabled")).
		Dur("snapshot_cache_ttl", c.SnapshotCacheTTL).
		Str("watchlist_refresh_cron", boolLabel(c.WatchlistRefreshCron != "", c.WatchlistRefreshCron, "disabled")).
		Float64("default_growth_rate", c.DefaultGrowthRate).
		Float64("default_discount_rate", c.DefaultDiscountRate).
		Msg("configuration loaded")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
