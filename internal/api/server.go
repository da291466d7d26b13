package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/kjannette/valuator-backend/internal/lookup"
	"github.com/kjannette/valuator-backend/internal/market"
	"github.com/kjannette/valuator-backend/internal/models"
	"github.com/kjannette/valuator-backend/internal/narrative"
	"github.com/kjannette/valuator-backend/internal/reconcile"
	"github.com/kjannette/valuator-backend/internal/valuation"
)

const requestIDHeader = "X-Request-ID"

var tickerRegexp = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

type StockLookup interface {
	Fetch(ctx context.Context, symbol string) (*models.FinancialRecord, error)
}

type Analyzer interface {
	Enabled() bool
	Analyze(ctx context.Context, r *models.FinancialRecord) (*narrative.Analysis, error)
}

type WatchlistStore interface {
	Add(ctx context.Context, symbol, note string) (*models.WatchlistEntry, error)
	Remove(ctx context.Context, symbol string) (bool, error)
	List(ctx context.Context) ([]models.WatchlistEntry, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Stocks    StockLookup
	Analyst   Analyzer
	Watchlist WatchlistStore
	Health    map[string]HealthCheck
	Now       func() time.Time
}

type Options struct {
	Port                int
	APIKey              string
	CORSOrigin          string
	DefaultGrowthRate   float64
	DefaultDiscountRate float64
}

type Server struct {
	deps       Deps
	opts       Options
	validate   *validator.Validate
	httpServer *http.Server
	apiKey     string
	log        zerolog.Logger
}

func NewServer(deps Deps, opts Options, log zerolog.Logger) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{
		deps:     deps,
		opts:     opts,
		validate: newValidator(),
		apiKey:   opts.APIKey,
		log:      log.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()

	// Stock routes
	mux.HandleFunc("GET /v1/stocks/{symbol}", s.handleStock)
	mux.HandleFunc("GET /v1/stocks/{symbol}/valuation", s.handleValuation)
	mux.HandleFunc("GET /v1/stocks/{symbol}/checklist", s.handleChecklist)
	mux.HandleFunc("GET /v1/stocks/{symbol}/peers", s.handlePeers)
	mux.HandleFunc("POST /v1/stocks/{symbol}/analysis", s.handleAnalysis)

	// Watchlist routes
	mux.HandleFunc("GET /v1/watchlist", s.handleWatchlistList)
	mux.HandleFunc("POST /v1/watchlist", s.handleWatchlistAdd)
	mux.HandleFunc("DELETE /v1/watchlist/{symbol}", s.handleWatchlistRemove)

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	handler := corsMiddleware(s.requestIDMiddleware(s.authMiddleware(mux)), opts.CORSOrigin)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("REST API server started")
	if s.apiKey != "" {
		s.log.Info().Msg("authentication: enabled (Bearer token)")
	} else {
		s.log.Info().Msg("authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type ctxKey int

const requestIDKey ctxKey = iota

// requestIDMiddleware tags each request with an ID (the caller's, or a new
// UUID) and logs its outcome.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

		s.log.Info().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	origins := strings.Split(allowOrigin, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(next)
}

// --- validation helpers ---

type symbolParam struct {
	Symbol string `validate:"required,ticker"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
		return tickerRegexp.MatchString(fl.Field().String())
	})
	return v
}

// pathSymbol reads and validates the {symbol} path value.
func (s *Server) pathSymbol(w http.ResponseWriter, r *http.Request) (string, bool) {
	sym := lookup.NormalizeSymbol(r.PathValue("symbol"))
	if err := s.validate.Struct(symbolParam{Symbol: sym}); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid ticker symbol %q", r.PathValue("symbol")))
		return "", false
	}
	return sym, true
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeLookupError maps lookup failures onto HTTP statuses.
func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, sym string, err error) {
	var nf *reconcile.NotFoundError
	switch {
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, nf.Error())
	case errors.Is(err, lookup.ErrInvalidSymbol):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "market data request timed out")
	case errors.Is(err, market.ErrUpstream):
		s.log.Warn().Err(err).Str("request_id", requestID(r.Context())).Str("symbol", sym).Msg("upstream failure")
		writeError(w, http.StatusBadGateway, "market data provider request failed")
	default:
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Str("symbol", sym).Msg("lookup failed")
		writeError(w, http.StatusInternalServerError, "lookup failed")
	}
}

func valuationErrorStatus(err error) int {
	switch {
	case errors.Is(err, valuation.ErrDegenerate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
