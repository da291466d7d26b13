package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kjannette/valuator-backend/internal/httputil"
	"github.com/kjannette/valuator-backend/internal/models"
)

const DefaultBaseURL = "https://financialmodelingprep.com/stable"

// Query names one upstream endpoint.
type Query string

const (
	QueryProfile    Query = "profile"
	QueryMetrics    Query = "key-metrics-ttm"
	QueryRatios     Query = "ratios-ttm"
	QueryQuote      Query = "quote"
	QueryIncome     Query = "income-statement"
	QueryGrowth     Query = "income-statement-growth"
	QueryPeers      Query = "stock-peers"
	QueryBatchQuote Query = "batch-quote"
)

const (
	IncomePeriods    = 5
	maxErrorBodySize = 512
)

var ErrUpstream = errors.New("upstream request failed")

// UpstreamError reports a market-data query that did not succeed.
type UpstreamError struct {
	Query   Query
	Symbol  string
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Query, e.Symbol)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Client talks to the Financial Modeling Prep REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        zerolog.Logger
}

func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	log = log.With().Str("component", "fmp").Logger()
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    5 * time.Second,
			Logger:      log,
		},
		log: log,
	}
}

// WithRetry overrides the retry policy; tests use it to avoid sleeping.
func (c *Client) WithRetry(cfg httputil.RetryConfig) *Client {
	cfg.Logger = c.log
	c.retry = cfg
	return c
}

func (c *Client) Profile(ctx context.Context, symbol string) (models.RawSnapshot, error) {
	return c.get(ctx, QueryProfile, symbol, nil)
}

func (c *Client) KeyMetricsTTM(ctx context.Context, symbol string) (models.RawSnapshot, error) {
	return c.get(ctx, QueryMetrics, symbol, nil)
}

func (c *Client) RatiosTTM(ctx context.Context, symbol string) (models.RawSnapshot, error) {
	return c.get(ctx, QueryRatios, symbol, nil)
}

func (c *Client) Quote(ctx context.Context, symbol string) (models.RawSnapshot, error) {
	return c.get(ctx, QueryQuote, symbol, nil)
}

// IncomeStatements returns the most recent annual statements, newest first.
func (c *Client) IncomeStatements(ctx context.Context, symbol string) (models.RawSnapshot, error) {
	return c.get(ctx, QueryIncome, symbol, url.Values{"limit": {strconv.Itoa(IncomePeriods)}})
}

func (c *Client) IncomeGrowth(ctx context.Context, symbol string) (models.RawSnapshot, error) {
	return c.get(ctx, QueryGrowth, symbol, url.Values{"limit": {"1"}})
}

func (c *Client) Peers(ctx context.Context, symbol string) (models.RawSnapshot, error) {
	return c.get(ctx, QueryPeers, symbol, nil)
}

// BatchQuote fetches quotes for several tickers in one request.
func (c *Client) BatchQuote(ctx context.Context, symbols []string) (models.RawSnapshot, error) {
	if len(symbols) == 0 {
		return models.RawSnapshot{}, nil
	}
	joined := strings.Join(symbols, ",")
	return c.get(ctx, QueryBatchQuote, joined, url.Values{"symbols": {joined}})
}

func (c *Client) get(ctx context.Context, q Query, symbol string, params url.Values) (models.RawSnapshot, error) {
	if params == nil {
		params = url.Values{}
	}
	if q != QueryBatchQuote {
		params.Set("symbol", symbol)
	}
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, q, params.Encode())

	start := time.Now()
	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("apikey", c.apiKey)
		return req, nil
	})
	if err != nil {
		return nil, &UpstreamError{Query: q, Symbol: symbol, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &UpstreamError{
			Query:   q,
			Symbol:  symbol,
			Status:  resp.StatusCode,
			Message: errorMessage(body),
		}
	}

	snap, err := decodeSnapshot(resp.Body)
	if err != nil {
		var ue *UpstreamError
		if errors.As(err, &ue) {
			ue.Query, ue.Symbol, ue.Status = q, symbol, resp.StatusCode
			return nil, ue
		}
		return nil, &UpstreamError{Query: q, Symbol: symbol, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}

	c.log.Debug().
		Str("query", string(q)).
		Str("symbol", symbol).
		Int("rows", len(snap)).
		Dur("took", time.Since(start)).
		Msg("snapshot fetched")
	return snap, nil
}

// decodeSnapshot accepts the provider's usual JSON array, a bare object
// (treated as a single row) or an error object.
func decodeSnapshot(r io.Reader) (models.RawSnapshot, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return models.RawSnapshot{}, nil
		}
		return nil, err
	}

	switch v := body.(type) {
	case nil:
		return models.RawSnapshot{}, nil
	case []any:
		out := make(models.RawSnapshot, 0, len(v))
		for _, item := range v {
			if row, ok := item.(map[string]any); ok {
				out = append(out, row)
			}
		}
		return out, nil
	case map[string]any:
		if msg, ok := providerError(v); ok {
			return nil, &UpstreamError{Message: msg}
		}
		return models.RawSnapshot{v}, nil
	}
	return nil, fmt.Errorf("unexpected payload type %T", body)
}

func providerError(obj map[string]any) (string, bool) {
	for _, key := range []string{"Error Message", "error", "message"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func errorMessage(body []byte) string {
	var obj map[string]any
	if json.Unmarshal(body, &obj) == nil {
		if msg, ok := providerError(obj); ok {
			return msg
		}
	}
	return strings.TrimSpace(string(body))
}
