package market

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/valuator-backend/internal/httputil"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", zerolog.Nop()).WithRetry(httputil.RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	})
}

func TestClient_ProfileRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profile", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Empty(t, r.URL.Query().Get("apikey"))
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		w.Write([]byte(`[{"symbol":"AAPL","price":190.12,"mktCap":2900000000000}]`))
	})

	snap, err := c.Profile(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "AAPL", snap[0]["symbol"])
	assert.Equal(t, json.Number("190.12"), snap[0]["price"])
}

func TestClient_IncomeStatementsLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/income-statement", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`[{"date":"2024-09-28","eps":6.11},{"date":"2023-09-30","eps":6.16}]`))
	})

	snap, err := c.IncomeStatements(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, "2024-09-28", snap[0]["date"])
}

func TestClient_BatchQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/batch-quote", r.URL.Path)
		assert.Equal(t, "MSFT,GOOGL", r.URL.Query().Get("symbols"))
		assert.Empty(t, r.URL.Query().Get("symbol"))
		w.Write([]byte(`[{"symbol":"MSFT","pe":35.1},{"symbol":"GOOGL","pe":22.4}]`))
	})

	snap, err := c.BatchQuote(context.Background(), []string{"MSFT", "GOOGL"})
	require.NoError(t, err)
	assert.Len(t, snap, 2)

	empty, err := c.BatchQuote(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestClient_EmptyArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	snap, err := c.Profile(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.True(t, snap.Empty())
}

func TestClient_BareObjectIsOneRow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"AAPL","pe":30}`))
	})
	snap, err := c.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "AAPL", snap[0]["symbol"])
}

func TestClient_ErrorObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message":"Limit Reach. Please upgrade your plan"}`))
	})

	_, err := c.RatiosTTM(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, QueryRatios, ue.Query)
	assert.Equal(t, "AAPL", ue.Symbol)
	assert.Contains(t, ue.Message, "Limit Reach")
}

func TestClient_NonOKStatus(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"Error Message":"Invalid API KEY."}`))
	})

	_, err := c.KeyMetricsTTM(context.Background(), "AAPL")
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusUnauthorized, ue.Status)
	assert.Equal(t, "Invalid API KEY.", ue.Message)
	assert.Equal(t, int32(1), calls.Load())
	assert.NotContains(t, err.Error(), "test-key")
}

func TestClient_ServerErrorExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Quote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_MalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol":`))
	})
	_, err := c.Profile(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestClient_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[]`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Profile(ctx, "AAPL")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrUpstream)
}
