package exchangerate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLatest_PassesThroughRateTable(t *testing.T) {
	payload := `{"base_code": "USD", "conversion_rates": {"EUR": 0.92, "GBP": 0.79}}`
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// The key travels in the path, not a header.
		require.Equal(t, "/fx-test/latest/USD", r.URL.Path)
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewClient("fx-test", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))

	// Two identical requests are two provider calls; nothing is cached.
	for i := 0; i < 2; i++ {
		raw, err := c.Latest(context.Background())
		require.NoError(t, err)
		require.Equal(t, payload, string(raw))
	}
	require.Equal(t, int64(2), calls.Load())
}

func TestLatest_CustomBaseCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/fx-test/latest/EUR", r.URL.Path)
		w.Write([]byte(`{"base_code": "EUR"}`))
	}))
	defer srv.Close()

	c := NewClient("fx-test", WithBaseURL(srv.URL), WithBaseCurrency("eur"))
	_, err := c.Latest(context.Background())
	require.NoError(t, err)
}

func TestLatest_NonSuccessStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"result": "error"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("fx-test", WithBaseURL(srv.URL))
	_, err := c.Latest(context.Background())
	require.Error(t, err)
}

func TestLatest_UpstreamErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"result": "error"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	// The key is a path segment, so it needs masking beyond the shared
	// query-string redaction.
	c := NewClient("SECRET-KEY-123", WithBaseURL(srv.URL))
	_, err := c.Latest(context.Background())
	require.Error(t, err)
	require.NotContains(t, err.Error(), "SECRET-KEY-123")
	require.Contains(t, err.Error(), "/redacted/latest/USD")
}

func TestLatest_TransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := NewClient("SECRET-KEY-123", WithBaseURL(addr))
	_, err := c.Latest(context.Background())
	require.Error(t, err)
	require.NotContains(t, err.Error(), "SECRET-KEY-123")
}
