package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchByCity_UnwrapsEmbeddedEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/events.json", r.URL.Path)
		require.Equal(t, "Paris", r.URL.Query().Get("city"))
		require.Equal(t, "tm-key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`{"_embedded": {"events": [{"name": "Concert"}, {"name": "Match"}]}, "page": {"size": 20}}`))
	}))
	defer srv.Close()

	c := NewClient("tm-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	raw, err := c.SearchByCity(context.Background(), "Paris")
	require.NoError(t, err)
	require.JSONEq(t, `[{"name": "Concert"}, {"name": "Match"}]`, string(raw))
}

func TestSearchByCity_NoListingsIsEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Provider omits _embedded entirely for empty results.
		w.Write([]byte(`{"page": {"size": 20, "totalElements": 0}}`))
	}))
	defer srv.Close()

	c := NewClient("tm-key", WithBaseURL(srv.URL))
	raw, err := c.SearchByCity(context.Background(), "Nowhere")
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(raw))
}

func TestSearchByCity_NonSuccessStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"fault": "rate limit"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("tm-key", WithBaseURL(srv.URL))
	_, err := c.SearchByCity(context.Background(), "Paris")
	require.Error(t, err)
}

func TestSearchByCity_UpstreamErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"fault": "server error"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("SECRET-KEY-123", WithBaseURL(srv.URL))
	_, err := c.SearchByCity(context.Background(), "Paris")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "SECRET-KEY-123")
}
