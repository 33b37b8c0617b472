package amadeus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeProvider serves both the token endpoint and the resource endpoints,
// counting calls to each.
type fakeProvider struct {
	srv           *httptest.Server
	tokenCalls    atomic.Int64
	resourceCalls atomic.Int64
	lastAuth      atomic.Value
	resourceBody  string
	resourceCode  int
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{resourceBody: `{"data": []}`, resourceCode: http.StatusOK}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/security/oauth2/token" {
			p.tokenCalls.Add(1)
			require.NoError(t, r.ParseForm())
			require.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token": "tok-123", "token_type": "Bearer", "expires_in": 1799}`))
			return
		}
		p.resourceCalls.Add(1)
		p.lastAuth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(p.resourceCode)
		w.Write([]byte(p.resourceBody))
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func newTestClient(p *fakeProvider, opts ...Option) *Client {
	base := []Option{WithBaseURL(p.srv.URL), WithPacing(1000, 1000)}
	return NewClient("key", "secret", append(base, opts...)...)
}

func TestAlwaysFetch_ReauthenticatesPerCall(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(p)

	for i := 0; i < 3; i++ {
		_, err := c.FlightOffers(context.Background(), "LAX", "JFK", "2025-12-01")
		require.NoError(t, err)
	}

	require.Equal(t, int64(3), p.tokenCalls.Load())
	require.Equal(t, int64(3), p.resourceCalls.Load())
	require.Equal(t, "Bearer tok-123", p.lastAuth.Load())
}

func TestCachedTokenSource_ReusesTokenUntilExpiry(t *testing.T) {
	p := newFakeProvider(t)
	src := NewCached(NewAlwaysFetch(p.srv.URL+"/v1/security/oauth2/token", "key", "secret", p.srv.Client()))

	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return current }

	c := newTestClient(p, WithTokenSource(src))

	for i := 0; i < 3; i++ {
		_, err := c.HotelsByCity(context.Background(), "PAR")
		require.NoError(t, err)
	}
	require.Equal(t, int64(1), p.tokenCalls.Load())

	// Past the cached lifetime: the next call re-authenticates once.
	current = current.Add(time.Hour)
	_, err := c.HotelsByCity(context.Background(), "PAR")
	require.NoError(t, err)
	require.Equal(t, int64(2), p.tokenCalls.Load())
}

func TestFlightOffers_SendsSearchParams(t *testing.T) {
	p := newFakeProvider(t)
	var gotQuery atomic.Value
	p.srv.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/security/oauth2/token" {
			w.Write([]byte(`{"access_token": "tok", "expires_in": 1799}`))
			return
		}
		gotQuery.Store(r.URL.Query().Encode())
		w.Write([]byte(`{"data": []}`))
	})

	c := newTestClient(p)
	_, err := c.FlightOffers(context.Background(), "LAX", "JFK", "2025-12-01")
	require.NoError(t, err)

	q := gotQuery.Load().(string)
	require.Contains(t, q, "originLocationCode=LAX")
	require.Contains(t, q, "destinationLocationCode=JFK")
	require.Contains(t, q, "departureDate=2025-12-01")
}

func TestClient_UpstreamErrorSurfaces(t *testing.T) {
	p := newFakeProvider(t)
	p.resourceCode = http.StatusBadGateway
	p.resourceBody = `{"errors": [{"detail": "down"}]}`

	c := newTestClient(p)
	_, err := c.HotelsByGeocode(context.Background(), "48.85", "2.35")
	require.Error(t, err)
}

func TestCarRentals_BuildsTransferSearch(t *testing.T) {
	p := newFakeProvider(t)
	var gotBody atomic.Value
	p.srv.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/security/oauth2/token" {
			w.Write([]byte(`{"access_token": "tok", "expires_in": 1799}`))
			return
		}
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotBody.Store(body)
		w.Write([]byte(`{"data": []}`))
	})

	c := newTestClient(p)
	_, err := c.CarRentals(context.Background(), CarCriteria{
		CityCode:  "CDG",
		StartDate: "2025-12-01",
		EndDate:   "2025-12-05",
	})
	require.NoError(t, err)

	body := gotBody.Load().(map[string]string)
	require.Equal(t, "CDG", body["startLocationCode"])
	require.Equal(t, "2025-12-01T10:00:00", body["startDateTime"])
	require.Equal(t, "2025-12-05T10:00:00", body["endDateTime"])
}
