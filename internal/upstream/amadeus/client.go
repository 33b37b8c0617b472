// Package amadeus wraps the travel provider behind /flights, /hotels and
// /cars. Every resource call is a token-then-call pair: acquire a bearer
// token from the TokenSource, then issue the resource request with it.
package amadeus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Barnhirg/travel-ai-mobile-backend/internal/upstream"
)

const defaultBaseURL = "https://test.api.amadeus.com"

// Client issues authenticated calls against the travel provider.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client

	// The provider enforces a transactions-per-second cap per key; pacer
	// smooths outbound calls under it. One wait covers the token-then-call
	// pair.
	pacer *rate.Limiter

	cacheTokens bool
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/") }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithTokenSource replaces the token strategy. The default re-authenticates
// on every call.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) { c.tokens = src }
}

// WithCachedTokens reuses each fetched token until shortly before it
// expires instead of re-authenticating per call.
func WithCachedTokens() Option {
	return func(c *Client) { c.cacheTokens = true }
}

// WithPacing overrides the outbound transactions-per-second cap.
func WithPacing(tps float64, burst int) Option {
	return func(c *Client) { c.pacer = rate.NewLimiter(rate.Limit(tps), burst) }
}

// NewClient creates a travel client with the default always-fetch token
// strategy and the provider's documented 10 TPS cap.
func NewClient(apiKey, apiSecret string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: upstream.NewHTTPClient(15 * time.Second),
		pacer:      rate.NewLimiter(rate.Limit(10), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		c.tokens = NewAlwaysFetch(c.baseURL+"/v1/security/oauth2/token", apiKey, apiSecret, c.httpClient)
		if c.cacheTokens {
			c.tokens = NewCached(c.tokens)
		}
	}
	return c
}

// FlightOffers searches one-way flight offers for a date.
func (c *Client) FlightOffers(ctx context.Context, origin, destination, date string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("originLocationCode", origin)
	q.Set("destinationLocationCode", destination)
	q.Set("departureDate", date)
	q.Set("adults", "1")
	q.Set("max", "20")

	return c.get(ctx, "/v2/shopping/flight-offers", q)
}

// HotelsByCity lists hotels for an IATA city code.
func (c *Client) HotelsByCity(ctx context.Context, cityCode string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("cityCode", cityCode)

	return c.get(ctx, "/v1/reference-data/locations/hotels/by-city", q)
}

// HotelsByGeocode lists hotels around a coordinate pair.
func (c *Client) HotelsByGeocode(ctx context.Context, lat, lon string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("latitude", lat)
	q.Set("longitude", lon)

	return c.get(ctx, "/v1/reference-data/locations/hotels/by-geocode", q)
}

// CarCriteria describes a car-rental search: pickup location plus the rental
// period. Exactly one of CityCode or Lat/Lon must be set; the handler
// validates that before calling.
type CarCriteria struct {
	CityCode  string
	Lat, Lon  string
	StartDate string
	EndDate   string
}

// CarRentals searches transfer/rental offers for the criteria.
func (c *Client) CarRentals(ctx context.Context, crit CarCriteria) (json.RawMessage, error) {
	body := map[string]string{
		"startDateTime": crit.StartDate + "T10:00:00",
		"endDateTime":   crit.EndDate + "T10:00:00",
		"transferType":  "HOURLY",
	}
	if crit.CityCode != "" {
		body["startLocationCode"] = crit.CityCode
	} else {
		body["startGeoCode"] = crit.Lat + "," + crit.Lon
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("amadeus: marshal transfer search: %w", err)
	}
	return c.post(ctx, "/v1/shopping/transfer-offers", payload)
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("amadeus: create request: %w", err)
	}
	return c.do(ctx, req)
}

func (c *Client) post(ctx context.Context, path string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("amadeus: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *http.Request) (json.RawMessage, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, fmt.Errorf("amadeus: pacing wait: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	raw, err := upstream.DoJSON(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("amadeus: request failed: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("amadeus: provider returned invalid JSON")
	}
	return raw, nil
}
