// Package weather wraps an OpenWeatherMap-style current-conditions endpoint.
// The provider payload is opaque to us and passed through untouched.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Barnhirg/travel-ai-mobile-backend/internal/upstream"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Client fetches current weather by city name.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/") }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a weather client. The key is attached as a query
// parameter, which is how this provider authenticates.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: upstream.NewHTTPClient(15 * time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentByCity returns the provider's current-weather payload for a city.
func (c *Client) CurrentByCity(ctx context.Context, city string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	reqURL := c.baseURL + "/weather?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("weather: create request: %w", err)
	}

	raw, err := upstream.DoJSON(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("weather: request failed: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("weather: provider returned invalid JSON")
	}
	return raw, nil
}
