// Package events wraps a Ticketmaster Discovery-style events search. The
// provider nests results under _embedded.events; callers get the unwrapped
// list.
package events

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

const defaultBaseURL = "https://app.ticketmaster.com/discovery/v2"

// Client searches events by city.
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

// NewClient creates an events client.
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

type searchResponse struct {
	Embedded struct {
		Events json.RawMessage `json:"events"`
	} `json:"_embedded"`
}

// SearchByCity returns the events list for a city. A city with no listings
// comes back as an empty list, not an error.
func (c *Client) SearchByCity(ctx context.Context, city string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("city", city)
	q.Set("apikey", c.apiKey)
	q.Set("size", "20")

	reqURL := c.baseURL + "/events.json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("events: create request: %w", err)
	}

	raw, err := upstream.DoJSON(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("events: request failed: %w", err)
	}

	var payload searchResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("events: decode response: %w", err)
	}
	if len(payload.Embedded.Events) == 0 {
		// The provider omits _embedded entirely when nothing matches.
		return json.RawMessage("[]"), nil
	}
	return payload.Embedded.Events, nil
}
