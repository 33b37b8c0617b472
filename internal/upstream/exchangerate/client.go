// Package exchangerate wraps a currency-exchange provider that keys requests
// by a path segment. The rate table is passed through untouched.
package exchangerate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Barnhirg/travel-ai-mobile-backend/internal/upstream"
)

const defaultBaseURL = "https://v6.exchangerate-api.com/v6"

// Client fetches the latest exchange-rate table.
type Client struct {
	baseURL    string
	apiKey     string
	base       string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/") }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithBaseCurrency changes the base currency of the returned table.
func WithBaseCurrency(code string) Option {
	return func(c *Client) { c.base = strings.ToUpper(strings.TrimSpace(code)) }
}

// NewClient creates an exchange-rate client with USD as base currency.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		base:       "USD",
		httpClient: upstream.NewHTTPClient(15 * time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// maskKey scrubs the API key from an outgoing error. This provider keys
// requests by a path segment, which the shared query-string redaction does
// not cover.
func (c *Client) maskKey(err error) error {
	if c.apiKey == "" || !strings.Contains(err.Error(), c.apiKey) {
		return err
	}
	var se *upstream.StatusError
	if errors.As(err, &se) {
		se.URL = strings.Replace(se.URL, "/"+c.apiKey+"/", "/redacted/", 1)
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), c.apiKey, "redacted"))
}

// Latest returns the provider's latest rate table for the base currency.
func (c *Client) Latest(ctx context.Context) (json.RawMessage, error) {
	reqURL := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, c.base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("exchangerate: create request: %w", err)
	}

	raw, err := upstream.DoJSON(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("exchangerate: request failed: %w", c.maskKey(err))
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("exchangerate: provider returned invalid JSON")
	}
	return raw, nil
}
