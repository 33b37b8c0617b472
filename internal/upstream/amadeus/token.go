package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TokenSource produces a bearer token for one resource call. How often the
// provider actually sees a token request is the strategy's business:
// AlwaysFetch re-authenticates on every call, CachedTokenSource reuses a
// token until shortly before it expires.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// clientCredentials performs the OAuth client-credentials grant against the
// provider's token endpoint on every Token call.
type clientCredentials struct {
	tokenURL   string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewAlwaysFetch returns a TokenSource that exchanges credentials on every
// call. This trades latency for simplicity: no shared token state, nothing
// to invalidate.
func NewAlwaysFetch(tokenURL, apiKey, apiSecret string, httpClient *http.Client) TokenSource {
	return &clientCredentials{
		tokenURL:   tokenURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: httpClient,
	}
}

func (s *clientCredentials) Token(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.apiKey)
	form.Set("client_secret", s.apiSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("amadeus: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("amadeus: token request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("amadeus: token endpoint returned %d", res.StatusCode)
	}

	var payload tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("amadeus: decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("amadeus: token response missing access_token")
	}
	return payload.AccessToken, nil
}

// CachedTokenSource wraps another TokenSource and reuses its token until
// shortly before expiry. The provider issues 30-minute tokens; the cache
// assumes a shorter lifetime so a clock disagreement never hands out a dead
// token.
type CachedTokenSource struct {
	src TokenSource

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	now func() time.Time
}

// Refreshing a little early keeps a token from dying mid-request.
const expirySkew = 30 * time.Second

const defaultTokenTTL = 25 * time.Minute

// NewCached wraps src with expiry-aware caching.
func NewCached(src TokenSource) *CachedTokenSource {
	return &CachedTokenSource{src: src, now: time.Now}
}

func (c *CachedTokenSource) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt.Add(-expirySkew)) {
		return c.token, nil
	}

	token, err := c.src.Token(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiresAt = c.now().Add(defaultTokenTTL)
	return token, nil
}
