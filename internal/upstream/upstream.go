// Package upstream holds the HTTP plumbing shared by every provider client:
// a pooled transport, the uniform status error, and the single-attempt JSON
// request helper. There are no retries anywhere in this package; each
// client-facing request gets exactly one shot at the provider.
package upstream

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var transport = &http.Transport{
	MaxIdleConns:        500,
	MaxIdleConnsPerHost: 100,
	IdleConnTimeout:     120 * time.Second,
}

// NewHTTPClient returns an HTTP client on the shared pooled transport with
// the given per-request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: transport, Timeout: timeout}
}

// StatusError captures non-2xx upstream responses with status-aware context.
// URL is the redacted request URL: several providers authenticate with a key
// in the query string, and these errors end up in operator logs.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

const maxResponseBytes = 1 << 20

// redactedURL strips everything that can carry a credential before the URL
// lands in an error: the query string, fragment, and userinfo.
func redactedURL(u *url.URL) string {
	r := *u
	r.RawQuery = ""
	r.Fragment = ""
	r.User = nil
	return r.String()
}

// DoJSON performs req once and returns the raw body. Non-2xx statuses become
// a *StatusError carrying a truncated body excerpt.
func DoJSON(client *http.Client, req *http.Request) ([]byte, error) {
	res, err := client.Do(req)
	if err != nil {
		// url.Error repeats the full request URL, query included.
		var ue *url.Error
		if errors.As(err, &ue) {
			return nil, fmt.Errorf("%s %s: %w", ue.Op, redactedURL(req.URL), ue.Err)
		}
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &StatusError{
			StatusCode: res.StatusCode,
			URL:        redactedURL(req.URL),
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
