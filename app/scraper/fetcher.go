// Package scraper fetches a careers page and extracts job postings from it
// with user-supplied CSS selectors.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"
)

// DefaultUserAgent identifies the scraper in outgoing requests.
const DefaultUserAgent = "jobsift/1.0"

// FetchError reports a failed page retrieval, either a transport failure
// or a non-2xx response.
type FetchError struct {
	URL    string
	Status int // 0 for transport failures
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves a single page over HTTP. No retries, one GET per call.
type Fetcher struct {
	UserAgent string
	client    *http.Client
}

// NewFetcher makes a Fetcher with the given request timeout and user agent.
// Empty userAgent falls back to DefaultUserAgent.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		UserAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// Fetch gets url and returns the raw body. Any status outside 2xx is an error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.UserAgent)

	log.Printf("[DEBUG] GET %s, user-agent %q", url, f.UserAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return string(body), nil
}
