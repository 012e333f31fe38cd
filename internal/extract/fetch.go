package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/phishguard/phishguard/internal/model"
)

// Fetcher downloads a page and extracts its signals. It is used by the
// manual check path only; the daemon path receives signals extracted inside
// the browser.
//
// Design decision: We use a struct with the http.Client rather than passing
// the client on each call because client configuration (timeouts, redirect
// policy) should be consistent, and a shared client keeps connection pooling
// working across a multi-URL check.
type Fetcher struct {
	// client is the HTTP client used for page downloads.
	client *http.Client

	// userAgent is the User-Agent header to use for requests.
	userAgent string

	// maxBodySize limits the response body size to prevent memory
	// exhaustion from oversized pages.
	maxBodySize int64

	// timeout is the per-request timeout.
	timeout time.Duration
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size in bytes.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
// Tests use this to point the fetcher at an httptest server transport.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// NewFetcher creates a Fetcher with sensible defaults.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		// Default User-Agent mimics a mainstream browser. Phishing kits
		// commonly cloak against non-browser agents and would serve a
		// decoy page to anything that announces itself as a scanner.
		userAgent:   "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0",
		maxBodySize: 5 * 1024 * 1024, // 5MB
		timeout:     30 * time.Second,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}

	return f
}

// Fetch downloads the page at the given URL and extracts its signals.
// Only http and https URLs are fetched; any other scheme is rejected before
// a request is made.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (model.PageSignals, error) {
	if !strings.HasPrefix(pageURL, "http://") && !strings.HasPrefix(pageURL, "https://") {
		return model.PageSignals{}, fmt.Errorf("unsupported URL scheme: %s", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return model.PageSignals{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return model.PageSignals{}, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Close error on read-only body is not actionable

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return model.PageSignals{}, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, pageURL)
	}

	body := io.LimitReader(resp.Body, f.maxBodySize)

	// Phishing pages aimed at non-Latin audiences still arrive in legacy
	// encodings. Decode to UTF-8 before parsing so the text sample and the
	// keyword signals see real characters, not mojibake.
	decoded, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return model.PageSignals{}, fmt.Errorf("failed to decode page body: %w", err)
	}

	return FromHTML(pageURL, decoded)
}
