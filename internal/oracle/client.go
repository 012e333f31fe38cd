package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/phishguard/phishguard/internal/model"
)

// ErrUnexpectedStatus is returned when the oracle answers with a non-success
// HTTP status. Callers treat this the same as an unreachable oracle.
var ErrUnexpectedStatus = errors.New("oracle returned unexpected status")

// maxResponseSize bounds the oracle response body. A classification response
// is a few kilobytes; anything near this limit is not a score payload.
const maxResponseSize = 1 * 1024 * 1024 // 1MB

// Classifier is the interface the coordinator depends on for scoring.
//
// Design decision: The coordinator takes an interface rather than *Client so
// tests can count and interleave classifications without a network stub.
type Classifier interface {
	// Classify submits page signals and returns the oracle's score payload.
	Classify(ctx context.Context, signals model.PageSignals) (model.ScoreResult, error)
}

// Client is the HTTP client for the scoring oracle.
type Client struct {
	// endpoint is the oracle base URL, e.g. "http://127.0.0.1:5001".
	endpoint string

	// httpClient performs the requests.
	httpClient *http.Client

	// timeout is the per-request timeout.
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// New creates an oracle client for the given base endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		timeout:  15 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}

	return c
}

// Classify submits the page signals to POST {endpoint}/predict and decodes
// the score payload. The request body is the signals record itself, so a
// URL-only record produces a URL-only classification and a full record lets
// the oracle run its structural and content models too.
func (c *Client) Classify(ctx context.Context, signals model.PageSignals) (model.ScoreResult, error) {
	body, err := json.Marshal(signals)
	if err != nil {
		return model.ScoreResult{}, fmt.Errorf("failed to encode signals: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/predict", bytes.NewReader(body))
	if err != nil {
		return model.ScoreResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.ScoreResult{}, fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Close error on read-only body is not actionable

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.ScoreResult{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var result model.ScoreResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&result); err != nil {
		return model.ScoreResult{}, fmt.Errorf("failed to decode oracle response: %w", err)
	}

	return result, nil
}

// Health probes GET {endpoint}/health. A nil return means the oracle is
// reachable and reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("oracle health probe failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Close error on read-only body is not actionable

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}
