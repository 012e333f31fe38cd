package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestFetcherFetch tests downloading and extracting a page end to end.
func TestFetcherFetch(t *testing.T) {
	t.Parallel()

	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`<html><head><title>Login</title></head><body><form action="/a"><input type="password"></form></body></html>`))
	}))
	defer server.Close()

	f := NewFetcher(WithUserAgent("phishguard-test"))

	signals, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if signals.Title != "Login" {
		t.Errorf("Title = %q, expected %q", signals.Title, "Login")
	}
	if signals.PasswordFieldCount != 1 {
		t.Errorf("PasswordFieldCount = %d, expected 1", signals.PasswordFieldCount)
	}
	if gotUserAgent != "phishguard-test" {
		t.Errorf("User-Agent = %q, expected the configured value", gotUserAgent)
	}
}

// TestFetcherRejectsNonHTTPSchemes tests the scheme filter.
func TestFetcherRejectsNonHTTPSchemes(t *testing.T) {
	t.Parallel()

	f := NewFetcher()

	for _, target := range []string{"ftp://example.com", "file:///etc/passwd", "chrome://settings"} {
		if _, err := f.Fetch(context.Background(), target); err == nil {
			t.Errorf("expected error for %q", target)
		}
	}
}

// TestFetcherErrorStatus tests that error statuses do not yield signals.
func TestFetcherErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher()
	if _, err := f.Fetch(context.Background(), server.URL); err == nil {
		t.Error("expected error for 404 response")
	}
}

// TestFetcherBodySizeLimit tests that oversized pages are truncated rather
// than read fully into memory.
func TestFetcherBodySizeLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>" + strings.Repeat("x", 4096) + "</body></html>"))
	}))
	defer server.Close()

	f := NewFetcher(WithMaxBodySize(64))

	signals, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals.VisibleText) > 64 {
		t.Errorf("visible text length = %d, expected the truncated body", len(signals.VisibleText))
	}
}
