package crawler

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// FetchResult is the outcome of one page fetch. It is transient: the
// Spider consumes it and discards it before the next dequeue.
type FetchResult struct {
	// FinalURL is the normalized URL after redirects.
	FinalURL string

	// StatusCode is the final HTTP status.
	StatusCode int

	// ContentType is the raw Content-Type response header.
	ContentType string

	// Body holds the response body. It is only populated for
	// successful HTML responses; other content types are not read.
	Body []byte
}

// IsHTML reports whether the response declared an HTML content type.
// The match is a case-insensitive substring check so parameterized
// values like "text/html; charset=utf-8" are recognized.
func (r *FetchResult) IsHTML() bool {
	ct := strings.ToLower(r.ContentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

// FetchError is a transport-level fetch failure (DNS, connect, timeout).
// It is non-fatal to the crawl: the task is abandoned and the crawl
// continues. HTTP error statuses are not FetchErrors; they come back as
// a FetchResult so the caller can count and log them.
type FetchError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return "fetch " + e.URL + ": " + e.Err.Error()
}

// Unwrap returns the underlying transport error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher performs bounded HTTP GETs for the Spider.
//
// Design decision: We require an external *http.Client because:
//  1. The timeout is configuration, not crawler logic
//  2. The client's connection pool is safely shared across requests
//  3. Tests can inject httptest clients
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	headers     map[string]string
	cookie      string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent sets the User-Agent header for all requests.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize caps how many response body bytes are read.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithHeaders sets extra request headers from a site profile.
func WithHeaders(h map[string]string) FetcherOption {
	return func(f *Fetcher) {
		f.headers = h
	}
}

// WithCookie sets a Cookie header from a site profile.
func WithCookie(cookie string) FetcherOption {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// NewFetcher creates a Fetcher around the given client.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:      client,
		userAgent:   "sitesnap/1.0 (+https://github.com/sitesnap/sitesnap)",
		maxBodySize: 5 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// MaxBodySize returns the configured body read limit.
func (f *Fetcher) MaxBodySize() int64 {
	return f.maxBodySize
}

// Do issues a GET and returns the raw response with its body unread.
// Redirects are followed by the client; the response carries the final
// URL. The caller owns closing the body. Used directly by the image
// downloader so bodies can stream to disk.
func (f *Fetcher) Do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	return resp, nil
}

// Fetch issues one GET for a page and classifies the result.
// The body is read (up to the size limit) only for successful HTML
// responses; everything else is reported by status and content type.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	resp, err := f.Do(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result := &FetchResult{
		FinalURL:    NormalizeURL(resp.Request.URL.String()),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}

	if resp.StatusCode < 400 && result.IsHTML() {
		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
		if err != nil {
			return nil, &FetchError{URL: rawURL, Err: err}
		}
		result.Body = body
	}

	return result, nil
}
