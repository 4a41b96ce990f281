// Package fetcher downloads candidate pages and reduces them to readable text.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/aitools-scraper/pkg/config"
	pkgerrors "github.com/angelmondragon/aitools-scraper/pkg/errors"
	"github.com/angelmondragon/aitools-scraper/pkg/logger"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxBytes = 5 << 20
)

// FetchError reports a page that could not be turned into text. StatusCode is
// zero for network failures.
type FetchError struct {
	URL        string
	Reason     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Reason, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Extractor turns an HTML document into plain text.
type Extractor interface {
	Extract(body io.Reader, pageURL *url.URL) (string, error)
}

// Options configures a Fetcher. Zero values use the package defaults.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64
	Extractor Extractor
	Client    *http.Client
}

// Fetcher performs one GET per candidate URL.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	extractor Extractor
	logg      *logger.Logger
}

func New(opts Options, logg *logger.Logger) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	extractor := opts.Extractor
	if extractor == nil {
		extractor = StripExtractor{}
	}
	return &Fetcher{
		client:    client,
		userAgent: opts.UserAgent,
		maxBytes:  maxBytes,
		extractor: extractor,
		logg:      logg,
	}
}

// NewFromConfig wires the extractor named by cfg.Extractor.
func NewFromConfig(cfg config.FetchConfig, logg *logger.Logger) (*Fetcher, error) {
	extractor, err := ExtractorByName(cfg.Extractor)
	if err != nil {
		return nil, err
	}
	return New(Options{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
		MaxBytes:  cfg.MaxBytes,
		Extractor: extractor,
	}, logg), nil
}

// ExtractorByName resolves "strip" (default) or "readability".
func ExtractorByName(name string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "strip":
		return StripExtractor{}, nil
	case "readability":
		return ReadabilityExtractor{}, nil
	}
	return nil, fmt.Errorf("unknown extractor %q", name)
}

// Fetch returns the readable text of rawURL. Every failure is a *FetchError
// wrapped with CodeFetch.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Host == "" {
		return "", fetchErr(&FetchError{URL: rawURL, Reason: "invalid url", Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fetchErr(&FetchError{URL: rawURL, Reason: "build request", Err: err})
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fetchErr(&FetchError{URL: rawURL, Reason: "request failed", Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fetchErr(&FetchError{URL: rawURL, Reason: "unexpected status", StatusCode: resp.StatusCode})
	}

	text, err := f.extractor.Extract(io.LimitReader(resp.Body, f.maxBytes), pageURL)
	if err != nil {
		return "", fetchErr(&FetchError{URL: rawURL, Reason: "extract text", Err: err})
	}

	if f.logg != nil {
		f.logg.Debug(f.logg.WithStage(ctx, "fetch"), fmt.Sprintf("fetched %d chars from %s", len(text), rawURL))
	}
	return text, nil
}

func fetchErr(fe *FetchError) error {
	return pkgerrors.Wrap(pkgerrors.CodeFetch, fe, fe.Reason).WithDetails(map[string]any{
		"url":    fe.URL,
		"status": fe.StatusCode,
	})
}
