// Package fetcher downloads candidate pages and extracts article content.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/jonesrussell/newsthreader/internal/domain"
)

const (
	defaultMaxBodyBytes = 10 * 1024 * 1024 // 10 MB
	defaultTimeout      = 20 * time.Second
	defaultUserAgent    = "newsthreader/1.0"
)

// FetchError is a fetch failure classified into one of the closed failure
// reasons. The gate records the reason on the outcome; it never inspects
// error text.
type FetchError struct {
	Reason domain.FailureReason
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed (%s): %v", e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Config holds fetch settings.
type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// Fetcher downloads pages over HTTP with a body size cap.
type Fetcher struct {
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64
}

// New creates a fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Fetcher{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Fetch downloads the URL and returns the raw body. Failures come back as
// *FetchError with the reason already classified.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &FetchError{Reason: domain.ReasonConnection, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Reason: classifyTransportError(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			Reason: domain.ReasonHTTPError,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	limited := io.LimitReader(resp.Body, f.maxBodyBytes)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, &FetchError{Reason: classifyTransportError(err), Err: err}
	}
	if len(body) == 0 {
		return nil, &FetchError{Reason: domain.ReasonEmptyContent, Err: errors.New("empty response body")}
	}
	return body, nil
}

// classifyTransportError maps a transport failure onto the closed reason set.
func classifyTransportError(err error) domain.FailureReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ReasonTimeout
	}
	return domain.ReasonConnection
}
