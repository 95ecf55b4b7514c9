// Package judge provides the HTTP client for the semantic judge service,
// which decides whether a fetched page covers the same event as a seed story.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonesrussell/newsthreader/internal/domain"
)

const defaultTimeout = 30 * time.Second

// ErrUnavailable indicates the judge service is unreachable or failing.
var ErrUnavailable = errors.New("judge service unavailable")

// Config holds judge service connection settings.
type Config struct {
	URL     string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// Client is an HTTP client for the semantic judge service.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new judge client. Returns nil when no URL is
// configured; a nil client means the judge stage is disabled and callers
// accept candidates that pass the relevance gate.
func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// judgeRequest is the request body for POST /judge.
type judgeRequest struct {
	Model          string `json:"model,omitempty"`
	SeedHeadline   string `json:"seed_headline"`
	SeedSummary    string `json:"seed_summary"`
	CandidateTitle string `json:"candidate_title"`
	CandidateText  string `json:"candidate_text"`
}

// Judge asks the service whether the candidate covers the seed's event.
func (c *Client) Judge(ctx context.Context, seed *domain.SeedStory, title, text string) (*domain.JudgeVerdict, error) {
	body, err := json.Marshal(&judgeRequest{
		Model:          c.cfg.Model,
		SeedHeadline:   seed.Headline,
		SeedSummary:    seed.Summary,
		CandidateTitle: title,
		CandidateText:  text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/judge", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var verdict domain.JudgeVerdict
	if decodeErr := json.NewDecoder(resp.Body).Decode(&verdict); decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	return &verdict, nil
}

// Health checks if the judge service is reachable.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}
