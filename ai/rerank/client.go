package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/poiesic/panelsearch/ai"
	"golang.org/x/sync/singleflight"
)

// Client implements ai.Reranker against an HTTP cross-encoder service
// exposing the common /rerank contract (query + documents in, per-index
// relevance scores out).
//
// The service readiness check runs once per process under a single-flight
// guard, so concurrent first requests trigger a single probe. A failed
// probe is retried on the next request rather than cached forever; the
// caller treats any error as a degrade-to-unranked signal.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger

	initGroup singleflight.Group
	ready     atomic.Bool
}

// NewClient creates a rerank client from the AI configuration.
func NewClient(config *ai.Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if !config.RerankEnabled() {
		return nil, ErrNotConfigured
	}

	return &Client{
		baseURL: config.RerankHost,
		model:   config.RerankModel,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		logger: slog.Default().With("component", "rerank-client"),
	}, nil
}

var _ ai.Reranker = (*Client)(nil)

// ModelName returns the configured cross-encoder model identifier.
func (c *Client) ModelName() string {
	return c.model
}

// ensureReady probes the service once under a single-flight guard.
func (c *Client) ensureReady(ctx context.Context) error {
	if c.ready.Load() {
		return nil
	}
	_, err, _ := c.initGroup.Do("init", func() (any, error) {
		if c.ready.Load() {
			return nil, nil
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("rerank service unreachable: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("rerank service unhealthy: status %d", resp.StatusCode)
		}
		c.ready.Store(true)
		return nil, nil
	})
	return err
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// ScorePairs scores each (question, passage) pair with the cross-encoder.
// Scores come back aligned with the input order; passages the service did
// not score keep a zero score.
func (c *Client) ScorePairs(ctx context.Context, question string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(rerankRequest{
		Model:     c.model,
		Query:     question,
		Documents: passages,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank request returned status %d", resp.StatusCode)
	}

	var decoded rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("rerank response malformed: %w", err)
	}

	scores := make([]float64, len(passages))
	for _, result := range decoded.Results {
		if result.Index < 0 || result.Index >= len(passages) {
			c.logger.Warn("rerank result index out of range", "index", result.Index)
			continue
		}
		scores[result.Index] = result.RelevanceScore
	}
	return scores, nil
}
