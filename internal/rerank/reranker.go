// Package rerank re-scores fused candidates against the query with a
// cross-encoder model served over HTTP.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AlexPi44/multimodal-rag-system/internal/models"
)

// Reranker reorders search results by pairwise relevance to the query.
type Reranker interface {
	// Rerank overwrites each candidate's score with the model's own output
	// scale, sorts descending (stable) and truncates to topK. An empty
	// candidate list returns empty without calling the model.
	Rerank(ctx context.Context, query string, candidates []*models.SearchResult, topK int) ([]*models.SearchResult, error)
}

// Config configures the cross-encoder client.
type Config struct {
	Endpoint string        `json:"endpoint"`
	Model    string        `json:"model"`
	APIKey   string        `json:"api_key,omitempty"`
	Timeout  time.Duration `json:"timeout"`
}

// DefaultConfig returns defaults for a local cross-encoder server.
func DefaultConfig() *Config {
	return &Config{
		Endpoint: "http://localhost:8081/rerank",
		Model:    "cross-encoder/ms-marco-MiniLM-L-12-v2",
		Timeout:  30 * time.Second,
	}
}

// CrossEncoder scores (query, candidate) pairs with a cross-encoder model.
type CrossEncoder struct {
	config     *Config
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewCrossEncoder creates a new cross-encoder reranker.
func NewCrossEncoder(config *Config, logger *logrus.Logger) *CrossEncoder {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &CrossEncoder{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// Rerank reorders candidates by cross-encoder score. Scores are on the
// model's scale and not comparable to the fused scores they replace.
func (r *CrossEncoder) Rerank(ctx context.Context, query string, candidates []*models.SearchResult, topK int) ([]*models.SearchResult, error) {
	if len(candidates) == 0 {
		return []*models.SearchResult{}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Content
	}

	scores, err := r.scorePairs(ctx, query, texts)
	if err != nil {
		return nil, err
	}

	for i, c := range candidates {
		c.Score = scores[i]
	}

	// Stable: equal scores keep their input (fused) order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if topK < len(candidates) {
		candidates = candidates[:topK]
	}

	r.logger.WithFields(logrus.Fields{
		"model":   r.config.Model,
		"results": len(candidates),
	}).Debug("Reranking completed")

	return candidates, nil
}

// scorePairs sends (query, candidate) pairs to the model and returns one
// score per candidate in input order.
func (r *CrossEncoder) scorePairs(ctx context.Context, query string, texts []string) ([]float64, error) {
	pairs := make([][2]string, len(texts))
	for i, t := range texts {
		pairs[i] = [2]string{query, t}
	}

	reqBody := map[string]interface{}{
		"model": r.config.Model,
		"pairs": pairs,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", models.ErrRerankFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.Endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", models.ErrRerankFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.config.APIKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRerankFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", models.ErrRerankFailure, resp.StatusCode, string(body))
	}

	var response struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", models.ErrRerankFailure, err)
	}
	if len(response.Scores) != len(texts) {
		return nil, fmt.Errorf("%w: got %d scores for %d candidates", models.ErrRerankFailure, len(response.Scores), len(texts))
	}

	return response.Scores, nil
}
