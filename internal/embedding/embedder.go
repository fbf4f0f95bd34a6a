// Package embedding maps text to fixed-dimension vectors through an
// OpenAI-compatible embeddings endpoint.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AlexPi44/multimodal-rag-system/internal/models"
)

// Embedder generates vector embeddings. Implementations must return vectors
// of a fixed dimension matching the vector index configuration.
type Embedder interface {
	// Embed generates embeddings for a batch of texts, one vector per text
	// in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	// Dimension returns the embedding dimension.
	Dimension() int
}

// Config configures the HTTP embedding client.
type Config struct {
	BaseURL   string        `json:"base_url"`
	Model     string        `json:"model"`
	APIKey    string        `json:"api_key,omitempty"`
	Dimension int           `json:"dimension"`
	Timeout   time.Duration `json:"timeout"`
}

// DefaultConfig returns defaults matching a local text-embeddings server.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   "http://localhost:8080/v1",
		Model:     "BAAI/bge-m3",
		Dimension: 1024,
		Timeout:   30 * time.Second,
	}
}

// Client calls a /embeddings endpoint speaking the OpenAI wire format.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new embedding client.
func NewClient(config *Config, logger *logrus.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// Dimension returns the configured embedding dimension.
func (c *Client) Dimension() int {
	return c.config.Dimension
}

// Embed generates embeddings for a batch of texts.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := map[string]interface{}{
		"model": c.config.Model,
		"input": texts,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", models.ErrEmbeddingFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", models.ErrEmbeddingFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", models.ErrEmbeddingFailure, resp.StatusCode, string(body))
	}

	var response struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", models.ErrEmbeddingFailure, err)
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", models.ErrEmbeddingFailure, len(response.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range response.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", models.ErrEmbeddingFailure, d.Index)
		}
		if len(d.Embedding) != c.config.Dimension {
			return nil, fmt.Errorf("%w: dimension %d does not match configured %d", models.ErrEmbeddingFailure, len(d.Embedding), c.config.Dimension)
		}
		vectors[d.Index] = d.Embedding
	}

	c.logger.WithFields(logrus.Fields{
		"model": c.config.Model,
		"count": len(vectors),
	}).Debug("Embeddings generated")

	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
