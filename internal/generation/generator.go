// Package generation produces the final grounded answer from an
// OpenAI-compatible chat-completions endpoint.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AlexPi44/multimodal-rag-system/internal/models"
)

// Generator turns a query, retrieved context and conversation history into
// an answer.
type Generator interface {
	Generate(ctx context.Context, query string, results []*models.SearchResult, history []models.ConversationMessage) (string, error)
}

// Config configures the chat-completions client.
type Config struct {
	BaseURL   string        `json:"base_url"`
	Model     string        `json:"model"`
	APIKey    string        `json:"api_key,omitempty"`
	MaxTokens int           `json:"max_tokens"`
	Timeout   time.Duration `json:"timeout"`
	// HistoryTail is how many trailing history messages get folded into
	// the prompt.
	HistoryTail int `json:"history_tail"`
}

// DefaultConfig returns reasonable defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o",
		MaxTokens:   1024,
		Timeout:     60 * time.Second,
		HistoryTail: 5,
	}
}

const systemPrompt = "You are a highly knowledgeable AI assistant with access to a comprehensive knowledge base. " +
	"Use the provided context to answer questions accurately and in-depth. Cite sources when possible. " +
	"If information is not in the context, say so clearly."

// Client calls a chat-completions endpoint.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a generation client.
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

// Generate builds the grounded prompt and calls the model.
func (c *Client) Generate(ctx context.Context, query string, results []*models.SearchResult, history []models.ConversationMessage) (string, error) {
	userPrompt := buildPrompt(query, results, history, c.config.HistoryTail)

	reqBody := map[string]interface{}{
		"model": c.config.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"max_tokens": c.config.MaxTokens,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generation returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("generation returned no choices")
	}

	return response.Choices[0].Message.Content, nil
}

// buildPrompt folds the history tail and numbered sources into one prompt.
func buildPrompt(query string, results []*models.SearchResult, history []models.ConversationMessage, tail int) string {
	if tail > 0 && len(history) > tail {
		history = history[len(history)-tail:]
	}

	var hist strings.Builder
	for _, msg := range history {
		fmt.Fprintf(&hist, "%s: %s\n", msg.Role, msg.Content)
	}

	var ctx strings.Builder
	for i, r := range results {
		fmt.Fprintf(&ctx, "[Source %d] %s\n\n", i+1, r.Content)
	}

	return fmt.Sprintf(
		"Conversation History:\n%s\nRetrieved Context:\n%s\nUser Question: %s\n\nPlease provide a detailed, accurate response based on the context above.",
		hist.String(), ctx.String(), query)
}
