// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/AlexPi44/multimodal-rag-system/internal/embedding"
	"github.com/AlexPi44/multimodal-rag-system/internal/generation"
	"github.com/AlexPi44/multimodal-rag-system/internal/graph"
	"github.com/AlexPi44/multimodal-rag-system/internal/memory"
	"github.com/AlexPi44/multimodal-rag-system/internal/rerank"
	"github.com/AlexPi44/multimodal-rag-system/internal/vectordb/qdrant"
)

// Config aggregates all service configuration.
type Config struct {
	Server     ServerConfig
	Qdrant     qdrant.Config
	Collection string
	Memory     memory.Config
	Neo4j      graph.Config
	Embedding  embedding.Config
	Reranker   rerank.Config
	Generation generation.Config
	Search     SearchConfig
	Chunking   ChunkingConfig
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RequestTimeout bounds one ingest or query request end to end.
	RequestTimeout time.Duration
}

// SearchConfig holds the query pipeline defaults.
type SearchConfig struct {
	TopKRetrieval int
	TopKRerank    int
	Alpha         float64
	HistoryLimit  int
	BM25K1        float64
	BM25B         float64
}

// ChunkingConfig holds the ingest pipeline defaults.
type ChunkingConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// Load reads configuration from the environment with development defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8000"),
			ReadTimeout:    getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 90*time.Second),
		},
		Qdrant: qdrant.Config{
			Host:    getEnv("QDRANT_HOST", "localhost"),
			Port:    getEnvInt("QDRANT_PORT", 6333),
			APIKey:  getEnv("QDRANT_API_KEY", ""),
			Timeout: getEnvDuration("QDRANT_TIMEOUT", 30*time.Second),
		},
		Collection: getEnv("QDRANT_COLLECTION", "documents"),
		Memory: memory.Config{
			Addr:        getEnv("REDIS_HOST", "localhost") + ":" + getEnv("REDIS_PORT", "6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvInt("REDIS_DB", 0),
			TTL:         getEnvDuration("CONVERSATION_TTL", 7*24*time.Hour),
			MaxMessages: getEnvInt("CONVERSATION_MAX_MESSAGES", 0),
		},
		Neo4j: graph.Config{
			URI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
			User:     getEnv("NEO4J_USER", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", "password"),
		},
		Embedding: embedding.Config{
			BaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8080/v1"),
			Model:     getEnv("EMBEDDING_MODEL", "BAAI/bge-m3"),
			APIKey:    getEnv("EMBEDDING_API_KEY", ""),
			Dimension: getEnvInt("EMBEDDING_DIMENSION", 1024),
			Timeout:   getEnvDuration("EMBEDDING_TIMEOUT", 30*time.Second),
		},
		Reranker: rerank.Config{
			Endpoint: getEnv("RERANKER_ENDPOINT", "http://localhost:8081/rerank"),
			Model:    getEnv("RERANKER_MODEL", "cross-encoder/ms-marco-MiniLM-L-12-v2"),
			APIKey:   getEnv("RERANKER_API_KEY", ""),
			Timeout:  getEnvDuration("RERANKER_TIMEOUT", 30*time.Second),
		},
		Generation: generation.Config{
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("LLM_MODEL", "gpt-4o"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),
			Timeout:     getEnvDuration("LLM_TIMEOUT", 60*time.Second),
			HistoryTail: getEnvInt("LLM_HISTORY_TAIL", 5),
		},
		Search: SearchConfig{
			TopKRetrieval: getEnvInt("TOP_K_RETRIEVAL", 20),
			TopKRerank:    getEnvInt("TOP_K_RERANK", 5),
			Alpha:         getEnvFloat("HYBRID_ALPHA", 0.5),
			HistoryLimit:  getEnvInt("HISTORY_LIMIT", 10),
			BM25K1:        getEnvFloat("BM25_K1", 1.5),
			BM25B:         getEnvFloat("BM25_B", 0.75),
		},
		Chunking: ChunkingConfig{
			ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		},
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
