package qdrant

import (
	"fmt"
	"time"
)

// Config configures the Qdrant REST client.
type Config struct {
	Host    string        `json:"host"`
	Port    int           `json:"port"`
	UseTLS  bool          `json:"use_tls"`
	APIKey  string        `json:"api_key,omitempty"`
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns defaults for a local Qdrant instance.
func DefaultConfig() *Config {
	return &Config{
		Host:    "localhost",
		Port:    6333,
		Timeout: 30 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// BaseURL returns the HTTP base URL for the Qdrant REST API.
func (c *Config) BaseURL() string {
	scheme := "http"
	if c.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

// Distance is a Qdrant distance metric.
type Distance string

const (
	DistanceCosine    Distance = "Cosine"
	DistanceEuclidean Distance = "Euclid"
	DistanceDot       Distance = "Dot"
)

// CollectionConfig describes a vector collection.
type CollectionConfig struct {
	Name       string   `json:"name"`
	VectorSize int      `json:"vector_size"`
	Distance   Distance `json:"distance"`
}

// Validate checks the collection configuration.
func (c *CollectionConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("collection name is required")
	}
	if c.VectorSize < 1 {
		return fmt.Errorf("vector_size must be at least 1, got %d", c.VectorSize)
	}
	if c.Distance == "" {
		c.Distance = DistanceCosine
	}
	return nil
}
