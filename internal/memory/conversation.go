// Package memory stores bounded, TTL-backed conversation history keyed by
// (user, session).
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/AlexPi44/multimodal-rag-system/internal/models"
)

// ConversationStore keeps per-(user, session) message sequences. Sequences
// are append-only; eviction removes a whole sequence at once when its TTL
// lapses, after which it behaves as empty.
type ConversationStore interface {
	// Append adds a message to the sequence and refreshes its TTL.
	Append(ctx context.Context, userID, sessionID string, msg models.ConversationMessage) error
	// History returns the last limit messages in chronological order. A
	// limit larger than the stored count returns everything stored.
	History(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationMessage, error)
}

// Config configures the redis-backed store.
type Config struct {
	Addr     string        `json:"addr"`
	Password string        `json:"password,omitempty"`
	DB       int           `json:"db"`
	TTL      time.Duration `json:"ttl"`
	// MaxMessages caps a sequence's length; zero means uncapped.
	MaxMessages int `json:"max_messages"`
}

// DefaultConfig returns defaults matching a local redis with a 7-day
// rolling expiry.
func DefaultConfig() *Config {
	return &Config{
		Addr: "localhost:6379",
		TTL:  7 * 24 * time.Hour,
	}
}

// RedisStore implements ConversationStore on redis lists.
type RedisStore struct {
	client *redis.Client
	config *Config
	logger *logrus.Logger
}

// NewRedisStore creates a redis-backed conversation store.
func NewRedisStore(config *Config, logger *logrus.Logger) *RedisStore {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		}),
		config: config,
		logger: logger,
	}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func conversationKey(userID, sessionID string) string {
	return fmt.Sprintf("conversation:%s:%s", userID, sessionID)
}

// Append pushes a message and refreshes the sequence TTL.
func (s *RedisStore) Append(ctx context.Context, userID, sessionID string, msg models.ConversationMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := conversationKey(userID, sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.config.MaxMessages > 0 {
		pipe.LTrim(ctx, key, int64(-s.config.MaxMessages), -1)
	}
	pipe.Expire(ctx, key, s.config.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": sessionID,
		"role":       msg.Role,
	}).Debug("Conversation message appended")

	return nil
}

// History returns the last limit messages in chronological order. An
// expired or unknown sequence is empty, not an error.
func (s *RedisStore) History(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationMessage, error) {
	if limit <= 0 {
		return nil, nil
	}

	key := conversationKey(userID, sessionID)
	raw, err := s.client.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	messages := make([]models.ConversationMessage, 0, len(raw))
	for _, item := range raw {
		var msg models.ConversationMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
