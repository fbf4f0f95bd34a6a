// Package graph mirrors document metadata into Neo4j for later
// relationship queries. The retrieval pipeline never depends on it to
// answer a query; failures here are logged, not propagated.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/AlexPi44/multimodal-rag-system/internal/models"
)

// Store records documents and their entity relationships.
type Store interface {
	CreateDocumentNode(ctx context.Context, doc *models.Document) error
	RelatedDocuments(ctx context.Context, entityName, userID string) ([]string, error)
	Close(ctx context.Context) error
}

// Config configures the Neo4j connection.
type Config struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// Neo4jStore implements Store on a bolt driver.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

// NewNeo4jStore connects to Neo4j.
func NewNeo4jStore(config *Config, logger *logrus.Logger) (*Neo4jStore, error) {
	if logger == nil {
		logger = logrus.New()
	}
	driver, err := neo4j.NewDriverWithContext(config.URI, neo4j.BasicAuth(config.User, config.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return &Neo4jStore{driver: driver, logger: logger}, nil
}

// CreateDocumentNode records a document node.
func (s *Neo4jStore) CreateDocumentNode(ctx context.Context, doc *models.Document) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx,
			`CREATE (d:Document {
				id: $id,
				user_id: $user_id,
				filename: $filename,
				file_type: $file_type,
				created_at: $created_at
			})`,
			map[string]any{
				"id":         doc.ID,
				"user_id":    doc.UserID,
				"filename":   doc.Filename,
				"file_type":  string(doc.Type),
				"created_at": doc.CreatedAt.Format(time.RFC3339),
			})
	})
	if err != nil {
		return fmt.Errorf("failed to create document node: %w", err)
	}

	s.logger.WithField("document_id", doc.ID).Debug("Document node created")
	return nil
}

// RelatedDocuments returns ids of the user's documents containing the named
// entity.
func (s *Neo4jStore) RelatedDocuments(ctx context.Context, entityName, userID string) ([]string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer func() { _ = session.Close(ctx) }()

	ids, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx,
			`MATCH (d:Document)-[:CONTAINS_ENTITY]->(e:Entity {name: $entity})
			 WHERE d.user_id = $user_id
			 RETURN DISTINCT d.id AS doc_id`,
			map[string]any{"entity": entityName, "user_id": userID})
		if err != nil {
			return nil, err
		}
		var ids []string
		for result.Next(ctx) {
			if id, ok := result.Record().Get("doc_id"); ok {
				if str, ok := id.(string); ok {
					ids = append(ids, str)
				}
			}
		}
		return ids, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query related documents: %w", err)
	}
	return ids.([]string), nil
}

// Close shuts down the driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
