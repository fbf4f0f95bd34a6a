package retrieval

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/AlexPi44/multimodal-rag-system/internal/fusion"
	"github.com/AlexPi44/multimodal-rag-system/internal/models"
	"github.com/AlexPi44/multimodal-rag-system/internal/vectordb/qdrant"
)

// QdrantIndex adapts the Qdrant client to the orchestrator's VectorIndex.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	logger     *logrus.Logger
}

// NewQdrantIndex ensures the collection exists (cosine distance) and
// returns the adapter.
func NewQdrantIndex(ctx context.Context, client *qdrant.Client, collection string, dimension int, logger *logrus.Logger) (*QdrantIndex, error) {
	if logger == nil {
		logger = logrus.New()
	}

	err := client.EnsureCollection(ctx, &qdrant.CollectionConfig{
		Name:       collection,
		VectorSize: dimension,
		Distance:   qdrant.DistanceCosine,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure collection %s: %w", collection, err)
	}

	return &QdrantIndex{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

// Upsert writes chunk vectors with the payload layout the query path
// expects: content, user_id, document_id plus the document metadata.
func (q *QdrantIndex) Upsert(ctx context.Context, chunks []models.Chunk, userID, documentID string, metadata map[string]interface{}) error {
	points := make([]qdrant.Point, len(chunks))
	for i, chunk := range chunks {
		payload := map[string]interface{}{
			models.MetaContent:    chunk.Content,
			models.MetaUserID:     userID,
			models.MetaDocumentID: documentID,
		}
		for k, v := range metadata {
			payload[k] = v
		}
		points[i] = qdrant.Point{
			ID:      chunk.ID,
			Vector:  chunk.Embedding,
			Payload: payload,
		}
	}
	return q.client.UpsertPoints(ctx, q.collection, points)
}

// Search runs a tenant-filtered similarity search and converts hits into
// fusion inputs.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, userID string, limit int) ([]fusion.VectorResult, error) {
	points, err := q.client.Search(ctx, q.collection, vector, qdrant.UserFilter(userID), limit)
	if err != nil {
		return nil, err
	}

	results := make([]fusion.VectorResult, len(points))
	for i, p := range points {
		content, _ := p.Payload[models.MetaContent].(string)
		results[i] = fusion.VectorResult{
			ChunkID:  p.ID,
			Content:  content,
			Score:    p.Score,
			Metadata: p.Payload,
		}
	}
	return results, nil
}
