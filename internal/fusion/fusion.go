// Package fusion combines dense and lexical rankings into a single ordered
// result list via normalized, weighted score addition.
package fusion

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/AlexPi44/multimodal-rag-system/internal/lexical"
	"github.com/AlexPi44/multimodal-rag-system/internal/models"
)

// VectorResult is one hit from the vector index, carrying the payload
// stored alongside the point.
type VectorResult struct {
	ChunkID  string
	Content  string
	Score    float64
	Metadata map[string]interface{}
}

// Fuse normalizes both rankings by their maximum score and combines them:
//
//	combined = (vector/maxVec)*(1-alpha) + (lexical/maxLex)*alpha
//
// alpha=0 degenerates to pure vector ranking, alpha=1 to pure lexical.
// The output is the union of chunk ids from both sides, sorted by combined
// score descending; ties keep first-seen order with vector results first.
//
// A chunk seen on only one side scores zero on the missing side rather than
// being dropped. Because lexical scoring covers the whole corpus, a vector
// hit absent from the lexical side is a real index inconsistency and is
// logged as such. Metadata for lexical-only chunks is empty; the vector
// payload is the only metadata source at this stage.
func Fuse(vectorResults []VectorResult, lexicalScores []lexical.Score, alpha float64, logger *logrus.Logger) []*models.SearchResult {
	if logger == nil {
		logger = logrus.New()
	}

	maxVec := 1.0
	if len(vectorResults) > 0 {
		maxVec = 0
		for _, r := range vectorResults {
			if r.Score > maxVec {
				maxVec = r.Score
			}
		}
	}
	maxLex := 1.0
	if len(lexicalScores) > 0 {
		maxLex = 0
		for _, s := range lexicalScores {
			if s.Score > maxLex {
				maxLex = s.Score
			}
		}
	}

	lexicalKnown := make(map[string]bool, len(lexicalScores))
	for _, s := range lexicalScores {
		lexicalKnown[s.ChunkID] = true
	}

	type fused struct {
		result   *models.SearchResult
		combined float64
	}
	var order []*fused
	byID := make(map[string]*fused, len(vectorResults)+len(lexicalScores))

	for _, r := range vectorResults {
		component := 0.0
		if maxVec > 0 {
			component = r.Score / maxVec * (1 - alpha)
		}
		f := &fused{
			result: &models.SearchResult{
				ChunkID:    r.ChunkID,
				Content:    r.Content,
				Metadata:   r.Metadata,
				DocumentID: documentID(r.Metadata),
			},
			combined: component,
		}
		byID[r.ChunkID] = f
		order = append(order, f)

		if !lexicalKnown[r.ChunkID] {
			logger.WithFields(logrus.Fields{
				"chunk_id": r.ChunkID,
				"error":    models.ErrIndexInconsistency,
			}).Warn("Chunk present in vector index but missing from lexical corpus; scoring lexical side as zero")
		}
	}

	for _, s := range lexicalScores {
		component := 0.0
		if maxLex > 0 {
			component = s.Score / maxLex * alpha
		}
		if f, ok := byID[s.ChunkID]; ok {
			f.combined += component
			continue
		}
		f := &fused{
			result: &models.SearchResult{
				ChunkID:  s.ChunkID,
				Content:  s.Content,
				Metadata: map[string]interface{}{},
			},
			combined: component,
		}
		byID[s.ChunkID] = f
		order = append(order, f)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].combined > order[j].combined
	})

	results := make([]*models.SearchResult, len(order))
	for i, f := range order {
		f.result.Score = f.combined
		results[i] = f.result
	}
	return results
}

func documentID(metadata map[string]interface{}) string {
	if metadata == nil {
		return ""
	}
	if id, ok := metadata[models.MetaDocumentID].(string); ok {
		return id
	}
	return ""
}
