package fusion

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexPi44/multimodal-rag-system/internal/lexical"
	"github.com/AlexPi44/multimodal-rag-system/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func vec(id string, score float64) VectorResult {
	return VectorResult{
		ChunkID: id,
		Content: "content " + id,
		Score:   score,
		Metadata: map[string]interface{}{
			models.MetaDocumentID: "doc-" + id,
			models.MetaUserID:     "u1",
		},
	}
}

func lex(id string, score float64) lexical.Score {
	return lexical.Score{ChunkID: id, Content: "content " + id, Score: score}
}

func TestFuseWeightedCombination(t *testing.T) {
	vector := []VectorResult{vec("a", 0.8), vec("b", 0.4)}
	lexScores := []lexical.Score{lex("a", 2.0), lex("b", 4.0)}

	results := Fuse(vector, lexScores, 0.5, quietLogger())
	require.Len(t, results, 2)

	scores := map[string]float64{}
	for _, r := range results {
		scores[r.ChunkID] = r.Score
	}

	// a: (0.8/0.8)*0.5 + (2/4)*0.5 = 0.75; b: (0.4/0.8)*0.5 + (4/4)*0.5 = 0.75
	assert.InDelta(t, 0.75, scores["a"], 1e-9)
	assert.InDelta(t, 0.75, scores["b"], 1e-9)

	// Tie broken by first-seen order, vector side first.
	assert.Equal(t, "a", results[0].ChunkID)
	assert.Equal(t, "b", results[1].ChunkID)
}

func TestFuseNormalizedComponentsInUnitRange(t *testing.T) {
	vector := []VectorResult{vec("a", 12.5), vec("b", 3.1), vec("c", 0.2)}
	lexScores := []lexical.Score{lex("a", 9.0), lex("b", 0.5), lex("d", 7.7)}

	for _, alpha := range []float64{0, 0.25, 0.5, 0.75, 1} {
		results := Fuse(vector, lexScores, alpha, quietLogger())
		for _, r := range results {
			assert.GreaterOrEqual(t, r.Score, 0.0)
			assert.LessOrEqual(t, r.Score, 1.0+1e-9)
		}
	}
}

func TestFuseAlphaBoundaries(t *testing.T) {
	vector := []VectorResult{vec("v1", 0.9), vec("v2", 0.7), vec("v3", 0.5)}
	lexScores := []lexical.Score{lex("v3", 6.0), lex("v2", 4.0), lex("v1", 2.0)}

	t.Run("alpha zero is pure vector order", func(t *testing.T) {
		results := Fuse(vector, lexScores, 0, quietLogger())
		require.Len(t, results, 3)
		assert.Equal(t, "v1", results[0].ChunkID)
		assert.Equal(t, "v2", results[1].ChunkID)
		assert.Equal(t, "v3", results[2].ChunkID)
	})

	t.Run("alpha one is pure lexical order", func(t *testing.T) {
		results := Fuse(vector, lexScores, 1, quietLogger())
		require.Len(t, results, 3)
		assert.Equal(t, "v3", results[0].ChunkID)
		assert.Equal(t, "v2", results[1].ChunkID)
		assert.Equal(t, "v1", results[2].ChunkID)
	})
}

func TestFuseUnionNeverDrops(t *testing.T) {
	vector := []VectorResult{vec("only-vector", 0.9)}
	lexScores := []lexical.Score{lex("only-lexical", 3.0)}

	results := Fuse(vector, lexScores, 0.5, quietLogger())
	require.Len(t, results, 2)

	ids := map[string]bool{}
	for _, r := range results {
		ids[r.ChunkID] = true
	}
	assert.True(t, ids["only-vector"])
	assert.True(t, ids["only-lexical"])
}

func TestFuseLexicalOnlyMetadataIsEmpty(t *testing.T) {
	results := Fuse(nil, []lexical.Score{lex("l1", 1.0)}, 1, quietLogger())
	require.Len(t, results, 1)

	assert.Equal(t, "l1", results[0].ChunkID)
	assert.Empty(t, results[0].Metadata)
	assert.Empty(t, results[0].DocumentID)
	assert.Equal(t, "content l1", results[0].Content)
}

func TestFuseDocumentIDFromPayload(t *testing.T) {
	results := Fuse([]VectorResult{vec("a", 1.0)}, nil, 0, quietLogger())
	require.Len(t, results, 1)
	assert.Equal(t, "doc-a", results[0].DocumentID)
}

func TestFuseEmptyInputs(t *testing.T) {
	assert.Empty(t, Fuse(nil, nil, 0.5, quietLogger()))
}

func TestFuseLogsInconsistency(t *testing.T) {
	logger, hook := logrusTestLogger()

	// A vector hit missing from the exhaustive lexical corpus is an index
	// inconsistency: scored zero on the lexical side, never dropped.
	results := Fuse([]VectorResult{vec("ghost", 0.9)}, []lexical.Score{lex("other", 1.0)}, 0.5, logger)
	require.Len(t, results, 2)

	require.NotEmpty(t, hook.entries)
	assert.Contains(t, hook.entries[0], "ghost")
}

// logrusTestLogger captures warning output for assertions.
type captureHook struct {
	entries []string
}

func (h *captureHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.WarnLevel}
}

func (h *captureHook) Fire(e *logrus.Entry) error {
	if id, ok := e.Data["chunk_id"].(string); ok {
		h.entries = append(h.entries, id)
	}
	return nil
}

func logrusTestLogger() (*logrus.Logger, *captureHook) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	hook := &captureHook{}
	logger.AddHook(hook)
	return logger, hook
}
