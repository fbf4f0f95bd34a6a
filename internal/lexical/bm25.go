// Package lexical maintains an in-process BM25 index over chunk text.
//
// Every Add rebuilds the scoring model from the full corpus and swaps it in
// as an immutable snapshot, so readers always see either the pre-rebuild or
// the post-rebuild state. The full rebuild is intentionally simple and is
// the main scaling limit of the design; an incremental inverted index can
// replace it behind the same Add/Scores contract.
package lexical

import (
	"context"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/sirupsen/logrus"
)

// Default Okapi BM25 parameters.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

type entry struct {
	chunkID string
	content string
	tokens  []string
}

// snapshot is an immutable scoring model over the corpus at one point in
// time. All derived statistics are computed at rebuild and never mutated.
type snapshot struct {
	entries   []entry
	termFreqs []map[string]int // per entry
	docFreq   map[string]int   // term -> number of entries containing it
	docLens   []int
	avgDocLen float64
}

// Index is safe for concurrent use by multiple ingesters and queriers.
type Index struct {
	k1     float64
	b      float64
	logger *logrus.Logger

	mu   sync.RWMutex
	snap *snapshot
}

// NewIndex creates an empty index. Non-positive parameters fall back to the
// Okapi defaults.
func NewIndex(k1, b float64, logger *logrus.Logger) *Index {
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b <= 0 {
		b = DefaultB
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Index{
		k1:     k1,
		b:      b,
		logger: logger,
		snap:   &snapshot{docFreq: map[string]int{}},
	}
}

// Tokenize lower-cases text and splits on any non-letter, non-digit rune.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Add appends a chunk to the corpus and rebuilds the scoring model before
// returning. A query issued after Add returns observes the new chunk.
func (idx *Index) Add(ctx context.Context, chunkID, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tokens := Tokenize(content)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	entries := make([]entry, len(idx.snap.entries), len(idx.snap.entries)+1)
	copy(entries, idx.snap.entries)
	entries = append(entries, entry{chunkID: chunkID, content: content, tokens: tokens})

	idx.snap = rebuild(entries)

	idx.logger.WithFields(logrus.Fields{
		"chunk_id":    chunkID,
		"corpus_size": len(entries),
	}).Debug("Lexical index rebuilt")

	return nil
}

// rebuild recomputes all term statistics from scratch.
func rebuild(entries []entry) *snapshot {
	s := &snapshot{
		entries:   entries,
		termFreqs: make([]map[string]int, len(entries)),
		docFreq:   make(map[string]int),
		docLens:   make([]int, len(entries)),
	}

	totalLen := 0
	for i, e := range entries {
		tf := make(map[string]int, len(e.tokens))
		for _, tok := range e.tokens {
			tf[tok]++
		}
		s.termFreqs[i] = tf
		s.docLens[i] = len(e.tokens)
		totalLen += len(e.tokens)
		for tok := range tf {
			s.docFreq[tok]++
		}
	}
	if len(entries) > 0 {
		s.avgDocLen = float64(totalLen) / float64(len(entries))
	}
	return s
}

// Score carries a BM25 relevance score for one chunk. Every chunk in the
// corpus gets a score, zero included; absence from the corpus, not a zero
// score, is what distinguishes a missing chunk.
type Score struct {
	ChunkID string
	Content string
	Score   float64
}

// Scores computes BM25 scores for every chunk currently in the corpus.
// Results are in corpus insertion order.
func (idx *Index) Scores(queryTokens []string) []Score {
	idx.mu.RLock()
	snap := idx.snap
	idx.mu.RUnlock()

	if len(snap.entries) == 0 || len(queryTokens) == 0 {
		return nil
	}

	n := float64(len(snap.entries))
	scores := make([]Score, len(snap.entries))
	// k1 and b are read without the lock; they are immutable after NewIndex.
	for i, e := range snap.entries {
		var score float64
		docLen := float64(snap.docLens[i])
		for _, tok := range queryTokens {
			tf := float64(snap.termFreqs[i][tok])
			if tf == 0 {
				continue
			}
			df := float64(snap.docFreq[tok])
			idf := logIDF(n, df)
			norm := idx.k1 * (1 - idx.b + idx.b*docLen/snap.avgDocLen)
			score += idf * tf * (idx.k1 + 1) / (tf + norm)
		}
		scores[i] = Score{ChunkID: e.chunkID, Content: e.content, Score: score}
	}
	return scores
}

// logIDF is the Okapi BM25 inverse document frequency. The +1 inside the
// log keeps scores non-negative for terms present in most of the corpus.
func logIDF(n, df float64) float64 {
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}

// Has reports whether a chunk id is present in the corpus.
func (idx *Index) Has(chunkID string) bool {
	idx.mu.RLock()
	snap := idx.snap
	idx.mu.RUnlock()

	for _, e := range snap.entries {
		if e.chunkID == chunkID {
			return true
		}
	}
	return false
}

// Len returns the number of chunks in the corpus.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.snap.entries)
}
