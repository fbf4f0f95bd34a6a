// Package retrieval composes chunking, dense and lexical indexing, fusion,
// reranking and conversation memory into the ingest and query paths.
package retrieval

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/AlexPi44/multimodal-rag-system/internal/chunker"
	"github.com/AlexPi44/multimodal-rag-system/internal/embedding"
	"github.com/AlexPi44/multimodal-rag-system/internal/extract"
	"github.com/AlexPi44/multimodal-rag-system/internal/fusion"
	"github.com/AlexPi44/multimodal-rag-system/internal/generation"
	"github.com/AlexPi44/multimodal-rag-system/internal/graph"
	"github.com/AlexPi44/multimodal-rag-system/internal/lexical"
	"github.com/AlexPi44/multimodal-rag-system/internal/memory"
	"github.com/AlexPi44/multimodal-rag-system/internal/models"
	"github.com/AlexPi44/multimodal-rag-system/internal/rerank"
)

// VectorIndex is the dense index the orchestrator writes to and searches.
type VectorIndex interface {
	// Upsert stores chunk vectors with their payloads, overwriting by id.
	Upsert(ctx context.Context, chunks []models.Chunk, userID, documentID string, metadata map[string]interface{}) error
	// Search returns ranked hits restricted to the user's tenant boundary.
	Search(ctx context.Context, vector []float32, userID string, limit int) ([]fusion.VectorResult, error)
}

// LexicalIndex is the sparse index side of the pipeline.
type LexicalIndex interface {
	Add(ctx context.Context, chunkID, content string) error
	Scores(queryTokens []string) []lexical.Score
}

// Options are the per-deployment pipeline defaults; per-request values on
// QueryParams override them.
type Options struct {
	TopKRetrieval int
	TopKRerank    int
	Alpha         float64
	HistoryLimit  int
}

// DefaultOptions mirrors the original deployment defaults.
func DefaultOptions() Options {
	return Options{
		TopKRetrieval: 20,
		TopKRerank:    5,
		Alpha:         0.5,
		HistoryLimit:  10,
	}
}

// Service is the retrieval orchestrator. All external calls inherit the
// caller's context; pass a context with a deadline to bound a request.
type Service struct {
	extractor *extract.Service
	splitter  *chunker.Splitter
	embedder  embedding.Embedder
	vector    VectorIndex
	lex       LexicalIndex
	reranker  rerank.Reranker
	memory    memory.ConversationStore
	graph     graph.Store          // optional
	generator generation.Generator // optional, required by Chat
	opts      Options
	logger    *logrus.Logger
}

// NewService wires the pipeline together. graph and generator may be nil.
func NewService(
	extractor *extract.Service,
	splitter *chunker.Splitter,
	embedder embedding.Embedder,
	vector VectorIndex,
	lex LexicalIndex,
	reranker rerank.Reranker,
	conversations memory.ConversationStore,
	graphStore graph.Store,
	generator generation.Generator,
	opts Options,
	logger *logrus.Logger,
) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.TopKRetrieval <= 0 {
		opts.TopKRetrieval = DefaultOptions().TopKRetrieval
	}
	if opts.TopKRerank <= 0 {
		opts.TopKRerank = DefaultOptions().TopKRerank
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultOptions().HistoryLimit
	}
	return &Service{
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		vector:    vector,
		lex:       lex,
		reranker:  reranker,
		memory:    conversations,
		graph:     graphStore,
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// IngestFile extracts a file's text and ingests it.
func (s *Service) IngestFile(ctx context.Context, r io.Reader, filename, userID string) (*models.Document, error) {
	text, docType, err := s.extractor.Extract(ctx, r, filename)
	if err != nil {
		return nil, err
	}
	return s.IngestText(ctx, text, filename, docType, userID)
}

// IngestText chunks raw text, embeds the chunks and writes both indexes.
// Embedding failure aborts before any index write; a lexical failure after
// the vector upsert succeeded is surfaced as a consistency warning so the
// caller knows the indexes diverged for this document.
func (s *Service) IngestText(ctx context.Context, text, filename string, docType models.DocumentType, userID string) (*models.Document, error) {
	start := time.Now()

	pieces := s.splitter.Split(text)

	doc := &models.Document{
		ID:       uuid.New().String(),
		UserID:   userID,
		Filename: filename,
		Type:     docType,
		Size:     len(text),
		ChunkIDs: make([]string, len(pieces)),
		Metadata: map[string]interface{}{
			models.MetaExtension: extract.Extension(filename),
			models.MetaNumChunks: len(pieces),
		},
		CreatedAt: time.Now().UTC(),
	}
	for i := range pieces {
		doc.ChunkIDs[i] = uuid.New().String()
	}

	if len(pieces) == 0 {
		s.logger.WithField("filename", filename).Warn("Document produced no chunks, nothing indexed")
		ingestsTotal.WithLabelValues("empty").Inc()
		return doc, nil
	}

	vectors, err := s.embedder.Embed(ctx, pieces)
	if err != nil {
		ingestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("ingest aborted: %w", err)
	}

	chunks := make([]models.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = models.Chunk{
			ID:        doc.ChunkIDs[i],
			Content:   piece,
			Embedding: vectors[i],
		}
	}

	if err := s.vector.Upsert(ctx, chunks, userID, doc.ID, doc.Metadata); err != nil {
		ingestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("vector indexing failed: %w", err)
	}

	for i, chunk := range chunks {
		if err := s.lex.Add(ctx, chunk.ID, chunk.Content); err != nil {
			// The vector side already holds this document; queries will
			// flag the divergent chunks instead of dropping them.
			s.logger.WithFields(logrus.Fields{
				"document_id":  doc.ID,
				"chunk_id":     chunk.ID,
				"indexed":      i,
				"total_chunks": len(chunks),
				"error":        models.ErrIndexInconsistency,
			}).Error("Lexical indexing failed after vector upsert; indexes diverged for this document")
			ingestsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: lexical indexing failed: %v", models.ErrIndexInconsistency, err)
		}
	}

	if s.graph != nil {
		if err := s.graph.CreateDocumentNode(ctx, doc); err != nil {
			// The graph store is best-effort; retrieval never depends on it.
			s.logger.WithError(err).Warn("Graph store write failed, continuing")
		}
	}

	ingestsTotal.WithLabelValues("ok").Inc()
	ingestDuration.Observe(time.Since(start).Seconds())

	s.logger.WithFields(logrus.Fields{
		"document_id": doc.ID,
		"filename":    filename,
		"num_chunks":  len(pieces),
		"user_id":     userID,
	}).Info("Document ingested")

	return doc, nil
}

// QueryParams override the deployment defaults for one query. Zero values
// fall back to the defaults; Alpha must be set explicitly via HasAlpha to
// distinguish a deliberate 0 (pure vector) from an unset value.
type QueryParams struct {
	TopKRetrieval int
	TopKRerank    int
	Alpha         float64
	HasAlpha      bool
}

func (s *Service) resolve(p QueryParams) (topKRetrieval, topKRerank int, alpha float64) {
	topKRetrieval = p.TopKRetrieval
	if topKRetrieval <= 0 {
		topKRetrieval = s.opts.TopKRetrieval
	}
	topKRerank = p.TopKRerank
	if topKRerank <= 0 {
		topKRerank = s.opts.TopKRerank
	}
	alpha = s.opts.Alpha
	if p.HasAlpha {
		alpha = p.Alpha
	}
	return topKRetrieval, topKRerank, alpha
}

// Search runs the query path: embed, dense and lexical scoring, fusion,
// rerank. A blank query short-circuits to an empty result set without
// touching either index.
func (s *Service) Search(ctx context.Context, query, userID string, params QueryParams) ([]*models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []*models.SearchResult{}, nil
	}

	start := time.Now()
	topKRetrieval, topKRerank, alpha := s.resolve(params)

	var vectorResults []fusion.VectorResult
	var lexScores []lexical.Score

	// The dense leg (embed + vector search) and the lexical leg are
	// independent; within each leg the stages stay sequential.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vector, err := s.embedder.EmbedQuery(gctx, query)
		if err != nil {
			return err
		}
		vectorResults, err = s.vector.Search(gctx, vector, userID, topKRetrieval)
		return err
	})
	g.Go(func() error {
		lexScores = s.lex.Scores(lexical.Tokenize(query))
		return nil
	})
	if err := g.Wait(); err != nil {
		queriesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	fused := fusion.Fuse(vectorResults, lexScores, alpha, s.logger)
	if len(fused) > topKRetrieval {
		fused = fused[:topKRetrieval]
	}

	results, err := s.reranker.Rerank(ctx, query, fused, topKRerank)
	if err != nil {
		queriesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	queriesTotal.WithLabelValues("ok").Inc()
	queryDuration.Observe(time.Since(start).Seconds())

	s.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"vector_count":  len(vectorResults),
		"lexical_count": len(lexScores),
		"result_count":  len(results),
		"alpha":         alpha,
	}).Debug("Hybrid search completed")

	return results, nil
}

// ChatResponse is the result of one conversational exchange.
type ChatResponse struct {
	Answer    string                   `json:"answer"`
	Sources   []*models.SearchResult   `json:"sources"`
	History   []models.ConversationMessage `json:"history"`
	SessionID string                   `json:"session_id"`
}

// Chat answers a query grounded in the user's corpus and records the
// exchange in conversation memory. Requires a generator.
func (s *Service) Chat(ctx context.Context, query, userID, sessionID string, params QueryParams) (*ChatResponse, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("no generator configured")
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	history, err := s.memory.History(ctx, userID, sessionID, s.opts.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	results, err := s.Search(ctx, query, userID, params)
	if err != nil {
		return nil, err
	}

	answer, err := s.generator.Generate(ctx, query, results, history)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	exchange := []models.ConversationMessage{
		{Role: "user", Content: query},
		{Role: "assistant", Content: answer},
	}
	for _, msg := range exchange {
		if err := s.memory.Append(ctx, userID, sessionID, msg); err != nil {
			return nil, fmt.Errorf("failed to store conversation: %w", err)
		}
	}

	return &ChatResponse{
		Answer:    answer,
		Sources:   results,
		History:   append(history, exchange...),
		SessionID: sessionID,
	}, nil
}
