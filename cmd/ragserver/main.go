// Command ragserver runs the multimodal RAG backend: document ingestion
// into hybrid (vector + BM25) indexes and conversational retrieval.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/AlexPi44/multimodal-rag-system/internal/chunker"
	"github.com/AlexPi44/multimodal-rag-system/internal/config"
	"github.com/AlexPi44/multimodal-rag-system/internal/embedding"
	"github.com/AlexPi44/multimodal-rag-system/internal/extract"
	"github.com/AlexPi44/multimodal-rag-system/internal/generation"
	"github.com/AlexPi44/multimodal-rag-system/internal/graph"
	"github.com/AlexPi44/multimodal-rag-system/internal/lexical"
	"github.com/AlexPi44/multimodal-rag-system/internal/memory"
	"github.com/AlexPi44/multimodal-rag-system/internal/rerank"
	"github.com/AlexPi44/multimodal-rag-system/internal/retrieval"
	"github.com/AlexPi44/multimodal-rag-system/internal/server"
	"github.com/AlexPi44/multimodal-rag-system/internal/vectordb/qdrant"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment")
	}

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	qdrantClient, err := qdrant.NewClient(&cfg.Qdrant, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Qdrant client")
	}
	if err := qdrantClient.HealthCheck(ctx); err != nil {
		logger.WithError(err).Fatal("Qdrant is unreachable")
	}

	embedder := embedding.NewClient(&cfg.Embedding, logger)

	vectorIndex, err := retrieval.NewQdrantIndex(ctx, qdrantClient, cfg.Collection, embedder.Dimension(), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to prepare vector collection")
	}

	splitter, err := chunker.NewSplitter(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		logger.WithError(err).Fatal("Invalid chunking configuration")
	}

	conversations := memory.NewRedisStore(&cfg.Memory, logger)
	if err := conversations.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Redis is unreachable")
	}
	defer func() { _ = conversations.Close() }()

	// Neo4j is optional; the pipeline answers queries without it.
	var graphStore graph.Store
	if cfg.Neo4j.URI != "" {
		store, err := graph.NewNeo4jStore(&cfg.Neo4j, logger)
		if err != nil {
			logger.WithError(err).Warn("Neo4j unavailable, continuing without graph store")
		} else {
			graphStore = store
			defer func() { _ = store.Close(context.Background()) }()
		}
	}

	svc := retrieval.NewService(
		extract.NewService(logger),
		splitter,
		embedder,
		vectorIndex,
		lexical.NewIndex(cfg.Search.BM25K1, cfg.Search.BM25B, logger),
		rerank.NewCrossEncoder(&cfg.Reranker, logger),
		conversations,
		graphStore,
		generation.NewClient(&cfg.Generation, logger),
		retrieval.Options{
			TopKRetrieval: cfg.Search.TopKRetrieval,
			TopKRerank:    cfg.Search.TopKRerank,
			Alpha:         cfg.Search.Alpha,
			HistoryLimit:  cfg.Search.HistoryLimit,
		},
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.New(svc, logger).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}
}
