// Package server exposes the retrieval pipeline over HTTP.
package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/AlexPi44/multimodal-rag-system/internal/models"
	"github.com/AlexPi44/multimodal-rag-system/internal/retrieval"
)

// Server wires HTTP handlers to the retrieval service.
type Server struct {
	service *retrieval.Service
	logger  *logrus.Logger
}

// New creates the HTTP server.
func New(service *retrieval.Service, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	return &Server{service: service, logger: logger}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/documents/upload", s.handleUpload)
		v1.POST("/search", s.handleSearch)
		v1.POST("/chat", s.handleChat)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	userID := c.DefaultPostForm("user_id", "default_user")

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open upload"})
		return
	}
	defer func() { _ = file.Close() }()

	doc, err := s.service.IngestFile(c.Request.Context(), file, fileHeader.Filename, userID)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id": doc.ID,
		"filename":    doc.Filename,
		"num_chunks":  len(doc.ChunkIDs),
		"status":      "success",
	})
}

// SearchRequest is the body for /search and /chat.
type SearchRequest struct {
	Query         string   `json:"query" binding:"required"`
	UserID        string   `json:"user_id"`
	SessionID     string   `json:"session_id"`
	TopKRetrieval int      `json:"top_k_retrieval"`
	TopKRerank    int      `json:"top_k_rerank"`
	Alpha         *float64 `json:"alpha"`
}

func (r *SearchRequest) params() retrieval.QueryParams {
	p := retrieval.QueryParams{
		TopKRetrieval: r.TopKRetrieval,
		TopKRerank:    r.TopKRerank,
	}
	if r.Alpha != nil {
		p.Alpha = *r.Alpha
		p.HasAlpha = true
	}
	return p
}

func (s *Server) handleSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == "" {
		req.UserID = "default_user"
	}

	results, err := s.service.Search(c.Request.Context(), req.Query, req.UserID, req.params())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleChat(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == "" {
		req.UserID = "default_user"
	}

	resp, err := s.service.Chat(c.Request.Context(), req.Query, req.UserID, req.SessionID, req.params())
	if err != nil {
		s.fail(c, err)
		return
	}

	sources := make([]gin.H, len(resp.Sources))
	for i, r := range resp.Sources {
		content := r.Content
		if len(content) > 200 {
			content = content[:200]
		}
		sources[i] = gin.H{
			"content":     content,
			"score":       r.Score,
			"document_id": r.DocumentID,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"response":   resp.Answer,
		"sources":    sources,
		"session_id": resp.SessionID,
	})
}

// fail maps pipeline errors onto HTTP status codes.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrUnsupportedFormat),
		errors.Is(err, models.ErrInvalidConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrIndexUnavailable),
		errors.Is(err, models.ErrEmbeddingFailure),
		errors.Is(err, models.ErrRerankFailure):
		status = http.StatusBadGateway
	}

	s.logger.WithError(err).WithField("status", status).Warn("Request failed")
	c.JSON(status, gin.H{"error": err.Error()})
}
