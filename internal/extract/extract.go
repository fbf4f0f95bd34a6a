// Package extract resolves uploaded files to raw text and a document type.
//
// Plain-text formats are decoded in-process. Binary formats (pdf, docx,
// image, audio, video) are delegated to pluggable extractors; the actual
// content extraction for those formats is an external capability.
package extract

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/AlexPi44/multimodal-rag-system/internal/models"
)

// Extractor pulls raw text out of a binary file format.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader, filename string) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, r io.Reader, filename string) (string, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(ctx context.Context, r io.Reader, filename string) (string, error) {
	return f(ctx, r, filename)
}

// extension → document type. Unlisted extensions are unsupported.
var typeByExtension = map[string]models.DocumentType{
	"txt":  models.DocumentTypeText,
	"md":   models.DocumentTypeText,
	"pdf":  models.DocumentTypePDF,
	"docx": models.DocumentTypeDOCX,
	"py":   models.DocumentTypeCode,
	"js":   models.DocumentTypeCode,
	"java": models.DocumentTypeCode,
	"cpp":  models.DocumentTypeCode,
	"c":    models.DocumentTypeCode,
	"go":   models.DocumentTypeCode,
	"jpg":  models.DocumentTypeImage,
	"jpeg": models.DocumentTypeImage,
	"png":  models.DocumentTypeImage,
	"mp3":  models.DocumentTypeAudio,
	"wav":  models.DocumentTypeAudio,
	"mp4":  models.DocumentTypeVideo,
}

// Service maps filenames to document types and extracts their text.
type Service struct {
	extractors map[models.DocumentType]Extractor
	logger     *logrus.Logger
}

// NewService creates an extraction service. Text and code files work out of
// the box; register extractors for binary formats with Register.
func NewService(logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		extractors: make(map[models.DocumentType]Extractor),
		logger:     logger,
	}
}

// Register installs an extractor for a binary document type.
func (s *Service) Register(t models.DocumentType, e Extractor) {
	s.extractors[t] = e
}

// DetectType resolves a filename to a document type, failing for unknown
// extensions.
func DetectType(filename string) (models.DocumentType, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	t, ok := typeByExtension[ext]
	if !ok {
		return "", fmt.Errorf("%w: .%s", models.ErrUnsupportedFormat, ext)
	}
	return t, nil
}

// Extension returns the lower-cased extension without the leading dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// Extract returns the raw text and detected type for a file.
func (s *Service) Extract(ctx context.Context, r io.Reader, filename string) (string, models.DocumentType, error) {
	docType, err := DetectType(filename)
	if err != nil {
		return "", "", err
	}

	switch docType {
	case models.DocumentTypeText, models.DocumentTypeCode:
		data, err := io.ReadAll(r)
		if err != nil {
			return "", "", fmt.Errorf("failed to read %s: %w", filename, err)
		}
		return string(data), docType, nil
	default:
		extractor, ok := s.extractors[docType]
		if !ok {
			return "", "", fmt.Errorf("%w: no extractor registered for %s files", models.ErrUnsupportedFormat, docType)
		}
		text, err := extractor.Extract(ctx, r, filename)
		if err != nil {
			return "", "", fmt.Errorf("extraction failed for %s: %w", filename, err)
		}
		s.logger.WithFields(logrus.Fields{
			"filename": filename,
			"type":     docType,
			"chars":    len(text),
		}).Debug("Content extracted")
		return text, docType, nil
	}
}
