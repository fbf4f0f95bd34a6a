// Package chunker splits extracted document text into overlapping segments.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/AlexPi44/multimodal-rag-system/internal/models"
)

// Splitter produces deterministic, overlapping chunks. The same
// (text, size, overlap) input always yields the same boundaries.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewSplitter validates the configuration. Overlap must be strictly
// smaller than the chunk size or re-ingestion would never make progress.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrInvalidConfiguration, chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, chunk size %d)", models.ErrInvalidConfiguration, chunkOverlap, chunkSize)
	}
	return &Splitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}, nil
}

// Split breaks text into chunks of at most ChunkSize characters, with
// consecutive chunks sharing ChunkOverlap characters. Split points prefer
// natural separators (paragraph break, sentence end, word boundary) over a
// hard character cut, always choosing the candidate closest to but not
// exceeding ChunkSize. Empty input yields no chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.ChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		cut := splitPoint(runes[start:end])
		end = start + cut
		chunks = append(chunks, string(runes[start:end]))

		next := end - s.ChunkOverlap
		if next <= start {
			// Guarantee forward progress on pathological inputs.
			next = end
		}
		start = next
	}

	return chunks
}

// splitPoint returns the cut offset within window, preferring the latest
// paragraph break, then sentence end, then word boundary, and finally the
// full window length (hard cut).
func splitPoint(window []rune) int {
	if p := lastParagraphBreak(window); p > 0 {
		return p
	}
	if p := lastSentenceEnd(window); p > 0 {
		return p
	}
	if p := lastWordBoundary(window); p > 0 {
		return p
	}
	return len(window)
}

func lastParagraphBreak(window []rune) int {
	for i := len(window) - 1; i > 0; i-- {
		if window[i] == '\n' && window[i-1] == '\n' {
			return i + 1
		}
	}
	return 0
}

func lastSentenceEnd(window []rune) int {
	for i := len(window) - 1; i > 0; i-- {
		if !unicode.IsSpace(window[i]) {
			continue
		}
		switch window[i-1] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return 0
}

func lastWordBoundary(window []rune) int {
	for i := len(window) - 1; i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return i + 1
		}
	}
	return 0
}
