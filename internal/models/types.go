// Package models defines the shared data model for the retrieval pipeline:
// documents, chunks, search results and conversation messages.
package models

import (
	"time"
)

// DocumentType identifies the kind of content a document was extracted from.
type DocumentType string

const (
	DocumentTypeText  DocumentType = "text"
	DocumentTypePDF   DocumentType = "pdf"
	DocumentTypeCode  DocumentType = "code"
	DocumentTypeImage DocumentType = "image"
	DocumentTypeAudio DocumentType = "audio"
	DocumentTypeVideo DocumentType = "video"
	DocumentTypeDOCX  DocumentType = "docx"
)

// Well-known metadata keys. Metadata maps are open-schema; these keys are
// the ones the pipeline itself reads and writes.
const (
	MetaDocumentID = "document_id"
	MetaUserID     = "user_id"
	MetaExtension  = "extension"
	MetaNumChunks  = "num_chunks"
	MetaContent    = "content"
)

// Chunk is the unit of indexing and retrieval. IDs are globally unique and
// immutable once assigned.
type Chunk struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Embedding []float32              `json:"embedding,omitempty"`
}

// Document represents one successful ingest. Immutable after creation; the
// chunk id list is fixed when the document is built.
type Document struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	Filename  string                 `json:"filename"`
	Type      DocumentType           `json:"file_type"`
	Size      int                    `json:"size"`
	ChunkIDs  []string               `json:"chunks"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// SearchResult is constructed per query and never persisted. Score is
// rewritten at each pipeline stage (vector/lexical, fused, reranked).
type SearchResult struct {
	ChunkID    string                 `json:"chunk_id"`
	Content    string                 `json:"content"`
	Score      float64                `json:"score"`
	Metadata   map[string]interface{} `json:"metadata"`
	DocumentID string                 `json:"document_id"`
}

// ConversationMessage is one turn in a per-(user, session) history.
type ConversationMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
