package models

import "errors"

// Pipeline error taxonomy. Every stage either returns a fully valid result
// or an error wrapping one of these sentinels; partial successes are never
// mixed into a final answer.
var (
	// ErrUnsupportedFormat is returned for file extensions the extractor
	// does not recognize. Not retryable.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrInvalidConfiguration covers caller mistakes such as a chunk
	// overlap that is not smaller than the chunk size. Not retryable.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrIndexUnavailable means a backing index store is unreachable. The
	// caller may retry the whole request.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrEmbeddingFailure means the embedding model call failed or timed
	// out. Ingest aborts without partial index writes.
	ErrEmbeddingFailure = errors.New("embedding failed")

	// ErrRerankFailure means the reranker model call failed or timed out.
	ErrRerankFailure = errors.New("rerank failed")

	// ErrIndexInconsistency flags a chunk id present in one index but not
	// the other. Detected during fusion; logged and scored as zero on the
	// missing side rather than dropped.
	ErrIndexInconsistency = errors.New("index inconsistency")
)
