package ingestion

import "errors"

var (
	// ErrChunkWriterRequired is returned when a chunk writer is not provided.
	ErrChunkWriterRequired = errors.New("chunk writer required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrPanelWriterRequired is returned when a panel writer is not provided.
	ErrPanelWriterRequired = errors.New("panel writer required")
)
