package domain

import (
	"fmt"
	"time"
)

// Metadata keys written by the indexer.
const (
	MetadataTitle          = "title"
	MetadataChunkIndex     = "chunk_index"
	MetadataTotalChunks    = "total_chunks"
	MetadataSource         = "source"
	MetadataEmbeddingModel = "embedding_model"
)

// SourceUpload marks chunks created from an uploaded file.
const SourceUpload = "upload"

// Metadata is an open attribute bag stored as JSON next to a chunk.
type Metadata map[string]any

// Clone returns a shallow copy so callers can add keys without aliasing.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// String returns the value of key if it holds a string.
func (m Metadata) String(key string) string {
	v, _ := m[key].(string)
	return v
}

// Int returns the value of key as an int. JSON round trips turn numbers
// into float64, so both shapes are accepted.
func (m Metadata) Int(key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Chunk is a persisted slice of a document's text with its embedding.
type Chunk struct {
	ID         string
	DocumentID string
	OwnerID    string
	Text       string
	Embedding  []float32
	Metadata   Metadata
	CreatedAt  time.Time
}

// NewChunk creates a new Chunk instance
func NewChunk(id, documentID, ownerID, text string, embedding []float32, metadata Metadata, createdAt time.Time) *Chunk {
	return &Chunk{
		ID:         id,
		DocumentID: documentID,
		OwnerID:    ownerID,
		Text:       text,
		Embedding:  embedding,
		Metadata:   metadata,
		CreatedAt:  createdAt,
	}
}

// ValidateChunk checks the invariants a chunk must hold before it is stored.
// A dimension of zero skips the embedding length check.
func ValidateChunk(c *Chunk, dimension int) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}

	if c.DocumentID == "" {
		return fmt.Errorf("chunk DocumentID is required")
	}

	if c.OwnerID == "" {
		return fmt.Errorf("chunk OwnerID is required")
	}

	if c.Text == "" {
		return fmt.Errorf("chunk Text is required")
	}

	if len(c.Embedding) == 0 {
		return fmt.Errorf("chunk Embedding is required")
	}

	if dimension > 0 && len(c.Embedding) != dimension {
		return fmt.Errorf("chunk Embedding has %d dimensions, expected %d", len(c.Embedding), dimension)
	}

	return nil
}

// ChunkInput is a chunk ready to be written by ReplaceChunks. IDs and
// timestamps are assigned by the store.
type ChunkInput struct {
	Text      string
	Embedding []float32
	Metadata  Metadata
}

// RetrievalResult is a chunk scored against one query. It is never stored.
type RetrievalResult struct {
	Chunk      Chunk
	Similarity float64
}

// DocumentIndexSummary describes the indexed state of one document.
type DocumentIndexSummary struct {
	DocumentID string
	Title      string
	ChunkCount int
	IndexedAt  time.Time
}
