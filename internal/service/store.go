package service

import (
	"context"

	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/cloo-solutions/notewise/internal/pagination"
)

// ChunkStore persists chunks and answers similarity queries. Implementations
// must keep every read and write scoped to the owner.
type ChunkStore interface {
	// ReplaceChunks removes every chunk of documentID and stores chunks in their place.
	ReplaceChunks(ctx context.Context, documentID, ownerID string, chunks []domain.ChunkInput) error
	// DeleteChunks removes every chunk of documentID. Zero matches is not an error.
	DeleteChunks(ctx context.Context, documentID, ownerID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Chunk, error)
	// SearchByEmbedding returns at most limit chunks of ownerID with cosine
	// similarity >= threshold, most similar first.
	SearchByEmbedding(ctx context.Context, ownerID string, embedding []float32, limit int, threshold float64) ([]domain.RetrievalResult, error)
	ListIndexedDocuments(ctx context.Context, ownerID string, cursor *pagination.Cursor, limit int) (*IndexPage, error)
}

// IndexPage is one page of indexed documents.
type IndexPage struct {
	Items      []domain.DocumentIndexSummary
	NextCursor string
	HasMore    bool
}

// DocumentSource reads notes on behalf of their owner.
type DocumentSource interface {
	// GetDocument returns domain.ErrDocumentNotFound or domain.ErrForbidden
	// when ownerID may not read the document.
	GetDocument(ctx context.Context, documentID, ownerID string) (*domain.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Document, error)
}

// DocumentRepositoryInterface stores notes.
type DocumentRepositoryInterface interface {
	DocumentSource
	Create(ctx context.Context, d *domain.Document) error
}

// IndexJobRepositoryInterface stores index jobs.
type IndexJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IndexJob) error
	GetByID(ctx context.Context, id string) (*domain.IndexJob, error)
}
