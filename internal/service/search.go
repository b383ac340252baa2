package service

import (
	"context"

	"github.com/cloo-solutions/notewise/internal/domain"
)

// SearchEngine ranks an owner's chunks against a query vector.
type SearchEngine struct {
	store ChunkStore
}

// NewSearchEngine creates a SearchEngine over store.
func NewSearchEngine(store ChunkStore) *SearchEngine {
	return &SearchEngine{store: store}
}

// Search returns at most limit chunks of ownerID whose cosine similarity to
// queryEmbedding is at least threshold, most similar first. Below-threshold
// chunks are dropped before the limit is applied, so they never occupy a
// slot a qualifying chunk could fill.
func (e *SearchEngine) Search(ctx context.Context, queryEmbedding []float32, ownerID string, limit int, threshold float64) ([]domain.RetrievalResult, error) {
	if ownerID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "owner ID is required")
	}
	if len(queryEmbedding) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query embedding is required")
	}
	if limit <= 0 {
		return []domain.RetrievalResult{}, nil
	}

	candidates, err := e.store.SearchByEmbedding(ctx, ownerID, queryEmbedding, limit, threshold)
	if err != nil {
		return nil, err
	}

	// The store already filters; this keeps the tenancy and threshold
	// guarantees independent of the backend.
	results := make([]domain.RetrievalResult, 0, len(candidates))
	for _, r := range candidates {
		if r.Chunk.OwnerID != ownerID || r.Similarity < threshold {
			continue
		}
		results = append(results, r)
		if len(results) == limit {
			break
		}
	}
	return results, nil
}
