// Package memory is an in-process chunk store backed by chromem-go. It keeps
// nothing across restarts and suits development and tests.
package memory

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/cloo-solutions/notewise/internal/pagination"
	"github.com/cloo-solutions/notewise/internal/service"
	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
)

const (
	collectionName = "note_chunks"

	keyOwnerID    = "owner_id"
	keyDocumentID = "document_id"
)

// Store implements service.ChunkStore.
type Store struct {
	// mu makes replace and delete atomic with respect to readers.
	mu         sync.RWMutex
	collection *chromem.Collection
	dimension  int
	// chunks mirrors the collection with full domain records; chromem has
	// no way to list documents.
	chunks map[string]*domain.Chunk
	byDoc  map[string][]string
	now    func() time.Time
}

// New creates an empty store. dimension is enforced on write when positive.
func New(dimension int) (*Store, error) {
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return &Store{
		collection: collection,
		dimension:  dimension,
		chunks:     make(map[string]*domain.Chunk),
		byDoc:      make(map[string][]string),
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Store) ReplaceChunks(ctx context.Context, documentID, ownerID string, chunks []domain.ChunkInput) error {
	createdAt := s.now()
	rows := make([]*domain.Chunk, 0, len(chunks))
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		chunk := domain.NewChunk(uuid.NewString(), documentID, ownerID, c.Text, c.Embedding, c.Metadata.Clone(), createdAt)
		if err := domain.ValidateChunk(chunk, s.dimension); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid chunk", err)
		}
		rows = append(rows, chunk)
		docs = append(docs, chromem.Document{
			ID:        chunk.ID,
			Content:   chunk.Text,
			Embedding: append([]float32(nil), chunk.Embedding...),
			Metadata: map[string]string{
				keyOwnerID:    ownerID,
				keyDocumentID: documentID,
			},
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deleteLocked(ctx, documentID, ""); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		// Drop whatever part of the new set made it in.
		_ = s.collection.Delete(ctx, map[string]string{keyDocumentID: documentID}, nil)
		return domain.StoreUnavailable(fmt.Errorf("add chunks: %w", err))
	}

	ids := make([]string, 0, len(rows))
	for _, c := range rows {
		s.chunks[c.ID] = c
		ids = append(ids, c.ID)
	}
	s.byDoc[documentID] = ids
	return nil
}

func (s *Store) DeleteChunks(ctx context.Context, documentID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(ctx, documentID, ownerID)
}

// deleteLocked removes the document's chunks. An empty ownerID matches any owner.
func (s *Store) deleteLocked(ctx context.Context, documentID, ownerID string) error {
	ids := s.byDoc[documentID]
	if len(ids) == 0 {
		return nil
	}
	if ownerID != "" && s.chunks[ids[0]].OwnerID != ownerID {
		return nil
	}

	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return domain.StoreUnavailable(fmt.Errorf("delete chunks: %w", err))
	}
	for _, id := range ids {
		delete(s.chunks, id)
	}
	delete(s.byDoc, documentID)
	return nil
}

func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Chunk
	for _, c := range s.chunks {
		if c.OwnerID == ownerID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		ci, _ := out[i].Metadata.Int(domain.MetadataChunkIndex)
		cj, _ := out[j].Metadata.Int(domain.MetadataChunkIndex)
		return ci < cj
	})
	return out, nil
}

// SearchByEmbedding scores every chunk of the owner, drops those below
// threshold and returns the best limit.
func (s *Store) SearchByEmbedding(ctx context.Context, ownerID string, embedding []float32, limit int, threshold float64) ([]domain.RetrievalResult, error) {
	if limit <= 0 {
		return []domain.RetrievalResult{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := s.collection.Count()
	if count == 0 {
		return []domain.RetrievalResult{}, nil
	}

	matches, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       count,
		Where:          map[string]string{keyOwnerID: ownerID},
	})
	if err != nil {
		return nil, domain.StoreUnavailable(fmt.Errorf("query chunks: %w", err))
	}

	results := make([]domain.RetrievalResult, 0, limit)
	for _, m := range matches {
		similarity := float64(m.Similarity)
		if similarity < threshold {
			continue
		}
		c, ok := s.chunks[m.ID]
		if !ok || c.OwnerID != ownerID {
			continue
		}
		chunk := *c
		chunk.Embedding = nil
		results = append(results, domain.RetrievalResult{Chunk: chunk, Similarity: similarity})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func (s *Store) ListIndexedDocuments(_ context.Context, ownerID string, cursor *pagination.Cursor, limit int) (*service.IndexPage, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	var items []domain.DocumentIndexSummary
	for docID, ids := range s.byDoc {
		first := s.chunks[ids[0]]
		if first.OwnerID != ownerID {
			continue
		}
		items = append(items, domain.DocumentIndexSummary{
			DocumentID: docID,
			Title:      first.Metadata.String(domain.MetadataTitle),
			ChunkCount: len(ids),
			IndexedAt:  first.CreatedAt,
		})
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].IndexedAt.Equal(items[j].IndexedAt) {
			return items[i].IndexedAt.After(items[j].IndexedAt)
		}
		return items[i].DocumentID > items[j].DocumentID
	})

	if cursor != nil {
		start := len(items)
		for i, it := range items {
			if it.IndexedAt.Before(cursor.Timestamp) ||
				(it.IndexedAt.Equal(cursor.Timestamp) && it.DocumentID < cursor.LastID) {
				start = i
				break
			}
		}
		items = items[start:]
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.DocumentID, last.IndexedAt)
	}

	return &service.IndexPage{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
