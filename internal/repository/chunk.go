package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/cloo-solutions/notewise/internal/pagination"
	"github.com/cloo-solutions/notewise/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository handles persistence of note chunks and their embeddings.
type ChunkRepository struct {
	pool      *pgxpool.Pool
	db        dbtx
	dimension int
}

func NewChunkRepository(pool *pgxpool.Pool, dimension int) *ChunkRepository {
	return &ChunkRepository{pool: pool, db: pool, dimension: dimension}
}

// ReplaceChunks deletes existing chunks for a document and inserts new ones
// in a single transaction.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID, ownerID string, chunks []domain.ChunkInput) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.StoreUnavailable(fmt.Errorf("begin replace: %w", err))
	}

	if err := r.replaceChunks(ctx, tx, documentID, ownerID, chunks); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.StoreUnavailable(fmt.Errorf("commit replace: %w", err))
	}
	return nil
}

func (r *ChunkRepository) replaceChunks(ctx context.Context, db dbtx, documentID, ownerID string, chunks []domain.ChunkInput) error {
	createdAt := time.Now().UTC()
	rows := make([]*domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		chunk := domain.NewChunk(uuid.NewString(), documentID, ownerID, c.Text, c.Embedding, c.Metadata, createdAt)
		if err := domain.ValidateChunk(chunk, r.dimension); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid chunk", err)
		}
		rows = append(rows, chunk)
	}

	_, err := db.Exec(ctx, `DELETE FROM note_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return domain.StoreUnavailable(fmt.Errorf("delete chunks: %w", err))
	}

	for _, c := range rows {
		metadata, err := marshalMetadata(c.Metadata)
		if err != nil {
			return err
		}
		_, err = db.Exec(ctx,
			`INSERT INTO note_chunks (id, document_id, owner_id, content, embedding, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID,
			c.DocumentID,
			c.OwnerID,
			c.Text,
			pgvector.NewVector(c.Embedding),
			metadata,
			c.CreatedAt,
		)
		if err != nil {
			return domain.StoreUnavailable(fmt.Errorf("insert chunk: %w", err))
		}
	}

	return nil
}

// DeleteChunks removes every chunk of a document owned by ownerID.
func (r *ChunkRepository) DeleteChunks(ctx context.Context, documentID, ownerID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM note_chunks WHERE document_id = $1 AND owner_id = $2`,
		documentID, ownerID,
	)
	if err != nil {
		return domain.StoreUnavailable(fmt.Errorf("delete chunks: %w", err))
	}
	return nil
}

func (r *ChunkRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, owner_id, content, embedding, metadata, created_at
		 FROM note_chunks
		 WHERE owner_id = $1
		 ORDER BY document_id, COALESCE((metadata->>'chunk_index')::int, 0), id`,
		ownerID,
	)
	if err != nil {
		return nil, domain.StoreUnavailable(fmt.Errorf("list chunks: %w", err))
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var embedding pgvector.Vector
		var metadata []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.OwnerID, &c.Text, &embedding, &metadata, &c.CreatedAt); err != nil {
			return nil, domain.StoreUnavailable(fmt.Errorf("scan chunk: %w", err))
		}
		c.Embedding = embedding.Slice()
		if c.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		chunks = append(chunks, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	return chunks, nil
}

// SearchByEmbedding ranks the owner's chunks by cosine similarity. The
// threshold is applied before the limit.
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, ownerID string, embedding []float32, limit int, threshold float64) ([]domain.RetrievalResult, error) {
	if limit <= 0 {
		return []domain.RetrievalResult{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, owner_id, content, metadata, created_at, similarity
		 FROM (
			 SELECT id, document_id, owner_id, content, metadata, created_at,
			        1 - (embedding <=> $2) AS similarity
			 FROM note_chunks
			 WHERE owner_id = $1
		 ) scored
		 WHERE similarity >= $3
		 ORDER BY similarity DESC, created_at ASC, id ASC
		 LIMIT $4`,
		ownerID, pgvector.NewVector(embedding), threshold, limit,
	)
	if err != nil {
		return nil, domain.StoreUnavailable(fmt.Errorf("search chunks: %w", err))
	}
	defer rows.Close()

	results := make([]domain.RetrievalResult, 0, limit)
	for rows.Next() {
		var res domain.RetrievalResult
		var metadata []byte
		c := &res.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.OwnerID, &c.Text, &metadata, &c.CreatedAt, &res.Similarity); err != nil {
			return nil, domain.StoreUnavailable(fmt.Errorf("scan result: %w", err))
		}
		if c.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	return results, nil
}

// ListIndexedDocuments pages through the owner's indexed documents, most
// recently indexed first.
func (r *ChunkRepository) ListIndexedDocuments(ctx context.Context, ownerID string, cursor *pagination.Cursor, limit int) (*service.IndexPage, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT c.document_id::text, COALESCE(n.title, ''), COUNT(*), MAX(c.created_at) AS indexed_at
			 FROM note_chunks c
			 LEFT JOIN notes n ON n.id = c.document_id
			 WHERE c.owner_id = $1
			 GROUP BY c.document_id, n.title
			 HAVING (MAX(c.created_at), c.document_id::text) < ($2, $3)
			 ORDER BY indexed_at DESC, c.document_id::text DESC
			 LIMIT $4`,
			ownerID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT c.document_id::text, COALESCE(n.title, ''), COUNT(*), MAX(c.created_at) AS indexed_at
			 FROM note_chunks c
			 LEFT JOIN notes n ON n.id = c.document_id
			 WHERE c.owner_id = $1
			 GROUP BY c.document_id, n.title
			 ORDER BY indexed_at DESC, c.document_id::text DESC
			 LIMIT $2`,
			ownerID, limit+1,
		)
	}
	if err != nil {
		return nil, domain.StoreUnavailable(fmt.Errorf("list indexed documents: %w", err))
	}
	defer rows.Close()

	var items []domain.DocumentIndexSummary
	for rows.Next() {
		var s domain.DocumentIndexSummary
		if err := rows.Scan(&s.DocumentID, &s.Title, &s.ChunkCount, &s.IndexedAt); err != nil {
			return nil, domain.StoreUnavailable(fmt.Errorf("scan summary: %w", err))
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreUnavailable(err)
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

func marshalMetadata(m domain.Metadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "chunk metadata is not serializable", err)
	}
	return data, nil
}

func unmarshalMetadata(data []byte) (domain.Metadata, error) {
	if len(data) == 0 {
		return domain.Metadata{}, nil
	}
	var m domain.Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, domain.StoreUnavailable(fmt.Errorf("decode chunk metadata: %w", err))
	}
	return m, nil
}
