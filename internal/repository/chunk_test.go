//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/cloo-solutions/notewise/internal/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkInputs(texts ...string) []domain.ChunkInput {
	inputs := make([]domain.ChunkInput, len(texts))
	for i, text := range texts {
		inputs[i] = domain.ChunkInput{
			Text:      text,
			Embedding: basis(i),
			Metadata: domain.Metadata{
				domain.MetadataChunkIndex:  i,
				domain.MetadataTotalChunks: len(texts),
			},
		}
	}
	return inputs
}

func TestChunkRepository_ReplaceChunks(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewChunkRepository(pool, testDimension)
	docID := uuid.NewString()

	require.NoError(t, repo.ReplaceChunks(ctx, docID, "alice", chunkInputs("a", "b", "c")))
	require.NoError(t, repo.ReplaceChunks(ctx, docID, "alice", chunkInputs("x", "y")))

	chunks, err := repo.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "x", chunks[0].Text)
	assert.Equal(t, "y", chunks[1].Text)
	assert.Len(t, chunks[0].Embedding, testDimension)
	idx, ok := chunks[1].Metadata.Int(domain.MetadataChunkIndex)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestChunkRepository_ReplaceChunksWrongDimensionKeepsOldSet(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewChunkRepository(pool, testDimension)
	docID := uuid.NewString()

	require.NoError(t, repo.ReplaceChunks(ctx, docID, "alice", chunkInputs("a")))

	err := repo.ReplaceChunks(ctx, docID, "alice", []domain.ChunkInput{{Text: "short", Embedding: []float32{1, 2}}})
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)

	chunks, err := repo.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a", chunks[0].Text)
}

func TestChunkRepository_ReplaceChunksEmptyClears(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewChunkRepository(pool, testDimension)
	docID := uuid.NewString()

	require.NoError(t, repo.ReplaceChunks(ctx, docID, "alice", chunkInputs("a", "b")))
	require.NoError(t, repo.ReplaceChunks(ctx, docID, "alice", nil))

	chunks, err := repo.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkRepository_DeleteChunksScopedToOwner(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewChunkRepository(pool, testDimension)
	docID := uuid.NewString()

	require.NoError(t, repo.ReplaceChunks(ctx, docID, "alice", chunkInputs("a")))

	require.NoError(t, repo.DeleteChunks(ctx, docID, "bob"))
	chunks, err := repo.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)

	require.NoError(t, repo.DeleteChunks(ctx, docID, "alice"))
	chunks, err = repo.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkRepository_SearchByEmbedding(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewChunkRepository(pool, testDimension)

	aliceDoc := uuid.NewString()
	require.NoError(t, repo.ReplaceChunks(ctx, aliceDoc, "alice", []domain.ChunkInput{
		{Text: "exact", Embedding: basis(0)},
		{Text: "close", Embedding: basis(0, 1)},
		{Text: "orthogonal", Embedding: basis(2)},
	}))
	require.NoError(t, repo.ReplaceChunks(ctx, uuid.NewString(), "bob", []domain.ChunkInput{
		{Text: "bob exact", Embedding: basis(0)},
	}))

	t.Run("threshold before limit", func(t *testing.T) {
		results, err := repo.SearchByEmbedding(ctx, "alice", basis(0), 10, 0.5)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "exact", results[0].Chunk.Text)
		assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
		assert.Equal(t, "close", results[1].Chunk.Text)
		assert.InDelta(t, 0.7071, results[1].Similarity, 1e-3)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := repo.SearchByEmbedding(ctx, "alice", basis(0), 1, -1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "exact", results[0].Chunk.Text)
	})

	t.Run("owner isolation", func(t *testing.T) {
		results, err := repo.SearchByEmbedding(ctx, "alice", basis(0), 10, -1)
		require.NoError(t, err)
		assert.Len(t, results, 3)
		for _, r := range results {
			assert.Equal(t, "alice", r.Chunk.OwnerID)
			assert.Equal(t, aliceDoc, r.Chunk.DocumentID)
		}
	})

	t.Run("no results", func(t *testing.T) {
		results, err := repo.SearchByEmbedding(ctx, "carol", basis(0), 10, 0)
		require.NoError(t, err)
		assert.Empty(t, results)

		results, err = repo.SearchByEmbedding(ctx, "alice", basis(0), 0, 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestChunkRepository_ListIndexedDocuments(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewChunkRepository(pool, testDimension)
	docs := NewDocumentRepository(pool)

	first := createNote(ctx, t, docs, "alice", "First", "first body")
	second := createNote(ctx, t, docs, "alice", "Second", "second body")
	require.NoError(t, repo.ReplaceChunks(ctx, first.ID, "alice", chunkInputs("a", "b")))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.ReplaceChunks(ctx, second.ID, "alice", chunkInputs("c")))

	page, err := repo.ListIndexedDocuments(ctx, "alice", nil, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.True(t, page.HasMore)
	assert.Equal(t, second.ID, page.Items[0].DocumentID)
	assert.Equal(t, "Second", page.Items[0].Title)
	assert.Equal(t, 1, page.Items[0].ChunkCount)

	cursor, err := pagination.DecodeCursor(page.NextCursor)
	require.NoError(t, err)

	page, err = repo.ListIndexedDocuments(ctx, "alice", cursor, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
	assert.Equal(t, first.ID, page.Items[0].DocumentID)
	assert.Equal(t, 2, page.Items[0].ChunkCount)
}
