package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func docJSON(t *testing.T, text string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(domain.NewTextDocument(text))
	require.NoError(t, err)
	return raw
}

func TestIndexer_ReindexDocument_Success(t *testing.T) {
	store := new(MockChunkStore)
	embedder := new(MockTextEmbedder)
	indexer := NewIndexer(nil, store, embedder, IndexerConfig{ChunkSize: 1000, EmbeddingModel: "test-model"})
	ctx := context.Background()

	text := "Paris is the capital of France. It is known for the Eiffel Tower."
	embedder.On("EmbedBatch", mock.Anything, []string{text}).Return([][]float32{{0.1, 0.2}}, nil)
	store.On("ReplaceChunks", mock.Anything, "doc1", "user1", mock.MatchedBy(func(chunks []domain.ChunkInput) bool {
		if len(chunks) != 1 {
			return false
		}
		c := chunks[0]
		idx, _ := c.Metadata.Int(domain.MetadataChunkIndex)
		total, _ := c.Metadata.Int(domain.MetadataTotalChunks)
		return c.Text == text &&
			c.Metadata.String(domain.MetadataTitle) == "Trip" &&
			c.Metadata.String(domain.MetadataSource) == domain.SourceUpload &&
			c.Metadata.String(domain.MetadataEmbeddingModel) == "test-model" &&
			idx == 0 && total == 1
	})).Return(nil)

	result, err := indexer.ReindexDocument(ctx, ReindexInput{
		DocumentID: "doc1",
		OwnerID:    "user1",
		Title:      "Trip",
		Source:     domain.SourceUpload,
		Content:    docJSON(t, text),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksCreated)
	assert.Equal(t, domain.ReindexStateDone, result.State)
	store.AssertExpectations(t)
	embedder.AssertExpectations(t)
}

func TestIndexer_ReindexDocument_GuardsContent(t *testing.T) {
	tests := []struct {
		name    string
		content json.RawMessage
		wantErr error
	}{
		{"empty document", json.RawMessage(`{"type":"doc"}`), domain.ErrExtractionEmpty},
		{"malformed document", json.RawMessage(`{"type":`), domain.ErrExtractionEmpty},
		{"too short", nil, domain.ErrContentTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockChunkStore)
			embedder := new(MockTextEmbedder)
			indexer := NewIndexer(nil, store, embedder, IndexerConfig{})

			content := tt.content
			if content == nil {
				content = docJSON(t, "tiny")
			}

			result, err := indexer.ReindexDocument(context.Background(), ReindexInput{DocumentID: "doc1", OwnerID: "user1", Content: content})

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, domain.ReindexStateFailed, result.State)
			embedder.AssertNotCalled(t, "EmbedBatch", mock.Anything, mock.Anything)
			store.AssertNotCalled(t, "ReplaceChunks", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestIndexer_ReindexDocument_EmbeddingFailureLeavesStoreUntouched(t *testing.T) {
	store := new(MockChunkStore)
	embedder := new(MockTextEmbedder)
	indexer := NewIndexer(nil, store, embedder, IndexerConfig{ChunkSize: 20})

	embErr := &domain.EmbeddingServiceError{Index: 1, Text: "Second sentence.", Err: errors.New("upstream 500")}
	embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(nil, embErr)

	result, err := indexer.ReindexDocument(context.Background(), ReindexInput{
		DocumentID: "doc1",
		OwnerID:    "user1",
		Content:    docJSON(t, "First sentence. Second sentence."),
	})

	var target *domain.EmbeddingServiceError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 1, target.Index)
	assert.Equal(t, domain.ReindexStateFailed, result.State)
	assert.Zero(t, result.ChunksCreated)
	store.AssertNotCalled(t, "ReplaceChunks", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIndexer_ReindexDocument_StoreFailure(t *testing.T) {
	store := new(MockChunkStore)
	embedder := new(MockTextEmbedder)
	indexer := NewIndexer(nil, store, embedder, IndexerConfig{})

	embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{{1}}, nil)
	store.On("ReplaceChunks", mock.Anything, "doc1", "user1", mock.Anything).Return(domain.StoreUnavailable(errors.New("down")))

	result, err := indexer.ReindexDocument(context.Background(), ReindexInput{
		DocumentID: "doc1",
		OwnerID:    "user1",
		Content:    docJSON(t, "Enough text to index."),
	})

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, domain.ReindexStateFailed, result.State)
}

func TestIndexer_ReindexDocument_MisalignedBatch(t *testing.T) {
	store := new(MockChunkStore)
	embedder := new(MockTextEmbedder)
	indexer := NewIndexer(nil, store, embedder, IndexerConfig{ChunkSize: 20})

	embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{{1}}, nil)

	_, err := indexer.ReindexDocument(context.Background(), ReindexInput{
		DocumentID: "doc1",
		OwnerID:    "user1",
		Content:    docJSON(t, "First sentence. Second sentence."),
	})

	var target *domain.EmbeddingServiceError
	assert.ErrorAs(t, err, &target)
	store.AssertNotCalled(t, "ReplaceChunks", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIndexer_ReindexAllForOwner_IsolatesFailures(t *testing.T) {
	docs := new(MockDocumentSource)
	store := new(MockChunkStore)
	embedder := new(MockTextEmbedder)
	indexer := NewIndexer(docs, store, embedder, IndexerConfig{Concurrency: 2})
	ctx := context.Background()

	texts := []string{
		"Document one has text.",
		"Document two has text.",
		"Document three has text.",
		"Document four has text.",
		"Document five has text.",
	}
	var list []*domain.Document
	for i, text := range texts {
		list = append(list, &domain.Document{ID: string(rune('a' + i)), OwnerID: "user1", Content: docJSON(t, text)})
	}
	docs.On("ListByOwner", ctx, "user1").Return(list, nil)

	for i, text := range texts {
		if i == 2 {
			embedder.On("EmbedBatch", mock.Anything, []string{text}).
				Return(nil, &domain.EmbeddingServiceError{Index: 0, Text: text, Err: errors.New("boom")})
			continue
		}
		embedder.On("EmbedBatch", mock.Anything, []string{text}).Return([][]float32{{1}}, nil)
	}
	store.On("ReplaceChunks", mock.Anything, mock.Anything, "user1", mock.Anything).Return(nil)

	summary, err := indexer.ReindexAllForOwner(ctx, "user1")

	require.NoError(t, err)
	assert.Equal(t, &domain.ReindexSummary{SuccessCount: 4, ErrorCount: 1, TotalDocuments: 5}, summary)
	store.AssertNumberOfCalls(t, "ReplaceChunks", 4)
	store.AssertNotCalled(t, "ReplaceChunks", mock.Anything, "c", mock.Anything, mock.Anything)
}

func TestIndexer_ReindexAllForOwner_CountsShortDocumentsAsErrors(t *testing.T) {
	docs := new(MockDocumentSource)
	store := new(MockChunkStore)
	embedder := new(MockTextEmbedder)
	indexer := NewIndexer(docs, store, embedder, IndexerConfig{})
	ctx := context.Background()

	docs.On("ListByOwner", ctx, "user1").Return([]*domain.Document{
		{ID: "a", Content: docJSON(t, "Long enough to index.")},
		{ID: "b", Content: docJSON(t, "short")},
		{ID: "c", Content: nil},
	}, nil)
	embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{{1}}, nil)
	store.On("ReplaceChunks", mock.Anything, "a", "user1", mock.Anything).Return(nil)

	summary, err := indexer.ReindexAllForOwner(ctx, "user1")

	require.NoError(t, err)
	assert.Equal(t, 1, summary.SuccessCount)
	assert.Equal(t, 2, summary.ErrorCount)
	assert.Equal(t, 3, summary.TotalDocuments)
}

func TestIndexer_ReindexAllForOwner_ListError(t *testing.T) {
	docs := new(MockDocumentSource)
	indexer := NewIndexer(docs, new(MockChunkStore), new(MockTextEmbedder), IndexerConfig{})
	ctx := context.Background()

	docs.On("ListByOwner", ctx, "user1").Return(nil, errors.New("db down"))

	summary, err := indexer.ReindexAllForOwner(ctx, "user1")

	assert.Nil(t, summary)
	assert.Error(t, err)
}

// slowStore records the peak number of concurrent ReplaceChunks calls per document.
type slowStore struct {
	MockChunkStore
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowStore) ReplaceChunks(ctx context.Context, documentID, ownerID string, chunks []domain.ChunkInput) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	if n > s.peak.Load() {
		s.peak.Store(n)
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

func TestIndexer_ReindexDocument_SerialisesSameDocument(t *testing.T) {
	store := &slowStore{}
	embedder := new(MockTextEmbedder)
	indexer := NewIndexer(nil, store, embedder, IndexerConfig{})
	embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{{1}}, nil)

	content := docJSON(t, "Same document edited twice.")
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := indexer.ReindexDocument(context.Background(), ReindexInput{DocumentID: "doc1", OwnerID: "user1", Content: content})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.peak.Load())
	assert.Empty(t, indexer.locks.locks)
}
