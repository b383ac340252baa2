package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingClient mocks the upstream embedding client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func TestEmbedder_Embed_Success(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	embedder := NewEmbedder(mockClient, EmbedderConfig{Dimension: 3})
	ctx := context.Background()

	mockClient.On("GenerateEmbedding", ctx, "hello").Return([]float32{0.1, 0.2, 0.3}, nil)

	vec, err := embedder.Embed(ctx, "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	mockClient.AssertExpectations(t)
}

func TestEmbedder_Embed_UpstreamError(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	embedder := NewEmbedder(mockClient, EmbedderConfig{Dimension: 3})
	ctx := context.Background()
	upstream := errors.New("quota exceeded")

	mockClient.On("GenerateEmbedding", ctx, "hello").Return(nil, upstream)

	vec, err := embedder.Embed(ctx, "hello")

	assert.Nil(t, vec)
	var embErr *domain.EmbeddingServiceError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, "hello", embErr.Text)
	assert.Equal(t, -1, embErr.Index)
	assert.ErrorIs(t, err, upstream)
}

func TestEmbedder_Embed_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		vec    []float32
		errMsg string
	}{
		{"empty vector", []float32{}, "no embedding returned"},
		{"wrong dimension", []float32{0.1, 0.2}, "expected 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := new(MockEmbeddingClient)
			embedder := NewEmbedder(mockClient, EmbedderConfig{Dimension: 3})
			mockClient.On("GenerateEmbedding", mock.Anything, "x").Return(tt.vec, nil)

			vec, err := embedder.Embed(context.Background(), "x")

			assert.Nil(t, vec)
			var embErr *domain.EmbeddingServiceError
			require.ErrorAs(t, err, &embErr)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestEmbedder_EmbedBatch_PreservesOrder(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	embedder := NewEmbedder(mockClient, EmbedderConfig{Dimension: 1, Concurrency: 4})

	// Earlier inputs finish later so completion order differs from input order.
	mockClient.On("GenerateEmbedding", mock.Anything, "a").
		Run(func(mock.Arguments) { time.Sleep(30 * time.Millisecond) }).
		Return([]float32{1}, nil)
	mockClient.On("GenerateEmbedding", mock.Anything, "b").
		Run(func(mock.Arguments) { time.Sleep(15 * time.Millisecond) }).
		Return([]float32{2}, nil)
	mockClient.On("GenerateEmbedding", mock.Anything, "c").Return([]float32{3}, nil)

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {3}}, vectors)
	mockClient.AssertExpectations(t)
}

func TestEmbedder_EmbedBatch_FailureCarriesIndex(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	embedder := NewEmbedder(mockClient, EmbedderConfig{Dimension: 1})

	mockClient.On("GenerateEmbedding", mock.Anything, "a").Return([]float32{1}, nil)
	mockClient.On("GenerateEmbedding", mock.Anything, "b").Return(nil, errors.New("boom"))
	mockClient.On("GenerateEmbedding", mock.Anything, "c").Return([]float32{3}, nil).Maybe()

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"a", "b", "c"})

	assert.Nil(t, vectors)
	var embErr *domain.EmbeddingServiceError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, 1, embErr.Index)
	assert.Equal(t, "b", embErr.Text)
}

func TestEmbedder_EmbedBatch_Empty(t *testing.T) {
	embedder := NewEmbedder(new(MockEmbeddingClient), EmbedderConfig{})

	vectors, err := embedder.EmbedBatch(context.Background(), nil)

	assert.NoError(t, err)
	assert.Nil(t, vectors)
}

type countingClient struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (c *countingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return []float32{1}, nil
}

func TestEmbedder_EmbedBatch_BoundsConcurrency(t *testing.T) {
	client := &countingClient{}
	embedder := NewEmbedder(client, EmbedderConfig{Concurrency: 2})

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = "t"
	}

	_, err := embedder.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	assert.LessOrEqual(t, client.maxSeen.Load(), int32(2))
}

func TestEmbedder_RateLimitHonoursContext(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	embedder := NewEmbedder(mockClient, EmbedderConfig{RatePerSecond: 0.001})
	mockClient.On("GenerateEmbedding", mock.Anything, "first").Return([]float32{1}, nil)

	_, err := embedder.Embed(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = embedder.Embed(ctx, "second")

	var embErr *domain.EmbeddingServiceError
	assert.ErrorAs(t, err, &embErr)
	mockClient.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, "second")
}
