package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixedUUID struct {
	ids []string
}

func (g *fixedUUID) NewString() string {
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id
}

func TestIndexJobService_Enqueue(t *testing.T) {
	ctx := context.Background()

	t.Run("index job checks the document", func(t *testing.T) {
		docs := new(MockDocumentSource)
		jobs := new(MockIndexJobRepository)
		svc := NewIndexJobService(docs, jobs)
		svc.uuidGen = &fixedUUID{ids: []string{"job-1"}}

		docs.On("GetDocument", ctx, "doc1", "user1").Return(&domain.Document{ID: "doc1", OwnerID: "user1"}, nil)
		jobs.On("Create", ctx, mock.MatchedBy(func(j *domain.IndexJob) bool {
			return j.ID == "job-1" && j.Action == domain.IndexJobActionIndex && j.Status == domain.IndexJobStatusPending
		})).Return(nil)

		job, err := svc.Enqueue(ctx, "doc1", "user1", "")

		require.NoError(t, err)
		assert.Equal(t, "job-1", job.ID)
		jobs.AssertExpectations(t)
	})

	t.Run("index job for a foreign document", func(t *testing.T) {
		docs := new(MockDocumentSource)
		jobs := new(MockIndexJobRepository)
		svc := NewIndexJobService(docs, jobs)

		docs.On("GetDocument", ctx, "doc1", "user2").Return(nil, domain.ErrForbidden)

		_, err := svc.Enqueue(ctx, "doc1", "user2", domain.IndexJobActionIndex)

		assert.ErrorIs(t, err, domain.ErrForbidden)
		jobs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("remove job skips the document lookup", func(t *testing.T) {
		docs := new(MockDocumentSource)
		jobs := new(MockIndexJobRepository)
		svc := NewIndexJobService(docs, jobs)

		jobs.On("Create", ctx, mock.Anything).Return(nil)

		job, err := svc.Enqueue(ctx, "gone", "user1", domain.IndexJobActionRemove)

		require.NoError(t, err)
		assert.Equal(t, domain.IndexJobActionRemove, job.Action)
		docs.AssertNotCalled(t, "GetDocument", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid action", func(t *testing.T) {
		svc := NewIndexJobService(new(MockDocumentSource), new(MockIndexJobRepository))

		_, err := svc.Enqueue(ctx, "doc1", "user1", "explode")

		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	})

	t.Run("repository failure", func(t *testing.T) {
		jobs := new(MockIndexJobRepository)
		svc := NewIndexJobService(new(MockDocumentSource), jobs)
		jobs.On("Create", ctx, mock.Anything).Return(errors.New("db down"))

		_, err := svc.Enqueue(ctx, "doc1", "user1", domain.IndexJobActionRemove)

		assert.ErrorContains(t, err, "failed to create index job")
	})
}

func TestIndexJobService_Get(t *testing.T) {
	ctx := context.Background()
	jobs := new(MockIndexJobRepository)
	svc := NewIndexJobService(new(MockDocumentSource), jobs)
	jobs.On("GetByID", ctx, "job-1").Return(&domain.IndexJob{ID: "job-1", OwnerID: "user1"}, nil)

	job, err := svc.Get(ctx, "job-1", "user1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)

	_, err = svc.Get(ctx, "job-1", "user2")
	assert.ErrorIs(t, err, domain.ErrIndexJobNotFound)
}
