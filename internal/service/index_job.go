package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/notewise/internal/domain"
)

// IndexJobService queues index work for the background worker.
type IndexJobService struct {
	docs    DocumentSource
	jobs    IndexJobRepositoryInterface
	uuidGen UUIDGenerator
}

// NewIndexJobService creates an IndexJobService.
func NewIndexJobService(docs DocumentSource, jobs IndexJobRepositoryInterface) *IndexJobService {
	return &IndexJobService{
		docs:    docs,
		jobs:    jobs,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// Enqueue records a pending job for documentID. Index jobs require the
// document to exist and belong to ownerID; remove jobs do not, since the
// note may already be gone.
func (s *IndexJobService) Enqueue(ctx context.Context, documentID, ownerID string, action domain.IndexJobAction) (*domain.IndexJob, error) {
	if documentID == "" || ownerID == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if action == "" {
		action = domain.IndexJobActionIndex
	}

	if action == domain.IndexJobActionIndex {
		if _, err := s.docs.GetDocument(ctx, documentID, ownerID); err != nil {
			return nil, err
		}
	}

	job := domain.NewIndexJob(
		s.uuidGen.NewString(),
		documentID,
		ownerID,
		action,
		domain.IndexJobStatusPending,
		0,
		"",
		time.Now().UTC(),
		nil,
	)
	if err := domain.ValidateIndexJob(job); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid index job", err)
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create index job: %w", err)
	}
	return job, nil
}

// Get returns a job if it belongs to ownerID.
func (s *IndexJobService) Get(ctx context.Context, jobID, ownerID string) (*domain.IndexJob, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, domain.ErrIndexJobNotFound
	}
	return job, nil
}
