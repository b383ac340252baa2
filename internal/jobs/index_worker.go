package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/cloo-solutions/notewise/internal/telemetry"
	"github.com/rs/zerolog/log"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3
)

// IndexJobRepository defines the interface for index job persistence
type IndexJobRepository interface {
	// GetPendingJobs retrieves and claims pending index jobs
	GetPendingJobs(ctx context.Context) ([]*domain.IndexJob, error)

	// UpdateJobStatus updates the status of an index job
	UpdateJobStatus(ctx context.Context, jobID string, status domain.IndexJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, jobID string) error
}

// IndexService runs the work a job describes.
type IndexService interface {
	IndexDocument(ctx context.Context, documentID, ownerID string) (*domain.ReindexResult, error)
	RemoveDocumentIndex(ctx context.Context, documentID, ownerID string) error
}

// IndexWorker processes index jobs
type IndexWorker struct {
	repo    IndexJobRepository
	service IndexService
}

// NewIndexWorker creates a new IndexWorker instance
func NewIndexWorker(repo IndexJobRepository, service IndexService) *IndexWorker {
	return &IndexWorker{
		repo:    repo,
		service: service,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IndexWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Debug().Int("count", len(jobs)).Msg("processing pending index jobs")

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("error processing job")
		}
	}

	return nil
}

func (w *IndexWorker) processJob(ctx context.Context, job *domain.IndexJob) error {
	logger := log.With().
		Str("job_id", job.ID).
		Str("document_id", job.DocumentID).
		Str("action", string(job.Action)).
		Logger()

	ctx, span := telemetry.StartTransaction(ctx, "index_job."+string(job.Action), "queue.process")
	defer span.End()
	span.SetData("job_id", job.ID)
	span.SetData("document_id", job.DocumentID)

	var err error
	switch job.Action {
	case domain.IndexJobActionIndex:
		var result *domain.ReindexResult
		result, err = w.service.IndexDocument(ctx, job.DocumentID, job.OwnerID)
		if err == nil {
			logger.Info().Int("chunks", result.ChunksCreated).Bool("skipped", result.Skipped).Msg("document indexed")
		}
	case domain.IndexJobActionRemove:
		err = w.service.RemoveDocumentIndex(ctx, job.DocumentID, job.OwnerID)
	default:
		err = fmt.Errorf("unknown action %q", job.Action)
	}

	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IndexJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	logger.Debug().Msg("job completed")
	return nil
}

// handleJobFailure handles a failed job with retry logic. Errors that will
// not change on retry fail the job at once.
func (w *IndexWorker) handleJobFailure(ctx context.Context, job *domain.IndexJob, jobErr error) error {
	log.Warn().Err(jobErr).Str("job_id", job.ID).Msg("job failed")

	if isPermanent(jobErr) {
		telemetry.CaptureError(ctx, jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IndexJobStatusFailed, jobErr.Error()); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Warn().Str("job_id", job.ID).Int("max_retries", MaxRetries).Msg("job exceeded max retries, marking as failed")
		telemetry.CaptureError(ctx, jobErr)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IndexJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	telemetry.AddBreadcrumb(ctx, "index_job", errMsg)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IndexJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}

func isPermanent(err error) bool {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	switch domainErr.Code {
	case domain.ErrCodeValidation, domain.ErrCodeNotFound, domain.ErrCodeForbidden:
		return true
	}
	return false
}
