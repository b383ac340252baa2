package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/notewise/internal/api"
	"github.com/cloo-solutions/notewise/internal/api/middleware"
	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/cloo-solutions/notewise/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type IndexService interface {
	IndexDocument(ctx context.Context, documentID, ownerID string) (*domain.ReindexResult, error)
	RemoveDocumentIndex(ctx context.Context, documentID, ownerID string) error
	ReindexAll(ctx context.Context, ownerID string) (*domain.ReindexSummary, error)
	ListIndex(ctx context.Context, in service.ListIndexInput) (*service.IndexPage, error)
}

type JobService interface {
	Enqueue(ctx context.Context, documentID, ownerID string, action domain.IndexJobAction) (*domain.IndexJob, error)
	Get(ctx context.Context, jobID, ownerID string) (*domain.IndexJob, error)
}

type IndexHandler struct {
	svc  IndexService
	jobs JobService
}

// NewIndexHandler creates an IndexHandler. jobs may be nil when no queue is
// configured; the jobs endpoint then answers 503.
func NewIndexHandler(svc IndexService, jobs JobService) *IndexHandler {
	return &IndexHandler{svc: svc, jobs: jobs}
}

type ReindexResultResponse struct {
	DocumentID    string `json:"document_id"`
	ChunksCreated int    `json:"chunks_created"`
	State         string `json:"state"`
	Skipped       bool   `json:"skipped"`
}

type ReindexSummaryResponse struct {
	SuccessCount   int `json:"success_count"`
	ErrorCount     int `json:"error_count"`
	TotalDocuments int `json:"total_documents"`
}

type EnqueueJobRequest struct {
	Action string `json:"action"`
}

type IndexJobResponse struct {
	ID          string  `json:"id"`
	DocumentID  string  `json:"document_id"`
	Action      string  `json:"action"`
	Status      string  `json:"status"`
	Retries     int32   `json:"retries"`
	Error       string  `json:"error,omitempty"`
	CreatedAt   string  `json:"created_at"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}

func toIndexJobResponse(job *domain.IndexJob) IndexJobResponse {
	resp := IndexJobResponse{
		ID:         job.ID,
		DocumentID: job.DocumentID,
		Action:     string(job.Action),
		Status:     string(job.Status),
		Retries:    job.Retries,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt.Format(time.RFC3339),
	}
	if job.ProcessedAt != nil {
		processed := job.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &processed
	}
	return resp
}

type IndexedDocumentResponse struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	ChunkCount int    `json:"chunk_count"`
	IndexedAt  string `json:"indexed_at"`
}

type IndexListResponse struct {
	Items   []IndexedDocumentResponse `json:"items"`
	Cursor  string                    `json:"cursor,omitempty"`
	HasMore bool                      `json:"has_more"`
}

// documentID reads and checks the {id} path parameter.
func documentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		api.Error(w, http.StatusBadRequest, "id must be a UUID")
		return "", false
	}
	return id, true
}

func (h *IndexHandler) IndexDocument(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := documentID(w, r)
	if !ok {
		return
	}

	result, err := h.svc.IndexDocument(r.Context(), id, ownerID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ReindexResultResponse{
		DocumentID:    result.DocumentID,
		ChunksCreated: result.ChunksCreated,
		State:         string(result.State),
		Skipped:       result.Skipped,
	})
}

func (h *IndexHandler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := documentID(w, r)
	if !ok {
		return
	}

	if err := h.svc.RemoveDocumentIndex(r.Context(), id, ownerID); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *IndexHandler) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.jobs == nil {
		api.Error(w, http.StatusServiceUnavailable, "job queue is not configured")
		return
	}

	id, ok := documentID(w, r)
	if !ok {
		return
	}

	var req EnqueueJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.jobs.Enqueue(r.Context(), id, ownerID, domain.IndexJobAction(req.Action))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, toIndexJobResponse(job))
}

func (h *IndexHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.jobs == nil {
		api.Error(w, http.StatusServiceUnavailable, "job queue is not configured")
		return
	}

	jobID := chi.URLParam(r, "jobID")
	if _, err := uuid.Parse(jobID); err != nil {
		api.Error(w, http.StatusBadRequest, "job id must be a UUID")
		return
	}

	job, err := h.jobs.Get(r.Context(), jobID, ownerID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, toIndexJobResponse(job))
}

func (h *IndexHandler) ReindexAll(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.svc.ReindexAll(r.Context(), ownerID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ReindexSummaryResponse{
		SuccessCount:   summary.SuccessCount,
		ErrorCount:     summary.ErrorCount,
		TotalDocuments: summary.TotalDocuments,
	})
}

func (h *IndexHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.svc.ListIndex(r.Context(), service.ListIndexInput{
		OwnerID: ownerID,
		Cursor:  cursor,
		Limit:   limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]IndexedDocumentResponse, len(page.Items))
	for i, it := range page.Items {
		items[i] = IndexedDocumentResponse{
			DocumentID: it.DocumentID,
			Title:      it.Title,
			ChunkCount: it.ChunkCount,
			IndexedAt:  it.IndexedAt.Format(time.RFC3339),
		}
	}

	api.Success(w, http.StatusOK, IndexListResponse{
		Items:   items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}
