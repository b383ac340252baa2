package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/cloo-solutions/notewise/internal/api"
	"github.com/cloo-solutions/notewise/internal/api/middleware"
	"github.com/cloo-solutions/notewise/internal/service"
)

// MaxUploadBytes bounds a single uploaded file.
const MaxUploadBytes = 10 << 20

type UploadService interface {
	Upload(ctx context.Context, in service.UploadInput) (*service.UploadResult, error)
}

type UploadHandler struct {
	svc UploadService
}

func NewUploadHandler(svc UploadService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

type UploadResponse struct {
	NoteID        string `json:"note_id"`
	NoteTitle     string `json:"note_title"`
	JobID         string `json:"job_id,omitempty"`
	ChunksCreated int    `json:"chunks_created"`
	ArchiveKey    string `json:"archive_key,omitempty"`
}

// Upload accepts a multipart form with a "file" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if len(data) > MaxUploadBytes {
		api.Error(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	result, err := h.svc.Upload(r.Context(), service.UploadInput{
		OwnerID:  ownerID,
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	status := http.StatusCreated
	if result.JobID != "" {
		status = http.StatusAccepted
	}
	api.Success(w, status, UploadResponse{
		NoteID:        result.DocumentID,
		NoteTitle:     result.Title,
		JobID:         result.JobID,
		ChunksCreated: result.ChunksCreated,
		ArchiveKey:    result.ArchiveKey,
	})
}
