package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/cloo-solutions/notewise/internal/extract"
	"github.com/rs/zerolog/log"
)

// UploadedTag is attached to every note created from a file.
const UploadedTag = "uploaded"

// ObjectStorage archives raw uploaded files.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
}

// UploadInput is one uploaded file.
type UploadInput struct {
	OwnerID  string
	Filename string
	Data     []byte
}

// UploadResult describes the note created from an upload. JobID is set when
// indexing was queued; ChunksCreated when it ran inline.
type UploadResult struct {
	DocumentID    string
	Title         string
	JobID         string
	ChunksCreated int
	ArchiveKey    string
}

// UploadService turns uploaded files into indexed notes.
type UploadService struct {
	docs     DocumentRepositoryInterface
	rag      *RAGService
	storage  ObjectStorage
	txRunner TxRunner
	uuidGen  UUIDGenerator
}

// NewUploadService creates an UploadService. storage and txRunner may be nil.
// Without a txRunner the note is indexed before Upload returns.
func NewUploadService(docs DocumentRepositoryInterface, rag *RAGService, storage ObjectStorage, txRunner TxRunner) *UploadService {
	return &UploadService{
		docs:     docs,
		rag:      rag,
		storage:  storage,
		txRunner: txRunner,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// Upload extracts the file's text, stores it as a single-paragraph note
// tagged "uploaded" and indexes it with source "upload".
func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.OwnerID == "" || in.Filename == "" {
		return nil, domain.ErrMissingRequiredField
	}

	kind, ok := extract.KindFromFilename(in.Filename)
	if !ok {
		return nil, domain.ErrUnsupportedContentType
	}

	text, err := extract.File(in.Filename, in.Data)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) < s.rag.Policy().MinContentLength {
		return nil, domain.ErrContentTooShort
	}

	content, err := json.Marshal(domain.NewTextDocument(text))
	if err != nil {
		return nil, fmt.Errorf("failed to encode note content: %w", err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        s.uuidGen.NewString(),
		OwnerID:   in.OwnerID,
		Title:     uploadTitle(in.Filename),
		Content:   content,
		Source:    domain.SourceUpload,
		Tags:      []string{UploadedTag},
		CreatedAt: now,
		UpdatedAt: now,
	}
	result := &UploadResult{DocumentID: doc.ID, Title: doc.Title}

	if s.storage != nil {
		key := buildArchiveKey(in.OwnerID, doc.ID, in.Filename)
		if err := s.storage.Upload(ctx, key, in.Data, contentTypes[kind]); err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, domain.ErrStorageOperationFail.Message, err)
		}
		result.ArchiveKey = key
	}

	if s.txRunner != nil {
		job := domain.NewIndexJob(s.uuidGen.NewString(), doc.ID, in.OwnerID,
			domain.IndexJobActionIndex, domain.IndexJobStatusPending, 0, "", now, nil)
		if err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Documents().Create(ctx, doc); err != nil {
				return fmt.Errorf("failed to create note: %w", err)
			}
			if err := repos.IndexJobs().Create(ctx, job); err != nil {
				return fmt.Errorf("failed to create index job: %w", err)
			}
			return nil
		}); err != nil {
			s.discardArchive(ctx, result.ArchiveKey)
			return nil, err
		}
		result.JobID = job.ID
		log.Info().Str("document_id", doc.ID).Str("job_id", job.ID).Msg("upload queued for indexing")
		return result, nil
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		s.discardArchive(ctx, result.ArchiveKey)
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	indexed, err := s.rag.IndexDocument(ctx, doc.ID, in.OwnerID)
	if err != nil {
		return nil, err
	}
	result.ChunksCreated = indexed.ChunksCreated
	return result, nil
}

// discardArchive removes an archived file whose note was never created.
func (s *UploadService) discardArchive(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.storage.DeleteObject(context.WithoutCancel(ctx), key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to discard orphaned upload archive")
	}
}

var contentTypes = map[string]string{
	extract.KindText:     "text/plain",
	extract.KindMarkdown: "text/markdown",
	extract.KindPDF:      "application/pdf",
}

func uploadTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func buildArchiveKey(ownerID, documentID, filename string) string {
	return fmt.Sprintf("uploads/%s/%s/%s", ownerID, documentID, filepath.Base(filename))
}
