package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError with the same code and message, so wrapped
// sentinels still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeNoOp             = "NO_OP"
	ErrCodeEmbedding        = "EMBEDDING_FAILED"
	ErrCodeUnavailable      = "UNAVAILABLE"
)

// Validation errors
var (
	ErrContentTooShort        = NewDomainError(ErrCodeValidation, "content is too short to index")
	ErrInvalidIndexJobStatus  = NewDomainError(ErrCodeValidation, "invalid index job status")
	ErrMissingRequiredField   = NewDomainError(ErrCodeValidation, "missing required field")
	ErrUnsupportedContentType = NewDomainError(ErrCodeValidation, "unsupported content type")
)

// ErrExtractionEmpty signals that a document has no text to index. Callers
// treat it as a no-op rather than a failure.
var ErrExtractionEmpty = NewDomainError(ErrCodeNoOp, "document has no extractable text")

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrIndexJobNotFound = NewDomainError(ErrCodeNotFound, "index job not found")
)

// Authorization errors
var (
	ErrUnauthorized = NewDomainError(ErrCodeUnauthorized, "unauthorized")
	ErrForbidden    = NewDomainError(ErrCodeForbidden, "document belongs to another owner")
)

// Infrastructure errors
var (
	ErrStoreUnavailable      = NewDomainError(ErrCodeUnavailable, "embedding store unavailable")
	ErrCompletionUnavailable = NewDomainError(ErrCodeUnavailable, "completion service unavailable")
	ErrStorageOperationFail  = NewDomainError(ErrCodeInternalError, "storage operation failed")
)

// StoreUnavailable wraps a persistence failure so it matches ErrStoreUnavailable.
func StoreUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return NewDomainErrorWithCause(ErrCodeUnavailable, ErrStoreUnavailable.Message, err)
}

// EmbeddingServiceError reports a failed or malformed upstream embedding call.
// Index is the position of the input within a batch, or -1 for single calls.
type EmbeddingServiceError struct {
	Index int
	Text  string
	Err   error
}

func (e *EmbeddingServiceError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("[%s] embedding failed for input %d (%q): %v", ErrCodeEmbedding, e.Index, truncateForError(e.Text), e.Err)
	}
	return fmt.Sprintf("[%s] embedding failed for %q: %v", ErrCodeEmbedding, truncateForError(e.Text), e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error {
	return e.Err
}

// NewEmbeddingServiceError creates an EmbeddingServiceError for a single input.
func NewEmbeddingServiceError(text string, err error) *EmbeddingServiceError {
	return &EmbeddingServiceError{Index: -1, Text: text, Err: err}
}

func truncateForError(s string) string {
	const max = 64
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
