package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/notewise/internal/api/middleware"
	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/cloo-solutions/notewise/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req.WithContext(middleware.WithOwnerID(req.Context(), testOwner))
}

func TestUploadHandler_Upload_Queued(t *testing.T) {
	mockSvc := new(MockUploadService)
	handler := NewUploadHandler(mockSvc)

	content := []byte("Notes from the Paris trip, day one.")
	mockSvc.On("Upload", mock.Anything, service.UploadInput{
		OwnerID:  testOwner,
		Filename: "paris.txt",
		Data:     content,
	}).Return(&service.UploadResult{DocumentID: testDocID, Title: "paris", JobID: "job-1"}, nil)

	w := httptest.NewRecorder()
	handler.Upload(w, multipartRequest(t, "file", "paris.txt", content))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"note_title":"paris"`)
	mockSvc.AssertExpectations(t)
}

func TestUploadHandler_Upload_Inline(t *testing.T) {
	mockSvc := new(MockUploadService)
	handler := NewUploadHandler(mockSvc)
	mockSvc.On("Upload", mock.Anything, mock.Anything).Return(&service.UploadResult{DocumentID: testDocID, Title: "paris", ChunksCreated: 2}, nil)

	w := httptest.NewRecorder()
	handler.Upload(w, multipartRequest(t, "file", "paris.md", []byte("# Paris\n\nLong enough.")))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"chunks_created":2`)
}

func TestUploadHandler_Upload_MissingFile(t *testing.T) {
	mockSvc := new(MockUploadService)
	handler := NewUploadHandler(mockSvc)

	w := httptest.NewRecorder()
	handler.Upload(w, multipartRequest(t, "attachment", "paris.txt", []byte("text")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no file provided")
}

func TestUploadHandler_Upload_UnsupportedType(t *testing.T) {
	mockSvc := new(MockUploadService)
	handler := NewUploadHandler(mockSvc)
	mockSvc.On("Upload", mock.Anything, mock.Anything).Return(nil, domain.ErrUnsupportedContentType)

	w := httptest.NewRecorder()
	handler.Upload(w, multipartRequest(t, "file", "photo.png", []byte{0x89, 0x50}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported content type")
}
