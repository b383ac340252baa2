package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/cloo-solutions/notewise/internal/api/middleware"
	"github.com/cloo-solutions/notewise/internal/domain"
	"github.com/cloo-solutions/notewise/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

const (
	testOwner = "owner-456"
	testDocID = "0b7e2f4c-6f1d-4d8e-9d2a-3c5b1a7e9f10"
)

type MockIndexService struct {
	mock.Mock
}

func (m *MockIndexService) IndexDocument(ctx context.Context, documentID, ownerID string) (*domain.ReindexResult, error) {
	args := m.Called(ctx, documentID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReindexResult), args.Error(1)
}

func (m *MockIndexService) RemoveDocumentIndex(ctx context.Context, documentID, ownerID string) error {
	args := m.Called(ctx, documentID, ownerID)
	return args.Error(0)
}

func (m *MockIndexService) ReindexAll(ctx context.Context, ownerID string) (*domain.ReindexSummary, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReindexSummary), args.Error(1)
}

func (m *MockIndexService) ListIndex(ctx context.Context, in service.ListIndexInput) (*service.IndexPage, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IndexPage), args.Error(1)
}

type MockJobService struct {
	mock.Mock
}

func (m *MockJobService) Enqueue(ctx context.Context, documentID, ownerID string, action domain.IndexJobAction) (*domain.IndexJob, error) {
	args := m.Called(ctx, documentID, ownerID, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexJob), args.Error(1)
}

func (m *MockJobService) Get(ctx context.Context, jobID, ownerID string) (*domain.IndexJob, error) {
	args := m.Called(ctx, jobID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexJob), args.Error(1)
}

type MockContextService struct {
	mock.Mock
}

func (m *MockContextService) RetrieveContext(ctx context.Context, in service.RetrieveInput) (*service.RetrieveOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RetrieveOutput), args.Error(1)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Chat(ctx context.Context, in service.ChatInput) (*service.ChatOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChatOutput), args.Error(1)
}

type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) Upload(ctx context.Context, in service.UploadInput) (*service.UploadResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func requestWithOwner(method, url string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	return req.WithContext(middleware.WithOwnerID(req.Context(), testOwner))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
