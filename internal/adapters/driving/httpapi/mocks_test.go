package httpapi

import (
	"context"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

var testTime = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	doc     *domain.Document
	page    *domain.DocumentPage
	details *driving.DocumentDetails
	err     error

	ingested *driving.IngestRequest
	gotUser  string
	gotID    string
	gotOpts  driving.ListOptions
	deleted  bool
}

func (m *mockDocumentService) Ingest(_ context.Context, req driving.IngestRequest) (*domain.Document, error) {
	m.ingested = &req
	if m.err != nil {
		return nil, m.err
	}
	return m.doc, nil
}

func (m *mockDocumentService) Get(_ context.Context, userID, documentID string) (*domain.Document, error) {
	m.gotUser, m.gotID = userID, documentID
	return m.doc, m.err
}

func (m *mockDocumentService) List(_ context.Context, userID string, opts driving.ListOptions) (*domain.DocumentPage, error) {
	m.gotUser, m.gotOpts = userID, opts
	return m.page, m.err
}

func (m *mockDocumentService) GetDetails(_ context.Context, userID, documentID string) (*driving.DocumentDetails, error) {
	m.gotUser, m.gotID = userID, documentID
	return m.details, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, userID, documentID string) error {
	m.gotUser, m.gotID = userID, documentID
	m.deleted = m.err == nil
	return m.err
}

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error

	gotQuery string
	gotUser  string
	gotOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, query, userID string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.gotQuery, m.gotUser, m.gotOpts = query, userID, opts
	return m.results, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	session   *domain.Session
	summaries []domain.SessionSummary
	answer    *domain.Answer
	err       error

	gotUser    string
	gotSession string
	gotTitle   string
	gotMessage string
}

func (m *mockChatService) CreateSession(_ context.Context, userID, title string) (*domain.Session, error) {
	m.gotUser, m.gotTitle = userID, title
	if m.err != nil {
		return nil, m.err
	}
	if title == "" {
		title = domain.DefaultSessionTitle
	}
	return &domain.Session{ID: "s-1", OwnerID: userID, Title: title, CreatedAt: testTime, UpdatedAt: testTime}, nil
}

func (m *mockChatService) Answer(_ context.Context, sessionID, userID, message string) (*domain.Answer, error) {
	m.gotSession, m.gotUser, m.gotMessage = sessionID, userID, message
	return m.answer, m.err
}

func (m *mockChatService) History(_ context.Context, userID, sessionID string) (*domain.Session, error) {
	m.gotUser, m.gotSession = userID, sessionID
	return m.session, m.err
}

func (m *mockChatService) ListSessions(_ context.Context, userID string) ([]domain.SessionSummary, error) {
	m.gotUser = userID
	return m.summaries, m.err
}

func (m *mockChatService) DeleteSession(_ context.Context, userID, sessionID string) error {
	m.gotUser, m.gotSession = userID, sessionID
	return m.err
}

func (m *mockChatService) RenameSession(_ context.Context, userID, sessionID, title string) (*domain.Session, error) {
	m.gotUser, m.gotSession, m.gotTitle = userID, sessionID, title
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Session{ID: sessionID, OwnerID: userID, Title: title, CreatedAt: testTime, UpdatedAt: testTime}, nil
}
