package mcp

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

const testUser = "user-1"

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error

	gotQuery string
	gotUser  string
	gotOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	userID string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.gotQuery, m.gotUser, m.gotOpts = query, userID, opts
	return m.results, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	answer    *domain.Answer
	err       error
	createErr error

	created    int
	gotSession string
	gotUser    string
	gotMessage string
}

func (m *mockChatService) CreateSession(_ context.Context, userID, title string) (*domain.Session, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created++
	if title == "" {
		title = domain.DefaultSessionTitle
	}
	return &domain.Session{ID: "new-session", OwnerID: userID, Title: title}, nil
}

func (m *mockChatService) Answer(_ context.Context, sessionID, userID, message string) (*domain.Answer, error) {
	m.gotSession, m.gotUser, m.gotMessage = sessionID, userID, message
	if m.err != nil {
		return nil, m.err
	}
	answer := *m.answer
	answer.SessionID = sessionID
	return &answer, nil
}

func (m *mockChatService) History(_ context.Context, _, _ string) (*domain.Session, error) {
	return nil, domain.ErrNotFound
}

func (m *mockChatService) ListSessions(_ context.Context, _ string) ([]domain.SessionSummary, error) {
	return nil, nil
}

func (m *mockChatService) DeleteSession(_ context.Context, _, _ string) error {
	return nil
}

func (m *mockChatService) RenameSession(_ context.Context, _, _, _ string) (*domain.Session, error) {
	return nil, domain.ErrNotFound
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	err       error

	gotUser string
	gotOpts driving.ListOptions
}

func (m *mockDocumentService) Ingest(_ context.Context, _ driving.IngestRequest) (*domain.Document, error) {
	return nil, m.err
}

func (m *mockDocumentService) Get(_ context.Context, userID, documentID string) (*domain.Document, error) {
	m.gotUser = userID
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.documents {
		if m.documents[i].ID == documentID && m.documents[i].OwnerID == userID {
			return &m.documents[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) List(_ context.Context, userID string, opts driving.ListOptions) (*domain.DocumentPage, error) {
	m.gotUser, m.gotOpts = userID, opts
	if m.err != nil {
		return nil, m.err
	}
	return &domain.DocumentPage{Documents: m.documents, Total: len(m.documents), Page: 1, Pages: 1}, nil
}

func (m *mockDocumentService) GetDetails(_ context.Context, _, _ string) (*driving.DocumentDetails, error) {
	return nil, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _, _ string) error {
	return m.err
}
