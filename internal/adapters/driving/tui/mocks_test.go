package tui

import (
	"context"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// MockChatService implements driving.ChatService for testing.
type MockChatService struct {
	ListFunc    func(ctx context.Context, userID string) ([]domain.SessionSummary, error)
	HistoryFunc func(ctx context.Context, userID, sessionID string) (*domain.Session, error)
	AnswerFunc  func(ctx context.Context, sessionID, userID, message string) (*domain.Answer, error)
}

func (m *MockChatService) CreateSession(_ context.Context, userID, title string) (*domain.Session, error) {
	if title == "" {
		title = domain.DefaultSessionTitle
	}
	now := time.Now()
	return &domain.Session{ID: "new", OwnerID: userID, Title: title, CreatedAt: now, UpdatedAt: now}, nil
}

func (m *MockChatService) Answer(ctx context.Context, sessionID, userID, message string) (*domain.Answer, error) {
	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, sessionID, userID, message)
	}
	return &domain.Answer{SessionID: sessionID, Text: "ok"}, nil
}

func (m *MockChatService) History(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, userID, sessionID)
	}
	return &domain.Session{ID: sessionID, OwnerID: userID, Title: "Loaded"}, nil
}

func (m *MockChatService) ListSessions(ctx context.Context, userID string) ([]domain.SessionSummary, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockChatService) DeleteSession(context.Context, string, string) error {
	return nil
}

func (m *MockChatService) RenameSession(_ context.Context, userID, sessionID, title string) (*domain.Session, error) {
	return &domain.Session{ID: sessionID, OwnerID: userID, Title: title}, nil
}
