package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ChatService manages chat sessions and answers messages.
type ChatService interface {
	// CreateSession starts an empty session. An empty title uses domain.DefaultSessionTitle.
	CreateSession(ctx context.Context, userID, title string) (*domain.Session, error)

	// Answer retrieves context for message, asks the model and appends the
	// exchange to the session. On failure the session is left unchanged.
	Answer(ctx context.Context, sessionID, userID, message string) (*domain.Answer, error)

	// History returns the session with its messages.
	History(ctx context.Context, userID, sessionID string) (*domain.Session, error)

	// ListSessions returns the user's sessions, most recently updated first.
	ListSessions(ctx context.Context, userID string) ([]domain.SessionSummary, error)

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, userID, sessionID string) error

	// RenameSession changes the session title.
	RenameSession(ctx context.Context, userID, sessionID, title string) (*domain.Session, error)
}
