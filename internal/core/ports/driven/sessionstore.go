package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// SessionStore persists chat sessions.
// Messages are append-only: Save never removes messages already stored.
type SessionStore interface {
	// Save stores the session and its messages, replacing title and timestamps.
	Save(ctx context.Context, session *domain.Session) error

	// FindOne returns the session matching the filter with messages in order.
	// Returns domain.ErrNotFound if it does not exist or is owned by another user.
	FindOne(ctx context.Context, filter domain.SessionFilter) (*domain.Session, error)

	// FindOneAndDelete removes the matching session and returns it.
	FindOneAndDelete(ctx context.Context, filter domain.SessionFilter) (*domain.Session, error)

	// FindOneAndUpdate applies the patch to the matching session, refreshes
	// UpdatedAt and returns the updated session.
	FindOneAndUpdate(ctx context.Context, filter domain.SessionFilter, patch domain.SessionPatch) (*domain.Session, error)

	// List returns the owner's sessions, most recently updated first.
	List(ctx context.Context, ownerID string) ([]domain.SessionSummary, error)
}
