package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory implementation of driven.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]domain.Session)}
}

// Save stores the session. Messages beyond those already held are appended;
// an existing session keeps its stored title.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.sessions[session.ID]
	msgs := stored.Messages
	if len(session.Messages) > len(msgs) {
		msgs = append(append([]domain.Message(nil), msgs...), session.Messages[len(msgs):]...)
	}

	next := *session
	next.Messages = msgs
	if exists {
		next.Title = stored.Title
	}
	s.sessions[session.ID] = next
	return nil
}

// FindOne returns the matching session.
func (s *SessionStore) FindOne(_ context.Context, filter domain.SessionFilter) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(filter)
}

// FindOneAndDelete removes the matching session and returns it.
func (s *SessionStore) FindOneAndDelete(_ context.Context, filter domain.SessionFilter) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.find(filter)
	if err != nil {
		return nil, err
	}
	delete(s.sessions, session.ID)
	return session, nil
}

// FindOneAndUpdate applies patch to the matching session.
func (s *SessionStore) FindOneAndUpdate(
	_ context.Context, filter domain.SessionFilter, patch domain.SessionPatch,
) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.find(filter)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		session.Title = *patch.Title
	}
	session.UpdatedAt = time.Now()
	s.sessions[session.ID] = *session
	return session, nil
}

// List returns the owner's sessions, most recently updated first.
func (s *SessionStore) List(_ context.Context, ownerID string) ([]domain.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.SessionSummary
	for _, sess := range s.sessions {
		if sess.OwnerID != ownerID {
			continue
		}
		out = append(out, domain.SessionSummary{
			ID:           sess.ID,
			Title:        sess.Title,
			MessageCount: len(sess.Messages),
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// find returns a copy of the matching session. Callers hold mu.
func (s *SessionStore) find(filter domain.SessionFilter) (*domain.Session, error) {
	sess, ok := s.sessions[filter.ID]
	if !ok || (filter.OwnerID != "" && sess.OwnerID != filter.OwnerID) {
		return nil, domain.ErrNotFound
	}
	sess.Messages = append([]domain.Message(nil), sess.Messages...)
	return &sess, nil
}
