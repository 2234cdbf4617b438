package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// ==================== Session Store ====================

// sessionStore implements driven.SessionStore.
// Messages are keyed by (session_id, seq) and never rewritten.
type sessionStore struct {
	store *Store
}

var _ driven.SessionStore = (*sessionStore)(nil)

// storedSource is the JSON shape of a message citation.
type storedSource struct {
	DocumentID     string  `json:"documentId"`
	RelevanceScore float64 `json:"relevanceScore"`
}

// Save inserts the session row, or refreshes updated_at for an existing one,
// and appends messages not yet stored. Titles change only through
// FindOneAndUpdate.
func (s *sessionStore) Save(ctx context.Context, session *domain.Session) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, owner_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at
	`, session.ID, session.OwnerID, session.Title, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return storageError("saving session", err)
	}

	if len(session.Messages) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO messages (session_id, seq, role, content, sources, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id, seq) DO NOTHING
		`)
		if err != nil {
			return storageError("preparing statement", err)
		}
		defer stmt.Close()

		for i, msg := range session.Messages {
			sources := make([]storedSource, len(msg.Sources))
			for j, src := range msg.Sources {
				sources[j] = storedSource{DocumentID: src.DocumentID, RelevanceScore: src.RelevanceScore}
			}
			sourcesJSON, err := json.Marshal(sources)
			if err != nil {
				return storageError("marshalling sources", err)
			}
			if _, err := stmt.ExecContext(ctx, session.ID, i, string(msg.Role), msg.Content,
				string(sourcesJSON), msg.Timestamp); err != nil {
				return storageError("saving message", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return storageError("committing transaction", err)
	}
	return nil
}

// FindOne returns the matching session with its messages.
func (s *sessionStore) FindOne(ctx context.Context, filter domain.SessionFilter) (*domain.Session, error) {
	return findSession(ctx, s.store.db, filter)
}

// FindOneAndDelete removes the matching session and returns it.
func (s *sessionStore) FindOneAndDelete(ctx context.Context, filter domain.SessionFilter) (*domain.Session, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	session, err := findSession(ctx, tx, filter)
	if err != nil {
		return nil, err
	}
	// Messages cascade.
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", session.ID); err != nil {
		return nil, storageError("deleting session", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storageError("committing transaction", err)
	}
	return session, nil
}

// FindOneAndUpdate applies patch to the matching session.
func (s *sessionStore) FindOneAndUpdate(
	ctx context.Context, filter domain.SessionFilter, patch domain.SessionPatch,
) (*domain.Session, error) {
	var title sql.NullString
	if patch.Title != nil {
		title = sql.NullString{String: *patch.Title, Valid: true}
	}

	where, args := sessionWhere(filter)
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE sessions SET title = COALESCE(?, title), updated_at = ? WHERE "+where,
		append([]any{title, time.Now()}, args...)...)
	if err != nil {
		return nil, storageError("updating session", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.ErrNotFound
	}
	return findSession(ctx, s.store.db, filter)
}

// List returns the owner's sessions, most recently updated first.
func (s *sessionStore) List(ctx context.Context, ownerID string) ([]domain.SessionSummary, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.created_at, s.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		FROM sessions s
		WHERE s.owner_id = ?
		ORDER BY s.updated_at DESC, s.id
	`, ownerID)
	if err != nil {
		return nil, storageError("querying sessions", err)
	}
	defer rows.Close()

	var out []domain.SessionSummary
	for rows.Next() {
		var sum domain.SessionSummary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.CreatedAt, &sum.UpdatedAt, &sum.MessageCount); err != nil {
			return nil, storageError("scanning session", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating sessions", err)
	}
	return out, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func sessionWhere(filter domain.SessionFilter) (string, []any) {
	if filter.OwnerID == "" {
		return "id = ?", []any{filter.ID}
	}
	return "id = ? AND owner_id = ?", []any{filter.ID, filter.OwnerID}
}

func findSession(ctx context.Context, q querier, filter domain.SessionFilter) (*domain.Session, error) {
	where, args := sessionWhere(filter)

	var session domain.Session
	err := q.QueryRowContext(ctx,
		"SELECT id, owner_id, title, created_at, updated_at FROM sessions WHERE "+where, args...,
	).Scan(&session.ID, &session.OwnerID, &session.Title, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storageError("scanning session", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT role, content, sources, created_at
		FROM messages WHERE session_id = ?
		ORDER BY seq
	`, session.ID)
	if err != nil {
		return nil, storageError("querying messages", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg domain.Message
		var role, sourcesJSON string
		if err := rows.Scan(&role, &msg.Content, &sourcesJSON, &msg.Timestamp); err != nil {
			return nil, storageError("scanning message", err)
		}
		msg.Role = domain.Role(role)

		var sources []storedSource
		if err := json.Unmarshal([]byte(sourcesJSON), &sources); err != nil {
			return nil, storageError("unmarshaling sources", err)
		}
		for _, src := range sources {
			msg.Sources = append(msg.Sources, domain.SourceRef{
				DocumentID:     src.DocumentID,
				RelevanceScore: src.RelevanceScore,
			})
		}
		session.Messages = append(session.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating messages", err)
	}

	return &session, nil
}
