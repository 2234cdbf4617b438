package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

type mockChatService struct {
	sessions []domain.SessionSummary
	listErr  error
	created  *domain.Session
	history  *domain.Session
	deleted  []string
	userIDs  []string
}

func (m *mockChatService) CreateSession(_ context.Context, userID, title string) (*domain.Session, error) {
	m.userIDs = append(m.userIDs, userID)
	if m.created != nil {
		return m.created, nil
	}
	return &domain.Session{ID: "new", OwnerID: userID, Title: domain.DefaultSessionTitle}, nil
}

func (m *mockChatService) Answer(context.Context, string, string, string) (*domain.Answer, error) {
	return nil, nil
}

func (m *mockChatService) History(_ context.Context, userID, sessionID string) (*domain.Session, error) {
	m.userIDs = append(m.userIDs, userID)
	if m.history == nil {
		return nil, domain.ErrNotFound
	}
	return m.history, nil
}

func (m *mockChatService) ListSessions(_ context.Context, userID string) ([]domain.SessionSummary, error) {
	m.userIDs = append(m.userIDs, userID)
	return m.sessions, m.listErr
}

func (m *mockChatService) DeleteSession(_ context.Context, _, sessionID string) error {
	m.deleted = append(m.deleted, sessionID)
	return nil
}

func (m *mockChatService) RenameSession(context.Context, string, string, string) (*domain.Session, error) {
	return nil, nil
}

func summaries() []domain.SessionSummary {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return []domain.SessionSummary{
		{ID: "s1", Title: "Invoices", MessageCount: 4, UpdatedAt: now},
		{ID: "s2", Title: "Contracts", MessageCount: 2, UpdatedAt: now.Add(-time.Hour)},
	}
}

func newLoadedView(t *testing.T, chat *mockChatService) *View {
	t.Helper()
	v := NewView(nil, nil, chat, "user-1")
	v.SetDimensions(100, 30)
	msg := v.Init()()
	v, _ = v.Update(msg)
	return v
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestView_InitLoadsSessions(t *testing.T) {
	chat := &mockChatService{sessions: summaries()}

	v := newLoadedView(t, chat)

	assert.Len(t, v.Sessions(), 2)
	assert.Equal(t, []string{"user-1"}, chat.userIDs)
	assert.Contains(t, v.View(), "Invoices")
	assert.Contains(t, v.View(), "2 sessions")
}

func TestView_Empty(t *testing.T) {
	v := newLoadedView(t, &mockChatService{})

	assert.Nil(t, v.Selected())
	assert.Contains(t, v.View(), "No sessions yet")
}

func TestView_LoadError(t *testing.T) {
	v := newLoadedView(t, &mockChatService{listErr: errors.New("disk gone")})

	require.Error(t, v.Err())
	assert.Contains(t, v.View(), "Error")
}

func TestView_NilService(t *testing.T) {
	v := NewView(nil, nil, nil, "user-1")
	v.SetDimensions(80, 24)

	v, _ = v.Update(v.Init()())

	assert.ErrorIs(t, v.Err(), ErrNoChatService)
}

func TestView_Navigation(t *testing.T) {
	v := newLoadedView(t, &mockChatService{sessions: summaries()})

	v, _ = v.Update(key("j"))
	assert.Equal(t, 1, v.SelectedIndex())

	v, _ = v.Update(key("down"))
	assert.Equal(t, 1, v.SelectedIndex())

	v, _ = v.Update(key("k"))
	assert.Equal(t, 0, v.SelectedIndex())

	v, _ = v.Update(key("k"))
	assert.Equal(t, 0, v.SelectedIndex())
}

func TestView_OpenSession(t *testing.T) {
	session := &domain.Session{ID: "s1", Title: "Invoices"}
	v := newLoadedView(t, &mockChatService{sessions: summaries(), history: session})

	_, cmd := v.Update(key("enter"))
	require.NotNil(t, cmd)

	opened, ok := cmd().(messages.SessionOpened)
	require.True(t, ok)
	require.NoError(t, opened.Err)
	assert.Equal(t, "s1", opened.Session.ID)
}

func TestView_OpenOnEmptyListDoesNothing(t *testing.T) {
	v := newLoadedView(t, &mockChatService{})

	_, cmd := v.Update(key("enter"))

	assert.Nil(t, cmd)
}

func TestView_NewSession(t *testing.T) {
	chat := &mockChatService{}
	v := newLoadedView(t, chat)

	_, cmd := v.Update(key("n"))
	require.NotNil(t, cmd)

	opened, ok := cmd().(messages.SessionOpened)
	require.True(t, ok)
	assert.Equal(t, "new", opened.Session.ID)
	assert.Equal(t, domain.DefaultSessionTitle, opened.Session.Title)
}

func TestView_DeleteReloads(t *testing.T) {
	chat := &mockChatService{sessions: summaries()}
	v := newLoadedView(t, chat)
	v, _ = v.Update(key("j"))

	_, cmd := v.Update(key("d"))
	require.NotNil(t, cmd)
	deleted, ok := cmd().(messages.SessionDeleted)
	require.True(t, ok)
	assert.Equal(t, "s2", deleted.ID)
	assert.Equal(t, []string{"s2"}, chat.deleted)

	chat.sessions = chat.sessions[:1]
	v, cmd = v.Update(deleted)
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())

	assert.Len(t, v.Sessions(), 1)
	assert.Equal(t, 0, v.SelectedIndex())
}

func TestView_HelpAndQuit(t *testing.T) {
	v := newLoadedView(t, &mockChatService{})

	_, cmd := v.Update(key("?"))
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewHelp}, cmd())

	_, cmd = v.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestView_NotReady(t *testing.T) {
	v := NewView(nil, nil, &mockChatService{}, "user-1")

	assert.Equal(t, "Initialising...", v.View())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
