// Package messages defines Bubbletea message types for the chat TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewSessions lists the user's chat sessions.
	ViewSessions ViewType = iota
	// ViewChat is an open conversation.
	ViewChat
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewSessions:
		return "sessions"
	case ViewChat:
		return "chat"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// SessionsLoaded carries the session summaries for the list view.
type SessionsLoaded struct {
	Sessions []domain.SessionSummary
	Err      error
}

// SessionOpened carries a full session, either created or loaded.
type SessionOpened struct {
	Session *domain.Session
	Err     error
}

// SessionDeleted signals a session was removed.
type SessionDeleted struct {
	ID  string
	Err error
}

// MessageSent is emitted when the user submits a message.
type MessageSent struct {
	SessionID string
	Text      string
}

// AnswerReceived carries the assistant reply for a submitted message.
type AnswerReceived struct {
	Answer *domain.Answer
	Err    error
}
