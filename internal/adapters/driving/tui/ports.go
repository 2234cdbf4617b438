// Package tui provides an interactive terminal chat interface for docchat.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ports aggregates the driving ports and identity the TUI needs.
type Ports struct {
	// Chat manages sessions and answers messages.
	Chat driving.ChatService

	// UserID scopes every call to one user.
	UserID string

	// SessionID, when set, opens that session directly.
	SessionID string
}

// NewPorts creates a new Ports aggregate.
func NewPorts(chat driving.ChatService, userID string) *Ports {
	return &Ports{Chat: chat, UserID: userID}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.UserID == "" {
		return ErrMissingUser
	}
	return nil
}
