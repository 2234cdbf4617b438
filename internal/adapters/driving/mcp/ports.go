package mcp

import (
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Search retrieves relevant chunks.
	Search driving.SearchService

	// Chat answers questions in a session. Optional; without it the ask
	// tool reports that no model is configured.
	Chat driving.ChatService

	// Document lists and reads documents. Optional.
	Document driving.DocumentService

	// UserID scopes every call. An MCP client acts as a single user.
	UserID string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.UserID == "" {
		return ErrMissingUser
	}
	return nil
}
