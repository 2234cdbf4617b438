// Package mcp provides an MCP (Model Context Protocol) server adapter for docchat.
// It lets AI assistants search a user's documents and ask grounded questions.
package mcp

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
)

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingUser is returned when no user scopes the server.
var ErrMissingUser = errors.New("mcp: user id is required")

// publicError reduces err to its category so clients never see internals.
func publicError(err error) error {
	cat := domain.Categorise(err)
	logger.Debug("mcp: %v", err)
	return fmt.Errorf("%s: %s", cat.Code, cat.Message)
}
