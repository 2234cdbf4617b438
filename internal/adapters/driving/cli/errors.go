package cli

import (
	"errors"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Errors for commands run without their service.
var (
	errNoDocumentService = errors.New("document service not configured")
	errNoSearchService   = errors.New("search service not configured")
	errNoChatService     = errors.New("chat service not configured")
	errNoSettingsService = errors.New("settings service not configured")
)

// commandError shows the error category to the user and keeps the cause
// for errors.Is and debug logs.
type commandError struct {
	action string
	cat    domain.Category
	err    error
}

func (e *commandError) Error() string {
	return e.action + ": " + e.cat.Message
}

func (e *commandError) Unwrap() error {
	return e.err
}

func failed(action string, err error) error {
	logger.Debug("%s: %v", action, err)
	return &commandError{action: action, cat: domain.Categorise(err), err: err}
}
