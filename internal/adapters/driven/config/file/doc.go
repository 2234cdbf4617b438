// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under the docchat home directory.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: user-editable prompt templates
package file

import (
	"os"
	"path/filepath"
)

// EnvHome overrides the docchat home directory.
const EnvHome = "DOCCHAT_HOME"

// DefaultHome returns $DOCCHAT_HOME, or ~/.docchat when unset.
func DefaultHome() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".docchat"), nil
}
