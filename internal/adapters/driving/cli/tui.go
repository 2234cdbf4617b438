package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui"
)

var tuiSessionID string

var chatTUICmd = &cobra.Command{
	Use:   "tui",
	Short: "Chat in the interactive terminal UI",
	Long: `Launch the interactive terminal chat.

Controls:
  ↑/k, ↓/j - Navigate sessions
  Enter    - Open session / Send message
  n        - New session
  d        - Delete session
  Esc      - Back
  ?        - Help
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	chatTUICmd.Flags().StringVarP(&tuiSessionID, "session", "s", "", "open this session on start")
	chatCmd.AddCommand(chatTUICmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ports := tui.NewPorts(chatService, userID)
	ports.SessionID = tuiSessionID

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
