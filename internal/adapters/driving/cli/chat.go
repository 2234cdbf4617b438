package cli

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about your documents",
	Long: `Create chat sessions and ask questions. Answers are grounded in the most
relevant chunks of your documents and cite the documents they used.`,
}

var chatNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Start a new session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChatNew,
}

var chatAskCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask a question",
	Long: `Sends a message to a session and prints the answer with its sources.
Without --session a new session is created. With no message argument,
questions are read from stdin one per line until EOF.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChatAsk,
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatHistory,
}

var chatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runChatList,
}

var chatDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatDelete,
}

var chatRenameCmd = &cobra.Command{
	Use:   "rename [session-id] [title]",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE:  runChatRename,
}

var askSessionID string

func init() {
	chatAskCmd.Flags().StringVarP(&askSessionID, "session", "s", "", "session to continue")

	chatCmd.AddCommand(chatNewCmd)
	chatCmd.AddCommand(chatAskCmd)
	chatCmd.AddCommand(chatHistoryCmd)
	chatCmd.AddCommand(chatListCmd)
	chatCmd.AddCommand(chatDeleteCmd)
	chatCmd.AddCommand(chatRenameCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChatNew(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errNoChatService
	}

	title := ""
	if len(args) == 1 {
		title = args[0]
	}

	session, err := chatService.CreateSession(cmd.Context(), userID, title)
	if err != nil {
		return failed("create session", err)
	}

	cmd.Printf("Created session %s (%s)\n", session.ID, session.Title)
	return nil
}

func runChatAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errNoChatService
	}

	sessionID := askSessionID
	if sessionID == "" {
		session, err := chatService.CreateSession(cmd.Context(), userID, "")
		if err != nil {
			return failed("create session", err)
		}
		sessionID = session.ID
		cmd.Printf("Session: %s\n\n", sessionID)
	}

	if len(args) == 1 {
		return ask(cmd, sessionID, args[0])
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := ask(cmd, sessionID, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func ask(cmd *cobra.Command, sessionID, message string) error {
	answer, err := chatService.Answer(cmd.Context(), sessionID, userID, message)
	if err != nil {
		return failed("ask", err)
	}

	cmd.Println(answer.Text)
	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, c := range answer.Citations {
			cmd.Printf("  - %s (%.2f)\n", c.Filename, c.RelevanceScore)
		}
	}
	cmd.Println()
	return nil
}

func runChatHistory(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errNoChatService
	}

	session, err := chatService.History(cmd.Context(), userID, args[0])
	if err != nil {
		return failed("get history", err)
	}

	cmd.Printf("%s (%s)\n\n", session.Title, session.ID)
	if len(session.Messages) == 0 {
		cmd.Println("No messages yet.")
		return nil
	}

	for _, m := range session.Messages {
		label := "You"
		if m.Role == domain.RoleAssistant {
			label = "Assistant"
		}
		cmd.Printf("[%s] %s:\n%s\n", m.Timestamp.Local().Format(timeLayout), label, m.Content)
		for _, s := range m.Sources {
			cmd.Printf("  source: %s (%.2f)\n", s.DocumentID, s.RelevanceScore)
		}
		cmd.Println()
	}
	return nil
}

func runChatList(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return errNoChatService
	}

	sessions, err := chatService.ListSessions(cmd.Context(), userID)
	if err != nil {
		return failed("list sessions", err)
	}

	if len(sessions) == 0 {
		cmd.Println("No sessions found.")
		return nil
	}

	for _, s := range sessions {
		cmd.Printf("  %s  %-32s %3d messages  %s\n",
			s.ID, s.Title, s.MessageCount, s.UpdatedAt.Local().Format(timeLayout))
	}
	return nil
}

func runChatDelete(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errNoChatService
	}

	if err := chatService.DeleteSession(cmd.Context(), userID, args[0]); err != nil {
		return failed("delete session", err)
	}

	cmd.Printf("Session %s deleted.\n", args[0])
	return nil
}

func runChatRename(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errNoChatService
	}

	session, err := chatService.RenameSession(cmd.Context(), userID, args[0], args[1])
	if err != nil {
		return failed("rename session", err)
	}

	cmd.Printf("Session %s renamed to %q.\n", session.ID, session.Title)
	return nil
}
