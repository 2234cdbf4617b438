// Package cli provides the docchat command-line interface.
// It implements a driving adapter following hexagonal architecture principles.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// DefaultUser is the user id when neither --user nor DOCCHAT_USER is set.
const DefaultUser = "local"

// version is set by SetVersion from the build.
var version = "dev"

// Options are the global flags a ServiceFactory builds services from.
type Options struct {
	// Ephemeral selects in-memory stores.
	Ephemeral bool

	// Verbose enables debug logging.
	Verbose bool
}

// Services are the driving ports commands run against.
type Services struct {
	Document driving.DocumentService
	Search   driving.SearchService
	Chat     driving.ChatService
	Settings driving.SettingsService

	// Close releases stores and clients. May be nil.
	Close func() error
}

// ServiceFactory wires services once flags are parsed.
type ServiceFactory func(opts Options) (*Services, error)

var (
	serviceFactory ServiceFactory
	closeServices  func() error

	documentService driving.DocumentService
	searchService   driving.SearchService
	chatService     driving.ChatService
	settingsService driving.SettingsService
)

// Global flags.
var (
	userID    string
	ephemeral bool
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents",
	Long: `docchat ingests documents, indexes them for semantic search and answers
questions about them with citations.

Documents and sessions belong to the user given by --user (or DOCCHAT_USER).`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
}

func init() {
	defaultUser := os.Getenv("DOCCHAT_USER")
	if defaultUser == "" {
		defaultUser = DefaultUser
	}

	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", defaultUser, "user id that owns documents and sessions")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "use in-memory stores; nothing is persisted")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServiceFactory sets how services are built before a command runs.
func SetServiceFactory(f ServiceFactory) {
	serviceFactory = f
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func setServices(s *Services) {
	documentService = s.Document
	searchService = s.Search
	chatService = s.Chat
	settingsService = s.Settings
	closeServices = s.Close
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if serviceFactory == nil || cmd == versionCmd || cmd.Name() == "help" {
		return nil
	}

	services, err := serviceFactory(Options{Ephemeral: ephemeral, Verbose: verbose})
	if err != nil {
		return err
	}
	setServices(services)
	return nil
}

func shutdown() {
	if closeServices == nil {
		return
	}
	if err := closeServices(); err != nil {
		logger.Warn("closing services: %v", err)
	}
	closeServices = nil
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer shutdown()

	return rootCmd.ExecuteContext(ctx)
}
