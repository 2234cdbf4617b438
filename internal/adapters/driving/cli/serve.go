package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/docchat/internal/logger"
)

// DefaultServeAddr is used when neither --addr nor server.addr is set.
const DefaultServeAddr = ":8080"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve the document and chat API over HTTP.

Every /api request must carry the user id in the X-User-ID header.
Counters are published at /debug/vars.

The listen address comes from --addr, then server.addr in config.toml.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default "+DefaultServeAddr+")")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	server, err := httpapi.NewServer(&httpapi.Ports{
		Document: documentService,
		Search:   searchService,
		Chat:     chatService,
	})
	if err != nil {
		return err
	}

	addr := resolveServeAddr()
	logger.Info("HTTP API listening on %s", addr)
	cmd.Printf("docchat API listening on %s\n", addr)
	return server.Run(cmd.Context(), addr)
}

func resolveServeAddr() string {
	if serveAddr != "" {
		return serveAddr
	}
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil && settings.Server.Addr != "" {
			return settings.Server.Addr
		}
	}
	return DefaultServeAddr
}
