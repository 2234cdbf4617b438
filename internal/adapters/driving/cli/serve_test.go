package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/docchat/internal/adapters/driving/mcp"
)

func TestResolveServeAddr(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer func() { serveAddr = "" }()

	assert.Equal(t, DefaultServeAddr, resolveServeAddr())

	ts.Settings.Settings.Server.Addr = "127.0.0.1:7000"
	assert.Equal(t, "127.0.0.1:7000", resolveServeAddr())

	serveAddr = ":9999"
	assert.Equal(t, ":9999", resolveServeAddr())
}

func TestServeCmd_MissingServices(t *testing.T) {
	clearServices(t)

	_, err := execute(t, "", "serve")

	assert.ErrorIs(t, err, httpapi.ErrMissingPorts)
}

func TestMCPServeCmd_HasPortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")

	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestMCPServeCmd_MissingSearch(t *testing.T) {
	clearServices(t)

	_, err := execute(t, "", "mcp", "serve")

	assert.ErrorIs(t, err, mcp.ErrMissingSearchService)
}
