package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	cmcp "github.com/catwalkhq/catwalk/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
		dataDir   string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes read-only views
of the Catwalk admin data as tools for AI agents. Supports stdio (default)
and HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for clients that launch the server as a subprocess.

In HTTP mode, the server listens on the specified port for streamable HTTP
connections.`,
		Example: `  catwalk mcp                               # stdio mode
  catwalk mcp --transport http --port 3001  # HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port, dataDir)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory for SQLite state (default: ~/.catwalk)")

	return cmd
}

func runMCP(transport string, port int, dataDirFlag string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if dataDirFlag != "" {
		dataDir = dataDirFlag
	}
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("init state store: %w", err)
	}
	defer store.Close()

	dir := newDirectoryClient()

	mcpSrv := cmcp.NewMCPServer(store, dir, logger)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		addr := fmt.Sprintf(":%d", port)
		logger.Info("starting MCP HTTP server", "addr", addr)
		return mcpSrv.ServeHTTP(addr)
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
