package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	tmcp "github.com/faucetdb/touchline/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
		readOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the football entities
as tools for AI agents. Supports stdio (default) and streamable HTTP transports.

Agents go through the same field whitelists and parameterized statements as the
REST API. With --read-only (or mcp.read_only) the insert, update and delete tools
are not offered.`,
		Example: `  touchline mcp                             # stdio mode
  touchline mcp --transport http --port 3001  # streamable HTTP
  touchline mcp --read-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Expose only the read tools")

	viper.BindPFlag("mcp.read_only", cmd.Flags().Lookup("read-only"))

	return cmd
}

func runMCP(transport string, port int) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	mcpSrv := tmcp.NewMCPServer(a.entityService(), tmcp.Options{
		ReadOnly: a.cfg.MCP.ReadOnly,
		Version:  versionString(),
	}, a.logger)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		return mcpSrv.ServeHTTP(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
