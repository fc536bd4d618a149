package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faucetdb/touchline/internal/service"
)

// Options controls which tools are exposed.
type Options struct {
	// ReadOnly omits the insert, update and delete tools.
	ReadOnly bool
	// Version is reported to clients during initialization.
	Version string
}

// MCPServer wraps the mcp-go server with the entity tools and resources.
// Agents reach the same whitelisted mapping and parameterized statements
// as the REST API; there is no raw SQL tool.
type MCPServer struct {
	entities *service.EntityService
	opts     Options
	logger   *slog.Logger
	server   *server.MCPServer
	tools    []string
}

// NewMCPServer creates an MCPServer pre-loaded with all tools and
// resources. The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(entities *service.EntityService, opts Options, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &MCPServer{
		entities: entities,
		opts:     opts,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"Touchline Football Data",
		opts.Version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ToolNames lists the registered tools in registration order.
func (s *MCPServer) ToolNames() []string {
	return append([]string(nil), s.tools...)
}

// ServeStdio starts the MCP server in stdio mode, for clients that launch
// it as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode", "read_only", s.opts.ReadOnly)
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on
// the given address (e.g. ":3001").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr, "read_only", s.opts.ReadOnly)
	return httpServer.Start(addr)
}

func (s *MCPServer) addTool(srv *server.MCPServer, tool mcp.Tool, h server.ToolHandlerFunc) {
	srv.AddTool(tool, h)
	s.tools = append(s.tools, tool.Name)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(false),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
