// Package mcp exposes overlay commands as MCP tools. Tools forward to the
// running daemon over IPC.
package mcp

import (
	"context"

	"github.com/1broseidon/floatkb/internal/floating"
	"github.com/1broseidon/floatkb/internal/ipc"
	"github.com/charmbracelet/log"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ServerName    = "floatkb"
	ServerVersion = "0.1.0"
)

// Daemon is the daemon control surface. *ipc.Client implements it.
type Daemon interface {
	Run(name, arg string) (*floating.Status, error)
	GetStatus() (*ipc.StatusData, error)
	ListCommands() ([]string, error)
	Reload() error
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server for overlay control.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *log.Logger
}

// NewServer creates a new MCP server that forwards to daemon.
func NewServer(daemon Daemon, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		daemon: daemon,
		logger: logger.WithPrefix("mcp"),
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Debug("Serving MCP on stdio")
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "run_command",
		Description: "Run an overlay keyboard command in the floatkb daemon, such as toggle_passthrough, snap_left, fill_width, toggle_dock or set_fold. Returns the overlay state after the command.",
	}, s.handleRunCommand)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Get the floating keyboard state: visibility, mode (normal, moving, resizing, passthrough), geometry variant, bounds, toggle, dock and persistence flags.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_commands",
		Description: "List the command names accepted by run_command.",
	}, s.handleListCommands)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_config",
		Description: "Reload the daemon configuration file. Settings, layout and hotkeys are reapplied; an invalid file leaves the running configuration untouched.",
	}, s.handleReloadConfig)
}
