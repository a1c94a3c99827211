package cli

import (
	"github.com/1broseidon/floatkb/internal/ipc"
	"github.com/1broseidon/floatkb/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol server",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve overlay controls as MCP tools (stdio transport)",
		Long:  `Serve run_command, get_status, list_commands and reload_config over stdio. Tools forward to the running daemon.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return mcp.NewServer(ipc.NewClient(), loggerFromContext(ctx)).Run(ctx)
		},
	})
	return cmd
}
