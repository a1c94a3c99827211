package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/1broseidon/floatkb/internal/command"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleRunCommand(_ context.Context, _ *mcpsdk.CallToolRequest, args RunCommandInput) (*mcpsdk.CallToolResult, RunCommandOutput, error) {
	name := strings.ToLower(strings.TrimSpace(args.Name))
	if !command.Known(name) {
		return nil, RunCommandOutput{}, fmt.Errorf("unknown command %q (available: %s)", args.Name, strings.Join(command.Names(), ", "))
	}
	arg := strings.TrimSpace(args.Arg)

	st, err := s.daemon.Run(name, arg)
	if err != nil {
		s.logger.Warn("Command failed", "command", name, "arg", arg, "err", err)
		return nil, RunCommandOutput{}, err
	}
	s.logger.Info("Command ran", "command", name, "mode", st.Mode)
	return nil, RunCommandOutput{Command: name, Overlay: *st}, nil
}

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, err
	}
	return nil, GetStatusOutput{
		Overlay:       st.Overlay,
		UptimeSeconds: st.UptimeSeconds,
		PID:           st.PID,
	}, nil
}

func (s *Server) handleListCommands(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListCommandsInput) (*mcpsdk.CallToolResult, ListCommandsOutput, error) {
	names, err := s.daemon.ListCommands()
	if err != nil {
		// The command set is compiled in, so an unreachable daemon still has
		// an answer.
		s.logger.Debug("Daemon unreachable, listing builtin commands", "err", err)
		names = command.Names()
	}
	return nil, ListCommandsOutput{Commands: names}, nil
}

func (s *Server) handleReloadConfig(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReloadConfigInput) (*mcpsdk.CallToolResult, ReloadConfigOutput, error) {
	if err := s.daemon.Reload(); err != nil {
		return nil, ReloadConfigOutput{}, err
	}
	return nil, ReloadConfigOutput{Reloaded: true}, nil
}
