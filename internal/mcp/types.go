package mcp

import "github.com/1broseidon/floatkb/internal/floating"

// RunCommandInput is the input for the run_command tool.
type RunCommandInput struct {
	Name string `json:"name" jsonschema:"required,Overlay command name (see list_commands), e.g. toggle_passthrough or snap_left"`
	Arg  string `json:"arg,omitempty" jsonschema:"Command argument. Only set_fold takes one: folded or unfolded."`
}

// RunCommandOutput is the output for the run_command tool.
type RunCommandOutput struct {
	Command string          `json:"command"`
	Overlay floating.Status `json:"overlay"`
}

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	Overlay       floating.Status `json:"overlay"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	PID           int             `json:"pid"`
}

// ListCommandsInput is the input for the list_commands tool.
type ListCommandsInput struct{}

// ListCommandsOutput is the output for the list_commands tool.
type ListCommandsOutput struct {
	Commands []string `json:"commands"`
}

// ReloadConfigInput is the input for the reload_config tool.
type ReloadConfigInput struct{}

// ReloadConfigOutput is the output for the reload_config tool.
type ReloadConfigOutput struct {
	Reloaded bool `json:"reloaded"`
}
