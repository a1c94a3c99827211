// Package command maps discrete command names onto the floating container.
// Every transport (IPC, hotkeys, MCP, keys bound to actions) goes through a
// Receiver so the set of commands is defined once.
package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/1broseidon/floatkb/internal/floating"
	"github.com/1broseidon/floatkb/internal/geometry"
	"github.com/1broseidon/floatkb/internal/toggle"
	"github.com/charmbracelet/log"
)

// Command names.
const (
	StartDrag          = "start_drag"
	StartResize        = "start_resize"
	EnablePassthrough  = "enable_passthrough"
	DisablePassthrough = "disable_passthrough"
	TogglePassthrough  = "toggle_passthrough"
	SnapLeft           = "snap_left"
	SnapRight          = "snap_right"
	SnapTop            = "snap_top"
	SnapBottom         = "snap_bottom"
	FillWidth          = "fill_width"
	ToggleDock         = "toggle_dock"
	CenterHorizontal   = "center_horizontal"
	CenterVertical     = "center_vertical"
	CenterBoth         = "center_both"
	TogglePersistence  = "toggle_persistence"
	ArrowUp            = "arrow_up"
	ArrowDown          = "arrow_down"
	ArrowLeft          = "arrow_left"
	ArrowRight         = "arrow_right"
	Show               = "show"
	Hide               = "hide"
	SetFold            = "set_fold"
	SessionEnd         = "session_end"
)

// ErrUnknownCommand is returned for names no handler is registered for.
var ErrUnknownCommand = errors.New("unknown command")

// Controller is the part of *floating.Container the receiver drives.
type Controller interface {
	StartDrag() error
	StartResize() error
	EnablePassthrough() error
	DisablePassthrough() error
	TogglePassthrough() (bool, error)
	Snap(edge floating.Edge) error
	FillWidth() error
	ToggleDock() (bool, error)
	Center(axis floating.Axis) error
	TogglePersistence() bool
	Navigate(dir toggle.Direction)
	Show() error
	Hide()
	SetFold(f geometry.Fold) error
	SessionEnd()
	Status() floating.Status
}

type handler func(c Controller, arg string) error

// Receiver executes named commands against a Controller.
type Receiver struct {
	c        Controller
	logger   *log.Logger
	handlers map[string]handler
}

// NewReceiver creates a receiver for c.
func NewReceiver(c Controller, logger *log.Logger) *Receiver {
	if logger == nil {
		logger = log.Default()
	}
	return &Receiver{
		c:        c,
		logger:   logger.WithPrefix("command"),
		handlers: handlers(),
	}
}

func handlers() map[string]handler {
	snap := func(e floating.Edge) handler {
		return func(c Controller, _ string) error { return c.Snap(e) }
	}
	center := func(a floating.Axis) handler {
		return func(c Controller, _ string) error { return c.Center(a) }
	}
	arrow := func(d toggle.Direction) handler {
		return func(c Controller, _ string) error {
			c.Navigate(d)
			return nil
		}
	}

	return map[string]handler{
		StartDrag:          func(c Controller, _ string) error { return c.StartDrag() },
		StartResize:        func(c Controller, _ string) error { return c.StartResize() },
		EnablePassthrough:  func(c Controller, _ string) error { return c.EnablePassthrough() },
		DisablePassthrough: func(c Controller, _ string) error { return c.DisablePassthrough() },
		TogglePassthrough: func(c Controller, _ string) error {
			_, err := c.TogglePassthrough()
			return err
		},
		SnapLeft:   snap(floating.EdgeLeft),
		SnapRight:  snap(floating.EdgeRight),
		SnapTop:    snap(floating.EdgeTop),
		SnapBottom: snap(floating.EdgeBottom),
		FillWidth:  func(c Controller, _ string) error { return c.FillWidth() },
		ToggleDock: func(c Controller, _ string) error {
			_, err := c.ToggleDock()
			return err
		},
		CenterHorizontal: center(floating.AxisHorizontal),
		CenterVertical:   center(floating.AxisVertical),
		CenterBoth:       center(floating.AxisBoth),
		TogglePersistence: func(c Controller, _ string) error {
			c.TogglePersistence()
			return nil
		},
		ArrowUp:    arrow(toggle.DirUp),
		ArrowDown:  arrow(toggle.DirDown),
		ArrowLeft:  arrow(toggle.DirLeft),
		ArrowRight: arrow(toggle.DirRight),
		Show:       func(c Controller, _ string) error { return c.Show() },
		Hide: func(c Controller, _ string) error {
			c.Hide()
			return nil
		},
		SetFold: func(c Controller, arg string) error {
			f, ok := geometry.ParseFold(arg)
			if !ok || arg == "" {
				return fmt.Errorf("set_fold needs folded or unfolded, got %q", arg)
			}
			return c.SetFold(f)
		},
		SessionEnd: func(c Controller, _ string) error {
			c.SessionEnd()
			return nil
		},
	}
}

// Names lists every command in sorted order.
func Names() []string {
	h := handlers()
	out := make([]string, 0, len(h))
	for name := range h {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Known reports whether name (without an argument) is a command.
func Known(name string) bool {
	_, ok := handlers()[name]
	return ok
}

// Parse splits "name:arg" into its parts. The argument is optional.
func Parse(s string) (name, arg string) {
	s = strings.TrimSpace(s)
	name, arg, _ = strings.Cut(s, ":")
	return strings.ToLower(strings.TrimSpace(name)), strings.TrimSpace(arg)
}

// Execute runs the command name with an optional argument and returns the
// container status afterwards.
func (r *Receiver) Execute(name, arg string) (floating.Status, error) {
	h, ok := r.handlers[name]
	if !ok {
		return floating.Status{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	r.logger.Debug("Executing command", "command", name, "arg", arg)
	if err := h(r.c, arg); err != nil {
		r.logger.Warn("Command failed", "command", name, "err", err)
		return r.c.Status(), fmt.Errorf("failed to run %s: %w", name, err)
	}
	return r.c.Status(), nil
}

// Run parses s ("name" or "name:arg") and executes it.
func (r *Receiver) Run(s string) (floating.Status, error) {
	name, arg := Parse(s)
	return r.Execute(name, arg)
}

// Status returns the container status.
func (r *Receiver) Status() floating.Status {
	return r.c.Status()
}

// HandleAction runs an action bound to a key. It matches the container's
// OnAction signature; failures are only logged.
func (r *Receiver) HandleAction(action string) {
	if _, err := r.Run(action); err != nil {
		r.logger.Warn("Key action failed", "action", action, "err", err)
	}
}
