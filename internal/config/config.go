package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Overlay holds the fallback geometry used when nothing is persisted.
type Overlay struct {
	WidthPercent  int `yaml:"width_percent"`  // 1-100
	HeightPercent int `yaml:"height_percent"` // 1-100
	X             int `yaml:"x"`
	Y             int `yaml:"y"`
	HandleHeight  int `yaml:"handle_height"` // Height of the drag/resize strip in pixels
}

// Gestures configures thresholds and delays of the touch state machine.
type Gestures struct {
	DragThreshold  int `yaml:"drag_threshold"`   // Toggle drag threshold in pixels
	SwipeThreshold int `yaml:"swipe_threshold"`  // Toggle swipe threshold in pixels
	IgnoreWindowMS int `yaml:"ignore_window_ms"` // Touches swallowed after a mode change
	SettleDelayMS  int `yaml:"settle_delay_ms"`  // Delay before recreating the surface after bulk changes
	ResetDelayMS   int `yaml:"reset_delay_ms"`   // Secondary state reset after a mode exit
}

// Snap configures snap-to-edge behavior.
type Snap struct {
	Resize        bool `yaml:"resize"`
	WidthPercent  int  `yaml:"width_percent"`
	HeightPercent int  `yaml:"height_percent"`
}

// Passthrough configures the passthrough mode.
type Passthrough struct {
	Opacity                float64 `yaml:"opacity"` // Main surface opacity while disabled (0-1]
	RememberTogglePosition bool    `yaml:"remember_toggle_position"`
}

// Redis configures the shared geometry store.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Store selects where geometry is persisted.
type Store struct {
	Backend string `yaml:"backend"` // "file" or "redis"
	Path    string `yaml:"path"`    // State file for the file backend; empty = default
	Redis   Redis  `yaml:"redis"`
}

// Config is the root configuration structure.
type Config struct {
	LogLevel    string            `yaml:"log_level"`
	Display     string            `yaml:"display"`    // X11 DISPLAY override; empty = inherit environment
	Layout      string            `yaml:"layout"`     // TOML layout path; empty = builtin
	FoldState   string            `yaml:"fold_state"` // "folded" or "unfolded"
	Persistence bool              `yaml:"persistence"`
	Overlay     Overlay           `yaml:"overlay"`
	Gestures    Gestures          `yaml:"gestures"`
	Snap        Snap              `yaml:"snap"`
	Passthrough Passthrough       `yaml:"passthrough"`
	Store       Store             `yaml:"store"`
	Hotkeys     map[string]string `yaml:"hotkeys"` // key sequence -> command
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		FoldState:   "folded",
		Persistence: true,
		Overlay: Overlay{
			WidthPercent:  70,
			HeightPercent: 30,
			X:             100,
			Y:             300,
			HandleHeight:  30,
		},
		Gestures: Gestures{
			DragThreshold:  15,
			SwipeThreshold: 30,
			IgnoreWindowMS: 100,
			SettleDelayMS:  100,
			ResetDelayMS:   50,
		},
		Snap: Snap{
			Resize:        true,
			WidthPercent:  50,
			HeightPercent: 25,
		},
		Passthrough: Passthrough{
			Opacity:                0.35,
			RememberTogglePosition: true,
		},
		Store: Store{
			Backend: "file",
			Redis: Redis{
				Addr:   "localhost:6379",
				Prefix: "floatkb:",
			},
		},
		Hotkeys: map[string]string{
			"Mod4-Shift-p": "toggle_passthrough",
			"Mod4-Shift-d": "toggle_dock",
			"Mod4-Shift-m": "start_drag",
		},
	}
}

// IgnoreWindow returns how long touches are swallowed after a mode change.
func (c *Config) IgnoreWindow() time.Duration {
	return time.Duration(c.Gestures.IgnoreWindowMS) * time.Millisecond
}

// SettleDelay returns the delay before recreating the surface after bulk changes.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Gestures.SettleDelayMS) * time.Millisecond
}

// ResetDelay returns the delay of the secondary state reset after a mode exit.
func (c *Config) ResetDelay() time.Duration {
	return time.Duration(c.Gestures.ResetDelayMS) * time.Millisecond
}

// HotkeySequences returns the configured key sequences in stable order.
func (c *Config) HotkeySequences() []string {
	out := make([]string, 0, len(c.Hotkeys))
	for seq := range c.Hotkeys {
		out = append(out, seq)
	}
	sort.Strings(out)
	return out
}

// StatePath returns the file backend path, falling back to the default location.
func (c *Config) StatePath() (string, error) {
	if strings.TrimSpace(c.Store.Path) != "" {
		return c.Store.Path, nil
	}
	return defaultStatePath()
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	switch c.FoldState {
	case "folded", "unfolded":
	default:
		return &ValidationError{Path: "fold_state", Err: fmt.Errorf("fold_state must be one of: folded, unfolded")}
	}
	if !percentInRange(c.Overlay.WidthPercent) {
		return &ValidationError{Path: "overlay.width_percent", Err: fmt.Errorf("width_percent must be between 1 and 100")}
	}
	if !percentInRange(c.Overlay.HeightPercent) {
		return &ValidationError{Path: "overlay.height_percent", Err: fmt.Errorf("height_percent must be between 1 and 100")}
	}
	if c.Overlay.HandleHeight < 0 {
		return &ValidationError{Path: "overlay.handle_height", Err: fmt.Errorf("handle_height must be >= 0")}
	}
	if c.Gestures.DragThreshold <= 0 {
		return &ValidationError{Path: "gestures.drag_threshold", Err: fmt.Errorf("drag_threshold must be > 0")}
	}
	if c.Gestures.SwipeThreshold <= c.Gestures.DragThreshold {
		return &ValidationError{Path: "gestures.swipe_threshold", Err: fmt.Errorf("swipe_threshold must be greater than drag_threshold")}
	}
	if c.Gestures.IgnoreWindowMS < 0 || c.Gestures.SettleDelayMS < 0 || c.Gestures.ResetDelayMS < 0 {
		return &ValidationError{Path: "gestures", Err: fmt.Errorf("delays must be >= 0")}
	}
	if !percentInRange(c.Snap.WidthPercent) {
		return &ValidationError{Path: "snap.width_percent", Err: fmt.Errorf("width_percent must be between 1 and 100")}
	}
	if !percentInRange(c.Snap.HeightPercent) {
		return &ValidationError{Path: "snap.height_percent", Err: fmt.Errorf("height_percent must be between 1 and 100")}
	}
	if c.Passthrough.Opacity <= 0 || c.Passthrough.Opacity > 1 {
		return &ValidationError{Path: "passthrough.opacity", Err: fmt.Errorf("opacity must be in (0, 1]")}
	}
	switch c.Store.Backend {
	case "file":
	case "redis":
		if strings.TrimSpace(c.Store.Redis.Addr) == "" {
			return &ValidationError{Path: "store.redis.addr", Err: fmt.Errorf("addr is required for the redis backend")}
		}
	default:
		return &ValidationError{Path: "store.backend", Err: fmt.Errorf("backend must be one of: file, redis")}
	}
	for seq, cmd := range c.Hotkeys {
		if strings.TrimSpace(seq) == "" {
			return &ValidationError{Path: "hotkeys", Err: fmt.Errorf("hotkeys contains an empty key sequence")}
		}
		if strings.TrimSpace(cmd) == "" {
			return &ValidationError{Path: "hotkeys." + seq, Err: fmt.Errorf("command must not be empty")}
		}
	}
	return nil
}

func percentInRange(p int) bool {
	return p >= 1 && p <= 100
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveToPath(path)
}

// SaveToPath validates and writes the configuration to path.
func (c *Config) SaveToPath(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ValidationError reports an invalid config value and, when known, where it
// was set.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
