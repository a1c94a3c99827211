package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.IgnoreWindow() != 100*time.Millisecond {
		t.Fatalf("ignore window = %v", cfg.IgnoreWindow())
	}
	if cfg.ResetDelay() != 50*time.Millisecond || cfg.SettleDelay() != 100*time.Millisecond {
		t.Fatalf("delays = %v / %v", cfg.ResetDelay(), cfg.SettleDelay())
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.File != "" {
		t.Fatalf("expected no file, got %q", res.File)
	}
	if res.Config.Snap.WidthPercent != 50 || res.Config.Snap.HeightPercent != 25 {
		t.Fatalf("snap defaults = %+v", res.Config.Snap)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(writeConfig(t, "# empty"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Passthrough.Opacity != 0.35 {
		t.Fatalf("opacity = %v", res.Config.Passthrough.Opacity)
	}
	if len(res.Config.Hotkeys) != len(DefaultConfig().Hotkeys) {
		t.Fatalf("expected default hotkeys, got %v", res.Config.Hotkeys)
	}
}

func TestLoadFromPath_PartialOverride(t *testing.T) {
	path := writeConfig(t,
		"gestures:",
		"  drag_threshold: 20",
		"  swipe_threshold: 45",
		"snap:",
		"  resize: false",
		"store:",
		"  backend: redis",
		"  redis:",
		"    addr: \"10.0.0.2:6379\"",
	)
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Gestures.DragThreshold != 20 || cfg.Gestures.SwipeThreshold != 45 {
		t.Fatalf("gestures = %+v", cfg.Gestures)
	}
	if cfg.Gestures.IgnoreWindowMS != 100 {
		t.Fatalf("expected untouched ignore window default, got %d", cfg.Gestures.IgnoreWindowMS)
	}
	if cfg.Snap.Resize {
		t.Fatalf("expected snap.resize false")
	}
	if cfg.Store.Backend != "redis" || cfg.Store.Redis.Addr != "10.0.0.2:6379" || cfg.Store.Redis.Prefix != "floatkb:" {
		t.Fatalf("store = %+v", cfg.Store)
	}
}

func TestLoadFromPath_HotkeysReplaceDefaults(t *testing.T) {
	res, err := LoadFromPath(writeConfig(t,
		"hotkeys:",
		"  \"Mod4-F1\": snap_left",
	))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Config.Hotkeys) != 1 || res.Config.Hotkeys["Mod4-F1"] != "snap_left" {
		t.Fatalf("hotkeys = %v", res.Config.Hotkeys)
	}
}

func TestLoadFromPath_UnknownFieldRejected(t *testing.T) {
	_, err := LoadFromPath(writeConfig(t, "overlay:", "  colour: red"))
	if err == nil || !strings.Contains(err.Error(), "colour") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSource(t *testing.T) {
	path := writeConfig(t,
		"log_level: info",
		"passthrough:",
		"  opacity: 1.5",
	)
	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "passthrough.opacity" {
		t.Fatalf("path = %q", verr.Path)
	}
	if verr.Source.Line != 3 {
		t.Fatalf("line = %d, want 3", verr.Source.Line)
	}
	if !strings.HasPrefix(err.Error(), path+":3:") {
		t.Fatalf("error %q should start with file:line", err.Error())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"fold", func(c *Config) { c.FoldState = "half" }, "fold_state"},
		{"overlay width", func(c *Config) { c.Overlay.WidthPercent = 0 }, "overlay.width_percent"},
		{"overlay height", func(c *Config) { c.Overlay.HeightPercent = 101 }, "overlay.height_percent"},
		{"handle", func(c *Config) { c.Overlay.HandleHeight = -1 }, "overlay.handle_height"},
		{"drag threshold", func(c *Config) { c.Gestures.DragThreshold = 0 }, "gestures.drag_threshold"},
		{"swipe below drag", func(c *Config) { c.Gestures.SwipeThreshold = 10 }, "gestures.swipe_threshold"},
		{"negative delay", func(c *Config) { c.Gestures.ResetDelayMS = -1 }, "gestures"},
		{"snap width", func(c *Config) { c.Snap.WidthPercent = 0 }, "snap.width_percent"},
		{"snap height", func(c *Config) { c.Snap.HeightPercent = 200 }, "snap.height_percent"},
		{"opacity", func(c *Config) { c.Passthrough.Opacity = 0 }, "passthrough.opacity"},
		{"backend", func(c *Config) { c.Store.Backend = "mongo" }, "store.backend"},
		{"redis addr", func(c *Config) { c.Store.Backend = "redis"; c.Store.Redis.Addr = "" }, "store.redis.addr"},
		{"empty hotkey command", func(c *Config) { c.Hotkeys["Mod4-x"] = " " }, "hotkeys.Mod4-x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("path = %q, want %q", verr.Path, tt.path)
			}
		})
	}
}

func TestSaveToPath_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Snap.WidthPercent = 40
	cfg.FoldState = "unfolded"
	if err := cfg.SaveToPath(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Snap.WidthPercent != 40 || res.Config.FoldState != "unfolded" {
		t.Fatalf("round trip lost values: %+v", res.Config)
	}
}

func TestSaveToPath_RejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "nope"
	if err := cfg.SaveToPath(filepath.Join(t.TempDir(), "c.yaml")); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestStatePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Path = "/tmp/x/state.json"
	got, err := cfg.StatePath()
	if err != nil || got != "/tmp/x/state.json" {
		t.Fatalf("StatePath = %q, %v", got, err)
	}
}

func TestHotkeySequencesSorted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Hotkeys = map[string]string{"b": "x", "a": "y", "c": "z"}
	got := strings.Join(cfg.HotkeySequences(), ",")
	if got != "a,b,c" {
		t.Fatalf("got %q", got)
	}
}
