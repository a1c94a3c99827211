package daemon

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/1broseidon/floatkb/internal/config"
	"github.com/1broseidon/floatkb/internal/floating"
	"github.com/1broseidon/floatkb/internal/geometry"
	"github.com/1broseidon/floatkb/internal/keygrid"
	"github.com/charmbracelet/log"
)

type fakeOverlay struct {
	settings []floating.Settings
	layouts  []string
	folds    []geometry.Fold
	foldErr  error
}

func (f *fakeOverlay) ApplySettings(s floating.Settings) { f.settings = append(f.settings, s) }
func (f *fakeOverlay) SetLayout(l *keygrid.Layout)       { f.layouts = append(f.layouts, l.Name) }
func (f *fakeOverlay) SetFold(fold geometry.Fold) error {
	f.folds = append(f.folds, fold)
	return f.foldErr
}

type fakeDefaults struct{ got []geometry.Defaults }

func (f *fakeDefaults) SetDefaults(d geometry.Defaults) { f.got = append(f.got, d) }

type fakeHotkeys struct {
	unregistered int
	bindings     []map[string]string
	err          error
}

func (f *fakeHotkeys) Register(b map[string]string) error {
	f.bindings = append(f.bindings, b)
	return f.err
}

func (f *fakeHotkeys) Unregister() { f.unregistered++ }

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func writeLayout(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layout.toml")
	data := "name = \"" + name + "\"\n\n[[rows]]\nkeys = [ { label = \"a\" }, { label = \"b\" } ]\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestApply_PushesSettingsDefaultsAndHotkeys(t *testing.T) {
	ov, defs, hk := &fakeOverlay{}, &fakeDefaults{}, &fakeHotkeys{}
	s := NewStateSynchronizer(ov, defs, hk, quietLogger())

	cfg := config.DefaultConfig()
	cfg.Passthrough.Opacity = 0.5
	cfg.Overlay.WidthPercent = 80
	cfg.FoldState = "unfolded"
	cfg.Hotkeys = map[string]string{"Mod4-k": "show"}
	s.Apply(cfg)

	if len(ov.settings) != 1 || ov.settings[0].PassthroughOpacity != 0.5 {
		t.Fatalf("settings = %+v", ov.settings)
	}
	if len(defs.got) != 1 || defs.got[0].WidthPct != 80 || defs.got[0].Y != 300 {
		t.Fatalf("defaults = %+v", defs.got)
	}
	if len(ov.folds) != 1 || ov.folds[0] != geometry.Unfolded {
		t.Fatalf("folds = %v", ov.folds)
	}
	if hk.unregistered != 1 || len(hk.bindings) != 1 || hk.bindings[0]["Mod4-k"] != "show" {
		t.Fatalf("hotkeys = %+v", hk)
	}
	if len(ov.layouts) != 0 {
		t.Fatalf("unchanged layout path reloaded layout: %v", ov.layouts)
	}
}

func TestApply_LayoutChanges(t *testing.T) {
	ov := &fakeOverlay{}
	s := NewStateSynchronizer(ov, &fakeDefaults{}, nil, quietLogger())

	cfg := config.DefaultConfig()
	cfg.Layout = writeLayout(t, "tiny")
	s.Apply(cfg)
	if len(ov.layouts) != 1 || ov.layouts[0] != "tiny" {
		t.Fatalf("layouts = %v, want [tiny]", ov.layouts)
	}

	// Same path: no reload.
	s.Apply(cfg)
	if len(ov.layouts) != 1 {
		t.Fatalf("layouts = %v, want one load", ov.layouts)
	}

	// Broken path keeps the current layout and retries next time.
	cfg.Layout = filepath.Join(t.TempDir(), "missing.toml")
	s.Apply(cfg)
	if len(ov.layouts) != 1 || s.layoutPath == cfg.Layout {
		t.Fatalf("layouts = %v, layoutPath = %q", ov.layouts, s.layoutPath)
	}

	// Back to builtin.
	cfg.Layout = ""
	s.Apply(cfg)
	if len(ov.layouts) != 2 || ov.layouts[1] != keygrid.DefaultLayout().Name {
		t.Fatalf("layouts = %v", ov.layouts)
	}
}

func TestApply_FailuresDoNotStopReload(t *testing.T) {
	ov := &fakeOverlay{foldErr: errors.New("surface gone")}
	hk := &fakeHotkeys{err: errors.New("grab failed")}
	s := NewStateSynchronizer(ov, &fakeDefaults{}, hk, quietLogger())

	cfg := config.DefaultConfig()
	cfg.FoldState = "bogus"
	s.Apply(cfg)

	if len(ov.folds) != 0 {
		t.Fatalf("invalid fold state applied: %v", ov.folds)
	}
	if len(hk.bindings) != 1 {
		t.Fatalf("hotkeys not registered after failure path")
	}

	cfg.FoldState = "folded"
	s.Apply(cfg)
	if len(ov.folds) != 1 || len(hk.bindings) != 2 {
		t.Fatalf("folds = %v, bindings = %d", ov.folds, len(hk.bindings))
	}
}
