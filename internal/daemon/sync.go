package daemon

import (
	"github.com/1broseidon/floatkb/internal/config"
	"github.com/1broseidon/floatkb/internal/floating"
	"github.com/1broseidon/floatkb/internal/geometry"
	"github.com/1broseidon/floatkb/internal/keygrid"
	"github.com/charmbracelet/log"
)

// Overlay is the part of the container a config reload touches.
type Overlay interface {
	ApplySettings(s floating.Settings)
	SetLayout(layout *keygrid.Layout)
	SetFold(f geometry.Fold) error
}

// DefaultsSetter receives the fallback geometry. *geometry.Store implements it.
type DefaultsSetter interface {
	SetDefaults(d geometry.Defaults)
}

// HotkeyBinder binds global key sequences. *hotkeys.Handler implements it.
type HotkeyBinder interface {
	Register(bindings map[string]string) error
	Unregister()
}

// StateSynchronizer pushes a freshly loaded config into the running
// components.
type StateSynchronizer struct {
	overlay  Overlay
	defaults DefaultsSetter
	hotkeys  HotkeyBinder
	logger   *log.Logger

	layoutPath string
}

// NewStateSynchronizer creates a synchronizer. hotkeys may be nil.
func NewStateSynchronizer(overlay Overlay, defaults DefaultsSetter, hotkeys HotkeyBinder, logger *log.Logger) *StateSynchronizer {
	if logger == nil {
		logger = log.Default()
	}
	return &StateSynchronizer{
		overlay:  overlay,
		defaults: defaults,
		hotkeys:  hotkeys,
		logger:   logger.WithPrefix("sync"),
	}
}

// Apply reapplies settings, geometry defaults, the fold state and hotkeys
// from cfg. The layout is reloaded only when its path changed; a layout that
// fails to load keeps the current one.
func (s *StateSynchronizer) Apply(cfg *config.Config) {
	s.overlay.ApplySettings(floating.SettingsFromConfig(cfg))
	s.defaults.SetDefaults(geometryDefaults(cfg))

	if cfg.Layout != s.layoutPath {
		layout, err := loadLayout(cfg.Layout)
		if err != nil {
			s.logger.Warn("Keeping current layout", "path", cfg.Layout, "err", err)
		} else {
			s.overlay.SetLayout(layout)
			s.layoutPath = cfg.Layout
			s.logger.Info("Layout loaded", "name", layout.Name)
		}
	}

	if fold, ok := geometry.ParseFold(cfg.FoldState); ok {
		if err := s.overlay.SetFold(fold); err != nil {
			s.logger.Warn("Failed to apply fold state", "fold", fold, "err", err)
		}
	}

	if s.hotkeys != nil {
		s.hotkeys.Unregister()
		if err := s.hotkeys.Register(cfg.Hotkeys); err != nil {
			s.logger.Warn("Some hotkeys were not registered", "err", err)
		}
	}
}

// geometryDefaults extracts the fallback geometry from cfg.
func geometryDefaults(cfg *config.Config) geometry.Defaults {
	return geometry.Defaults{
		WidthPct:  cfg.Overlay.WidthPercent,
		HeightPct: cfg.Overlay.HeightPercent,
		X:         cfg.Overlay.X,
		Y:         cfg.Overlay.Y,
	}
}

// loadLayout reads the layout at path, or the builtin layout for "".
func loadLayout(path string) (*keygrid.Layout, error) {
	if path == "" {
		return keygrid.DefaultLayout(), nil
	}
	return keygrid.LoadLayout(path)
}
