package floating

import (
	"time"

	"github.com/1broseidon/floatkb/internal/config"
	"github.com/1broseidon/floatkb/internal/toggle"
)

// SnapSize is the size applied by Snap when snap-resize is enabled.
type SnapSize struct {
	WidthPct  int
	HeightPct int
}

// Settings are the tunables of the container.
type Settings struct {
	HandleHeight int

	IgnoreWindow time.Duration
	SettleDelay  time.Duration
	ResetDelay   time.Duration

	SnapResize bool
	Snap       SnapSize

	PassthroughOpacity float64
	Toggle             toggle.Options
}

// DefaultSettings mirrors config.DefaultConfig.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.DefaultConfig())
}

// SettingsFromConfig extracts container settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	opts := toggle.DefaultOptions()
	opts.DragThreshold = float64(cfg.Gestures.DragThreshold)
	opts.SwipeThreshold = float64(cfg.Gestures.SwipeThreshold)
	opts.Remember = cfg.Passthrough.RememberTogglePosition

	return Settings{
		HandleHeight:       cfg.Overlay.HandleHeight,
		IgnoreWindow:       cfg.IgnoreWindow(),
		SettleDelay:        cfg.SettleDelay(),
		ResetDelay:         cfg.ResetDelay(),
		SnapResize:         cfg.Snap.Resize,
		Snap:               SnapSize{WidthPct: cfg.Snap.WidthPercent, HeightPct: cfg.Snap.HeightPercent},
		PassthroughOpacity: cfg.Passthrough.Opacity,
		Toggle:             opts,
	}
}
