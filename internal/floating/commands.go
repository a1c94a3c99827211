package floating

import (
	"github.com/1broseidon/floatkb/internal/geometry"
	"github.com/1broseidon/floatkb/internal/platform"
)

// StartDrag arms a one-shot drag: the next touch-down on the surface starts
// dragging. It is ignored in passthrough, where the surface receives no touch.
func (c *Container) StartDrag() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armLocked(ModeDragging)
}

// StartResize arms a one-shot resize.
func (c *Container) StartResize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armLocked(ModeResizing)
}

func (c *Container) armLocked(m Mode) error {
	if !c.shown {
		return ErrNotShown
	}
	if c.mode == ModePassthrough {
		c.logger.Info("Ignoring start command in passthrough", "mode", m)
		return nil
	}
	c.armDrag = m == ModeDragging
	c.armResize = m == ModeResizing
	c.updateLocked()
	c.logger.Debug("Armed gesture", "mode", m)
	return nil
}

// Snap moves the overlay against edge, resizing it first when snap-resize
// is enabled.
func (c *Container) Snap(edge Edge) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.shown {
		return ErrNotShown
	}
	c.clearStuckLocked()

	var size *SnapSize
	if c.settings.SnapResize {
		s := c.settings.Snap
		size = &s
	}
	c.geom = Snapped(c.geom, edge, size, c.screenW, c.screenH)
	c.docked = false
	c.commitLocked()
	c.logger.Info("Snapped", "edge", edge, "x", c.geom.X, "y", c.geom.Y, "w", c.geom.WidthPx, "h", c.geom.HeightPx)
	return nil
}

// FillWidth spans the full screen width and recreates the surface once the
// settle delay has passed.
func (c *Container) FillWidth() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.shown {
		return ErrNotShown
	}
	c.clearStuckLocked()
	c.geom = FilledWidth(c.geom, c.screenW, c.screenH)
	c.commitLocked()
	c.scheduleRefreshLocked()
	c.logger.Info("Filled width", "w", c.geom.WidthPx)
	return nil
}

// Center centers the overlay along axis.
func (c *Container) Center(axis Axis) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.shown {
		return ErrNotShown
	}
	c.clearStuckLocked()
	c.geom = Centered(c.geom, axis, c.screenW, c.screenH)
	c.docked = false
	c.commitLocked()
	c.logger.Info("Centered", "axis", axis, "x", c.geom.X, "y", c.geom.Y)
	return nil
}

// ToggleDock switches between a full-width overlay on the bottom edge and
// the placement saved when docking. It reports whether the overlay is now
// docked.
func (c *Container) ToggleDock() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.shown {
		return c.docked, ErrNotShown
	}
	c.clearStuckLocked()

	if c.docked {
		c.geom = Undocked(c.geom, c.store.DockSnapshot(), c.screenW, c.screenH)
		c.docked = false
	} else {
		c.store.SaveDockSnapshot(geometry.DockSnapshot{X: c.geom.X, Y: c.geom.Y, Width: c.geom.WidthPx})
		c.geom = Docked(c.geom, c.screenW, c.screenH)
		c.docked = true
	}
	c.commitLocked()
	c.scheduleRefreshLocked()
	c.logger.Info("Dock toggled", "docked", c.docked)
	return c.docked, nil
}

// TogglePersistence flips whether the overlay survives the end of an input
// session and reports the new value.
func (c *Container) TogglePersistence() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.persistence = !c.persistence
	c.store.SavePersistence(c.persistence)
	c.logger.Info("Persistence toggled", "enabled", c.persistence)
	return c.persistence
}

// Status is a snapshot of the container state.
type Status struct {
	Shown        bool              `json:"shown"`
	Mode         string            `json:"mode"`
	Variant      string            `json:"variant"`
	ScreenWidth  int               `json:"screen_width"`
	ScreenHeight int               `json:"screen_height"`
	Geometry     geometry.Geometry `json:"geometry"`
	Toggle       bool              `json:"toggle"`
	ToggleBounds platform.Rect     `json:"toggle_bounds"`
	Docked       bool              `json:"docked"`
	Persistence  bool              `json:"persistence"`
	Armed        string            `json:"armed,omitempty"`
	Session      string            `json:"session,omitempty"`
}

// Status returns a snapshot of the container state.
func (c *Container) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Shown:        c.shown,
		Mode:         c.mode.String(),
		Variant:      geometry.Variant{Orientation: c.variant.Orientation, Fold: c.fold}.Key(),
		ScreenWidth:  c.screenW,
		ScreenHeight: c.screenH,
		Geometry:     c.geom,
		Toggle:       c.toggle.Shown(),
		ToggleBounds: c.toggle.Bounds(),
		Docked:       c.docked,
		Persistence:  c.persistence,
	}
	switch {
	case c.armDrag:
		st.Armed = "drag"
	case c.armResize:
		st.Armed = "resize"
	}
	if c.session != nil {
		st.Session = c.session.ID.String()
	}
	return st
}
