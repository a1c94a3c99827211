package floating

import (
	"time"

	"github.com/1broseidon/floatkb/internal/platform"
	"github.com/1broseidon/floatkb/internal/toggle"
)

// EnablePassthrough makes the main surface non-touchable and shows the
// toggle surface. Repeated calls are no-ops.
func (c *Container) EnablePassthrough() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enterPassthroughLocked()
}

// DisablePassthrough restores touch on the main surface and removes the
// toggle surface. Repeated calls are no-ops.
func (c *Container) DisablePassthrough() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exitPassthroughLocked()
	return nil
}

// TogglePassthrough flips passthrough and reports whether it is now enabled.
func (c *Container) TogglePassthrough() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModePassthrough {
		c.exitPassthroughLocked()
		return false, nil
	}
	if err := c.enterPassthroughLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// ToggleTapped implements toggle.Host.
func (c *Container) ToggleTapped() {
	if err := c.DisablePassthrough(); err != nil {
		c.logger.Warn("Failed to leave passthrough", "err", err)
	}
}

// ToggleSwiped implements toggle.Host.
func (c *Container) ToggleSwiped(dir toggle.Direction) {
	c.Navigate(dir)
}

// Navigate forwards a directional key to the key sink.
func (c *Container) Navigate(dir toggle.Direction) {
	c.mu.Lock()
	sink := c.keys
	c.mu.Unlock()

	if sink == nil {
		c.logger.Debug("Dropping navigation without key sink", "dir", dir)
		return
	}
	sink.Navigate(dir)
}

func (c *Container) enterPassthroughLocked() error {
	if !c.shown {
		return ErrNotShown
	}
	if c.mode == ModePassthrough {
		return nil
	}

	// Captured while the grid is still laid out for the touchable surface.
	anchor := c.toggleAnchorLocked()

	c.clearStuckLocked()
	c.setModeLocked(ModePassthrough)
	c.updateLocked()

	if err := c.toggle.Show(anchor, c.screenW, c.screenH); err != nil {
		// Without a toggle there is no way back by touch; stay touchable.
		c.mode = ModeNormal
		c.updateLocked()
		return err
	}
	c.logger.Info("Passthrough enabled")
	return nil
}

func (c *Container) exitPassthroughLocked() {
	if err := c.toggle.Hide(); err != nil {
		c.logger.Warn("Failed to remove toggle surface", "err", err)
	}
	if c.mode != ModePassthrough {
		return
	}
	if c.session != nil && c.session.InPassthrough {
		c.endSessionLocked(true)
	}
	c.mode = ModeNormal
	c.ignoreUntil = time.Time{}
	c.updateLocked()
	c.scheduleResetLocked()
	c.logger.Info("Passthrough disabled")
}

// toggleAnchorLocked returns the screen rectangle of the key bound to
// TriggerAction, falling back to the top-right key.
func (c *Container) toggleAnchorLocked() platform.Rect {
	m := c.surface.Metrics()
	if m.KeyWidth <= 0 || m.RowHeight <= 0 {
		return platform.Rect{}
	}
	row, col, ok := m.FindAction(TriggerAction)
	if !ok {
		row, col, ok = m.TopRight()
	}
	if !ok {
		return platform.Rect{}
	}
	r := m.KeyRect(row, col)
	return platform.Rect{
		X:      c.geom.X + round(r.X),
		Y:      c.geom.Y + c.settings.HandleHeight + round(r.Y),
		Width:  round(r.Width),
		Height: round(r.Height),
	}
}
