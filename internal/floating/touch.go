package floating

import (
	"math"

	"github.com/1broseidon/floatkb/internal/keygrid"
	"github.com/1broseidon/floatkb/internal/platform"
	"github.com/google/uuid"
)

type handle int

const (
	handleNone handle = iota
	handleDrag
	handleResize
)

// handleAt maps an x offset inside the handle strip to a handle. The left 30%
// of the strip has no handle.
func handleAt(x float64, width int) handle {
	w := float64(width)
	switch {
	case x >= 0.7*w:
		return handleResize
	case x >= 0.3*w:
		return handleDrag
	default:
		return handleNone
	}
}

// handleRegion is the part of the handle strip that starts a gesture, in
// surface-local coordinates.
func handleRegion(width, strip int) platform.Rect {
	x := int(math.Ceil(0.3 * float64(width)))
	return platform.Rect{X: x, Width: width - x, Height: strip}
}

// HandleTouch routes a touch event in screen coordinates. It returns false
// when the event is not intercepted and belongs to whatever is below the
// overlay.
func (c *Container) HandleTouch(ev platform.TouchEvent) bool {
	c.mu.Lock()
	consumed, after := c.handleTouchLocked(ev)
	c.mu.Unlock()

	if after != nil {
		after()
	}
	return consumed
}

func (c *Container) handleTouchLocked(ev platform.TouchEvent) (bool, func()) {
	if !c.shown {
		return false, nil
	}

	// Events of an active gesture are handled wherever they land and are
	// never swallowed, so a transient mode always ends.
	if c.session != nil && ev.Action != platform.TouchDown {
		return c.continueSessionLocked(ev)
	}

	bounds := c.geom.Rect()
	inside := bounds.Contains(ev.X, ev.Y)
	if ev.Action != platform.TouchDown {
		return inside && c.mode != ModePassthrough, nil
	}

	if c.session != nil {
		// A second down without an up: the previous gesture is lost.
		c.endSessionLocked(false)
	}
	if !inside {
		return false, nil
	}

	lx := ev.X - float64(bounds.X)
	ly := ev.Y - float64(bounds.Y)
	strip := float64(c.settings.HandleHeight)
	h := handleNone
	if ly < strip {
		h = handleAt(lx, c.geom.WidthPx)
	}

	// In passthrough only the handles still take touches.
	if c.mode == ModePassthrough && h == handleNone {
		return false, nil
	}
	if c.clock().Before(c.ignoreUntil) {
		c.logger.Debug("Ignoring touch after mode change", "x", ev.X, "y", ev.Y)
		return true, nil
	}

	switch {
	case c.armDrag:
		c.armDrag = false
		c.beginLocked(ModeDragging, ev)
		return true, nil
	case c.armResize:
		c.armResize = false
		c.beginLocked(ModeResizing, ev)
		return true, nil
	}

	if ly < strip {
		switch h {
		case handleDrag:
			c.beginLocked(ModeDragging, ev)
		case handleResize:
			c.beginLocked(ModeResizing, ev)
		default:
			c.gapTouchLocked(ev)
		}
		return true, nil
	}

	k, ok := c.surface.KeyAt(lx, ly-strip)
	if !ok {
		c.gapTouchLocked(ev)
		return true, nil
	}
	c.surface.Press(k)
	c.session = &Session{
		ID:     uuid.New(),
		Mode:   ModeNormal,
		StartX: ev.X,
		StartY: ev.Y,
		Start:  c.geom,
		Key:    &k,
	}
	c.updateLocked()
	return true, nil
}

func (c *Container) gapTouchLocked(ev platform.TouchEvent) {
	c.logger.Debug("Gap touch; entering passthrough", "x", ev.X, "y", ev.Y)
	if err := c.enterPassthroughLocked(); err != nil {
		c.logger.Warn("Failed to enter passthrough", "err", err)
	}
}

func (c *Container) beginLocked(m Mode, ev platform.TouchEvent) {
	c.session = &Session{
		ID:            uuid.New(),
		Mode:          m,
		StartX:        ev.X,
		StartY:        ev.Y,
		Start:         c.geom,
		InPassthrough: c.mode == ModePassthrough,
	}
	c.surface.ResetPressed()
	if !c.session.InPassthrough {
		c.setModeLocked(m)
	}
	c.updateLocked()
	c.logger.Debug("Gesture started", "session", c.session.ID, "mode", m)
}

func (c *Container) continueSessionLocked(ev platform.TouchEvent) (bool, func()) {
	s := c.session
	dx, dy := ev.X-s.StartX, ev.Y-s.StartY

	switch ev.Action {
	case platform.TouchMove:
		switch s.Mode {
		case ModeDragging:
			c.geom = Dragged(s.Start, dx, dy, c.screenW, c.screenH)
			c.updateLocked()
		case ModeResizing:
			c.geom = Resized(s.Start, dx, dy, c.screenW, c.screenH)
			// Written every frame so a reload mid-resize sees the new size.
			c.commitLocked()
		}
		return true, nil
	case platform.TouchUp:
		return true, c.endSessionLocked(true)
	case platform.TouchCancel:
		c.endSessionLocked(false)
		return true, nil
	}
	return true, nil
}

// endSessionLocked finishes the active gesture. For a committed key tap it
// returns the dispatch to run once the lock is released.
func (c *Container) endSessionLocked(commit bool) func() {
	s := c.session
	c.session = nil
	if s == nil {
		return nil
	}

	if s.Mode.Transient() {
		if s.Mode == ModeDragging {
			c.geom.X = ClampAxis(c.geom.X, c.geom.WidthPx, c.screenW)
			c.geom.Y = ClampAxis(c.geom.Y, c.geom.HeightPx, c.screenH)
		}
		if !s.InPassthrough {
			c.setModeLocked(ModeNormal)
		}
		c.commitLocked()
		c.scheduleResetLocked()
		c.logger.Debug("Gesture settled", "session", s.ID, "mode", s.Mode,
			"x", c.geom.X, "y", c.geom.Y, "w", c.geom.WidthPx, "h", c.geom.HeightPx)
		return nil
	}

	c.surface.ResetPressed()
	c.updateLocked()
	if !commit || s.Key == nil {
		return nil
	}
	return c.dispatchFunc(s.Key.Key)
}

func (c *Container) dispatchFunc(k keygrid.Key) func() {
	if k.Action != "" {
		handler := c.onAction
		if handler == nil {
			c.logger.Warn("No handler for key action", "action", k.Action)
			return nil
		}
		return func() { handler(k.Action) }
	}
	sink := c.keys
	if sink == nil {
		return nil
	}
	return func() { sink.KeyTapped(k) }
}
