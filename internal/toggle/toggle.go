// Package toggle implements the small always-touchable surface shown while the
// main overlay is in passthrough mode.
package toggle

import (
	"math"
	"sync"

	"github.com/1broseidon/floatkb/internal/geometry"
	"github.com/1broseidon/floatkb/internal/platform"
	"github.com/charmbracelet/log"
)

// Direction of a swipe on the toggle surface.
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return "unknown"
	}
}

// Gesture is the classification of a completed toggle touch.
type Gesture int

const (
	GestureNone Gesture = iota
	GestureTap
	GestureDrag
	GestureSwipe
)

func (g Gesture) String() string {
	switch g {
	case GestureTap:
		return "tap"
	case GestureDrag:
		return "drag"
	case GestureSwipe:
		return "swipe"
	default:
		return "none"
	}
}

// Host receives the outcome of toggle gestures. Calls are made without any
// toggle lock held.
type Host interface {
	// ToggleTapped asks the host to leave passthrough.
	ToggleTapped()
	// ToggleSwiped forwards a directional navigation request.
	ToggleSwiped(dir Direction)
}

// PositionStore persists the toggle position. *geometry.Store implements it.
type PositionStore interface {
	TogglePosition() (geometry.Point, bool)
	SaveTogglePosition(p geometry.Point)
}

// Options configures a Surface.
type Options struct {
	DragThreshold  float64
	SwipeThreshold float64
	// Remember places the surface at the last dragged position when one is saved.
	Remember bool
	// FallbackSize is used when the anchor rectangle is empty.
	FallbackSize int
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{DragThreshold: 15, SwipeThreshold: 30, Remember: true, FallbackSize: 64}
}

const glyph = "kbd"

type touchState struct {
	startX, startY float64
	startRect      platform.Rect
	dragging       bool
}

// Surface is the passthrough toggle overlay.
type Surface struct {
	mu     sync.Mutex
	wm     platform.WindowManager
	store  PositionStore
	host   Host
	logger *log.Logger
	opts   Options

	shown   bool
	rect    platform.Rect
	screenW int
	screenH int
	touch   *touchState
}

// New creates a hidden toggle surface.
func New(wm platform.WindowManager, store PositionStore, host Host, opts Options, logger *log.Logger) *Surface {
	if logger == nil {
		logger = log.Default()
	}
	return &Surface{
		wm:     wm,
		store:  store,
		host:   host,
		logger: logger.WithPrefix("toggle"),
		opts:   opts,
	}
}

// SetOptions replaces thresholds and position memory. It applies to the next
// gesture.
func (s *Surface) SetOptions(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
}

// Shown reports whether the surface is currently added.
func (s *Surface) Shown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown
}

// Bounds returns the current screen rectangle; zero when hidden.
func (s *Surface) Bounds() platform.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.shown {
		return platform.Rect{}
	}
	return s.rect
}

// Show adds the surface. anchor is the screen rectangle of the key the
// surface should cover when no remembered position applies. Showing an
// already shown surface is a no-op.
func (s *Surface) Show(anchor platform.Rect, screenW, screenH int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shown {
		return nil
	}

	rect := s.placeLocked(anchor, screenW, screenH)
	if err := s.wm.Add(platform.SurfaceToggle, s.paramsLocked(rect)); err != nil {
		s.logger.Error("Failed to add toggle surface", "err", err)
		return err
	}
	s.rect = rect
	s.screenW, s.screenH = screenW, screenH
	s.shown = true
	s.touch = nil
	s.logger.Debug("Toggle shown", "x", rect.X, "y", rect.Y, "w", rect.Width, "h", rect.Height)
	return nil
}

// Hide removes the surface. Hiding a hidden surface is a no-op.
func (s *Surface) Hide() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.shown {
		return nil
	}
	s.shown = false
	s.touch = nil
	if err := s.wm.Remove(platform.SurfaceToggle); err != nil {
		s.logger.Warn("Failed to remove toggle surface", "err", err)
		return err
	}
	s.logger.Debug("Toggle hidden")
	return nil
}

func (s *Surface) placeLocked(anchor platform.Rect, screenW, screenH int) platform.Rect {
	rect := anchor
	if rect.Width <= 0 || rect.Height <= 0 {
		size := s.opts.FallbackSize
		if size <= 0 {
			size = DefaultOptions().FallbackSize
		}
		rect = platform.Rect{X: screenW - size, Y: 0, Width: size, Height: size}
	}
	if s.opts.Remember && s.store != nil {
		if p, ok := s.store.TogglePosition(); ok {
			rect.X, rect.Y = p.X, p.Y
		}
	}
	rect.X = clampAxis(rect.X, rect.Width, screenW)
	rect.Y = clampAxis(rect.Y, rect.Height, screenH)
	return rect
}

func (s *Surface) paramsLocked(rect platform.Rect) platform.Params {
	return platform.Params{
		X:         rect.X,
		Y:         rect.Y,
		Width:     rect.Width,
		Height:    rect.Height,
		Touchable: true,
		Opacity:   1,
		Layer:     platform.LayerToggle,
		Scene:     s.sceneLocked(rect),
	}
}

func (s *Surface) sceneLocked(rect platform.Rect) []platform.Shape {
	pressed := s.touch != nil
	return []platform.Shape{{
		Rect:    platform.Rect{Width: rect.Width, Height: rect.Height},
		Label:   glyph,
		Role:    platform.RoleToggle,
		Pressed: pressed,
	}}
}

// HandleTouch classifies toggle gestures by cumulative displacement at
// release: up to DragThreshold is a tap, a touch that moved past
// DragThreshold while in progress is a drag, and a release beyond
// SwipeThreshold without an in-progress drag is a swipe.
func (s *Surface) HandleTouch(ev platform.TouchEvent) bool {
	s.mu.Lock()
	gesture, dir, consumed := s.handleTouchLocked(ev)
	s.mu.Unlock()

	if s.host == nil {
		return consumed
	}
	switch gesture {
	case GestureTap:
		s.host.ToggleTapped()
	case GestureSwipe:
		s.host.ToggleSwiped(dir)
	}
	return consumed
}

func (s *Surface) handleTouchLocked(ev platform.TouchEvent) (Gesture, Direction, bool) {
	if !s.shown {
		return GestureNone, 0, false
	}

	switch ev.Action {
	case platform.TouchDown:
		if !s.rect.Contains(ev.X, ev.Y) {
			return GestureNone, 0, false
		}
		s.touch = &touchState{startX: ev.X, startY: ev.Y, startRect: s.rect}
		s.updateLocked()
		return GestureNone, 0, true

	case platform.TouchMove:
		t := s.touch
		if t == nil {
			return GestureNone, 0, false
		}
		dx, dy := ev.X-t.startX, ev.Y-t.startY
		if math.Hypot(dx, dy) > s.opts.DragThreshold {
			t.dragging = true
			s.moveLocked(t, dx, dy)
			s.updateLocked()
		}
		return GestureNone, 0, true

	case platform.TouchUp:
		t := s.touch
		if t == nil {
			return GestureNone, 0, false
		}
		s.touch = nil
		dx, dy := ev.X-t.startX, ev.Y-t.startY
		gesture, dir := Classify(dx, dy, t.dragging, s.opts)
		switch gesture {
		case GestureDrag:
			s.moveLocked(t, dx, dy)
			if s.store != nil {
				s.store.SaveTogglePosition(geometry.Point{X: s.rect.X, Y: s.rect.Y})
			}
			s.logger.Debug("Toggle moved", "x", s.rect.X, "y", s.rect.Y)
		case GestureSwipe:
			s.logger.Debug("Toggle swiped", "dir", dir)
		}
		s.updateLocked()
		return gesture, dir, true

	case platform.TouchCancel:
		if s.touch == nil {
			return GestureNone, 0, false
		}
		s.touch = nil
		s.updateLocked()
		return GestureNone, 0, true
	}
	return GestureNone, 0, false
}

func (s *Surface) moveLocked(t *touchState, dx, dy float64) {
	s.rect.X = clampAxis(t.startRect.X+int(math.Round(dx)), s.rect.Width, s.screenW)
	s.rect.Y = clampAxis(t.startRect.Y+int(math.Round(dy)), s.rect.Height, s.screenH)
}

func (s *Surface) updateLocked() {
	if err := s.wm.Update(platform.SurfaceToggle, s.paramsLocked(s.rect)); err != nil {
		s.logger.Warn("Failed to update toggle surface", "err", err)
	}
}

// Classify decides the gesture for a released touch.
func Classify(dx, dy float64, dragging bool, opts Options) (Gesture, Direction) {
	if dragging {
		return GestureDrag, 0
	}
	dist := math.Hypot(dx, dy)
	if dist > opts.SwipeThreshold {
		return GestureSwipe, swipeDirection(dx, dy)
	}
	if dist <= opts.DragThreshold {
		return GestureTap, 0
	}
	// Between the thresholds without live movement: treat as a drag that
	// never moved the surface.
	return GestureDrag, 0
}

func swipeDirection(dx, dy float64) Direction {
	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return DirRight
		}
		return DirLeft
	}
	if dy < 0 {
		return DirUp
	}
	return DirDown
}

func clampAxis(v, size, screen int) int {
	if size <= 0 || screen <= 0 {
		return v
	}
	hi := screen - size
	if hi < 0 {
		hi = 0
	}
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
