// Package floating hosts the keyboard render surface in a movable, resizable
// overlay and routes touches between keys, handles and passthrough.
package floating

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/1broseidon/floatkb/internal/geometry"
	"github.com/1broseidon/floatkb/internal/keygrid"
	"github.com/1broseidon/floatkb/internal/platform"
	"github.com/1broseidon/floatkb/internal/toggle"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// TriggerAction is the key action whose key the toggle surface covers.
const TriggerAction = "enable_passthrough"

var (
	// ErrPermissionDenied is returned by Show when the host refuses overlays.
	ErrPermissionDenied = errors.New("overlay permission not granted")
	// ErrNotShown is returned by commands that need a visible overlay.
	ErrNotShown = errors.New("overlay is not shown")
)

// RenderSurface is the keyboard drawn below the handle strip. *keygrid.Grid
// implements it.
type RenderSurface interface {
	KeyAt(x, y float64) (keygrid.PlacedKey, bool)
	Keys() []keygrid.PlacedKey
	Metrics() keygrid.Metrics
	Press(k keygrid.PlacedKey)
	Pressed() (keygrid.PlacedKey, bool)
	ResetPressed()
	Resize(width, height int)
	SetLayout(layout *keygrid.Layout)
}

// GeometryStore persists geometry and overlay flags. *geometry.Store
// implements it.
type GeometryStore interface {
	Load(v geometry.Variant, screenW, screenH int) geometry.Geometry
	Save(v geometry.Variant, g geometry.Geometry)
	DockSnapshot() geometry.DockSnapshot
	SaveDockSnapshot(snap geometry.DockSnapshot)
	Persistence(def bool) bool
	SavePersistence(enabled bool)
	toggle.PositionStore
}

// KeySink receives key taps and navigation the container does not handle.
type KeySink interface {
	KeyTapped(k keygrid.Key)
	Navigate(dir toggle.Direction)
}

// Options configures a Container.
type Options struct {
	WindowManager platform.WindowManager
	Surface       RenderSurface
	Store         GeometryStore
	Keys          KeySink
	Settings      Settings
	Fold          geometry.Fold
	// Persistence is used when the store holds no persistence flag.
	Persistence bool
	Logger      *log.Logger

	// Clock and Schedule default to time.Now and time.AfterFunc.
	Clock    func() time.Time
	Schedule func(d time.Duration, f func())

	// OnAction receives actions bound to tapped keys.
	OnAction func(action string)
	// OnPermissionDenied is called when Show is refused by the host.
	OnPermissionDenied func()
}

// Session is the state of one touch gesture on the main surface.
type Session struct {
	ID     uuid.UUID
	Mode   Mode
	StartX float64
	StartY float64
	Start  geometry.Geometry
	Key    *keygrid.PlacedKey
	// InPassthrough marks a handle gesture started in passthrough. The
	// container stays in passthrough while it runs.
	InPassthrough bool
}

// Container is the floating overlay controller.
type Container struct {
	mu sync.Mutex

	wm       platform.WindowManager
	surface  RenderSurface
	store    GeometryStore
	keys     KeySink
	toggle   *toggle.Surface
	logger   *log.Logger
	clock    func() time.Time
	schedule func(time.Duration, func())

	onAction           func(string)
	onPermissionDenied func()

	settings Settings

	mode        Mode
	session     *Session
	armDrag     bool
	armResize   bool
	ignoreUntil time.Time

	shown       bool
	fold        geometry.Fold
	variant     geometry.Variant
	screenW     int
	screenH     int
	geom        geometry.Geometry
	docked      bool
	persistence bool

	// generation invalidates scheduled callbacks on teardown.
	generation uint64
}

// New creates a hidden container.
func New(opts Options) *Container {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	schedule := opts.Schedule
	if schedule == nil {
		schedule = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	surface := opts.Surface
	if surface == nil {
		surface = keygrid.NewGrid(nil)
	}

	c := &Container{
		wm:                 opts.WindowManager,
		surface:            surface,
		store:              opts.Store,
		keys:               opts.Keys,
		logger:             logger.WithPrefix("floating"),
		clock:              clock,
		schedule:           schedule,
		onAction:           opts.OnAction,
		onPermissionDenied: opts.OnPermissionDenied,
		settings:           opts.Settings,
		fold:               opts.Fold,
		persistence:        opts.Store.Persistence(opts.Persistence),
	}
	c.toggle = toggle.New(opts.WindowManager, opts.Store, c, opts.Settings.Toggle, logger)
	return c
}

// Toggle returns the passthrough toggle surface, for event routing.
func (c *Container) Toggle() *toggle.Surface {
	return c.toggle
}

// SetActionHandler replaces the handler for key-bound actions.
func (c *Container) SetActionHandler(f func(action string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAction = f
}

// Mode returns the current mode.
func (c *Container) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Geometry returns the in-memory geometry.
func (c *Container) Geometry() geometry.Geometry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.geom
}

// Shown reports whether the main surface is added.
func (c *Container) Shown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shown
}

// Show creates the main surface with the persisted geometry of the current
// variant. It is a no-op when already shown.
func (c *Container) Show() error {
	c.mu.Lock()
	err := c.showLocked()
	hook := c.onPermissionDenied
	c.mu.Unlock()

	if errors.Is(err, ErrPermissionDenied) && hook != nil {
		hook()
	}
	return err
}

func (c *Container) showLocked() error {
	if c.shown {
		return nil
	}
	if !c.wm.CanDrawOverlays() {
		c.logger.Warn("Overlay permission not granted; not creating overlay")
		return ErrPermissionDenied
	}

	w, h, err := c.wm.ScreenSize()
	if err != nil {
		return fmt.Errorf("failed to query screen size: %w", err)
	}
	c.screenW, c.screenH = w, h
	c.variant = geometry.Variant{Orientation: geometry.OrientationFor(w, h), Fold: c.fold}
	c.geom = c.store.Load(c.variant, w, h)
	c.geom.X = ClampAxis(c.geom.X, c.geom.WidthPx, w)
	c.geom.Y = ClampAxis(c.geom.Y, c.geom.HeightPx, h)

	c.mode = ModeNormal
	c.session = nil
	c.armDrag, c.armResize = false, false
	c.surface.ResetPressed()
	c.layoutSurfaceLocked()

	if err := c.wm.Add(platform.SurfaceMain, c.paramsLocked()); err != nil {
		c.logger.Error("Failed to add overlay surface", "err", err)
		return fmt.Errorf("failed to add overlay surface: %w", err)
	}
	c.shown = true
	c.logger.Info("Overlay shown",
		"variant", c.variant,
		"x", c.geom.X, "y", c.geom.Y,
		"w", c.geom.WidthPx, "h", c.geom.HeightPx)
	return nil
}

// Hide tears the overlay down, toggle surface first.
func (c *Container) Hide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked("hide")
}

// SessionEnd is called when the input session that owns the overlay ends.
// Without persistence the overlay is hidden; with it only gestures are
// cancelled.
func (c *Container) SessionEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.persistence {
		c.teardownLocked("session end")
		return
	}
	c.clearStuckLocked()
	c.updateLocked()
}

// SetFold switches the fold state and recreates the overlay with the
// geometry of the new variant.
func (c *Container) SetFold(f geometry.Fold) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f == c.fold {
		return nil
	}
	c.fold = f
	return c.recreateLocked("fold change")
}

// ScreenChanged re-reads the screen size and recreates the overlay when it
// changed, loading the geometry of the new orientation.
func (c *Container) ScreenChanged() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.shown {
		return nil
	}
	w, h, err := c.wm.ScreenSize()
	if err != nil {
		return fmt.Errorf("failed to query screen size: %w", err)
	}
	if w == c.screenW && h == c.screenH {
		return nil
	}
	return c.recreateLocked("screen change")
}

// SetLayout swaps the keyboard layout.
func (c *Container) SetLayout(layout *keygrid.Layout) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearStuckLocked()
	c.surface.SetLayout(layout)
	c.updateLocked()
}

// ApplySettings replaces the tunables. Geometry is kept.
func (c *Container) ApplySettings(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settings = s
	c.toggle.SetOptions(s.Toggle)
	c.updateLocked()
}

func (c *Container) recreateLocked(reason string) error {
	wasShown := c.shown
	c.teardownLocked(reason)
	if !wasShown {
		return nil
	}
	return c.showLocked()
}

// teardownLocked cancels any gesture, leaves passthrough and removes the
// toggle surface before the main surface.
func (c *Container) teardownLocked(reason string) {
	c.generation++
	c.clearStuckLocked()

	if err := c.toggle.Hide(); err != nil {
		c.logger.Warn("Toggle removal failed during teardown", "reason", reason, "err", err)
	}
	c.mode = ModeNormal
	c.ignoreUntil = time.Time{}

	if !c.shown {
		return
	}
	c.shown = false
	if err := c.wm.Remove(platform.SurfaceMain); err != nil {
		c.logger.Warn("Failed to remove overlay surface", "reason", reason, "err", err)
	}
	c.logger.Info("Overlay hidden", "reason", reason)
}

func (c *Container) setModeLocked(m Mode) {
	if c.mode == m {
		return
	}
	c.logger.Debug("Mode change", "from", c.mode, "to", m)
	c.mode = m
	c.ignoreUntil = c.clock().Add(c.settings.IgnoreWindow)
}

// clearStuckLocked ends any gesture, disarms one-shot starts and clears the
// pressed key.
func (c *Container) clearStuckLocked() {
	c.armDrag, c.armResize = false, false
	if c.session != nil {
		c.endSessionLocked(false)
	}
	c.surface.ResetPressed()
}

func (c *Container) layoutSurfaceLocked() {
	h := c.geom.HeightPx - c.settings.HandleHeight
	if h < 0 {
		h = 0
	}
	c.surface.Resize(c.geom.WidthPx, h)
}

// updateLocked pushes the current geometry and scene to the window manager.
// Failures are logged and the in-memory geometry is kept for the next try.
func (c *Container) updateLocked() {
	c.layoutSurfaceLocked()
	if !c.shown {
		return
	}
	if err := c.wm.Update(platform.SurfaceMain, c.paramsLocked()); err != nil {
		c.logger.Warn("Failed to update overlay surface", "err", err)
	}
}

// commitLocked applies and persists a settled geometry.
func (c *Container) commitLocked() {
	c.updateLocked()
	c.store.Save(c.variant, c.geom)
}

func (c *Container) paramsLocked() platform.Params {
	opacity := 1.0
	if c.mode == ModePassthrough {
		opacity = c.settings.PassthroughOpacity
	}
	p := platform.Params{
		X:         c.geom.X,
		Y:         c.geom.Y,
		Width:     c.geom.WidthPx,
		Height:    c.geom.HeightPx,
		Touchable: c.mode != ModePassthrough,
		Opacity:   opacity,
		Layer:     platform.LayerOverlay,
		Scene:     c.sceneLocked(),
	}
	if !p.Touchable && c.settings.HandleHeight > 0 {
		p.InputRegion = []platform.Rect{handleRegion(c.geom.WidthPx, c.settings.HandleHeight)}
	}
	return p
}

// gestureLocked is the mode of the active handle gesture, or the container
// mode when there is none.
func (c *Container) gestureLocked() Mode {
	if c.session != nil && c.session.Mode.Transient() {
		return c.session.Mode
	}
	return c.mode
}

func (c *Container) sceneLocked() []platform.Shape {
	w := c.geom.WidthPx
	hh := c.settings.HandleHeight
	var shapes []platform.Shape
	if hh > 0 {
		dragX := round(0.3 * float64(w))
		resizeX := round(0.7 * float64(w))
		shapes = append(shapes,
			platform.Shape{
				Rect:    platform.Rect{X: dragX, Y: 0, Width: resizeX - dragX, Height: hh},
				Label:   "move",
				Role:    platform.RoleHandle,
				Pressed: c.gestureLocked() == ModeDragging || c.armDrag,
			},
			platform.Shape{
				Rect:    platform.Rect{X: resizeX, Y: 0, Width: w - resizeX, Height: hh},
				Label:   "size",
				Role:    platform.RoleHandle,
				Pressed: c.gestureLocked() == ModeResizing || c.armResize,
			},
		)
	}

	pressed, hasPressed := c.surface.Pressed()
	for _, k := range c.surface.Keys() {
		role := platform.RoleKey
		if k.Key.Action != "" {
			role = platform.RoleCommandKey
		}
		shapes = append(shapes, platform.Shape{
			Rect: platform.Rect{
				X:      round(k.Rect.X),
				Y:      hh + round(k.Rect.Y),
				Width:  round(k.Rect.Width),
				Height: round(k.Rect.Height),
			},
			Label:   k.Key.Text(),
			Role:    role,
			Pressed: hasPressed && pressed.Row == k.Row && pressed.Col == k.Col,
		})
	}
	return shapes
}

func (c *Container) scheduleResetLocked() {
	gen := c.generation
	c.schedule(c.settings.ResetDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.generation || c.session != nil {
			return
		}
		c.surface.ResetPressed()
		c.updateLocked()
		c.logger.Debug("Secondary state reset")
	})
}

// scheduleRefreshLocked recreates the main surface after the settle delay,
// waiting for an in-flight gesture to finish.
func (c *Container) scheduleRefreshLocked() {
	gen := c.generation
	c.schedule(c.settings.SettleDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.generation || !c.shown {
			return
		}
		if c.session != nil {
			c.scheduleRefreshLocked()
			return
		}
		c.refreshSurfaceLocked()
	})
}

func (c *Container) refreshSurfaceLocked() {
	toggleShown := c.toggle.Shown()
	if toggleShown {
		if err := c.toggle.Hide(); err != nil {
			c.logger.Warn("Failed to remove toggle before refresh", "err", err)
		}
	}
	if err := c.wm.Remove(platform.SurfaceMain); err != nil {
		c.logger.Warn("Failed to remove overlay surface for refresh", "err", err)
	}
	c.layoutSurfaceLocked()
	if err := c.wm.Add(platform.SurfaceMain, c.paramsLocked()); err != nil {
		c.logger.Error("Failed to re-add overlay surface", "err", err)
		c.shown = false
		c.mode = ModeNormal
		return
	}
	if toggleShown {
		if err := c.toggle.Show(c.toggleAnchorLocked(), c.screenW, c.screenH); err != nil {
			c.exitPassthroughLocked()
		}
	}
	c.logger.Debug("Overlay surface recreated")
}
