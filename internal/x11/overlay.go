package x11

import (
	"fmt"
	"sync"

	"github.com/1broseidon/floatkb/internal/platform"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/charmbracelet/log"
)

const pointerEvents = xproto.EventMaskButtonPress |
	xproto.EventMaskButtonRelease |
	xproto.EventMaskButton1Motion |
	xproto.EventMaskExposure

// surface is one override-redirect window.
type surface struct {
	Window xproto.Window
	GC     xproto.Gcontext
	params platform.Params
}

// OverlayManager implements platform.WindowManager with override-redirect
// windows. Pointer button 1 on a surface window is delivered as touch to the
// handler registered for that surface.
type OverlayManager struct {
	conn   *Connection
	logger *log.Logger

	mu       sync.Mutex
	surfaces map[platform.SurfaceID]*surface
	handlers map[platform.SurfaceID]platform.TouchHandler
	font     xproto.Font
	fontOK   bool
}

var _ platform.WindowManager = (*OverlayManager)(nil)

// NewOverlayManager creates a manager on conn.
func NewOverlayManager(conn *Connection, logger *log.Logger) *OverlayManager {
	if logger == nil {
		logger = log.Default()
	}
	m := &OverlayManager{
		conn:     conn,
		logger:   logger.WithPrefix("x11"),
		surfaces: map[platform.SurfaceID]*surface{},
		handlers: map[platform.SurfaceID]platform.TouchHandler{},
	}
	m.openFont()
	return m
}

// SetTouchHandler routes touches on surface id to h.
func (m *OverlayManager) SetTouchHandler(id platform.SurfaceID, h platform.TouchHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[id] = h
}

// CanDrawOverlays reports whether overlays can be created: the connection is
// up and the SHAPE extension is present for passthrough.
func (m *OverlayManager) CanDrawOverlays() bool {
	return m.conn != nil && m.conn.XUtil != nil && m.conn.Shape
}

// ScreenSize returns the root window size.
func (m *OverlayManager) ScreenSize() (int, int, error) {
	return m.conn.ScreenSize()
}

// Add creates and maps the window for id.
func (m *OverlayManager) Add(id platform.SurfaceID, p platform.Params) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.surfaces[id]; ok {
		return platform.ErrSurfaceExists
	}

	s, err := m.createSurface()
	if err != nil {
		return fmt.Errorf("failed to create %s window: %w", id, err)
	}
	m.surfaces[id] = s
	m.connectPointer(id, s.Window)

	xu := m.conn.XUtil
	if err := ewmh.WmNameSet(xu, s.Window, "floatkb "+string(id)); err != nil {
		m.logger.Debug("Failed to set window name", "surface", id, "err", err)
	}
	if err := ewmh.WmWindowTypeSet(xu, s.Window, []string{"_NET_WM_WINDOW_TYPE_DOCK"}); err != nil {
		m.logger.Debug("Failed to set window type", "surface", id, "err", err)
	}
	if err := ewmh.WmStateSet(xu, s.Window, []string{"_NET_WM_STATE_ABOVE", "_NET_WM_STATE_STICKY"}); err != nil {
		m.logger.Debug("Failed to set window state", "surface", id, "err", err)
	}

	m.applyLocked(s, p)
	xproto.MapWindow(xu.Conn(), s.Window)
	m.restackLocked()
	m.logger.Debug("Surface added", "surface", id, "window", s.Window)
	return nil
}

// Update applies new params to an existing window.
func (m *OverlayManager) Update(id platform.SurfaceID, p platform.Params) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surfaces[id]
	if !ok {
		return platform.ErrSurfaceMissing
	}
	layerChanged := s.params.Layer != p.Layer
	m.applyLocked(s, p)
	if layerChanged {
		m.restackLocked()
	}
	return nil
}

// Remove destroys the window for id.
func (m *OverlayManager) Remove(id platform.SurfaceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.surfaces[id]
	if !ok {
		return platform.ErrSurfaceMissing
	}
	delete(m.surfaces, id)

	conn := m.conn.XUtil.Conn()
	xevent.Detach(m.conn.XUtil, s.Window)
	if s.GC != 0 {
		xproto.FreeGC(conn, s.GC)
	}
	xproto.DestroyWindow(conn, s.Window)
	m.logger.Debug("Surface removed", "surface", id)
	return nil
}

// Cleanup destroys every window and the font.
func (m *OverlayManager) Cleanup() {
	m.mu.Lock()
	ids := make([]platform.SurfaceID, 0, len(m.surfaces))
	for id := range m.surfaces {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Remove(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fontOK {
		xproto.CloseFont(m.conn.XUtil.Conn(), m.font)
		m.fontOK = false
	}
}

// createSurface creates a single override-redirect window with a GC.
func (m *OverlayManager) createSurface() (*surface, error) {
	xu := m.conn.XUtil
	conn := xu.Conn()
	screen := xu.Screen()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return nil, err
	}

	// Value list order follows the bit positions of the mask (low to high).
	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		wid,
		m.conn.Root,
		0, 0, // x, y (set by applyLocked)
		1, 1, // width, height (set by applyLocked)
		0, // border_width
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		[]uint32{ColorBackground, 1, pointerEvents},
	).Check()
	if err != nil {
		return nil, err
	}

	s := &surface{Window: wid}
	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		xproto.DestroyWindow(conn, wid)
		return nil, err
	}

	mask := uint32(xproto.GcForeground | xproto.GcBackground | xproto.GcGraphicsExposures)
	values := []uint32{ColorText, ColorBackground, 0}
	if m.fontOK {
		mask = xproto.GcForeground | xproto.GcBackground | xproto.GcFont | xproto.GcGraphicsExposures
		values = []uint32{ColorText, ColorBackground, uint32(m.font), 0}
	}
	if err := xproto.CreateGCChecked(conn, gc, xproto.Drawable(wid), mask, values).Check(); err != nil {
		xproto.DestroyWindow(conn, wid)
		return nil, err
	}
	s.GC = gc
	return s, nil
}

func (m *OverlayManager) openFont() {
	if m.conn == nil || m.conn.XUtil == nil {
		return
	}
	conn := m.conn.XUtil.Conn()
	font, err := xproto.NewFontId(conn)
	if err != nil {
		return
	}
	for _, name := range []string{"fixed", "9x15", "8x13", "6x13"} {
		if err := xproto.OpenFontChecked(conn, font, uint16(len(name)), name).Check(); err == nil {
			m.font = font
			m.fontOK = true
			return
		}
	}
	m.logger.Warn("No core font available; key labels disabled")
}

// applyLocked moves, resizes, shapes and repaints a window.
func (m *OverlayManager) applyLocked(s *surface, p platform.Params) {
	xu := m.conn.XUtil
	conn := xu.Conn()

	width, height := p.Width, p.Height
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	xproto.ConfigureWindow(
		conn,
		s.Window,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(int32(p.X)), uint32(int32(p.Y)), uint32(width), uint32(height)},
	)

	// An empty input region lets pointer events fall through to whatever is
	// below the window.
	input := inputRectangles(p, width, height)
	if m.conn.Shape {
		shape.Rectangles(conn, shape.SoSet, shape.SkInput, xproto.ClipOrderingUnsorted, s.Window, 0, 0, input)
	}

	if s.params.Opacity != p.Opacity || s.params.Width == 0 {
		if err := ewmh.WmWindowOpacitySet(xu, s.Window, p.Opacity); err != nil {
			m.logger.Debug("Failed to set opacity", "window", s.Window, "err", err)
		}
	}

	s.params = p
	m.paintLocked(s)
}

// inputRectangles is the SHAPE input region for p, clipped to the window.
func inputRectangles(p platform.Params, width, height int) []xproto.Rectangle {
	if p.Touchable {
		return []xproto.Rectangle{{X: 0, Y: 0, Width: uint16(width), Height: uint16(height)}}
	}
	var input []xproto.Rectangle
	for _, r := range p.InputRegion {
		x0, y0 := max(r.X, 0), max(r.Y, 0)
		x1, y1 := min(r.X+r.Width, width), min(r.Y+r.Height, height)
		if x1 <= x0 || y1 <= y0 {
			continue
		}
		input = append(input, xproto.Rectangle{
			X: int16(x0), Y: int16(y0), Width: uint16(x1 - x0), Height: uint16(y1 - y0),
		})
	}
	return input
}

// restackLocked raises surfaces in layer order so toggle windows stay on top.
func (m *OverlayManager) restackLocked() {
	conn := m.conn.XUtil.Conn()
	for _, layer := range []platform.Layer{platform.LayerOverlay, platform.LayerToggle} {
		for _, s := range m.surfaces {
			if s.params.Layer == layer {
				xproto.ConfigureWindow(conn, s.Window, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
			}
		}
	}
}

func (m *OverlayManager) connectPointer(id platform.SurfaceID, win xproto.Window) {
	xu := m.conn.XUtil

	xevent.ButtonPressFun(func(xu *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
		if ev.Detail != xproto.ButtonIndex1 {
			return
		}
		m.dispatch(id, platform.TouchDown, ev.RootX, ev.RootY)
	}).Connect(xu, win)

	xevent.MotionNotifyFun(func(xu *xgbutil.XUtil, ev xevent.MotionNotifyEvent) {
		m.dispatch(id, platform.TouchMove, ev.RootX, ev.RootY)
	}).Connect(xu, win)

	xevent.ButtonReleaseFun(func(xu *xgbutil.XUtil, ev xevent.ButtonReleaseEvent) {
		if ev.Detail != xproto.ButtonIndex1 {
			return
		}
		m.dispatch(id, platform.TouchUp, ev.RootX, ev.RootY)
	}).Connect(xu, win)

	xevent.ExposeFun(func(xu *xgbutil.XUtil, ev xevent.ExposeEvent) {
		if ev.Count != 0 {
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if s, ok := m.surfaces[id]; ok && s.Window == win {
			m.paintLocked(s)
		}
	}).Connect(xu, win)
}

// dispatch hands an event to the surface handler without holding m.mu, since
// the handler calls back into Update.
func (m *OverlayManager) dispatch(id platform.SurfaceID, action platform.TouchAction, rootX, rootY int16) {
	m.mu.Lock()
	h := m.handlers[id]
	m.mu.Unlock()

	if h == nil {
		return
	}
	ev := platform.TouchEvent{Action: action, X: float64(rootX), Y: float64(rootY)}
	if !h.HandleTouch(ev) && action == platform.TouchDown {
		m.logger.Debug("Touch not intercepted", "surface", id, "x", rootX, "y", rootY)
	}
}
