package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	// Shape reports whether the SHAPE extension is available. Without it the
	// overlay cannot become transparent to input.
	Shape bool
	// RandR reports whether screen change notifications are available.
	RandR bool
}

// NewConnection establishes a connection to the X11 server and initializes
// the extensions the overlay uses. An empty display uses $DISPLAY.
func NewConnection(display string) (*Connection, error) {
	var (
		xu  *xgbutil.XUtil
		err error
	)
	if display != "" {
		xu, err = xgbutil.NewConnDisplay(display)
	} else {
		xu, err = xgbutil.NewConn()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}

	// Initialize keybind module (required for global hotkeys)
	keybind.Initialize(xu)

	c := &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}
	c.Shape = shape.Init(xu.Conn()) == nil
	c.RandR = randr.Init(xu.Conn()) == nil
	return c, nil
}

// ScreenSize returns the current size of the root window. It follows RandR
// changes, unlike the connection setup data.
func (c *Connection) ScreenSize() (int, int, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query root geometry: %w", err)
	}
	return int(geom.Width), int(geom.Height), nil
}

// WatchScreen calls fn after every RandR screen change. The notification
// sizes are pre-rotation, so fn should re-read ScreenSize. Callbacks run on
// the event loop goroutine.
func (c *Connection) WatchScreen(fn func()) error {
	if !c.RandR {
		return fmt.Errorf("randr extension not available")
	}
	err := randr.SelectInputChecked(c.XUtil.Conn(), c.Root, randr.NotifyMaskScreenChange).Check()
	if err != nil {
		return fmt.Errorf("failed to select screen change events: %w", err)
	}

	xevent.HookFun(func(xu *xgbutil.XUtil, event interface{}) bool {
		if _, ok := event.(randr.ScreenChangeNotifyEvent); ok {
			fn()
		}
		return true
	}).Connect(c.XUtil)
	return nil
}

// EventLoop starts the main X11 event loop (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Quit stops EventLoop.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
