package x11

import (
	"fmt"
	"sync"

	"github.com/1broseidon/floatkb/internal/floating"
	"github.com/1broseidon/floatkb/internal/keygrid"
	"github.com/1broseidon/floatkb/internal/toggle"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/charmbracelet/log"
)

const shiftKeysym = "Shift_L"

// KeyInjector types key taps into the focused window with the XTEST
// extension. Shift latches until the next key.
type KeyInjector struct {
	conn   *Connection
	logger *log.Logger

	mu      sync.Mutex
	shifted bool
}

var _ floating.KeySink = (*KeyInjector)(nil)

// NewKeyInjector initializes XTEST on conn.
func NewKeyInjector(conn *Connection, logger *log.Logger) (*KeyInjector, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := xtest.Init(conn.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("xtest extension not available: %w", err)
	}
	return &KeyInjector{conn: conn, logger: logger.WithPrefix("keys")}, nil
}

// KeyTapped sends a press and release for the key's keysym.
func (k *KeyInjector) KeyTapped(key keygrid.Key) {
	sym := key.Text()

	k.mu.Lock()
	if sym == shiftKeysym {
		k.shifted = !k.shifted
		k.mu.Unlock()
		return
	}
	shifted := k.shifted
	k.shifted = false
	k.mu.Unlock()

	if shifted {
		k.tap(sym, shiftKeysym)
		return
	}
	k.tap(sym)
}

// Navigate sends the arrow key for dir.
func (k *KeyInjector) Navigate(dir toggle.Direction) {
	if sym := arrowKeysym(dir); sym != "" {
		k.tap(sym)
	}
}

// tap presses modifiers, then sym, and releases them in reverse order.
func (k *KeyInjector) tap(sym string, mods ...string) {
	code, ok := k.keycode(sym)
	if !ok {
		k.logger.Warn("No keycode for keysym", "keysym", sym)
		return
	}
	var modCodes []xproto.Keycode
	for _, m := range mods {
		if mc, ok := k.keycode(m); ok {
			modCodes = append(modCodes, mc)
		}
	}

	for _, mc := range modCodes {
		k.fake(xproto.KeyPress, mc)
	}
	k.fake(xproto.KeyPress, code)
	k.fake(xproto.KeyRelease, code)
	for i := len(modCodes) - 1; i >= 0; i-- {
		k.fake(xproto.KeyRelease, modCodes[i])
	}
	k.conn.XUtil.Sync()
}

func (k *KeyInjector) keycode(sym string) (xproto.Keycode, bool) {
	codes := keybind.StrToKeycodes(k.conn.XUtil, sym)
	if len(codes) == 0 {
		return 0, false
	}
	return codes[0], true
}

func (k *KeyInjector) fake(event byte, code xproto.Keycode) {
	xtest.FakeInput(k.conn.XUtil.Conn(), event, byte(code), 0, k.conn.Root, 0, 0, 0)
}

func arrowKeysym(dir toggle.Direction) string {
	switch dir {
	case toggle.DirUp:
		return "Up"
	case toggle.DirDown:
		return "Down"
	case toggle.DirLeft:
		return "Left"
	case toggle.DirRight:
		return "Right"
	default:
		return ""
	}
}
