package x11

import (
	"github.com/1broseidon/floatkb/internal/platform"
	"github.com/BurntSushi/xgb/xproto"
)

// Surface colors
const (
	ColorBackground = 0x1f2933 // Dark panel behind keys
	ColorText       = 0xf5f7fa // Key labels
	ColorKey        = 0x3e4c59 // Ordinary key
	ColorCommandKey = 0x7f8c8d // Key bound to an overlay command
	ColorHandle     = 0x95a5a6 // Drag/resize strip
	ColorToggle     = 0x3498db // Passthrough toggle
	ColorPressed    = 0x27ae60 // Pressed key or active handle
)

const (
	labelCharWidth = 7
	labelAscent    = 10
)

// shapeColor picks the fill for a shape.
func shapeColor(s platform.Shape) uint32 {
	if s.Pressed {
		return ColorPressed
	}
	switch s.Role {
	case platform.RoleCommandKey:
		return ColorCommandKey
	case platform.RoleHandle:
		return ColorHandle
	case platform.RoleToggle:
		return ColorToggle
	default:
		return ColorKey
	}
}

// labelOrigin centers text in r using fixed-font metrics. The label is
// dropped when it does not fit.
func labelOrigin(r platform.Rect, text string) (x, y int, ok bool) {
	if text == "" || len(text) > 255 {
		return 0, 0, false
	}
	w := len(text) * labelCharWidth
	if w > r.Width || labelAscent > r.Height {
		return 0, 0, false
	}
	x = r.X + (r.Width-w)/2
	y = r.Y + (r.Height+labelAscent)/2
	return x, y, true
}

// paintLocked draws the scene of s: background, one filled rectangle per
// shape, then the labels.
func (m *OverlayManager) paintLocked(s *surface) {
	if s.GC == 0 {
		return
	}
	conn := m.conn.XUtil.Conn()
	draw := xproto.Drawable(s.Window)

	xproto.ClearArea(conn, false, s.Window, 0, 0, 0, 0)

	for _, sh := range s.params.Scene {
		if sh.Rect.Width <= 0 || sh.Rect.Height <= 0 {
			continue
		}
		xproto.ChangeGC(conn, s.GC, xproto.GcForeground, []uint32{shapeColor(sh)})
		xproto.PolyFillRectangle(conn, draw, s.GC, []xproto.Rectangle{{
			X:      int16(sh.Rect.X),
			Y:      int16(sh.Rect.Y),
			Width:  uint16(sh.Rect.Width),
			Height: uint16(sh.Rect.Height),
		}})
	}

	if !m.fontOK {
		return
	}
	for _, sh := range s.params.Scene {
		x, y, ok := labelOrigin(sh.Rect, sh.Label)
		if !ok {
			continue
		}
		xproto.ChangeGC(conn, s.GC, xproto.GcForeground|xproto.GcBackground, []uint32{ColorText, shapeColor(sh)})
		xproto.ImageText8(conn, byte(len(sh.Label)), draw, s.GC, int16(x), int16(y), sh.Label)
	}
}
