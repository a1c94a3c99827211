package floating

import (
	"math"

	"github.com/1broseidon/floatkb/internal/geometry"
)

// Resize limits as fractions of the screen.
const (
	minWidthFrac  = 0.30
	maxWidthFrac  = 1.00
	minHeightFrac = 0.10
	maxHeightFrac = 0.60
)

// ClampAxis keeps a window of length size inside [0, screen-size]. A
// non-positive size or screen means the surface has not been measured yet and
// the value is returned unchanged.
func ClampAxis(v, size, screen int) int {
	if size <= 0 || screen <= 0 {
		return v
	}
	hi := screen - size
	if hi < 0 {
		hi = 0
	}
	return clampInt(v, 0, hi)
}

// ClampSize limits a width and height to the resize bounds of the screen.
func ClampSize(width, height, screenW, screenH int) (int, int) {
	if screenW > 0 {
		width = clampInt(width, fracOf(minWidthFrac, screenW), fracOf(maxWidthFrac, screenW))
	}
	if screenH > 0 {
		height = clampInt(height, fracOf(minHeightFrac, screenH), fracOf(maxHeightFrac, screenH))
	}
	return width, height
}

// Dragged returns start moved by (dx, dy) and clamped to the screen.
func Dragged(start geometry.Geometry, dx, dy float64, screenW, screenH int) geometry.Geometry {
	g := start
	g.X = ClampAxis(start.X+round(dx), start.WidthPx, screenW)
	g.Y = ClampAxis(start.Y+round(dy), start.HeightPx, screenH)
	return g
}

// Resized grows start by the touch delta keeping the bottom-left corner fixed:
// moving right widens, moving up heightens.
func Resized(start geometry.Geometry, dx, dy float64, screenW, screenH int) geometry.Geometry {
	w, h := ClampSize(start.WidthPx+round(dx), start.HeightPx-round(dy), screenW, screenH)
	// The top edge stops at the screen top so the handle strip stays reachable.
	if bottom := start.Y + start.HeightPx; bottom > 0 && h > bottom {
		h = bottom
	}
	g := start.WithSize(w, h, screenW, screenH)
	g.X = start.X
	g.Y = start.Y + start.HeightPx - h
	return g
}

// Snapped moves g against edge. When size is non-nil the geometry is first
// resized to the given percentages.
func Snapped(g geometry.Geometry, edge Edge, size *SnapSize, screenW, screenH int) geometry.Geometry {
	if size != nil {
		g = g.WithSize(geometry.Pixels(size.WidthPct, screenW), geometry.Pixels(size.HeightPct, screenH), screenW, screenH)
	}
	switch edge {
	case EdgeLeft:
		g.X = 0
	case EdgeRight:
		g.X = maxInt(screenW-g.WidthPx, 0)
	case EdgeTop:
		g.Y = 0
	case EdgeBottom:
		g.Y = maxInt(screenH-g.HeightPx, 0)
	}
	g.X = ClampAxis(g.X, g.WidthPx, screenW)
	g.Y = ClampAxis(g.Y, g.HeightPx, screenH)
	return g
}

// FilledWidth spans the full screen width.
func FilledWidth(g geometry.Geometry, screenW, screenH int) geometry.Geometry {
	g = g.WithSize(screenW, g.HeightPx, screenW, screenH)
	g.X = 0
	g.Y = ClampAxis(g.Y, g.HeightPx, screenH)
	return g
}

// Centered centers g along axis.
func Centered(g geometry.Geometry, axis Axis, screenW, screenH int) geometry.Geometry {
	if axis == AxisHorizontal || axis == AxisBoth {
		g.X = maxInt((screenW-g.WidthPx)/2, 0)
	}
	if axis == AxisVertical || axis == AxisBoth {
		g.Y = maxInt((screenH-g.HeightPx)/2, 0)
	}
	return g
}

// Docked spans the full width along the bottom edge.
func Docked(g geometry.Geometry, screenW, screenH int) geometry.Geometry {
	g = g.WithSize(screenW, g.HeightPx, screenW, screenH)
	g.X = 0
	g.Y = maxInt(screenH-g.HeightPx, 0)
	return g
}

// Undocked restores a pre-dock placement.
func Undocked(g geometry.Geometry, snap geometry.DockSnapshot, screenW, screenH int) geometry.Geometry {
	w := snap.Width
	if w <= 0 || (screenW > 0 && w > screenW) {
		w = geometry.DefaultDockSnapshot().Width
		if screenW > 0 && w > screenW {
			w = screenW
		}
	}
	g = g.WithSize(w, g.HeightPx, screenW, screenH)
	g.X = ClampAxis(snap.X, g.WidthPx, screenW)
	g.Y = ClampAxis(snap.Y, g.HeightPx, screenH)
	return g
}

func fracOf(frac float64, screen int) int {
	return int(math.Round(frac * float64(screen)))
}

func round(v float64) int {
	return int(math.Round(v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
