package geometry

import (
	"math"

	"github.com/1broseidon/floatkb/internal/platform"
)

// Orientation is the screen orientation a geometry record belongs to.
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// OrientationFor derives the orientation from the current screen size.
func OrientationFor(width, height int) Orientation {
	if width > height {
		return Landscape
	}
	return Portrait
}

// Fold is the posture of a foldable device.
type Fold int

const (
	Folded Fold = iota
	Unfolded
)

func (f Fold) String() string {
	if f == Unfolded {
		return "unfolded"
	}
	return "folded"
}

// ParseFold maps a config/command value onto a Fold.
func ParseFold(s string) (Fold, bool) {
	switch s {
	case "", "folded":
		return Folded, true
	case "unfolded":
		return Unfolded, true
	default:
		return Folded, false
	}
}

// Variant selects one of the four independently persisted geometries.
type Variant struct {
	Orientation Orientation
	Fold        Fold
}

// Key is the storage suffix for the variant, e.g. "landscape_unfolded".
func (v Variant) Key() string {
	if v.Fold == Unfolded {
		return v.Orientation.String() + "_unfolded"
	}
	return v.Orientation.String()
}

func (v Variant) String() string { return v.Key() }

// AllVariants lists every orientation x fold combination.
func AllVariants() []Variant {
	return []Variant{
		{Portrait, Folded},
		{Portrait, Unfolded},
		{Landscape, Folded},
		{Landscape, Unfolded},
	}
}

// Point is a persisted screen position.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Geometry is the overlay's size and position in pixel and percentage form.
type Geometry struct {
	WidthPx   int `json:"width_px"`
	HeightPx  int `json:"height_px"`
	X         int `json:"x"`
	Y         int `json:"y"`
	WidthPct  int `json:"width_pct"`
	HeightPct int `json:"height_pct"`
}

// Rect returns the overlay rectangle in screen coordinates.
func (g Geometry) Rect() platform.Rect {
	return platform.Rect{X: g.X, Y: g.Y, Width: g.WidthPx, Height: g.HeightPx}
}

// WithSize sets the pixel size and re-derives the percentages from the screen.
func (g Geometry) WithSize(width, height, screenW, screenH int) Geometry {
	g.WidthPx = width
	g.HeightPx = height
	g.WidthPct = Percent(width, screenW)
	g.HeightPct = Percent(height, screenH)
	return g
}

// Percent converts a pixel length into a rounded percentage of screen.
func Percent(px, screen int) int {
	if screen <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(px) / float64(screen)))
}

// Pixels converts a percentage of screen into a rounded pixel length.
func Pixels(pct, screen int) int {
	return int(math.Round(float64(pct) / 100 * float64(screen)))
}

// Defaults are used whenever a record is missing or malformed.
type Defaults struct {
	WidthPct  int
	HeightPct int
	X         int
	Y         int
}

// DefaultDefaults mirrors the built-in fallback geometry.
func DefaultDefaults() Defaults {
	return Defaults{WidthPct: 70, HeightPct: 30, X: 100, Y: 300}
}

// Record is the persisted form of a geometry. Zero pixel sizes and nil
// positions mean "absent".
type Record struct {
	WidthPx   int  `json:"width_px,omitempty"`
	HeightPx  int  `json:"height_px,omitempty"`
	WidthPct  int  `json:"width_pct,omitempty"`
	HeightPct int  `json:"height_pct,omitempty"`
	X         *int `json:"x,omitempty"`
	Y         *int `json:"y,omitempty"`
}

// RecordOf captures g for persistence.
func RecordOf(g Geometry) Record {
	x, y := g.X, g.Y
	return Record{
		WidthPx:   g.WidthPx,
		HeightPx:  g.HeightPx,
		WidthPct:  g.WidthPct,
		HeightPct: g.HeightPct,
		X:         &x,
		Y:         &y,
	}
}

// Resolve turns a possibly partial record into a usable geometry for the
// given screen. Pixel values win when both are present; otherwise the
// percentages (or defaults) are converted.
func (r Record) Resolve(screenW, screenH int, d Defaults) Geometry {
	widthPct := d.WidthPct
	if validPercent(r.WidthPct) {
		widthPct = r.WidthPct
	}
	heightPct := d.HeightPct
	if validPercent(r.HeightPct) {
		heightPct = r.HeightPct
	}

	var g Geometry
	if r.WidthPx > 0 && r.HeightPx > 0 {
		g = g.WithSize(r.WidthPx, r.HeightPx, screenW, screenH)
	} else {
		g.WidthPx = Pixels(widthPct, screenW)
		g.HeightPx = Pixels(heightPct, screenH)
		g.WidthPct = widthPct
		g.HeightPct = heightPct
	}

	g.X, g.Y = d.X, d.Y
	if r.X != nil && r.Y != nil {
		g.X, g.Y = *r.X, *r.Y
	}
	return g
}

func validPercent(p int) bool {
	return p > 0 && p <= 100
}
