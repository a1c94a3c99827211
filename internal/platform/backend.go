package platform

import "errors"

// SurfaceID identifies a top-level overlay surface owned by the engine.
type SurfaceID string

const (
	// SurfaceMain hosts the keyboard render surface.
	SurfaceMain SurfaceID = "main"
	// SurfaceToggle is the small always-touchable passthrough toggle.
	SurfaceToggle SurfaceID = "toggle"
)

// Layer controls z-ordering of overlay surfaces.
type Layer int

const (
	// LayerOverlay draws above regular application windows.
	LayerOverlay Layer = iota
	// LayerToggle draws above LayerOverlay surfaces.
	LayerToggle
)

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether the point lies inside r (right and bottom edges excluded).
func (r Rect) Contains(x, y float64) bool {
	return x >= float64(r.X) && y >= float64(r.Y) &&
		x < float64(r.X+r.Width) && y < float64(r.Y+r.Height)
}

// Role tells the window manager how to paint a Shape.
type Role int

const (
	RoleKey Role = iota
	RoleCommandKey
	RoleHandle
	RoleToggle
)

// Shape is one element of a surface's content in surface-local coordinates.
type Shape struct {
	Rect    Rect
	Label   string
	Role    Role
	Pressed bool
}

// Params describes how a surface should be placed by the host windowing system.
type Params struct {
	X         int
	Y         int
	Width     int
	Height    int
	Touchable bool
	// InputRegion lists the surface-local rectangles that still take
	// touches when Touchable is false.
	InputRegion []Rect
	Opacity     float64
	Layer       Layer
	// Scene is the content to draw. Window managers repaint it on every Add
	// and Update.
	Scene []Shape
}

// Bounds returns the surface rectangle.
func (p Params) Bounds() Rect {
	return Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

// ErrSurfaceExists is returned by Add when the surface is already present.
var ErrSurfaceExists = errors.New("surface already added")

// ErrSurfaceMissing is returned by Update and Remove for unknown surfaces.
var ErrSurfaceMissing = errors.New("surface not added")

// WindowManager abstracts the host windowing system for overlay surfaces.
type WindowManager interface {
	Add(id SurfaceID, params Params) error
	Update(id SurfaceID, params Params) error
	Remove(id SurfaceID) error
	ScreenSize() (width, height int, err error)
	// CanDrawOverlays reports whether the host currently allows overlay surfaces.
	CanDrawOverlays() bool
}
