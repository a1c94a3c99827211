package keygrid

import "sync"

// Margins around and between keys, in pixels.
type Margins struct {
	Left       float64
	Top        float64
	Right      float64
	Bottom     float64
	Horizontal float64 // gap subtracted from each key's width
	Vertical   float64 // gap subtracted from each row's height
}

// DefaultMargins is used by NewGrid.
func DefaultMargins() Margins {
	return Margins{Left: 3, Top: 3, Right: 3, Bottom: 3, Horizontal: 4, Vertical: 6}
}

// Metrics describes the pixel grid a layout is currently drawn on.
type Metrics struct {
	KeyWidth  float64
	RowHeight float64
	Margins   Margins
	Rows      []Row
}

// Rect is a floating point rectangle local to the grid.
type Rect struct {
	X, Y, Width, Height float64
}

func (r Rect) contains(x, y float64) bool {
	return x >= r.X && y >= r.Y && x < r.X+r.Width && y < r.Y+r.Height
}

// KeyRect returns the drawn rectangle of the key at (row, col).
func (m Metrics) KeyRect(row, col int) Rect {
	y := m.Margins.Top
	for i := 0; i < row; i++ {
		y += (m.Rows[i].Shift + m.Rows[i].Height) * m.RowHeight
	}
	r := m.Rows[row]
	y += r.Shift * m.RowHeight

	x := m.Margins.Left
	for j := 0; j < col; j++ {
		x += (r.Keys[j].Shift + r.Keys[j].Width) * m.KeyWidth
	}
	k := r.Keys[col]
	x += k.Shift * m.KeyWidth

	return Rect{
		X:      x,
		Y:      y,
		Width:  k.Width*m.KeyWidth - m.Margins.Horizontal,
		Height: r.Height*m.RowHeight - m.Margins.Vertical,
	}
}

// FindAction locates the first key bound to action.
func (m Metrics) FindAction(action string) (row, col int, ok bool) {
	for i, r := range m.Rows {
		for j, k := range r.Keys {
			if k.Action == action {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// TopRight locates the last key of the first non-empty row.
func (m Metrics) TopRight() (row, col int, ok bool) {
	for i, r := range m.Rows {
		if len(r.Keys) > 0 {
			return i, len(r.Keys) - 1, true
		}
	}
	return 0, 0, false
}

// PlacedKey is a key with its drawn rectangle.
type PlacedKey struct {
	Key  Key
	Rect Rect
	Row  int
	Col  int
}

// Grid is a keyboard render surface: it lays out a Layout over a pixel area,
// answers hit-tests and tracks the pressed key.
type Grid struct {
	mu      sync.Mutex
	layout  *Layout
	margins Margins
	width   int
	height  int
	pressed *PlacedKey
}

// NewGrid creates a grid for layout with default margins.
func NewGrid(layout *Layout) *Grid {
	if layout == nil {
		layout = DefaultLayout()
	}
	return &Grid{layout: layout, margins: DefaultMargins()}
}

// SetLayout swaps the layout and clears pressed state.
func (g *Grid) SetLayout(layout *Layout) {
	if layout == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.layout = layout
	g.pressed = nil
}

// Layout returns the active layout.
func (g *Grid) Layout() *Layout {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.layout
}

// Resize sets the pixel area the layout is drawn on.
func (g *Grid) Resize(width, height int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.width = width
	g.height = height
}

// Size returns the current pixel area.
func (g *Grid) Size() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.width, g.height
}

// Metrics returns the current key-grid metrics.
func (g *Grid) Metrics() Metrics {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.metricsLocked()
}

func (g *Grid) metricsLocked() Metrics {
	m := Metrics{Margins: g.margins, Rows: g.layout.Rows}
	usableW := float64(g.width) - g.margins.Left - g.margins.Right
	usableH := float64(g.height) - g.margins.Top - g.margins.Bottom
	if usableW > 0 {
		m.KeyWidth = usableW / g.layout.Width()
	}
	if h := g.layout.Height(); usableH > 0 && h > 0 {
		m.RowHeight = usableH / h
	}
	return m
}

// KeyAt hit-tests grid-local coordinates. Gaps, margins and shifts return false.
func (g *Grid) KeyAt(x, y float64) (PlacedKey, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	m := g.metricsLocked()
	if m.KeyWidth <= 0 || m.RowHeight <= 0 {
		return PlacedKey{}, false
	}
	for i, r := range m.Rows {
		for j, k := range r.Keys {
			rect := m.KeyRect(i, j)
			if rect.contains(x, y) {
				return PlacedKey{Key: k, Rect: rect, Row: i, Col: j}, true
			}
		}
	}
	return PlacedKey{}, false
}

// Keys returns every key with its rectangle, for drawing.
func (g *Grid) Keys() []PlacedKey {
	g.mu.Lock()
	defer g.mu.Unlock()

	m := g.metricsLocked()
	var out []PlacedKey
	for i, r := range m.Rows {
		for j, k := range r.Keys {
			out = append(out, PlacedKey{Key: k, Rect: m.KeyRect(i, j), Row: i, Col: j})
		}
	}
	return out
}

// Press marks k as the pressed key.
func (g *Grid) Press(k PlacedKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pressed = &k
}

// Pressed returns the pressed key, if any.
func (g *Grid) Pressed() (PlacedKey, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pressed == nil {
		return PlacedKey{}, false
	}
	return *g.pressed, true
}

// ResetPressed clears the pressed key.
func (g *Grid) ResetPressed() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pressed = nil
}
