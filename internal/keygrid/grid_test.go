package keygrid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newTestGrid lays out the default layout so that one key unit is 100px wide
// and one row unit is 100px tall.
func newTestGrid(t *testing.T) *Grid {
	t.Helper()
	g := NewGrid(DefaultLayout())
	g.Resize(1006, 506)
	m := g.Metrics()
	if m.KeyWidth != 100 || m.RowHeight != 100 {
		t.Fatalf("metrics = %+v, want 100x100 units", m)
	}
	return g
}

func TestDefaultLayout_Shape(t *testing.T) {
	l := DefaultLayout()
	if got := l.Width(); got != 10 {
		t.Fatalf("width = %v, want 10", got)
	}
	if got := l.Height(); got != 5 {
		t.Fatalf("height = %v, want 5", got)
	}
	if l.Rows[1].Keys[0].Width != 1 || l.Rows[1].Height != 1 {
		t.Fatalf("expected unit defaults to be applied")
	}
}

func TestKeyAt(t *testing.T) {
	g := newTestGrid(t)
	tests := []struct {
		name      string
		x, y      float64
		wantLabel string
		wantOK    bool
	}{
		{"q center", 50, 130, "q", true},
		{"w left edge", 103, 130, "w", true},
		{"gap between q and w", 100, 130, "", false},
		{"left margin", 1, 130, "", false},
		{"row gap", 50, 100, "", false},
		{"shifted row gap", 20, 230, "", false},
		{"a after shift", 60, 230, "a", true},
		{"passthrough key", 950, 40, "pass", true},
		{"outside", 5000, 40, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, ok := g.KeyAt(tt.x, tt.y)
			if ok != tt.wantOK {
				t.Fatalf("KeyAt(%v,%v) ok = %v, want %v", tt.x, tt.y, ok, tt.wantOK)
			}
			if ok && k.Key.Label != tt.wantLabel {
				t.Fatalf("KeyAt(%v,%v) = %q, want %q", tt.x, tt.y, k.Key.Label, tt.wantLabel)
			}
		})
	}
}

func TestKeyAt_UnsizedGridHasNoKeys(t *testing.T) {
	g := NewGrid(nil)
	if _, ok := g.KeyAt(10, 10); ok {
		t.Fatalf("expected no key before Resize")
	}
}

func TestMetrics_KeyRect(t *testing.T) {
	m := newTestGrid(t).Metrics()

	got := m.KeyRect(0, 9)
	want := Rect{X: 903, Y: 3, Width: 96, Height: 94}
	if got != want {
		t.Fatalf("KeyRect(0,9) = %+v, want %+v", got, want)
	}

	got = m.KeyRect(2, 1)
	want = Rect{X: 153, Y: 203, Width: 96, Height: 94}
	if got != want {
		t.Fatalf("KeyRect(2,1) = %+v, want %+v", got, want)
	}
}

func TestMetrics_FindActionAndTopRight(t *testing.T) {
	m := newTestGrid(t).Metrics()

	row, col, ok := m.FindAction("enable_passthrough")
	if !ok || row != 0 || col != 9 {
		t.Fatalf("FindAction = %d,%d,%v", row, col, ok)
	}
	if _, _, ok := m.FindAction("no_such_action"); ok {
		t.Fatalf("expected missing action")
	}
	row, col, ok = m.TopRight()
	if !ok || row != 0 || col != 9 {
		t.Fatalf("TopRight = %d,%d,%v", row, col, ok)
	}
}

func TestPressedState(t *testing.T) {
	g := newTestGrid(t)
	k, ok := g.KeyAt(50, 130)
	if !ok {
		t.Fatalf("expected key")
	}
	g.Press(k)
	if p, ok := g.Pressed(); !ok || p.Key.Label != "q" {
		t.Fatalf("pressed = %+v, %v", p, ok)
	}
	g.ResetPressed()
	if _, ok := g.Pressed(); ok {
		t.Fatalf("expected no pressed key after reset")
	}
	g.Press(k)
	g.SetLayout(DefaultLayout())
	if _, ok := g.Pressed(); ok {
		t.Fatalf("expected SetLayout to clear pressed key")
	}
}

func TestParseLayout_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"no rows", `name = "x"`, "no rows"},
		{"unknown field", "[[rows]]\ncolour = 1\nkeys = [{ label = \"a\" }]", "unknown layout fields"},
		{"negative width", "[[rows]]\nkeys = [{ label = \"a\", width = -1 }]", "must be >= 0"},
		{"bad toml", "[[rows]\n", "failed to parse layout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLayout(tt.data)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.toml")
	data := "name = \"small\"\n[[rows]]\nkeys = [{ label = \"a\" }, { label = \"go\", action = \"enable_passthrough\", width = 2 }]\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l, err := LoadLayout(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if l.Name != "small" || l.Width() != 3 {
		t.Fatalf("layout = %+v", l)
	}
	if _, err := LoadLayout(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
