package keygrid

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed layouts/default.toml
var defaultLayoutTOML string

// Key is a single key in a layout row. Width and Shift are in key-width units.
type Key struct {
	Label  string  `toml:"label"`
	Value  string  `toml:"value"`
	Width  float64 `toml:"width"`
	Shift  float64 `toml:"shift"`
	Action string  `toml:"action"`
}

// Text returns the text committed for the key.
func (k Key) Text() string {
	if k.Value != "" {
		return k.Value
	}
	return k.Label
}

// Row is a horizontal run of keys. Height and Shift are in row-height units.
type Row struct {
	Height float64 `toml:"height"`
	Shift  float64 `toml:"shift"`
	Keys   []Key   `toml:"keys"`
}

// Layout is a parsed keyboard layout.
type Layout struct {
	Name string `toml:"name"`
	Rows []Row  `toml:"rows"`
}

// Width returns the widest row in key-width units.
func (l *Layout) Width() float64 {
	var max float64
	for _, row := range l.Rows {
		var w float64
		for _, k := range row.Keys {
			w += k.Shift + k.Width
		}
		if w > max {
			max = w
		}
	}
	return max
}

// Height returns the total height in row-height units.
func (l *Layout) Height() float64 {
	var h float64
	for _, row := range l.Rows {
		h += row.Shift + row.Height
	}
	return h
}

// ParseLayout decodes a TOML layout and applies unit defaults.
func ParseLayout(data string) (*Layout, error) {
	var l Layout
	md, err := toml.Decode(data, &l)
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown layout fields: %s", strings.Join(keys, ", "))
	}
	if err := l.normalize(); err != nil {
		return nil, err
	}
	return &l, nil
}

// LoadLayout reads a layout from path.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout %s: %w", path, err)
	}
	l, err := ParseLayout(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// DefaultLayout returns the built-in layout.
func DefaultLayout() *Layout {
	l, err := ParseLayout(defaultLayoutTOML)
	if err != nil {
		panic(fmt.Sprintf("keygrid: builtin layout: %v", err))
	}
	return l
}

func (l *Layout) normalize() error {
	if len(l.Rows) == 0 {
		return fmt.Errorf("layout has no rows")
	}
	for i := range l.Rows {
		row := &l.Rows[i]
		if row.Height == 0 {
			row.Height = 1
		}
		if row.Height < 0 || row.Shift < 0 {
			return fmt.Errorf("row %d: height and shift must be >= 0", i)
		}
		for j := range row.Keys {
			k := &row.Keys[j]
			if k.Width == 0 {
				k.Width = 1
			}
			if k.Width < 0 || k.Shift < 0 {
				return fmt.Errorf("row %d key %d: width and shift must be >= 0", i, j)
			}
		}
	}
	if l.Width() == 0 {
		return fmt.Errorf("layout has no keys")
	}
	return nil
}
