package floating

import (
	"fmt"
	"strings"
)

// Mode is the touch-routing state of the container.
type Mode int

const (
	// ModeNormal routes touches to keys and handles.
	ModeNormal Mode = iota
	// ModeDragging moves the overlay with the active touch.
	ModeDragging
	// ModeResizing resizes the overlay around its bottom-left corner.
	ModeResizing
	// ModePassthrough makes the main surface non-touchable until the toggle
	// surface or a command exits it.
	ModePassthrough
)

// String returns the string representation of the mode
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeDragging:
		return "dragging"
	case ModeResizing:
		return "resizing"
	case ModePassthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// Transient reports whether the mode ends with the touch that started it.
func (m Mode) Transient() bool {
	return m == ModeDragging || m == ModeResizing
}

// Edge is a screen edge used by Snap.
type Edge int

const (
	EdgeLeft Edge = iota
	EdgeRight
	EdgeTop
	EdgeBottom
)

func (e Edge) String() string {
	switch e {
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	default:
		return "unknown"
	}
}

// ParseEdge parses "left", "right", "top" or "bottom".
func ParseEdge(s string) (Edge, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return EdgeLeft, nil
	case "right":
		return EdgeRight, nil
	case "top":
		return EdgeTop, nil
	case "bottom":
		return EdgeBottom, nil
	default:
		return 0, fmt.Errorf("unknown edge %q (want left, right, top or bottom)", s)
	}
}

// Axis selects which dimensions Center acts on.
type Axis int

const (
	AxisHorizontal Axis = iota
	AxisVertical
	AxisBoth
)

func (a Axis) String() string {
	switch a {
	case AxisHorizontal:
		return "horizontal"
	case AxisVertical:
		return "vertical"
	case AxisBoth:
		return "both"
	default:
		return "unknown"
	}
}

// ParseAxis parses "horizontal", "vertical" or "both".
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal", "h":
		return AxisHorizontal, nil
	case "vertical", "v":
		return AxisVertical, nil
	case "both", "":
		return AxisBoth, nil
	default:
		return 0, fmt.Errorf("unknown axis %q (want horizontal, vertical or both)", s)
	}
}
