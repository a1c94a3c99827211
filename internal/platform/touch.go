package platform

// TouchAction is the phase of a pointer/touch event.
type TouchAction int

const (
	TouchDown TouchAction = iota
	TouchMove
	TouchUp
	TouchCancel
)

func (a TouchAction) String() string {
	switch a {
	case TouchDown:
		return "down"
	case TouchMove:
		return "move"
	case TouchUp:
		return "up"
	case TouchCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// TouchEvent carries a single event in screen coordinates.
type TouchEvent struct {
	Action TouchAction
	X      float64
	Y      float64
}

// TouchHandler consumes touch events for a surface. It returns true when the
// event was consumed.
type TouchHandler interface {
	HandleTouch(ev TouchEvent) bool
}

// TouchHandlerFunc adapts a function to TouchHandler.
type TouchHandlerFunc func(ev TouchEvent) bool

func (f TouchHandlerFunc) HandleTouch(ev TouchEvent) bool { return f(ev) }
