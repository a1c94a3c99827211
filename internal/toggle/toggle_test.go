package toggle

import (
	"io"
	"reflect"
	"sync"
	"testing"

	"github.com/1broseidon/floatkb/internal/geometry"
	"github.com/1broseidon/floatkb/internal/platform"
	"github.com/charmbracelet/log"
)

type fakeWM struct {
	mu       sync.Mutex
	surfaces map[platform.SurfaceID]platform.Params
	adds     int
	removes  int
}

func (f *fakeWM) Add(id platform.SurfaceID, p platform.Params) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.surfaces[id]; ok {
		return platform.ErrSurfaceExists
	}
	f.surfaces[id] = p
	f.adds++
	return nil
}

func (f *fakeWM) Update(id platform.SurfaceID, p platform.Params) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.surfaces[id]; !ok {
		return platform.ErrSurfaceMissing
	}
	f.surfaces[id] = p
	return nil
}

func (f *fakeWM) Remove(id platform.SurfaceID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.surfaces[id]; !ok {
		return platform.ErrSurfaceMissing
	}
	delete(f.surfaces, id)
	f.removes++
	return nil
}

func (f *fakeWM) ScreenSize() (int, int, error) { return 1080, 2400, nil }
func (f *fakeWM) CanDrawOverlays() bool         { return true }

type memStore struct {
	pos *geometry.Point
}

func (m *memStore) TogglePosition() (geometry.Point, bool) {
	if m.pos == nil {
		return geometry.Point{}, false
	}
	return *m.pos, true
}

func (m *memStore) SaveTogglePosition(p geometry.Point) { m.pos = &p }

type recordingHost struct {
	taps   int
	swipes []Direction
}

func (h *recordingHost) ToggleTapped()              { h.taps++ }
func (h *recordingHost) ToggleSwiped(dir Direction) { h.swipes = append(h.swipes, dir) }

func newTestSurface() (*Surface, *fakeWM, *memStore, *recordingHost) {
	wm := &fakeWM{surfaces: map[platform.SurfaceID]platform.Params{}}
	store := &memStore{}
	host := &recordingHost{}
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
	return New(wm, store, host, DefaultOptions(), logger), wm, store, host
}

var anchor = platform.Rect{X: 903, Y: 333, Width: 96, Height: 94}

func TestClassify(t *testing.T) {
	opts := DefaultOptions()
	tests := []struct {
		name     string
		dx, dy   float64
		dragging bool
		want     Gesture
		wantDir  Direction
	}{
		{"still", 0, 0, false, GestureTap, 0},
		{"tap at threshold", 15, 0, false, GestureTap, 0},
		{"between thresholds", 20, 10, false, GestureDrag, 0},
		{"live drag wins", 100, 0, true, GestureDrag, 0},
		{"swipe right", 50, 0, false, GestureSwipe, DirRight},
		{"swipe left", -50, 10, false, GestureSwipe, DirLeft},
		{"swipe up", 5, -40, false, GestureSwipe, DirUp},
		{"swipe down", 0, 31, false, GestureSwipe, DirDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dir := Classify(tt.dx, tt.dy, tt.dragging, opts)
			if got != tt.want {
				t.Fatalf("gesture = %v, want %v", got, tt.want)
			}
			if got == GestureSwipe && dir != tt.wantDir {
				t.Fatalf("direction = %v, want %v", dir, tt.wantDir)
			}
		})
	}
}

func TestShowHide_Idempotent(t *testing.T) {
	s, wm, _, _ := newTestSurface()

	for i := 0; i < 3; i++ {
		if err := s.Show(anchor, 1080, 2400); err != nil {
			t.Fatalf("Show: %v", err)
		}
	}
	if wm.adds != 1 {
		t.Fatalf("adds = %d, want 1", wm.adds)
	}
	if got := s.Bounds(); got != anchor {
		t.Fatalf("bounds = %+v, want anchor %+v", got, anchor)
	}
	p := wm.surfaces[platform.SurfaceToggle]
	if !p.Touchable || p.Layer != platform.LayerToggle || p.Opacity != 1 {
		t.Fatalf("params = %+v", p)
	}

	for i := 0; i < 3; i++ {
		if err := s.Hide(); err != nil {
			t.Fatalf("Hide: %v", err)
		}
	}
	if wm.removes != 1 || s.Shown() {
		t.Fatalf("removes = %d shown = %v", wm.removes, s.Shown())
	}
	if got := s.Bounds(); got != (platform.Rect{}) {
		t.Fatalf("hidden bounds = %+v", got)
	}
}

func TestShow_FallbackPlacement(t *testing.T) {
	s, _, _, _ := newTestSurface()
	if err := s.Show(platform.Rect{}, 1080, 2400); err != nil {
		t.Fatalf("Show: %v", err)
	}
	want := platform.Rect{X: 1080 - 64, Y: 0, Width: 64, Height: 64}
	if got := s.Bounds(); got != want {
		t.Fatalf("bounds = %+v, want %+v", got, want)
	}
}

func TestShow_RememberedPositionClamped(t *testing.T) {
	s, _, store, _ := newTestSurface()
	store.pos = &geometry.Point{X: 5000, Y: -20}
	if err := s.Show(anchor, 1080, 2400); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if got := s.Bounds(); got.X != 1080-96 || got.Y != 0 {
		t.Fatalf("bounds = %+v", got)
	}

	s.Hide()
	opts := DefaultOptions()
	opts.Remember = false
	s.SetOptions(opts)
	if err := s.Show(anchor, 1080, 2400); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if got := s.Bounds(); got != anchor {
		t.Fatalf("remember disabled: bounds = %+v", got)
	}
}

func TestHandleTouch_Tap(t *testing.T) {
	s, _, _, host := newTestSurface()
	s.Show(anchor, 1080, 2400)

	if !s.HandleTouch(platform.TouchEvent{Action: platform.TouchDown, X: 950, Y: 380}) {
		t.Fatalf("down inside not consumed")
	}
	s.HandleTouch(platform.TouchEvent{Action: platform.TouchMove, X: 955, Y: 385})
	s.HandleTouch(platform.TouchEvent{Action: platform.TouchUp, X: 955, Y: 385})
	if host.taps != 1 {
		t.Fatalf("taps = %d, want 1", host.taps)
	}
	if got := s.Bounds(); got != anchor {
		t.Fatalf("tap moved the surface to %+v", got)
	}
}

func TestHandleTouch_OutsideNotConsumed(t *testing.T) {
	s, _, _, host := newTestSurface()
	s.Show(anchor, 1080, 2400)

	if s.HandleTouch(platform.TouchEvent{Action: platform.TouchDown, X: 10, Y: 10}) {
		t.Fatalf("down outside consumed")
	}
	if s.HandleTouch(platform.TouchEvent{Action: platform.TouchUp, X: 10, Y: 10}) {
		t.Fatalf("up without down consumed")
	}
	if host.taps != 0 {
		t.Fatalf("unexpected tap")
	}
}

func TestHandleTouch_DragSavesPosition(t *testing.T) {
	s, wm, store, host := newTestSurface()
	s.Show(anchor, 1080, 2400)

	s.HandleTouch(platform.TouchEvent{Action: platform.TouchDown, X: 950, Y: 380})
	s.HandleTouch(platform.TouchEvent{Action: platform.TouchMove, X: 930, Y: 400})
	if got := s.Bounds(); got.X != 883 || got.Y != 353 {
		t.Fatalf("live drag bounds = %+v", got)
	}
	s.HandleTouch(platform.TouchEvent{Action: platform.TouchUp, X: 990, Y: 420})

	want := geometry.Point{X: 943, Y: 373}
	if store.pos == nil || *store.pos != want {
		t.Fatalf("saved = %v, want %+v", store.pos, want)
	}
	if p := wm.surfaces[platform.SurfaceToggle]; p.X != 943 || p.Y != 373 {
		t.Fatalf("surface at (%d,%d)", p.X, p.Y)
	}
	if host.taps != 0 || len(host.swipes) != 0 {
		t.Fatalf("drag reported taps=%d swipes=%v", host.taps, host.swipes)
	}
}

func TestHandleTouch_SwipeAfterQuickRelease(t *testing.T) {
	s, _, store, host := newTestSurface()
	s.Show(anchor, 1080, 2400)

	s.HandleTouch(platform.TouchEvent{Action: platform.TouchDown, X: 950, Y: 380})
	s.HandleTouch(platform.TouchEvent{Action: platform.TouchUp, X: 900, Y: 380})

	if !reflect.DeepEqual(host.swipes, []Direction{DirLeft}) {
		t.Fatalf("swipes = %v", host.swipes)
	}
	if store.pos != nil {
		t.Fatalf("swipe saved a position")
	}
}

func TestHandleTouch_Cancel(t *testing.T) {
	s, _, _, host := newTestSurface()
	s.Show(anchor, 1080, 2400)

	s.HandleTouch(platform.TouchEvent{Action: platform.TouchDown, X: 950, Y: 380})
	if !s.HandleTouch(platform.TouchEvent{Action: platform.TouchCancel}) {
		t.Fatalf("cancel of active touch not consumed")
	}
	s.HandleTouch(platform.TouchEvent{Action: platform.TouchUp, X: 950, Y: 380})
	if host.taps != 0 {
		t.Fatalf("cancelled touch tapped")
	}
}
