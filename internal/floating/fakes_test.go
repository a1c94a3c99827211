package floating

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/floatkb/internal/geometry"
	"github.com/1broseidon/floatkb/internal/keygrid"
	"github.com/1broseidon/floatkb/internal/platform"
	"github.com/1broseidon/floatkb/internal/toggle"
	"github.com/charmbracelet/log"
)

type fakeWM struct {
	mu       sync.Mutex
	surfaces map[platform.SurfaceID]platform.Params
	calls    []string
	screenW  int
	screenH  int
	denied   bool

	failAdd    error
	failUpdate error
}

func newFakeWM(w, h int) *fakeWM {
	return &fakeWM{surfaces: map[platform.SurfaceID]platform.Params{}, screenW: w, screenH: h}
}

func (f *fakeWM) Add(id platform.SurfaceID, p platform.Params) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd != nil {
		return f.failAdd
	}
	if _, ok := f.surfaces[id]; ok {
		return platform.ErrSurfaceExists
	}
	f.surfaces[id] = p
	f.calls = append(f.calls, "add:"+string(id))
	return nil
}

func (f *fakeWM) Update(id platform.SurfaceID, p platform.Params) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil {
		return f.failUpdate
	}
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
	f.calls = append(f.calls, "remove:"+string(id))
	return nil
}

func (f *fakeWM) ScreenSize() (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.screenW, f.screenH, nil
}

func (f *fakeWM) CanDrawOverlays() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.denied
}

func (f *fakeWM) params(id platform.SurfaceID) (platform.Params, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.surfaces[id]
	return p, ok
}

func (f *fakeWM) has(id platform.SurfaceID) bool {
	_, ok := f.params(id)
	return ok
}

func (f *fakeWM) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

type fakeStore struct {
	mu          sync.Mutex
	geoms       map[string]geometry.Geometry
	saves       map[string]int
	togglePos   *geometry.Point
	dock        *geometry.DockSnapshot
	persistence *bool
	fallback    geometry.Geometry
}

func newFakeStore(fallback geometry.Geometry) *fakeStore {
	return &fakeStore{geoms: map[string]geometry.Geometry{}, saves: map[string]int{}, fallback: fallback}
}

func (s *fakeStore) Load(v geometry.Variant, _, _ int) geometry.Geometry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.geoms[v.Key()]; ok {
		return g
	}
	return s.fallback
}

func (s *fakeStore) Save(v geometry.Variant, g geometry.Geometry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.geoms[v.Key()] = g
	s.saves[v.Key()]++
}

func (s *fakeStore) saved(key string) (geometry.Geometry, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geoms[key], s.saves[key]
}

func (s *fakeStore) DockSnapshot() geometry.DockSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dock == nil {
		return geometry.DefaultDockSnapshot()
	}
	return *s.dock
}

func (s *fakeStore) SaveDockSnapshot(snap geometry.DockSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dock = &snap
}

func (s *fakeStore) Persistence(def bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistence == nil {
		return def
	}
	return *s.persistence
}

func (s *fakeStore) SavePersistence(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistence = &enabled
}

func (s *fakeStore) TogglePosition() (geometry.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.togglePos == nil {
		return geometry.Point{}, false
	}
	return *s.togglePos, true
}

func (s *fakeStore) SaveTogglePosition(p geometry.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.togglePos = &p
}

type fakeKeys struct {
	mu     sync.Mutex
	tapped []string
	nav    []toggle.Direction
}

func (k *fakeKeys) KeyTapped(key keygrid.Key) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.tapped = append(k.tapped, key.Label)
}

func (k *fakeKeys) Navigate(dir toggle.Direction) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.nav = append(k.nav, dir)
}

type fakeScheduler struct {
	mu      sync.Mutex
	pending []func()
	delays  []time.Duration
}

func (s *fakeScheduler) schedule(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, f)
	s.delays = append(s.delays, d)
}

func (s *fakeScheduler) runAll() {
	s.mu.Lock()
	fns := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	c       *Container
	wm      *fakeWM
	store   *fakeStore
	keys    *fakeKeys
	sched   *fakeScheduler
	clock   *fakeClock
	actions []string
	denied  int
}

const (
	screenW = 1080
	screenH = 2400
)

// gridGeometry lays the default layout out in 100px key units below a 30px
// handle strip, at x=0, y=300.
func gridGeometry() geometry.Geometry {
	g := geometry.Geometry{X: 0, Y: 300}
	return g.WithSize(1006, 536, screenW, screenH)
}

// scenarioGeometry is 30% x 20% of a 1080x2400 screen at (100, 300).
func scenarioGeometry() geometry.Geometry {
	g := geometry.Geometry{X: 100, Y: 300}
	return g.WithSize(324, 480, screenW, screenH)
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

func newFixture(t *testing.T, g geometry.Geometry) *fixture {
	t.Helper()
	f := &fixture{
		wm:    newFakeWM(screenW, screenH),
		store: newFakeStore(g),
		keys:  &fakeKeys{},
		sched: &fakeScheduler{},
		clock: &fakeClock{now: time.Unix(1000, 0)},
	}
	f.c = New(Options{
		WindowManager:      f.wm,
		Surface:            keygrid.NewGrid(keygrid.DefaultLayout()),
		Store:              f.store,
		Keys:               f.keys,
		Settings:           DefaultSettings(),
		Fold:               geometry.Folded,
		Persistence:        true,
		Logger:             quietLogger(),
		Clock:              f.clock.Now,
		Schedule:           f.sched.schedule,
		OnAction:           func(a string) { f.actions = append(f.actions, a) },
		OnPermissionDenied: func() { f.denied++ },
	})
	return f
}

func (f *fixture) show(t *testing.T) {
	t.Helper()
	if err := f.c.Show(); err != nil {
		t.Fatalf("Show: %v", err)
	}
}

func (f *fixture) touch(action platform.TouchAction, x, y float64) bool {
	return f.c.HandleTouch(platform.TouchEvent{Action: action, X: x, Y: y})
}

// tap sends a down/up pair and advances past the ignore window afterwards.
func (f *fixture) tap(x, y float64) bool {
	consumed := f.touch(platform.TouchDown, x, y)
	f.touch(platform.TouchUp, x, y)
	f.clock.advance(time.Second)
	return consumed
}

func (f *fixture) checkToggleInvariant(t *testing.T) {
	t.Helper()
	passthrough := f.c.Mode() == ModePassthrough
	if got := f.c.Toggle().Shown(); got != passthrough {
		t.Fatalf("toggle shown = %v, passthrough = %v", got, passthrough)
	}
	if got := f.wm.has(platform.SurfaceToggle); got != passthrough {
		t.Fatalf("toggle surface added = %v, passthrough = %v", got, passthrough)
	}
}
