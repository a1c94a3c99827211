package geometry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// ErrNotFound is returned by a Backend when a key has never been written.
var ErrNotFound = errors.New("geometry: key not found")

// Backend is the raw key/value persistence behind a Store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

const (
	keyGeometryPrefix = "geometry:"
	keyTogglePosition = "toggle_position"
	keyDockSnapshot   = "dock_snapshot"
	keyPersistence    = "persistence"
)

const writeTimeout = 5 * time.Second

// DockSnapshot is the floating position saved when docking.
type DockSnapshot struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Width int `json:"width"`
}

// DefaultDockSnapshot is restored when undocking without a saved snapshot.
func DefaultDockSnapshot() DockSnapshot {
	return DockSnapshot{X: 100, Y: 100, Width: 800}
}

// Store persists overlay state. Saves are queued and written by a single
// background goroutine; loads see queued values immediately.
type Store struct {
	backend  Backend
	defaults Defaults
	logger   *log.Logger

	mu      sync.Mutex
	pending map[string][]byte
	closed  bool

	writeMu sync.Mutex
	wake    chan struct{}
	done    chan struct{}
}

// NewStore starts the background writer for backend.
func NewStore(backend Backend, defaults Defaults, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{
		backend:  backend,
		defaults: defaults,
		logger:   logger,
		pending:  make(map[string][]byte),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// Defaults returns the fallback geometry settings.
func (s *Store) Defaults() Defaults {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaults
}

// SetDefaults replaces the fallback geometry, e.g. after a config reload.
func (s *Store) SetDefaults(d Defaults) {
	s.mu.Lock()
	s.defaults = d
	s.mu.Unlock()
}

// Load returns the geometry for v on a screen of the given size, falling back
// to defaults when nothing usable is stored.
func (s *Store) Load(v Variant, screenW, screenH int) Geometry {
	s.mu.Lock()
	defaults := s.defaults
	s.mu.Unlock()

	var rec Record
	if err := s.get(keyGeometryPrefix+v.Key(), &rec); err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("Using default geometry", "variant", v, "err", err)
		}
		rec = Record{}
	}
	return rec.Resolve(screenW, screenH, defaults)
}

// Save queues g for v. It never blocks on the backend.
func (s *Store) Save(v Variant, g Geometry) {
	s.put(keyGeometryPrefix+v.Key(), RecordOf(g))
}

// TogglePosition returns the saved toggle position, if any.
func (s *Store) TogglePosition() (Point, bool) {
	var p Point
	if err := s.get(keyTogglePosition, &p); err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("Ignoring stored toggle position", "err", err)
		}
		return Point{}, false
	}
	return p, true
}

// SaveTogglePosition queues the toggle position.
func (s *Store) SaveTogglePosition(p Point) {
	s.put(keyTogglePosition, p)
}

// DockSnapshot returns the saved pre-dock placement or the default one.
func (s *Store) DockSnapshot() DockSnapshot {
	snap := DefaultDockSnapshot()
	if err := s.get(keyDockSnapshot, &snap); err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("Ignoring stored dock snapshot", "err", err)
		}
		return DefaultDockSnapshot()
	}
	return snap
}

// SaveDockSnapshot queues the pre-dock placement.
func (s *Store) SaveDockSnapshot(snap DockSnapshot) {
	s.put(keyDockSnapshot, snap)
}

// Persistence returns the stored persistence flag or def when unset.
func (s *Store) Persistence(def bool) bool {
	var enabled bool
	if err := s.get(keyPersistence, &enabled); err != nil {
		return def
	}
	return enabled
}

// SavePersistence queues the persistence flag.
func (s *Store) SavePersistence(enabled bool) {
	s.put(keyPersistence, enabled)
}

// Flush synchronously writes every queued value.
func (s *Store) Flush(ctx context.Context) error {
	return s.flush(ctx)
}

// Close flushes queued values, stops the writer and closes the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.wake)
	s.mu.Unlock()
	<-s.done

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	flushErr := s.flush(ctx)
	if err := s.backend.Close(); err != nil {
		return fmt.Errorf("failed to close geometry backend: %w", err)
	}
	return flushErr
}

func (s *Store) get(key string, out any) error {
	s.mu.Lock()
	data, ok := s.pending[key]
	s.mu.Unlock()

	if !ok {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		var err error
		data, err = s.backend.Get(ctx, key)
		if err != nil {
			return err
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %q: %w", key, err)
	}
	return nil
}

func (s *Store) put(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("Failed to encode state", "key", key, "err", err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("Dropping write after close", "key", key)
		return
	}
	s.pending[key] = data
	select {
	case s.wake <- struct{}{}:
	default:
	}
	s.mu.Unlock()
}

func (s *Store) writeLoop() {
	defer close(s.done)
	for range s.wake {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := s.flush(ctx); err != nil {
			s.logger.Warn("Geometry write failed, will retry on next save", "err", err)
		}
		cancel()
	}
}

func (s *Store) flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	batch := make(map[string][]byte, len(s.pending))
	for k, v := range s.pending {
		batch[k] = v
	}
	s.mu.Unlock()

	var errs []error
	for key, data := range batch {
		if err := s.backend.Put(ctx, key, data); err != nil {
			errs = append(errs, fmt.Errorf("failed to write %q: %w", key, err))
			continue
		}
		s.mu.Lock()
		// A newer value queued during the write stays pending.
		if cur, ok := s.pending[key]; ok && bytes.Equal(cur, data) {
			delete(s.pending, key)
		}
		s.mu.Unlock()
	}
	return errors.Join(errs...)
}
