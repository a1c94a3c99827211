package daemon

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// ScreenWatcher re-checks the screen size. *floating.Container implements it.
type ScreenWatcher interface {
	ScreenChanged() error
}

// Flusher writes queued state. *geometry.Store implements it.
type Flusher interface {
	Flush(ctx context.Context) error
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	// PollScreen re-checks the screen size on every pass, for servers without
	// RandR notifications.
	PollScreen bool
	Logger     *log.Logger
}

// Reconciler periodically checks for state drift and corrects it: a missed
// screen change or geometry not yet written to the store.
type Reconciler struct {
	interval   time.Duration
	pollScreen bool
	screen     ScreenWatcher
	store      Flusher
	logger     *log.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, screen ScreenWatcher, store Flusher) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Reconciler{
		interval:   interval,
		pollScreen: cfg.PollScreen,
		screen:     screen,
		store:      store,
		logger:     logger.WithPrefix("reconciler"),
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("Reconciler started", "interval", r.interval, "poll_screen", r.pollScreen)

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("Reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile(ctx context.Context) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("Reconciler panic recovered", "err", err)
		}
	}()

	if r.pollScreen {
		if err := r.screen.ScreenChanged(); err != nil {
			r.logger.Warn("Screen check failed", "err", err)
		}
	}

	flushCtx, cancel := context.WithTimeout(ctx, r.interval)
	defer cancel()
	if err := r.store.Flush(flushCtx); err != nil {
		r.logger.Warn("Failed to flush geometry store", "err", err)
	}
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow(ctx context.Context) {
	r.reconcile(ctx)
}
