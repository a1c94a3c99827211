// Package daemon builds the overlay keyboard from configuration and runs it on
// the X11 event loop.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/1broseidon/floatkb/internal/command"
	"github.com/1broseidon/floatkb/internal/config"
	"github.com/1broseidon/floatkb/internal/floating"
	"github.com/1broseidon/floatkb/internal/geometry"
	"github.com/1broseidon/floatkb/internal/hotkeys"
	"github.com/1broseidon/floatkb/internal/ipc"
	"github.com/1broseidon/floatkb/internal/keygrid"
	"github.com/1broseidon/floatkb/internal/platform"
	"github.com/1broseidon/floatkb/internal/runtimepath"
	"github.com/1broseidon/floatkb/internal/x11"
	"github.com/charmbracelet/log"
)

const reconcileInterval = 10 * time.Second

// Daemon owns every long-lived component of a running overlay keyboard.
type Daemon struct {
	logger *log.Logger
	load   func() (*config.Config, error)

	conn       *x11.Connection
	wm         *x11.OverlayManager
	store      *geometry.Store
	container  *floating.Container
	receiver   *command.Receiver
	hotkeys    *hotkeys.Handler
	ipc        *ipc.Server
	sync       *StateSynchronizer
	reconciler *Reconciler
	reloadChan chan struct{}
	pidPath    string
}

// New connects to X11 and builds the overlay from cfg. load is used for
// reloads and defaults to config.Load.
func New(ctx context.Context, cfg *config.Config, load func() (*config.Config, error), logger *log.Logger) (*Daemon, error) {
	if logger == nil {
		logger = log.Default()
	}
	if load == nil {
		load = config.Load
	}
	d := &Daemon{
		logger:     logger,
		load:       load,
		reloadChan: make(chan struct{}, 1),
	}

	conn, err := x11.NewConnection(cfg.Display)
	if err != nil {
		return nil, err
	}
	d.conn = conn
	if !conn.Shape {
		logger.Warn("SHAPE extension missing; the overlay cannot be shown")
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	d.store = store

	layout, err := loadLayout(cfg.Layout)
	if err != nil {
		logger.Warn("Falling back to builtin layout", "path", cfg.Layout, "err", err)
		layout = keygrid.DefaultLayout()
	}

	keys, err := x11.NewKeyInjector(conn, logger)
	if err != nil {
		store.Close()
		conn.Close()
		return nil, err
	}

	fold, _ := geometry.ParseFold(cfg.FoldState)
	d.wm = x11.NewOverlayManager(conn, logger)
	d.container = floating.New(floating.Options{
		WindowManager: d.wm,
		Surface:       keygrid.NewGrid(layout),
		Store:         store,
		Keys:          keys,
		Settings:      floating.SettingsFromConfig(cfg),
		Fold:          fold,
		Persistence:   cfg.Persistence,
		Logger:        logger,
		OnPermissionDenied: func() {
			logger.Error("Overlay windows unavailable: X11 SHAPE extension is required")
		},
	})
	d.receiver = command.NewReceiver(d.container, logger)
	d.container.SetActionHandler(d.receiver.HandleAction)

	d.wm.SetTouchHandler(platform.SurfaceMain, d.container)
	d.wm.SetTouchHandler(platform.SurfaceToggle, d.container.Toggle())

	d.hotkeys = hotkeys.NewHandler(conn.XUtil, d.receiver, logger)
	d.sync = NewStateSynchronizer(d.container, store, d.hotkeys, logger)
	d.sync.layoutPath = cfg.Layout

	ipcServer, err := ipc.NewServer(cfg, d.receiver, d.reloadChan, logger)
	if err != nil {
		store.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to create IPC server: %w", err)
	}
	ipcServer.SetConfigLoader(load)
	d.ipc = ipcServer

	d.reconciler = NewReconciler(ReconcilerConfig{
		Interval:   reconcileInterval,
		PollScreen: !conn.RandR,
		Logger:     logger,
	}, d.container, store)

	return d, nil
}

// openStore builds the geometry store for the configured backend.
func openStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*geometry.Store, error) {
	var backend geometry.Backend
	switch cfg.Store.Backend {
	case "redis":
		r := cfg.Store.Redis
		rb, err := geometry.NewRedisBackend(ctx, geometry.RedisOptions{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   r.Prefix,
		})
		if err != nil {
			return nil, err
		}
		backend = rb
		logger.Info("Using redis geometry store", "addr", r.Addr)
	default:
		path, err := cfg.StatePath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve state path: %w", err)
		}
		backend = geometry.NewFileBackend(path)
		logger.Info("Using file geometry store", "path", path)
	}
	return geometry.NewStore(backend, geometryDefaults(cfg), logger.WithPrefix("geometry")), nil
}

// Run shows the overlay and serves events until ctx is cancelled or a
// termination signal arrives.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.ipc.GetConfig()

	if err := d.ipc.Start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	d.writePID()

	if err := d.hotkeys.Register(cfg.Hotkeys); err != nil {
		d.logger.Warn("Some hotkeys were not registered", "err", err)
	}

	if d.conn.RandR {
		if err := d.conn.WatchScreen(d.screenChanged); err != nil {
			d.logger.Warn("Screen change notifications unavailable, polling instead", "err", err)
			d.reconciler.pollScreen = true
		}
	}

	if err := d.container.Show(); err != nil {
		if errors.Is(err, floating.ErrPermissionDenied) {
			d.logger.Warn("Overlay not shown; retry with 'floatkb run show'", "err", err)
		} else {
			d.logger.Error("Failed to show overlay", "err", err)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go d.reconciler.Run(loopCtx)
	go d.watchSignals(loopCtx)

	d.logger.Info("floatkb daemon started", "pid", os.Getpid())
	d.conn.EventLoop()

	d.shutdown()
	return nil
}

func (d *Daemon) screenChanged() {
	if err := d.container.ScreenChanged(); err != nil {
		d.logger.Warn("Failed to apply screen change", "err", err)
	}
}

// watchSignals handles reloads and termination. Termination stops the event
// loop, which lets Run return.
func (d *Daemon) watchSignals(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			d.conn.Quit()
			return

		case sig := <-sigCh:
			if sig != syscall.SIGHUP {
				d.logger.Info("Shutting down floatkb daemon...", "signal", sig)
				d.conn.Quit()
				return
			}
			d.logger.Info("Received SIGHUP, reloading config...")
			newCfg, err := d.load()
			if err != nil {
				d.logger.Error("Config reload failed", "err", err)
				continue
			}
			d.ipc.UpdateConfig(newCfg)
			d.sync.Apply(newCfg)
			d.logger.Info("Config reloaded successfully")

		case <-d.reloadChan:
			// Config was reloaded via IPC, update components
			d.sync.Apply(d.ipc.GetConfig())
			d.logger.Info("Config reloaded via IPC")
		}
	}
}

func (d *Daemon) shutdown() {
	d.container.Hide()
	d.hotkeys.Unregister()
	d.ipc.Stop()
	d.wm.Cleanup()

	if err := d.store.Close(); err != nil {
		d.logger.Warn("Failed to flush geometry store", "err", err)
	}
	if d.pidPath != "" {
		os.Remove(d.pidPath)
	}
	d.conn.Close()
	d.logger.Info("floatkb daemon stopped")
}

func (d *Daemon) writePID() {
	path, err := runtimepath.PIDPath()
	if err != nil {
		d.logger.Debug("No pid file", "err", err)
		return
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0600); err != nil {
		d.logger.Warn("Failed to write pid file", "path", path, "err", err)
		return
	}
	d.pidPath = path
}
