package hotkeys

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/1broseidon/floatkb/internal/command"
	"github.com/1broseidon/floatkb/internal/floating"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/charmbracelet/log"
)

// Runner runs an overlay command in "name[:arg]" form.
type Runner interface {
	Run(s string) (floating.Status, error)
}

// Handler manages global keyboard shortcuts
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	runner Runner
	logger *log.Logger

	mu         sync.Mutex
	registered []string
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler on the root window of xu.
func NewHandler(xu *xgbutil.XUtil, runner Runner, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:     xu,
		root:   xu.RootWin(),
		runner: runner,
		logger: logger.WithPrefix("hotkeys"),
	}
}

// Register binds every key sequence in bindings to its command. Bindings to
// unknown commands are skipped with a warning. Failures to grab a sequence
// are collected and returned together; the other bindings stay active.
func (h *Handler) Register(bindings map[string]string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var failed []string
	for _, seq := range sortedKeys(bindings) {
		cmd := bindings[seq]
		name, _ := command.Parse(cmd)
		if !command.Known(name) {
			h.logger.Warn("Skipping hotkey bound to unknown command", "keys", seq, "command", cmd)
			continue
		}
		if err := h.registerFunc(seq, h.runFunc(seq, cmd)); err != nil {
			h.logger.Warn("Failed to register hotkey", "keys", seq, "err", err)
			failed = append(failed, seq)
			continue
		}
		h.registered = append(h.registered, seq)
		h.logger.Debug("Hotkey registered", "keys", seq, "command", cmd)
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to register hotkeys: %s", strings.Join(failed, ", "))
	}
	return nil
}

// Unregister drops every binding made by Register so a reload can bind a new
// set.
func (h *Handler) Unregister() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.registered) == 0 {
		return
	}
	keybind.Detach(h.xu, h.root)
	h.registered = nil
}

// Registered returns the sequences currently bound.
func (h *Handler) Registered() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.registered...)
}

func (h *Handler) runFunc(seq, cmd string) func() {
	return func() {
		h.logger.Debug("Hotkey triggered", "keys", seq, "command", cmd)
		if _, err := h.runner.Run(cmd); err != nil {
			h.logger.Warn("Hotkey command failed", "keys", seq, "command", cmd, "err", err)
		}
	}
}

func (h *Handler) registerFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	xevent.IgnoreMods = ignoreMasks(caps, numLock, scrollLock)
}

// ignoreMasks returns every combination of the lock modifiers, including
// none, with duplicates and zero masks folded.
func ignoreMasks(caps, numLock, scrollLock uint16) []uint16 {
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	unique := map[uint16]struct{}{0: {}}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		unique[mask] = struct{}{}
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	sort.Slice(ignore, func(i, j int) bool { return ignore[i] < ignore[j] })
	return ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
