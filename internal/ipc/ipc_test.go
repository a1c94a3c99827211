package ipc

import (
	"bufio"
	"errors"
	"io"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/1broseidon/floatkb/internal/config"
	"github.com/1broseidon/floatkb/internal/floating"
	"github.com/charmbracelet/log"
)

type fakeExec struct {
	mu    sync.Mutex
	calls []string
	mode  string
}

func (f *fakeExec) Execute(name, arg string) (floating.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == "explode" {
		return floating.Status{}, errors.New("boom")
	}
	f.calls = append(f.calls, name+":"+arg)
	if name == "enable_passthrough" {
		f.mode = "passthrough"
	}
	return floating.Status{Shown: true, Mode: f.mode}, nil
}

func (f *fakeExec) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeExec) Status() floating.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return floating.Status{Shown: true, Mode: f.mode, Variant: "portrait"}
}

func startServer(t *testing.T) (*Server, *Client, *fakeExec, chan struct{}) {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "kb.sock")
	exec := &fakeExec{mode: "normal"}
	reload := make(chan struct{}, 1)
	logger := log.NewWithOptions(io.Discard, log.Options{})

	s := NewServerAt(sock, config.DefaultConfig(), exec, reload, logger)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(s.Stop)
	return s, NewClientAt(sock), exec, reload
}

func TestRunCommand(t *testing.T) {
	_, c, exec, _ := startServer(t)

	st, err := c.Run("enable_passthrough", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Mode != "passthrough" || !st.Shown {
		t.Fatalf("status = %+v", st)
	}
	if _, err := c.Run("set_fold", "unfolded"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"enable_passthrough:", "set_fold:unfolded"}
	if got := exec.recorded(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", got, want)
	}
}

func TestRunCommandError(t *testing.T) {
	_, c, _, _ := startServer(t)

	_, err := c.Run("explode", "")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err = %v, want daemon error with boom", err)
	}
	if _, err := c.Run("", ""); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestGetStatus(t *testing.T) {
	_, c, _, _ := startServer(t)

	st, err := c.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !st.DaemonRunning || st.PID == 0 || st.Overlay.Variant != "portrait" {
		t.Fatalf("status = %+v", st)
	}
	if err := c.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestListCommands(t *testing.T) {
	_, c, _, _ := startServer(t)

	names, err := c.ListCommands()
	if err != nil {
		t.Fatalf("ListCommands: %v", err)
	}
	found := false
	for _, n := range names {
		if n == "toggle_passthrough" {
			found = true
		}
	}
	if !found {
		t.Fatalf("toggle_passthrough missing from %v", names)
	}
}

func TestReload(t *testing.T) {
	s, c, _, reload := startServer(t)

	next := config.DefaultConfig()
	next.LogLevel = "debug"
	s.SetConfigLoader(func() (*config.Config, error) { return next, nil })

	if err := c.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	select {
	case <-reload:
	default:
		t.Fatalf("reload not signalled")
	}
	if got := s.GetConfig().LogLevel; got != "debug" {
		t.Fatalf("log level = %q, want debug", got)
	}

	s.SetConfigLoader(func() (*config.Config, error) { return nil, errors.New("bad yaml") })
	if err := c.Reload(); err == nil {
		t.Fatalf("expected reload error")
	}
	if got := s.GetConfig().LogLevel; got != "debug" {
		t.Fatalf("failed reload replaced config")
	}
}

func TestInvalidRequest(t *testing.T) {
	s, _, _, _ := startServer(t)

	conn, err := net.Dial("unix", s.socketPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("not json\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !strings.Contains(line, `"status":"ERROR"`) {
		t.Fatalf("response = %s", line)
	}
}

func TestUnknownCommand(t *testing.T) {
	_, c, _, _ := startServer(t)
	_, err := c.sendRequest(&Request{Command: "LAUNCH"})
	if err == nil || !strings.Contains(err.Error(), "Unknown command") {
		t.Fatalf("err = %v", err)
	}
}

func TestClientWithoutDaemon(t *testing.T) {
	c := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))
	if err := c.Ping(); err == nil || !strings.Contains(err.Error(), "is the daemon running") {
		t.Fatalf("err = %v", err)
	}
}
