package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/floatkb/internal/command"
	"github.com/1broseidon/floatkb/internal/config"
	"github.com/1broseidon/floatkb/internal/floating"
	"github.com/1broseidon/floatkb/internal/runtimepath"
	"github.com/charmbracelet/log"
)

// Executor runs overlay commands. *command.Receiver implements it.
type Executor interface {
	Execute(name, arg string) (floating.Status, error)
	Status() floating.Status
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	cfg          *config.Config
	cfgMu        sync.RWMutex
	exec         Executor
	loadConfig   func() (*config.Config, error)
	logger       *log.Logger
	startTime    time.Time
	reloadChan   chan struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
	wg           sync.WaitGroup
}

// NewServer creates a new IPC server on the default socket path.
func NewServer(cfg *config.Config, exec Executor, reloadChan chan struct{}, logger *log.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, cfg, exec, reloadChan, logger), nil
}

// NewServerAt creates a server listening on socketPath.
func NewServerAt(socketPath string, cfg *config.Config, exec Executor, reloadChan chan struct{}, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		cfg:        cfg,
		exec:       exec,
		loadConfig: config.Load,
		logger:     logger.WithPrefix("ipc"),
		startTime:  time.Now(),
		reloadChan: reloadChan,
	}
}

// SetConfigLoader replaces the loader used by RELOAD.
func (s *Server) SetConfigLoader(load func() (*config.Config, error)) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.loadConfig = load
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("Listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("Accept error", "err", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	reader := bufio.NewReader(conn)

	// One JSON request per line
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("Read error", "err", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)
	resp.ID = req.ID

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("Failed to marshal response", "id", req.ID, "err", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("Failed to send response", "id", req.ID, "err", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("Request", "id", req.ID, "command", req.Command)
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandRun:
		return s.handleRun(req.Payload)
	case CommandListCommands:
		return s.handleListCommands()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// handleReload reloads the configuration
func (s *Server) handleReload() *Response {
	s.logger.Info("Received RELOAD")

	s.cfgMu.RLock()
	load := s.loadConfig
	s.cfgMu.RUnlock()

	newCfg, err := load()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}

	s.cfgMu.Lock()
	s.cfg = newCfg
	s.cfgMu.Unlock()

	// Notify the daemon (non-blocking)
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	s.logger.Info("Config reloaded")

	resp, _ := NewOKResponse(nil)
	return resp
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus() *Response {
	status := StatusData{
		Overlay:       s.exec.Status(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
		PID:           os.Getpid(),
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleRun(payload json.RawMessage) *Response {
	var req RunPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid command payload: %v", err))
	}
	if req.Name == "" {
		return NewErrorResponse("name is required")
	}

	st, err := s.exec.Execute(req.Name, req.Arg)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	resp, err := NewOKResponse(st)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) handleListCommands() *Response {
	resp, _ := NewOKResponse(CommandsData{Commands: command.Names()})
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}

// GetConfig returns the current config (thread-safe)
func (s *Server) GetConfig() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// UpdateConfig updates the config (thread-safe)
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg = cfg
}
