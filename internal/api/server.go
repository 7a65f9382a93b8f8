package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/bonsai/internal/bonsai"
	"github.com/nerrad567/bonsai/internal/infrastructure/config"
	"github.com/nerrad567/bonsai/internal/infrastructure/event"
	"github.com/nerrad567/bonsai/internal/infrastructure/logging"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight
// requests.
const gracefulShutdownTimeout = 10 * time.Second

// Errors returned by Server.
var (
	ErrMissingDependency = errors.New("api: missing dependency")
	ErrAlreadyStarted    = errors.New("api: server already started")
	ErrNotStarted        = errors.New("api: server not started")
)

// Journal is the read side of the event journal, served by
// GET /api/v1/events. *database.Driver satisfies it.
type Journal interface {
	Recent(ctx context.Context, limit int) ([]event.Record, error)
	RecentStores(ctx context.Context, limit int) ([]event.Record, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Bonsai  *bonsai.Logger
	Journal Journal // optional; events endpoint answers 503 without it
	Hub     *Hub    // optional; created (and registered with Bonsai) when nil
	Version string
}

// Server is the admin HTTP API.
//
// It exposes the façade's filter, driver list and ingest endpoints, plus a
// WebSocket live tail. The server is created with New() and started with
// Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	bonsai  *bonsai.Logger
	journal Journal
	version string

	hub      *Hub
	ownsHub  bool
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
	mu       sync.Mutex
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, façade)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: ErrMissingDependency when Logger or Bonsai is nil
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("%w: Logger", ErrMissingDependency)
	}
	if deps.Bonsai == nil {
		return nil, fmt.Errorf("%w: Bonsai", ErrMissingDependency)
	}

	s := &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		logger:  deps.Logger,
		bonsai:  deps.Bonsai,
		journal: deps.Journal,
		version: deps.Version,
		hub:     deps.Hub,
	}
	if s.hub == nil {
		s.hub = NewHub(deps.WS, deps.Logger)
		s.ownsHub = true
	}
	return s, nil
}

// Hub returns the live-tail hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the fully wired router. Start serves the same handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It registers the hub with the façade (when the server created it), binds
// the listener synchronously and serves in a background goroutine. The
// server can be stopped with Close().
//
// Parameters:
//   - ctx: Parent context for the hub's lifetime
//
// Returns:
//   - error: ErrAlreadyStarted, or the listener cannot be bound
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return ErrAlreadyStarted
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return fmt.Errorf("binding API listener: %w", err)
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.ownsHub {
		s.bonsai.Register(s.hub)
		go s.hub.Run(srvCtx)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", listener.Addr().String())

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It unregisters a hub the server owns, then waits up to 10 seconds for
// in-flight requests to complete before forcefully closing connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	if s.ownsHub {
		s.bonsai.Unregister(s.hub)
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)
	s.server = nil
	s.listener = nil
	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: ErrNotStarted before Start or after Close, or ctx's error
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return ErrNotStarted
	}
	return nil
}
