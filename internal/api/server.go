package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/kodibridge/internal/action"
	"github.com/nerrad567/kodibridge/internal/infrastructure/config"
	"github.com/nerrad567/kodibridge/internal/infrastructure/logging"
	"github.com/nerrad567/kodibridge/internal/kodi"
	"github.com/nerrad567/kodibridge/internal/landing"
	"golang.org/x/time/rate"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Listener  config.ListenerConfig
	Token     string
	Security  config.SecurityConfig
	Landing   config.LandingConfig
	Targets   *kodi.Targets
	YouTube   action.VideoSearcher
	Recorders []ActionRecorder
	Logger    *logging.Logger
	Version   string

	// CallTimeout bounds detached actions such as shutdown.
	CallTimeout time.Duration
}

// Server is the HTTP listener of the bridge.
//
// It owns the router, the Validator and the Dispatcher. The server is
// created with New() and started with Start().
type Server struct {
	cfg        config.ListenerConfig
	logger     *logging.Logger
	targets    *kodi.Targets
	validator  *Validator
	dispatcher *Dispatcher
	landing    http.Handler
	limiter    *rate.Limiter
	version    string

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Targets == nil {
		return nil, fmt.Errorf("kodi targets are required")
	}

	validator, err := NewValidator(deps.Token, deps.Targets, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating validator: %w", err)
	}

	s := &Server{
		cfg:       deps.Listener,
		logger:    deps.Logger.With("component", "api"),
		targets:   deps.Targets,
		validator: validator,
		dispatcher: NewDispatcher(DispatcherDeps{
			YouTube:         deps.YouTube,
			Recorders:       deps.Recorders,
			Logger:          deps.Logger,
			DetachedTimeout: deps.CallTimeout,
		}),
		landing: landing.Handler(deps.Landing.Dir),
		version: deps.Version,
	}

	if rl := deps.Security.RateLimit; rl.Enabled && rl.RequestsPerMinute > 0 {
		s.limiter = newLimiter(rl.RequestsPerMinute)
	}

	return s, nil
}

// Handler returns the fully wired router. Start uses it; tests can serve
// it directly.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port)),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Bind synchronously so a port in use is reported to the caller.
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", srv.Addr, err)
	}
	s.server = srv
	s.listener = ln

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", ln.Addr().String(),
				"cert", s.cfg.TLS.CertFile,
			)
			err = srv.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
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
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections. Detached actions are then
// given the chance to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := srv.Shutdown(ctx)
	s.dispatcher.Wait()
	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
