// Package api provides the HTTP REST API and WebSocket server for cloudpoll.
//
// It exposes integration status, entity snapshots, and manual refresh
// triggers, plus a WebSocket feed that pushes one event per successful
// refresh.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kestrelhaus/cloudpoll/internal/entity"
	"github.com/kestrelhaus/cloudpoll/internal/infrastructure/config"
	"github.com/kestrelhaus/cloudpoll/internal/infrastructure/logging"
	"github.com/kestrelhaus/cloudpoll/internal/integration"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Manager *integration.Manager
	Version string
}

// Server is the HTTP API server for cloudpoll.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	manager *integration.Manager
	version string
	server  *http.Server
	hub     *Hub
	subs    []feedSub
	cancel  context.CancelFunc
}

// feedSub records one coordinator subscription so Close can detach it.
type feedSub struct {
	inst *integration.Instance
	id   int
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Manager == nil {
		return nil, fmt.Errorf("integration manager is required")
	}

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		manager: deps.Manager,
		version: deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, subscribes to every coordinator so refresh
// events reach connected clients, and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.logger)
	go s.hub.Run(srvCtx)

	s.subscribeRefreshEvents()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", s.server.Addr)
	return nil
}

// subscribeRefreshEvents attaches the hub to every coordinator so each
// successful refresh is pushed to WebSocket clients.
func (s *Server) subscribeRefreshEvents() {
	for _, inst := range s.manager.Instances() {
		inst := inst
		id := inst.Coordinator.Subscribe(func(snap entity.Snapshot) {
			s.hub.Broadcast(refreshEvent{
				Instance:  inst.ID,
				Name:      inst.Name,
				Type:      string(inst.Type),
				Records:   len(snap),
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		})
		if id >= 0 {
			s.subs = append(s.subs, feedSub{inst: inst, id: id})
		}
	}
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	for _, sub := range s.subs {
		sub.inst.Coordinator.Unsubscribe(sub.id)
	}
	s.subs = nil

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
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

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
