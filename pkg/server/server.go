// Package server wires the gateway's subsystems (registry, selector, health
// monitor, proxy engine) into one HTTP listener and owns its startup and
// graceful shutdown sequence.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/multiverse-hub/inference-gateway/pkg/config"
	"github.com/multiverse-hub/inference-gateway/pkg/health"
	"github.com/multiverse-hub/inference-gateway/pkg/proxy"
	"github.com/multiverse-hub/inference-gateway/pkg/proxy/middleware"
	"github.com/multiverse-hub/inference-gateway/pkg/registry"
	"github.com/multiverse-hub/inference-gateway/pkg/routing"
	"github.com/multiverse-hub/inference-gateway/pkg/security/auth"
	"github.com/multiverse-hub/inference-gateway/pkg/security/validator"
	"github.com/multiverse-hub/inference-gateway/pkg/server/handlers"
	"github.com/multiverse-hub/inference-gateway/pkg/telemetry"
	telemetryhealth "github.com/multiverse-hub/inference-gateway/pkg/telemetry/health"
)

// Server is the gateway's main HTTP listener. It owns the lifetime of the
// registry store and the health monitor: New opens the store, Start starts
// the monitor, and Start stops the monitor and then closes the store once
// its context is cancelled.
type Server struct {
	cfg *config.Config

	httpServer *http.Server
	store      registry.Store
	monitor    *health.Monitor

	mu        sync.Mutex
	isRunning bool
}

// New constructs a Server from validated configuration. The registry store
// is opened but the health monitor is not started until Start is called.
func New(cfg *config.Config) (*Server, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("server: open registry store: %w", err)
	}

	selector := routing.NewSelector(store)
	prober := health.NewProber()
	monitor := health.NewMonitor(store, prober, health.MonitorConfig{
		Interval:               cfg.HealthCheckInterval,
		ProbeTimeout:           cfg.HealthCheckTimeout,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		AutoDeregister:         cfg.AutoDeregisterAfterFailures,
	})

	engine := proxy.NewEngine(proxy.Config{
		TotalTimeout:     cfg.RequestTimeout,
		IdleChunkTimeout: cfg.StreamIdleTimeout,
	})

	urlValidator := validator.New()
	adminValidator := auth.NewValidator(cfg.AdminAPIKey)
	adminAuth := auth.NewMiddleware(adminValidator)

	metrics := telemetry.NewMetrics()

	checker := telemetryhealth.New(2 * time.Second)
	checker.RegisterCheck("database", store.Ping)

	deps := handlers.Dependencies{
		Store:                  store,
		Selector:               selector,
		Engine:                 engine,
		Validator:              urlValidator,
		Metrics:                metrics,
		Checker:                checker,
		Prober:                 prober,
		ProbeTimeout:           cfg.HealthCheckTimeout,
		MaxAttempts:            cfg.MaxRetryAttempts,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		AutoDeregister:         cfg.AutoDeregisterAfterFailures,
		ServiceName:            "inference-gateway",
		Version:                Version,
	}

	mux := http.NewServeMux()
	handlers.Register(mux, deps, adminAuth)
	mux.Handle("/metrics", metrics.Handler())

	var h http.Handler = mux
	h = middleware.BodyLimitMiddleware(cfg.MaxRequestBodySize)(h)
	h = middleware.LoggingMiddleware(h)
	h = middleware.RecoveryMiddleware(h)
	h = middleware.RequestIDMiddleware(h)

	s := &Server{
		cfg:     cfg,
		store:   store,
		monitor: monitor,
		httpServer: &http.Server{
			Addr:    cfg.Addr(),
			Handler: h,
		},
	}
	return s, nil
}

// Version is overridden by build flags via cmd/gateway.
var Version = "dev"

func openStore(cfg *config.Config) (registry.Store, error) {
	if cfg.DatabaseURL == ":memory:" {
		return registry.NewMemoryStore(), nil
	}
	return registry.NewSQLiteStore(&registry.SQLiteConfig{
		Path:         cfg.DatabaseURL,
		MaxOpenConns: 10,
		BusyTimeout:  5 * time.Second,
	})
}

// Start binds the listener, starts the health monitor, and blocks until ctx
// is cancelled. On return the monitor has drained and the registry store is
// closed.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server: already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	monitorCtx, cancelMonitor := context.WithCancel(context.Background())
	s.monitor.Start(monitorCtx)

	errChan := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server: listen: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errChan:
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGracePeriod)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	cancelMonitor()
	s.monitor.Wait()

	if err := s.store.Close(); err != nil {
		slog.Error("registry store close error", "error", err)
	}

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()

	return runErr
}

// Handler returns the configured HTTP handler, for tests that want to drive
// the gateway through httptest without binding a real socket.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
