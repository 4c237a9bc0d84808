package health

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/multiverse-hub/inference-gateway/pkg/registry"
)

// MonitorConfig tunes the health monitor's cadence and hysteresis.
type MonitorConfig struct {
	// Interval between the end of one scan cycle and the start of the next.
	Interval time.Duration
	// ProbeTimeout bounds each individual backend probe.
	ProbeTimeout time.Duration
	// MaxConsecutiveFailures is the threshold F at which a backend is
	// auto-deregistered, if AutoDeregister is enabled.
	MaxConsecutiveFailures int
	// AutoDeregister controls whether crossing MaxConsecutiveFailures
	// soft-deletes the record.
	AutoDeregister bool
}

// Monitor runs the continuous health-scan task (C4). Exactly one instance
// may run at a time; Start is idempotent.
type Monitor struct {
	store  registry.Store
	prober *Prober
	cfg    MonitorConfig
	logger *slog.Logger

	running atomic.Bool
	stopped chan struct{}
}

// NewMonitor constructs a Monitor. Call Start to begin scanning.
func NewMonitor(store registry.Store, prober *Prober, cfg MonitorConfig) *Monitor {
	return &Monitor{
		store:  store,
		prober: prober,
		cfg:    cfg,
		logger: slog.Default().With("component", "health.monitor"),
	}
}

// Start begins the scan loop in a background goroutine. Calling Start a
// second time while already running is a no-op: starting a second monitor
// is a programming error and must be prevented.
func (m *Monitor) Start(ctx context.Context) {
	if !m.running.CompareAndSwap(false, true) {
		m.logger.Warn("monitor start requested while already running, ignoring")
		return
	}
	m.stopped = make(chan struct{})

	go m.run(ctx)
}

// Wait blocks until the monitor loop has returned after cancellation.
func (m *Monitor) Wait() {
	if m.stopped != nil {
		<-m.stopped
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.stopped)
	defer m.running.Store(false)

	for {
		m.runCycle(ctx)

		select {
		case <-ctx.Done():
			m.logger.Info("health monitor stopping")
			return
		case <-time.After(m.cfg.Interval):
		}
	}
}

// runCycle snapshots active records and probes each sequentially, so a
// single cycle never stampedes backends with concurrent requests. A
// cancelled context aborts the remainder of the cycle immediately.
func (m *Monitor) runCycle(ctx context.Context) {
	cycleID := uuid.NewString()
	logger := m.logger.With("cycle_id", cycleID)

	records, err := m.store.List(ctx, registry.Filter{IncludeInactive: false})
	if err != nil {
		logger.Error("failed to list active servers", "error", err)
		return
	}

	logger.Debug("health scan cycle starting", "server_count", len(records))

	for i, record := range records {
		select {
		case <-ctx.Done():
			logger.Info("health scan cycle aborted by shutdown", "remaining", len(records)-i)
			return
		default:
		}

		m.probeOne(ctx, record, logger)
	}
}

func (m *Monitor) probeOne(ctx context.Context, record *registry.ServerRecord, logger *slog.Logger) {
	result := m.prober.Probe(ctx, record.EndpointURL, m.cfg.ProbeTimeout)
	now := time.Now().UTC()

	if result.OK {
		healthy := registry.StatusHealthy
		zero := 0
		latency := result.LatencyMs
		_, err := m.store.Patch(ctx, record.RegistrationID, registry.Patch{
			HealthStatus:        &healthy,
			ConsecutiveFailures: &zero,
			LastCheckedAt:       &now,
			LastLatencyMs:       &latency,
		})
		if err != nil {
			logger.Error("failed to record probe success", "registration_id", record.RegistrationID, "error", err)
		}
		return
	}

	failures := record.ConsecutiveFailures + 1
	unhealthy := registry.StatusUnhealthy
	updated, err := m.store.Patch(ctx, record.RegistrationID, registry.Patch{
		HealthStatus:        &unhealthy,
		ConsecutiveFailures: &failures,
		LastCheckedAt:       &now,
	})
	if err != nil {
		logger.Error("failed to record probe failure", "registration_id", record.RegistrationID, "error", err)
		return
	}

	logger.Warn("backend probe failed",
		"registration_id", record.RegistrationID,
		"model_name", record.ModelName,
		"consecutive_failures", updated.ConsecutiveFailures,
		"reason", result.Error,
	)

	if m.cfg.AutoDeregister && updated.ConsecutiveFailures >= m.cfg.MaxConsecutiveFailures {
		if err := m.store.SoftDelete(ctx, record.RegistrationID); err != nil {
			logger.Error("failed to auto-deregister backend", "registration_id", record.RegistrationID, "error", err)
			return
		}
		logger.Error("backend auto-deregistered after consecutive failures",
			"registration_id", record.RegistrationID,
			"model_name", record.ModelName,
			"consecutive_failures", updated.ConsecutiveFailures,
		)
	}
}
