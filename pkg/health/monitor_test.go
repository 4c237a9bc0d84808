package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/multiverse-hub/inference-gateway/pkg/registry"
)

func TestMonitor_TransitionsAndAutoDeregisters(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	store := registry.NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	record := &registry.ServerRecord{
		RegistrationID: "srv_1",
		ModelName:      "llama-3",
		EndpointURL:    down.URL,
		HealthStatus:   registry.StatusUnknown,
		IsActive:       true,
		RegisteredAt:   now,
		UpdatedAt:      now,
	}
	if err := store.Insert(ctx, record); err != nil {
		t.Fatalf("insert: %v", err)
	}

	monitor := NewMonitor(store, NewProber(), MonitorConfig{
		Interval:               time.Hour,
		ProbeTimeout:           time.Second,
		MaxConsecutiveFailures: 3,
		AutoDeregister:         true,
	})

	for i := 0; i < 3; i++ {
		monitor.runCycle(ctx)
	}

	got, err := store.Get(ctx, "srv_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsActive {
		t.Fatal("expected backend to be auto-deregistered after 3 consecutive failures")
	}
	if got.HealthStatus != registry.StatusUnhealthy {
		t.Fatalf("expected Unhealthy, got %s", got.HealthStatus)
	}
}

func TestMonitor_RecoveryResetsFailureCount(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list"}`))
	}))
	defer up.Close()

	store := registry.NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	record := &registry.ServerRecord{
		RegistrationID:      "srv_1",
		ModelName:           "llama-3",
		EndpointURL:         up.URL,
		HealthStatus:        registry.StatusUnhealthy,
		ConsecutiveFailures: 2,
		IsActive:            true,
		RegisteredAt:        now,
		UpdatedAt:           now,
	}
	if err := store.Insert(ctx, record); err != nil {
		t.Fatalf("insert: %v", err)
	}

	monitor := NewMonitor(store, NewProber(), MonitorConfig{
		Interval:               time.Hour,
		ProbeTimeout:           time.Second,
		MaxConsecutiveFailures: 3,
		AutoDeregister:         true,
	})
	monitor.runCycle(ctx)

	got, err := store.Get(ctx, "srv_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.HealthStatus != registry.StatusHealthy || got.ConsecutiveFailures != 0 {
		t.Fatalf("expected healthy with zero failures, got %+v", got)
	}
}

func TestMonitor_StartIsIdempotent(t *testing.T) {
	store := registry.NewMemoryStore()
	monitor := NewMonitor(store, NewProber(), MonitorConfig{Interval: time.Hour, ProbeTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	monitor.Start(ctx)
	monitor.Start(ctx) // should be a no-op, not panic or start a second loop

	cancel()
	monitor.Wait()
}
