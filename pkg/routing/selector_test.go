package routing

import (
	"context"
	"testing"
	"time"

	"github.com/multiverse-hub/inference-gateway/pkg/apierrors"
	"github.com/multiverse-hub/inference-gateway/pkg/registry"
)

func seedHealthy(t *testing.T, store *registry.MemoryStore, model string, ids ...string) {
	t.Helper()
	base := time.Now().UTC()
	for i, id := range ids {
		r := &registry.ServerRecord{
			RegistrationID: id,
			ModelName:      model,
			EndpointURL:    "https://" + id + ".example.com",
			HealthStatus:   registry.StatusHealthy,
			IsActive:       true,
			RegisteredAt:   base.Add(time.Duration(i) * time.Second),
			UpdatedAt:      base,
		}
		if err := store.Insert(context.Background(), r); err != nil {
			t.Fatalf("seed insert %s: %v", id, err)
		}
	}
}

func TestSelector_RoundRobinFairness(t *testing.T) {
	store := registry.NewMemoryStore()
	seedHealthy(t, store, "llama-3", "srv_a", "srv_b", "srv_c")
	sel := NewSelector(store)

	counts := map[string]int{}
	const k = 5
	for i := 0; i < k*3; i++ {
		record, err := sel.Select(context.Background(), "llama-3")
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		counts[record.RegistrationID]++
	}

	for _, id := range []string{"srv_a", "srv_b", "srv_c"} {
		if counts[id] != k {
			t.Fatalf("expected %s selected exactly %d times, got %d (counts=%v)", id, k, counts[id], counts)
		}
	}
}

func TestSelector_SelectExcluding(t *testing.T) {
	store := registry.NewMemoryStore()
	seedHealthy(t, store, "llama-3", "srv_a", "srv_b")
	sel := NewSelector(store)

	record, err := sel.SelectExcluding(context.Background(), "llama-3", map[string]bool{"srv_a": true})
	if err != nil {
		t.Fatalf("select_excluding: %v", err)
	}
	if record.RegistrationID != "srv_b" {
		t.Fatalf("expected srv_b, got %s", record.RegistrationID)
	}

	_, err = sel.SelectExcluding(context.Background(), "llama-3", map[string]bool{"srv_a": true, "srv_b": true})
	apiErr, ok := apierrors.As(err)
	if !ok || apiErr.Kind != apierrors.KindNoHealthyServer {
		t.Fatalf("expected NoHealthyServer when all excluded, got %v", err)
	}
}

func TestSelector_ModelNotFoundVsNoHealthyServer(t *testing.T) {
	store := registry.NewMemoryStore()
	sel := NewSelector(store)

	_, err := sel.Select(context.Background(), "ghost-model")
	apiErr, ok := apierrors.As(err)
	if !ok || apiErr.Kind != apierrors.KindModelNotFound {
		t.Fatalf("expected ModelNotFound for unknown model, got %v", err)
	}

	now := time.Now().UTC()
	unhealthy := &registry.ServerRecord{
		RegistrationID: "srv_down",
		ModelName:      "flaky-model",
		EndpointURL:    "https://flaky.example.com",
		HealthStatus:   registry.StatusUnhealthy,
		IsActive:       true,
		RegisteredAt:   now,
		UpdatedAt:      now,
	}
	if err := store.Insert(context.Background(), unhealthy); err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err = sel.Select(context.Background(), "flaky-model")
	apiErr, ok = apierrors.As(err)
	if !ok || apiErr.Kind != apierrors.KindNoHealthyServer {
		t.Fatalf("expected NoHealthyServer for registered-but-unhealthy model, got %v", err)
	}
}
