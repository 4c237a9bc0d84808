package registry

import (
	"context"
	"testing"
	"time"

	"github.com/multiverse-hub/inference-gateway/pkg/apierrors"
)

func newTestRecord(id, model, url string) *ServerRecord {
	now := time.Now().UTC()
	return &ServerRecord{
		RegistrationID: id,
		ModelName:      model,
		EndpointURL:    url,
		HealthStatus:   StatusUnknown,
		IsActive:       true,
		RegisteredAt:   now,
		UpdatedAt:      now,
	}
}

func TestMemoryStore_InsertConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Insert(ctx, newTestRecord("srv_1", "llama-3", "https://backend-a.example.com")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := s.Insert(ctx, newTestRecord("srv_2", "llama-3", "https://backend-a.example.com/"))
	if err == nil {
		t.Fatal("expected conflict on duplicate (model_name, endpoint_url)")
	}
	apiErr, ok := apierrors.As(err)
	if !ok || apiErr.Kind != apierrors.KindConflict {
		t.Fatalf("expected Conflict kind, got %v", err)
	}

	err = s.Insert(ctx, newTestRecord("srv_1", "llama-3", "https://backend-b.example.com"))
	if err == nil {
		t.Fatal("expected conflict on duplicate registration_id")
	}
}

func TestMemoryStore_SoftDeleteFreesUniquenessSlot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Insert(ctx, newTestRecord("srv_1", "llama-3", "https://backend-a.example.com")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.SoftDelete(ctx, "srv_1"); err != nil {
		t.Fatalf("soft_delete: %v", err)
	}
	if err := s.SoftDelete(ctx, "srv_1"); err != nil {
		t.Fatalf("soft_delete should be idempotent: %v", err)
	}

	if err := s.Insert(ctx, newTestRecord("srv_2", "llama-3", "https://backend-a.example.com")); err != nil {
		t.Fatalf("expected re-registration to succeed after soft delete: %v", err)
	}

	record, err := s.Get(ctx, "srv_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.IsActive {
		t.Fatal("expected record to remain inactive")
	}
}

func TestMemoryStore_FindHealthyOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	base := time.Now().UTC()
	for i, id := range []string{"srv_c", "srv_a", "srv_b"} {
		r := newTestRecord(id, "llama-3", "https://backend-"+id+".example.com")
		r.RegisteredAt = base.Add(time.Duration(-i) * time.Minute)
		r.HealthStatus = StatusHealthy
		if err := s.Insert(ctx, r); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	results, err := s.FindHealthy(ctx, "llama-3")
	if err != nil {
		t.Fatalf("find_healthy: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 healthy servers, got %d", len(results))
	}
	want := []string{"srv_b", "srv_a", "srv_c"}
	for i, r := range results {
		if r.RegistrationID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], r.RegistrationID)
		}
	}
}

func TestMemoryStore_PatchNeverTouchesRegisteredAt(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	r := newTestRecord("srv_1", "llama-3", "https://backend-a.example.com")
	originalRegisteredAt := r.RegisteredAt
	if err := s.Insert(ctx, r); err != nil {
		t.Fatalf("insert: %v", err)
	}

	healthy := StatusHealthy
	updated, err := s.Patch(ctx, "srv_1", Patch{HealthStatus: &healthy})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !updated.RegisteredAt.Equal(originalRegisteredAt) {
		t.Fatal("expected registered_at to remain unchanged")
	}
	if updated.ConsecutiveFailures != 0 {
		t.Fatal("expected consecutive_failures reset to 0 when health_status becomes Healthy")
	}
}

func TestMemoryStore_PatchNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Patch(context.Background(), "srv_missing", Patch{})
	apiErr, ok := apierrors.As(err)
	if !ok || apiErr.Kind != apierrors.KindNotFound {
		t.Fatalf("expected NotFound kind, got %v", err)
	}
}
