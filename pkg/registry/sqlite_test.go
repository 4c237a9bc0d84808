package registry

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "gateway.db")
	store, err := NewSQLiteStore(&SQLiteConfig{Path: dbPath, MaxOpenConns: 1, BusyTimeout: 0})
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_InsertGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	record := newTestRecord("srv_1", "llama-3", "https://backend-a.example.com")
	maxTokens := 4096
	record.Capabilities = Capabilities{MaxTokens: &maxTokens, Streaming: true}
	record.Owner = Owner{StudentID: "s123", Email: "s123@example.com"}

	if err := store.Insert(ctx, record); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.Get(ctx, "srv_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ModelName != "llama-3" || got.EndpointURL != "https://backend-a.example.com" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Capabilities.MaxTokens == nil || *got.Capabilities.MaxTokens != 4096 {
		t.Fatalf("expected max_tokens 4096, got %+v", got.Capabilities)
	}
	if !got.Capabilities.Streaming {
		t.Fatal("expected streaming capability true")
	}
	if got.Owner.StudentID != "s123" {
		t.Fatalf("unexpected owner: %+v", got.Owner)
	}
}

func TestSQLiteStore_SoftDeleteAndStats(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	healthy := StatusHealthy
	for _, id := range []string{"srv_1", "srv_2"} {
		r := newTestRecord(id, "llama-3", "https://backend-"+id+".example.com")
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
		if _, err := store.Patch(ctx, id, Patch{HealthStatus: &healthy}); err != nil {
			t.Fatalf("patch %s: %v", id, err)
		}
	}

	if err := store.SoftDelete(ctx, "srv_1"); err != nil {
		t.Fatalf("soft_delete: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalServers != 1 || stats.Healthy != 1 {
		t.Fatalf("unexpected stats after soft delete: %+v", stats)
	}

	healthyServers, err := store.FindHealthy(ctx, "llama-3")
	if err != nil {
		t.Fatalf("find_healthy: %v", err)
	}
	if len(healthyServers) != 1 || healthyServers[0].RegistrationID != "srv_2" {
		t.Fatalf("expected only srv_2 to remain healthy, got %+v", healthyServers)
	}
}
