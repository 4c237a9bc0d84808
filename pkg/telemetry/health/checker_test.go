package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCheckerCheckLiveness(t *testing.T) {
	c := New(0)
	status := c.CheckLiveness(context.Background())
	if status.Status != "ok" {
		t.Errorf("status = %q, want ok", status.Status)
	}
}

func TestCheckerCheckReadinessNoChecks(t *testing.T) {
	c := New(0)
	status := c.CheckReadiness(context.Background())
	if status.Status != "ready" {
		t.Errorf("status = %q, want ready", status.Status)
	}
}

func TestCheckerCheckReadinessAllHealthy(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("database", func(ctx context.Context) error { return nil })
	c.RegisterCheck("registry", func(ctx context.Context) error { return nil })

	status := c.CheckReadiness(context.Background())
	if status.Status != "ready" {
		t.Errorf("status = %q, want ready", status.Status)
	}
	if len(status.Checks) != 2 {
		t.Errorf("got %d checks, want 2", len(status.Checks))
	}
}

func TestCheckerCheckReadinessDegraded(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("database", func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	status := c.CheckReadiness(context.Background())
	if status.Status != "degraded" {
		t.Errorf("status = %q, want degraded", status.Status)
	}
	if status.Checks["database"].Status != "unhealthy" {
		t.Errorf("database check status = %q, want unhealthy", status.Checks["database"].Status)
	}
}

func TestCheckerCheckReadinessTimeout(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := c.CheckReadiness(context.Background())
	if status.Status != "degraded" {
		t.Errorf("status = %q, want degraded", status.Status)
	}
}

func TestCheckerUnregisterCheck(t *testing.T) {
	c := New(0)
	c.RegisterCheck("database", func(ctx context.Context) error { return nil })
	c.UnregisterCheck("database")

	if c.CheckCount() != 0 {
		t.Errorf("CheckCount() = %d, want 0", c.CheckCount())
	}
}

func TestCheckerListChecks(t *testing.T) {
	c := New(0)
	c.RegisterCheck("database", func(ctx context.Context) error { return nil })
	c.RegisterCheck("registry", func(ctx context.Context) error { return nil })

	names := c.ListChecks()
	if len(names) != 2 {
		t.Errorf("got %d names, want 2", len(names))
	}
}
