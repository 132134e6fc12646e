package clockskew

import (
	"context"
	"testing"
	"time"
)

func TestCheckOnceHealthy(t *testing.T) {
	c := New()
	c.CheckFunc = func() Status {
		return Status{Offset: 10 * time.Millisecond, Healthy: true, CheckedAt: time.Now()}
	}
	c.CheckOnce(context.Background())

	s := c.Status()
	if !s.Healthy {
		t.Error("expected Healthy=true for small offset")
	}
}

func TestCheckOnceUnhealthy(t *testing.T) {
	c := New()
	c.CheckFunc = func() Status {
		return Status{Offset: 2 * time.Second, Healthy: false, CheckedAt: time.Now()}
	}
	c.CheckOnce(context.Background())

	s := c.Status()
	if s.Healthy {
		t.Error("expected Healthy=false for large offset")
	}
	if s.Offset != 2*time.Second {
		t.Errorf("Offset = %v, want 2s", s.Offset)
	}
}

func TestCheckOnceError(t *testing.T) {
	c := New()
	c.CheckFunc = func() Status {
		return Status{Error: "network unreachable", CheckedAt: time.Now()}
	}
	c.CheckOnce(context.Background())

	s := c.Status()
	if s.Error == "" {
		t.Error("expected Error to be recorded")
	}
}

func TestRunExitsOnCancel(t *testing.T) {
	c := New()
	checked := false
	c.CheckFunc = func() Status {
		checked = true
		return Status{Healthy: true, CheckedAt: time.Now()}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Run(ctx)

	if !checked {
		t.Error("expected Run to perform an immediate check before observing cancellation")
	}
}
