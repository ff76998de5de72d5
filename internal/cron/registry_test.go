package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryDueHonoursCadence(t *testing.T) {
	registry := NewRegistry()
	hourly := &stubJob{name: "hourly"}
	daily := &stubJob{name: "daily"}
	registry.Register(hourly, time.Hour)
	registry.Register(daily, 24*time.Hour)
	registry.Register(nil, time.Hour)
	registry.Register(&stubJob{name: "never"}, 0)

	if registry.Len() != 2 {
		t.Fatalf("expected 2 jobs, got %d", registry.Len())
	}

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	due := registry.Due(start)
	if len(due) != 2 || due[0] != hourly || due[1] != daily {
		t.Fatalf("expected both jobs due initially, got %v", due)
	}
	registry.MarkRun("hourly", start)
	registry.MarkRun("daily", start)

	if due := registry.Due(start.Add(30 * time.Minute)); len(due) != 0 {
		t.Fatalf("expected nothing due, got %d", len(due))
	}
	due = registry.Due(start.Add(time.Hour))
	if len(due) != 1 || due[0] != hourly {
		t.Fatalf("expected only hourly due, got %v", due)
	}
}
