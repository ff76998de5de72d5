package cron

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/crispyspin/crispyspin-backend/pkg/logger"
)

type fakeLock struct {
	held     bool
	err      error
	acquires int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	if f.err != nil {
		return false, f.err
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.held = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, registry *Registry, lock Lock, now *time.Time) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: &bytes.Buffer{}}),
		Registry: registry,
		Lock:     lock,
		Clock:    func() time.Time { return *now },
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestRunCycleRunsAllDueJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "success"}
	failing := &testJob{name: "fail", err: errors.New("boom")}
	registry := NewRegistry()
	registry.Register(ok, time.Hour)
	registry.Register(failing, time.Hour)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	service := newTestService(t, registry, &fakeLock{}, &now)

	err := service.runCycle(context.Background())
	if err == nil || !strings.Contains(err.Error(), "fail: boom") {
		t.Fatalf("expected combined job error, got %v", err)
	}
	if ok.runs != 1 || failing.runs != 1 {
		t.Fatalf("expected both jobs to run once, got %d and %d", ok.runs, failing.runs)
	}

	now = now.Add(10 * time.Minute)
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if ok.runs != 1 || failing.runs != 1 {
		t.Fatalf("jobs must wait for their cadence, got %d and %d", ok.runs, failing.runs)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "job"}
	registry := NewRegistry()
	registry.Register(job, time.Hour)
	now := time.Now()
	service := newTestService(t, registry, &fakeLock{held: true}, &now)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job must not run without the lock")
	}
	if len(registry.Due(now)) != 1 {
		t.Fatalf("skipped job should stay due")
	}
}

func TestRunCycleDoesNotLockWhenNothingDue(t *testing.T) {
	lock := &fakeLock{}
	now := time.Now()
	service := newTestService(t, NewRegistry(), lock, &now)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if lock.acquires != 0 {
		t.Fatalf("expected no lock traffic, got %d acquires", lock.acquires)
	}
}

func TestRunCycleReportsLockError(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&testJob{name: "job"}, time.Hour)
	now := time.Now()
	service := newTestService(t, registry, &fakeLock{err: errors.New("redis down")}, &now)

	if err := service.runCycle(context.Background()); err == nil {
		t.Fatalf("expected lock error")
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: logger.New(logger.Options{Output: &bytes.Buffer{}})}); err == nil {
		t.Fatalf("expected error without lock")
	}
}
