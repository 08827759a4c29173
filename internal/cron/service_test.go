package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/marcvidal/eventstock-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
	held     bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.acquired = true
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

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "sweep-test"})
	registry := NewRegistry(&testJob{name: "success"}, &testJob{name: "fail", err: errors.New("boom")})
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	for _, job := range registry.Jobs() {
		if job.(*testJob).runs != 1 {
			t.Fatalf("job %s ran %d times, want 1", job.Name(), job.(*testJob).runs)
		}
	}
}

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "sweep-test"})
	job := &testJob{name: "solo"}
	lock := &fakeLock{held: true}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran %d times while lock was held, want 0", job.runs)
	}
	if lock.acquired {
		t.Fatal("lock should not have been acquired")
	}
}

func TestRegistrySkipsNilJobs(t *testing.T) {
	registry := NewRegistry(nil, &testJob{name: "real"})
	registry.Register(nil)
	if got := len(registry.Jobs()); got != 1 {
		t.Fatalf("jobs = %d, want 1", got)
	}
}
