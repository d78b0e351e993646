package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunnerTicksJobs(t *testing.T) {
	var fast, failing atomic.Int32
	r := NewRunner(nil,
		Job{Name: "fast", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
			fast.Add(1)
			return nil
		}},
		Job{Name: "failing", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
			failing.Add(1)
			return errors.New("boom")
		}},
		Job{Name: "disabled", Run: func(context.Context) error {
			t.Error("disabled job ran")
			return nil
		}},
	)
	if r.Len() != 2 {
		t.Fatalf("expected 2 jobs, got %d", r.Len())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	if fast.Load() < 2 || failing.Load() < 2 {
		t.Fatalf("jobs did not keep ticking: fast=%d failing=%d", fast.Load(), failing.Load())
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{AssignInterval: time.Minute}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Config{DemandInterval: -time.Second}).Validate(); err == nil {
		t.Fatalf("expected error")
	}
}
