package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDispatcherRecoversPanics(t *testing.T) {
	d := NewDispatcher()

	siblingDone := make(chan struct{})
	d.Go("panics", func(ctx context.Context) error {
		panic("boom")
	})
	d.Go("fails", func(ctx context.Context) error {
		return errors.New("rcon unreachable")
	})
	d.Go("sibling", func(ctx context.Context) error {
		close(siblingDone)
		return nil
	})
	d.Wait()

	select {
	case <-siblingDone:
	default:
		t.Fatal("sibling task did not run")
	}

	stats := d.Stats()
	if stats.Panicked != 1 || stats.Errored != 1 || stats.Succeeded != 1 || stats.InFlight != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestDispatcherGoDoesNotBlock(t *testing.T) {
	d := NewDispatcher()
	release := make(chan struct{})

	start := time.Now()
	d.Go("slow", func(ctx context.Context) error {
		<-release
		return nil
	})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Go blocked for %v", elapsed)
	}
	if got := d.Stats().InFlight; got != 1 {
		t.Fatalf("InFlight = %d, want 1", got)
	}
	close(release)
	d.Wait()
}

func TestDispatcherShutdownRefusesNewTasks(t *testing.T) {
	d := NewDispatcher()
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Go("late", func(ctx context.Context) error { return nil }) {
		t.Fatal("expected Go to refuse after shutdown")
	}
	if !d.Stats().Closing {
		t.Fatal("expected closing flag")
	}
	// second shutdown is a no-op
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error on second shutdown: %v", err)
	}
}

func TestDispatcherShutdownWaitsForTasks(t *testing.T) {
	d := NewDispatcher()
	finished := make(chan struct{})
	d.Go("short", func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		close(finished)
		return nil
	})

	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-finished:
	default:
		t.Fatal("Shutdown returned before task finished")
	}
}

func TestDispatcherShutdownTimeoutCancelsTasks(t *testing.T) {
	d := NewDispatcher()
	d.Go("stuck in backoff", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Shutdown(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if got := d.Stats().InFlight; got != 0 {
		t.Fatalf("InFlight = %d after shutdown, want 0", got)
	}
}
