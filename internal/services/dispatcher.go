package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/atomic"

	"rank-api/pkg/logging"
)

// Dispatcher runs detached provisioning tasks. Tasks are not joined to the
// request that started them; a panic or error stays inside its own task.
type Dispatcher struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	wg      sync.WaitGroup
	closing *atomic.Bool

	inFlight  *atomic.Int64
	succeeded *atomic.Int64
	errored   *atomic.Int64
	panicked  *atomic.Int64
}

// DispatcherStats is a snapshot of task counters.
type DispatcherStats struct {
	InFlight  int64 `json:"in_flight"`
	Succeeded int64 `json:"succeeded"`
	Errored   int64 `json:"errored"`
	Panicked  int64 `json:"panicked"`
	Closing   bool  `json:"closing"`
}

// NewDispatcher creates a dispatcher whose task context lives until Shutdown.
func NewDispatcher() *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		ctx:       ctx,
		cancel:    cancel,
		closing:   atomic.NewBool(false),
		inFlight:  atomic.NewInt64(0),
		succeeded: atomic.NewInt64(0),
		errored:   atomic.NewInt64(0),
		panicked:  atomic.NewInt64(0),
	}
}

// Go starts task in its own goroutine. It returns false once shutdown began.
func (d *Dispatcher) Go(name string, task func(ctx context.Context) error) bool {
	d.mu.Lock()
	if d.closing.Load() {
		d.mu.Unlock()
		logging.Warnf("Dispatcher closing, dropped task %s", name)
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	d.inFlight.Inc()
	go d.run(name, task)
	return true
}

func (d *Dispatcher) run(name string, task func(ctx context.Context) error) {
	defer d.wg.Done()
	defer d.inFlight.Dec()
	defer func() {
		if r := recover(); r != nil {
			d.panicked.Inc()
			logging.Errorf("Task %s panicked: %v\n%s", name, r, debug.Stack())
		}
	}()

	if err := task(d.ctx); err != nil {
		d.errored.Inc()
		logging.Errorf("Task %s failed: %v", name, err)
		return
	}
	d.succeeded.Inc()
}

// Wait blocks until every started task returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown stops accepting tasks and waits for running ones. When ctx expires
// first the remaining tasks are cancelled and awaited.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	alreadyClosing := !d.closing.CAS(false, true)
	d.mu.Unlock()
	if alreadyClosing {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		remaining := d.inFlight.Load()
		d.cancel()
		<-done
		return fmt.Errorf("cancelled %d provisioning task(s) at shutdown: %w", remaining, ctx.Err())
	}
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		InFlight:  d.inFlight.Load(),
		Succeeded: d.succeeded.Load(),
		Errored:   d.errored.Load(),
		Panicked:  d.panicked.Load(),
		Closing:   d.closing.Load(),
	}
}
