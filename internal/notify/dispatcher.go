package notify

import (
	"context"
	"log"
	"sync"
	"time"
)

const defaultJobTimeout = 30 * time.Second

// Dispatcher runs fire-and-forget jobs in background goroutines. Failures
// and panics are logged and never reach the caller.
type Dispatcher struct {
	wg      sync.WaitGroup
	timeout time.Duration
}

// NewDispatcher creates a Dispatcher. A zero timeout uses 30s per job.
func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &Dispatcher{timeout: timeout}
}

// Go starts fn in the background. The job gets its own context because the
// request that triggered it is usually finished by the time it runs.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("ERROR: background job %s panicked: %v", name, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			log.Printf("ERROR: background job %s: %v", name, err)
		}
	}()
}

// Wait blocks until all started jobs finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
