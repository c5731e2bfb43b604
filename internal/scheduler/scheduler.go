package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Ticker runs a job on a fixed interval. A tick that fires while the
// previous run is still going is dropped.
type Ticker struct {
	name     string
	interval time.Duration
	job      Job
	mu       sync.Mutex
}

// NewTicker creates a Ticker. A non-positive interval disables it.
func NewTicker(name string, interval time.Duration, job Job) *Ticker {
	return &Ticker{name: name, interval: interval, job: job}
}

// Run blocks until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) {
	if t.interval <= 0 {
		log.Printf("scheduler %s disabled", t.name)
		return
	}
	log.Printf("scheduler %s running every %s", t.name, t.interval)

	tk := time.NewTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			t.RunOnce(ctx)
		}
	}
}

// RunOnce runs the job unless a run is already in progress. It reports
// whether the job was started.
func (t *Ticker) RunOnce(ctx context.Context) bool {
	if !t.mu.TryLock() {
		log.Printf("WARN: scheduler %s: previous run still in progress, skipping", t.name)
		return false
	}
	defer t.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: scheduler %s: panic: %v", t.name, r)
		}
	}()
	if err := t.job(ctx); err != nil {
		log.Printf("ERROR: scheduler %s: %v", t.name, err)
	}
	return true
}
