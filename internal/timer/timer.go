package timer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Timer counts whole seconds for the active recording.
// Only one ticking goroutine exists at a time; Start cancels any previous one.
type Timer struct {
	interval time.Duration
	elapsed  atomic.Int64

	mu     sync.Mutex // guards cancel and done
	cancel context.CancelFunc
	done   chan struct{}
}

func New() *Timer {
	return NewWithInterval(time.Second)
}

// NewWithInterval creates a timer that increments once per interval.
func NewWithInterval(interval time.Duration) *Timer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Timer{interval: interval}
}

// Start resets the counter to zero and begins ticking.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.haltLocked()
	t.elapsed.Store(0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	go t.tick(ctx, done)
}

// Stop halts ticking and resets the counter. Safe to call at any time.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.haltLocked()
	t.elapsed.Store(0)
}

func (t *Timer) Elapsed() int {
	return int(t.elapsed.Load())
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// haltLocked cancels the ticker and waits for it to exit. Must be called with mu held.
func (t *Timer) haltLocked() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel = nil
	t.done = nil
}

func (t *Timer) tick(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.elapsed.Add(1)
		}
	}
}
