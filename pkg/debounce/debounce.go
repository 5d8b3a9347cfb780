// Package debounce delays a callback until input has been quiet for a fixed
// interval. Each new value cancels the pending call; the last value wins.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the search input delay used by the views.
const DefaultDelay = 300 * time.Millisecond

// Debouncer calls fn with the most recent value once no new value has
// arrived for the configured delay. It is safe for concurrent use.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(T)
	timer   *time.Timer
	seq     uint64
	value   T
	pending bool
	stopped bool
}

// New creates a Debouncer. A non-positive delay uses DefaultDelay.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Trigger records v and restarts the delay.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.value = v
	d.pending = true
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	// A timer that fired while Trigger or Cancel held the lock is stale.
	if d.stopped || !d.pending || seq != d.seq {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.pending = false
	d.timer = nil
	d.mu.Unlock()
	d.fn(v)
}

// Flush runs a pending call immediately. It reports whether one was pending.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.stopped || !d.pending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	v := d.value
	d.pending = false
	d.mu.Unlock()
	d.fn(v)
	return true
}

// Pending reports whether a call is waiting for the delay to elapse.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Cancel drops the pending call, if any.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

func (d *Debouncer[T]) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = false
	var zero T
	d.value = zero
}

// Stop cancels the pending call and ignores every later Trigger.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}
