package engine

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet interval used when none is configured.
const DefaultDebounce = 50 * time.Millisecond

// Debouncer collapses bursts of notifications into a single callback fired
// after a quiet interval measured from the last notification (trailing
// edge). It carries no payload: callers record whatever state the callback
// should act on before notifying, and the callback reads only the most
// recent state.
type Debouncer struct {
	interval time.Duration
	fire     func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer that invokes fire on a timer goroutine
// once notifications go quiet for interval.
func NewDebouncer(interval time.Duration, fire func()) *Debouncer {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	return &Debouncer{
		interval: interval,
		fire:     fire,
	}
}

// Notify schedules the callback, or pushes an already-scheduled callback
// further out. Safe to call at arbitrary frequency from any goroutine.
func (d *Debouncer) Notify() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if d.timer != nil {
		d.timer.Reset(d.interval)
		return
	}

	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		d.fire()
	})
}

// Pending reports whether a callback is currently scheduled
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any scheduled callback and rejects further notifications
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
