package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration is the window opened by the first event of a burst.
const DefaultDebounceDuration = 300 * time.Millisecond

// Debouncer runs a callback once per burst. The first Trigger arms a timer
// for the full window; later Triggers inside the window only replace the
// callback. The window is not extended, so a steady stream of events still
// flushes at a bounded interval.
type Debouncer struct {
	mu       sync.Mutex
	duration time.Duration
	timer    *time.Timer
	fn       func()
}

// NewDebouncer creates a debouncer. Non-positive durations use the default.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &Debouncer{duration: d}
}

// Trigger schedules fn at the end of the current window.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fn = fn
	if d.timer == nil {
		d.timer = time.AfterFunc(d.duration, d.fire)
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Cancel abandons the armed window, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.fn = nil
}

// Pending reports whether a window is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Duration returns the window length.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}
