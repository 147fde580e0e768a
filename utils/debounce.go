package utils

import (
	"sync"
	"time"
)

// TimerFactory creates a one-shot timer firing fn after d. Production code
// uses time.AfterFunc; tests inject a factory they can fire by hand.
type TimerFactory func(d time.Duration, fn func()) CancelableTimer

// CancelableTimer is the subset of *time.Timer the debouncer needs.
type CancelableTimer interface {
	Stop() bool
}

// realTimer adapts *time.Timer to CancelableTimer.
type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }

// StdTimerFactory backs the debouncer with time.AfterFunc.
func StdTimerFactory(d time.Duration, fn func()) CancelableTimer {
	return realTimer{t: time.AfterFunc(d, fn)}
}

// Debouncer coalesces rapid repeated triggers into one call: Schedule arms
// the interval, a newer Schedule resets it, and only the last scheduled
// function runs once the interval passes without another trigger. Stop
// cancels whatever is pending; a stopped debouncer never fires again.
type Debouncer struct {
	interval time.Duration
	newTimer TimerFactory

	mu      sync.Mutex
	timer   CancelableTimer
	seq     uint64
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet interval.
func NewDebouncer(interval time.Duration, factory TimerFactory) *Debouncer {
	if factory == nil {
		factory = StdTimerFactory
	}
	return &Debouncer{
		interval: interval,
		newTimer: factory,
	}
}

// Schedule arms fn to run after the quiet interval, replacing any
// previously scheduled function that has not fired yet.
func (d *Debouncer) Schedule(fn func()) {
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
	d.timer = d.newTimer(d.interval, func() {
		// The timer may have been superseded or stopped between firing
		// and acquiring the lock; only the latest schedule runs.
		d.mu.Lock()
		stale := d.stopped || seq != d.seq
		d.mu.Unlock()
		if stale {
			return
		}
		fn()
	})
}

// Cancel drops any pending schedule without shutting the debouncer down.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

// Stop cancels any pending schedule and prevents further use.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.stopped = true
}
