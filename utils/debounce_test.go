package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimer records whether it was stopped.
type fakeTimer struct {
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

// fakeScheduler captures scheduled functions so tests fire them by hand
// instead of sleeping.
type fakeScheduler struct {
	fns    []func()
	timers []*fakeTimer
}

func (fs *fakeScheduler) factory(_ time.Duration, fn func()) CancelableTimer {
	t := &fakeTimer{}
	fs.fns = append(fs.fns, fn)
	fs.timers = append(fs.timers, t)
	return t
}

// fire invokes the i-th scheduled function, as the timer would.
func (fs *fakeScheduler) fire(i int) {
	fs.fns[i]()
}

func TestDebouncerOnlyLastScheduledRuns(t *testing.T) {
	fs := &fakeScheduler{}
	d := NewDebouncer(250*time.Millisecond, fs.factory)

	var ran []string
	d.Schedule(func() { ran = append(ran, "first") })
	d.Schedule(func() { ran = append(ran, "second") })
	d.Schedule(func() { ran = append(ran, "third") })

	require.Len(t, fs.fns, 3)
	assert.True(t, fs.timers[0].stopped, "superseded timer should be stopped")
	assert.True(t, fs.timers[1].stopped, "superseded timer should be stopped")

	// Even if a stale timer still fires, only the last schedule runs.
	fs.fire(0)
	fs.fire(1)
	fs.fire(2)

	assert.Equal(t, []string{"third"}, ran)
}

func TestDebouncerCancelDropsPending(t *testing.T) {
	fs := &fakeScheduler{}
	d := NewDebouncer(250*time.Millisecond, fs.factory)

	ran := false
	d.Schedule(func() { ran = true })
	d.Cancel()

	fs.fire(0)
	assert.False(t, ran)

	// Cancel does not shut the debouncer down.
	d.Schedule(func() { ran = true })
	fs.fire(1)
	assert.True(t, ran)
}

func TestDebouncerStopIsFinal(t *testing.T) {
	fs := &fakeScheduler{}
	d := NewDebouncer(250*time.Millisecond, fs.factory)

	ran := false
	d.Schedule(func() { ran = true })
	d.Stop()

	fs.fire(0)
	assert.False(t, ran)
	assert.True(t, fs.timers[0].stopped)

	// Schedules after Stop are ignored entirely.
	d.Schedule(func() { ran = true })
	assert.Len(t, fs.fns, 1)
}

func TestDebouncerWithRealTimer(t *testing.T) {
	d := NewDebouncer(5*time.Millisecond, nil)
	defer d.Stop()

	done := make(chan struct{})
	d.Schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled function never ran")
	}
}
