// Package timer provides single-shot deadlines polled from the frame loop.
//
// A Deadline replaces a sleeping goroutine: the owner arms it with the
// current frame time and checks it once per frame until it fires.
package timer

import "time"

// Deadline is a single-shot, cancellable timer. The zero value is idle.
type Deadline struct {
	at    time.Time
	armed bool
}

// Start arms the deadline to fire d after now. Starting an armed deadline
// restarts it.
func (d *Deadline) Start(now time.Time, after time.Duration) {
	d.at = now.Add(after)
	d.armed = true
}

// Cancel disarms the deadline without firing it.
func (d *Deadline) Cancel() {
	d.armed = false
	d.at = time.Time{}
}

// Pending reports whether the deadline is armed.
func (d *Deadline) Pending() bool {
	return d.armed
}

// At returns the fire time, or the zero time when idle.
func (d *Deadline) At() time.Time {
	return d.at
}

// Remaining returns the time left until the deadline, never negative.
func (d *Deadline) Remaining(now time.Time) time.Duration {
	if !d.armed {
		return 0
	}
	if r := d.at.Sub(now); r > 0 {
		return r
	}
	return 0
}

// Fire reports whether the deadline elapsed at now. It returns true exactly
// once per Start and disarms the deadline when it does.
func (d *Deadline) Fire(now time.Time) bool {
	if !d.armed || now.Before(d.at) {
		return false
	}
	d.Cancel()
	return true
}
