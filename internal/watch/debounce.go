package watch

import "time"

// Debouncer coalesces bursts of filesystem events into single triggers.
// A trigger fires on the first check after an event once the quiet period
// since the previous trigger has passed. Events recorded inside the quiet
// period that follows a trigger are absorbed by it.
type Debouncer struct {
	quiet       time.Duration
	now         func() time.Time
	lastTrigger time.Time
	pending     bool
}

// NewDebouncer returns a debouncer with the given quiet period. now may be nil.
func NewDebouncer(quiet time.Duration, now func() time.Time) *Debouncer {
	if now == nil {
		now = time.Now
	}
	return &Debouncer{quiet: quiet, now: now}
}

// Record notes a relevant event.
func (d *Debouncer) Record() {
	if !d.lastTrigger.IsZero() && d.now().Sub(d.lastTrigger) <= d.quiet {
		return
	}
	d.pending = true
}

// CheckChanges reports whether a trigger is due and consumes it.
func (d *Debouncer) CheckChanges() bool {
	if !d.pending {
		return false
	}
	now := d.now()
	if !d.lastTrigger.IsZero() && now.Sub(d.lastTrigger) <= d.quiet {
		return false
	}
	d.pending = false
	d.lastTrigger = now
	return true
}
