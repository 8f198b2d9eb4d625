package client

import (
	"sync"
	"time"
)

// Debouncer tracks a "typing" state that starts on the first keystroke and
// ends once no keystroke has arrived for the timeout. onStart and onStop are
// called at most once per burst, one at a time, and a burst's onStop never
// runs before its onStart has returned.
type Debouncer struct {
	// emitMu is held across the callbacks and taken before mu.
	emitMu  sync.Mutex
	mu      sync.Mutex
	timeout time.Duration
	timer   *time.Timer
	active  bool
	gen     uint64
	onStart func()
	onStop  func()
}

func NewDebouncer(timeout time.Duration, onStart, onStop func()) *Debouncer {
	return &Debouncer{timeout: timeout, onStart: onStart, onStop: onStop}
}

// Touch records a keystroke, starting a burst if none is active and
// restarting the countdown.
func (d *Debouncer) Touch() {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	started := !d.active
	d.active = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.timeout, func() { d.expire(gen) })
	d.mu.Unlock()

	if started && d.onStart != nil {
		d.onStart()
	}
}

func (d *Debouncer) expire(gen uint64) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	// A later Touch or Cancel superseded this timer.
	if gen != d.gen || !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	d.timer = nil
	d.mu.Unlock()

	if d.onStop != nil {
		d.onStop()
	}
}

// Cancel ends an active burst immediately, firing onStop.
func (d *Debouncer) Cancel() {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	if d.halt() && d.onStop != nil {
		d.onStop()
	}
}

// Stop ends any burst without firing onStop.
func (d *Debouncer) Stop() {
	d.halt()
}

func (d *Debouncer) halt() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	wasActive := d.active
	d.active = false
	return wasActive
}

func (d *Debouncer) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}
