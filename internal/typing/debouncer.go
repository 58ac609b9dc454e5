// Package typing turns raw keystrokes into typing/stop_typing notifications.
package typing

import (
	"sync"
	"time"
)

const DefaultIdle = 2 * time.Second

// Debouncer reports started once per burst of keystrokes and stopped after Idle
// without one. emit runs outside the state lock, one call at a time; a transition
// overtaken by a newer one before its turn is skipped.
type Debouncer struct {
	idle time.Duration
	emit func(active bool)

	mu     sync.Mutex
	active bool
	seq    uint64
	timer  *time.Timer
	turn   uint64

	emitMu  sync.Mutex
	emitted uint64
}

func New(idle time.Duration, emit func(active bool)) *Debouncer {
	if idle <= 0 {
		idle = DefaultIdle
	}
	return &Debouncer{idle: idle, emit: emit}
}

// Keystroke records user input: the first one of a burst emits started, every one
// pushes the stop deadline back.
func (d *Debouncer) Keystroke() {
	d.mu.Lock()
	var turn uint64
	if !d.active {
		d.active = true
		turn = d.nextTurn()
	}
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.idle, func() { d.expire(seq) })
	d.mu.Unlock()

	if turn != 0 {
		d.notify(true, turn)
	}
}

// Flush emits stopped immediately if a burst is active (message sent, input cleared).
func (d *Debouncer) Flush() {
	d.mu.Lock()
	var turn uint64
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.active {
		d.active = false
		turn = d.nextTurn()
	}
	d.mu.Unlock()

	if turn != 0 {
		d.notify(false, turn)
	}
}

func (d *Debouncer) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *Debouncer) expire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	d.timer = nil
	turn := d.nextTurn()
	d.mu.Unlock()

	d.notify(false, turn)
}

// nextTurn numbers a state transition. Caller holds d.mu.
func (d *Debouncer) nextTurn() uint64 {
	d.turn++
	return d.turn
}

func (d *Debouncer) notify(active bool, turn uint64) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()
	if turn <= d.emitted {
		return
	}
	d.emitted = turn
	d.emit(active)
}
