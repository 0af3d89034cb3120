// Package sched provides small cancellable timing primitives: a
// single-shot timer handle that can be invalidated exactly once, and a
// repeating task with deterministic stop.
package sched

import (
	"sync"
	"time"
)

// Timer is a cancellable single-shot timer. Either the callback fires or
// Stop wins; never both, and neither happens twice.
type Timer struct {
	mu   sync.Mutex
	t    *time.Timer
	done bool
}

// After arms a timer that invokes fn on its own goroutine after d.
func After(d time.Duration, fn func()) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(d, func() {
		tm.mu.Lock()
		if tm.done {
			tm.mu.Unlock()
			return
		}
		tm.done = true
		tm.mu.Unlock()
		fn()
	})
	return tm
}

// Stop invalidates the timer. It reports whether the callback was
// prevented from running; stopping an already-fired or already-stopped
// timer is a no-op returning false.
func (tm *Timer) Stop() bool {
	if tm == nil {
		return false
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.done {
		return false
	}
	tm.done = true
	tm.t.Stop()
	return true
}

// Repeater runs fn at a fixed interval until stopped.
type Repeater struct {
	stop chan struct{}
	once sync.Once
}

// Every starts a repeater invoking fn every interval. The first
// invocation happens after one interval, not immediately.
func Every(interval time.Duration, fn func()) *Repeater {
	r := &Repeater{stop: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return r
}

// Stop halts the repeater. Safe to call multiple times and from fn itself.
func (r *Repeater) Stop() {
	if r == nil {
		return
	}
	r.once.Do(func() { close(r.stop) })
}
