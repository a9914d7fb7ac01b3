// Package clock abstracts time so polling loops can be driven by a fake
// timer in tests.
package clock

import (
	"sync"
	"time"
)

// TimeProvider supplies the current time and schedules callbacks. Gateways
// take it as a dependency instead of reaching for the time package so that
// polling can run under accelerated time in tests.
type TimeProvider interface {
	Now() time.Time
	// SetTimeout runs fn once after d.
	SetTimeout(fn func(), d time.Duration)
	// SetInterval runs fn repeatedly every d until the provider is stopped.
	SetInterval(fn func(), d time.Duration)
	// Stop cancels all scheduled work.
	Stop()
}

// Real is a TimeProvider backed by the wall clock.
type Real struct {
	mu      sync.Mutex
	stopped bool
	done    chan struct{}
	timers  []*time.Timer
}

func NewReal() *Real {
	return &Real{done: make(chan struct{})}
}

func (r *Real) Now() time.Time { return time.Now() }

func (r *Real) SetTimeout(fn func(), d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.timers = append(r.timers, time.AfterFunc(d, fn))
}

func (r *Real) SetInterval(fn func(), d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	t := time.NewTicker(d)
	done := r.done
	go func() {
		for {
			select {
			case <-t.C:
				fn()
			case <-done:
				t.Stop()
				return
			}
		}
	}()
}

func (r *Real) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.stopped = true
	close(r.done)
	for _, t := range r.timers {
		t.Stop()
	}
}

type fakeTask struct {
	fn     func()
	next   time.Time
	period time.Duration // zero for one-shot
}

// Fake is a deterministic TimeProvider. Time moves only when Advance is
// called; due callbacks run inline on the advancing goroutine, in due order.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*fakeTask
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) SetTimeout(fn func(), d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, &fakeTask{fn: fn, next: f.now.Add(d)})
}

func (f *Fake) SetInterval(fn func(), d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, &fakeTask{fn: fn, next: f.now.Add(d), period: d})
}

func (f *Fake) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = nil
}

// Advance moves the clock forward by d, firing every callback that comes due
// along the way.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	deadline := f.now.Add(d)
	f.mu.Unlock()

	for {
		task := f.nextDue(deadline)
		if task == nil {
			break
		}
		task.fn()
	}

	f.mu.Lock()
	if deadline.After(f.now) {
		f.now = deadline
	}
	f.mu.Unlock()
}

// nextDue pops the earliest task due at or before deadline, moving the clock
// to its due time and rescheduling it if periodic.
func (f *Fake) nextDue(deadline time.Time) *fakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()

	var best *fakeTask
	bestIdx := -1
	for i, t := range f.tasks {
		if t.next.After(deadline) {
			continue
		}
		if best == nil || t.next.Before(best.next) {
			best = t
			bestIdx = i
		}
	}
	if best == nil {
		return nil
	}

	f.now = best.next
	if best.period > 0 {
		best.next = best.next.Add(best.period)
	} else {
		f.tasks = append(f.tasks[:bestIdx], f.tasks[bestIdx+1:]...)
	}
	return &fakeTask{fn: best.fn}
}
