// Package events provides a minimal observer primitive used by the gateways
// to fan updates out to the trading engine.
package events

import "sync"

// Evt is a broadcast point for values of type T. Subscribers registered with
// On are invoked synchronously, in registration order, each time Trigger is
// called. Delivery covers the subscriber snapshot taken at trigger time; a
// handler registered during a trigger sees only subsequent triggers.
type Evt[T any] struct {
	mu   sync.RWMutex
	subs []func(T)
}

// New creates an event.
func New[T any]() *Evt[T] {
	return &Evt[T]{}
}

// On registers a handler. Handlers must not block: they run inline on the
// triggering goroutine.
func (e *Evt[T]) On(handler func(T)) {
	e.mu.Lock()
	e.subs = append(e.subs, handler)
	e.mu.Unlock()
}

// Trigger delivers v to all currently registered handlers.
func (e *Evt[T]) Trigger(v T) {
	e.mu.RLock()
	subs := make([]func(T), len(e.subs))
	copy(subs, e.subs)
	e.mu.RUnlock()

	for _, h := range subs {
		h(v)
	}
}

// Pipe forwards every value triggered on src to dst. Used to propagate a
// shared stream, e.g. transport connectivity, to per-gateway streams.
func Pipe[T any](src, dst *Evt[T]) {
	src.On(func(v T) { dst.Trigger(v) })
}
