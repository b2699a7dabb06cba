// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"context"
	"sync/atomic"
	"time"
)

// An Outcome identifies how a Guard was resolved.
type Outcome int32

const (
	// Pending means the guard has not resolved yet.
	Pending Outcome = iota
	// Operation means the guarded operation completed first, whether
	// it succeeded or failed.
	Operation
	// Expired means the deadline elapsed first.
	Expired
	// Canceled means the guard's parent context was done first.
	Canceled
)

var outcomeNames = []string{
	"Pending",
	"Operation",
	"Expired",
	"Canceled",
}

// String returns the name of the outcome.
func (o Outcome) String() string {
	return outcomeNames[o]
}

// A Guard races a single operation against a deadline. A Guard is
// used once: create it with NewGuard, optionally install a discard hook
// with OnDiscard, call Run, and call Release when the operation's
// result is no longer needed.
//
// A Guard resolves exactly once. Whichever of {operation completes,
// deadline elapses, parent context done} happens first decides the
// outcome; the others are ignored.
type Guard[T any] struct {
	ctx      context.Context
	cancel   context.CancelCauseFunc
	deadline time.Duration
	clock    Clock
	discard  func(T)
	outcome  atomic.Int32
	ran      atomic.Bool
}

// NewGuard returns a Guard whose context is derived from ctx and
// whose timer will fire after deadline. If deadline is zero or
// negative, no timer is ever scheduled. If clock is nil, SystemClock
// is used.
func NewGuard[T any](ctx context.Context, deadline time.Duration, clock Clock) *Guard[T] {
	if ctx == nil {
		panic("requests/timeout: nil context")
	}
	if clock == nil {
		clock = SystemClock
	}
	ctx, cancel := context.WithCancelCause(ctx)
	return &Guard[T]{
		ctx:      ctx,
		cancel:   cancel,
		deadline: deadline,
		clock:    clock,
	}
}

// Context returns the context the guarded operation must honor. It is
// cancelled with a *Error cause when the deadline elapses, and
// otherwise stays live until Release.
func (g *Guard[T]) Context() context.Context {
	return g.ctx
}

// Deadline returns the guard's deadline.
func (g *Guard[T]) Deadline() time.Duration {
	return g.deadline
}

// OnDiscard installs a hook which receives a successful result that
// arrives after the guard has already resolved by timeout or
// cancellation. Use it to release resources held by late results, for
// example to close a late HTTP response body.
//
// OnDiscard must be called before Run.
func (g *Guard[T]) OnDiscard(f func(T)) {
	g.discard = f
}

// Outcome returns the guard's outcome, or Pending if Run has not yet
// resolved.
func (g *Guard[T]) Outcome() Outcome {
	return Outcome(g.outcome.Load())
}

// Release cancels the guard's context. Call it once the result of Run
// is no longer needed. Release may be called more than once.
func (g *Guard[T]) Release() {
	g.cancel(nil)
}

type result[T any] struct {
	value    T
	err      error
	panicked bool
	panicVal interface{}
}

// Run executes op, racing it against the deadline, and blocks until
// the guard resolves.
//
// If op completes first, the timer is stopped and op's result and
// error are returned unchanged. If the deadline elapses first, Run
// returns a *Error. If the parent context is done first, Run returns
// the context's cause. In the latter two cases op keeps running in the
// background until it notices its cancelled context, and its eventual
// result is never returned.
//
// If op panics and the guard resolves with op's result, Run re-panics
// with the same value on the calling goroutine. Run panics if called
// more than once.
func (g *Guard[T]) Run(op func(ctx context.Context) (T, error)) (T, error) {
	if !g.ran.CompareAndSwap(false, true) {
		panic("requests/timeout: guard already run")
	}

	if g.deadline <= 0 {
		v, err := op(g.ctx)
		g.resolve(Operation)
		return v, err
	}

	results := make(chan result[T], 1)
	timer := g.clock.AfterFunc(g.deadline, func() {
		if g.resolve(Expired) {
			g.cancel(&Error{Deadline: g.deadline})
		}
	})
	go func() {
		var r result[T]
		defer func() {
			if pv := recover(); pv != nil {
				r.panicked, r.panicVal = true, pv
			}
			results <- r
		}()
		r.value, r.err = op(g.ctx)
	}()

	var zero T
	select {
	case r := <-results:
		if g.resolve(Operation) {
			timer.Stop()
			if r.panicked {
				panic(r.panicVal)
			}
			return r.value, r.err
		}
		// The timer fired while the result was in flight.
		g.drop(r)
		return zero, g.failure()
	case <-g.ctx.Done():
		if g.resolve(Canceled) {
			timer.Stop()
		}
		go g.drain(results)
		return zero, g.failure()
	}
}

func (g *Guard[T]) resolve(o Outcome) bool {
	return g.outcome.CompareAndSwap(int32(Pending), int32(o))
}

func (g *Guard[T]) failure() error {
	if g.Outcome() == Expired {
		return &Error{Deadline: g.deadline}
	}
	return context.Cause(g.ctx)
}

func (g *Guard[T]) drain(results <-chan result[T]) {
	g.drop(<-results)
}

func (g *Guard[T]) drop(r result[T]) {
	if !r.panicked && r.err == nil && g.discard != nil {
		g.discard(r.value)
	}
}

// Do runs op under a Guard with the given deadline, using SystemClock,
// and releases the guard before returning. It suits operations whose
// result does not depend on the operation context remaining live.
func Do[T any](ctx context.Context, deadline time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	g := NewGuard[T](ctx, deadline, nil)
	defer g.Release()
	return g.Run(op)
}
