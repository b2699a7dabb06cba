// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard(t *testing.T) {
	t.Run("operation first", func(t *testing.T) {
		clock := &fakeClock{}
		g := NewGuard[string](context.Background(), time.Second, clock)
		var discarded atomic.Bool
		g.OnDiscard(func(string) { discarded.Store(true) })

		v, err := g.Run(func(ctx context.Context) (string, error) {
			return "hello", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "hello", v)
		assert.Equal(t, Operation, g.Outcome())
		assert.Equal(t, 0, clock.Pending(), "no timer may remain pending")
		assert.NoError(t, g.Context().Err(), "context must stay live until Release")
		clock.Advance(2 * time.Second)
		assert.Equal(t, Operation, g.Outcome())
		assert.False(t, discarded.Load())
		g.Release()
		assert.ErrorIs(t, g.Context().Err(), context.Canceled)
	})
	t.Run("operation error first", func(t *testing.T) {
		clock := &fakeClock{}
		g := NewGuard[int](context.Background(), time.Minute, clock)
		defer g.Release()
		boom := errors.New("boom")

		v, err := g.Run(func(ctx context.Context) (int, error) {
			return 7, boom
		})

		assert.Same(t, boom, err)
		assert.Equal(t, 7, v)
		assert.Equal(t, Operation, g.Outcome())
		assert.Equal(t, 0, clock.Pending())
	})
	t.Run("deadline first", func(t *testing.T) {
		clock := &fakeClock{}
		g := NewGuard[string](context.Background(), 250*time.Millisecond, clock)
		defer g.Release()
		discarded := make(chan string, 1)
		g.OnDiscard(func(s string) { discarded <- s })
		started := make(chan struct{})

		type ret struct {
			v   string
			err error
		}
		done := make(chan ret, 1)
		go func() {
			v, err := g.Run(func(ctx context.Context) (string, error) {
				close(started)
				<-ctx.Done()
				return "late", nil
			})
			done <- ret{v, err}
		}()
		<-started
		require.Equal(t, 1, clock.Pending())
		clock.Advance(250 * time.Millisecond)

		r := <-done
		assert.Equal(t, "", r.v, "late result must never be returned")
		var timeoutErr *Error
		require.ErrorAs(t, r.err, &timeoutErr)
		assert.Equal(t, 250*time.Millisecond, timeoutErr.Deadline)
		assert.ErrorIs(t, r.err, context.DeadlineExceeded)
		assert.Equal(t, Expired, g.Outcome())
		assert.ErrorAs(t, context.Cause(g.Context()), &timeoutErr)
		select {
		case s := <-discarded:
			assert.Equal(t, "late", s)
		case <-time.After(5 * time.Second):
			t.Fatal("late result never discarded")
		}
	})
	t.Run("parent cancelled first", func(t *testing.T) {
		clock := &fakeClock{}
		ctx, cancel := context.WithCancel(context.Background())
		g := NewGuard[string](ctx, time.Hour, clock)
		defer g.Release()
		discarded := make(chan string, 1)
		g.OnDiscard(func(s string) { discarded <- s })
		started := make(chan struct{})
		block := make(chan struct{})

		errs := make(chan error, 1)
		go func() {
			_, err := g.Run(func(_ context.Context) (string, error) {
				close(started)
				<-block
				return "ignored", nil
			})
			errs <- err
		}()
		<-started
		cancel()

		err := <-errs
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, Canceled, g.Outcome())
		assert.Equal(t, 0, clock.Pending())
		clock.Advance(time.Hour)
		assert.Equal(t, Canceled, g.Outcome())
		close(block)
		assert.Equal(t, "ignored", <-discarded)
	})
	t.Run("zero deadline", func(t *testing.T) {
		clock := &fakeClock{}
		g := NewGuard[int](context.Background(), 0, clock)
		defer g.Release()
		ran := false
		v, err := g.Run(func(ctx context.Context) (int, error) {
			ran = true
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.True(t, ran)
		assert.Empty(t, clock.timers, "no timer may be scheduled")
		assert.Equal(t, Operation, g.Outcome())
	})
	t.Run("negative deadline", func(t *testing.T) {
		clock := &fakeClock{}
		g := NewGuard[int](context.Background(), -time.Second, clock)
		defer g.Release()
		_, err := g.Run(func(ctx context.Context) (int, error) {
			return 0, nil
		})
		assert.NoError(t, err)
		assert.Empty(t, clock.timers)
	})
	t.Run("run twice", func(t *testing.T) {
		g := NewGuard[int](context.Background(), 0, nil)
		defer g.Release()
		op := func(ctx context.Context) (int, error) { return 0, nil }
		_, _ = g.Run(op)
		assert.PanicsWithValue(t, "requests/timeout: guard already run", func() {
			_, _ = g.Run(op)
		})
	})
	t.Run("operation panics", func(t *testing.T) {
		clock := &fakeClock{}
		g := NewGuard[int](context.Background(), time.Second, clock)
		defer g.Release()
		assert.PanicsWithValue(t, "kaboom", func() {
			_, _ = g.Run(func(ctx context.Context) (int, error) {
				panic("kaboom")
			})
		})
		assert.Equal(t, Operation, g.Outcome())
		assert.Equal(t, 0, clock.Pending())
	})
	t.Run("nil context", func(t *testing.T) {
		assert.PanicsWithValue(t, "requests/timeout: nil context", func() {
			NewGuard[int](nil, 0, nil) //nolint:staticcheck
		})
	})
	t.Run("exactly once", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			g := NewGuard[int](context.Background(), time.Millisecond, nil)
			var discards atomic.Int32
			g.OnDiscard(func(int) { discards.Add(1) })
			wait := time.Duration(rand.Intn(2000)) * time.Microsecond
			v, err := g.Run(func(ctx context.Context) (int, error) {
				time.Sleep(wait)
				return i, nil
			})
			switch g.Outcome() {
			case Operation:
				require.NoError(t, err)
				require.Equal(t, i, v)
				require.Zero(t, discards.Load())
			case Expired:
				var timeoutErr *Error
				require.ErrorAs(t, err, &timeoutErr)
				require.Equal(t, 0, v)
			default:
				t.Fatalf("unexpected outcome %s", g.Outcome())
			}
			g.Release()
		}
	})
}

func TestDo(t *testing.T) {
	t.Run("no deadline", func(t *testing.T) {
		v, err := Do(context.Background(), 0, func(ctx context.Context) (string, error) {
			return "x", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "x", v)
	})
	t.Run("deadline", func(t *testing.T) {
		_, err := Do(context.Background(), 10*time.Millisecond, func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", context.Cause(ctx)
		})
		var timeoutErr *Error
		assert.ErrorAs(t, err, &timeoutErr)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "Pending", Pending.String())
	assert.Equal(t, "Operation", Operation.String())
	assert.Equal(t, "Expired", Expired.String())
	assert.Equal(t, "Canceled", Canceled.String())
}

func TestError(t *testing.T) {
	err := &Error{Deadline: 3 * time.Second}
	assert.Equal(t, "requests/timeout: deadline of 3s exceeded", err.Error())
	assert.True(t, err.Timeout())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, context.Canceled)
}

func TestSystemClock(t *testing.T) {
	fired := make(chan struct{})
	timer := SystemClock.AfterFunc(time.Millisecond, func() { close(fired) })
	<-fired
	assert.False(t, timer.Stop())
	timer = SystemClock.AfterFunc(time.Hour, func() {})
	assert.True(t, timer.Stop())
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Duration
	f       func()
	fired   bool
	stopped bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and runs due callbacks on the
// calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
