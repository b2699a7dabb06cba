// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tee

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// A Sink consumes the chunks of a stream.
type Sink interface {
	// Receive is called once for each chunk of the stream, in order.
	// The slice is only valid for the duration of the call and must
	// not be modified or retained.
	//
	// Returning a non-nil error detaches the Sink: it receives no more
	// chunks, and Finish is called with the returned error. A panic
	// detaches the Sink the same way, with a *PanicError. Receive must
	// not call back into the Tee.
	Receive(p []byte) error
	// Finish is called exactly once when the stream ends. A nil error
	// indicates the stream completed successfully. Finish may register
	// further sinks with the Tee.
	Finish(err error)
}

// A Source produces a stream of chunks to a single Sink.
type Source interface {
	// Deliver starts delivering the stream to s. It may deliver
	// synchronously or from another goroutine, but it must eventually
	// call s.Finish exactly once.
	Deliver(s Sink)
}

// A Canceler is a Source that supports best-effort cancellation.
// Sources that do not implement Canceler but implement io.Closer are
// cancelled by closing them.
type Canceler interface {
	// Cancel asks the source to stop delivering. The source should
	// end its stream promptly with a non-nil error.
	Cancel(err error)
}

// State is the lifecycle state of a Tee.
type State int

const (
	// NotStarted means no Sink has registered yet, so the source has
	// not been read.
	NotStarted State = iota
	// Streaming means the source is delivering.
	Streaming
	// Finished means the stream has ended, successfully or not.
	Finished
)

var stateNames = []string{
	"NotStarted",
	"Streaming",
	"Finished",
}

func (s State) String() string {
	return stateNames[s]
}

var (
	// ErrCanceled is the terminal recorded when Cancel is called with
	// a nil error.
	ErrCanceled = errors.New("requests/tee: canceled")
	// ErrFinished is returned to a source which delivers a chunk after
	// its Tee has already finished.
	ErrFinished = errors.New("requests/tee: already finished")
	// ErrDelivered is the terminal given to a Sink passed to a one-shot
	// Source which has already been delivered.
	ErrDelivered = errors.New("requests/tee: source already delivered")
)

// A PanicError is the terminal given to a Sink whose Receive
// panicked. The Sink is detached; the stream and the other sinks
// carry on.
type PanicError struct {
	Value interface{}
}

func (err *PanicError) Error() string {
	return fmt.Sprintf("requests/tee: sink panicked: %v", err.Value)
}

// A Tee is a buffered, single-producer, multi-consumer distributor for
// a one-shot Source. The zero value is not usable; create a Tee with
// New.
//
// A Tee keeps every chunk it has received for as long as it lives, so
// late sinks can be given the complete stream.
type Tee struct {
	mu       sync.Mutex
	source   Source
	chunks   [][]byte
	size     int64
	sinks    []Sink
	state    State
	reason   error
	canceled error
	done     chan struct{}
}

// New returns a Tee over src. The source is not touched until the
// first call to Register.
func New(src Source) *Tee {
	if src == nil {
		panic("requests/tee: nil source")
	}
	return &Tee{
		source: src,
		done:   make(chan struct{}),
	}
}

// Register adds a Sink to the Tee.
//
// If s is the first Sink, Register starts delivery from the source.
// If the stream is in progress, s first receives the buffered chunks
// and then the remainder of the stream. If the stream has ended, s
// receives the buffered chunks and the terminal before Register
// returns.
func (t *Tee) Register(s Sink) {
	if s == nil {
		panic("requests/tee: nil sink")
	}

	t.mu.Lock()
	switch t.state {
	case NotStarted:
		t.state = Streaming
		t.sinks = append(t.sinks, s)
		src := t.source
		t.mu.Unlock()
		src.Deliver(intake{t})
	case Streaming:
		// Replay under the lock so no live chunk slips in between.
		err := replay(t.chunks, s)
		if err == nil {
			t.sinks = append(t.sinks, s)
		}
		t.mu.Unlock()
		if err != nil {
			finish(s, err)
		}
	default:
		chunks, reason := t.chunks, t.reason
		t.mu.Unlock()
		if err := replay(chunks, s); err != nil {
			finish(s, err)
			return
		}
		finish(s, reason)
	}
}

// Cancel stops the stream.
//
// Before delivery has started, the Tee finishes immediately with err
// as its terminal and the source is released without being read.
// During delivery, the source is asked to stop. If it then ends with a
// failure, the failure is replaced by err. Chunks already buffered are
// kept. After the stream has ended, Cancel does nothing.
//
// If err is nil, ErrCanceled is used.
func (t *Tee) Cancel(err error) {
	if err == nil {
		err = ErrCanceled
	}

	t.mu.Lock()
	switch t.state {
	case NotStarted:
		t.canceled = err
		t.state = Finished
		t.reason = err
		close(t.done)
	case Streaming:
		if t.canceled != nil {
			t.mu.Unlock()
			return
		}
		t.canceled = err
	default:
		t.mu.Unlock()
		return
	}
	src := t.source
	t.mu.Unlock()
	release(src, err)
}

// State returns the current state of the Tee.
func (t *Tee) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done returns a channel that is closed when the stream has ended.
func (t *Tee) Done() <-chan struct{} {
	return t.done
}

// Err returns the terminal of the stream once it has ended. It returns
// nil while the stream is in progress, and after a successful end.
func (t *Tee) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// Len returns the number of bytes buffered so far.
func (t *Tee) Len() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

func (t *Tee) receive(p []byte) error {
	t.mu.Lock()

	if t.state == Finished {
		t.mu.Unlock()
		return ErrFinished
	}
	if len(p) == 0 {
		t.mu.Unlock()
		return nil
	}

	c := make([]byte, len(p))
	copy(c, p)
	t.chunks = append(t.chunks, c)
	t.size += int64(len(c))

	type detached struct {
		s   Sink
		err error
	}
	var dropped []detached
	live := t.sinks[:0]
	for _, s := range t.sinks {
		if err := receive(s, c); err != nil {
			dropped = append(dropped, detached{s, err})
			continue
		}
		live = append(live, s)
	}
	for i := len(live); i < len(t.sinks); i++ {
		t.sinks[i] = nil
	}
	t.sinks = live
	t.mu.Unlock()

	for _, d := range dropped {
		finish(d.s, d.err)
	}
	return nil
}

func (t *Tee) finish(err error) {
	t.mu.Lock()
	if t.state == Finished {
		t.mu.Unlock()
		return
	}
	if err != nil && t.canceled != nil {
		err = t.canceled
	}
	t.state = Finished
	t.reason = err
	sinks := t.sinks
	t.sinks = nil
	t.mu.Unlock()

	// Sinks are finished without the lock held, so a Finish may
	// register further sinks.
	for _, s := range sinks {
		finish(s, err)
	}
	close(t.done)
}

// intake is the Sink the Tee hands to its own source.
type intake struct {
	t *Tee
}

func (in intake) Receive(p []byte) error {
	return in.t.receive(p)
}

func (in intake) Finish(err error) {
	in.t.finish(err)
}

func replay(chunks [][]byte, s Sink) error {
	for _, c := range chunks {
		if err := receive(s, c); err != nil {
			return err
		}
	}
	return nil
}

// receive calls s.Receive, turning a panic into a *PanicError so that
// one broken sink cannot take down the stream.
func receive(s Sink, p []byte) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v}
		}
	}()
	return s.Receive(p)
}

// finish calls s.Finish. A panic in Finish is dropped, as the sink is
// already detached.
func finish(s Sink, err error) {
	defer func() { _ = recover() }()
	s.Finish(err)
}

func release(src Source, err error) {
	switch x := src.(type) {
	case Canceler:
		x.Cancel(err)
	case io.Closer:
		_ = x.Close()
	}
}
