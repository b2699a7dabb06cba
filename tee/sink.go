// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tee

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// SinkFuncs adapts a pair of functions to the Sink interface. Either
// function may be nil.
type SinkFuncs struct {
	OnChunk    func(p []byte) error
	OnComplete func(err error)
}

func (f SinkFuncs) Receive(p []byte) error {
	if f.OnChunk == nil {
		return nil
	}
	return f.OnChunk(p)
}

func (f SinkFuncs) Finish(err error) {
	if f.OnComplete != nil {
		f.OnComplete(err)
	}
}

// A Collector is a Sink that concatenates the whole stream in memory.
type Collector struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	err  error
	once sync.Once
	done chan struct{}
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{done: make(chan struct{})}
}

func (c *Collector) Receive(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Write(p)
	return nil
}

func (c *Collector) Finish(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}

// Done returns a channel that is closed when the stream has ended.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the stream ends or ctx is done, and returns the
// collected bytes and the stream's terminal. If ctx is done first,
// Wait returns the context's cause; the Collector keeps collecting.
func (c *Collector) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.buf.Bytes(), c.err
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// A WriterSink is a Sink that copies the stream to an io.Writer.
type WriterSink struct {
	w    io.Writer
	n    int64
	err  error
	done chan struct{}
}

// NewWriterSink returns a Sink writing to w. A write error detaches
// the sink and becomes its terminal.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{
		w:    w,
		done: make(chan struct{}),
	}
}

func (ws *WriterSink) Receive(p []byte) error {
	n, err := ws.w.Write(p)
	ws.n += int64(n)
	return err
}

func (ws *WriterSink) Finish(err error) {
	ws.err = err
	close(ws.done)
}

// Wait blocks until the stream ends or ctx is done, and returns the
// number of bytes written and the stream's terminal.
func (ws *WriterSink) Wait(ctx context.Context) (int64, error) {
	select {
	case <-ws.done:
		return ws.n, ws.err
	case <-ctx.Done():
		return 0, context.Cause(ctx)
	}
}

// Pipe returns a Sink together with a reader which yields the chunks
// the Sink receives. The reader returns io.EOF after a successful
// stream, and the stream's failure otherwise.
//
// Receive blocks until the reader has consumed the chunk, so a reader
// that is not drained stalls the stream. Closing the reader detaches
// the Sink.
func Pipe() (io.ReadCloser, Sink) {
	pr, pw := io.Pipe()
	return pr, pipeSink{pw}
}

type pipeSink struct {
	pw *io.PipeWriter
}

func (s pipeSink) Receive(p []byte) error {
	_, err := s.pw.Write(p)
	return err
}

func (s pipeSink) Finish(err error) {
	_ = s.pw.CloseWithError(err)
}
