// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tee

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReaderSource(t *testing.T) {
	assert.PanicsWithValue(t, "requests/tee: nil reader", func() {
		NewReaderSource(nil, 0)
	})
	rs := NewReaderSource(io.NopCloser(strings.NewReader("")), 0)
	assert.Equal(t, DefaultChunkSize, rs.chunkSize)
	rs = NewReaderSource(io.NopCloser(strings.NewReader("")), 3)
	assert.Equal(t, 3, rs.chunkSize)
}

func TestReaderSource(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		body := &countingCloser{Reader: strings.NewReader("abcdefghij")}
		rs := NewReaderSource(body, 4)
		r := &recorder{}
		done := make(chan struct{})
		rs.Deliver(SinkFuncs{
			OnChunk:    r.Receive,
			OnComplete: func(err error) { r.Finish(err); close(done) },
		})
		<-done
		assert.Equal(t, []string{"abcd", "efgh", "ij"}, r.got())
		r.assertFinished(t, nil)
		assert.Equal(t, int32(1), body.closes.Load())
	})
	t.Run("second deliver", func(t *testing.T) {
		rs := NewReaderSource(io.NopCloser(strings.NewReader("abc")), 0)
		first := NewCollector()
		rs.Deliver(first)
		second := NewCollector()
		rs.Deliver(second)

		p, err := second.Wait(context.Background())
		assert.Empty(t, p)
		assert.ErrorIs(t, err, ErrDelivered)
		p, err = first.Wait(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "abc", string(p))
	})
	t.Run("read error", func(t *testing.T) {
		boom := errors.New("boom")
		body := &countingCloser{Reader: io.MultiReader(strings.NewReader("ab"), iotest.ErrReader(boom))}
		c := NewCollector()
		NewReaderSource(body, 0).Deliver(c)
		p, err := c.Wait(context.Background())
		assert.Same(t, boom, err)
		assert.Equal(t, "ab", string(p))
		assert.Equal(t, int32(1), body.closes.Load())
	})
	t.Run("sink error", func(t *testing.T) {
		body := &countingCloser{Reader: strings.NewReader("abcdef")}
		done := make(chan error, 1)
		NewReaderSource(body, 2).Deliver(SinkFuncs{
			OnChunk:    func(p []byte) error { return errSink },
			OnComplete: func(err error) { done <- err },
		})
		assert.Same(t, errSink, <-done)
		assert.Equal(t, int32(1), body.closes.Load())
	})
	t.Run("close error", func(t *testing.T) {
		closeErr := errors.New("close failed")
		body := &countingCloser{Reader: strings.NewReader("ab"), err: closeErr}
		c := NewCollector()
		NewReaderSource(body, 0).Deliver(c)
		_, err := c.Wait(context.Background())
		assert.Same(t, closeErr, err)
	})
	t.Run("cancel before deliver", func(t *testing.T) {
		body := &countingCloser{Reader: strings.NewReader("abc")}
		rs := NewReaderSource(body, 0)
		stop := errors.New("stop")
		rs.Cancel(stop)
		assert.Equal(t, int32(1), body.closes.Load())

		c := NewCollector()
		rs.Deliver(c)
		p, err := c.Wait(context.Background())
		assert.Empty(t, p)
		assert.Same(t, stop, err)
		assert.Equal(t, int32(1), body.closes.Load())
	})
	t.Run("cancel while reading", func(t *testing.T) {
		pr, pw := io.Pipe()
		rs := NewReaderSource(pr, 0)
		tee := New(rs)
		c := NewCollector()
		tee.Register(c)
		_, err := pw.Write([]byte("hello"))
		require.NoError(t, err)

		tee.Cancel(nil)

		p, err := c.Wait(context.Background())
		assert.Equal(t, "hello", string(p))
		assert.Same(t, ErrCanceled, err)
		assert.Same(t, ErrCanceled, tee.Err())
	})
}

func TestTee_ReaderSource(t *testing.T) {
	pr, pw := io.Pipe()
	tee := New(NewReaderSource(pr, 0))
	a := NewCollector()
	tee.Register(a)

	_, err := pw.Write([]byte("first "))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return tee.Len() == 6 }, time.Second, time.Millisecond)

	b := NewCollector()
	tee.Register(b)
	_, err = pw.Write([]byte("second"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())

	for _, c := range []*Collector{a, b} {
		p, err := c.Wait(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "first second", string(p))
	}
	<-tee.Done()
	late := NewCollector()
	tee.Register(late)
	p, err := late.Wait(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "first second", string(p))
}

type countingCloser struct {
	io.Reader
	closes atomic.Int32
	err    error
}

func (c *countingCloser) Close() error {
	c.closes.Add(1)
	return c.err
}
