// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tee

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkFuncs(t *testing.T) {
	var zero SinkFuncs
	assert.NoError(t, zero.Receive([]byte("x")))
	assert.NotPanics(t, func() { zero.Finish(nil) })

	var got []byte
	var terminal error
	boom := errors.New("boom")
	f := SinkFuncs{
		OnChunk:    func(p []byte) error { got = append(got, p...); return nil },
		OnComplete: func(err error) { terminal = err },
	}
	require.NoError(t, f.Receive([]byte("ab")))
	f.Finish(boom)
	assert.Equal(t, "ab", string(got))
	assert.Same(t, boom, terminal)
}

func TestCollector(t *testing.T) {
	t.Run("wait", func(t *testing.T) {
		c := NewCollector()
		require.NoError(t, c.Receive([]byte("ab")))
		require.NoError(t, c.Receive([]byte("cd")))
		c.Finish(nil)
		c.Finish(errors.New("ignored"))
		p, err := c.Wait(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "abcd", string(p))
	})
	t.Run("context done", func(t *testing.T) {
		c := NewCollector()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p, err := c.Wait(ctx)
		assert.Nil(t, p)
		assert.ErrorIs(t, err, context.Canceled)
		select {
		case <-c.Done():
			t.Fatal("collector must not be done")
		default:
		}
	})
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	ws := NewWriterSink(&buf)
	require.NoError(t, ws.Receive([]byte("hello ")))
	require.NoError(t, ws.Receive([]byte("world")))
	ws.Finish(nil)
	n, err := ws.Wait(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(11), n)
	assert.Equal(t, "hello world", buf.String())
}

func TestPipe(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		src := &manualSource{}
		tee := New(src)
		r, s := Pipe()
		tee.Register(s)
		go func() {
			_ = src.push("ab")
			_ = src.push("cd")
			src.end(nil)
		}()
		p, err := io.ReadAll(r)
		assert.NoError(t, err)
		assert.Equal(t, "abcd", string(p))
	})
	t.Run("failure", func(t *testing.T) {
		boom := errors.New("boom")
		r, s := Pipe()
		go func() {
			_ = s.Receive([]byte("ab"))
			s.Finish(boom)
		}()
		p, err := io.ReadAll(r)
		assert.Same(t, boom, err)
		assert.Equal(t, "ab", string(p))
	})
	t.Run("reader closed", func(t *testing.T) {
		r, s := Pipe()
		require.NoError(t, r.Close())
		assert.ErrorIs(t, s.Receive([]byte("ab")), io.ErrClosedPipe)
	})
}
