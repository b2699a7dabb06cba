// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tee

import (
	"io"
	"sync"
)

// DefaultChunkSize is the read size used by a ReaderSource when none
// is specified.
const DefaultChunkSize = 32 << 10

// A ReaderSource is a one-shot Source over an io.ReadCloser, typically
// an HTTP response body.
//
// The reader is consumed on its own goroutine and closed when the
// stream ends. The first call to Deliver starts the read; any later
// call finishes its Sink with ErrDelivered.
type ReaderSource struct {
	r         io.ReadCloser
	chunkSize int
	once      sync.Once

	mu       sync.Mutex
	canceled error
	closed   bool
}

// NewReaderSource returns a ReaderSource that reads r in chunks of at
// most chunkSize bytes. If chunkSize is zero or negative,
// DefaultChunkSize is used.
func NewReaderSource(r io.ReadCloser, chunkSize int) *ReaderSource {
	if r == nil {
		panic("requests/tee: nil reader")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ReaderSource{
		r:         r,
		chunkSize: chunkSize,
	}
}

func (rs *ReaderSource) Deliver(s Sink) {
	first := false
	rs.once.Do(func() { first = true })
	if !first {
		s.Finish(ErrDelivered)
		return
	}
	go rs.pump(s)
}

// Cancel closes the underlying reader, which makes a read in progress
// fail. The stream's failure terminal is replaced by err.
func (rs *ReaderSource) Cancel(err error) {
	if err == nil {
		err = ErrCanceled
	}
	rs.mu.Lock()
	if rs.canceled == nil {
		rs.canceled = err
	}
	rs.mu.Unlock()
	_ = rs.close()
}

func (rs *ReaderSource) pump(s Sink) {
	if err := rs.cancelErr(); err != nil {
		_ = rs.close()
		s.Finish(err)
		return
	}

	var err error
	buf := make([]byte, rs.chunkSize)
	for {
		n, readErr := rs.r.Read(buf)
		if n > 0 {
			if sinkErr := s.Receive(buf[:n]); sinkErr != nil {
				err = sinkErr
				break
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			err = readErr
			break
		}
	}

	if cancelErr := rs.cancelErr(); err != nil && cancelErr != nil {
		err = cancelErr
	}
	if closeErr := rs.close(); err == nil {
		err = closeErr
	}
	s.Finish(err)
}

func (rs *ReaderSource) cancelErr() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.canceled
}

func (rs *ReaderSource) close() error {
	rs.mu.Lock()
	if rs.closed {
		rs.mu.Unlock()
		return nil
	}
	rs.closed = true
	rs.mu.Unlock()
	return rs.r.Close()
}
