// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package requests

import (
	"io"
	"log/slog"
	"sync"

	"github.com/gofetch/requests/request"
	"github.com/gofetch/requests/tee"
)

// bodySource is the one-shot source of a response body. It records the
// outcome of the read on the execution and fires AfterReadBody.
type bodySource struct {
	e        *request.Execution
	handlers *HandlerGroup
	logger   *slog.Logger
	reader   *tee.ReaderSource
	once     sync.Once
}

func newBodySource(e *request.Execution, handlers *HandlerGroup, logger *slog.Logger, release func(), chunkSize int) *bodySource {
	body := releasingBody{
		ReadCloser: e.Response.Body,
		release:    release,
	}
	return &bodySource{
		e:        e,
		handlers: handlers,
		logger:   logger,
		reader:   tee.NewReaderSource(body, chunkSize),
	}
}

func (b *bodySource) Deliver(s tee.Sink) {
	first := false
	b.once.Do(func() { first = true })
	if !first {
		s.Finish(tee.ErrDelivered)
		return
	}
	b.reader.Deliver(&bodySink{source: b, next: s})
}

func (b *bodySource) Cancel(err error) {
	b.reader.Cancel(err)
}

type bodySink struct {
	source  *bodySource
	next    tee.Sink
	n       int64
	sinkErr error
}

func (s *bodySink) Receive(p []byte) error {
	s.n += int64(len(p))
	if err := s.next.Receive(p); err != nil {
		s.sinkErr = err
		return err
	}
	return nil
}

func (s *bodySink) Finish(err error) {
	e := s.source.e
	if err != nil && err != s.sinkErr {
		err = urlErrorWrap(e.Plan, err)
	}
	e.BodySize = s.n
	e.BodyErr = err
	if err != nil {
		s.source.logger.Debug("requests: response body ended in error",
			"method", e.Plan.Method, "url", e.Plan.URL.String(), "size", s.n, "err", err)
	} else {
		s.source.logger.Debug("requests: response body read",
			"method", e.Plan.Method, "url", e.Plan.URL.String(), "size", s.n)
	}
	s.source.handlers.run(AfterReadBody, e)
	s.next.Finish(err)
}

// releasingBody releases the request context once the body is closed.
type releasingBody struct {
	io.ReadCloser
	release func()
}

func (b releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.release()
	return err
}
