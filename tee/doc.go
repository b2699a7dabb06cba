// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package tee distributes a single stream of bytes, typically an HTTP
response body, to any number of consumers.

A Tee wraps a Source that can be read exactly once. The first consumer
to Register starts the read. Every chunk the source produces is copied
into an internal buffer and dispatched to every registered Sink, in
registration order. A Sink registered while the stream is in progress
first receives every buffered chunk and then the live remainder, with
no chunk missed or repeated. A Sink registered after the stream has
ended receives the whole buffer followed by the cached terminal, and
the source is not touched again.

	t := tee.New(tee.NewReaderSource(resp.Body, 0))
	c := tee.NewCollector()
	t.Register(c)
	p, err := c.Wait(ctx)

Every Sink receives exactly one call to Finish. A nil error means the
stream completed successfully.

Dispatch runs synchronously on the goroutine delivering the source's
chunks, so a slow Sink delays the others. A Sink must not call Register
on the Tee it is registered with from inside Receive or Finish.
*/
package tee
