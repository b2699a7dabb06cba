// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"time"

	"github.com/gofetch/requests/transient"
)

// An Execution represents the state of a single Plan execution.
//
// When an HTTP request plan execution is requested, an Execution is
// created for it. The Execution is updated as the plan execution
// progresses (for example when the response headers become available,
// or when the response body has been fully read) and is exposed on the
// response returned by the client.
//
// Timeout policies and event handlers may set values on an Execution
// using its SetValue method and read them back using the Value method.
// However, they should treat the structure's exported field values as
// immutable and leave them unmodified, as the execution state is vital
// to the correct functioning of the plan execution logic. Limited
// exceptions to this rule include making reasonable changes to the
// http.Request before it is sent (for example, to support an OAuth or
// AWS signing use case).
type Execution struct {
	// Plan specifies the HTTP request plan being executed. It is never
	// nil.
	Plan *Plan

	// Start is the start time of the HTTP request plan execution. It
	// is assigned a non-zero value when the plan execution starts, and
	// this value remains constant thereafter.
	Start time.Time

	// End is the end time of the HTTP request plan execution. It
	// contains the zero value until the response headers have been
	// received or the execution has failed, when it is set to the
	// current time. Reading the body happens after End.
	End time.Time

	// Deadline is the deadline raced against the request, as chosen by
	// the plan or the client's timeout policy. Zero means no deadline.
	Deadline time.Duration

	// Request specifies the HTTP request made for the plan.
	Request *http.Request

	// Response specifies the HTTP response received. It will be nil if
	// the request ended in an error, or if the request is underway.
	//
	// The response body must not be read directly: it is consumed by
	// the client and distributed to the response's body consumers.
	Response *http.Response

	// Err indicates the error received while making the request. It is
	// nil while the request is underway and after a successful
	// response.
	//
	// Whenever Err is non-nil, it has the type *url.Error.
	Err error

	// BodySize is the number of response body bytes read. It is set
	// when the body stream ends, before the AfterReadBody event.
	BodySize int64

	// BodyErr is the error which ended the response body stream, or nil
	// if the body was read completely. It is set when the body stream
	// ends, before the AfterReadBody event.
	BodyErr error

	// data contains arbitrary handler data. Event handlers interact
	// with it via the Value and SetValue methods.
	data context.Context
}

// StatusCode returns the status code of the HTTP response. If there is
// no HTTP response, 0 is returned.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the HTTP response headers. If there is no HTTP
// response, the nil header is returned.
//
// Note that a nil return value is always safe for read-only operations,
// since http.Header is a map type. There should never be a reason to
// write to the returned value, since it represents the response headers.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return e.Response.Header
}

// Duration returns the duration of the execution.
//
// If the execution has not yet started, the duration is zero. If the
// execution has Ended, the duration returned is equal to End minus
// Start. Otherwise, it is equal to the current time minus Start. The
// return value is thus monotonically increasing over the life of
// the execution, and becomes static when the execution has ended.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return e.Start != (time.Time{})
}

// Ended indicates whether the execution has ended, that is whether the
// response headers have been received or the request has failed.
func (e *Execution) Ended() bool {
	return e.End != (time.Time{})
}

// Timeout indicates whether Err currently contains a non-nil value
// which indicates a timeout, either because the deadline elapsed or
// because the plan context's deadline was exceeded.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// Canceled indicates whether Err currently contains a non-nil value
// which indicates the plan context was cancelled.
func (e *Execution) Canceled() bool {
	return transient.Categorize(e.Err) == transient.Canceled
}

// SetValue allows event handlers to store arbitrary data in the request
// plan execution.
//
// The key must follow the same rules as the key parameter in
// context.WithValue, namely it:
//
// • it may not be nil;
//
// • it must be comparable;
//
// • it should not be of type string or any other built-in type to avoid
// collisions between different event handlers putting data into the
// same request execution.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
