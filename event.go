// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package requests

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Client to extend it with custom
// functionality.
type Event int

const (
	// BeforeExecutionStart identifies the event that occurs before the
	// plan execution starts.
	//
	// When Client fires BeforeExecutionStart, the execution is
	// non-nil but the only field that has been set is the plan.
	// Handlers may replace the plan.
	BeforeExecutionStart Event = iota
	// BeforeSend identifies the event that occurs before the HTTP
	// request is sent.
	//
	// When Client fires BeforeSend, the execution's request field is
	// set to the HTTP request that WILL BE sent after all BeforeSend
	// handlers have finished, and its deadline is set. The request
	// already carries the plan's cookies and the matching cookies from
	// the client's cookie jar.
	//
	// BeforeSend handlers may modify the execution's request, or some
	// of its fields, thus changing the HTTP request that will be sent.
	// The request's header is a copy of the plan's header, but its URL
	// is shared with the plan and should be cloned before changing.
	BeforeSend
	// AfterTimeout identifies the event that occurs after the request
	// failed because of a timeout, either because the deadline elapsed
	// before the response headers arrived or because the plan context's
	// deadline was exceeded.
	//
	// When Client fires AfterTimeout, the execution's error field is
	// set to the timeout error.
	AfterTimeout
	// BeforeReadBody identifies the event that occurs after the request
	// has resulted in an HTTP response (as opposed to an error) but
	// before the response body is made available to consumers.
	//
	// When Client fires BeforeReadBody, the execution's response field
	// is set to the HTTP response whose body WILL BE streamed after all
	// BeforeReadBody handlers have finished. Handlers may wrap the
	// response body, for example to decompress it, but must not read
	// it.
	//
	// Note that BeforeReadBody never fires if the request ended in
	// error, but always fires if an HTTP response is received,
	// regardless of HTTP response status code, and regardless of
	// whether there is a non-empty body in the response.
	BeforeReadBody
	// AfterExecutionEnd identifies the event that occurs after the plan
	// execution ends, that is after the response headers have been
	// received or the request has failed.
	//
	// When Client fires AfterExecutionEnd, the execution's end time is
	// set, and either its response or its error field is non-nil.
	AfterExecutionEnd
	// AfterReadBody identifies the event that occurs when the response
	// body stream ends, successfully or not.
	//
	// When Client fires AfterReadBody, the execution's body size and
	// body error fields are set. AfterReadBody fires on the goroutine
	// reading the body, after AfterExecutionEnd, and only if a consumer
	// requested the body.
	AfterReadBody
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel
	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeExecutionStart",
	"BeforeSend",
	"AfterTimeout",
	"BeforeReadBody",
	"AfterExecutionEnd",
	"AfterReadBody",
}

// Events returns a slice containing all events which can occur in an
// HTTP request plan execution by Client, in the order in which
// they would occur.
func Events() []Event {
	return []Event{
		BeforeExecutionStart,
		BeforeSend,
		AfterTimeout,
		BeforeReadBody,
		AfterExecutionEnd,
		AfterReadBody,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
