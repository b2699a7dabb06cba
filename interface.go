// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package requests

import (
	"context"

	"github.com/gofetch/requests/request"
)

// Doer is the interface that wraps the basic Do method.
//
// Do executes an HTTP request plan and returns the response (or an
// error). Client implements the Doer interface, and any other Doer
// implementation must behave substantially the same as Client.Do.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Doer interface {
	Do(p *request.Plan) (*Response, error)
}

// Requester is the interface that wraps the basic Request method.
//
// Request creates an HTTP request plan from a method, a URL and
// request options, executes the plan, and returns the response (or an
// error). Client implements the Requester interface.
//
// Any Doer can be used to emulate a Requester via the Request function.
type Requester interface {
	Request(ctx context.Context, method, url string, opts ...request.Option) (*Response, error)
}

// IdleCloser is the interface that wraps the basic CloseIdleConnections
// method.
//
// If the underlying implementation supports it, CloseIdleConnections
// closes any idle which were previously connected from previous
// requests but are now sitting idle in a "keep-alive" state. It does
// not interrupt any connections currently in use.
//
// If the underlying implementation does not support this ability,
// CloseIdleConnections does nothing.
type IdleCloser interface {
	CloseIdleConnections()
}

// Executor is the interface that groups Do, Request, one method per
// HTTP verb, and CloseIdleConnections.
//
// Client implements Executor. Any Doer can be converted into an
// Executor via the Inflate function.
type Executor interface {
	Doer
	Requester
	Get(ctx context.Context, url string, opts ...request.Option) (*Response, error)
	Head(ctx context.Context, url string, opts ...request.Option) (*Response, error)
	Post(ctx context.Context, url string, opts ...request.Option) (*Response, error)
	Put(ctx context.Context, url string, opts ...request.Option) (*Response, error)
	Patch(ctx context.Context, url string, opts ...request.Option) (*Response, error)
	Delete(ctx context.Context, url string, opts ...request.Option) (*Response, error)
	Options(ctx context.Context, url string, opts ...request.Option) (*Response, error)
	IdleCloser
}

// Request uses the specified Doer to issue a request with the given
// method to the specified URL, using the same policies as d.Do.
//
// An invalid option is reported as a *request.ConfigError, and d is
// not called.
func Request(ctx context.Context, d Doer, method, url string, opts ...request.Option) (*Response, error) {
	p, err := request.NewPlanWithContext(ctx, method, url, opts...)
	if err != nil {
		return nil, err
	}
	return d.Do(p)
}

// Get uses the specified Doer to issue a GET to the specified URL.
func Get(ctx context.Context, d Doer, url string, opts ...request.Option) (*Response, error) {
	return Request(ctx, d, "GET", url, opts...)
}

// Head uses the specified Doer to issue a HEAD to the specified URL.
func Head(ctx context.Context, d Doer, url string, opts ...request.Option) (*Response, error) {
	return Request(ctx, d, "HEAD", url, opts...)
}

// Post uses the specified Doer to issue a POST to the specified URL.
func Post(ctx context.Context, d Doer, url string, opts ...request.Option) (*Response, error) {
	return Request(ctx, d, "POST", url, opts...)
}

// Put uses the specified Doer to issue a PUT to the specified URL.
func Put(ctx context.Context, d Doer, url string, opts ...request.Option) (*Response, error) {
	return Request(ctx, d, "PUT", url, opts...)
}

// Patch uses the specified Doer to issue a PATCH to the specified URL.
func Patch(ctx context.Context, d Doer, url string, opts ...request.Option) (*Response, error) {
	return Request(ctx, d, "PATCH", url, opts...)
}

// Delete uses the specified Doer to issue a DELETE to the specified
// URL.
func Delete(ctx context.Context, d Doer, url string, opts ...request.Option) (*Response, error) {
	return Request(ctx, d, "DELETE", url, opts...)
}

// Options uses the specified Doer to issue an OPTIONS to the
// specified URL.
func Options(ctx context.Context, d Doer, url string, opts ...request.Option) (*Response, error) {
	return Request(ctx, d, "OPTIONS", url, opts...)
}

// Inflate converts any Doer into an Executor.
//
// If the Doer is already an Executor, it is returned as-is. Otherwise
// the Doer is wrapped in an Executor implementation that emulates the
// verb methods using the package functions. If the Doer implements
// IdleCloser, the Executor's CloseIdleConnections method calls it,
// otherwise it does nothing.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("requests: nil doer")
	}
	if x, ok := d.(Executor); ok {
		return x
	}
	return inflated{d}
}

type inflated struct {
	Doer
}

func (i inflated) Request(ctx context.Context, method, url string, opts ...request.Option) (*Response, error) {
	return Request(ctx, i.Doer, method, url, opts...)
}

func (i inflated) Get(ctx context.Context, url string, opts ...request.Option) (*Response, error) {
	return Get(ctx, i.Doer, url, opts...)
}

func (i inflated) Head(ctx context.Context, url string, opts ...request.Option) (*Response, error) {
	return Head(ctx, i.Doer, url, opts...)
}

func (i inflated) Post(ctx context.Context, url string, opts ...request.Option) (*Response, error) {
	return Post(ctx, i.Doer, url, opts...)
}

func (i inflated) Put(ctx context.Context, url string, opts ...request.Option) (*Response, error) {
	return Put(ctx, i.Doer, url, opts...)
}

func (i inflated) Patch(ctx context.Context, url string, opts ...request.Option) (*Response, error) {
	return Patch(ctx, i.Doer, url, opts...)
}

func (i inflated) Delete(ctx context.Context, url string, opts ...request.Option) (*Response, error) {
	return Delete(ctx, i.Doer, url, opts...)
}

func (i inflated) Options(ctx context.Context, url string, opts ...request.Option) (*Response, error) {
	return Options(ctx, i.Doer, url, opts...)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.Doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}
