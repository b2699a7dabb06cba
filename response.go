// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package requests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"

	"github.com/gofetch/requests/request"
	"github.com/gofetch/requests/tee"
	"golang.org/x/net/html/charset"
)

// ErrClosed is the terminal given to body consumers of a Response
// that was closed before its body was completely read.
var ErrClosed = errors.New("requests: response closed")

// A Response is the response to an HTTP request plan executed by a
// Client.
//
// The response body is read from the network at most once. A buffered
// response (the default) keeps the body in memory and gives it in full
// to every consumer, whenever the consumer arrives. An unbuffered
// response, requested with request.Unbuffered, gives the body to its
// first consumer only.
//
// A Response whose body is not consumed holds on to its connection
// until it is closed.
type Response struct {
	// StatusCode is the HTTP status code, for example 200.
	StatusCode int
	// Status is the HTTP status line text, for example "200 OK".
	Status string
	// Header holds the response headers.
	Header http.Header
	// URL is the final URL of the response, after any redirects.
	URL *url.URL
	// Execution describes the plan execution which produced the
	// response. Its BodySize and BodyErr fields are set once the body
	// has been read.
	Execution *request.Execution

	tee    *tee.Tee
	source tee.Source
	jar    http.CookieJar
}

// Deliver hands the response body to s. The body is read when the
// first consumer is delivered. See tee.Tee.Register for the delivery
// guarantees of a buffered response.
//
// For an unbuffered response, only the first consumer receives the
// body; any other consumer is finished with tee.ErrDelivered.
func (r *Response) Deliver(s tee.Sink) {
	if r.tee != nil {
		r.tee.Register(s)
		return
	}
	r.source.Deliver(s)
}

// Content waits for the complete response body and returns it. If ctx
// is done first, Content returns the context's error and the body
// continues to be read in the background.
func (r *Response) Content(ctx context.Context) ([]byte, error) {
	c := tee.NewCollector()
	r.Deliver(c)
	return c.Wait(ctx)
}

// Text returns the response body decoded to UTF-8, using the character
// set named in the Content-Type header, or sniffed from the body when
// the header names none.
func (r *Response) Text(ctx context.Context) (string, error) {
	b, err := r.Content(ctx)
	if err != nil {
		return "", err
	}
	cr, err := charset.NewReader(bytes.NewReader(b), r.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("requests: decoding text: %w", err)
	}
	text, err := io.ReadAll(cr)
	if err != nil {
		return "", fmt.Errorf("requests: decoding text: %w", err)
	}
	return string(text), nil
}

// JSON decodes the response body as JSON into v.
func (r *Response) JSON(ctx context.Context, v interface{}) error {
	b, err := r.Content(ctx)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("requests: decoding json: %w", err)
	}
	return nil
}

// Reader returns a reader over the response body. The reader must be
// drained or closed: until it is, the reading of the body is stalled
// for all other consumers.
func (r *Response) Reader() io.ReadCloser {
	pr, s := tee.Pipe()
	go r.Deliver(s)
	return pr
}

// Cookies returns a cookie jar holding the cookies of the exchange:
// the client's cookies for the response URL, the plan's cookies and
// the cookies set by the response.
func (r *Response) Cookies() http.CookieJar {
	jar := newJar()
	if r.jar != nil {
		jar.SetCookies(r.URL, rooted(r.jar.Cookies(r.URL)))
	}
	if p := r.Execution.Plan; len(p.Cookies) > 0 {
		jar.SetCookies(r.URL, rooted(p.Cookies))
	}
	if r.Execution.Response != nil {
		jar.SetCookies(r.URL, r.Execution.Response.Cookies())
	}
	return jar
}

// History returns the redirect responses which led to this response,
// oldest first. It is empty when no redirect was followed. The bodies
// of the returned responses are already closed.
func (r *Response) History() []*http.Response {
	if r.Execution == nil || r.Execution.Response == nil {
		return nil
	}
	var history []*http.Response
	for req := r.Execution.Response.Request; req != nil && req.Response != nil; req = req.Response.Request {
		history = append(history, req.Response)
	}
	slices.Reverse(history)
	return history
}

// rooted returns copies of cookies, with the root path given to those
// without a path.
func rooted(cookies []*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, len(cookies))
	for i, c := range cookies {
		cp := *c
		if cp.Path == "" {
			cp.Path = "/"
		}
		out[i] = &cp
	}
	return out
}

// Close stops reading the response body and closes it. Consumers
// still waiting for the body are finished with ErrClosed, unless the
// body was already completely read. Close may be called more than
// once.
func (r *Response) Close() error {
	if r.tee != nil {
		r.tee.Cancel(ErrClosed)
		return nil
	}
	if c, ok := r.source.(tee.Canceler); ok {
		c.Cancel(ErrClosed)
	}
	return nil
}
