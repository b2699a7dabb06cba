// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	urlpkg "net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"
)

var (
	template, _ = http.NewRequest("GET", "", nil)
)

const (
	nilCtxMsg = "requests/request: nil context"
)

// A Plan contains a logical HTTP request plan for execution by a
// client.
//
// The field structure of Plan mirrors the structure of the lower-level
// http.Request with the following differences. Server-only fields are
// removed (for example Proto). The request body is a pre-buffered
// []byte, so a Plan can be converted into any number of identical
// http.Request values. Fields which have no http.Request equivalent
// (Cookies, Timeout, NoRedirects, Unbuffered) carry per-request
// settings which the client honors when executing the plan.
//
// Like the http.Request structure, a Plan has a context which controls
// the overall plan execution, including reading the response body, and
// can be used to cancel it at any time.
type Plan struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.). It is
	// always upper case.
	Method string

	// URL specifies the URL to access, including any query parameters
	// merged in by the Params option.
	URL *urlpkg.URL

	// Header contains the request header fields to be sent by the
	// client.
	Header http.Header

	// Body is the pre-buffered request body to be sent. A nil or
	// empty body indicates no request body should be sent.
	Body []byte

	// TransferEncoding lists the transfer encodings from outermost to
	// innermost. An empty list denotes the "identity" encoding.
	TransferEncoding []string

	// Close stipulates whether to close the connection after sending
	// the request and reading the response.
	Close bool

	// Host optionally overrides the Host header to send. If empty, the
	// value of URL.Host will be sent.
	Host string

	// Cookies are sent with the request in addition to any matching
	// cookies in the client's cookie jar. A plan cookie takes
	// precedence over a jar cookie with the same name.
	Cookies []*http.Cookie

	// Timeout is the deadline for receiving the response headers, used
	// when HasTimeout is set. Zero or negative means no deadline.
	Timeout time.Duration

	// HasTimeout indicates Timeout was chosen for this plan. When it is
	// false the client's timeout policy decides.
	HasTimeout bool

	// NoRedirects prevents the client from following redirects. The
	// redirect response itself is returned.
	NoRedirects bool

	// Unbuffered indicates the response body should be streamed to a
	// single consumer without being kept in memory.
	Unbuffered bool

	// ctx allows the entire Plan exec to be cancelled. It should only
	// be modified by copying the whole Plan using WithContext.
	ctx context.Context
}

// NewPlan wraps NewPlanWithContext using the background context.
func NewPlan(method, url string, opts ...Option) (*Plan, error) {
	return NewPlanWithContext(context.Background(), method, url, opts...)
}

// NewPlanWithContext returns a new Plan given a method, URL, and
// options describing the rest of the request.
//
// The method is converted to upper case, and an empty method means
// GET. All options are applied and validated before NewPlanWithContext
// returns, so any problem with them is reported here as a
// *ConfigError, before any network activity.
func NewPlanWithContext(ctx context.Context, method, url string, opts ...Option) (*Plan, error) {
	if ctx == nil {
		return nil, &ConfigError{Option: "context", Err: errors.New("nil context")}
	}
	if method == "" {
		method = "GET"
	}
	method = strings.ToUpper(method)
	if !validMethod(method) {
		return nil, configErrorf("method", "invalid method %q", method)
	}
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, &ConfigError{Option: "url", Err: err}
	}
	u.Host = removeEmptyPort(u.Host)

	var b builder
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err = opt(&b); err != nil {
			return nil, err
		}
	}

	p := &Plan{
		ctx:         ctx,
		Method:      method,
		URL:         u,
		Header:      make(http.Header),
		Host:        u.Host,
		Timeout:     b.timeout,
		HasTimeout:  b.hasTimeout,
		NoRedirects: b.noRedirects,
		Unbuffered:  b.unbuffered,
	}
	if err = b.apply(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Context returns the request plan's context. The context controls
// cancellation of the overall request plan. To change the context, use
// WithContext.
//
// The returned context is always non-nil; it defaults to the
// background context.
func (p *Plan) Context() context.Context {
	if p.ctx != nil {
		return p.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of p with its context changed to
// ctx, which must be non-nil.
//
// The context controls the entire lifetime of a logical request plan
// and its execution, including: obtaining a connection, sending the
// request, reading the response headers and reading the response body.
func (p *Plan) WithContext(ctx context.Context) *Plan {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	p2 := new(Plan)
	*p2 = *p
	p2.ctx = ctx
	return p2
}

// AddCookie adds a cookie to the plan's Cookies.
func (p *Plan) AddCookie(c *http.Cookie) {
	p.Cookies = append(p.Cookies, &http.Cookie{Name: c.Name, Value: c.Value})
}

// SetBasicAuth sets the request plan's Authorization header to use HTTP
// Basic Authentication with the provided username and password.
//
// With HTTP Basic Authentication the provided username and password
// are not encrypted.
func (p *Plan) SetBasicAuth(username, password string) {
	p.Header.Set("Authorization", "Basic "+basicAuth(username, password))
}

// ToRequest creates an HTTP request corresponding to the given request
// plan. The context of the new request is set to ctx, which may not be
// nil.
//
// The request gets its own copy of the plan's header, with the plan's
// cookies added, so callers may add to it without changing the plan.
func (p *Plan) ToRequest(ctx context.Context) *http.Request {
	r := template.WithContext(ctx)
	r.Method = p.Method
	r.URL = p.URL
	r.Header = p.Header.Clone()
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	for _, c := range p.Cookies {
		r.AddCookie(c)
	}
	if len(p.Body) > 0 {
		body := p.Body
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		r.ContentLength = int64(len(body))
	}
	r.TransferEncoding = p.TransferEncoding
	r.Close = p.Close
	r.Host = p.Host
	return r
}

// basicAuth is lifted verbatim from net/http/client.go.
//
// See 2 (end of page 4) https://www.ietf.org/rfc/rfc2617.txt
// "To receive authorization, the client sends the userid and password,
// separated by a single colon (":") character, within a base64
// encoded string in the credentials."
// It is not meant to be urlencoded.
func basicAuth(username, password string) string {
	auth := username + ":" + password
	return base64.StdEncoding.EncodeToString([]byte(auth))
}

func validMethod(method string) bool {
	return strings.IndexFunc(method, isNotToken) == -1
}

func isNotToken(r rune) bool {
	return !httpguts.IsTokenRune(r)
}

// hasPort is lifted verbatim from net/http/http.go
//
// Given a string of the form "host", "host:port", or "[ipv6::address]:port",
// return true if the string includes a port.
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort is lifted verbatim from net/http/http.go
//
// removeEmptyPort strips the empty port in ":port" to ""
// as mandated by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
