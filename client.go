// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package requests

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofetch/requests/request"
	"github.com/gofetch/requests/tee"
	"github.com/gofetch/requests/timeout"
	"golang.org/x/net/publicsuffix"
)

// An HTTPDoer implements a Do method in the same manner as the GoLang
// standard library http.Client from the net/http package.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response following
	// policy (such as redirects, cookies, auth) configured on the
	// HTTPDoer.
	//
	// The Do method must follow the contract documented on the GoLang
	// standard library http.Client from the net/http package.
	Do(r *http.Request) (*http.Response, error)
}

var emptyHandlers = HandlerGroup{}

// A Client is a convenience HTTP client which streams response bodies
// to any number of consumers. Its zero value is a valid configuration.
//
// The zero value client lazily creates its own http.Client, with a
// clone of http.DefaultTransport, and its own cookie jar. It uses
// timeout.DefaultPolicy as the timeout policy, slog.Default() as the
// logger, and an empty handler group (no event handlers/plug-ins).
//
// Client's HTTPDoer typically has an internal state (cached TCP
// connections) so Client instances should be reused instead of created
// as needed. Client is safe for concurrent use by multiple goroutines,
// but must not be copied after first use.
//
// A Client is higher-level than an HTTPDoer. The HTTPDoer is responsible
// for all details of sending the HTTP request and receiving the
// response, while Client builds on top of the HTTPDoer's feature set.
// On top of it, Client adds the following features:
//
// • Client races the request against a deadline chosen by the plan or
// by a customizable timeout policy, and closes the body of a response
// that arrives too late;
//
// • Client reads the response body exactly once, and hands it to
// every consumer that asks for it, including consumers that arrive
// after the body was read;
//
// • Client keeps cookies in a cookie jar across requests;
//
// • Client invokes user-provided handler functions at designated
// plug-in points within the plan execution, allowing new features to
// be mixed in from outside libraries; and
//
// • Client implements the requests.Executor interface.
type Client struct {
	// HTTPDoer specifies the mechanics of sending HTTP requests and
	// receiving responses.
	//
	// If HTTPDoer is nil, the client creates its own http.Client.
	HTTPDoer HTTPDoer
	// TimeoutPolicy chooses the deadline for plans that do not set
	// their own.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during execution of a request plan.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// Jar holds the cookies the client sends and receives.
	//
	// If Jar is nil, the client creates its own in-memory jar.
	Jar http.CookieJar
	// Logger receives the client's log records.
	//
	// If Logger is nil, slog.Default() is used.
	Logger *slog.Logger
	// Clock schedules deadline timers. If Clock is nil,
	// timeout.SystemClock is used.
	Clock timeout.Clock
	// ChunkSize is the size of the reads made on response bodies. If
	// ChunkSize is zero, tee.DefaultChunkSize is used.
	ChunkSize int

	once        sync.Once
	defaultDoer *http.Client
	defaultJar  http.CookieJar
}

// Do executes an HTTP request plan and returns the response, following
// the timeout policy set on Client, and low-level policy set on the
// underlying HTTPDoer.
//
// Do returns once the response headers have been received. The body
// is read only when a consumer asks for it, through the methods of the
// returned Response, and is then read exactly once, whatever the
// number of consumers.
//
// An error is returned if the request failed, either because of a
// failure to speak HTTP (for example a network connectivity problem),
// because the deadline elapsed before the response headers arrived,
// or because the plan context was cancelled. A non-2XX status code
// does not result in an error.
//
// Any returned error will be of type *url.Error. The url.Error's
// Timeout method, and the Execution's Timeout method, will return
// true if the request timed out.
//
// For simple use cases, the Get, Head, Post, Put, Patch, Delete and
// Options methods may prove easier to use than Do.
func (c *Client) Do(p *request.Plan) (*Response, error) {
	c.init()
	handlers := c.handlers()
	logger := c.logger()

	e := &request.Execution{
		Plan: p,
	}
	handlers.run(BeforeExecutionStart, e)
	if e.Plan == nil {
		panic("requests: plan deleted from execution")
	}
	p = e.Plan
	e.Start = time.Now()
	if p.HasTimeout {
		e.Deadline = p.Timeout
	} else {
		e.Deadline = c.timeoutPolicy().Timeout(e)
	}

	guard := timeout.NewGuard[*http.Response](p.Context(), e.Deadline, c.Clock)
	guard.OnDiscard(func(late *http.Response) {
		if late == nil || late.Body == nil {
			return
		}
		if err := late.Body.Close(); err != nil {
			logger.Error("requests: failed to close late response body",
				"method", p.Method, "url", p.URL.String(), "err", err)
		}
	})
	handedOff := false
	defer func() {
		if handedOff {
			return
		}
		if e.Response != nil && e.Response.Body != nil {
			_ = e.Response.Body.Close()
		}
		guard.Release()
	}()

	e.Request = p.ToRequest(guard.Context())
	c.addJarCookies(e.Request, p)
	handlers.run(BeforeSend, e)
	logger.Debug("requests: sending request",
		"method", e.Request.Method, "url", e.Request.URL.String(), "deadline", e.Deadline)

	doer := c.doerFor(p)
	req := e.Request
	resp, err := guard.Run(func(_ context.Context) (*http.Response, error) {
		return doer.Do(req)
	})
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		e.Err = urlErrorWrap(p, err)
		if e.Timeout() {
			logger.Warn("requests: request timed out",
				"method", p.Method, "url", p.URL.String(), "deadline", e.Deadline, "err", e.Err)
			handlers.run(AfterTimeout, e)
		} else {
			logger.Debug("requests: request failed",
				"method", p.Method, "url", p.URL.String(), "err", e.Err)
		}
		e.End = time.Now()
		handlers.run(AfterExecutionEnd, e)
		return nil, e.Err
	}
	if resp == nil {
		panic("requests: nil response from HTTPDoer")
	}
	if resp.Body == nil {
		resp.Body = http.NoBody
	}

	e.Response = resp
	c.storeCookies(resp, req)
	handlers.run(BeforeReadBody, e)
	if e.Response == nil {
		panic("requests: response deleted from execution")
	}
	if e.Response.Body == nil {
		panic("requests: response body deleted from execution")
	}
	resp = e.Response

	r := &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		URL:        finalURL(resp, req),
		Execution:  e,
		jar:        c.jar(),
	}
	body := newBodySource(e, handlers, logger, guard.Release, c.ChunkSize)
	if p.Unbuffered {
		r.source = body
	} else {
		r.tee = tee.New(body)
	}
	handedOff = true

	e.End = time.Now()
	logger.Debug("requests: received response",
		"method", p.Method, "url", p.URL.String(), "status", resp.StatusCode, "duration", e.Duration())
	handlers.run(AfterExecutionEnd, e)
	return r, nil
}

// Request issues a request with the given method to the specified URL,
// using the same policies followed by Do.
//
// The options describe the rest of the request. An invalid option is
// reported as a *request.ConfigError before any network activity.
func (c *Client) Request(ctx context.Context, method, url string, opts ...request.Option) (*Response, error) {
	p, err := request.NewPlanWithContext(ctx, method, url, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(p)
}

// Get issues a GET to the specified URL, using the same policies
// followed by Do.
func (c *Client) Get(ctx context.Context, url string, opts ...request.Option) (*Response, error) {
	return c.Request(ctx, "GET", url, opts...)
}

// Head issues a HEAD to the specified URL, using the same policies
// followed by Do.
func (c *Client) Head(ctx context.Context, url string, opts ...request.Option) (*Response, error) {
	return c.Request(ctx, "HEAD", url, opts...)
}

// Post issues a POST to the specified URL, using the same policies
// followed by Do. Use the request.Data, request.JSON or request.Files
// options to give the request a body.
func (c *Client) Post(ctx context.Context, url string, opts ...request.Option) (*Response, error) {
	return c.Request(ctx, "POST", url, opts...)
}

// Put issues a PUT to the specified URL, using the same policies
// followed by Do.
func (c *Client) Put(ctx context.Context, url string, opts ...request.Option) (*Response, error) {
	return c.Request(ctx, "PUT", url, opts...)
}

// Patch issues a PATCH to the specified URL, using the same policies
// followed by Do.
func (c *Client) Patch(ctx context.Context, url string, opts ...request.Option) (*Response, error) {
	return c.Request(ctx, "PATCH", url, opts...)
}

// Delete issues a DELETE to the specified URL, using the same policies
// followed by Do.
func (c *Client) Delete(ctx context.Context, url string, opts ...request.Option) (*Response, error) {
	return c.Request(ctx, "DELETE", url, opts...)
}

// Options issues an OPTIONS to the specified URL, using the same
// policies followed by Do.
func (c *Client) Options(ctx context.Context, url string, opts ...request.Option) (*Response, error) {
	return c.Request(ctx, "OPTIONS", url, opts...)
}

// CloseIdleConnections invokes the same method on the client's
// underlying HTTPDoer.
//
// If the HTTPDoer does not have a CloseIdleConnections method
// then this method does nothing.
func (c *Client) CloseIdleConnections() {
	c.init()
	if ic, ok := c.doer().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (c *Client) init() {
	c.once.Do(func() {
		if c.HTTPDoer == nil {
			c.defaultDoer = &http.Client{
				Transport: http.DefaultTransport.(*http.Transport).Clone(),
			}
		}
		if c.Jar == nil {
			c.defaultJar = newJar()
		}
	})
}

func (c *Client) doer() HTTPDoer {
	if c.HTTPDoer != nil {
		return c.HTTPDoer
	}
	return c.defaultDoer
}

// doerFor returns the doer to use for p. Redirects can only be turned
// off per plan when the doer is an *http.Client.
func (c *Client) doerFor(p *request.Plan) HTTPDoer {
	d := c.doer()
	if !p.NoRedirects {
		return d
	}
	hc, ok := d.(*http.Client)
	if !ok {
		return d
	}
	cp := *hc
	cp.CheckRedirect = noRedirect
	return &cp
}

func noRedirect(_ *http.Request, _ []*http.Request) error {
	return http.ErrUseLastResponse
}

func (c *Client) jar() http.CookieJar {
	if c.Jar != nil {
		return c.Jar
	}
	return c.defaultJar
}

func (c *Client) handlers() *HandlerGroup {
	if c.Handlers != nil {
		return c.Handlers
	}
	return &emptyHandlers
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Client) timeoutPolicy() timeout.Policy {
	if c.TimeoutPolicy != nil {
		return c.TimeoutPolicy
	}
	return timeout.DefaultPolicy
}

// addJarCookies adds the jar's cookies for r's URL, except those the
// plan already sets.
func (c *Client) addJarCookies(r *http.Request, p *request.Plan) {
	for _, ck := range c.jar().Cookies(r.URL) {
		if !hasCookie(p.Cookies, ck.Name) {
			r.AddCookie(ck)
		}
	}
}

func (c *Client) storeCookies(resp *http.Response, req *http.Request) {
	if cookies := resp.Cookies(); len(cookies) > 0 {
		c.jar().SetCookies(finalURL(resp, req), cookies)
	}
}

func hasCookie(cookies []*http.Cookie, name string) bool {
	for _, ck := range cookies {
		if ck.Name == name {
			return true
		}
	}
	return false
}

func finalURL(resp *http.Response, req *http.Request) *url.URL {
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL
	}
	return req.URL
}

func newJar() http.CookieJar {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		panic("requests: " + err.Error())
	}
	return jar
}

func urlErrorWrap(p *request.Plan, err error) error {
	if _, ok := err.(*url.Error); ok {
		return err
	}

	return &url.Error{
		Op:  urlErrorOp(p.Method),
		URL: p.URL.String(),
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
