// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package requests

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofetch/requests/throttle"
	"github.com/gofetch/requests/timeout"
)

// Option is a functional option for configuring a Client via New.
type Option func(*options) error

type options struct {
	client            *http.Client
	rt                http.RoundTripper
	timeout           *time.Duration
	userAgent         string
	throttle          *throttleConfig
	noFollowRedirects bool
	logger            *slog.Logger
	jar               http.CookieJar
	handlers          *HandlerGroup
	clock             timeout.Clock
	chunkSize         int
}

type throttleConfig struct {
	rps   float64
	burst int
}

// New returns a Client configured by opts. The Client's HTTPDoer is an
// http.Client built from the options, so New is the way to combine a
// custom transport with throttling, a User-Agent header or a redirect
// policy.
func New(opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	hc := &http.Client{}
	if o.client != nil {
		*hc = *o.client
	}
	rt := o.rt
	if rt == nil {
		rt = hc.Transport
	}
	if rt == nil {
		rt = http.DefaultTransport.(*http.Transport).Clone()
	}
	if o.throttle != nil {
		var err error
		rt, err = throttle.NewRoundTripper(o.throttle.rps, o.throttle.burst, logger, rt)
		if err != nil {
			return nil, err
		}
	}
	if o.userAgent != "" {
		rt = userAgent{value: o.userAgent, base: rt}
	}
	hc.Transport = rt
	if o.noFollowRedirects {
		hc.CheckRedirect = noRedirect
	}

	c := &Client{
		HTTPDoer:  hc,
		Handlers:  o.handlers,
		Jar:       o.jar,
		Logger:    logger,
		Clock:     o.clock,
		ChunkSize: o.chunkSize,
	}
	if o.timeout != nil {
		c.TimeoutPolicy = timeout.Fixed(*o.timeout)
	}
	return c, nil
}

// WithHTTPClient uses a copy of hc as the base of the Client's
// HTTPDoer.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errors.New("requests: http client must not be nil")
		}
		o.client = hc
		return nil
	}
}

// WithTransport sets a custom http.RoundTripper as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("requests: transport must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithTimeout sets the deadline for plans which do not set their own.
// Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("requests: timeout must not be negative")
		}
		o.timeout = &d
		return nil
	}
}

// WithUserAgent sets the User-Agent header of requests which do not
// set their own.
func WithUserAgent(header string) Option {
	return func(o *options) error {
		o.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given
// requests per second and burst capacity.
func WithThrottle(rps float64, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("requests: rps[%g] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		o.throttle = &throttleConfig{rps: rps, burst: burst}
		return nil
	}
}

// WithNoFollowRedirects prevents the Client from following HTTP
// redirects.
func WithNoFollowRedirects() Option {
	return func(o *options) error {
		o.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom slog.Logger into the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithJar sets the Client's cookie jar.
func WithJar(jar http.CookieJar) Option {
	return func(o *options) error {
		o.jar = jar
		return nil
	}
}

// WithHandlers installs event handlers in the Client.
func WithHandlers(g *HandlerGroup) Option {
	return func(o *options) error {
		o.handlers = g
		return nil
	}
}

// WithClock sets the clock used to schedule deadlines.
func WithClock(clock timeout.Clock) Option {
	return func(o *options) error {
		o.clock = clock
		return nil
	}
}

// WithChunkSize sets the size of the reads made on response bodies.
func WithChunkSize(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.New("requests: chunk size must not be negative")
		}
		o.chunkSize = n
		return nil
	}
}

// userAgent is an http.RoundTripper, enabling the persistent
// User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("User-Agent") != "" {
		return ua.base.RoundTrip(r)
	}
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}
