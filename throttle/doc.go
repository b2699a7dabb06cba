// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package throttle provides an http.RoundTripper that rate-limits
// outbound HTTP requests using the token bucket limiter from
// golang.org/x/time/rate.
//
// Wrap an existing transport with NewRoundTripper:
//
//	rt, err := throttle.NewRoundTripper(10, 5, slog.Default(), http.DefaultTransport)
//	httpClient := &http.Client{Transport: rt}
//
// When the rate limit is exceeded, outbound requests block until a
// token becomes available or the request context is done. The client
// option requests.WithThrottle installs the throttle on the client's
// own transport.
package throttle
