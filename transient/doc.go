// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies errors from HTTP request execution into
// categories: timeouts, caller cancellations, and a few well-known
// connection failures. This is handy for telling a TimeoutError apart
// from a transport error when choosing what to do next, and for other
// purposes such as bucketing error metrics.
//
// Package transient is extremely lightweight, as it depends only on
// the standard library packages "context", "errors" and "syscall", so
// it doesn't bring any significant dependencies when imported as a
// standalone package.
package transient
