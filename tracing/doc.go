// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package tracing traces the plan executions of a requests.Client with
// OpenTelemetry.
//
// Each execution gets a client span covering the time until response
// headers arrive or the request fails. The span context is injected
// into the outgoing request headers so the server can continue the
// trace.
package tracing
