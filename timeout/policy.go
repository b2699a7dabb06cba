// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gofetch/requests/request"
)

// A Policy defines a timeout policy which may be plugged into the
// HTTP client (requests.Client) to choose the deadline for a request
// plan which does not set its own.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeout returns the deadline to race against the request plan
	// execution. A zero or negative value means no deadline.
	//
	// Parameter e contains the current state of the HTTP request plan
	// execution.
	Timeout(e *request.Execution) time.Duration
}

// Infinite is a built-in timeout policy which never times out.
var Infinite Policy = Fixed(0)

// DefaultPolicy is the default timeout policy, Infinite.
var DefaultPolicy = Infinite

// Fixed constructs a timeout policy that uses the same value for every
// plan execution. The return value is a timeout policy that always
// returns the value d.
func Fixed(d time.Duration) Policy {
	return fixed(d)
}

type fixed time.Duration

func (p fixed) Timeout(_ *request.Execution) time.Duration {
	return time.Duration(p)
}
