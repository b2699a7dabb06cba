// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"context"
	"fmt"
	"time"
)

// Error is the error reported when a Guard's deadline elapses before
// the guarded operation completes.
//
// Error reports true from its Timeout method, so the transient package
// categorizes it as transient.Timeout, and it matches
// context.DeadlineExceeded under errors.Is.
type Error struct {
	// Deadline is the deadline that elapsed.
	Deadline time.Duration
}

func (err *Error) Error() string {
	return fmt.Sprintf("requests/timeout: deadline of %s exceeded", err.Deadline)
}

// Timeout always returns true.
func (err *Error) Timeout() bool {
	return true
}

// Is reports whether target is context.DeadlineExceeded.
func (err *Error) Is(target error) bool {
	return target == context.DeadlineExceeded
}
