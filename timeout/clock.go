// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import "time"

// A Clock schedules the callbacks a Guard uses to enforce its
// deadline.
//
// SystemClock is used when a nil Clock is given. Tests can substitute
// a manually advanced clock to observe timer scheduling.
type Clock interface {
	// AfterFunc waits for the duration to elapse and then calls f in
	// its own goroutine. It returns a Timer that can be used to cancel
	// the call using its Stop method.
	AfterFunc(d time.Duration, f func()) Timer
}

// A Timer is a pending callback scheduled by a Clock.
type Timer interface {
	// Stop prevents the Timer from firing. It returns true if the call
	// stops the timer, false if the timer has already fired or been
	// stopped.
	Stop() bool
}

// SystemClock is a Clock backed by the time package.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
