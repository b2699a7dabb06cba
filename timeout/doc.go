// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package timeout bounds how long a request may take to produce a
response.

The core type is Guard, a race between an in-flight operation and a
timer. Whichever finishes first decides the outcome, exactly once:

	g := timeout.NewGuard[*http.Response](ctx, 2*time.Second, nil)
	defer g.Release()
	resp, err := g.Run(func(ctx context.Context) (*http.Response, error) {
		return doer.Do(req.WithContext(ctx))
	})

If the operation wins, the timer is stopped and the result is returned
unchanged. The guard's context stays live until Release is called, so a
response body may still be read after Run returns. If the timer wins,
the operation's context is cancelled with a *Error cause, Run returns
the *Error, and any result the operation produces afterward is handed
to the discard hook (see OnDiscard) instead of the caller.

A zero or negative deadline disables the timer entirely: Run simply
calls the operation.

A generic interface for choosing deadlines, Policy, is also provided,
along with the built-in policies Infinite and Fixed.
*/
package timeout
