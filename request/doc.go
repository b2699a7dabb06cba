// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the core types Plan (describes an HTTP request
plan) and Execution (describes a Plan execution), together with the
options used to build a Plan.

A Plan describes how to make a logical HTTP request. For those familiar
with the Go standard HTTP library, net/http, a Plan looks like a
stripped-down http.Request structure with all server-side fields
removed, and the body fields replaced with a simple []byte, because
Plan requires a pre-buffered request body.

Create a plan with options describing the query, headers, body and
per-request settings:

	p, err := request.NewPlan("post", "https://example.com/upload?v=1",
		request.Params(map[string]string{"tag": "a"}),
		request.Data(map[string]string{"title": "report"}),
		request.Files(request.File{Field: "file", Name: "r.pdf", Content: f}),
		request.Auth("user", "secret"),
		request.Timeout(5*time.Second),
	)

Every option is validated by NewPlan, so a mistake such as combining a
raw body with files is reported as a *ConfigError before anything is
sent.

A plan may be assigned a context to allow the whole execution,
including reading the response body, to be cancelled:

	p, err := request.NewPlanWithContext(ctx, "GET", "https://example.com")

The second core type is Execution, which represents the state of the
execution of an HTTP request plan. Execution is the input type for
callbacks invoked during plan execution: timeout policies and event
handlers. You will typically not allocate Execution instances yourself,
but will instead work with the ones handed out by the client.
*/
package request
