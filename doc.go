// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package requests provides a convenience HTTP client whose response
bodies are read from the network once and handed to any number of
consumers, within a simple and familiar interface.

Create a Client to begin making requests.

	client := &requests.Client{}
	resp, err := client.Get(ctx, "https://www.example.com",
		request.Params(map[string]string{"q": "gopher"}))
	...
	text, err := resp.Text(ctx)
	...
	resp, err = client.Post(ctx, "https://www.example.com/upload",
		request.Files(request.File{Field: "file", Name: "a.txt", Content: f}))

A buffered response (the default) keeps its body in memory. Every
consumer gets the whole body, even one which arrives after the body has
been completely read:

	var first, second []byte
	first, err = resp.Content(ctx)
	second, err = resp.Content(ctx) // same bytes, no new read

To stream a large body without keeping it in memory, use the
request.Unbuffered option and deliver the body to a single consumer:

	resp, err := client.Get(ctx, url, request.Unbuffered())
	...
	sink := tee.NewWriterSink(f)
	resp.Deliver(sink)
	n, err := sink.Wait(ctx)

For control over how the client sends HTTP requests and receives HTTP
responses, use a custom HTTPDoer, or build the client with New:

	client, err := requests.New(
		requests.WithTimeout(10*time.Second),
		requests.WithThrottle(5, 1),
		requests.WithUserAgent("my-app/1.0"),
	)

Deadlines race the request up to the response headers. A request which
misses its deadline fails with an error for which the Timeout method
reports true, and a response which arrives too late is closed.

To hook into the fine-grained details of the client's request execution
logic, install a handler into the appropriate handler chain:

	handlers := &requests.HandlerGroup{}
	handlers.PushBack(requests.BeforeSend, requests.HandlerFunc(
		func(_ requests.Event, e *request.Execution) {
			logger.Info("sending", "url", e.Request.URL.String())
		}),
	)
	client := &requests.Client{
		Handlers: handlers,
	}

Package requests provides basic interfaces for the client (Doer,
Requester and IdleCloser); a combined interface with one method per
HTTP verb (Executor); and utility functions for working with a Doer
(Inflate, Request, Get, Head, Post, Put, Patch, Delete and Options).

Ready-made handlers live in package metrics (Prometheus) and package
tracing (OpenTelemetry). Package sink has body consumers which save a
body to a file or an object storage bucket, and package config builds a
client from a YAML file.
*/
package requests
