// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package metrics records Prometheus metrics for the plan executions of a
requests.Client.

	var handlers requests.HandlerGroup
	metrics.New("myapp", prometheus.DefaultRegisterer).Install(&handlers)
	cl := &requests.Client{Handlers: &handlers}

The Collector counts requests by method, host and status, observes the
time to response headers, tracks requests in flight, counts timeouts,
and observes the size of response bodies as they finish streaming.
*/
package metrics
