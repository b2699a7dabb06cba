// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"strconv"

	"github.com/gofetch/requests"
	"github.com/gofetch/requests/request"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StatusError is the status label value recorded for executions which
// ended in an error instead of a response.
const StatusError = "error"

type inFlightKey struct{}

// A Collector is an event handler which records Prometheus metrics
// about plan executions. Install it in a HandlerGroup with Install.
type Collector struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	TimeoutsTotal    *prometheus.CounterVec
	BodyBytes        *prometheus.HistogramVec
	BodyErrorsTotal  *prometheus.CounterVec
}

// New creates a Collector whose metrics are named with the given
// namespace and registered with reg. If reg is nil, the metrics are
// registered with prometheus.DefaultRegisterer.
//
// New panics if the metrics cannot be registered, for example because
// a Collector with the same namespace is already registered with reg.
func New(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_client_requests_total",
				Help:      "Total number of HTTP requests executed",
			},
			[]string{"method", "host", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_client_request_duration_seconds",
				Help:      "Time until response headers were received or the request failed",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "host"},
		),
		RequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_client_requests_in_flight",
				Help:      "Number of HTTP requests sent and awaiting response headers",
			},
		),
		TimeoutsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_client_timeouts_total",
				Help:      "Total number of HTTP requests which timed out",
			},
			[]string{"method", "host"},
		),
		BodyBytes: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_client_response_body_bytes",
				Help:      "Size of response bodies read",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 10),
			},
			[]string{"method", "host"},
		),
		BodyErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_client_response_body_errors_total",
				Help:      "Total number of response bodies which ended in an error",
			},
			[]string{"method", "host"},
		),
	}
}

// Install pushes the Collector onto every event it handles.
func (c *Collector) Install(g *requests.HandlerGroup) {
	g.PushBack(requests.BeforeSend, c)
	g.PushBack(requests.AfterTimeout, c)
	g.PushBack(requests.AfterExecutionEnd, c)
	g.PushBack(requests.AfterReadBody, c)
}

// Handle records the metrics for one event.
func (c *Collector) Handle(evt requests.Event, e *request.Execution) {
	method, host := e.Plan.Method, e.Plan.URL.Host

	switch evt {
	case requests.BeforeSend:
		c.RequestsInFlight.Inc()
		e.SetValue(inFlightKey{}, true)
	case requests.AfterTimeout:
		c.TimeoutsTotal.WithLabelValues(method, host).Inc()
	case requests.AfterExecutionEnd:
		if e.Value(inFlightKey{}) == true {
			c.RequestsInFlight.Dec()
			e.SetValue(inFlightKey{}, false)
		}
		c.RequestsTotal.WithLabelValues(method, host, status(e)).Inc()
		c.RequestDuration.WithLabelValues(method, host).Observe(e.Duration().Seconds())
	case requests.AfterReadBody:
		c.BodyBytes.WithLabelValues(method, host).Observe(float64(e.BodySize))
		if e.BodyErr != nil {
			c.BodyErrorsTotal.WithLabelValues(method, host).Inc()
		}
	}
}

func status(e *request.Execution) string {
	if e.Err != nil || e.Response == nil {
		return StatusError
	}
	return strconv.Itoa(e.StatusCode())
}
