// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tracing

import (
	"net/http"

	"github.com/gofetch/requests"
	"github.com/gofetch/requests/request"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of the default tracer.
const TracerName = "github.com/gofetch/requests/tracing"

type spanKey struct{}

// A Handler is an event handler which wraps each plan execution in a
// client span and propagates the span context to the server in the
// request headers.
type Handler struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// Option configures a Handler.
type Option func(h *Handler)

// WithTracer sets the tracer used to start spans. The default is the
// tracer named TracerName from the global tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(h *Handler) {
		h.tracer = tracer
	}
}

// WithPropagator sets the propagator used to inject the span context
// into request headers. The default is the global propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(h *Handler) {
		h.propagator = p
	}
}

// New returns a Handler configured with the given options.
func New(opts ...Option) *Handler {
	h := &Handler{}
	for _, opt := range opts {
		opt(h)
	}
	if h.tracer == nil {
		h.tracer = otel.Tracer(TracerName)
	}
	if h.propagator == nil {
		h.propagator = otel.GetTextMapPropagator()
	}
	return h
}

// Install pushes the Handler onto the BeforeSend and AfterExecutionEnd
// events.
func (h *Handler) Install(g *requests.HandlerGroup) {
	g.PushBack(requests.BeforeSend, h)
	g.PushBack(requests.AfterExecutionEnd, h)
}

// Handle starts the span on BeforeSend and ends it on
// AfterExecutionEnd.
func (h *Handler) Handle(evt requests.Event, e *request.Execution) {
	switch evt {
	case requests.BeforeSend:
		h.start(e)
	case requests.AfterExecutionEnd:
		h.end(e)
	}
}

func (h *Handler) start(e *request.Execution) {
	if e.Request == nil {
		return
	}
	ctx, span := h.tracer.Start(e.Request.Context(), "HTTP "+e.Request.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", e.Request.Method),
			attribute.String("url.full", e.Request.URL.String()),
			attribute.String("server.address", e.Request.URL.Hostname()),
		),
	)
	e.Request = e.Request.WithContext(ctx)
	h.propagator.Inject(ctx, propagation.HeaderCarrier(e.Request.Header))
	e.SetValue(spanKey{}, span)
}

func (h *Handler) end(e *request.Execution) {
	span, ok := e.Value(spanKey{}).(trace.Span)
	if !ok {
		return
	}
	e.SetValue(spanKey{}, nil)

	if e.Deadline > 0 {
		span.SetAttributes(attribute.Int64("requests.deadline_ms", e.Deadline.Milliseconds()))
	}
	switch {
	case e.Err != nil:
		span.SetAttributes(attribute.Bool("requests.timeout", e.Timeout()))
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	case e.Response != nil:
		code := e.StatusCode()
		span.SetAttributes(attribute.Int("http.response.status_code", code))
		if code >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(code))
		}
	}
	span.End()
}
