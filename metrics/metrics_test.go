// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofetch/requests"
	"github.com/gofetch/requests/request"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("names", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := New("test", reg)
		c.RequestsTotal.WithLabelValues("GET", "h", "200").Inc()

		families, err := reg.Gather()
		require.NoError(t, err)
		names := make([]string, len(families))
		for i := range families {
			names[i] = families[i].GetName()
		}
		assert.Contains(t, names, "test_http_client_requests_total")
		assert.Contains(t, names, "test_http_client_requests_in_flight")
	})
	t.Run("duplicate", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		New("dup", reg)
		assert.Panics(t, func() { New("dup", reg) })
	})
}

func TestCollector_Handle(t *testing.T) {
	plan, err := request.NewPlan("GET", "http://example.com/path")
	require.NoError(t, err)

	t.Run("response", func(t *testing.T) {
		c := New("resp", prometheus.NewRegistry())
		e := &request.Execution{Plan: plan, Start: time.Now()}

		c.Handle(requests.BeforeSend, e)
		assert.Equal(t, 1.0, testutil.ToFloat64(c.RequestsInFlight))

		e.Response = &http.Response{StatusCode: 404}
		e.End = e.Start.Add(300 * time.Millisecond)
		c.Handle(requests.AfterExecutionEnd, e)
		assert.Equal(t, 0.0, testutil.ToFloat64(c.RequestsInFlight))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.RequestsTotal.WithLabelValues("GET", "example.com", "404")))
		assert.Equal(t, 1, testutil.CollectAndCount(c.RequestDuration))

		e.BodySize = 1024
		c.Handle(requests.AfterReadBody, e)
		assert.Equal(t, 1, testutil.CollectAndCount(c.BodyBytes))
		assert.Equal(t, 0, testutil.CollectAndCount(c.BodyErrorsTotal))
	})
	t.Run("error", func(t *testing.T) {
		c := New("err", prometheus.NewRegistry())
		e := &request.Execution{Plan: plan, Start: time.Now()}

		c.Handle(requests.BeforeSend, e)
		e.Err = &url.Error{Op: "Get", URL: "http://example.com/path", Err: errors.New("refused")}
		e.End = time.Now()
		c.Handle(requests.AfterExecutionEnd, e)

		assert.Equal(t, 0.0, testutil.ToFloat64(c.RequestsInFlight))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.RequestsTotal.WithLabelValues("GET", "example.com", StatusError)))
	})
	t.Run("not sent", func(t *testing.T) {
		c := New("unsent", prometheus.NewRegistry())
		e := &request.Execution{Plan: plan, Start: time.Now(), Err: errors.New("x")}

		c.Handle(requests.AfterExecutionEnd, e)
		c.Handle(requests.AfterExecutionEnd, e)

		assert.Equal(t, 0.0, testutil.ToFloat64(c.RequestsInFlight), "in flight must not go negative")
	})
	t.Run("timeout", func(t *testing.T) {
		c := New("to", prometheus.NewRegistry())
		e := &request.Execution{Plan: plan}

		c.Handle(requests.AfterTimeout, e)

		assert.Equal(t, 1.0, testutil.ToFloat64(c.TimeoutsTotal.WithLabelValues("GET", "example.com")))
	})
	t.Run("body error", func(t *testing.T) {
		c := New("body", prometheus.NewRegistry())
		e := &request.Execution{Plan: plan, BodySize: 10, BodyErr: io.ErrUnexpectedEOF}

		c.Handle(requests.AfterReadBody, e)

		assert.Equal(t, 1.0, testutil.ToFloat64(c.BodyErrorsTotal.WithLabelValues("GET", "example.com")))
	})
}

func TestCollector_Client(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 500))
	})
	mux.HandleFunc("/slow", func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	host := strings.TrimPrefix(server.URL, "http://")

	reg := prometheus.NewRegistry()
	c := New("client", reg)
	var handlers requests.HandlerGroup
	c.Install(&handlers)
	cl := &requests.Client{Handlers: &handlers}
	ctx := context.Background()

	resp, err := cl.Get(ctx, server.URL+"/ok")
	require.NoError(t, err)
	body, err := resp.Content(ctx)
	require.NoError(t, err)
	assert.Len(t, body, 500)

	_, err = cl.Get(ctx, server.URL+"/slow", request.Timeout(20*time.Millisecond))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.RequestsTotal.WithLabelValues("GET", host, "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RequestsTotal.WithLabelValues("GET", host, StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.TimeoutsTotal.WithLabelValues("GET", host)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.RequestsInFlight))
	assert.Equal(t, 1, testutil.CollectAndCount(c.BodyBytes))
}
