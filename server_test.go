// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package requests

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gofetch/requests/request"
	"github.com/gofetch/requests/timeout"
	"github.com/gorilla/mux"
)

var httpServer = httptest.NewUnstartedServer(newRouter())
var httpsServer = httptest.NewUnstartedServer(newRouter())
var http2Server = httptest.NewUnstartedServer(newRouter())
var servers = []*httptest.Server{httpServer, httpsServer, http2Server}

func TestMain(m *testing.M) {
	httpServer.Start()
	httpsServer.StartTLS()
	http2Server.EnableHTTP2 = true
	http2Server.StartTLS()
	waitForServerStart(httpServer)
	waitForServerStart(httpsServer)
	waitForServerStart(http2Server)
	code := m.Run()
	httpServer.Close()
	httpsServer.Close()
	http2Server.Close()
	os.Exit(code)
}

func waitForServerStart(server *httptest.Server) {
	cl := &Client{
		HTTPDoer:      server.Client(),
		TimeoutPolicy: timeout.Fixed(2 * time.Second),
	}
	var err error
	for i := 0; i < 20; i++ {
		var resp *Response
		p := (&serverInstruction{StatusCode: 200}).toPlan(context.Background(), "POST", server)
		resp, err = cl.Do(p)
		if err == nil && resp.StatusCode == 200 {
			_ = resp.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	panic(fmt.Sprintf("Test server startup failed with error %v", err))
}

func serverName(server *httptest.Server) string {
	switch server {
	case httpServer:
		return "http"
	case httpsServer:
		return "https"
	case http2Server:
		return "http2"
	default:
		panic("unknown server")
	}
}

func newRouter() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/instruct", instructionHandler).Methods("POST", "PUT", "PATCH", "DELETE")
	r.HandleFunc("/redirect", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/target", http.StatusFound)
	})
	r.HandleFunc("/target", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "target")
	})
	r.HandleFunc("/cookies/set/{name}/{value}", func(w http.ResponseWriter, req *http.Request) {
		vars := mux.Vars(req)
		http.SetCookie(w, &http.Cookie{Name: vars["name"], Value: vars["value"], Path: "/"})
		w.WriteHeader(http.StatusNoContent)
	})
	r.HandleFunc("/cookies", func(w http.ResponseWriter, req *http.Request) {
		m := make(map[string]string)
		for _, c := range req.Cookies() {
			m[c.Name] = c.Value
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m)
	})
	r.HandleFunc("/echo", func(w http.ResponseWriter, req *http.Request) {
		b, _ := io.ReadAll(req.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"method":      req.Method,
			"query":       req.URL.RawQuery,
			"contentType": req.Header.Get("Content-Type"),
			"userAgent":   req.Header.Get("User-Agent"),
			"body":        string(b),
		})
	})
	r.HandleFunc("/latin1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=ISO-8859-1")
		_, _ = w.Write([]byte{'c', 'a', 'f', 0xe9})
	})
	return r
}

type bodyChunk struct {
	Pause time.Duration
	Data  []byte
}

type serverInstruction struct {
	HeaderPause time.Duration
	StatusCode  int
	Body        []bodyChunk
}

func (i *serverInstruction) zero() bool {
	return i.HeaderPause == time.Duration(0) &&
		i.StatusCode == 0 &&
		i.Body == nil
}

func (i *serverInstruction) toJSON() []byte {
	if i.zero() {
		return nil
	}

	b, err := json.Marshal(i)
	if err != nil {
		panic(err)
	}

	return b
}

func (i *serverInstruction) toPlan(ctx context.Context, method string, server *httptest.Server, opts ...request.Option) *request.Plan {
	opts = append([]request.Option{request.Data(i.toJSON())}, opts...)
	p, err := request.NewPlanWithContext(ctx, method, server.URL+"/instruct", opts...)
	if err != nil {
		panic(err)
	}

	return p
}

func (i *serverInstruction) fromJSON(b []byte) error {
	return json.Unmarshal(b, i)
}

func (i *serverInstruction) fromRequest(req *http.Request) error {
	b, err := io.ReadAll(req.Body)
	_ = req.Body.Close()

	if err != nil {
		return err
	}

	return i.fromJSON(b)
}

func (i *serverInstruction) content() []byte {
	var b []byte
	for _, chunk := range i.Body {
		b = append(b, chunk.Data...)
	}
	return b
}

func instructionHandler(w http.ResponseWriter, req *http.Request) {
	// Decode the instructions.
	var i serverInstruction
	err := i.fromRequest(req)
	if err != nil {
		w.WriteHeader(400)
		_, _ = io.WriteString(w, fmt.Sprintf("failed to read request: %s", err.Error()))
		return
	}

	// Validate the instruction.
	if i.StatusCode == 0 {
		w.WriteHeader(400)
		_, _ = io.WriteString(w, fmt.Sprintf("bad StatusCode in instruction: %v", i))
		return
	}

	// Get the Flusher, panicking if it's not available.
	f, ok := w.(http.Flusher)
	if !ok {
		panic("w does not implement Flusher")
	}

	header := w.Header()
	header.Add("Content-Length", strconv.Itoa(len(i.content())))

	// Sleep for the duration indicated by the pause field. This is done
	// to allow the client to play with timeouts.
	select {
	case <-time.After(i.HeaderPause):
	case <-req.Context().Done():
		return
	}

	// Return the HTTP response stipulated by the client.
	w.WriteHeader(i.StatusCode)
	f.Flush()

	// Write the response in chunks, pausing before each chunk.
	for _, chunk := range i.Body {
		select {
		case <-time.After(chunk.Pause):
		case <-req.Context().Done():
			return
		}
		if _, err = w.Write(chunk.Data); err != nil {
			return
		}
		f.Flush()
	}
}
