// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gofetch/requests/request"
)

// multiFlag collects the values of a repeatable flag.
type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ", ")
}

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

// headerOptions parses "Name: value" flags.
func headerOptions(values []string) ([]request.Option, error) {
	opts := make([]request.Option, 0, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header %q: want Name: value", v)
		}
		opts = append(opts, request.Header(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	return opts, nil
}

// pairs parses "key=value" flags, keeping their order.
func pairs(flagName string, values []string) ([]request.Pair, error) {
	out := make([]request.Pair, 0, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid -%s %q: want key=value", flagName, v)
		}
		out = append(out, request.Pair{Key: key, Value: value})
	}
	return out, nil
}

// cookies parses "name=value" flags.
func cookies(values []string) ([]*http.Cookie, error) {
	ps, err := pairs("b", values)
	if err != nil {
		return nil, err
	}
	out := make([]*http.Cookie, len(ps))
	for i, p := range ps {
		out[i] = &http.Cookie{Name: p.Key, Value: p.Value}
	}
	return out, nil
}

// files parses "field=@path" flags and opens the files. The caller
// must close them.
func files(values []string) ([]request.File, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	out := make([]request.File, 0, len(values))
	for _, v := range values {
		field, path, ok := strings.Cut(v, "=@")
		if !ok || field == "" || path == "" {
			closeAll()
			return nil, nil, fmt.Errorf("invalid -F %q: want field=@path", v)
		}
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, f)
		out = append(out, request.File{Field: field, Content: f})
	}
	return out, closeAll, nil
}

// data returns the raw body given by -d: the literal value, or the
// contents of a file when the value starts with '@'.
func data(v string) (interface{}, error) {
	if !strings.HasPrefix(v, "@") {
		return v, nil
	}
	b, err := os.ReadFile(v[1:])
	if err != nil {
		return nil, err
	}
	return b, nil
}
