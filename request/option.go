// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/net/http/httpguts"
)

// An Option configures one aspect of a request plan. Options are
// applied in order by NewPlan and NewPlanWithContext; an Option which
// cannot be applied reports a *ConfigError.
type Option func(b *builder) error

// A Pair is a single key/value pair. Use a slice of pairs instead of a
// map when the order of query parameters or form fields matters.
type Pair struct {
	Key   string
	Value string
}

// A File is a file to upload in a multipart/form-data request body.
type File struct {
	// Field is the form field name.
	Field string
	// Name is the file name sent to the server. If empty, and Content
	// has a Name method (for example *os.File), the base name of the
	// file is used.
	Name string
	// ContentType is the file's content type. If empty, it is guessed
	// from Name, falling back to application/octet-stream.
	ContentType string
	// Content supplies the file's bytes. It is read to the end when the
	// plan is built, and closed if it implements io.Closer.
	Content io.Reader
}

// builder accumulates option values until the plan is assembled.
type builder struct {
	params      []Pair
	header      http.Header
	form        []Pair
	raw         []byte
	hasRaw      bool
	json        []byte
	files       []File
	cookies     []*http.Cookie
	auth        *[2]string
	timeout     time.Duration
	hasTimeout  bool
	noRedirects bool
	unbuffered  bool
}

// Params adds query parameters to the URL. The value may be a
// url.Values, a map[string]string, a map[string][]string or a []Pair.
// Maps are encoded in sorted key order, a []Pair in slice order.
//
// The new parameters are appended to any query already present in the
// URL, which is kept as is.
func Params(v interface{}) Option {
	return func(b *builder) error {
		pairs, err := toPairs(v)
		if err != nil {
			return &ConfigError{Option: "params", Err: err}
		}
		b.params = append(b.params, pairs...)
		return nil
	}
}

// Header adds values to a request header. The name is canonicalized.
func Header(name string, values ...string) Option {
	return func(b *builder) error {
		if !httpguts.ValidHeaderFieldName(name) {
			return configErrorf("header", "invalid header name %q", name)
		}
		for _, v := range values {
			if !httpguts.ValidHeaderFieldValue(v) {
				return configErrorf("header", "invalid value for header %q", name)
			}
		}
		if b.header == nil {
			b.header = make(http.Header)
		}
		for _, v := range values {
			b.header.Add(name, v)
		}
		return nil
	}
}

// Headers adds every header in h. An http.Header may be passed
// directly.
func Headers(h map[string][]string) Option {
	return func(b *builder) error {
		names := make([]string, 0, len(h))
		for name := range h {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := Header(name, h[name]...)(b); err != nil {
				return err
			}
		}
		return nil
	}
}

// Data sets the request body.
//
// A url.Values, map[string]string, map[string][]string or []Pair is
// sent as an application/x-www-form-urlencoded form, or as form fields
// when combined with Files. A string, []byte or io.Reader is sent as
// is; an io.Reader is read to the end when the plan is built. A nil
// value does nothing.
func Data(v interface{}) Option {
	return func(b *builder) error {
		switch x := v.(type) {
		case nil:
			return nil
		case string:
			b.raw, b.hasRaw = []byte(x), true
			return nil
		case []byte:
			b.raw, b.hasRaw = x, true
			return nil
		case io.Reader:
			p, err := readAll(x)
			if err != nil {
				return &ConfigError{Option: "data", Err: err}
			}
			b.raw, b.hasRaw = p, true
			return nil
		}
		pairs, err := toPairs(v)
		if err != nil {
			return &ConfigError{Option: "data", Err: err}
		}
		b.form = append(b.form, pairs...)
		return nil
	}
}

// readAll reads r to the end and closes it if it is an io.Closer. It is
// closed even when the read fails.
func readAll(r io.Reader) ([]byte, error) {
	p, err := io.ReadAll(r)
	if c, ok := r.(io.Closer); ok {
		if closeErr := c.Close(); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// JSON sets the request body to the JSON encoding of v and the
// Content-Type header to application/json.
func JSON(v interface{}) Option {
	return func(b *builder) error {
		p, err := json.Marshal(v)
		if err != nil {
			return &ConfigError{Option: "json", Err: err}
		}
		b.json = p
		return nil
	}
}

// Files adds files to upload. A request with files is sent as
// multipart/form-data, with any form Data sent as fields before the
// files.
func Files(files ...File) Option {
	return func(b *builder) error {
		for i := range files {
			if files[i].Content == nil {
				return configErrorf("files", "file %q has no content", files[i].Field)
			}
		}
		b.files = append(b.files, files...)
		return nil
	}
}

// Cookies adds cookies to send with the request.
func Cookies(cookies ...*http.Cookie) Option {
	return func(b *builder) error {
		for _, c := range cookies {
			if c == nil {
				continue
			}
			if err := c.Valid(); err != nil {
				return &ConfigError{Option: "cookies", Err: err}
			}
			b.cookies = append(b.cookies, &http.Cookie{Name: c.Name, Value: c.Value})
		}
		return nil
	}
}

// CookieMap adds cookies from a name to value map, in sorted name
// order.
func CookieMap(m map[string]string) Option {
	return func(b *builder) error {
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		cookies := make([]*http.Cookie, len(names))
		for i, name := range names {
			cookies[i] = &http.Cookie{Name: name, Value: m[name]}
		}
		return Cookies(cookies...)(b)
	}
}

// Auth sets HTTP Basic Authentication credentials.
func Auth(username, password string) Option {
	return func(b *builder) error {
		b.auth = &[2]string{username, password}
		return nil
	}
}

// Timeout sets the deadline for receiving the response headers,
// overriding the client's timeout policy. Zero or negative disables the
// deadline for this request.
func Timeout(d time.Duration) Option {
	return func(b *builder) error {
		b.timeout = d
		b.hasTimeout = true
		return nil
	}
}

// AllowRedirects controls whether the client follows redirects. The
// default is to follow them.
func AllowRedirects(allow bool) Option {
	return func(b *builder) error {
		b.noRedirects = !allow
		return nil
	}
}

// Unbuffered streams the response body to a single consumer without
// keeping it in memory.
func Unbuffered() Option {
	return func(b *builder) error {
		b.unbuffered = true
		return nil
	}
}

func (b *builder) apply(p *Plan) error {
	if len(b.params) > 0 {
		p.URL.RawQuery = mergeQuery(p.URL.RawQuery, b.params)
	}

	for name, values := range b.header {
		p.Header[name] = values
	}

	if err := b.applyBody(p); err != nil {
		return err
	}

	p.Cookies = b.cookies
	if b.auth != nil {
		p.SetBasicAuth(b.auth[0], b.auth[1])
	}
	return nil
}

func (b *builder) applyBody(p *Plan) error {
	bodies := 0
	for _, set := range []bool{b.hasRaw, len(b.form) > 0, b.json != nil} {
		if set {
			bodies++
		}
	}

	switch {
	case len(b.files) > 0:
		if b.hasRaw || b.json != nil {
			return &ConfigError{Option: "data", Err: ErrDataWithFiles}
		}
		body, contentType, err := encodeMultipart(b.form, b.files)
		if err != nil {
			return &ConfigError{Option: "files", Err: err}
		}
		p.Body = body
		p.Header.Set("Content-Type", contentType)
	case bodies > 1:
		return configErrorf("data", "only one of raw data, form data and JSON may be set")
	case b.hasRaw:
		p.Body = b.raw
	case len(b.form) > 0:
		p.Body = []byte(encodePairs(b.form))
		setDefault(p.Header, "Content-Type", "application/x-www-form-urlencoded")
	case b.json != nil:
		p.Body = b.json
		setDefault(p.Header, "Content-Type", "application/json")
	}
	return nil
}

func setDefault(h http.Header, name, value string) {
	if h.Get(name) == "" {
		h.Set(name, value)
	}
}

func toPairs(v interface{}) ([]Pair, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []Pair:
		return x, nil
	case url.Values:
		return multiPairs(x), nil
	case map[string][]string:
		return multiPairs(x), nil
	case map[string]string:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]Pair, len(keys))
		for i, k := range keys {
			pairs[i] = Pair{k, x[k]}
		}
		return pairs, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func multiPairs(m map[string][]string) []Pair {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var pairs []Pair
	for _, k := range keys {
		for _, v := range m[k] {
			pairs = append(pairs, Pair{k, v})
		}
	}
	return pairs
}
