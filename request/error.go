// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"fmt"
)

// ErrDataWithFiles is reported when a raw request body is combined
// with file uploads. Only form data can be sent alongside files.
var ErrDataWithFiles = errors.New("raw data cannot be combined with files")

// A ConfigError reports a request plan which cannot be built from the
// given method, URL and options. It is always returned before any
// network activity takes place.
type ConfigError struct {
	// Option names the offending part of the request, for example
	// "method", "params" or "header".
	Option string
	// Err is the underlying problem.
	Err error
}

func (err *ConfigError) Error() string {
	return "requests/request: invalid " + err.Option + ": " + err.Err.Error()
}

func (err *ConfigError) Unwrap() error {
	return err.Err
}

func configErrorf(option, format string, a ...interface{}) *ConfigError {
	return &ConfigError{Option: option, Err: fmt.Errorf(format, a...)}
}
