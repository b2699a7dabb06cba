// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sink

import (
	"errors"
	"hash"
)

// An Option configures a File or Blob sink.
type Option func(*options) error

type options struct {
	checksum *checksumVerifier
	progress bool
	size     *int64
}

func (o *options) sizeOrUnknown() int64 {
	if o.size == nil {
		return -1
	}
	return *o.size
}

// WithChecksum verifies the body against expected, the hex encoding
// of its digest under h (for example sha256.New()).
func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}
		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}
		opts.checksum = &checksumVerifier{hash: h, expected: expected}
		return nil
	}
}

// WithSize verifies the body is exactly n bytes long. A negative n,
// such as an unknown ContentLength, disables the check.
func WithSize(n int64) Option {
	return func(opts *options) error {
		if n < 0 {
			opts.size = nil
			return nil
		}
		opts.size = &n
		return nil
	}
}

// WithProgress logs progress at most once per second.
func WithProgress() Option {
	return func(opts *options) error {
		opts.progress = true
		return nil
	}
}
