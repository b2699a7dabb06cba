// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gocloud.dev/blob"
)

// A Blob is a tee.Sink which streams a response body to an object in
// a gocloud.dev/blob bucket. The object becomes visible only when the
// body ends successfully and passes verification; otherwise the write
// is aborted.
type Blob struct {
	key    string
	logger *slog.Logger
	opts   options
	writer *blob.Writer
	cancel context.CancelFunc
	w      io.Writer
	n      int64
	err    error
	done   chan struct{}
}

// NewBlob opens a writer for key in bucket. wopts may be nil. The
// write is bound to ctx: cancelling ctx aborts it.
func NewBlob(ctx context.Context, bucket *blob.Bucket, key string, wopts *blob.WriterOptions, logger *slog.Logger, optFns ...Option) (*Blob, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	writer, err := bucket.NewWriter(ctx, key, wopts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create blob writer: %w", err)
	}

	b := &Blob{
		key:    key,
		logger: logger,
		opts:   opts,
		writer: writer,
		cancel: cancel,
		w:      writer,
		done:   make(chan struct{}),
	}
	if opts.checksum != nil {
		b.w = io.MultiWriter(b.w, opts.checksum)
	}
	if opts.progress {
		b.w = &progressWriter{
			w:         b.w,
			logger:    logger.With("key", key),
			total:     opts.sizeOrUnknown(),
			startTime: time.Now(),
		}
	}
	return b, nil
}

// Key returns the object key.
func (b *Blob) Key() string {
	return b.key
}

func (b *Blob) Receive(p []byte) error {
	n, err := b.w.Write(p)
	b.n += int64(n)
	if err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

func (b *Blob) Finish(err error) {
	defer close(b.done)
	defer b.cancel()

	if err == nil {
		err = b.verify()
	}
	if err != nil {
		// Closing after cancel aborts the write.
		b.cancel()
		_ = b.writer.Close()
		b.logger.Error("requests/sink: blob upload failed", "key", b.key, "err", err)
		b.err = err
		return
	}
	if err = b.writer.Close(); err != nil {
		b.err = fmt.Errorf("close blob writer: %w", err)
	}
}

// Wait blocks until the upload ends or ctx is done. It returns the
// number of bytes written and nil once the object is committed.
func (b *Blob) Wait(ctx context.Context) (int64, error) {
	select {
	case <-b.done:
		return b.n, b.err
	case <-ctx.Done():
		return 0, context.Cause(ctx)
	}
}

func (b *Blob) verify() error {
	if b.opts.size != nil && b.n != *b.opts.size {
		return &Error{
			Err:    ErrSizeMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", *b.opts.size, b.n),
		}
	}
	return b.opts.checksum.Verify()
}
