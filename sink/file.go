// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// A File is a tee.Sink which streams a response body to a temporary
// file next to its destination and renames it into place when the body
// ends successfully. If the body fails, or the checksum or size do not
// match, the temporary file is removed and the destination is left
// untouched.
type File struct {
	path    string
	logger  *slog.Logger
	opts    options
	file    *os.File
	w       io.Writer
	n       int64
	err     error
	done    chan struct{}
	started time.Time
}

// NewFile creates the temporary file for a download to path. Progress
// and failures are logged to logger; a nil logger means
// slog.Default().
func NewFile(path string, logger *slog.Logger, optFns ...Option) (*File, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	file, err := os.CreateTemp(filepath.Dir(path), ".requests-dl-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	f := &File{
		path:    path,
		logger:  logger,
		opts:    opts,
		file:    file,
		done:    make(chan struct{}),
		started: time.Now(),
	}
	f.w = file
	if opts.checksum != nil {
		f.w = io.MultiWriter(f.w, opts.checksum)
	}
	if opts.progress {
		f.w = &progressWriter{
			w:         f.w,
			logger:    logger.With("path", path),
			total:     opts.sizeOrUnknown(),
			startTime: f.started,
		}
	}
	return f, nil
}

// Path returns the destination path.
func (f *File) Path() string {
	return f.path
}

func (f *File) Receive(p []byte) error {
	n, err := f.w.Write(p)
	f.n += int64(n)
	if err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	return nil
}

func (f *File) Finish(err error) {
	if err == nil {
		err = f.commit()
	}
	if err != nil {
		f.discard()
		f.logger.Error("requests/sink: download failed", "path", f.path, "err", err)
	}
	f.err = err
	close(f.done)
}

// Wait blocks until the download ends or ctx is done. It returns the
// number of bytes written and nil once the file is in place.
func (f *File) Wait(ctx context.Context) (int64, error) {
	select {
	case <-f.done:
		return f.n, f.err
	case <-ctx.Done():
		return 0, context.Cause(ctx)
	}
}

func (f *File) commit() error {
	if f.opts.size != nil && f.n != *f.opts.size {
		return &Error{
			Err:    ErrSizeMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", *f.opts.size, f.n),
		}
	}
	if err := f.opts.checksum.Verify(); err != nil {
		return err
	}
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := f.file.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(f.file.Name(), f.path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (f *File) discard() {
	if err := f.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		f.logger.Error("requests/sink: closing temp file", "err", err)
	}
	if err := os.Remove(f.file.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.logger.Error("requests/sink: removing temp file", "err", err)
	}
}
