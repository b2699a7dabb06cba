// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/gofetch/requests"
	"github.com/gofetch/requests/config"
	"github.com/gofetch/requests/request"
	"github.com/gofetch/requests/sink"
	"github.com/gofetch/requests/tee"
	"github.com/gofetch/requests/transient"
)

// runFetch makes one request and delivers the response body to every
// requested output. An empty method means the method comes from -X.
func runFetch(method string, args []string, stdout, stderr io.Writer) int {
	name := method
	if name == "" {
		name = "request"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var headers, params, form, fileFlags, cookieFlags multiFlag
	configPath := fs.String("config", "", "YAML configuration file")
	verb := fs.String("X", "", "Request method (request command only)")
	timeout := fs.Duration("timeout", 0, "Deadline for the response headers (overrides config)")
	userAgent := fs.String("A", "", "User-Agent header (overrides config)")
	fs.Var(&headers, "H", "Request header 'Name: value' (repeatable)")
	fs.Var(&params, "p", "Query parameter key=value (repeatable)")
	fs.Var(&form, "form", "Form field key=value (repeatable)")
	fs.Var(&fileFlags, "F", "File to upload field=@path (repeatable)")
	fs.Var(&cookieFlags, "b", "Cookie name=value (repeatable)")
	raw := fs.String("d", "", "Raw request body, or @path to read it from a file")
	auth := fs.String("u", "", "Basic auth user:password")
	output := fs.String("o", "", "Write the body to this file")
	bucketURL := fs.String("bucket", "", "Write the body to this bucket URL (overrides config)")
	key := fs.String("key", "", "Object key for -bucket")
	checksum := fs.String("sha256", "", "Expected hex SHA-256 of the body written by -o or -bucket")
	progress := fs.Bool("progress", false, "Log progress of -o and -bucket writes")
	include := fs.Bool("i", false, "Print the status line and headers")
	unbuffered := fs.Bool("unbuffered", false, "Stream the body without buffering it (single output only)")
	noRedirects := fs.Bool("no-redirects", false, "Do not follow redirects")
	fail := fs.Bool("f", false, "Exit with an error on HTTP status 400 and above, without output")
	verbose := fs.Bool("v", false, "Debug logging")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: requests %s [options] URL\n\nOptions:\n", name)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: exactly one URL is required")
		fs.Usage()
		return ExitInvalidArgs
	}
	target := fs.Arg(0)
	if method == "" {
		if *verb == "" {
			fmt.Fprintln(stderr, "Error: -X is required by the request command")
			return ExitInvalidArgs
		}
		method = *verb
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(stderr, "Error loading config: %v\n", err)
			return ExitInvalidArgs
		}
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["timeout"] {
		cfg.Timeout = *timeout
	}
	if set["A"] {
		cfg.UserAgent = *userAgent
	}
	if *noRedirects {
		cfg.FollowRedirects = false
	}
	if set["bucket"] {
		cfg.Bucket = *bucketURL
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	outputs := 0
	if *output != "" {
		outputs++
	}
	if cfg.Bucket != "" {
		outputs++
		if *key == "" {
			fmt.Fprintln(stderr, "Error: -key is required with a bucket")
			return ExitInvalidArgs
		}
	}
	if *unbuffered && outputs > 1 {
		fmt.Fprintln(stderr, "Error: -unbuffered allows a single output")
		return ExitInvalidArgs
	}

	opts := cfg.RequestOptions()
	hopts, err := headerOptions(headers)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	opts = append(opts, hopts...)
	if len(params) > 0 {
		ps, err := pairs("p", params)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		opts = append(opts, request.Params(ps))
	}
	if len(form) > 0 {
		ps, err := pairs("form", form)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		opts = append(opts, request.Data(ps))
	}
	if *raw != "" {
		body, err := data(*raw)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading body: %v\n", err)
			return ExitInvalidArgs
		}
		opts = append(opts, request.Data(body))
	}
	if len(fileFlags) > 0 {
		fl, closeFiles, err := files(fileFlags)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		defer closeFiles()
		opts = append(opts, request.Files(fl...))
	}
	if len(cookieFlags) > 0 {
		cs, err := cookies(cookieFlags)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		opts = append(opts, request.Cookies(cs...))
	}
	if *auth != "" {
		user, pass, _ := strings.Cut(*auth, ":")
		opts = append(opts, request.Auth(user, pass))
	}
	if *unbuffered {
		opts = append(opts, request.Unbuffered())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := cfg.Logger(stderr)
	cl, err := cfg.NewClient(logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	defer cl.CloseIdleConnections()

	resp, err := requests.Request(ctx, cl, method, target, opts...)
	if err != nil {
		return requestFailed(stderr, err)
	}
	defer resp.Close()

	if *fail && resp.StatusCode >= 400 {
		fmt.Fprintf(stderr, "Error: %s\n", resp.Status)
		return ExitHTTPError
	}
	if *include {
		fmt.Fprintf(stdout, "%s %s\n", resp.Execution.Response.Proto, resp.Status)
		_ = resp.Header.Write(stdout)
		fmt.Fprintln(stdout)
	}

	var fileOpts []sink.Option
	if n := resp.Execution.Response.ContentLength; n >= 0 && resp.Execution.Plan.Method != http.MethodHead {
		fileOpts = append(fileOpts, sink.WithSize(n))
	}
	if *progress {
		fileOpts = append(fileOpts, sink.WithProgress())
	}
	withChecksum := func() []sink.Option {
		if *checksum == "" {
			return fileOpts
		}
		return append(fileOpts[:len(fileOpts):len(fileOpts)], sink.WithChecksum(sha256.New(), *checksum))
	}

	var waits []func(context.Context) error
	if *output != "" {
		f, err := sink.NewFile(*output, logger, withChecksum()...)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitStorageError
		}
		resp.Deliver(f)
		waits = append(waits, func(ctx context.Context) error {
			_, err := f.Wait(ctx)
			return err
		})
	}
	if cfg.Bucket != "" {
		bkt, err := blob.OpenBucket(ctx, cfg.Bucket)
		if err != nil {
			fmt.Fprintf(stderr, "Error opening bucket: %v\n", err)
			return ExitStorageError
		}
		defer bkt.Close()
		b, err := sink.NewBlob(ctx, bkt, *key, nil, logger, withChecksum()...)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitStorageError
		}
		resp.Deliver(b)
		waits = append(waits, func(ctx context.Context) error {
			_, err := b.Wait(ctx)
			return err
		})
	}
	if outputs == 0 {
		ws := tee.NewWriterSink(stdout)
		resp.Deliver(ws)
		waits = append(waits, func(ctx context.Context) error {
			_, err := ws.Wait(ctx)
			return err
		})
	}

	code := ExitSuccess
	for _, wait := range waits {
		if err := wait(ctx); err != nil {
			code = max(code, bodyFailed(stderr, err))
		}
	}
	logger.Debug("requests: done", "status", resp.StatusCode,
		"bytes", resp.Execution.BodySize, "elapsed", time.Since(resp.Execution.Start).Round(time.Millisecond))
	return code
}

func requestFailed(stderr io.Writer, err error) int {
	var cfgErr *request.ConfigError
	if errors.As(err, &cfgErr) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	if transient.Categorize(err) == transient.Timeout {
		return ExitTimeout
	}
	return ExitRequestFailed
}

func bodyFailed(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	var urlErr *url.Error
	switch {
	case errors.Is(err, sink.ErrChecksumMismatch), errors.Is(err, sink.ErrSizeMismatch):
		return ExitValidationFailed
	case errors.As(err, &urlErr):
		if transient.Categorize(err) == transient.Timeout {
			return ExitTimeout
		}
		return ExitRequestFailed
	default:
		return ExitStorageError
	}
}
