// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command requests makes an HTTP request and writes the response body
// to standard output, a file, an object storage bucket, or several of
// these at once.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitInvalidArgs      = 2
	ExitRequestFailed    = 3
	ExitTimeout          = 4
	ExitStorageError     = 5
	ExitHTTPError        = 6
	ExitValidationFailed = 7
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return ExitInvalidArgs
	}

	command := strings.ToLower(args[0])
	cmdArgs := args[1:]

	switch command {
	case "get", "head", "post", "put", "patch", "delete", "options":
		return runFetch(command, cmdArgs, stdout, stderr)
	case "request":
		return runFetch("", cmdArgs, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stderr)
		return ExitSuccess
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return ExitInvalidArgs
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: requests <command> [options] URL

Commands:
  get, head, post, put, patch, delete, options
            Make a request with the given method
  request   Make a request with the method given by -X

Run 'requests <command> -h' for command-specific help.`)
}
