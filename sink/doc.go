// Copyright 2021 The requests Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package sink provides response body consumers which persist the body:
File writes it atomically to the local file system and Blob writes it
to a gocloud.dev/blob bucket.

Both are tee.Sink values, so they can be delivered a response body
alongside any other consumer:

	f, err := sink.NewFile("out.tar.gz", logger,
		sink.WithSize(resp.Execution.Response.ContentLength),
		sink.WithChecksum(sha256.New(), want))
	if err != nil {
		return err
	}
	resp.Deliver(f)
	n, err := f.Wait(ctx)
*/
package sink
