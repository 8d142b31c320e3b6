// Copyright 2024 The gunzip Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package gunzip

import "io"

// reader adapts the push-style Decompress function to the pull-style
// io.Reader interface by running the decompressor in its own goroutine,
// writing into one end of an io.Pipe.
type reader struct {
	pr    *io.PipeReader
	errCh chan error
}

// NewReader returns an io.Reader that lazily decompresses r as it is read.
// Any error encountered by the underlying Decompress call, including a
// final CRC-32 or ISIZE mismatch, surfaces from Read once reached.
func NewReader(r io.Reader, opts ...Option) io.Reader {
	pr, pw := io.Pipe()
	errCh := make(chan error, 1)

	go func() {
		err := Decompress(pw, r, opts...)
		errCh <- err
		close(errCh)
		pw.CloseWithError(err)
	}()

	return &reader{pr: pr, errCh: errCh}
}

// Read implements io.Reader.
func (rd *reader) Read(buf []byte) (int, error) {
	return rd.pr.Read(buf)
}
