// Copyright 2024 The gunzip Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package gunzip implements RFC 1952 gzip decompression over an
// independent RFC 1951 DEFLATE engine, built without reliance on the
// standard library's compress/gzip or compress/flate packages.
package gunzip

import (
	"fmt"
	"io"

	"github.com/colinmarc/gunzip/internal/deflate"
	"github.com/colinmarc/gunzip/internal/gzipframe"
)

// Decompress reads one or more concatenated gzip members from r and writes
// their decompressed, concatenated contents to w, verifying each member's
// header CRC16 (when present), trailing CRC-32, and ISIZE along the way.
func Decompress(w io.Writer, r io.Reader, opts ...Option) error {
	o := newOptions(opts)
	gz := gzipframe.NewReader(r)
	gz.SetStrictHeader(o.strictHeader)

	o.logger.Print("gunzip: decompression started")

	member := 0
	for {
		empty, err := gz.IsEmpty()
		if err != nil {
			return fmt.Errorf("gunzip: checking for more members: %w", err)
		}
		if empty {
			break
		}

		if err := decompressMember(gz, w, o, member); err != nil {
			o.logger.Printf("gunzip: member %d: %v", member, err)
			return err
		}
		member++
	}

	o.logger.Printf("gunzip: decompression finished, %d member(s)", member)
	return nil
}

func decompressMember(gz *gzipframe.Reader, w io.Writer, o *options, member int) error {
	header, err := gz.ReadHeader()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	o.logger.Printf("gunzip: member %d: header read, name=%q", member, header.Name)

	dr := deflate.NewReader(gz.Underlying(), w)
	if err := dr.Decode(); err != nil {
		return fmt.Errorf("decoding deflate stream: %w", err)
	}

	// AlignToByte discards any unconsumed trailing bits so the footer, which
	// the encoder always starts on a byte boundary, is read correctly.
	dr.Underlying()

	footer, err := gz.ReadFooter(dr.ByteCount(), dr.CRC32())
	if err != nil {
		return fmt.Errorf("reading footer: %w", err)
	}

	if o.onProgress != nil {
		o.onProgress(Progress{
			Member:   member,
			Name:     header.Name,
			BytesOut: uint64(footer.ISIZE),
			CRC32:    footer.CRC32,
		})
	}
	return nil
}
