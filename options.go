// Copyright 2024 The gunzip Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package gunzip

import "log"

// Progress describes one gzip member as it finishes decompressing, passed
// to any WithProgress callback.
type Progress struct {
	Member     int
	Name       string
	BytesOut   uint64
	CRC32      uint32
}

type options struct {
	logger       *log.Logger
	onProgress   func(Progress)
	strictHeader bool
}

// Option configures Decompress and NewReader.
type Option func(*options)

// WithLogger directs diagnostic messages (one per member, one per error)
// to l instead of the default logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProgress registers fn to be called after each member finishes
// decompressing successfully.
func WithProgress(fn func(Progress)) Option {
	return func(o *options) { o.onProgress = fn }
}

// WithStrictHeader rejects gzip members whose FLG byte sets any of the three
// reserved high bits (RFC 1952 §2.3.1 leaves bits 5-7 reserved and mandates
// they be zero). Most real-world encoders clear them and most decoders,
// including this one by default, ignore them rather than fail a stream
// over reserved bits nothing sets in practice.
func WithStrictHeader() Option {
	return func(o *options) { o.strictHeader = true }
}

func newOptions(opts []Option) *options {
	o := &options{logger: log.Default()}
	for _, fn := range opts {
		fn(o)
	}
	return o
}
