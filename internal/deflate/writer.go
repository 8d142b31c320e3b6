// Copyright 2024 The gunzip Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package deflate

import (
	"fmt"
	"hash/crc32"
	"io"
)

// historySize is the maximum span of a DEFLATE back-reference (RFC 1951
// §3.2.5): once the writer has emitted at least this many bytes, the history
// window caps here permanently rather than growing further.
const historySize = 32768

// TrackingWriter forwards bytes to an output sink while maintaining the
// sliding window of the last historySize bytes needed to resolve
// length/distance back-references, a running CRC-32/ISO-HDLC digest, and a
// total byte count. CRC-32/ISO-HDLC is exactly the reflected, polynomial
// 0xEDB88320 checksum hash/crc32.IEEETable already implements, so no custom
// bit-reversal is needed here (contrast a non-reflected CRC, which would
// need one).
type TrackingWriter struct {
	sink    io.Writer
	history []byte // ring buffer, logically ordered oldest-to-newest via start
	start   int    // index of the oldest byte in history, when len(history) == historySize
	digest  uint32
	count   uint64
}

// NewTrackingWriter returns a TrackingWriter forwarding to sink.
func NewTrackingWriter(sink io.Writer) *TrackingWriter {
	return &TrackingWriter{
		sink:    sink,
		history: make([]byte, 0, historySize),
	}
}

// Write forwards buf to the sink, advancing the history, digest, and byte
// count only by the prefix the sink actually accepted (a short write is
// reported, not treated as an error).
func (w *TrackingWriter) Write(buf []byte) (int, error) {
	n, err := w.sink.Write(buf)
	if n > 0 {
		w.appendHistory(buf[:n])
		w.digest = crc32.Update(w.digest, crc32.IEEETable, buf[:n])
		w.count += uint64(n)
	}
	return n, err
}

// writeByte is a convenience used for single-literal emission in the block
// engine's decode loop.
func (w *TrackingWriter) writeByte(b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func (w *TrackingWriter) appendHistory(buf []byte) {
	if len(buf) >= historySize {
		// Only the tail can possibly remain visible.
		buf = buf[len(buf)-historySize:]
		w.history = append(w.history[:0], buf...)
		w.start = 0
		return
	}
	if len(w.history)+len(buf) <= historySize {
		w.history = append(w.history, buf...)
		return
	}
	// The ring fills up within buf: append until full, then overwrite
	// starting at start, wrapping as needed.
	for _, b := range buf {
		if len(w.history) < historySize {
			w.history = append(w.history, b)
		} else {
			w.history[w.start] = b
			w.start = (w.start + 1) % historySize
		}
	}
}

// historyAt returns the byte i positions before the current write position
// (i=0 is the most recently written byte), assuming i < len(w.history).
func (w *TrackingWriter) historyAt(i int) byte {
	n := len(w.history)
	if n < historySize {
		return w.history[n-1-i]
	}
	idx := (w.start + n - 1 - i) % historySize
	return w.history[idx]
}

// WritePrevious copies len bytes from dist bytes behind the current output
// position (a DEFLATE LZ77 back-reference). When len > dist the copy must
// see its own output: the source window is snapshotted by size and starting
// offset before any bytes are emitted, then indexed cyclically modulo dist,
// so e.g. dist=1 replicates the last byte len times.
func (w *TrackingWriter) WritePrevious(dist, length int) error {
	if dist <= 0 || length <= 0 || dist > len(w.history) {
		return fmt.Errorf("%w: dist=%d len=%d history=%d", ErrBadBackReference, dist, length, len(w.history))
	}

	// Snapshot the dist bytes ending at the current position before any
	// writes occur, so that later indices wrap into bytes this call itself
	// produced, never into bytes written after the call returns.
	window := make([]byte, dist)
	for i := 0; i < dist; i++ {
		window[dist-1-i] = w.historyAt(i)
	}

	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = window[i%dist]
	}

	_, err := w.Write(out)
	return err
}

// ByteCount returns the number of bytes successfully forwarded to the sink
// so far.
func (w *TrackingWriter) ByteCount() uint64 {
	return w.count
}

// CRC32 returns the CRC-32/ISO-HDLC checksum over every byte forwarded to
// the sink.
func (w *TrackingWriter) CRC32() uint32 {
	return w.digest
}

// Flush delegates to the sink if it supports flushing.
func (w *TrackingWriter) Flush() error {
	if f, ok := w.sink.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
