// Copyright 2024 The gunzip Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package deflate

import (
	"bytes"
	"errors"
	"testing"
)

// fixedWriter mimics a fixed-capacity sink (like writing into a pre-sized
// slice): it accepts bytes up to its remaining capacity and silently
// truncates the rest, returning a short count with no error, rather than
// growing or erroring. Used to exercise TrackingWriter's short-write
// handling.
type fixedWriter struct {
	buf []byte
	n   int
}

func (f *fixedWriter) Write(p []byte) (int, error) {
	room := len(f.buf) - f.n
	if room > len(p) {
		room = len(p)
	}
	copy(f.buf[f.n:], p[:room])
	f.n += room
	return room, nil
}

func TestTrackingWriterShortWrite(t *testing.T) {
	sink := &fixedWriter{buf: make([]byte, 10)}
	w := NewTrackingWriter(sink)

	if n, err := w.Write([]byte{1, 2, 3, 4}); n != 4 || err != nil {
		t.Fatalf("Write: got (%d, %v), want (4, nil)", n, err)
	}
	if got := w.ByteCount(); got != 4 {
		t.Errorf("ByteCount: got %d, want 4", got)
	}

	if n, err := w.Write([]byte{4, 8, 15, 16, 23}); n != 5 || err != nil {
		t.Fatalf("Write: got (%d, %v), want (5, nil)", n, err)
	}
	if got := w.ByteCount(); got != 9 {
		t.Errorf("ByteCount: got %d, want 9", got)
	}

	if n, err := w.Write([]byte{0, 0, 123}); n != 1 || err != nil {
		t.Fatalf("Write: got (%d, %v), want (1, nil)", n, err)
	}
	if got := w.ByteCount(); got != 10 {
		t.Errorf("ByteCount: got %d, want 10", got)
	}

	if n, err := w.Write([]byte{42, 124, 234, 27}); n != 0 || err != nil {
		t.Fatalf("Write: got (%d, %v), want (0, nil)", n, err)
	}
	if got := w.ByteCount(); got != 10 {
		t.Errorf("ByteCount: got %d, want 10", got)
	}
	if got := w.CRC32(); got != 2992191065 {
		t.Errorf("CRC32: got %d, want 2992191065", got)
	}
}

func TestTrackingWriterWritePrevious(t *testing.T) {
	var sink bytes.Buffer
	w := NewTrackingWriter(&sink)

	for i := 0; i <= 255; i++ {
		if err := w.writeByte(byte(i)); err != nil {
			t.Fatalf("writeByte(%d): %v", i, err)
		}
	}

	if err := w.WritePrevious(192, 128); err != nil {
		t.Fatalf("WritePrevious(192, 128): %v", err)
	}
	if got := w.ByteCount(); got != 384 {
		t.Errorf("ByteCount: got %d, want 384", got)
	}

	if err := w.WritePrevious(10000, 20); !errors.Is(err, ErrBadBackReference) {
		t.Errorf("WritePrevious(10000, 20): got %v, want ErrBadBackReference", err)
	}
	if got := w.ByteCount(); got != 384 {
		t.Errorf("ByteCount after failed WritePrevious: got %d, want 384", got)
	}

	if err := w.WritePrevious(0, 1); !errors.Is(err, ErrBadBackReference) {
		t.Errorf("WritePrevious(0, 1): got %v, want ErrBadBackReference", err)
	}
	if err := w.WritePrevious(1, 0); !errors.Is(err, ErrBadBackReference) {
		t.Errorf("WritePrevious(1, 0): got %v, want ErrBadBackReference", err)
	}

	// Unlike a fixed-capacity sink, an unbounded one happily accepts a
	// back-reference spanning its entire history so far.
	if err := w.WritePrevious(256, 256); err != nil {
		t.Fatalf("WritePrevious(256, 256): %v", err)
	}
	if got := w.ByteCount(); got != 640 {
		t.Errorf("ByteCount: got %d, want 640", got)
	}

	if err := w.WritePrevious(1, 1); err != nil {
		t.Fatalf("WritePrevious(1, 1): %v", err)
	}
	if got := w.ByteCount(); got != 641 {
		t.Errorf("ByteCount: got %d, want 641", got)
	}
}

func TestTrackingWriterWritePreviousOverlapped(t *testing.T) {
	sink := &fixedWriter{buf: make([]byte, 10)}
	w := NewTrackingWriter(sink)

	if err := w.writeByte(0b11110000); err != nil {
		t.Fatal(err)
	}
	if err := w.writeByte(0b00001111); err != nil {
		t.Fatal(err)
	}

	if err := w.WritePrevious(2, 8); err != nil {
		t.Fatalf("WritePrevious(2, 8): %v", err)
	}
	if got := w.ByteCount(); got != 10 {
		t.Errorf("ByteCount: got %d, want 10", got)
	}
	if got := w.CRC32(); got != 3148311779 {
		t.Errorf("CRC32: got %d, want 3148311779", got)
	}

	want := []byte{0xF0, 0x0F, 0xF0, 0x0F, 0xF0, 0x0F, 0xF0, 0x0F, 0xF0, 0x0F}
	if !bytes.Equal(sink.buf, want) {
		t.Errorf("sink contents: got %v, want %v", sink.buf, want)
	}
}

func TestTrackingWriterHistoryWraps(t *testing.T) {
	var sink bytes.Buffer
	w := NewTrackingWriter(&sink)

	pattern := bytes.Repeat([]byte{0xAB}, historySize+100)
	pattern[len(pattern)-1] = 0xCD
	if _, err := w.Write(pattern); err != nil {
		t.Fatal(err)
	}

	if err := w.WritePrevious(1, 3); err != nil {
		t.Fatalf("WritePrevious(1, 3): %v", err)
	}
	got := sink.Bytes()[sink.Len()-3:]
	want := []byte{0xCD, 0xCD, 0xCD}
	if !bytes.Equal(got, want) {
		t.Errorf("tail after wraparound back-reference: got %v, want %v", got, want)
	}
}
