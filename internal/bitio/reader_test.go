// Copyright 2024 The gunzip Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bitio

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadBits(t *testing.T) {
	data := []byte{0x63, 0xDB, 0xAF}
	r := NewReader(bytes.NewReader(data))

	for i, tc := range []struct {
		n    uint8
		want uint16
	}{
		{1, 1},
		{2, 1},
		{3, 4},
		{4, 13},
		{5, 22},
		{8, 95},
	} {
		seq, err := r.ReadBits(tc.n)
		if err != nil {
			t.Fatalf("read %v: %v", i, err)
		}
		if got, want := seq.Bits, tc.want; got != want {
			t.Errorf("read %v: got %v, want %v", i, got, want)
		}
		if seq.Len != tc.n {
			t.Errorf("read %v: len got %v, want %v", i, seq.Len, tc.n)
		}
	}

	if _, err := r.ReadBits(2); !errors.Is(err, ErrUnexpectedEnd) {
		t.Errorf("got %v, want ErrUnexpectedEnd", err)
	}
}

func TestReadBitsZero(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	seq, err := r.ReadBits(0)
	if err != nil {
		t.Fatalf("ReadBits(0): %v", err)
	}
	if seq.Len != 0 || seq.Bits != 0 {
		t.Errorf("got %+v, want zero sequence", seq)
	}
}

func TestAlignToByte(t *testing.T) {
	data := []byte{0x63, 0xDB, 0xAF}
	r := NewReader(bytes.NewReader(data))

	seq, err := r.ReadBits(3)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := seq.Bits, uint16(0b011); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}

	br := r.AlignToByte()
	b, err := br.ReadByte()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := b, byte(0xDB); got != want {
		t.Fatalf("got %#x, want %#x", got, want)
	}

	seq, err = r.ReadBits(8)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := seq.Bits, uint16(0xAF); got != want {
		t.Fatalf("got %#x, want %#x", got, want)
	}
}

func TestConcat(t *testing.T) {
	a := NewSequence(0b10, 2)
	b := NewSequence(0b1, 1)
	got := a.Concat(b)
	if want := NewSequence(0b101, 3); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestReadBits16AcrossAlignments(t *testing.T) {
	data := bytes.Repeat([]byte{0xAA, 0x55, 0xF0, 0x0F}, 4)
	for shift := uint8(0); shift < 8; shift++ {
		r := NewReader(bytes.NewReader(data))
		if shift > 0 {
			if _, err := r.ReadBits(shift); err != nil {
				t.Fatalf("shift %v: %v", shift, err)
			}
		}
		if _, err := r.ReadBits(16); err != nil {
			t.Errorf("shift %v: ReadBits(16): %v", shift, err)
		}
	}
}
