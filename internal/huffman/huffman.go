// Copyright 2024 The gunzip Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package huffman builds and decodes canonical Huffman codes as specified
// by RFC 1951 §3.2.2: a code is fully determined by the per-symbol code
// length vector, with codes of a given length assigned in ascending symbol
// order.
package huffman

import (
	"fmt"

	"github.com/colinmarc/gunzip/internal/bitio"
)

// maxBits is the longest code length DEFLATE's alphabets allow.
const maxBits = 15

// CodeWord is the raw symbol index recovered from a code length vector,
// before a particular alphabet interprets it as a literal, a length/distance
// base-and-extra-bits pair, or a code-length directive.
type CodeWord uint16

// FromCodeWord converts a decoded symbol index into an alphabet's token
// type, rejecting out-of-range or reserved values. Each alphabet in package
// deflate implements this.
type FromCodeWord[T any] func(CodeWord) (T, error)

// Coding is a canonical Huffman decoder over alphabet T.
type Coding[T any] struct {
	table map[bitio.Sequence]T
}

// FromLengths builds a Coding from an ordered vector of code lengths,
// following RFC 1951 §3.2.2 exactly:
//
//  1. reject any length over 15 bits;
//  2. count symbols per length (bl_count), treating length 0 as "absent";
//  3. derive the first code of each length from a running count of shorter
//     codes (next_code);
//  4. assign codes to symbols of nonzero length in symbol order, verifying
//     at each step that the running code is still below 2^(length+1), and
//     failing with an over-subscribed (invalid) code error otherwise.
//
// A symbol that from rejects (a reserved symbol such as literal/length
// 286-287 or distance 30-31) still takes its code, so every other symbol
// keeps its canonical code, but it gets no table entry: ReadSymbol fails on
// a stream that uses it.
func FromLengths[T any](lengths []uint8, from FromCodeWord[T]) (*Coding[T], error) {
	var blCount [maxBits + 1]int
	for _, l := range lengths {
		if l > maxBits {
			return nil, fmt.Errorf("huffman: code length %d exceeds %d bits", l, maxBits)
		}
		blCount[l]++
	}
	blCount[0] = 0

	var nextCode [maxBits + 1]int
	code := 0
	for length := 1; length <= maxBits; length++ {
		code = (code + blCount[length-1]) << 1
		nextCode[length] = code
	}

	table := make(map[bitio.Sequence]T, len(lengths))
	for i, length := range lengths {
		if length == 0 {
			continue
		}
		if nextCode[length] >= 1<<(length+1) {
			return nil, fmt.Errorf("huffman: over-subscribed code at length %d", length)
		}

		seq := bitio.NewSequence(uint16(nextCode[length]), length)
		nextCode[length]++

		token, err := from(CodeWord(i))
		if err != nil {
			continue
		}
		table[seq] = token
	}

	return &Coding[T]{table: table}, nil
}

// Decode looks up the token bound to an exact (bits, len) key, used directly
// by tests and callers that already have a candidate Sequence.
func (c *Coding[T]) Decode(seq bitio.Sequence) (T, bool) {
	t, ok := c.table[seq]
	return t, ok
}

// ReadSymbol reads one bit at a time from r, growing a candidate code, and
// returns the first token whose exact code matches. Because the table forms
// a prefix code the first match is unique. Fails if no match is found
// within 15 bits.
func (c *Coding[T]) ReadSymbol(r *bitio.Reader) (T, error) {
	var code bitio.Sequence
	for i := 0; i < maxBits; i++ {
		bit, err := r.ReadBits(1)
		if err != nil {
			var zero T
			return zero, fmt.Errorf("huffman: reading code bit: %w", err)
		}
		code = code.Concat(bit)
		if token, ok := c.table[code]; ok {
			return token, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("huffman: no symbol matched within %d bits", maxBits)
}
