// Copyright 2024 The gunzip Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package deflate

import (
	"fmt"

	"github.com/colinmarc/gunzip/internal/huffman"
)

// LitLenToken is a decoded literal/length alphabet symbol (RFC 1951 §3.2.5):
// a literal byte, the end-of-block marker, or a length code carrying a base
// length and the count of extra bits that follow it in the stream.
type LitLenToken struct {
	Literal     byte
	IsLiteral   bool
	IsEndOfBlock bool
	Base        uint16
	ExtraBits   uint8
}

// litLenFromCodeWord maps a decoded symbol index to its LitLenToken per RFC
// 1951 Table in §3.2.5. Symbols 286-287 are reserved.
func litLenFromCodeWord(w huffman.CodeWord) (LitLenToken, error) {
	v := uint16(w)
	switch {
	case v <= 255:
		return LitLenToken{Literal: byte(v), IsLiteral: true}, nil
	case v == 256:
		return LitLenToken{IsEndOfBlock: true}, nil
	case v <= 264:
		return LitLenToken{Base: v - 254, ExtraBits: 0}, nil
	case v <= 268:
		return LitLenToken{Base: 11 + 2*(v-265), ExtraBits: 1}, nil
	case v <= 272:
		return LitLenToken{Base: 19 + 4*(v-269), ExtraBits: 2}, nil
	case v <= 276:
		return LitLenToken{Base: 35 + 8*(v-273), ExtraBits: 3}, nil
	case v <= 280:
		return LitLenToken{Base: 67 + 16*(v-277), ExtraBits: 4}, nil
	case v <= 284:
		return LitLenToken{Base: 131 + 32*(v-281), ExtraBits: 5}, nil
	case v == 285:
		return LitLenToken{Base: 258, ExtraBits: 0}, nil
	default: // 286, 287
		return LitLenToken{}, fmt.Errorf("%w: literal/length code %d", ErrReservedSymbol, v)
	}
}

// DistanceToken carries a distance code's base distance and extra-bit count
// (RFC 1951 §3.2.5).
type DistanceToken struct {
	Base      uint16
	ExtraBits uint8
}

func distanceFromCodeWord(w huffman.CodeWord) (DistanceToken, error) {
	v := uint16(w)
	switch {
	case v <= 1:
		return DistanceToken{Base: v + 1, ExtraBits: 0}, nil
	case v <= 29:
		extra := uint8(v/2 - 1)
		base := ((v%2 + 2) << extra) + 1
		return DistanceToken{Base: base, ExtraBits: extra}, nil
	default: // 30, 31
		return DistanceToken{}, fmt.Errorf("%w: distance code %d", ErrReservedSymbol, v)
	}
}

// codeLengthKind distinguishes the three directives the code-length
// alphabet can carry (RFC 1951 §3.2.7).
type codeLengthKind int

const (
	codeLengthLiteral codeLengthKind = iota
	codeLengthCopyPrev
	codeLengthRepeatZero
)

// codeLengthToken is a decoded code-length alphabet symbol.
type codeLengthToken struct {
	kind      codeLengthKind
	literal   uint8 // valid when kind == codeLengthLiteral
	base      uint16 // valid when kind == codeLengthRepeatZero
	extraBits uint8  // valid when kind != codeLengthLiteral
}

func codeLengthFromCodeWord(w huffman.CodeWord) (codeLengthToken, error) {
	v := uint16(w)
	switch {
	case v <= 15:
		return codeLengthToken{kind: codeLengthLiteral, literal: uint8(v)}, nil
	case v == 16:
		return codeLengthToken{kind: codeLengthCopyPrev, extraBits: 2}, nil
	case v == 17:
		return codeLengthToken{kind: codeLengthRepeatZero, base: 3, extraBits: 3}, nil
	case v == 18:
		return codeLengthToken{kind: codeLengthRepeatZero, base: 11, extraBits: 7}, nil
	default:
		return codeLengthToken{}, fmt.Errorf("%w: code-length symbol %d", ErrReservedSymbol, v)
	}
}

// codeLengthPermutation is the order in which HCLEN code lengths are stored
// in the stream; entry i of the input belongs at array index
// codeLengthPermutation[i] (RFC 1951 §3.2.7).
var codeLengthPermutation = [19]int{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

// fixedLitLenLengths is the hard-coded literal/length code length vector for
// BTYPE=1 fixed-Huffman blocks (RFC 1951 §3.2.6).
func fixedLitLenLengths() []uint8 {
	lengths := make([]uint8, 288)
	for i := 0; i <= 143; i++ {
		lengths[i] = 8
	}
	for i := 144; i <= 255; i++ {
		lengths[i] = 9
	}
	for i := 256; i <= 279; i++ {
		lengths[i] = 7
	}
	for i := 280; i <= 287; i++ {
		lengths[i] = 8
	}
	return lengths
}

// fixedDistanceLengths is the hard-coded distance code length vector for
// BTYPE=1 fixed-Huffman blocks: 5 bits for all 32 symbols.
func fixedDistanceLengths() []uint8 {
	lengths := make([]uint8, 32)
	for i := range lengths {
		lengths[i] = 5
	}
	return lengths
}
