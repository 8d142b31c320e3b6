// Copyright 2024 The gunzip Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package deflate implements RFC 1951 DEFLATE decompression: reading
// BFINAL/BTYPE block headers, decoding stored, fixed-Huffman, and
// dynamic-Huffman blocks, and resolving LZ77 back-references against a
// sliding window.
package deflate

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/colinmarc/gunzip/internal/bitio"
	"github.com/colinmarc/gunzip/internal/huffman"
)

// BlockType is the BTYPE field of a block header (RFC 1951 §3.2.3).
type BlockType uint8

const (
	BlockStored BlockType = iota
	BlockFixedHuffman
	BlockDynamicHuffman
	blockReserved
)

// BlockHeader is the 3-bit BFINAL/BTYPE pair every DEFLATE block starts
// with.
type BlockHeader struct {
	Final bool
	Type  BlockType
}

// Reader decodes a sequence of DEFLATE blocks from r, writing the
// decompressed bytes to an internal TrackingWriter wrapped around out.
// Decode drives the whole block loop, one block header at a time, and
// returns nil once the block with BFINAL set has been fully consumed.
type Reader struct {
	bits      *bitio.Reader
	out       *TrackingWriter
	exhausted bool
}

// NewReader returns a Reader that decodes DEFLATE blocks read from r,
// writing decompressed output to out.
func NewReader(r io.Reader, out io.Writer) *Reader {
	return &Reader{bits: bitio.NewReader(r), out: NewTrackingWriter(out)}
}

// Decode consumes every DEFLATE block from the stream, writing their
// concatenated output. It returns once the final block's BFINAL bit has
// been processed.
func (d *Reader) Decode() error {
	for {
		header, err := d.readHeader()
		if err != nil {
			return err
		}
		if err := d.readBlockBody(header); err != nil {
			return err
		}
		if header.Final {
			return nil
		}
	}
}

// ByteCount returns the number of decompressed bytes written so far.
func (d *Reader) ByteCount() uint64 { return d.out.ByteCount() }

// CRC32 returns the running CRC-32/ISO-HDLC over all decompressed bytes
// written so far.
func (d *Reader) CRC32() uint32 { return d.out.CRC32() }

// Underlying returns the byte reader positioned immediately after the
// final block, for a caller (such as a gzip member reader) that needs to
// continue reading trailing framing from the same byte stream.
func (d *Reader) Underlying() io.ByteReader { return d.bits.AlignToByte() }

func (d *Reader) readHeader() (BlockHeader, error) {
	bfinal, err := d.bits.ReadBits(1)
	if err != nil {
		return BlockHeader{}, fmt.Errorf("deflate: reading BFINAL: %w", err)
	}
	btype, err := d.bits.ReadBits(2)
	if err != nil {
		return BlockHeader{}, fmt.Errorf("deflate: reading BTYPE: %w", err)
	}
	return BlockHeader{Final: bfinal.Bits == 1, Type: BlockType(btype.Bits)}, nil
}

func (d *Reader) readBlockBody(header BlockHeader) error {
	switch header.Type {
	case blockReserved:
		return ErrReservedBlockType
	case BlockStored:
		return d.readStoredBlock()
	case BlockFixedHuffman:
		litLen, dist, err := fixedTrees()
		if err != nil {
			return err
		}
		return d.readCompressedBlock(litLen, dist)
	case BlockDynamicHuffman:
		litLen, dist, err := d.readDynamicTrees()
		if err != nil {
			return err
		}
		return d.readCompressedBlock(litLen, dist)
	default:
		return fmt.Errorf("deflate: unrecognized block type %d", header.Type)
	}
}

func (d *Reader) readStoredBlock() error {
	br := d.bits.AlignToByte()

	var lenBuf [4]byte
	for i := range lenBuf {
		b, err := br.ReadByte()
		if err != nil {
			return fmt.Errorf("deflate: reading stored block length: %w", err)
		}
		lenBuf[i] = b
	}
	length := binary.LittleEndian.Uint16(lenBuf[0:2])
	nlen := binary.LittleEndian.Uint16(lenBuf[2:4])
	if length != ^nlen {
		return fmt.Errorf("%w: LEN=%04x NLEN=%04x", ErrStoredLengthMismatch, length, nlen)
	}

	buf := make([]byte, length)
	for i := range buf {
		b, err := br.ReadByte()
		if err != nil {
			return fmt.Errorf("deflate: reading stored block contents: %w", err)
		}
		buf[i] = b
	}
	if _, err := d.out.Write(buf); err != nil {
		return fmt.Errorf("deflate: writing stored block contents: %w", err)
	}
	return nil
}

func fixedTrees() (*huffman.Coding[LitLenToken], *huffman.Coding[DistanceToken], error) {
	litLen, err := huffman.FromLengths(fixedLitLenLengths(), litLenFromCodeWord)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: building fixed literal/length tree: %w", err)
	}
	dist, err := huffman.FromLengths(fixedDistanceLengths(), distanceFromCodeWord)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: building fixed distance tree: %w", err)
	}
	return litLen, dist, nil
}

// readDynamicTrees parses the HLIT/HDIST/HCLEN header, the 19-symbol
// code-length tree, and the run-length-encoded code-length sequence
// described in RFC 1951 §3.2.7, then builds the literal/length and
// distance trees from the resulting length vectors.
func (d *Reader) readDynamicTrees() (*huffman.Coding[LitLenToken], *huffman.Coding[DistanceToken], error) {
	hlit, err := d.bits.ReadBits(5)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: reading HLIT: %w", err)
	}
	hdist, err := d.bits.ReadBits(5)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: reading HDIST: %w", err)
	}
	hclen, err := d.bits.ReadBits(4)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: reading HCLEN: %w", err)
	}

	litLenCount := int(hlit.Bits) + 257
	distCount := int(hdist.Bits) + 1
	clenCount := int(hclen.Bits) + 4

	clCoding, err := d.readCodeLengthCoding(clenCount)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: building code-length tree: %w", err)
	}

	lengths := make([]uint8, 0, litLenCount+distCount)
	for len(lengths) < litLenCount+distCount {
		raw, err := clCoding.ReadSymbol(d.bits)
		if err != nil {
			return nil, nil, fmt.Errorf("deflate: reading code-length symbol: %w", err)
		}
		token, err := codeLengthFromCodeWord(huffman.CodeWord(raw))
		if err != nil {
			return nil, nil, err
		}

		switch token.kind {
		case codeLengthLiteral:
			lengths = append(lengths, token.literal)
		case codeLengthCopyPrev:
			if len(lengths) == 0 {
				return nil, nil, ErrNoPrevLength
			}
			extra, err := d.bits.ReadBits(token.extraBits)
			if err != nil {
				return nil, nil, fmt.Errorf("deflate: reading copy-previous extra bits: %w", err)
			}
			prev := lengths[len(lengths)-1]
			for i := 0; i < 3+int(extra.Bits); i++ {
				lengths = append(lengths, prev)
			}
		case codeLengthRepeatZero:
			extra, err := d.bits.ReadBits(token.extraBits)
			if err != nil {
				return nil, nil, fmt.Errorf("deflate: reading repeat-zero extra bits: %w", err)
			}
			for i := 0; i < int(token.base)+int(extra.Bits); i++ {
				lengths = append(lengths, 0)
			}
		}
	}
	if len(lengths) > litLenCount+distCount {
		return nil, nil, ErrOverrunLengths
	}

	litLen, err := huffman.FromLengths(lengths[:litLenCount], litLenFromCodeWord)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: building literal/length tree: %w", err)
	}
	dist, err := huffman.FromLengths(lengths[litLenCount:], distanceFromCodeWord)
	if err != nil {
		return nil, nil, fmt.Errorf("deflate: building distance tree: %w", err)
	}
	return litLen, dist, nil
}

// readCodeLengthCoding reads clenCount 3-bit lengths in the permuted wire
// order and builds the 19-symbol code-length alphabet's tree.
func (d *Reader) readCodeLengthCoding(clenCount int) (*huffman.Coding[huffman.CodeWord], error) {
	var lengths [19]uint8
	for i := 0; i < clenCount; i++ {
		bits, err := d.bits.ReadBits(3)
		if err != nil {
			return nil, fmt.Errorf("reading length %d: %w", i, err)
		}
		lengths[codeLengthPermutation[i]] = uint8(bits.Bits)
	}
	return huffman.FromLengths(lengths[:], func(w huffman.CodeWord) (huffman.CodeWord, error) {
		return w, nil
	})
}

// readCompressedBlock runs the literal/length decode loop shared by fixed-
// and dynamic-Huffman blocks (RFC 1951 §3.2.5): decode a symbol, emit a
// literal, resolve a length/distance back-reference, or stop at
// end-of-block.
func (d *Reader) readCompressedBlock(litLenTree *huffman.Coding[LitLenToken], distTree *huffman.Coding[DistanceToken]) error {
	for {
		tok, err := litLenTree.ReadSymbol(d.bits)
		if err != nil {
			return fmt.Errorf("deflate: reading literal/length symbol: %w", err)
		}

		switch {
		case tok.IsEndOfBlock:
			return nil
		case tok.IsLiteral:
			if err := d.out.writeByte(tok.Literal); err != nil {
				return fmt.Errorf("deflate: writing literal: %w", err)
			}
		default:
			if err := d.readBackReference(tok, distTree); err != nil {
				return err
			}
		}
	}
}

func (d *Reader) readBackReference(tok LitLenToken, distTree *huffman.Coding[DistanceToken]) error {
	lenExtra, err := d.bits.ReadBits(tok.ExtraBits)
	if err != nil {
		return fmt.Errorf("deflate: reading length extra bits: %w", err)
	}
	length := int(tok.Base) + int(lenExtra.Bits)

	distTok, err := distTree.ReadSymbol(d.bits)
	if err != nil {
		return fmt.Errorf("deflate: reading distance symbol: %w", err)
	}
	distExtra, err := d.bits.ReadBits(distTok.ExtraBits)
	if err != nil {
		return fmt.Errorf("deflate: reading distance extra bits: %w", err)
	}
	dist := int(distTok.Base) + int(distExtra.Bits)

	if err := d.out.WritePrevious(dist, length); err != nil {
		return fmt.Errorf("deflate: resolving back-reference: %w", err)
	}
	return nil
}
