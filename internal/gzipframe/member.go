// Copyright 2024 The gunzip Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package gzipframe reads the RFC 1952 gzip container around a DEFLATE
// stream: member headers (with their optional extra/name/comment fields
// and header CRC16), and member footers (CRC-32 and ISIZE).
package gzipframe

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

const (
	id1 = 0x1f
	id2 = 0x8b

	reservedFlagBits = 0xE0 // FLG bits 5-7
)

// CompressionMethod is the gzip CM byte.
type CompressionMethod uint8

// Deflate is the only compression method this package (and the gzip
// format in practice) supports.
const Deflate CompressionMethod = 8

// IsDeflate reports whether m is the DEFLATE compression method.
func (m CompressionMethod) IsDeflate() bool { return m == Deflate }

func (m CompressionMethod) String() string {
	if m.IsDeflate() {
		return "deflate"
	}
	return fmt.Sprintf("unknown(%d)", uint8(m))
}

// MemberFlags is the gzip FLG byte, exposed through named accessors rather
// than requiring callers to know the bit offsets.
type MemberFlags uint8

const (
	flagText    = 1 << 0
	flagHCRC    = 1 << 1
	flagExtra   = 1 << 2
	flagName    = 1 << 3
	flagComment = 1 << 4
)

func (f MemberFlags) IsText() bool    { return f&flagText != 0 }
func (f MemberFlags) HasCRC() bool    { return f&flagHCRC != 0 }
func (f MemberFlags) HasExtra() bool  { return f&flagExtra != 0 }
func (f MemberFlags) HasName() bool   { return f&flagName != 0 }
func (f MemberFlags) HasComment() bool { return f&flagComment != 0 }

func newMemberFlags(isText, hasCRC, hasExtra, hasName, hasComment bool) MemberFlags {
	var f MemberFlags
	if isText {
		f |= flagText
	}
	if hasCRC {
		f |= flagHCRC
	}
	if hasExtra {
		f |= flagExtra
	}
	if hasName {
		f |= flagName
	}
	if hasComment {
		f |= flagComment
	}
	return f
}

// MemberHeader describes one gzip member's fixed and optional header
// fields.
type MemberHeader struct {
	CompressionMethod CompressionMethod
	ModificationTime  uint32
	ExtraFlags        uint8
	OS                uint8
	Extra             []byte // nil when FEXTRA was not set
	Name              string
	HasName           bool
	Comment           string
	HasComment        bool
	IsText            bool
	HasCRC            bool
}

// Flags reconstructs the FLG byte that this header's optional fields imply.
func (h MemberHeader) Flags() MemberFlags {
	return newMemberFlags(h.IsText, h.HasCRC, h.Extra != nil, h.HasName, h.HasComment)
}

// CRC16 recomputes the header's CRC16 the same way the encoder does: the
// low 16 bits of a CRC-32/ISO-HDLC digest over every header byte preceding
// the CRC16 field itself (RFC 1952 §2.3.1). This is why the field is named
// CRC16 despite sharing the CRC-32 table: gzip defines it this way, not as
// an independent 16-bit polynomial.
func (h MemberHeader) CRC16() uint16 {
	digest := crc32.NewIEEE()
	digest.Write([]byte{id1, id2, byte(h.CompressionMethod), byte(h.Flags())})

	var mtime [4]byte
	binary.LittleEndian.PutUint32(mtime[:], h.ModificationTime)
	digest.Write(mtime[:])
	digest.Write([]byte{h.ExtraFlags, h.OS})

	if h.Extra != nil {
		var xlen [2]byte
		binary.LittleEndian.PutUint16(xlen[:], uint16(len(h.Extra)))
		digest.Write(xlen[:])
		digest.Write(h.Extra)
	}
	if h.HasName {
		digest.Write([]byte(h.Name))
		digest.Write([]byte{0})
	}
	if h.HasComment {
		digest.Write([]byte(h.Comment))
		digest.Write([]byte{0})
	}

	return uint16(digest.Sum32() & 0xffff)
}

// MemberFooter is a gzip member's trailing CRC-32 and ISIZE fields.
type MemberFooter struct {
	CRC32 uint32
	ISIZE uint32
}

// Reader reads successive gzip members from an underlying byte stream.
type Reader struct {
	r            *bufio.Reader
	strictHeader bool
}

// NewReader returns a Reader pulling gzip members from r.
func NewReader(r io.Reader) *Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{r: br}
}

// SetStrictHeader enables rejecting members whose FLG byte sets any of the
// three reserved high bits, instead of the default of ignoring them.
func (g *Reader) SetStrictHeader(strict bool) { g.strictHeader = strict }

// IsEmpty reports whether the stream has been fully consumed: no further
// member headers remain. It never advances the stream.
func (g *Reader) IsEmpty() (bool, error) {
	_, err := g.r.Peek(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// Underlying exposes the byte stream for the DEFLATE block engine to read
// from, and later for ReadFooter to continue reading from after the
// engine aligns back to a byte boundary.
func (g *Reader) Underlying() io.Reader { return g.r }

// ReadHeader parses one gzip member header, including its optional
// extra/name/comment fields and CRC16 verification.
func (g *Reader) ReadHeader() (MemberHeader, error) {
	magic := make([]byte, 2)
	if _, err := io.ReadFull(g.r, magic); err != nil {
		return MemberHeader{}, fmt.Errorf("gzipframe: reading magic: %w", err)
	}
	if magic[0] != id1 || magic[1] != id2 {
		return MemberHeader{}, ErrBadMagic
	}

	cm, err := g.r.ReadByte()
	if err != nil {
		return MemberHeader{}, fmt.Errorf("gzipframe: reading CM: %w", err)
	}
	flg, err := g.r.ReadByte()
	if err != nil {
		return MemberHeader{}, fmt.Errorf("gzipframe: reading FLG: %w", err)
	}
	flags := MemberFlags(flg)
	if g.strictHeader && flg&reservedFlagBits != 0 {
		return MemberHeader{}, fmt.Errorf("gzipframe: reserved FLG bits set: %#02x", flg&reservedFlagBits)
	}

	var mtimeBuf [4]byte
	if _, err := io.ReadFull(g.r, mtimeBuf[:]); err != nil {
		return MemberHeader{}, fmt.Errorf("gzipframe: reading MTIME: %w", err)
	}

	xfl, err := g.r.ReadByte()
	if err != nil {
		return MemberHeader{}, fmt.Errorf("gzipframe: reading XFL: %w", err)
	}
	os, err := g.r.ReadByte()
	if err != nil {
		return MemberHeader{}, fmt.Errorf("gzipframe: reading OS: %w", err)
	}

	header := MemberHeader{
		CompressionMethod: CompressionMethod(cm),
		ModificationTime:  binary.LittleEndian.Uint32(mtimeBuf[:]),
		ExtraFlags:        xfl,
		OS:                os,
		IsText:            flags.IsText(),
		HasCRC:            flags.HasCRC(),
	}

	if flags.HasExtra() {
		extra, err := g.readExtra()
		if err != nil {
			return MemberHeader{}, err
		}
		header.Extra = extra
	}
	if flags.HasName() {
		name, err := g.readNullTerminatedString()
		if err != nil {
			return MemberHeader{}, fmt.Errorf("%w: %w", ErrUnterminatedName, err)
		}
		header.Name, header.HasName = name, true
	}
	if flags.HasComment() {
		comment, err := g.readNullTerminatedString()
		if err != nil {
			return MemberHeader{}, fmt.Errorf("%w: %w", ErrUnterminatedComment, err)
		}
		header.Comment, header.HasComment = comment, true
	}

	if flags.HasCRC() {
		var crcBuf [2]byte
		if _, err := io.ReadFull(g.r, crcBuf[:]); err != nil {
			return MemberHeader{}, fmt.Errorf("gzipframe: reading header CRC16: %w", err)
		}
		want := binary.LittleEndian.Uint16(crcBuf[:])
		if got := header.CRC16(); got != want {
			return MemberHeader{}, fmt.Errorf("%w: computed %04x, stream has %04x", ErrHeaderCRCMismatch, got, want)
		}
	}

	if !header.CompressionMethod.IsDeflate() {
		return MemberHeader{}, fmt.Errorf("%w: %s", ErrUnsupportedMethod, header.CompressionMethod)
	}

	return header, nil
}

func (g *Reader) readExtra() ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(g.r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("gzipframe: reading XLEN: %w", err)
	}
	xlen := binary.LittleEndian.Uint16(lenBuf[:])
	buf := make([]byte, xlen)
	if _, err := io.ReadFull(g.r, buf); err != nil {
		return nil, fmt.Errorf("gzipframe: reading extra field: %w", err)
	}
	return buf, nil
}

func (g *Reader) readNullTerminatedString() (string, error) {
	buf, err := g.r.ReadBytes(0)
	if err != nil {
		return "", err
	}
	return string(buf[:len(buf)-1]), nil
}

// ReadFooter parses the CRC-32 and ISIZE trailer following a member's
// DEFLATE stream and verifies both against the bytes actually produced,
// reported by byteCount and crc.
func (g *Reader) ReadFooter(byteCount uint64, crc uint32) (MemberFooter, error) {
	var buf [8]byte
	if _, err := io.ReadFull(g.r, buf[:]); err != nil {
		return MemberFooter{}, fmt.Errorf("gzipframe: reading footer: %w", err)
	}
	footer := MemberFooter{
		CRC32: binary.LittleEndian.Uint32(buf[0:4]),
		ISIZE: binary.LittleEndian.Uint32(buf[4:8]),
	}

	if footer.ISIZE != uint32(byteCount%(1<<32)) {
		return footer, fmt.Errorf("%w: ISIZE=%d byte count mod 2^32=%d", ErrSizeMismatch, footer.ISIZE, byteCount%(1<<32))
	}
	if footer.CRC32 != crc {
		return footer, fmt.Errorf("%w: footer has %08x, computed %08x", ErrCRCMismatch, footer.CRC32, crc)
	}
	return footer, nil
}
