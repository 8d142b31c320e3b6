// Copyright 2024 The gunzip Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package deflate

// A StructuralError is returned when a DEFLATE stream is found to be
// syntactically invalid.
type StructuralError string

func (s StructuralError) Error() string {
	return "deflate data invalid: " + string(s)
}

// Sentinel errors, one per distinct failure kind this package detects.
// Functions in this package return these either directly or wrapped with
// %w alongside step-specific context; either way callers can errors.Is
// against the sentinel.
const (
	ErrReservedBlockType    StructuralError = "reserved block type (BTYPE=3)"
	ErrStoredLengthMismatch StructuralError = "stored block LEN != ^NLEN"
	ErrReservedSymbol       StructuralError = "reserved alphabet symbol"
	ErrNoPrevLength         StructuralError = "copy-previous-length with no previous length"
	ErrOverrunLengths       StructuralError = "decoded more code lengths than declared"
	ErrBadBackReference     StructuralError = "back-reference distance or length out of range"
)
