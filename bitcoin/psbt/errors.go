// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package psbt

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMagic defines that the serialization does not start with the PSBT magic bytes.
	ErrInvalidMagic = errors.New("invalid psbt magic bytes")

	// ErrMalformedData defines truncated buffers, non-canonical compact sizes,
	// trailing bytes and key-value pairs of invalid shape.
	ErrMalformedData = errors.New("malformed psbt data")

	// ErrDuplicateKey defines that the same key is repeated within a single map.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrMissingUnsignedTx defines that the global map has no unsigned transaction.
	ErrMissingUnsignedTx = errors.New("missing unsigned transaction")

	// ErrUnsignedTxNotUnsigned defines that the unsigned transaction carries
	// signature scripts or witnesses.
	ErrUnsignedTxNotUnsigned = errors.New("unsigned transaction has signature script or witness")

	// ErrUnknownRequiredField defines a field which must be understood but is not supported.
	ErrUnknownRequiredField = errors.New("unsupported required field")

	// ErrIndexOutOfRange defines input or output index beyond the psbt records.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrCountMismatch defines records count which differs from the unsigned transaction.
	ErrCountMismatch = errors.New("records count does not match unsigned transaction")
)

// Scope defines which map of the psbt an error belongs to.
type Scope string

const (
	// ScopeGlobal defines the global map.
	ScopeGlobal Scope = "global"
	// ScopeInput defines an input map.
	ScopeInput Scope = "input"
	// ScopeOutput defines an output map.
	ScopeOutput Scope = "output"
)

// MapError describes failure while decoding the key-value map.
type MapError struct {
	Scope Scope
	Index int    // record index, 0 for the global map.
	Key   []byte // type byte and key data, nil if the key was not read.
	Err   error
}

// Error returns error description.
func (e *MapError) Error() string {
	where := string(e.Scope)
	if e.Scope != ScopeGlobal {
		where = fmt.Sprintf("%s %d", e.Scope, e.Index)
	}

	if len(e.Key) == 0 {
		return fmt.Sprintf("%s: %v", where, e.Err)
	}

	return fmt.Sprintf("%s: key %x: %v", where, e.Key, e.Err)
}

// Unwrap implements unwrapping for [errors] package.
func (e *MapError) Unwrap() error {
	return e.Err
}

// malformed joins ErrMalformedData with the cause.
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedData, fmt.Sprintf(format, args...))
}
