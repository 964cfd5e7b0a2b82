// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package bufferutil implements the primitive encodings of the BIP174 wire
// format: compact size integers, length prefixed byte slices, fixed width
// little-endian integers and key-value map entries.
package bufferutil

import (
	"encoding/binary"
	"errors"

	"github.com/BoostyLabs/bip174/internal/sequencereader"
)

const (
	// prefixUint16 marks a compact size followed by 2 bytes.
	prefixUint16 byte = 0xfd
	// prefixUint32 marks a compact size followed by 4 bytes.
	prefixUint32 byte = 0xfe
	// prefixUint64 marks a compact size followed by 8 bytes.
	prefixUint64 byte = 0xff
)

// ErrTruncated defines that the buffer ended before the value was read.
var ErrTruncated = errors.New("buffer is truncated")

// ErrNonCanonical defines compact size encoded with a longer prefix than required.
var ErrNonCanonical = errors.New("non-canonical compact size")

// Reader reads primitive values from a byte buffer.
type Reader struct {
	sr *sequencereader.SequenceReader[byte]
}

// NewReader is a constructor for Reader.
func NewReader(b []byte) *Reader {
	return &Reader{sr: sequencereader.New(b)}
}

// Len returns how many bytes are left unread.
func (r *Reader) Len() int {
	return r.sr.Len()
}

// Offset returns how many bytes are already read.
func (r *Reader) Offset() int {
	return r.sr.Offset()
}

// ReadByte returns next byte of the buffer.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.sr.Next()
	if err != nil {
		return 0, ErrTruncated
	}

	return b, nil
}

// ReadBytes returns a copy of the next n bytes of the buffer.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	data, err := r.sr.NextN(n)
	if err != nil {
		return nil, ErrTruncated
	}

	if n == 0 {
		return nil, nil
	}

	return append(make([]byte, 0, n), data...), nil
}

// ReadUint16LE reads 2 bytes little-endian unsigned integer.
func (r *Reader) ReadUint16LE() (uint16, error) {
	data, err := r.sr.NextN(2)
	if err != nil {
		return 0, ErrTruncated
	}

	return binary.LittleEndian.Uint16(data), nil
}

// ReadUint32LE reads 4 bytes little-endian unsigned integer.
func (r *Reader) ReadUint32LE() (uint32, error) {
	data, err := r.sr.NextN(4)
	if err != nil {
		return 0, ErrTruncated
	}

	return binary.LittleEndian.Uint32(data), nil
}

// ReadUint64LE reads 8 bytes little-endian unsigned integer.
func (r *Reader) ReadUint64LE() (uint64, error) {
	data, err := r.sr.NextN(8)
	if err != nil {
		return 0, ErrTruncated
	}

	return binary.LittleEndian.Uint64(data), nil
}

// ReadCompactSize reads variable length integer, rejects non-minimal encodings.
func (r *Reader) ReadCompactSize() (uint64, error) {
	prefix, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	var value, minValue uint64
	switch prefix {
	case prefixUint16:
		v, err := r.ReadUint16LE()
		if err != nil {
			return 0, err
		}
		value, minValue = uint64(v), uint64(prefixUint16)
	case prefixUint32:
		v, err := r.ReadUint32LE()
		if err != nil {
			return 0, err
		}
		value, minValue = uint64(v), 0x10000
	case prefixUint64:
		value, err = r.ReadUint64LE()
		if err != nil {
			return 0, err
		}
		minValue = 0x100000000
	default:
		return uint64(prefix), nil
	}

	if value < minValue {
		return 0, ErrNonCanonical
	}

	return value, nil
}

// ReadVarSlice reads compact size length prefixed byte slice.
// The length is checked against the rest of the buffer before allocating.
func (r *Reader) ReadVarSlice() ([]byte, error) {
	length, err := r.ReadCompactSize()
	if err != nil {
		return nil, err
	}

	if length > uint64(r.Len()) {
		return nil, ErrTruncated
	}

	return r.ReadBytes(int(length))
}

// ReadKeyValue reads single map entry. Returns nil key for the map separator.
func (r *Reader) ReadKeyValue() (key, value []byte, err error) {
	key, err = r.ReadVarSlice()
	if err != nil {
		return nil, nil, err
	}

	if len(key) == 0 {
		return nil, nil, nil
	}

	value, err = r.ReadVarSlice()
	if err != nil {
		return nil, nil, err
	}

	return key, value, nil
}
