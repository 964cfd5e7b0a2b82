// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bufferutil

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/wire"
)

// Separator defines the zero-length key which terminates a map.
const Separator byte = 0x00

// Writer accumulates primitive values into a byte buffer.
// Writes into bytes.Buffer never fail, so Writer methods do not return errors.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter is a constructor for Writer.
func NewWriter() *Writer {
	return new(Writer)
}

// Bytes returns written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns amount of written bytes.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// WriteRaw appends raw bytes.
func (w *Writer) WriteRaw(b []byte) {
	w.buf.Write(b)
}

// WriteUint8 appends single byte.
func (w *Writer) WriteUint8(b byte) {
	w.buf.WriteByte(b)
}

// WriteUint32LE appends 4 bytes little-endian unsigned integer.
func (w *Writer) WriteUint32LE(v uint32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

// WriteUint64LE appends 8 bytes little-endian unsigned integer.
func (w *Writer) WriteUint64LE(v uint64) {
	w.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
}

// WriteCompactSize appends variable length integer in its minimal form.
func (w *Writer) WriteCompactSize(v uint64) {
	_ = wire.WriteVarInt(&w.buf, 0, v)
}

// WriteVarSlice appends compact size length prefixed byte slice.
func (w *Writer) WriteVarSlice(b []byte) {
	_ = wire.WriteVarBytes(&w.buf, 0, b)
}

// WriteKeyValue appends single map entry.
func (w *Writer) WriteKeyValue(key, value []byte) {
	w.WriteVarSlice(key)
	w.WriteVarSlice(value)
}

// WriteSeparator terminates current map.
func (w *Writer) WriteSeparator() {
	w.buf.WriteByte(Separator)
}

// CompactSizeLen returns the length of v encoded as compact size.
func CompactSizeLen(v uint64) int {
	return wire.VarIntSerializeSize(v)
}
