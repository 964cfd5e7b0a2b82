// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package psbt implements BIP174 partially signed bitcoin transactions:
// the data model, its binary serialization and the Creator and Updater roles.
//
// Known fields of every map are decoded into typed record fields. Fields the
// package does not interpret are kept in the Unknown map of the record and are
// written back byte-exact. Serialization emits entries of every map in
// ascending order of the encoded key.
package psbt

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"

	"github.com/BoostyLabs/bip174/internal/bufferutil"
)

// magic defines leading bytes of every serialized psbt: "psbt" followed by 0xff.
var magic = [...]byte{0x70, 0x73, 0x62, 0x74, 0xff}

// Psbt defines partially signed bitcoin transaction.
// Inputs and Outputs are index-aligned with the inputs and outputs of Global.UnsignedTx.
type Psbt struct {
	Global  Global
	Inputs  []Input
	Outputs []Output
}

// New creates psbt for the unsigned transaction with empty input and output records.
// The transaction is copied.
func New(tx *wire.MsgTx) (*Psbt, error) {
	if err := checkUnsigned(tx); err != nil {
		return nil, err
	}

	return &Psbt{
		Global:  Global{UnsignedTx: tx.Copy()},
		Inputs:  make([]Input, len(tx.TxIn)),
		Outputs: make([]Output, len(tx.TxOut)),
	}, nil
}

// NewFromOutPoints creates psbt for the transaction that spends inputs into outputs.
// sequences must be index-aligned with inputs.
func NewFromOutPoints(inputs []*wire.OutPoint, outputs []*wire.TxOut, version int32, lockTime uint32, sequences []uint32) (*Psbt, error) {
	if len(inputs) != len(sequences) {
		return nil, fmt.Errorf("%w: %d inputs, %d sequences", ErrCountMismatch, len(inputs), len(sequences))
	}

	tx := wire.NewMsgTx(version)
	tx.LockTime = lockTime
	for i, outPoint := range inputs {
		in := wire.NewTxIn(outPoint, nil, nil)
		in.Sequence = sequences[i]
		tx.AddTxIn(in)
	}

	for _, out := range outputs {
		tx.AddTxOut(wire.NewTxOut(out.Value, bytes.Clone(out.PkScript)))
	}

	return New(tx)
}

// Serialize returns psbt as bytes array.
func (p *Psbt) Serialize() []byte {
	w := bufferutil.NewWriter()
	w.WriteRaw(magic[:])

	globalCodec.encode(w, &p.Global)
	for i := range p.Inputs {
		inputCodec.encode(w, &p.Inputs[i])
	}

	for i := range p.Outputs {
		outputCodec.encode(w, &p.Outputs[i])
	}

	return w.Bytes()
}

// Encode writes serialized psbt into w.
func (p *Psbt) Encode(w io.Writer) error {
	_, err := w.Write(p.Serialize())
	return err
}

// B64Encode returns serialized psbt as base64 string.
func (p *Psbt) B64Encode() string {
	return base64.StdEncoding.EncodeToString(p.Serialize())
}

// Deserialize parses psbt from bytes array.
// Returns nil psbt on any failure.
func Deserialize(b []byte) (*Psbt, error) {
	if !bytes.HasPrefix(b, magic[:]) {
		return nil, ErrInvalidMagic
	}

	var (
		r = bufferutil.NewReader(b[len(magic):])
		p = new(Psbt)
	)
	if err := globalCodec.decode(r, &p.Global, 0); err != nil {
		return nil, err
	}

	if p.Global.UnsignedTx == nil {
		return nil, &MapError{Scope: ScopeGlobal, Err: ErrMissingUnsignedTx}
	}

	p.Inputs = make([]Input, len(p.Global.UnsignedTx.TxIn))
	for i := range p.Inputs {
		if err := inputCodec.decode(r, &p.Inputs[i], i); err != nil {
			return nil, err
		}
	}

	p.Outputs = make([]Output, len(p.Global.UnsignedTx.TxOut))
	for i := range p.Outputs {
		if err := outputCodec.decode(r, &p.Outputs[i], i); err != nil {
			return nil, err
		}
	}

	if r.Len() != 0 {
		return nil, malformed("%d trailing bytes at offset %d", r.Len(), len(magic)+r.Offset())
	}

	log.Debugf("Decoded psbt %v with %d inputs and %d outputs", p.Global.UnsignedTx.TxHash(), len(p.Inputs), len(p.Outputs))
	log.Tracef("Decoded psbt: %v", newLogClosure(func() string {
		return spew.Sdump(p)
	}))

	return p, nil
}

// Decode reads whole r and parses psbt from it.
func Decode(r io.Reader) (*Psbt, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return Deserialize(b)
}

// NewFromBase64 parses psbt from base64 string.
func NewFromBase64(s string) (*Psbt, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedData, err)
	}

	return Deserialize(b)
}

// SanityCheck verifies that psbt holds an unsigned transaction and that
// its records are aligned with the transaction inputs and outputs.
func (p *Psbt) SanityCheck() error {
	tx := p.Global.UnsignedTx
	if tx == nil {
		return ErrMissingUnsignedTx
	}

	if err := checkUnsigned(tx); err != nil {
		return err
	}

	if len(p.Inputs) != len(tx.TxIn) {
		return fmt.Errorf("%w: %d inputs, %d transaction inputs", ErrCountMismatch, len(p.Inputs), len(tx.TxIn))
	}

	if len(p.Outputs) != len(tx.TxOut) {
		return fmt.Errorf("%w: %d outputs, %d transaction outputs", ErrCountMismatch, len(p.Outputs), len(tx.TxOut))
	}

	return nil
}
