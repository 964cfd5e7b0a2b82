// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package psbt

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/bip174/bitcoin/bip32"
)

// Global defines the global map of the psbt.
type Global struct {
	// UnsignedTx is mandatory, its inputs carry no signature scripts and witnesses.
	UnsignedTx  *wire.MsgTx
	XPubs       map[XPub]bip32.KeySource
	Version     *uint32
	Proprietary map[ProprietaryKey][]byte
	Unknown     map[Key][]byte
}

// globalCodec defines dispatch table of the global map.
var globalCodec = &mapCodec[Global]{
	scope: ScopeGlobal,
	fields: map[byte]field[Global]{
		GlobalUnsignedTx: {
			decode: func(g *Global, keyData, value []byte) error {
				if err := requireNoKeyData(keyData); err != nil {
					return err
				}

				tx, err := parseUnsignedTx(value)
				if err != nil {
					return err
				}
				g.UnsignedTx = tx

				return nil
			},
			encode: func(g *Global) []entry {
				if g.UnsignedTx == nil {
					return nil
				}

				return single(GlobalUnsignedTx, serializeUnsignedTx(g.UnsignedTx))
			},
		},
		GlobalXPub: mapField(GlobalXPub,
			func(g *Global) *map[XPub]bip32.KeySource { return &g.XPubs },
			parseXPub, parseKeySource,
			func(x XPub) []byte { return x[:] },
			bip32.KeySource.Serialize,
		),
		GlobalVersion: {
			decode: func(g *Global, keyData, value []byte) error {
				if err := requireNoKeyData(keyData); err != nil {
					return err
				}

				if len(value) != 4 {
					return malformed("version length %d", len(value))
				}

				version := binary.LittleEndian.Uint32(value)
				if version != 0 {
					return ErrUnknownRequiredField
				}
				g.Version = &version

				return nil
			},
			encode: func(g *Global) []entry {
				if g.Version == nil {
					return nil
				}

				return single(GlobalVersion, binary.LittleEndian.AppendUint32(nil, *g.Version))
			},
		},
		GlobalProprietary: proprietaryField(GlobalProprietary, func(g *Global) *map[ProprietaryKey][]byte { return &g.Proprietary }),
	},
	required: keyTypes(GlobalTxVersion, GlobalFallbackLocktime, GlobalInputCount, GlobalOutputCount, GlobalTxModifiable),
	unknown:  func(g *Global) *map[Key][]byte { return &g.Unknown },
}

// parseUnsignedTx decodes transaction in the non-witness serialization.
func parseUnsignedTx(value []byte) (*wire.MsgTx, error) {
	r := bytes.NewReader(value)
	tx := new(wire.MsgTx)
	if err := tx.DeserializeNoWitness(r); err != nil {
		return nil, malformed("unsigned transaction: %v", err)
	}

	if r.Len() != 0 {
		return nil, malformed("unsigned transaction has %d trailing bytes", r.Len())
	}

	if err := checkUnsigned(tx); err != nil {
		return nil, err
	}

	return normalizeTx(tx), nil
}

// normalizeTx replaces empty scripts and witnesses of the decoded transaction with nil
// the way [wire.MsgTx.Copy] does.
func normalizeTx(tx *wire.MsgTx) *wire.MsgTx {
	for _, in := range tx.TxIn {
		if len(in.SignatureScript) == 0 {
			in.SignatureScript = nil
		}
		if len(in.Witness) == 0 {
			in.Witness = nil
		}
	}

	for _, out := range tx.TxOut {
		if len(out.PkScript) == 0 {
			out.PkScript = nil
		}
	}

	return tx
}

// serializeUnsignedTx encodes transaction in the non-witness serialization.
func serializeUnsignedTx(tx *wire.MsgTx) []byte {
	var buf bytes.Buffer
	buf.Grow(tx.SerializeSizeStripped())
	_ = tx.SerializeNoWitness(&buf)

	return buf.Bytes()
}

// checkUnsigned verifies that no input of the transaction is signed.
func checkUnsigned(tx *wire.MsgTx) error {
	for _, in := range tx.TxIn {
		if len(in.SignatureScript) != 0 || len(in.Witness) != 0 {
			return ErrUnsignedTxNotUnsigned
		}
	}

	return nil
}

// parseXPub validates serialized extended public key.
func parseXPub(keyData []byte) (XPub, error) {
	var xpub XPub
	if len(keyData) != len(xpub) {
		return xpub, malformed("xpub length %d", len(keyData))
	}

	if _, err := btcec.ParsePubKey(keyData[xPubSize-btcec.PubKeyBytesLenCompressed:]); err != nil {
		return xpub, malformed("xpub public key: %v", err)
	}
	copy(xpub[:], keyData)

	return xpub, nil
}

// parseKeySource parses key origin value.
func parseKeySource(value []byte) (bip32.KeySource, error) {
	source, err := bip32.ParseKeySource(value)
	if err != nil {
		return bip32.KeySource{}, malformed("%v", err)
	}

	return source, nil
}
