// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package psbt

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/bip174/bitcoin/bip32"
	"github.com/BoostyLabs/bip174/internal/bufferutil"
)

const (
	// xPubSize defines size of the serialized BIP32 extended public key.
	xPubSize = 78
	// controlBlockNodeSize defines size of a single merkle path node of the control block.
	controlBlockNodeSize = 32
	// maxTapTreeDepth defines maximum taproot script tree depth.
	maxTapTreeDepth = 128
)

// Key defines raw map key: type byte followed by type specific key data.
// Used for fields the package does not interpret.
type Key struct {
	Type byte
	Data string
}

// NewKey is a constructor for Key.
func NewKey(keyType byte, data []byte) Key {
	return Key{Type: keyType, Data: string(data)}
}

// Bytes returns Key as serialized bytes.
func (k Key) Bytes() []byte {
	return append([]byte{k.Type}, k.Data...)
}

// ProprietaryKey defines key data of the proprietary (0xFC) type.
type ProprietaryKey struct {
	Prefix  string
	Subtype uint64
	Data    string
}

// parseProprietaryKey parses ProprietaryKey from key data.
func parseProprietaryKey(keyData []byte) (ProprietaryKey, error) {
	r := bufferutil.NewReader(keyData)
	prefix, err := r.ReadVarSlice()
	if err != nil {
		return ProprietaryKey{}, malformed("proprietary key prefix: %v", err)
	}

	subtype, err := r.ReadCompactSize()
	if err != nil {
		return ProprietaryKey{}, malformed("proprietary key subtype: %v", err)
	}

	data, _ := r.ReadBytes(r.Len())

	return ProprietaryKey{Prefix: string(prefix), Subtype: subtype, Data: string(data)}, nil
}

// bytes returns ProprietaryKey as key data.
func (k ProprietaryKey) bytes() []byte {
	w := bufferutil.NewWriter()
	w.WriteVarSlice([]byte(k.Prefix))
	w.WriteCompactSize(k.Subtype)
	w.WriteRaw([]byte(k.Data))

	return w.Bytes()
}

// PubKey defines compressed secp256k1 public key.
type PubKey [btcec.PubKeyBytesLenCompressed]byte

// NewPubKey returns compressed form of the public key.
func NewPubKey(pubKey *btcec.PublicKey) PubKey {
	var key PubKey
	copy(key[:], pubKey.SerializeCompressed())

	return key
}

// parsePubKey validates and parses compressed public key.
func parsePubKey(data []byte) (PubKey, error) {
	var key PubKey
	if len(data) != len(key) {
		return key, malformed("public key length %d", len(data))
	}

	if _, err := btcec.ParsePubKey(data); err != nil {
		return key, malformed("public key: %v", err)
	}

	copy(key[:], data)

	return key, nil
}

// XOnlyPubKey defines BIP340 x-only public key.
type XOnlyPubKey [schnorr.PubKeyBytesLen]byte

// NewXOnlyPubKey returns x-only form of the public key.
func NewXOnlyPubKey(pubKey *btcec.PublicKey) XOnlyPubKey {
	var key XOnlyPubKey
	copy(key[:], schnorr.SerializePubKey(pubKey))

	return key
}

// parseXOnlyPubKey validates and parses x-only public key.
func parseXOnlyPubKey(data []byte) (XOnlyPubKey, error) {
	var key XOnlyPubKey
	if len(data) != len(key) {
		return key, malformed("x-only public key length %d", len(data))
	}

	if _, err := schnorr.ParsePubKey(data); err != nil {
		return key, malformed("x-only public key: %v", err)
	}

	copy(key[:], data)

	return key, nil
}

// XPub defines serialized BIP32 extended public key.
type XPub [xPubSize]byte

// ControlBlock defines serialized taproot control block.
type ControlBlock string

// validateControlBlock checks control block size.
func validateControlBlock(data []byte) error {
	size := len(data) - txscript.ControlBlockBaseSize
	if size < 0 || size%controlBlockNodeSize != 0 || size/controlBlockNodeSize > maxTapTreeDepth {
		return malformed("control block length %d", len(data))
	}

	return nil
}

// TapScriptSigKey defines key of the taproot script spend signature.
type TapScriptSigKey struct {
	XOnlyPubKey XOnlyPubKey
	LeafHash    chainhash.Hash
}

// TapLeafScript defines leaf script with its leaf version.
type TapLeafScript struct {
	Script      []byte
	LeafVersion txscript.TapscriptLeafVersion
}

// TapKeyOrigin defines origin of the x-only key with leaf hashes it is used in.
type TapKeyOrigin struct {
	LeafHashes []chainhash.Hash
	Source     bip32.KeySource
}

// parseTapKeyOrigin parses TapKeyOrigin from the value.
func parseTapKeyOrigin(value []byte) (TapKeyOrigin, error) {
	r := bufferutil.NewReader(value)
	count, err := r.ReadCompactSize()
	if err != nil {
		return TapKeyOrigin{}, malformed("leaf hashes count: %v", err)
	}

	if count > uint64(r.Len()/chainhash.HashSize) {
		return TapKeyOrigin{}, malformed("leaf hashes count %d", count)
	}

	var origin TapKeyOrigin
	for i := uint64(0); i < count; i++ {
		hash, _ := r.ReadBytes(chainhash.HashSize)
		origin.LeafHashes = append(origin.LeafHashes, chainhash.Hash(hash))
	}

	rest, _ := r.ReadBytes(r.Len())
	origin.Source, err = bip32.ParseKeySource(rest)
	if err != nil {
		return TapKeyOrigin{}, malformed("%v", err)
	}

	return origin, nil
}

// bytes returns TapKeyOrigin as value bytes.
func (o TapKeyOrigin) bytes() []byte {
	w := bufferutil.NewWriter()
	w.WriteCompactSize(uint64(len(o.LeafHashes)))
	for _, hash := range o.LeafHashes {
		w.WriteRaw(hash[:])
	}
	w.WriteRaw(o.Source.Serialize())

	return w.Bytes()
}

// TapTreeLeaf defines single leaf of the taproot script tree in depth-first order.
type TapTreeLeaf struct {
	Depth       uint8
	LeafVersion txscript.TapscriptLeafVersion
	Script      []byte
}

// parseTapTree parses taproot tree leaves from the value.
func parseTapTree(value []byte) ([]TapTreeLeaf, error) {
	if len(value) == 0 {
		return nil, malformed("empty tap tree")
	}

	var (
		r      = bufferutil.NewReader(value)
		leaves []TapTreeLeaf
	)
	for r.Len() > 0 {
		depth, _ := r.ReadByte()
		if depth > maxTapTreeDepth {
			return nil, malformed("tap tree depth %d", depth)
		}

		version, err := r.ReadByte()
		if err != nil {
			return nil, malformed("tap tree leaf version: %v", err)
		}

		script, err := r.ReadVarSlice()
		if err != nil {
			return nil, malformed("tap tree leaf script: %v", err)
		}

		leaves = append(leaves, TapTreeLeaf{
			Depth:       depth,
			LeafVersion: txscript.TapscriptLeafVersion(version),
			Script:      script,
		})
	}

	return leaves, nil
}

// tapTreeBytes returns taproot tree leaves as value bytes.
func tapTreeBytes(leaves []TapTreeLeaf) []byte {
	w := bufferutil.NewWriter()
	for _, leaf := range leaves {
		w.WriteUint8(leaf.Depth)
		w.WriteUint8(byte(leaf.LeafVersion))
		w.WriteVarSlice(leaf.Script)
	}

	return w.Bytes()
}

// compareKeys orders encoded keys ascending.
func compareKeys(a, b []byte) int {
	return bytes.Compare(a, b)
}
