// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package psbt

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/bip174/bitcoin/bip32"
)

// Updater attaches utxo, script and key origin data to the psbt records.
// Every setter overwrites the previous value. Values are copied, so the
// caller keeps ownership of its arguments.
type Updater struct {
	psbt *Psbt
}

// NewUpdater is a constructor for Updater.
func NewUpdater(p *Psbt) (*Updater, error) {
	if err := p.SanityCheck(); err != nil {
		return nil, err
	}

	return &Updater{psbt: p}, nil
}

// Psbt returns updated psbt.
func (u *Updater) Psbt() *Psbt {
	return u.psbt
}

// input returns input record by index.
func (u *Updater) input(index int) (*Input, error) {
	if index < 0 || index >= len(u.psbt.Inputs) {
		return nil, fmt.Errorf("%w: input %d of %d", ErrIndexOutOfRange, index, len(u.psbt.Inputs))
	}

	return &u.psbt.Inputs[index], nil
}

// output returns output record by index.
func (u *Updater) output(index int) (*Output, error) {
	if index < 0 || index >= len(u.psbt.Outputs) {
		return nil, fmt.Errorf("%w: output %d of %d", ErrIndexOutOfRange, index, len(u.psbt.Outputs))
	}

	return &u.psbt.Outputs[index], nil
}

// SetInNonWitnessUtxo sets full previous transaction of the input.
func (u *Updater) SetInNonWitnessUtxo(index int, tx *wire.MsgTx) error {
	in, err := u.input(index)
	if err != nil {
		return err
	}

	if tx == nil {
		return fmt.Errorf("%w: missing non-witness utxo", ErrMalformedData)
	}

	in.NonWitnessUtxo = tx.Copy()

	return nil
}

// SetInWitnessUtxo sets spent output of the input.
func (u *Updater) SetInWitnessUtxo(index int, txOut *wire.TxOut) error {
	in, err := u.input(index)
	if err != nil {
		return err
	}

	if txOut == nil {
		return fmt.Errorf("%w: missing witness utxo", ErrMalformedData)
	}

	in.WitnessUtxo = wire.NewTxOut(txOut.Value, cloneBytes(txOut.PkScript))

	return nil
}

// SetInSighashType sets signature hash type of the input.
func (u *Updater) SetInSighashType(index int, sighashType txscript.SigHashType) error {
	in, err := u.input(index)
	if err != nil {
		return err
	}

	in.SighashType = &sighashType

	return nil
}

// SetInRedeemScript sets P2SH redeem script of the input.
func (u *Updater) SetInRedeemScript(index int, script []byte) error {
	in, err := u.input(index)
	if err != nil {
		return err
	}

	in.RedeemScript = cloneScript(script)

	return nil
}

// SetInWitnessScript sets P2WSH witness script of the input.
func (u *Updater) SetInWitnessScript(index int, script []byte) error {
	in, err := u.input(index)
	if err != nil {
		return err
	}

	in.WitnessScript = cloneScript(script)

	return nil
}

// AddInBip32Derivation sets key origin of the public key used by the input.
func (u *Updater) AddInBip32Derivation(index int, pubKey *btcec.PublicKey, source bip32.KeySource) error {
	in, err := u.input(index)
	if err != nil {
		return err
	}

	if err = checkPubKey(pubKey); err != nil {
		return err
	}

	if in.Bip32Derivation == nil {
		in.Bip32Derivation = make(map[PubKey]bip32.KeySource)
	}
	in.Bip32Derivation[NewPubKey(pubKey)] = source

	return nil
}

// SetInTapInternalKey sets taproot internal key of the input.
func (u *Updater) SetInTapInternalKey(index int, pubKey *btcec.PublicKey) error {
	in, err := u.input(index)
	if err != nil {
		return err
	}

	if err = checkPubKey(pubKey); err != nil {
		return err
	}

	key := NewXOnlyPubKey(pubKey)
	in.TapInternalKey = &key

	return nil
}

// SetInTapMerkleRoot sets taproot script tree root of the input.
func (u *Updater) SetInTapMerkleRoot(index int, root chainhash.Hash) error {
	in, err := u.input(index)
	if err != nil {
		return err
	}

	in.TapMerkleRoot = &root

	return nil
}

// AddInTapLeafScript sets leaf script spendable with the control block.
func (u *Updater) AddInTapLeafScript(index int, controlBlock []byte, leaf TapLeafScript) error {
	in, err := u.input(index)
	if err != nil {
		return err
	}

	if err = validateControlBlock(controlBlock); err != nil {
		return err
	}

	if in.TapLeafScripts == nil {
		in.TapLeafScripts = make(map[ControlBlock]TapLeafScript)
	}
	in.TapLeafScripts[ControlBlock(controlBlock)] = TapLeafScript{
		Script:      cloneBytes(leaf.Script),
		LeafVersion: leaf.LeafVersion,
	}

	return nil
}

// AddInTapBip32Derivation sets origin of the x-only key used by the input.
func (u *Updater) AddInTapBip32Derivation(index int, pubKey *btcec.PublicKey, origin TapKeyOrigin) error {
	in, err := u.input(index)
	if err != nil {
		return err
	}

	if err = checkPubKey(pubKey); err != nil {
		return err
	}

	if in.TapBip32Derivation == nil {
		in.TapBip32Derivation = make(map[XOnlyPubKey]TapKeyOrigin)
	}
	in.TapBip32Derivation[NewXOnlyPubKey(pubKey)] = cloneTapKeyOrigin(origin)

	return nil
}

// AddInProprietary sets proprietary value of the input.
func (u *Updater) AddInProprietary(index int, key ProprietaryKey, value []byte) error {
	in, err := u.input(index)
	if err != nil {
		return err
	}

	if in.Proprietary == nil {
		in.Proprietary = make(map[ProprietaryKey][]byte)
	}
	in.Proprietary[key] = cloneBytes(value)

	return nil
}

// SetOutRedeemScript sets P2SH redeem script of the output.
func (u *Updater) SetOutRedeemScript(index int, script []byte) error {
	out, err := u.output(index)
	if err != nil {
		return err
	}

	out.RedeemScript = cloneScript(script)

	return nil
}

// SetOutWitnessScript sets P2WSH witness script of the output.
func (u *Updater) SetOutWitnessScript(index int, script []byte) error {
	out, err := u.output(index)
	if err != nil {
		return err
	}

	out.WitnessScript = cloneScript(script)

	return nil
}

// AddOutBip32Derivation sets key origin of the public key used by the output.
func (u *Updater) AddOutBip32Derivation(index int, pubKey *btcec.PublicKey, source bip32.KeySource) error {
	out, err := u.output(index)
	if err != nil {
		return err
	}

	if err = checkPubKey(pubKey); err != nil {
		return err
	}

	if out.Bip32Derivation == nil {
		out.Bip32Derivation = make(map[PubKey]bip32.KeySource)
	}
	out.Bip32Derivation[NewPubKey(pubKey)] = source

	return nil
}

// SetOutTapInternalKey sets taproot internal key of the output.
func (u *Updater) SetOutTapInternalKey(index int, pubKey *btcec.PublicKey) error {
	out, err := u.output(index)
	if err != nil {
		return err
	}

	if err = checkPubKey(pubKey); err != nil {
		return err
	}

	key := NewXOnlyPubKey(pubKey)
	out.TapInternalKey = &key

	return nil
}

// SetOutTapTree sets taproot script tree leaves of the output in depth-first order.
func (u *Updater) SetOutTapTree(index int, leaves []TapTreeLeaf) error {
	out, err := u.output(index)
	if err != nil {
		return err
	}

	if len(leaves) == 0 {
		return malformed("empty tap tree")
	}

	tree := make([]TapTreeLeaf, 0, len(leaves))
	for _, leaf := range leaves {
		if leaf.Depth > maxTapTreeDepth {
			return malformed("tap tree depth %d", leaf.Depth)
		}

		tree = append(tree, TapTreeLeaf{Depth: leaf.Depth, LeafVersion: leaf.LeafVersion, Script: cloneBytes(leaf.Script)})
	}
	out.TapTree = tree

	return nil
}

// AddOutTapBip32Derivation sets origin of the x-only key used by the output.
func (u *Updater) AddOutTapBip32Derivation(index int, pubKey *btcec.PublicKey, origin TapKeyOrigin) error {
	out, err := u.output(index)
	if err != nil {
		return err
	}

	if err = checkPubKey(pubKey); err != nil {
		return err
	}

	if out.TapBip32Derivation == nil {
		out.TapBip32Derivation = make(map[XOnlyPubKey]TapKeyOrigin)
	}
	out.TapBip32Derivation[NewXOnlyPubKey(pubKey)] = cloneTapKeyOrigin(origin)

	return nil
}

// AddOutProprietary sets proprietary value of the output.
func (u *Updater) AddOutProprietary(index int, key ProprietaryKey, value []byte) error {
	out, err := u.output(index)
	if err != nil {
		return err
	}

	if out.Proprietary == nil {
		out.Proprietary = make(map[ProprietaryKey][]byte)
	}
	out.Proprietary[key] = cloneBytes(value)

	return nil
}

// AddGlobalXPub sets key origin of the extended key. Private keys are neutered.
func (u *Updater) AddGlobalXPub(key *hdkeychain.ExtendedKey, source bip32.KeySource) error {
	xpub, err := NewXPub(key)
	if err != nil {
		return err
	}

	if u.psbt.Global.XPubs == nil {
		u.psbt.Global.XPubs = make(map[XPub]bip32.KeySource)
	}
	u.psbt.Global.XPubs[xpub] = source

	return nil
}

// AddGlobalUnknown sets global value of the key type the package does not interpret.
func (u *Updater) AddGlobalUnknown(key Key, value []byte) error {
	if globalCodec.isKnown(key.Type) {
		return fmt.Errorf("%w: global key type %#02x is not unknown", ErrMalformedData, key.Type)
	}

	if u.psbt.Global.Unknown == nil {
		u.psbt.Global.Unknown = make(map[Key][]byte)
	}
	u.psbt.Global.Unknown[key] = cloneBytes(value)

	return nil
}

// ReplaceInputs replaces all input records at once.
func (u *Updater) ReplaceInputs(inputs []Input) error {
	if len(inputs) != len(u.psbt.Global.UnsignedTx.TxIn) {
		return fmt.Errorf("%w: %d inputs, %d transaction inputs", ErrCountMismatch, len(inputs), len(u.psbt.Global.UnsignedTx.TxIn))
	}

	u.psbt.Inputs = append(make([]Input, 0, len(inputs)), inputs...)

	return nil
}

// ReplaceOutputs replaces all output records at once.
func (u *Updater) ReplaceOutputs(outputs []Output) error {
	if len(outputs) != len(u.psbt.Global.UnsignedTx.TxOut) {
		return fmt.Errorf("%w: %d outputs, %d transaction outputs", ErrCountMismatch, len(outputs), len(u.psbt.Global.UnsignedTx.TxOut))
	}

	u.psbt.Outputs = append(make([]Output, 0, len(outputs)), outputs...)

	return nil
}

// NewXPub returns serialized extended public key of the key.
func NewXPub(key *hdkeychain.ExtendedKey) (XPub, error) {
	var xpub XPub
	if key == nil {
		return xpub, fmt.Errorf("%w: missing extended key", ErrMalformedData)
	}

	if key.IsPrivate() {
		var err error
		key, err = key.Neuter()
		if err != nil {
			return xpub, err
		}
	}

	// base58 form is the serialized key followed by 4 bytes checksum.
	decoded := base58.Decode(key.String())
	if len(decoded) != xPubSize+4 {
		return xpub, fmt.Errorf("%w: extended key length %d", ErrMalformedData, len(decoded))
	}
	copy(xpub[:], decoded)

	return xpub, nil
}

// ExtendedKey returns XPub as hdkeychain extended key.
func (x XPub) ExtendedKey() (*hdkeychain.ExtendedKey, error) {
	checksum := chainhash.DoubleHashB(x[:])[:4]
	return hdkeychain.NewKeyFromString(base58.Encode(append(x[:], checksum...)))
}

// cloneScript copies script keeping empty non-nil scripts present.
func cloneScript(script []byte) []byte {
	if script == nil {
		return nil
	}

	return append(make([]byte, 0, len(script)), script...)
}

// cloneBytes copies value, empty values become nil.
func cloneBytes(value []byte) []byte {
	if len(value) == 0 {
		return nil
	}

	return bytes.Clone(value)
}

// cloneTapKeyOrigin copies leaf hashes of the origin, no leaf hashes become nil.
func cloneTapKeyOrigin(origin TapKeyOrigin) TapKeyOrigin {
	if len(origin.LeafHashes) == 0 {
		origin.LeafHashes = nil
	} else {
		origin.LeafHashes = append(make([]chainhash.Hash, 0, len(origin.LeafHashes)), origin.LeafHashes...)
	}

	return origin
}

// checkPubKey fails for missing public key.
func checkPubKey(pubKey *btcec.PublicKey) error {
	if pubKey == nil {
		return fmt.Errorf("%w: missing public key", ErrMalformedData)
	}

	return nil
}
