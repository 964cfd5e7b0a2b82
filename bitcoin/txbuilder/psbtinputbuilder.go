// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"bytes"
	"encoding/hex"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/bip174/bitcoin/bip32"
	"github.com/BoostyLabs/bip174/bitcoin/psbt"
	"github.com/BoostyLabs/bip174/bitcoin/utils"
)

// ErrPSBTInputBuilder defines errors class for prepare address data method.
var ErrPSBTInputBuilder = errors.New("prepare address data")

const (
	// P2PK defines P2PK (public key) script type over which the address is built.
	P2PK = "P2PK"
	// P2PKH defines P2PK (public key hash) script type over which the address is built.
	P2PKH = "P2PKH"
	// P2SH defines P2SH (script hash) script type over which the address is built.
	P2SH = "P2SH"
	// P2WPKH defines P2WPKH (witness public key hash) script type over which the address is built.
	P2WPKH = "P2WPKH"
	// P2WSH defines P2WSH (witness script hash) script type over which the address is built.
	P2WSH = "P2WSH"
	// P2TR defines P2TR (taproot) script type over which the address is built.
	P2TR = "P2TR"
)

// PSBTInputBuilder is a helping tool to prepare psbt input based on address type.
type PSBTInputBuilder struct {
	params        *chaincfg.Params
	scriptType    string
	address       btcutil.Address
	publicKey     *btcec.PublicKey
	witnessScript []byte
	redeemScript  []byte
	tapScriptTree *txscript.IndexedTapScriptTree
}

// NewPSBTInputBuilder is a constructor for PSBTInputBuilder.
// pubKey is a hex encoded compressed public key, taproot addresses accept x-only keys as well.
func NewPSBTInputBuilder(pubKey, address string, networkParams *chaincfg.Params) (pib *PSBTInputBuilder, err error) {
	pib = &PSBTInputBuilder{params: networkParams}

	defer func(err *error) {
		if err != nil && *err != nil {
			*err = errors.Join(ErrPSBTInputBuilder, *err)
		}
	}(&err)

	publicKeyBytes, err := hex.DecodeString(pubKey)
	if err != nil {
		return pib, err
	}

	if len(publicKeyBytes) == schnorr.PubKeyBytesLen {
		pib.publicKey, err = schnorr.ParsePubKey(publicKeyBytes)
	} else {
		pib.publicKey, err = btcec.ParsePubKey(publicKeyBytes)
	}
	if err != nil {
		return pib, err
	}

	pib.address, err = btcutil.DecodeAddress(address, pib.params)
	if err != nil {
		return pib, err
	}

	switch pib.address.(type) {
	case *btcutil.AddressTaproot:
		pib.scriptType = P2TR
	case *btcutil.AddressWitnessPubKeyHash:
		pib.scriptType = P2WPKH
	case *btcutil.AddressWitnessScriptHash:
		pib.scriptType = P2WSH
	case *btcutil.AddressPubKeyHash:
		pib.scriptType = P2PKH
	case *btcutil.AddressPubKey:
		pib.scriptType = P2PK
	case *btcutil.AddressScriptHash:
		pib.scriptType = P2SH
	default:
		return pib, btcutil.ErrUnknownAddressType
	}

	if pib.scriptType != P2TR && len(publicKeyBytes) == schnorr.PubKeyBytesLen {
		return pib, errors.New("x-only public key is allowed for taproot address only")
	}

	if pib.scriptType == P2SH {
		// only nested P2WPKH is derivable from the public key.
		var nested *btcutil.AddressScriptHash
		nested, pib.redeemScript, err = utils.NewNestedSegWitAddress(pib.params, pib.publicKey)
		if err != nil {
			return pib, err
		}

		if !bytes.Equal(nested.ScriptAddress(), pib.address.ScriptAddress()) {
			return pib, errors.New("address is not a nested segwit address of the public key")
		}
	}

	return pib, nil
}

// SetWitnessScript sets P2WSH witness script, it has to match the address.
func (pib *PSBTInputBuilder) SetWitnessScript(script []byte) error {
	if pib.scriptType != P2WSH {
		return errors.Join(ErrPSBTInputBuilder, errors.New("witness script is allowed for P2WSH address only"))
	}

	if !bytes.Equal(chainhash.HashB(script), pib.address.ScriptAddress()) {
		return errors.Join(ErrPSBTInputBuilder, errors.New("witness script does not match the address"))
	}
	pib.witnessScript = script

	return nil
}

// SetTapScripts sets leaf scripts of the taproot tree, the address has to commit to them.
func (pib *PSBTInputBuilder) SetTapScripts(scripts ...[]byte) error {
	if pib.scriptType != P2TR {
		return errors.Join(ErrPSBTInputBuilder, errors.New("tap scripts are allowed for P2TR address only"))
	}

	address, err := utils.NewTaprootAddressFromScripts(pib.params, pib.publicKey, scripts...)
	if err != nil {
		return errors.Join(ErrPSBTInputBuilder, err)
	}

	if !bytes.Equal(address.ScriptAddress(), pib.address.ScriptAddress()) {
		return errors.Join(ErrPSBTInputBuilder, errors.New("tap scripts do not match the address"))
	}

	pib.tapScriptTree, err = utils.NewTapScriptTreeFromRawScripts(scripts...)
	if err != nil {
		return errors.Join(ErrPSBTInputBuilder, err)
	}

	return nil
}

// checkTaprootKeySpend verifies that taproot address without tap scripts is built over the public key.
func (pib *PSBTInputBuilder) checkTaprootKeySpend() error {
	address, err := utils.NewTaprootKeySpendAddress(pib.params, pib.publicKey)
	if err != nil {
		return errors.Join(ErrPSBTInputBuilder, err)
	}

	if !bytes.Equal(address.ScriptAddress(), pib.address.ScriptAddress()) {
		return errors.Join(ErrPSBTInputBuilder, errors.New("address is not a taproot key spend address of the public key"))
	}

	return nil
}

// PrepareInput updates psbt input with required data based on address type.
func (pib *PSBTInputBuilder) PrepareInput(updater *psbt.Updater, index int) error {
	switch pib.scriptType {
	case P2TR:
		if pib.tapScriptTree == nil {
			if err := pib.checkTaprootKeySpend(); err != nil {
				return err
			}

			return updater.SetInTapInternalKey(index, pib.publicKey)
		}

		if err := updater.SetInTapInternalKey(index, pib.publicKey); err != nil {
			return err
		}

		return utils.UpdatePSBTInputWithTapScriptLeafData(updater, index, pib.tapScriptTree)
	case P2SH:
		return updater.SetInRedeemScript(index, pib.redeemScript)
	case P2WSH:
		if pib.witnessScript == nil {
			return errors.Join(ErrPSBTInputBuilder, errors.New("no witness script provided"))
		}

		return updater.SetInWitnessScript(index, pib.witnessScript)
	}

	return nil
}

// PrepareOutput updates psbt output paying to the address with data needed to spend it later.
func (pib *PSBTInputBuilder) PrepareOutput(updater *psbt.Updater, index int) error {
	switch pib.scriptType {
	case P2TR:
		if pib.tapScriptTree == nil {
			if err := pib.checkTaprootKeySpend(); err != nil {
				return err
			}

			return updater.SetOutTapInternalKey(index, pib.publicKey)
		}

		return utils.UpdatePSBTOutputWithTapScriptTree(updater, index, pib.publicKey, pib.tapScriptTree)
	case P2SH:
		return updater.SetOutRedeemScript(index, pib.redeemScript)
	case P2WSH:
		if pib.witnessScript != nil {
			return updater.SetOutWitnessScript(index, pib.witnessScript)
		}
	}

	return nil
}

// PrepareKeySource updates psbt input with the public key origin.
func (pib *PSBTInputBuilder) PrepareKeySource(updater *psbt.Updater, index int, source bip32.KeySource) error {
	if pib.scriptType == P2TR {
		return updater.AddInTapBip32Derivation(index, pib.publicKey, psbt.TapKeyOrigin{Source: source})
	}

	return updater.AddInBip32Derivation(index, pib.publicKey, source)
}

// PrepareOutputKeySource updates psbt output with the public key origin.
func (pib *PSBTInputBuilder) PrepareOutputKeySource(updater *psbt.Updater, index int, source bip32.KeySource) error {
	if pib.scriptType == P2TR {
		return updater.AddOutTapBip32Derivation(index, pib.publicKey, psbt.TapKeyOrigin{Source: source})
	}

	return updater.AddOutBip32Derivation(index, pib.publicKey, source)
}

// IsSegWit returns true if the input is signed over the spent output only,
// so witness utxo is enough to sign it.
func (pib *PSBTInputBuilder) IsSegWit() bool {
	return pib.scriptType != P2PK && pib.scriptType != P2PKH
}

// InputsHelpingKey return InputsHelpingKey for wallet input indexes distinguishing.
func (pib *PSBTInputBuilder) InputsHelpingKey(isForFeePayer bool) InputsHelpingKey {
	switch {
	case isForFeePayer && pib.scriptType == P2TR:
		return FeePayerTaprootInputsHelpingKey
	case !isForFeePayer && pib.scriptType == P2TR:
		return TaprootInputsHelpingKey
	case isForFeePayer:
		return FeePayerPaymentInputsHelpingKey
	default:
		return PaymentInputsHelpingKey
	}
}

// ScriptType returns underlying script type.
func (pib *PSBTInputBuilder) ScriptType() string {
	return pib.scriptType
}

// PublicKey returns public key of the address owner.
func (pib *PSBTInputBuilder) PublicKey() *btcec.PublicKey {
	return pib.publicKey
}
