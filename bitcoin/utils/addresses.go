// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package utils

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// NewTaprootAddressFromScripts generates taproot address of the internal key committing to
// the tree built from provided leaf scripts.
func NewTaprootAddressFromScripts(chainParams *chaincfg.Params, internalKey *btcec.PublicKey, leafScripts ...[]byte) (*btcutil.AddressTaproot, error) {
	tapScriptTree, err := NewTapScriptTreeFromRawScripts(leafScripts...)
	if err != nil {
		return nil, err
	}

	tapScriptRootHash := tapScriptTree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(internalKey, tapScriptRootHash[:])

	return btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), chainParams)
}

// NewTaprootKeySpendAddress generates taproot address spendable by the internal key only.
func NewTaprootKeySpendAddress(chainParams *chaincfg.Params, internalKey *btcec.PublicKey) (*btcutil.AddressTaproot, error) {
	outputKey := txscript.ComputeTaprootKeyNoScript(internalKey)

	return btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), chainParams)
}

// NewNestedSegWitAddress generates P2SH address wrapping P2WPKH of the public key.
// Returns the address and its redeem script.
func NewNestedSegWitAddress(chainParams *chaincfg.Params, pubKey *btcec.PublicKey) (*btcutil.AddressScriptHash, []byte, error) {
	witnessAddress, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pubKey.SerializeCompressed()), chainParams)
	if err != nil {
		return nil, nil, err
	}

	redeemScript, err := txscript.PayToAddrScript(witnessAddress)
	if err != nil {
		return nil, nil, err
	}

	address, err := btcutil.NewAddressScriptHash(redeemScript, chainParams)
	if err != nil {
		return nil, nil, err
	}

	return address, redeemScript, nil
}
