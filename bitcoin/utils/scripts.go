// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package utils

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"

	"github.com/BoostyLabs/bip174/bitcoin/psbt"
)

// NewDataCarrierScript builds provably unspendable script (OP_RETURN) with optional data pushed after.
// INFO: Def: https://en.bitcoin.it/wiki/OP_RETURN.
func NewDataCarrierScript(data []byte) ([]byte, error) {
	if len(data) > txscript.MaxDataCarrierSize {
		return nil, fmt.Errorf("data carrier size %d exceeds %d bytes", len(data), txscript.MaxDataCarrierSize)
	}

	scriptBuilder := txscript.NewScriptBuilder().AddOp(txscript.OP_RETURN)
	if len(data) > 0 {
		scriptBuilder.AddData(data)
	}

	return scriptBuilder.Script()
}

// NewTapScriptTreeFromRawScripts builds tapScript tree from provided raw leaf scripts.
func NewTapScriptTreeFromRawScripts(leafScripts ...[]byte) (*txscript.IndexedTapScriptTree, error) {
	if len(leafScripts) == 0 {
		return nil, errors.New("no leaf scripts provided")
	}

	var tapLeafs = make([]txscript.TapLeaf, len(leafScripts))
	for i, leafScript := range leafScripts {
		tapLeafs[i] = txscript.NewBaseTapLeaf(leafScript)
	}

	return txscript.AssembleTaprootScriptTree(tapLeafs...), nil
}

// TapTreeLeaves returns leaves of the tapScript tree in depth-first order with their depths.
func TapTreeLeaves(tapScriptTree *txscript.IndexedTapScriptTree) []psbt.TapTreeLeaf {
	var (
		leaves []psbt.TapTreeLeaf
		walk   func(node txscript.TapNode, depth uint8)
	)
	walk = func(node txscript.TapNode, depth uint8) {
		if leaf, ok := node.(txscript.TapLeaf); ok {
			leaves = append(leaves, psbt.TapTreeLeaf{Depth: depth, LeafVersion: leaf.LeafVersion, Script: leaf.Script})
			return
		}

		walk(node.Left(), depth+1)
		walk(node.Right(), depth+1)
	}
	walk(tapScriptTree.RootNode, 0)

	return leaves
}

// UpdatePSBTInputWithTapScriptLeafData updates psbt input with all data needed to sign taproot utxo
// by any of the tree leaves. Input taproot internal key has to be set.
func UpdatePSBTInputWithTapScriptLeafData(updater *psbt.Updater, index int, tapScriptTree *txscript.IndexedTapScriptTree) error {
	inputs := updater.Psbt().Inputs
	if index < 0 || index >= len(inputs) {
		return psbt.ErrIndexOutOfRange
	}

	input := &inputs[index]
	if input.TapInternalKey == nil {
		return errors.New("no taproot internal key provided")
	}
	if len(tapScriptTree.LeafMerkleProofs) == 0 {
		return errors.New("no leaf scripts provided")
	}

	masterPublicKey, err := schnorr.ParsePubKey(input.TapInternalKey[:])
	if err != nil {
		return err
	}

	for _, proof := range tapScriptTree.LeafMerkleProofs {
		cb := proof.ToControlBlock(masterPublicKey)
		ctrlBlock, err := cb.ToBytes()
		if err != nil {
			return err
		}

		err = updater.AddInTapLeafScript(index, ctrlBlock, psbt.TapLeafScript{
			Script:      proof.TapLeaf.Script,
			LeafVersion: proof.TapLeaf.LeafVersion,
		})
		if err != nil {
			return err
		}
	}

	if input.TapMerkleRoot == nil {
		return updater.SetInTapMerkleRoot(index, tapScriptTree.RootNode.TapHash())
	}

	return nil
}

// UpdatePSBTOutputWithTapScriptTree updates psbt output with taproot internal key and the script tree
// so the output owner is able to spend it later.
func UpdatePSBTOutputWithTapScriptTree(updater *psbt.Updater, index int, internalKey *btcec.PublicKey, tapScriptTree *txscript.IndexedTapScriptTree) error {
	if err := updater.SetOutTapInternalKey(index, internalKey); err != nil {
		return err
	}

	return updater.SetOutTapTree(index, TapTreeLeaves(tapScriptTree))
}
