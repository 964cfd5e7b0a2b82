// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/bip174/bitcoin/bip32"
)

var (
	// ErrInsufficientBalance defines that utxos do not cover payments and fee.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidUTXOAmount defines that there are not enough utxos to select from.
	ErrInvalidUTXOAmount = errors.New("invalid utxo amount")
)

// UTXO describes unspent transaction output data.
type UTXO struct {
	TxHash    string
	Index     uint32           // output index in transaction outputs.
	Amount    btcutil.Amount   // in Satoshi.
	Script    []byte           // ScriptPubKey.
	Address   string           // output owner address.
	PubKey    string           // hex encoded owner public key, compressed or x-only.
	KeySource *bip32.KeySource // origin of PubKey, optional.
	PrevTx    *wire.MsgTx      // full previous transaction, required for legacy outputs.

	// TapScripts are leaf scripts committed by the taproot output, optional.
	// If set, the input is prepared for the script path spend.
	TapScripts [][]byte
}

// OutPoint returns outpoint spent by the UTXO.
func (u *UTXO) OutPoint() (*wire.OutPoint, error) {
	txHash, err := chainhash.NewHashFromStr(u.TxHash)
	if err != nil {
		return nil, err
	}

	return wire.NewOutPoint(txHash, u.Index), nil
}

// TxOut returns output spent by the UTXO.
func (u *UTXO) TxOut() *wire.TxOut {
	return wire.NewTxOut(int64(u.Amount), u.Script)
}

// Payment describes amount to be sent to the address.
type Payment struct {
	Address string
	Amount  btcutil.Amount // in Satoshi.
}
