// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"errors"
	"slices"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/bip174/bitcoin"
	"github.com/BoostyLabs/bip174/bitcoin/bip32"
	"github.com/BoostyLabs/bip174/bitcoin/psbt"
	"github.com/BoostyLabs/bip174/bitcoin/utils"
)

const (
	// txVersion defines transaction version for this builder.
	txVersion int32 = 2
	// signHashType define signature hash type for input signing.
	signHashType = txscript.SigHashAll

	// headerSizeVBytes defined rough tx header size in vBytes.
	headerSizeVBytes = 11
	// inputSizeVBytes defined rough tx input size in vBytes.
	inputSizeVBytes = 90
	// outputSizeVBytes defined rough tx output size in vBytes.
	outputSizeVBytes = 30

	// dustAmount defined the smallest amount in satoshi worth to create change output.
	dustAmount btcutil.Amount = 546
)

// PSBTParams describes data needed to build payment partly signed bitcoin transaction (PSBT).
type PSBTParams struct {
	UTXOs            []bitcoin.UTXO // must be sorted by btc amount desc.
	Payments         []bitcoin.Payment
	SatoshiPerKVByte btcutil.Amount // fee rate in satoshi per kilo virtual byte.
	ChangeAddress    string         // sender change address.
	ChangePubKey     string         // optional, hex encoded public key of the change address.
	ChangeKeySource  *bip32.KeySource
	ChangeTapScripts [][]byte // optional, leaf scripts committed by the taproot change address.
	Memo             []byte   // optional, data of the zero amount OP_RETURN output.

	// FeePayerUTXOs are optional, if set the fee is charged from them instead of UTXOs.
	FeePayerUTXOs         []bitcoin.UTXO // must be sorted by btc amount desc.
	FeePayerChangeAddress string
}

// TxBuilder provides transaction building related logic.
type TxBuilder struct {
	networkParams *chaincfg.Params
}

// NewTxBuilder is a constructor for TxBuilder.
func NewTxBuilder(networkParams *chaincfg.Params) *TxBuilder {
	return &TxBuilder{
		networkParams: networkParams,
	}
}

// BuildPSBT selects utxos to cover payments and fee, creates psbt of the payment transaction
// and updates its inputs and change output with data needed to sign them.
// Returns psbt and fee in satoshi.
//
//	Tx struct
//	inputs:
//	┌─────────┬──────────────┬────────────────────────────────────────┐
//	│  index  │     type     │             description                │
//	├=========┼==============┼========================================┤
//	│   0 - k │ sender       │ utxos to cover payments, possibly many │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│ k+1 - n │ fee payer    │ optional, utxos to cover fee           │
//	└─────────┴──────────────┴────────────────────────────────────────┘
//
//	outputs:
//	┌─────────┬──────────────┬────────────────────────────────────────┐
//	│  index  │     type     │             description                │
//	├=========┼==============┼========================================┤
//	│   0 - m │ payments     │ outputs in order of the payments       │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│     m+1 │ memo         │ optional, zero amount OP_RETURN output │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│     m+2 │ change       │ sender change, if not dust             │
//	├─────────┼──────────────┼────────────────────────────────────────┤
//	│     m+3 │ change       │ fee payer change, if not dust          │
//	└─────────┴──────────────┴────────────────────────────────────────┘
func (b *TxBuilder) BuildPSBT(params PSBTParams) (*psbt.Psbt, btcutil.Amount, error) {
	if len(params.Payments) == 0 {
		return nil, 0, errors.New("no payments provided")
	}

	var transferAmount btcutil.Amount
	for _, payment := range params.Payments {
		if payment.Amount <= 0 {
			return nil, 0, errors.New("payment amount must be positive")
		}
		transferAmount += payment.Amount
	}

	var (
		withFeePayer = len(params.FeePayerUTXOs) > 0
		outputs      = len(params.Payments) + 1
		senderRate   = params.SatoshiPerKVByte
	)
	if withFeePayer {
		outputs++
		senderRate = 0
	}
	if len(params.Memo) > 0 {
		outputs++
	}

	usedUTXOs, senderAmount, fee, err := PrepareUTXOs(params.UTXOs, 0, outputs, transferAmount, senderRate)
	if err != nil {
		return nil, 0, withCauser(err, CauserSender)
	}

	var (
		usedFeePayerUTXOs []*bitcoin.UTXO
		feePayerAmount    btcutil.Amount
	)
	if withFeePayer {
		usedFeePayerUTXOs, feePayerAmount, fee, err = PrepareUTXOs(params.FeePayerUTXOs, len(usedUTXOs), outputs, 0, params.SatoshiPerKVByte)
		if err != nil {
			return nil, 0, withCauser(err, CauserFeePayer)
		}
	}

	tx := wire.NewMsgTx(txVersion)
	for _, utxo := range append(slices.Clone(usedUTXOs), usedFeePayerUTXOs...) {
		outPoint, err := utxo.OutPoint()
		if err != nil {
			return nil, 0, err
		}

		tx.AddTxIn(wire.NewTxIn(outPoint, nil, nil))
	}

	unallocatedAmount := senderAmount
	for _, payment := range params.Payments {
		if err = b.addOutput(tx, payment.Amount, &unallocatedAmount, payment.Address); err != nil {
			return nil, 0, err
		}
	}

	if len(params.Memo) > 0 {
		memoScript, err := utils.NewDataCarrierScript(params.Memo)
		if err != nil {
			return nil, 0, err
		}

		tx.AddTxOut(wire.NewTxOut(0, memoScript))
	}

	if !withFeePayer {
		unallocatedAmount -= fee
	}

	changeIndex := -1
	if unallocatedAmount >= dustAmount {
		changeIndex = len(tx.TxOut)
		if err = b.addOutput(tx, unallocatedAmount, &unallocatedAmount, params.ChangeAddress); err != nil {
			return nil, 0, err
		}
	}

	if withFeePayer {
		feePayerChange := feePayerAmount - fee
		if feePayerChange >= dustAmount {
			if err = b.addOutput(tx, feePayerChange, &feePayerChange, params.FeePayerChangeAddress); err != nil {
				return nil, 0, err
			}
		}
	}

	p, err := psbt.New(tx)
	if err != nil {
		return nil, 0, err
	}

	updater, err := psbt.NewUpdater(p)
	if err != nil {
		return nil, 0, err
	}

	helpingKeys := make(map[InputsHelpingKey][]int, 2)
	for idx, utxo := range usedUTXOs {
		key, err := b.prepareInput(updater, idx, utxo, false)
		if err != nil {
			return nil, 0, err
		}
		helpingKeys[key] = append(helpingKeys[key], idx)
	}

	for i, utxo := range usedFeePayerUTXOs {
		idx := i + len(usedUTXOs)
		key, err := b.prepareInput(updater, idx, utxo, true)
		if err != nil {
			return nil, 0, err
		}
		helpingKeys[key] = append(helpingKeys[key], idx)
	}

	if err = AddInputsHelpingKeys(updater, helpingKeys); err != nil {
		return nil, 0, err
	}

	if changeIndex >= 0 && params.ChangePubKey != "" {
		if err = b.prepareChangeOutput(updater, changeIndex, params); err != nil {
			return nil, 0, err
		}
	}

	return p, actualFee(tx, usedUTXOs, usedFeePayerUTXOs), nil
}

// prepareInput updates psbt input with the spent output, script and key origin data.
func (b *TxBuilder) prepareInput(updater *psbt.Updater, idx int, utxo *bitcoin.UTXO, isForFeePayer bool) (InputsHelpingKey, error) {
	pib, err := NewPSBTInputBuilder(utxo.PubKey, utxo.Address, b.networkParams)
	if err != nil {
		return 0, err
	}

	if len(utxo.TapScripts) > 0 {
		if err = pib.SetTapScripts(utxo.TapScripts...); err != nil {
			return 0, err
		}
	}

	if pib.IsSegWit() {
		if err = updater.SetInWitnessUtxo(idx, utxo.TxOut()); err != nil {
			return 0, err
		}
	}

	if utxo.PrevTx != nil {
		if err = updater.SetInNonWitnessUtxo(idx, utxo.PrevTx); err != nil {
			return 0, err
		}
	} else if !pib.IsSegWit() {
		return 0, errors.New("previous transaction is required for legacy inputs")
	}

	if err = updater.SetInSighashType(idx, signHashType); err != nil {
		return 0, err
	}

	if err = pib.PrepareInput(updater, idx); err != nil {
		return 0, err
	}

	if utxo.KeySource != nil {
		if err = pib.PrepareKeySource(updater, idx, *utxo.KeySource); err != nil {
			return 0, err
		}
	}

	return pib.InputsHelpingKey(isForFeePayer), nil
}

// prepareChangeOutput updates change output with the script and key origin data.
func (b *TxBuilder) prepareChangeOutput(updater *psbt.Updater, idx int, params PSBTParams) error {
	pib, err := NewPSBTInputBuilder(params.ChangePubKey, params.ChangeAddress, b.networkParams)
	if err != nil {
		return err
	}

	if len(params.ChangeTapScripts) > 0 {
		if err = pib.SetTapScripts(params.ChangeTapScripts...); err != nil {
			return err
		}
	}

	if err = pib.PrepareOutput(updater, idx); err != nil {
		return err
	}

	var source bip32.KeySource
	if params.ChangeKeySource != nil {
		source = *params.ChangeKeySource
	}

	return pib.PrepareOutputKeySource(updater, idx, source)
}

// actualFee returns difference between spent and created amounts.
func actualFee(tx *wire.MsgTx, utxos ...[]*bitcoin.UTXO) btcutil.Amount {
	var fee btcutil.Amount
	for _, list := range utxos {
		for _, utxo := range list {
			fee += utxo.Amount
		}
	}

	for _, out := range tx.TxOut {
		fee -= btcutil.Amount(out.Value)
	}

	return fee
}

// withCauser attaches causer to the insufficient balance error.
func withCauser(err error, causer causerSign) error {
	var insufficientErr *InsufficientError
	if errors.As(err, &insufficientErr) {
		insufficientErr.Causer = causer
	}

	return err
}

// PrepareUTXOs selects utxos to cover rough estimated fee.
// Returns used utxos, total satoshi amount of utxos, rough estimation in satoshi and error if any.
func PrepareUTXOs(utxos []bitcoin.UTXO, inputs, outputs int, transferAmount, satoshiPerKVByte btcutil.Amount) (usedUTXOs []*bitcoin.UTXO, totalAmount, roughEstimate btcutil.Amount, err error) {
	satFn := func(u *bitcoin.UTXO) btcutil.Amount { return u.Amount }

	for i := 1; i <= len(utxos); i++ {
		// vB * ( sat / kvB ) = 1000 sat.
		roughEstimate = RoughTxSizeEstimate(i+inputs, outputs) * satoshiPerKVByte / 1000

		usedUTXOs, totalAmount, err = SelectUTXO(utxos, satFn, roughEstimate+transferAmount, i)
		if err != nil {
			if errors.Is(err, bitcoin.ErrInsufficientBalance) {
				continue
			}

			return nil, 0, 0, err
		}

		return usedUTXOs, totalAmount, roughEstimate, nil
	}

	var have btcutil.Amount
	for _, utxo := range utxos {
		have += utxo.Amount
	}

	return nil, 0, 0, NewInsufficientError(CauserSender, roughEstimate+transferAmount, have)
}

// RoughTxSizeEstimate returns Tx rough estimated size in vBytes.
func RoughTxSizeEstimate(inputs, outputs int) btcutil.Amount {
	return btcutil.Amount(headerSizeVBytes + inputSizeVBytes*inputs + outputSizeVBytes*outputs)
}

// SelectUTXO is a partly greedy selection algorithm for UTXOs with 'requiredUTXOs' parameter.
// Returns list of selected by algorithm UTXOs with total amount, counted by passed amount function.
func SelectUTXO(utxos []bitcoin.UTXO, amountFn func(*bitcoin.UTXO) btcutil.Amount, minAmount btcutil.Amount, requiredUTXOs int) (usedUTXOs []*bitcoin.UTXO, totalAmount btcutil.Amount, _ error) {
	if len(utxos) < requiredUTXOs || requiredUTXOs < 1 {
		return nil, 0, bitcoin.ErrInvalidUTXOAmount
	}

	usedUTXOs = make([]*bitcoin.UTXO, 0, requiredUTXOs)
	var startIdx = 0
	var usedIdxs = make([]int, 0, requiredUTXOs)

	// find the closest by amount UTXO that is grater then minAmount or take the biggest possible.
	for idx := range utxos {
		if minAmount > amountFn(&utxos[idx]) {
			break
		}

		startIdx = idx
	}

	usedIdxs = append(usedIdxs, startIdx)
	totalAmount += amountFn(&utxos[startIdx])
	usedUTXOs = append(usedUTXOs, &utxos[startIdx])
	requiredUTXOs--

	// pick bigger amount if total amount do not cover minAmount, otherwise - the smallest to pass requiredUTXOs.
	for ; requiredUTXOs > 0; requiredUTXOs-- {
		idx := selectUnused(startIdx, len(utxos), usedIdxs, totalAmount >= minAmount)
		if idx == -1 {
			return nil, 0, bitcoin.ErrInvalidUTXOAmount
		}

		usedIdxs = append(usedIdxs, idx)
		totalAmount += amountFn(&utxos[idx])
		usedUTXOs = append(usedUTXOs, &utxos[idx])
	}

	if minAmount > totalAmount {
		return nil, 0, bitcoin.ErrInsufficientBalance
	}

	return usedUTXOs, totalAmount, nil
}

// addOutput adds output to transaction, subtracts amount from unallocated amount.
func (b *TxBuilder) addOutput(tx *wire.MsgTx, amount btcutil.Amount, unallocatedAmount *btcutil.Amount, address string) error {
	if *unallocatedAmount < amount {
		return errors.New("unallocated amount is less than the amount in provided inputs")
	}

	recipientAddress, err := btcutil.DecodeAddress(address, b.networkParams)
	if err != nil {
		return err
	}

	destinationAddrByte, err := txscript.PayToAddrScript(recipientAddress)
	if err != nil {
		return err
	}

	tx.AddTxOut(wire.NewTxOut(int64(amount), destinationAddrByte))
	*unallocatedAmount -= amount

	return nil
}

// selectUnused returns first unused idx depending on search direction.
func selectUnused(start, end int, usedIdxs []int, reversed bool) int {
	if reversed {
		for idx := end - 1; idx >= start; idx-- {
			if !isUsed(idx, usedIdxs) {
				return idx
			}
		}
	} else {
		for idx := start; idx < end; idx++ {
			if !isUsed(idx, usedIdxs) {
				return idx
			}
		}
	}

	return -1
}

// isUsed returns true id idx is in usedIdxs.
func isUsed(idx int, usedIdxs []int) bool {
	for _, used := range usedIdxs {
		if used == idx {
			return true
		}
	}

	return false
}
