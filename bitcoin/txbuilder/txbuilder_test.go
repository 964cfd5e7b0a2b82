// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder_test

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/bip174/bitcoin"
	"github.com/BoostyLabs/bip174/bitcoin/bip32"
	"github.com/BoostyLabs/bip174/bitcoin/psbt"
	"github.com/BoostyLabs/bip174/bitcoin/txbuilder"
	"github.com/BoostyLabs/bip174/bitcoin/utils"
)

const testTxHash = "d78a52d61c43ec43d56e270e8f87ebe952f3bb5fe0a042494ed6ebf753285746"

func TestSelectUTXO(t *testing.T) {
	utxos := []bitcoin.UTXO{ // sorted by btc utxos.
		{Amount: 150000},
		{Amount: 75000},
		{Amount: 25000},
		{Amount: 10000},
		{Amount: 5000},
		{Amount: 546},
	}

	tests := []struct {
		minAmount     btcutil.Amount
		totalAmount   btcutil.Amount
		requiredUTXOs int
		utxos         []*bitcoin.UTXO
		err           error
	}{
		{150000, 150000, 1, []*bitcoin.UTXO{&utxos[0]}, nil},
		{149000, 150000, 1, []*bitcoin.UTXO{&utxos[0]}, nil},
		{75000, 75000, 1, []*bitcoin.UTXO{&utxos[1]}, nil},
		{74000, 75000, 1, []*bitcoin.UTXO{&utxos[1]}, nil},
		{150000, 150546, 2, []*bitcoin.UTXO{&utxos[0], &utxos[5]}, nil},
		{10020, 25546, 2, []*bitcoin.UTXO{&utxos[2], &utxos[5]}, nil},
		{11000, 30546, 3, []*bitcoin.UTXO{&utxos[2], &utxos[5], &utxos[4]}, nil},
		{255000, 0, 2, nil, bitcoin.ErrInsufficientBalance},
		{255000, 260000, 4, []*bitcoin.UTXO{&utxos[0], &utxos[1], &utxos[2], &utxos[3]}, nil},
		{255000, 260546, 5, []*bitcoin.UTXO{&utxos[0], &utxos[1], &utxos[2], &utxos[3], &utxos[5]}, nil},
		{200000, 0, 1, nil, bitcoin.ErrInsufficientBalance},
		{200000, 0, 8, nil, bitcoin.ErrInvalidUTXOAmount},
		{1, 0, 0, nil, bitcoin.ErrInvalidUTXOAmount},
	}

	utxoFn := func(utxo *bitcoin.UTXO) btcutil.Amount { return utxo.Amount }
	for _, test := range tests {
		usedUTXOs, totalAmount, err := txbuilder.SelectUTXO(utxos, utxoFn, test.minAmount, test.requiredUTXOs)
		require.Equal(t, test.err, err, test.minAmount.String())
		require.Equal(t, test.utxos, usedUTXOs, test.minAmount.String())
		require.Equal(t, test.totalAmount, totalAmount, test.minAmount.String())
	}
}

func TestPrepareUTXOs(t *testing.T) {
	utxos := []bitcoin.UTXO{{Amount: 100000}, {Amount: 600}, {Amount: 500}}

	usedUTXOs, totalAmount, fee, err := txbuilder.PrepareUTXOs(utxos, 0, 2, 50000, 1000)
	require.NoError(t, err)
	require.Equal(t, []*bitcoin.UTXO{&utxos[0]}, usedUTXOs)
	require.EqualValues(t, 100000, totalAmount)
	require.EqualValues(t, 161, fee)
	require.EqualValues(t, 161, txbuilder.RoughTxSizeEstimate(1, 2))

	_, _, _, err = txbuilder.PrepareUTXOs(utxos, 0, 2, 101000, 1000)
	require.ErrorIs(t, err, bitcoin.ErrInsufficientBalance)

	var insufficientErr *txbuilder.InsufficientError
	require.True(t, errors.As(err, &insufficientErr))
	require.EqualValues(t, 101100, insufficientErr.Have)
	require.EqualValues(t, 101000+txbuilder.RoughTxSizeEstimate(3, 2), insufficientErr.Need)
}

func TestBuildPSBT(t *testing.T) {
	params := &chaincfg.TestNet3Params
	txBuilder := txbuilder.NewTxBuilder(params)

	sender := newTestKey(t, 0x01)
	feePayer := newTestKey(t, 0x02)
	recipient := newTestKey(t, 0x03)

	senderSource := bip32.KeySource{Path: bip32.MustDerivationPath("m/84'/1'/0'/0/0")}
	changeSource := bip32.KeySource{Path: bip32.MustDerivationPath("m/84'/1'/0'/1/0")}

	t.Run("payment", func(t *testing.T) {
		senderAddress, senderScript := p2wpkh(t, sender, params)
		recipientAddress, _ := p2tr(t, recipient, params)

		p, fee, err := txBuilder.BuildPSBT(txbuilder.PSBTParams{
			UTXOs: []bitcoin.UTXO{{
				TxHash:    testTxHash,
				Index:     2,
				Amount:    850000,
				Script:    senderScript,
				Address:   senderAddress,
				PubKey:    hex.EncodeToString(sender.SerializeCompressed()),
				KeySource: &senderSource,
			}},
			Payments:         []bitcoin.Payment{{Address: recipientAddress, Amount: 100000}},
			SatoshiPerKVByte: 1000,
			ChangeAddress:    senderAddress,
			ChangePubKey:     hex.EncodeToString(sender.SerializeCompressed()),
			ChangeKeySource:  &changeSource,
		})
		require.NoError(t, err)
		require.EqualValues(t, 161, fee)
		require.NoError(t, p.SanityCheck())

		tx := p.Global.UnsignedTx
		require.Len(t, tx.TxIn, 1)
		require.Len(t, tx.TxOut, 2)
		require.EqualValues(t, 100000, tx.TxOut[0].Value)
		require.EqualValues(t, 850000-100000-161, tx.TxOut[1].Value)
		require.Equal(t, senderScript, tx.TxOut[1].PkScript)

		in := p.Inputs[0]
		require.Equal(t, wire.NewTxOut(850000, senderScript), in.WitnessUtxo)
		require.Nil(t, in.NonWitnessUtxo)
		require.Equal(t, txscript.SigHashAll, *in.SighashType)
		require.Equal(t, map[psbt.PubKey]bip32.KeySource{psbt.NewPubKey(sender): senderSource}, in.Bip32Derivation)

		require.Nil(t, p.Outputs[0].Bip32Derivation)
		require.Equal(t, map[psbt.PubKey]bip32.KeySource{psbt.NewPubKey(sender): changeSource}, p.Outputs[1].Bip32Derivation)

		indexes, err := txbuilder.ExtractAddressTypeInputIndexesFromPSBT(p.Serialize())
		require.NoError(t, err)
		require.Equal(t, map[txbuilder.InputsHelpingKey][]int{txbuilder.PaymentInputsHelpingKey: {0}}, indexes)

		decoded, err := psbt.Deserialize(p.Serialize())
		require.NoError(t, err)
		require.Equal(t, p, decoded)
	})

	t.Run("tap scripts and memo", func(t *testing.T) {
		scripts := [][]byte{
			{txscript.OP_1, txscript.OP_DROP, txscript.OP_TRUE},
			{txscript.OP_2, txscript.OP_DROP, txscript.OP_TRUE},
		}
		senderAddress, err := utils.NewTaprootAddressFromScripts(params, sender, scripts...)
		require.NoError(t, err)
		senderScript, err := txscript.PayToAddrScript(senderAddress)
		require.NoError(t, err)
		recipientAddress, _ := p2wpkh(t, recipient, params)

		tree, err := utils.NewTapScriptTreeFromRawScripts(scripts...)
		require.NoError(t, err)
		memo := []byte("bip174")
		memoScript, err := utils.NewDataCarrierScript(memo)
		require.NoError(t, err)

		buildParams := txbuilder.PSBTParams{
			UTXOs: []bitcoin.UTXO{{
				TxHash:     testTxHash,
				Index:      3,
				Amount:     100000,
				Script:     senderScript,
				Address:    senderAddress.EncodeAddress(),
				PubKey:     hex.EncodeToString(sender.SerializeCompressed()),
				TapScripts: scripts,
			}},
			Payments:         []bitcoin.Payment{{Address: recipientAddress, Amount: 20000}},
			SatoshiPerKVByte: 1000,
			ChangeAddress:    senderAddress.EncodeAddress(),
			ChangePubKey:     hex.EncodeToString(sender.SerializeCompressed()),
			ChangeKeySource:  &changeSource,
			ChangeTapScripts: scripts,
			Memo:             memo,
		}
		p, fee, err := txBuilder.BuildPSBT(buildParams)
		require.NoError(t, err)
		require.Equal(t, txbuilder.RoughTxSizeEstimate(1, 3), fee)

		tx := p.Global.UnsignedTx
		require.Len(t, tx.TxOut, 3)
		require.EqualValues(t, 20000, tx.TxOut[0].Value)
		require.Equal(t, wire.NewTxOut(0, memoScript), tx.TxOut[1])
		require.EqualValues(t, 100000-20000-fee, tx.TxOut[2].Value)
		require.Equal(t, senderScript, tx.TxOut[2].PkScript)

		in := p.Inputs[0]
		require.Equal(t, psbt.NewXOnlyPubKey(sender), *in.TapInternalKey)
		require.Equal(t, tree.RootNode.TapHash(), *in.TapMerkleRoot)
		require.Len(t, in.TapLeafScripts, len(scripts))
		require.Equal(t, wire.NewTxOut(100000, senderScript), in.WitnessUtxo)

		require.Equal(t, psbt.Output{}, p.Outputs[1])
		require.Equal(t, psbt.NewXOnlyPubKey(sender), *p.Outputs[2].TapInternalKey)
		require.Equal(t, utils.TapTreeLeaves(tree), p.Outputs[2].TapTree)
		require.Equal(t, map[psbt.XOnlyPubKey]psbt.TapKeyOrigin{psbt.NewXOnlyPubKey(sender): {Source: changeSource}}, p.Outputs[2].TapBip32Derivation)

		decoded, err := psbt.Deserialize(p.Serialize())
		require.NoError(t, err)
		require.Equal(t, p, decoded)

		buildParams.UTXOs[0].TapScripts = scripts[:1]
		_, _, err = txBuilder.BuildPSBT(buildParams)
		require.ErrorIs(t, err, txbuilder.ErrPSBTInputBuilder)

		buildParams.UTXOs[0].TapScripts = scripts
		buildParams.Memo = make([]byte, txscript.MaxDataCarrierSize+1)
		_, _, err = txBuilder.BuildPSBT(buildParams)
		require.Error(t, err)
	})

	t.Run("fee payer", func(t *testing.T) {
		senderAddress, senderScript := p2tr(t, sender, params)
		feePayerAddress, feePayerScript := p2shP2wpkh(t, feePayer, params)
		recipientAddress, _ := p2wpkh(t, recipient, params)

		p, fee, err := txBuilder.BuildPSBT(txbuilder.PSBTParams{
			UTXOs: []bitcoin.UTXO{{
				TxHash:    testTxHash,
				Index:     0,
				Amount:    10000,
				Script:    senderScript,
				Address:   senderAddress,
				PubKey:    hex.EncodeToString(sender.SerializeCompressed()),
				KeySource: &senderSource,
			}},
			Payments:         []bitcoin.Payment{{Address: recipientAddress, Amount: 5000}},
			SatoshiPerKVByte: 2000,
			ChangeAddress:    senderAddress,
			ChangePubKey:     hex.EncodeToString(schnorr.SerializePubKey(sender)),
			FeePayerUTXOs: []bitcoin.UTXO{{
				TxHash:  testTxHash,
				Index:   1,
				Amount:  50000,
				Script:  feePayerScript,
				Address: feePayerAddress,
				PubKey:  hex.EncodeToString(feePayer.SerializeCompressed()),
			}},
			FeePayerChangeAddress: feePayerAddress,
		})
		require.NoError(t, err)
		require.EqualValues(t, 562, fee)

		tx := p.Global.UnsignedTx
		require.Len(t, tx.TxIn, 2)
		require.Len(t, tx.TxOut, 3)
		require.EqualValues(t, 5000, tx.TxOut[0].Value)
		require.EqualValues(t, 5000, tx.TxOut[1].Value)
		require.EqualValues(t, 50000-562, tx.TxOut[2].Value)

		require.Equal(t, psbt.NewXOnlyPubKey(sender), *p.Inputs[0].TapInternalKey)
		require.Equal(t, map[psbt.XOnlyPubKey]psbt.TapKeyOrigin{psbt.NewXOnlyPubKey(sender): {Source: senderSource}}, p.Inputs[0].TapBip32Derivation)
		require.Nil(t, p.Inputs[0].Bip32Derivation)

		_, redeemScript := p2wpkh(t, feePayer, params)
		require.Equal(t, redeemScript, p.Inputs[1].RedeemScript)
		require.Equal(t, wire.NewTxOut(50000, feePayerScript), p.Inputs[1].WitnessUtxo)

		require.Equal(t, psbt.NewXOnlyPubKey(sender), *p.Outputs[1].TapInternalKey)
		require.Nil(t, p.Outputs[2].TapInternalKey)

		indexes, err := txbuilder.ExtractInputsHelpingKeys(p)
		require.NoError(t, err)
		require.Equal(t, map[txbuilder.InputsHelpingKey][]int{
			txbuilder.TaprootInputsHelpingKey:         {0},
			txbuilder.FeePayerPaymentInputsHelpingKey: {1},
		}, indexes)
	})

	t.Run("legacy input", func(t *testing.T) {
		address, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(sender.SerializeCompressed()), params)
		require.NoError(t, err)
		script, err := txscript.PayToAddrScript(address)
		require.NoError(t, err)

		prevTx := wire.NewMsgTx(2)
		prevTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0), nil, nil))
		prevTx.AddTxOut(wire.NewTxOut(20000, script))

		utxo := bitcoin.UTXO{
			TxHash:  prevTx.TxHash().String(),
			Amount:  20000,
			Script:  script,
			Address: address.EncodeAddress(),
			PubKey:  hex.EncodeToString(sender.SerializeCompressed()),
		}
		buildParams := txbuilder.PSBTParams{
			UTXOs:            []bitcoin.UTXO{utxo},
			Payments:         []bitcoin.Payment{{Address: address.EncodeAddress(), Amount: 19300}},
			SatoshiPerKVByte: 1000,
			ChangeAddress:    address.EncodeAddress(),
		}

		_, _, err = txBuilder.BuildPSBT(buildParams)
		require.Error(t, err)

		buildParams.UTXOs[0].PrevTx = prevTx
		p, fee, err := txBuilder.BuildPSBT(buildParams)
		require.NoError(t, err)
		require.Len(t, p.Global.UnsignedTx.TxOut, 1)
		require.EqualValues(t, 700, fee)
		require.Nil(t, p.Inputs[0].WitnessUtxo)
		require.Equal(t, prevTx.TxHash(), p.Inputs[0].NonWitnessUtxo.TxHash())
	})

	t.Run("insufficient balance", func(t *testing.T) {
		senderAddress, senderScript := p2wpkh(t, sender, params)
		utxos := []bitcoin.UTXO{{TxHash: testTxHash, Amount: 1000, Script: senderScript, Address: senderAddress}}

		_, _, err := txBuilder.BuildPSBT(txbuilder.PSBTParams{
			UTXOs:            utxos,
			Payments:         []bitcoin.Payment{{Address: senderAddress, Amount: 1000}},
			SatoshiPerKVByte: 1000,
			ChangeAddress:    senderAddress,
		})
		require.ErrorIs(t, err, bitcoin.ErrInsufficientBalance)

		var insufficientErr *txbuilder.InsufficientError
		require.True(t, errors.As(err, &insufficientErr))
		require.Equal(t, txbuilder.CauserSender, insufficientErr.Causer)

		_, _, err = txBuilder.BuildPSBT(txbuilder.PSBTParams{
			UTXOs:                 utxos,
			Payments:              []bitcoin.Payment{{Address: senderAddress, Amount: 1000}},
			SatoshiPerKVByte:      1000,
			ChangeAddress:         senderAddress,
			FeePayerUTXOs:         []bitcoin.UTXO{{TxHash: testTxHash, Amount: 100}},
			FeePayerChangeAddress: senderAddress,
		})
		require.ErrorIs(t, err, bitcoin.ErrInsufficientBalance)
		require.True(t, errors.As(err, &insufficientErr))
		require.Equal(t, txbuilder.CauserFeePayer, insufficientErr.Causer)
	})

	t.Run("invalid payments", func(t *testing.T) {
		_, _, err := txBuilder.BuildPSBT(txbuilder.PSBTParams{})
		require.Error(t, err)

		_, _, err = txBuilder.BuildPSBT(txbuilder.PSBTParams{Payments: []bitcoin.Payment{{Amount: 0}}})
		require.Error(t, err)
	})
}

func newTestKey(t *testing.T, b byte) *btcec.PublicKey {
	t.Helper()

	key := make([]byte, 32)
	key[31] = b
	_, pubKey := btcec.PrivKeyFromBytes(key)

	return pubKey
}

func newTestTx(t *testing.T, inputs, outputs int) *wire.MsgTx {
	t.Helper()

	txHash, err := chainhash.NewHashFromStr(testTxHash)
	require.NoError(t, err)

	tx := wire.NewMsgTx(2)
	for i := 0; i < inputs; i++ {
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(txHash, uint32(i)), nil, nil))
	}
	for i := 0; i < outputs; i++ {
		tx.AddTxOut(wire.NewTxOut(int64(1000*(i+1)), []byte{txscript.OP_TRUE}))
	}

	return tx
}

func p2wpkh(t *testing.T, pubKey *btcec.PublicKey, params *chaincfg.Params) (string, []byte) {
	t.Helper()

	address, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pubKey.SerializeCompressed()), params)
	require.NoError(t, err)
	script, err := txscript.PayToAddrScript(address)
	require.NoError(t, err)

	return address.EncodeAddress(), script
}

func p2tr(t *testing.T, pubKey *btcec.PublicKey, params *chaincfg.Params) (string, []byte) {
	t.Helper()

	outputKey := txscript.ComputeTaprootKeyNoScript(pubKey)
	address, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), params)
	require.NoError(t, err)
	script, err := txscript.PayToAddrScript(address)
	require.NoError(t, err)

	return address.EncodeAddress(), script
}

func p2shP2wpkh(t *testing.T, pubKey *btcec.PublicKey, params *chaincfg.Params) (string, []byte) {
	t.Helper()

	_, witnessProgram := p2wpkh(t, pubKey, params)
	address, err := btcutil.NewAddressScriptHash(witnessProgram, params)
	require.NoError(t, err)
	script, err := txscript.PayToAddrScript(address)
	require.NoError(t, err)

	return address.EncodeAddress(), script
}
