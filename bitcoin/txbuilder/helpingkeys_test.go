// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BoostyLabs/bip174/bitcoin/psbt"
	"github.com/BoostyLabs/bip174/bitcoin/txbuilder"
)

func TestInputsHelpingKey(t *testing.T) {
	t.Run("InputsHelpingKeyFromBytes", func(t *testing.T) {
		tests := []struct {
			bytes []byte
			key   txbuilder.InputsHelpingKey
			err   error
		}{
			{[]byte{txbuilder.TaprootInputsHelpingKey.Byte()}, txbuilder.TaprootInputsHelpingKey, nil},
			{[]byte{txbuilder.PaymentInputsHelpingKey.Byte()}, txbuilder.PaymentInputsHelpingKey, nil},
			{[]byte{txbuilder.FeePayerTaprootInputsHelpingKey.Byte()}, txbuilder.FeePayerTaprootInputsHelpingKey, nil},
			{[]byte{txbuilder.FeePayerPaymentInputsHelpingKey.Byte()}, txbuilder.FeePayerPaymentInputsHelpingKey, nil},
			{[]byte{}, 0, txbuilder.ErrUnknownInputsHelpingKey},
			{[]byte{0x50}, 0, txbuilder.ErrUnknownInputsHelpingKey},
			{[]byte{0x01, 0x02}, 0, txbuilder.ErrUnknownInputsHelpingKey},
		}
		for _, test := range tests {
			key, err := txbuilder.InputsHelpingKeyFromBytes(test.bytes)
			require.Equal(t, test.err, err)
			require.Equal(t, test.key, key)
		}
	})

	t.Run("Byte&Bytes&Key", func(t *testing.T) {
		tests := []struct {
			key   txbuilder.InputsHelpingKey
			byte  byte
			bytes []byte
		}{
			{txbuilder.TaprootInputsHelpingKey, 0x10, []byte{0x10}},
			{txbuilder.PaymentInputsHelpingKey, 0x20, []byte{0x20}},
			{txbuilder.FeePayerTaprootInputsHelpingKey, 0x11, []byte{0x11}},
			{txbuilder.FeePayerPaymentInputsHelpingKey, 0x21, []byte{0x21}},
		}
		for _, test := range tests {
			require.Equal(t, test.byte, test.key.Byte())
			require.Equal(t, test.bytes, test.key.Bytes())
			require.Equal(t, test.bytes, test.key.Key().Bytes())
		}
	})

	t.Run("AddInputsHelpingKeys", func(t *testing.T) {
		p, err := psbt.New(newTestTx(t, 3, 1))
		require.NoError(t, err)

		updater, err := psbt.NewUpdater(p)
		require.NoError(t, err)

		indexes := map[txbuilder.InputsHelpingKey][]int{
			txbuilder.TaprootInputsHelpingKey: {2, 0},
			txbuilder.PaymentInputsHelpingKey: {1},
		}
		require.NoError(t, txbuilder.AddInputsHelpingKeys(updater, indexes))
		require.Equal(t, []byte{0x00, 0x02}, p.Global.Unknown[txbuilder.TaprootInputsHelpingKey.Key()])
		require.Equal(t, []int{2, 0}, indexes[txbuilder.TaprootInputsHelpingKey])

		decoded, err := txbuilder.ExtractAddressTypeInputIndexesFromPSBT(p.Serialize())
		require.NoError(t, err)
		require.Equal(t, map[txbuilder.InputsHelpingKey][]int{
			txbuilder.TaprootInputsHelpingKey: {0, 2},
			txbuilder.PaymentInputsHelpingKey: {1},
		}, decoded)

		err = txbuilder.AddInputsHelpingKeys(updater, map[txbuilder.InputsHelpingKey][]int{txbuilder.PaymentInputsHelpingKey: {256}})
		require.Error(t, err)
	})
}
