// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/BoostyLabs/bip174/bitcoin/psbt"
)

// ErrUnknownInputsHelpingKey defines that inputs help keys is unknown.
var ErrUnknownInputsHelpingKey = errors.New("unknown inputs help keys")

// InputsHelpingKey defines type of the additional global psbt unknown field
// which lists indexes of the inputs of the same kind.
type InputsHelpingKey byte

const (
	// TaprootInputsHelpingKey defines key for taproot inputs.
	TaprootInputsHelpingKey InputsHelpingKey = 0x10
	// PaymentInputsHelpingKey defines key for payment (btc) inputs.
	PaymentInputsHelpingKey InputsHelpingKey = 0x20
	// FeePayerTaprootInputsHelpingKey defines key for taproot inputs for fee payer.
	FeePayerTaprootInputsHelpingKey InputsHelpingKey = 0x11
	// FeePayerPaymentInputsHelpingKey defines key for payment (btc) inputs for fee payer.
	FeePayerPaymentInputsHelpingKey InputsHelpingKey = 0x21
)

// InputsHelpingKeyFromBytes parses bytes array into InputsHelpingKey if any.
func InputsHelpingKeyFromBytes(b []byte) (InputsHelpingKey, error) {
	if len(b) != 1 {
		return 0, ErrUnknownInputsHelpingKey
	}

	switch key := InputsHelpingKey(b[0]); key {
	case TaprootInputsHelpingKey, PaymentInputsHelpingKey, FeePayerTaprootInputsHelpingKey, FeePayerPaymentInputsHelpingKey:
		return key, nil
	}

	return 0, ErrUnknownInputsHelpingKey
}

// Byte returns InputsHelpingKey as byte.
func (k InputsHelpingKey) Byte() byte {
	return byte(k)
}

// Bytes returns InputsHelpingKey as bytes array.
func (k InputsHelpingKey) Bytes() []byte {
	return []byte{byte(k)}
}

// Key returns InputsHelpingKey as global psbt unknown key.
func (k InputsHelpingKey) Key() psbt.Key {
	return psbt.NewKey(k.Byte(), nil)
}

// AddInputsHelpingKeys writes input indexes of every key into global psbt unknowns,
// one byte per index.
func AddInputsHelpingKeys(updater *psbt.Updater, indexes map[InputsHelpingKey][]int) error {
	for key, idxs := range indexes {
		idxs = slices.Clone(idxs)
		slices.Sort(idxs)

		value := make([]byte, 0, len(idxs))
		for _, idx := range idxs {
			if idx < 0 || idx > math.MaxUint8 {
				return fmt.Errorf("input index %d does not fit helping key %#02x", idx, key.Byte())
			}
			value = append(value, byte(idx))
		}

		if err := updater.AddGlobalUnknown(key.Key(), value); err != nil {
			return err
		}
	}

	return nil
}
