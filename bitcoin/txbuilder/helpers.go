// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"github.com/BoostyLabs/bip174/bitcoin/psbt"
)

// ExtractAddressTypeInputIndexesFromPSBT returns map with address types and indexes to sign.
func ExtractAddressTypeInputIndexesFromPSBT(data []byte) (map[InputsHelpingKey][]int, error) {
	p, err := psbt.Deserialize(data)
	if err != nil {
		return nil, err
	}

	return ExtractInputsHelpingKeys(p)
}

// ExtractInputsHelpingKeys returns map with address types and indexes to sign
// read from global unknowns of the psbt.
func ExtractInputsHelpingKeys(p *psbt.Psbt) (map[InputsHelpingKey][]int, error) {
	var result = make(map[InputsHelpingKey][]int, 2)
	for key, value := range p.Global.Unknown {
		// other unknown fields are preserved by the psbt and skipped here.
		if key.Data != "" {
			continue
		}

		helpingKey, err := InputsHelpingKeyFromBytes([]byte{key.Type})
		if err != nil {
			continue
		}

		result[helpingKey] = make([]int, len(value))
		for idx, val := range value {
			if int(val) >= len(p.Inputs) {
				return nil, psbt.ErrIndexOutOfRange
			}
			result[helpingKey][idx] = int(val)
		}
	}

	return result, nil
}
