// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package psbt

import (
	"github.com/BoostyLabs/bip174/bitcoin/bip32"
)

// Output defines the output map of the psbt.
type Output struct {
	RedeemScript       []byte
	WitnessScript      []byte
	Bip32Derivation    map[PubKey]bip32.KeySource
	TapInternalKey     *XOnlyPubKey
	TapTree            []TapTreeLeaf
	TapBip32Derivation map[XOnlyPubKey]TapKeyOrigin
	Proprietary        map[ProprietaryKey][]byte
	Unknown            map[Key][]byte
}

// outputCodec defines dispatch table of the output map.
var outputCodec = &mapCodec[Output]{
	scope: ScopeOutput,
	fields: map[byte]field[Output]{
		OutputRedeemScript:  scriptField(OutputRedeemScript, func(out *Output) *[]byte { return &out.RedeemScript }),
		OutputWitnessScript: scriptField(OutputWitnessScript, func(out *Output) *[]byte { return &out.WitnessScript }),
		OutputBip32Derivation: mapField(OutputBip32Derivation,
			func(out *Output) *map[PubKey]bip32.KeySource { return &out.Bip32Derivation },
			parsePubKey, parseKeySource, pubKeyBytes, bip32.KeySource.Serialize,
		),
		OutputTapInternalKey: {
			decode: func(out *Output, keyData, value []byte) error {
				if err := requireNoKeyData(keyData); err != nil {
					return err
				}

				key, err := parseXOnlyPubKey(value)
				if err != nil {
					return err
				}
				out.TapInternalKey = &key

				return nil
			},
			encode: func(out *Output) []entry {
				if out.TapInternalKey == nil {
					return nil
				}

				return single(OutputTapInternalKey, out.TapInternalKey[:])
			},
		},
		OutputTapTree: {
			decode: func(out *Output, keyData, value []byte) error {
				if err := requireNoKeyData(keyData); err != nil {
					return err
				}

				leaves, err := parseTapTree(value)
				if err != nil {
					return err
				}
				out.TapTree = leaves

				return nil
			},
			encode: func(out *Output) []entry {
				if len(out.TapTree) == 0 {
					return nil
				}

				return single(OutputTapTree, tapTreeBytes(out.TapTree))
			},
		},
		OutputTapBip32Derivation: mapField(OutputTapBip32Derivation,
			func(out *Output) *map[XOnlyPubKey]TapKeyOrigin { return &out.TapBip32Derivation },
			parseXOnlyPubKey, parseTapKeyOrigin, xOnlyPubKeyBytes, TapKeyOrigin.bytes,
		),
		OutputProprietary: proprietaryField(OutputProprietary, func(out *Output) *map[ProprietaryKey][]byte { return &out.Proprietary }),
	},
	required: keyTypes(OutputAmount, OutputScript),
	unknown:  func(out *Output) *map[Key][]byte { return &out.Unknown },
}
