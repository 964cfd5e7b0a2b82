// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package psbt

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BoostyLabs/bip174/bitcoin/bip32"
	"github.com/BoostyLabs/bip174/internal/bufferutil"
)

// Input defines the input map of the psbt.
type Input struct {
	NonWitnessUtxo     *wire.MsgTx
	WitnessUtxo        *wire.TxOut
	PartialSigs        map[PubKey][]byte
	SighashType        *txscript.SigHashType
	RedeemScript       []byte
	WitnessScript      []byte
	Bip32Derivation    map[PubKey]bip32.KeySource
	FinalScriptSig     []byte
	FinalScriptWitness wire.TxWitness

	RIPEMD160Preimages map[[20]byte][]byte
	SHA256Preimages    map[[32]byte][]byte
	Hash160Preimages   map[[20]byte][]byte
	Hash256Preimages   map[[32]byte][]byte

	TapKeySig          []byte
	TapScriptSigs      map[TapScriptSigKey][]byte
	TapLeafScripts     map[ControlBlock]TapLeafScript
	TapBip32Derivation map[XOnlyPubKey]TapKeyOrigin
	TapInternalKey     *XOnlyPubKey
	TapMerkleRoot      *chainhash.Hash

	Proprietary map[ProprietaryKey][]byte
	Unknown     map[Key][]byte
}

// inputCodec defines dispatch table of the input map.
var inputCodec = &mapCodec[Input]{
	scope: ScopeInput,
	fields: map[byte]field[Input]{
		InputNonWitnessUtxo: {
			decode: func(in *Input, keyData, value []byte) error {
				if err := requireNoKeyData(keyData); err != nil {
					return err
				}

				r := bytes.NewReader(value)
				tx := new(wire.MsgTx)
				if err := tx.Deserialize(r); err != nil {
					return malformed("non-witness utxo: %v", err)
				}

				if r.Len() != 0 {
					return malformed("non-witness utxo has %d trailing bytes", r.Len())
				}
				in.NonWitnessUtxo = normalizeTx(tx)

				return nil
			},
			encode: func(in *Input) []entry {
				if in.NonWitnessUtxo == nil {
					return nil
				}

				var buf bytes.Buffer
				buf.Grow(in.NonWitnessUtxo.SerializeSize())
				_ = in.NonWitnessUtxo.Serialize(&buf)

				return single(InputNonWitnessUtxo, buf.Bytes())
			},
		},
		InputWitnessUtxo: {
			decode: func(in *Input, keyData, value []byte) error {
				if err := requireNoKeyData(keyData); err != nil {
					return err
				}

				txOut, err := parseTxOut(value)
				if err != nil {
					return err
				}
				in.WitnessUtxo = txOut

				return nil
			},
			encode: func(in *Input) []entry {
				if in.WitnessUtxo == nil {
					return nil
				}

				return single(InputWitnessUtxo, txOutBytes(in.WitnessUtxo))
			},
		},
		InputPartialSig: mapField(InputPartialSig,
			func(in *Input) *map[PubKey][]byte { return &in.PartialSigs },
			parsePubKey, rawValue, pubKeyBytes, identity,
		),
		InputSighashType: {
			decode: func(in *Input, keyData, value []byte) error {
				if err := requireNoKeyData(keyData); err != nil {
					return err
				}

				if len(value) != 4 {
					return malformed("sighash type length %d", len(value))
				}

				sighash := txscript.SigHashType(binary.LittleEndian.Uint32(value))
				in.SighashType = &sighash

				return nil
			},
			encode: func(in *Input) []entry {
				if in.SighashType == nil {
					return nil
				}

				return single(InputSighashType, binary.LittleEndian.AppendUint32(nil, uint32(*in.SighashType)))
			},
		},
		InputRedeemScript:  scriptField(InputRedeemScript, func(in *Input) *[]byte { return &in.RedeemScript }),
		InputWitnessScript: scriptField(InputWitnessScript, func(in *Input) *[]byte { return &in.WitnessScript }),
		InputBip32Derivation: mapField(InputBip32Derivation,
			func(in *Input) *map[PubKey]bip32.KeySource { return &in.Bip32Derivation },
			parsePubKey, parseKeySource, pubKeyBytes, bip32.KeySource.Serialize,
		),
		InputFinalScriptSig: scriptField(InputFinalScriptSig, func(in *Input) *[]byte { return &in.FinalScriptSig }),
		InputFinalScriptWitness: {
			decode: func(in *Input, keyData, value []byte) error {
				if err := requireNoKeyData(keyData); err != nil {
					return err
				}

				witness, err := parseWitness(value)
				if err != nil {
					return err
				}
				in.FinalScriptWitness = witness

				return nil
			},
			encode: func(in *Input) []entry {
				if in.FinalScriptWitness == nil {
					return nil
				}

				return single(InputFinalScriptWitness, witnessBytes(in.FinalScriptWitness))
			},
		},
		InputRIPEMD160: mapField(InputRIPEMD160,
			func(in *Input) *map[[20]byte][]byte { return &in.RIPEMD160Preimages },
			hash160Key, rawValue, hash160Bytes, identity,
		),
		InputSHA256: mapField(InputSHA256,
			func(in *Input) *map[[32]byte][]byte { return &in.SHA256Preimages },
			hash256Key, rawValue, hash256Bytes, identity,
		),
		InputHash160: mapField(InputHash160,
			func(in *Input) *map[[20]byte][]byte { return &in.Hash160Preimages },
			hash160Key, rawValue, hash160Bytes, identity,
		),
		InputHash256: mapField(InputHash256,
			func(in *Input) *map[[32]byte][]byte { return &in.Hash256Preimages },
			hash256Key, rawValue, hash256Bytes, identity,
		),
		InputTapKeySig: {
			decode: func(in *Input, keyData, value []byte) error {
				if err := requireNoKeyData(keyData); err != nil {
					return err
				}

				sig, err := parseSchnorrSig(value)
				if err != nil {
					return err
				}
				in.TapKeySig = sig

				return nil
			},
			encode: func(in *Input) []entry {
				if in.TapKeySig == nil {
					return nil
				}

				return single(InputTapKeySig, in.TapKeySig)
			},
		},
		InputTapScriptSig: mapField(InputTapScriptSig,
			func(in *Input) *map[TapScriptSigKey][]byte { return &in.TapScriptSigs },
			parseTapScriptSigKey, parseSchnorrSig,
			func(key TapScriptSigKey) []byte { return append(key.XOnlyPubKey[:], key.LeafHash[:]...) },
			identity,
		),
		InputTapLeafScript: mapField(InputTapLeafScript,
			func(in *Input) *map[ControlBlock]TapLeafScript { return &in.TapLeafScripts },
			func(keyData []byte) (ControlBlock, error) {
				if err := validateControlBlock(keyData); err != nil {
					return "", err
				}

				return ControlBlock(keyData), nil
			},
			parseTapLeafScript,
			func(cb ControlBlock) []byte { return []byte(cb) },
			func(leaf TapLeafScript) []byte { return append(bytes.Clone(leaf.Script), byte(leaf.LeafVersion)) },
		),
		InputTapBip32Derivation: mapField(InputTapBip32Derivation,
			func(in *Input) *map[XOnlyPubKey]TapKeyOrigin { return &in.TapBip32Derivation },
			parseXOnlyPubKey, parseTapKeyOrigin, xOnlyPubKeyBytes, TapKeyOrigin.bytes,
		),
		InputTapInternalKey: {
			decode: func(in *Input, keyData, value []byte) error {
				if err := requireNoKeyData(keyData); err != nil {
					return err
				}

				key, err := parseXOnlyPubKey(value)
				if err != nil {
					return err
				}
				in.TapInternalKey = &key

				return nil
			},
			encode: func(in *Input) []entry {
				if in.TapInternalKey == nil {
					return nil
				}

				return single(InputTapInternalKey, in.TapInternalKey[:])
			},
		},
		InputTapMerkleRoot: {
			decode: func(in *Input, keyData, value []byte) error {
				if err := requireNoKeyData(keyData); err != nil {
					return err
				}

				if len(value) != chainhash.HashSize {
					return malformed("tap merkle root length %d", len(value))
				}

				root := chainhash.Hash(value)
				in.TapMerkleRoot = &root

				return nil
			},
			encode: func(in *Input) []entry {
				if in.TapMerkleRoot == nil {
					return nil
				}

				return single(InputTapMerkleRoot, in.TapMerkleRoot[:])
			},
		},
		InputProprietary: proprietaryField(InputProprietary, func(in *Input) *map[ProprietaryKey][]byte { return &in.Proprietary }),
	},
	required: keyTypes(InputPreviousTxID, InputOutputIndex, InputSequence, InputRequiredTimeLocktime, InputRequiredHeightLocktime),
	unknown:  func(in *Input) *map[Key][]byte { return &in.Unknown },
}

// parseTxOut decodes amount followed by the length prefixed script.
func parseTxOut(value []byte) (*wire.TxOut, error) {
	r := bufferutil.NewReader(value)
	amount, err := r.ReadUint64LE()
	if err != nil {
		return nil, malformed("witness utxo amount: %v", err)
	}

	script, err := r.ReadVarSlice()
	if err != nil {
		return nil, malformed("witness utxo script: %v", err)
	}

	if r.Len() != 0 {
		return nil, malformed("witness utxo has %d trailing bytes", r.Len())
	}

	return wire.NewTxOut(int64(amount), script), nil
}

// txOutBytes encodes amount followed by the length prefixed script.
func txOutBytes(txOut *wire.TxOut) []byte {
	w := bufferutil.NewWriter()
	w.WriteUint64LE(uint64(txOut.Value))
	w.WriteVarSlice(txOut.PkScript)

	return w.Bytes()
}

// parseWitness decodes items count followed by the length prefixed items.
func parseWitness(value []byte) (wire.TxWitness, error) {
	r := bufferutil.NewReader(value)
	count, err := r.ReadCompactSize()
	if err != nil {
		return nil, malformed("witness items count: %v", err)
	}

	// every item takes at least one byte of the length prefix.
	if count > uint64(r.Len()) {
		return nil, malformed("witness items count %d", count)
	}

	witness := make(wire.TxWitness, 0, count)
	for i := uint64(0); i < count; i++ {
		item, err := r.ReadVarSlice()
		if err != nil {
			return nil, malformed("witness item %d: %v", i, err)
		}
		witness = append(witness, item)
	}

	if r.Len() != 0 {
		return nil, malformed("witness has %d trailing bytes", r.Len())
	}

	return witness, nil
}

// witnessBytes encodes items count followed by the length prefixed items.
func witnessBytes(witness wire.TxWitness) []byte {
	w := bufferutil.NewWriter()
	w.WriteCompactSize(uint64(len(witness)))
	for _, item := range witness {
		w.WriteVarSlice(item)
	}

	return w.Bytes()
}

// parseSchnorrSig checks length of the signature with optional sighash type byte.
func parseSchnorrSig(value []byte) ([]byte, error) {
	if len(value) != schnorr.SignatureSize && len(value) != schnorr.SignatureSize+1 {
		return nil, malformed("schnorr signature length %d", len(value))
	}

	return value, nil
}

// parseTapScriptSigKey parses x-only public key followed by the leaf hash.
func parseTapScriptSigKey(keyData []byte) (TapScriptSigKey, error) {
	if len(keyData) != schnorr.PubKeyBytesLen+chainhash.HashSize {
		return TapScriptSigKey{}, malformed("tap script sig key length %d", len(keyData))
	}

	pubKey, err := parseXOnlyPubKey(keyData[:schnorr.PubKeyBytesLen])
	if err != nil {
		return TapScriptSigKey{}, err
	}

	return TapScriptSigKey{XOnlyPubKey: pubKey, LeafHash: chainhash.Hash(keyData[schnorr.PubKeyBytesLen:])}, nil
}

// parseTapLeafScript parses script followed by the leaf version byte.
func parseTapLeafScript(value []byte) (TapLeafScript, error) {
	if len(value) == 0 {
		return TapLeafScript{}, malformed("empty tap leaf script")
	}

	var script []byte
	if len(value) > 1 {
		script = value[:len(value)-1]
	}

	return TapLeafScript{
		Script:      script,
		LeafVersion: txscript.TapscriptLeafVersion(value[len(value)-1]),
	}, nil
}
