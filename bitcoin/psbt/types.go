// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package psbt

// Global map key types.
const (
	// GlobalUnsignedTx defines the unsigned transaction key type.
	GlobalUnsignedTx byte = 0x00
	// GlobalXPub defines extended public key with its origin key type.
	GlobalXPub byte = 0x01
	// GlobalTxVersion defines PSBTv2 transaction version key type.
	GlobalTxVersion byte = 0x02
	// GlobalFallbackLocktime defines PSBTv2 fallback locktime key type.
	GlobalFallbackLocktime byte = 0x03
	// GlobalInputCount defines PSBTv2 inputs count key type.
	GlobalInputCount byte = 0x04
	// GlobalOutputCount defines PSBTv2 outputs count key type.
	GlobalOutputCount byte = 0x05
	// GlobalTxModifiable defines PSBTv2 modifiable flags key type.
	GlobalTxModifiable byte = 0x06
	// GlobalVersion defines PSBT version key type.
	GlobalVersion byte = 0xFB
	// GlobalProprietary defines proprietary key type.
	GlobalProprietary byte = 0xFC
)

// Input map key types.
const (
	// InputNonWitnessUtxo defines full previous transaction key type.
	InputNonWitnessUtxo byte = 0x00
	// InputWitnessUtxo defines spent output key type.
	InputWitnessUtxo byte = 0x01
	// InputPartialSig defines partial signature key type.
	InputPartialSig byte = 0x02
	// InputSighashType defines signature hash type key type.
	InputSighashType byte = 0x03
	// InputRedeemScript defines P2SH redeem script key type.
	InputRedeemScript byte = 0x04
	// InputWitnessScript defines P2WSH witness script key type.
	InputWitnessScript byte = 0x05
	// InputBip32Derivation defines public key origin key type.
	InputBip32Derivation byte = 0x06
	// InputFinalScriptSig defines finalized scriptSig key type.
	InputFinalScriptSig byte = 0x07
	// InputFinalScriptWitness defines finalized witness key type.
	InputFinalScriptWitness byte = 0x08
	// InputRIPEMD160 defines RIPEMD160 preimage key type.
	InputRIPEMD160 byte = 0x0A
	// InputSHA256 defines SHA256 preimage key type.
	InputSHA256 byte = 0x0B
	// InputHash160 defines HASH160 preimage key type.
	InputHash160 byte = 0x0C
	// InputHash256 defines HASH256 preimage key type.
	InputHash256 byte = 0x0D
	// InputPreviousTxID defines PSBTv2 previous txid key type.
	InputPreviousTxID byte = 0x0E
	// InputOutputIndex defines PSBTv2 previous output index key type.
	InputOutputIndex byte = 0x0F
	// InputSequence defines PSBTv2 sequence key type.
	InputSequence byte = 0x10
	// InputRequiredTimeLocktime defines PSBTv2 time locktime key type.
	InputRequiredTimeLocktime byte = 0x11
	// InputRequiredHeightLocktime defines PSBTv2 height locktime key type.
	InputRequiredHeightLocktime byte = 0x12
	// InputTapKeySig defines taproot key spend signature key type.
	InputTapKeySig byte = 0x13
	// InputTapScriptSig defines taproot script spend signature key type.
	InputTapScriptSig byte = 0x14
	// InputTapLeafScript defines taproot leaf script key type.
	InputTapLeafScript byte = 0x15
	// InputTapBip32Derivation defines taproot x-only key origin key type.
	InputTapBip32Derivation byte = 0x16
	// InputTapInternalKey defines taproot internal key key type.
	InputTapInternalKey byte = 0x17
	// InputTapMerkleRoot defines taproot merkle root key type.
	InputTapMerkleRoot byte = 0x18
	// InputProprietary defines proprietary key type.
	InputProprietary byte = 0xFC
)

// Output map key types.
const (
	// OutputRedeemScript defines P2SH redeem script key type.
	OutputRedeemScript byte = 0x00
	// OutputWitnessScript defines P2WSH witness script key type.
	OutputWitnessScript byte = 0x01
	// OutputBip32Derivation defines public key origin key type.
	OutputBip32Derivation byte = 0x02
	// OutputAmount defines PSBTv2 output amount key type.
	OutputAmount byte = 0x03
	// OutputScript defines PSBTv2 output script key type.
	OutputScript byte = 0x04
	// OutputTapInternalKey defines taproot internal key key type.
	OutputTapInternalKey byte = 0x05
	// OutputTapTree defines taproot script tree key type.
	OutputTapTree byte = 0x06
	// OutputTapBip32Derivation defines taproot x-only key origin key type.
	OutputTapBip32Derivation byte = 0x07
	// OutputProprietary defines proprietary key type.
	OutputProprietary byte = 0xFC
)
