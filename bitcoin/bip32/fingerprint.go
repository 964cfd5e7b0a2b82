// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bip32

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

// FingerprintSize defines size of the master key fingerprint in bytes.
const FingerprintSize = 4

// Fingerprint defines first 4 bytes of the hash160 of the master public key.
type Fingerprint [FingerprintSize]byte

// NewFingerprintFromString parses Fingerprint from hex string, e.g. "52744703".
func NewFingerprintFromString(s string) (Fingerprint, error) {
	var fp Fingerprint
	data, err := hex.DecodeString(s)
	if err != nil {
		return fp, err
	}

	if len(data) != FingerprintSize {
		return fp, fmt.Errorf("invalid fingerprint length %d: %s", len(data), s)
	}

	copy(fp[:], data)

	return fp, nil
}

// NewFingerprintFromPubKey computes Fingerprint of the provided public key.
func NewFingerprintFromPubKey(pubKey *btcec.PublicKey) Fingerprint {
	var fp Fingerprint
	copy(fp[:], btcutil.Hash160(pubKey.SerializeCompressed()))

	return fp
}

// String returns Fingerprint as hex string.
func (fp Fingerprint) String() string {
	return hex.EncodeToString(fp[:])
}
