// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bip32

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// ErrInvalidKeySource defines that serialized key origin has wrong length.
var ErrInvalidKeySource = errors.New("invalid key source")

// KeySource describes key origin: master key fingerprint and derivation path from it.
type KeySource struct {
	Fingerprint Fingerprint
	Path        DerivationPath
}

// ParseKeySource parses KeySource from fingerprint followed by little-endian path steps.
func ParseKeySource(data []byte) (KeySource, error) {
	if len(data) < FingerprintSize || (len(data)-FingerprintSize)%4 != 0 {
		return KeySource{}, fmt.Errorf("%w: length %d", ErrInvalidKeySource, len(data))
	}

	var source KeySource
	copy(source.Fingerprint[:], data)

	steps := make([]ChildNumber, 0, (len(data)-FingerprintSize)/4)
	for offset := FingerprintSize; offset < len(data); offset += 4 {
		steps = append(steps, ChildNumber(binary.LittleEndian.Uint32(data[offset:])))
	}
	source.Path = NewDerivationPath(steps...)

	return source, nil
}

// Serialize returns KeySource as bytes array.
func (ks KeySource) Serialize() []byte {
	data := make([]byte, 0, FingerprintSize+4*ks.Path.Len())
	data = append(data, ks.Fingerprint[:]...)
	for _, step := range ks.Path.steps {
		data = binary.LittleEndian.AppendUint32(data, uint32(step))
	}

	return data
}

// Equal returns true if both key sources are the same.
func (ks KeySource) Equal(other KeySource) bool {
	return ks.Fingerprint == other.Fingerprint && ks.Path.Equal(other.Path)
}

// String returns KeySource in the "[52744703/84'/0'/0'/1/8]" form.
func (ks KeySource) String() string {
	return "[" + ks.Fingerprint.String() + ks.Path.String()[len(pathMaster):] + "]"
}

// DeriveKeySource derives public key for the path from master extended key and
// returns it together with its KeySource.
func DeriveKeySource(master *hdkeychain.ExtendedKey, path DerivationPath) (*btcec.PublicKey, KeySource, error) {
	if master.Depth() != 0 {
		return nil, KeySource{}, errors.New("master extended key is required")
	}

	masterPubKey, err := master.ECPubKey()
	if err != nil {
		return nil, KeySource{}, err
	}

	key := master
	for _, step := range path.steps {
		key, err = key.Derive(uint32(step))
		if err != nil {
			return nil, KeySource{}, err
		}
	}

	pubKey, err := key.ECPubKey()
	if err != nil {
		return nil, KeySource{}, err
	}

	return pubKey, KeySource{Fingerprint: NewFingerprintFromPubKey(masterPubKey), Path: path}, nil
}
