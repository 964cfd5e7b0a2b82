// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package psbt

import (
	"fmt"
	"slices"

	"github.com/BoostyLabs/bip174/internal/bufferutil"
)

// entry defines single encoded key-value pair of the map.
type entry struct {
	key   []byte
	value []byte
}

// field describes how the known key type is decoded into the record R
// and encoded back from it.
type field[R any] struct {
	// decode stores the pair into the record. Duplicates are filtered before the call.
	decode func(rec *R, keyData, value []byte) error
	// encode returns all pairs of the key type present in the record.
	encode func(rec *R) []entry
}

// mapCodec defines dispatch table of a single map kind.
type mapCodec[R any] struct {
	scope Scope
	// fields defines known key types.
	fields map[byte]field[R]
	// required defines key types which must be understood but are not supported.
	required map[byte]struct{}
	// unknown returns storage for key types absent from fields.
	unknown func(rec *R) *map[Key][]byte
}

// decode reads map entries into the record until the separator.
func (c *mapCodec[R]) decode(r *bufferutil.Reader, rec *R, index int) error {
	seen := make(map[string]struct{})
	for {
		key, value, err := r.ReadKeyValue()
		if err != nil {
			return &MapError{Scope: c.scope, Index: index, Err: fmt.Errorf("%w: %w", ErrMalformedData, err)}
		}

		if key == nil {
			return nil
		}

		if _, ok := seen[string(key)]; ok {
			return &MapError{Scope: c.scope, Index: index, Key: key, Err: ErrDuplicateKey}
		}
		seen[string(key)] = struct{}{}

		keyType, keyData := key[0], key[1:]
		if _, ok := c.required[keyType]; ok {
			return &MapError{Scope: c.scope, Index: index, Key: key, Err: ErrUnknownRequiredField}
		}

		f, ok := c.fields[keyType]
		if !ok {
			unknown := c.unknown(rec)
			if *unknown == nil {
				*unknown = make(map[Key][]byte)
			}
			(*unknown)[NewKey(keyType, keyData)] = value
			log.Debugf("Preserving unknown %s %d key type %#02x", c.scope, index, keyType)

			continue
		}

		if err = f.decode(rec, keyData, value); err != nil {
			return &MapError{Scope: c.scope, Index: index, Key: key, Err: err}
		}
	}
}

// encode writes all entries of the record in ascending key order followed by the separator.
func (c *mapCodec[R]) encode(w *bufferutil.Writer, rec *R) {
	var entries []entry
	for _, f := range c.fields {
		entries = append(entries, f.encode(rec)...)
	}

	for key, value := range *c.unknown(rec) {
		// known and required types are never read into unknowns.
		if c.isKnown(key.Type) {
			log.Debugf("Skipping unknown %s key of known type %#02x", c.scope, key.Type)
			continue
		}
		entries = append(entries, entry{key: key.Bytes(), value: value})
	}

	slices.SortFunc(entries, func(a, b entry) int {
		return compareKeys(a.key, b.key)
	})

	for _, e := range entries {
		w.WriteKeyValue(e.key, e.value)
	}
	w.WriteSeparator()
}

// isKnown returns true if the key type is decoded by the map or must be understood.
func (c *mapCodec[R]) isKnown(keyType byte) bool {
	_, known := c.fields[keyType]
	_, required := c.required[keyType]

	return known || required
}

// keyTypes returns set of the key types.
func keyTypes(types ...byte) map[byte]struct{} {
	set := make(map[byte]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}

	return set
}

// requireNoKeyData fails for key types which carry only the type byte.
func requireNoKeyData(keyData []byte) error {
	if len(keyData) != 0 {
		return malformed("unexpected key data of length %d", len(keyData))
	}

	return nil
}

// single returns one entry with key that consists of the type byte only.
func single(keyType byte, value []byte) []entry {
	return []entry{{key: []byte{keyType}, value: value}}
}

// scriptField maps key type without key data onto a byte slice of the record.
// Present but empty values are kept as non-nil empty slices.
func scriptField[R any](keyType byte, get func(rec *R) *[]byte) field[R] {
	return field[R]{
		decode: func(rec *R, keyData, value []byte) error {
			if err := requireNoKeyData(keyData); err != nil {
				return err
			}

			if value == nil {
				value = []byte{}
			}
			*get(rec) = value

			return nil
		},
		encode: func(rec *R) []entry {
			if *get(rec) == nil {
				return nil
			}

			return single(keyType, *get(rec))
		},
	}
}

// proprietaryField maps proprietary key type onto the record.
func proprietaryField[R any](keyType byte, get func(rec *R) *map[ProprietaryKey][]byte) field[R] {
	return field[R]{
		decode: func(rec *R, keyData, value []byte) error {
			key, err := parseProprietaryKey(keyData)
			if err != nil {
				return err
			}

			m := get(rec)
			if *m == nil {
				*m = make(map[ProprietaryKey][]byte)
			}
			(*m)[key] = value

			return nil
		},
		encode: func(rec *R) []entry {
			entries := make([]entry, 0, len(*get(rec)))
			for key, value := range *get(rec) {
				entries = append(entries, entry{key: append([]byte{keyType}, key.bytes()...), value: value})
			}

			return entries
		},
	}
}

// mapField maps key type with key data onto a map of the record.
// parseKey and parseValue validate the raw bytes, keyBytes and valueBytes encode them back.
func mapField[R any, K comparable, V any](
	keyType byte,
	get func(rec *R) *map[K]V,
	parseKey func(keyData []byte) (K, error),
	parseValue func(value []byte) (V, error),
	keyBytes func(K) []byte,
	valueBytes func(V) []byte,
) field[R] {
	return field[R]{
		decode: func(rec *R, keyData, value []byte) error {
			key, err := parseKey(keyData)
			if err != nil {
				return err
			}

			v, err := parseValue(value)
			if err != nil {
				return err
			}

			m := get(rec)
			if *m == nil {
				*m = make(map[K]V)
			}
			(*m)[key] = v

			return nil
		},
		encode: func(rec *R) []entry {
			entries := make([]entry, 0, len(*get(rec)))
			for key, value := range *get(rec) {
				entries = append(entries, entry{
					key:   append([]byte{keyType}, keyBytes(key)...),
					value: valueBytes(value),
				})
			}

			return entries
		},
	}
}

// rawValue accepts any value bytes.
func rawValue(value []byte) ([]byte, error) {
	return value, nil
}

// identity returns bytes as is.
func identity(b []byte) []byte {
	return b
}

// pubKeyBytes returns PubKey as key data.
func pubKeyBytes(key PubKey) []byte {
	return key[:]
}

// xOnlyPubKeyBytes returns XOnlyPubKey as key data.
func xOnlyPubKeyBytes(key XOnlyPubKey) []byte {
	return key[:]
}

// hash160Key parses 20 bytes hash used as key data.
func hash160Key(keyData []byte) ([20]byte, error) {
	var hash [20]byte
	if len(keyData) != len(hash) {
		return hash, malformed("hash length %d", len(keyData))
	}
	copy(hash[:], keyData)

	return hash, nil
}

// hash256Key parses 32 bytes hash used as key data.
func hash256Key(keyData []byte) ([32]byte, error) {
	var hash [32]byte
	if len(keyData) != len(hash) {
		return hash, malformed("hash length %d", len(keyData))
	}
	copy(hash[:], keyData)

	return hash, nil
}

// hash160Bytes returns 20 bytes hash as key data.
func hash160Bytes(hash [20]byte) []byte {
	return hash[:]
}

// hash256Bytes returns 32 bytes hash as key data.
func hash256Bytes(hash [32]byte) []byte {
	return hash[:]
}
