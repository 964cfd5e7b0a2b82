// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bip32

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

const (
	// pathMaster defines the first element of the string path.
	pathMaster = "m"
	// pathSeparator defines separator between path steps.
	pathSeparator = "/"
)

// ErrInvalidPath defines that derivation path string is malformed.
var ErrInvalidPath = errors.New("invalid derivation path")

// ChildNumber defines single derivation step, hardened steps have the highest bit set.
type ChildNumber uint32

// Hardened returns hardened ChildNumber for the index.
func Hardened(index uint32) ChildNumber {
	return ChildNumber(index | hdkeychain.HardenedKeyStart)
}

// Normal returns non-hardened ChildNumber for the index.
func Normal(index uint32) ChildNumber {
	return ChildNumber(index &^ hdkeychain.HardenedKeyStart)
}

// IsHardened returns true if the step is hardened.
func (c ChildNumber) IsHardened() bool {
	return uint32(c) >= hdkeychain.HardenedKeyStart
}

// Index returns step index without hardened flag.
func (c ChildNumber) Index() uint32 {
	return uint32(c) &^ hdkeychain.HardenedKeyStart
}

// String returns step in the "84'" form.
func (c ChildNumber) String() string {
	if c.IsHardened() {
		return strconv.FormatUint(uint64(c.Index()), 10) + "'"
	}

	return strconv.FormatUint(uint64(c), 10)
}

// DerivationPath defines immutable ordered sequence of derivation steps.
// The zero value is the master path "m".
type DerivationPath struct {
	steps []ChildNumber
}

// NewDerivationPath is a constructor for DerivationPath.
func NewDerivationPath(steps ...ChildNumber) DerivationPath {
	if len(steps) == 0 {
		return DerivationPath{}
	}

	return DerivationPath{steps: slices.Clone(steps)}
}

// ParseDerivationPath parses string path, e.g. "m/84'/0'/0'/1/8".
// Hardened steps may be marked with "'", "h" or "H".
func ParseDerivationPath(s string) (DerivationPath, error) {
	parts := strings.Split(s, pathSeparator)
	if parts[0] == pathMaster {
		parts = parts[1:]
	}

	steps := make([]ChildNumber, 0, len(parts))
	for _, part := range parts {
		hardened := false
		if trimmed, ok := cutHardenedSuffix(part); ok {
			part, hardened = trimmed, true
		}

		index, err := strconv.ParseUint(part, 10, 31)
		if err != nil {
			return DerivationPath{}, fmt.Errorf("%w %q: %w", ErrInvalidPath, s, err)
		}

		if hardened {
			steps = append(steps, Hardened(uint32(index)))
		} else {
			steps = append(steps, Normal(uint32(index)))
		}
	}

	return NewDerivationPath(steps...), nil
}

// MustDerivationPath uses ParseDerivationPath, panics in case of error.
func MustDerivationPath(s string) DerivationPath {
	path, err := ParseDerivationPath(s)
	if err != nil {
		panic(err)
	}

	return path
}

// Steps returns a copy of the path steps.
func (p DerivationPath) Steps() []ChildNumber {
	return slices.Clone(p.steps)
}

// Uint32s returns path steps as raw integers.
func (p DerivationPath) Uint32s() []uint32 {
	result := make([]uint32, len(p.steps))
	for i, step := range p.steps {
		result[i] = uint32(step)
	}

	return result
}

// Len returns the depth of the path.
func (p DerivationPath) Len() int {
	return len(p.steps)
}

// Child returns new path extended with the step.
func (p DerivationPath) Child(step ChildNumber) DerivationPath {
	steps := make([]ChildNumber, 0, len(p.steps)+1)

	return DerivationPath{steps: append(append(steps, p.steps...), step)}
}

// Equal returns true if both paths have the same steps.
func (p DerivationPath) Equal(other DerivationPath) bool {
	return slices.Equal(p.steps, other.steps)
}

// String returns path in the "m/84'/0'/0'/1/8" form.
func (p DerivationPath) String() string {
	var sb strings.Builder
	sb.WriteString(pathMaster)
	for _, step := range p.steps {
		sb.WriteString(pathSeparator)
		sb.WriteString(step.String())
	}

	return sb.String()
}

// cutHardenedSuffix removes hardened marker if any.
func cutHardenedSuffix(step string) (string, bool) {
	for _, suffix := range []string{"'", "h", "H"} {
		if trimmed, ok := strings.CutSuffix(step, suffix); ok {
			return trimmed, true
		}
	}

	return step, false
}
