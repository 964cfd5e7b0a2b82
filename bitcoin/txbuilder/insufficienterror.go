// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/BoostyLabs/bip174/bitcoin"
)

type causerSign string

const (
	// CauserSender defines that the sender caused this error type.
	CauserSender causerSign = "sender"
	// CauserFeePayer defines that the fee-payer caused this error type.
	CauserFeePayer causerSign = "fee-payer"
)

// InsufficientError is the error type to describe insufficient balance errors with details.
type InsufficientError struct {
	Need   btcutil.Amount
	Have   btcutil.Amount
	Causer causerSign
}

// NewInsufficientError is a constructor for InsufficientError.
func NewInsufficientError(causer causerSign, need, have btcutil.Amount) *InsufficientError {
	return &InsufficientError{Need: need, Have: have, Causer: causer}
}

// Error returns error description.
func (e *InsufficientError) Error() string {
	return fmt.Sprintf("%s (%s): need %s, have %s", bitcoin.ErrInsufficientBalance, e.Causer, e.Need, e.Have)
}

// Is implements comparator method for [errors] package.
func (e *InsufficientError) Is(target error) bool {
	return target == bitcoin.ErrInsufficientBalance
}
