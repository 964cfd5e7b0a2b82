// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package psbt

import (
	"bytes"

	btcpsbt "github.com/btcsuite/btcd/btcutil/psbt"
)

// Packet converts psbt into btcutil packet, for example to sign or finalize it.
func (p *Psbt) Packet() (*btcpsbt.Packet, error) {
	return btcpsbt.NewFromRawBytes(bytes.NewReader(p.Serialize()), false)
}

// NewFromPacket converts btcutil packet into psbt.
func NewFromPacket(packet *btcpsbt.Packet) (*Psbt, error) {
	var buf bytes.Buffer
	if err := packet.Serialize(&buf); err != nil {
		return nil, err
	}

	return Deserialize(buf.Bytes())
}
