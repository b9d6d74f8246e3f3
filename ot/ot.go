//
// ot.go
//
// Copyright (c) 2023-2025 Markku Rossi
//
// All rights reserved.

// Package ot implements oblivious transfer protocols.
package ot

import (
	"io"
)

// OT defines the base 1-out-of-2 Oblivious Transfer protocol. The
// sender uses the Send function to send a []Wire array where each
// wire has zero and one Label. The receiver calls Receive with a
// []bool array of selection bits. The higher level protocol must
// ensure the []Wire and []bool array lengths match.
type OT interface {
	// InitSender initializes the OT sender.
	InitSender(io IO) error

	// InitReceiver initializes the OT receiver.
	InitReceiver(io IO) error

	// Send sends the wire labels with OT.
	Send(wires []Wire) error

	// Receive receives the wire labels with OT based on the flag values.
	Receive(flags []bool, result []Label) error
}

// NewWires creates count wires with random labels.
func NewWires(rand io.Reader, count int) ([]Wire, error) {
	wires := make([]Wire, count)
	for i := range wires {
		l0, err := NewLabel(rand)
		if err != nil {
			return nil, err
		}
		l1, err := NewLabel(rand)
		if err != nil {
			return nil, err
		}
		wires[i] = Wire{
			L0: l0,
			L1: l1,
		}
	}
	return wires, nil
}

// Select returns the label of the wire selected by the flag.
func (w Wire) Select(flag bool) Label {
	if flag {
		return w.L1
	}
	return w.L0
}
