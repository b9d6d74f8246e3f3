//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package hash

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// DecommitmentSize defines the size of the commitment randomness.
const DecommitmentSize = 32

// ErrCommitment is returned when a decommitment does not open its
// commitment.
var ErrCommitment = errors.New("hash: commitment mismatch")

type (
	// Commitment binds to committed data without revealing it.
	Commitment []byte

	// Decommitment contains the randomness that opens a commitment.
	Decommitment []byte
)

// Validate checks the commitment length.
func (c Commitment) Validate() error {
	if len(c) != DigestSize {
		return fmt.Errorf("%w: commitment length %d, expected %d",
			ErrCommitment, len(c), DigestSize)
	}
	return nil
}

// Validate checks the decommitment length.
func (d Decommitment) Validate() error {
	if len(d) != DecommitmentSize {
		return fmt.Errorf("%w: decommitment length %d, expected %d",
			ErrCommitment, len(d), DecommitmentSize)
	}
	return nil
}

// Commit creates a commitment to data such that commitment =
// H(state, data, decommitment).
func (hash *Hash) Commit(rand io.Reader, data ...interface{}) (
	Commitment, Decommitment, error) {

	d := Decommitment(make([]byte, DecommitmentSize))
	if _, err := io.ReadFull(rand, d); err != nil {
		return nil, nil, fmt.Errorf("hash: commit: %w", err)
	}
	h := hash.Clone()
	if err := h.WriteAny(data...); err != nil {
		return nil, nil, err
	}
	if err := h.WriteAny([]byte(d)); err != nil {
		return nil, nil, err
	}
	return h.Sum(), d, nil
}

// Decommit verifies that the decommitment opens the commitment to
// data. It returns an error wrapping ErrCommitment if the opening
// fails.
func (hash *Hash) Decommit(c Commitment, d Decommitment,
	data ...interface{}) error {

	if err := c.Validate(); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}
	h := hash.Clone()
	if err := h.WriteAny(data...); err != nil {
		return err
	}
	if err := h.WriteAny([]byte(d)); err != nil {
		return err
	}
	if !bytes.Equal(h.Sum(), c) {
		return ErrCommitment
	}
	return nil
}
