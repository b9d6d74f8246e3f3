//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package maccheck implements the MAC check of an opened value
// against the parties' MAC shares.
package maccheck

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/markkurossi/mascot/field"
	"github.com/markkurossi/mascot/hash"
	"github.com/markkurossi/mascot/p2p"
)

const domain = "maccheck"

// ErrMacCheck is returned when the MAC shares do not authenticate
// the opened value.
var ErrMacCheck = errors.New("maccheck: MAC check failed")

// Check verifies that the public value is authenticated by the
// parties' MAC shares, that is, Σ macShare_i = value·Σ macKeyShare_i.
// Each party commits to its share of the difference before any party
// reveals its share. Check returns nil on all parties if the
// equation holds and an error on all honest parties otherwise.
func Check(ctx context.Context, m p2p.Messenger, rand io.Reader,
	value, macKeyShare, macShare field.Element) error {

	f := value.Field()
	sigma := macShare.Sub(value.Mul(macKeyShare))

	h := hash.New()
	if err := h.WriteAny(domain); err != nil {
		return err
	}
	c, d, err := h.Commit(rand, m.ID(), sigma)
	if err != nil {
		return err
	}
	if err := p2p.SendToAll(m, c); err != nil {
		return err
	}
	commitments, err := p2p.ReceiveFromAll(ctx, m)
	if err != nil {
		return err
	}

	opening := f.Encode([]field.Element{sigma})
	opening = append(opening, d...)
	if err := p2p.SendToAll(m, opening); err != nil {
		return err
	}
	openings, err := p2p.ReceiveFromAll(ctx, m)
	if err != nil {
		return err
	}

	sum := sigma
	for _, peer := range p2p.Peers(m) {
		o := openings[peer]
		if len(o) != f.ByteLen()+hash.DecommitmentSize {
			return fmt.Errorf("maccheck: party %d: %w: opening length %d",
				peer, hash.ErrCommitment, len(o))
		}
		s, err := f.FromBytes(o[:f.ByteLen()])
		if err != nil {
			return fmt.Errorf("maccheck: party %d: %w", peer, err)
		}
		err = h.Decommit(commitments[peer],
			hash.Decommitment(o[f.ByteLen():]), peer, s)
		if err != nil {
			return fmt.Errorf("maccheck: party %d: %w", peer, err)
		}
		sum = sum.Add(s)
	}
	if !sum.IsZero() {
		return ErrMacCheck
	}
	return nil
}
