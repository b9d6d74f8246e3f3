//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package cointoss implements a commit-then-reveal coin tossing
// protocol for agreeing on a joint random seed.
package cointoss

import (
	"context"
	"fmt"
	"io"

	"github.com/markkurossi/mascot/hash"
	"github.com/markkurossi/mascot/p2p"
	"github.com/markkurossi/mascot/prg"
)

const domain = "cointoss"

// Toss runs the coin tossing protocol with all parties and returns
// the joint seed. The seed is uniformly random as long as one party
// is honest. A party opening a commitment to a different value aborts
// the protocol with an error wrapping hash.ErrCommitment.
func Toss(ctx context.Context, m p2p.Messenger, rand io.Reader) (
	prg.Seed, error) {

	var seed prg.Seed

	fragment, err := prg.NewSeed(rand)
	if err != nil {
		return seed, err
	}

	h := hash.New()
	if err := h.WriteAny(domain); err != nil {
		return seed, err
	}
	c, d, err := h.Commit(rand, m.ID(), fragment[:])
	if err != nil {
		return seed, err
	}

	if err := p2p.SendToAll(m, c); err != nil {
		return seed, err
	}
	commitments, err := p2p.ReceiveFromAll(ctx, m)
	if err != nil {
		return seed, err
	}

	opening := make([]byte, 0, len(fragment)+len(d))
	opening = append(opening, fragment[:]...)
	opening = append(opening, d...)
	if err := p2p.SendToAll(m, opening); err != nil {
		return seed, err
	}
	openings, err := p2p.ReceiveFromAll(ctx, m)
	if err != nil {
		return seed, err
	}
	openings[m.ID()] = opening

	joint := hash.New()
	if err := joint.WriteAny(domain); err != nil {
		return seed, err
	}
	for id, o := range openings {
		if len(o) != prg.SeedSize+hash.DecommitmentSize {
			return seed, fmt.Errorf("cointoss: party %d: %w: opening length %d",
				id, hash.ErrCommitment, len(o))
		}
		f := o[:prg.SeedSize]
		if id != m.ID() {
			err := h.Decommit(commitments[id],
				hash.Decommitment(o[prg.SeedSize:]), id, f)
			if err != nil {
				return seed, fmt.Errorf("cointoss: party %d: %w", id, err)
			}
		}
		if err := joint.WriteAny(f); err != nil {
			return seed, err
		}
	}
	copy(seed[:], joint.Sum())

	return seed, nil
}
