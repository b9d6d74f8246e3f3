//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package mult implements two-party multiplication of private field
// elements with oblivious transfer. The left party holds groups of
// left factors and the right party holds one right factor per group.
// The parties obtain additive shares of each left factor multiplied
// by its group's right factor.
//
// For every bit b_k of a right factor, the parties run one OT where
// the left party offers two random seeds and the right party chooses
// with b_k. Both expand their seeds into one element per left factor
// of the group. The left party sends d = t0 - t1 + a and the right
// party computes t_bk + b_k·d = t0 + b_k·a. Summing with weights 2^k
// gives t + a·b on the right and -t on the left.
package mult

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/markkurossi/mascot/env"
	"github.com/markkurossi/mascot/field"
	"github.com/markkurossi/mascot/ot"
	"github.com/markkurossi/mascot/p2p"
	"github.com/markkurossi/mascot/prg"
	"github.com/rs/zerolog"
)

const seedDomain = "mult"

// ErrNotInitialized is returned when multiplying before Initialize.
var ErrNotInitialized = errors.New("mult: not initialized")

func labelSeed(label ot.Label) prg.Seed {
	var data ot.LabelData
	return prg.SeedFromBytes(seedDomain, label.Bytes(&data))
}

// Left implements the left factor side of the multiplication.
type Left struct {
	f         *field.Field
	m         p2p.Messenger
	peer      int
	groupSize int
	rand      io.Reader
	log       zerolog.Logger
	io        *p2p.MessengerIO
	co        *ot.CO
}

// NewLeft creates the left multiplier toward the peer.
func NewLeft(cfg *env.Config, m p2p.Messenger, peer int) *Left {
	return &Left{
		f:         cfg.GetField(),
		m:         m,
		peer:      peer,
		groupSize: cfg.GetGroupSize(),
		rand:      cfg.GetRandom(),
		log: cfg.GetLogger("mult", m.ID()).With().Int("peer", peer).
			Str("role", "left").Logger(),
	}
}

// Initialize sets up the OT sender.
func (l *Left) Initialize(ctx context.Context) error {
	l.io = p2p.PeerIO(ctx, l.m, l.peer)
	l.co = ot.NewCO(l.rand)
	if err := l.co.InitSender(l.io); err != nil {
		return fmt.Errorf("mult: left setup: %w", err)
	}
	return nil
}

// Multiply returns the left party's shares of the products. The
// lefts are grouped by the group size and the peer provides one right
// factor per group.
func (l *Left) Multiply(ctx context.Context, lefts []field.Element) (
	[]field.Element, error) {

	if l.co == nil {
		return nil, ErrNotInitialized
	}
	if len(lefts)%l.groupSize != 0 {
		return nil, fmt.Errorf("%w: %d left factors for group size %d",
			field.ErrLengthMismatch, len(lefts), l.groupSize)
	}
	l.io.SetContext(ctx)

	g := l.groupSize
	bits := l.f.BitLen()
	numRights := len(lefts) / g

	wires, err := ot.NewWires(l.rand, numRights*bits)
	if err != nil {
		return nil, err
	}
	if err := l.co.Send(wires); err != nil {
		return nil, fmt.Errorf("mult: left OT: %w", err)
	}
	result := make([]field.Element, len(lefts))
	diffs := make([]field.Element, 0, numRights*bits*g)
	t0s := make([][]field.Element, bits)
	column := make([]field.Element, bits)
	for i := 0; i < numRights; i++ {
		group := lefts[i*g : (i+1)*g]
		for k := 0; k < bits; k++ {
			w := wires[i*bits+k]
			t0s[k] = prg.New(l.f, labelSeed(w.L0)).NextN(g)
			t1 := prg.New(l.f, labelSeed(w.L1)).NextN(g)
			for j, a := range group {
				diffs = append(diffs, t0s[k][j].Sub(t1[j]).Add(a))
			}
		}
		for j := range group {
			for k := range t0s {
				column[k] = t0s[k][j]
			}
			result[i*g+j] = l.f.Recombine(column).Neg()
		}
	}
	if err := l.m.Send(l.peer, l.f.Encode(diffs)); err != nil {
		return nil, err
	}
	l.log.Debug().Int("products", len(lefts)).Msg("multiplied")

	return result, nil
}

// Right implements the right factor side of the multiplication.
type Right struct {
	f         *field.Field
	m         p2p.Messenger
	peer      int
	groupSize int
	rand      io.Reader
	log       zerolog.Logger
	io        *p2p.MessengerIO
	co        *ot.CO
}

// NewRight creates the right multiplier toward the peer.
func NewRight(cfg *env.Config, m p2p.Messenger, peer int) *Right {
	return &Right{
		f:         cfg.GetField(),
		m:         m,
		peer:      peer,
		groupSize: cfg.GetGroupSize(),
		rand:      cfg.GetRandom(),
		log: cfg.GetLogger("mult", m.ID()).With().Int("peer", peer).
			Str("role", "right").Logger(),
	}
}

// Initialize sets up the OT receiver.
func (r *Right) Initialize(ctx context.Context) error {
	r.io = p2p.PeerIO(ctx, r.m, r.peer)
	r.co = ot.NewCO(r.rand)
	if err := r.co.InitReceiver(r.io); err != nil {
		return fmt.Errorf("mult: right setup: %w", err)
	}
	return nil
}

// Multiply returns the right party's shares of the products. The
// result has group size shares for each right factor.
func (r *Right) Multiply(ctx context.Context, rights []field.Element) (
	[]field.Element, error) {

	if r.co == nil {
		return nil, ErrNotInitialized
	}
	r.io.SetContext(ctx)

	g := r.groupSize
	bits := r.f.BitLen()

	var flags []bool
	for _, b := range rights {
		flags = append(flags, b.Bits()...)
	}
	labels := make([]ot.Label, len(flags))
	if err := r.co.Receive(flags, labels); err != nil {
		return nil, fmt.Errorf("mult: right OT: %w", err)
	}

	data, err := r.m.Receive(ctx, r.peer)
	if err != nil {
		return nil, err
	}
	diffs, err := r.f.DecodeN(data, len(rights)*bits*g)
	if err != nil {
		return nil, fmt.Errorf("mult: right: %w", err)
	}
	result := make([]field.Element, len(rights)*g)
	ts := make([][]field.Element, bits)
	qs := make([]field.Element, bits)
	for i := range rights {
		for k := 0; k < bits; k++ {
			ts[k] = prg.New(r.f, labelSeed(labels[i*bits+k])).NextN(g)
		}
		for j := 0; j < g; j++ {
			for k := 0; k < bits; k++ {
				idx := i*bits + k
				qs[k] = ts[k][j]
				if flags[idx] {
					qs[k] = qs[k].Add(diffs[idx*g+j])
				}
			}
			result[i*g+j] = r.f.Recombine(qs)
		}
	}
	r.log.Debug().Int("products", len(result)).Msg("multiplied")

	return result, nil
}
