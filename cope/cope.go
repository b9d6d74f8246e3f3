//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package cope implements correlated oblivious product evaluation
// between two parties. The signer holds a fixed secret key Δ and the
// inputter provides values x. For each value, the parties obtain
// additive shares of x·Δ without learning the other party's input.
//
// The setup runs one base OT per key bit: the inputter offers two
// random seeds and the signer chooses by its key bit. Extending
// expands the seeds with a PRG and the inputter sends the correction
// u = t0 - t1 + x for each bit, from which the signer computes
// t0 + Δ_k·x.
package cope

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

const seedDomain = "cope"

// ErrNotInitialized is returned when extending before Initialize.
var ErrNotInitialized = errors.New("cope: not initialized")

func labelSeed(label ot.Label) prg.Seed {
	var data ot.LabelData
	return prg.SeedFromBytes(seedDomain, label.Bytes(&data))
}

// Signer implements the key holding side of the correlated product.
type Signer struct {
	f    *field.Field
	m    p2p.Messenger
	peer int
	rand io.Reader
	log  zerolog.Logger
	key  field.Element
	bits []bool
	prgs []*prg.FieldElementPrg
}

// NewSigner creates a signer with the MAC key share toward the
// inputter peer.
func NewSigner(cfg *env.Config, m p2p.Messenger, peer int,
	key field.Element) *Signer {

	return &Signer{
		f:    cfg.GetField(),
		m:    m,
		peer: peer,
		rand: cfg.GetRandom(),
		log:  cfg.GetLogger("cope", m.ID()).With().Int("peer", peer).Logger(),
		key:  key,
		bits: key.Bits(),
	}
}

// Initialize runs the base OTs with the inputter.
func (s *Signer) Initialize(ctx context.Context) error {
	co := ot.NewCO(s.rand)
	if err := co.InitReceiver(p2p.PeerIO(ctx, s.m, s.peer)); err != nil {
		return fmt.Errorf("cope: signer setup: %w", err)
	}
	labels := make([]ot.Label, len(s.bits))
	if err := co.Receive(s.bits, labels); err != nil {
		return fmt.Errorf("cope: signer setup: %w", err)
	}
	s.prgs = make([]*prg.FieldElementPrg, len(labels))
	for k, label := range labels {
		s.prgs[k] = prg.New(s.f, labelSeed(label))
	}
	s.log.Debug().Int("ots", len(labels)).Msg("signer initialized")
	return nil
}

// Extend returns the signer's shares of x·Δ for the next n values
// of the inputter.
func (s *Signer) Extend(ctx context.Context, n int) ([]field.Element, error) {
	if s.prgs == nil {
		return nil, ErrNotInitialized
	}
	data, err := s.m.Receive(ctx, s.peer)
	if err != nil {
		return nil, err
	}
	u, err := s.f.DecodeN(data, len(s.bits)*n)
	if err != nil {
		return nil, fmt.Errorf("cope: signer extend: %w", err)
	}
	ts := make([][]field.Element, len(s.bits))
	for k := range s.bits {
		ts[k] = s.prgs[k].NextN(n)
	}
	result := make([]field.Element, n)
	qs := make([]field.Element, len(s.bits))
	for j := range result {
		for k, bit := range s.bits {
			qs[k] = ts[k][j]
			if bit {
				qs[k] = qs[k].Add(u[k*n+j])
			}
		}
		result[j] = s.f.Recombine(qs)
	}
	return result, nil
}

// Inputter implements the value providing side of the correlated
// product.
type Inputter struct {
	f     *field.Field
	m     p2p.Messenger
	peer  int
	rand  io.Reader
	log   zerolog.Logger
	prgs0 []*prg.FieldElementPrg
	prgs1 []*prg.FieldElementPrg
}

// NewInputter creates an inputter toward the signer peer.
func NewInputter(cfg *env.Config, m p2p.Messenger, peer int) *Inputter {
	return &Inputter{
		f:    cfg.GetField(),
		m:    m,
		peer: peer,
		rand: cfg.GetRandom(),
		log:  cfg.GetLogger("cope", m.ID()).With().Int("peer", peer).Logger(),
	}
}

// Initialize runs the base OTs with the signer.
func (in *Inputter) Initialize(ctx context.Context) error {
	wires, err := ot.NewWires(in.rand, in.f.BitLen())
	if err != nil {
		return fmt.Errorf("cope: inputter setup: %w", err)
	}
	co := ot.NewCO(in.rand)
	if err := co.InitSender(p2p.PeerIO(ctx, in.m, in.peer)); err != nil {
		return fmt.Errorf("cope: inputter setup: %w", err)
	}
	if err := co.Send(wires); err != nil {
		return fmt.Errorf("cope: inputter setup: %w", err)
	}
	in.prgs0 = make([]*prg.FieldElementPrg, len(wires))
	in.prgs1 = make([]*prg.FieldElementPrg, len(wires))
	for k, w := range wires {
		in.prgs0[k] = prg.New(in.f, labelSeed(w.L0))
		in.prgs1[k] = prg.New(in.f, labelSeed(w.L1))
	}
	in.log.Debug().Int("ots", len(wires)).Msg("inputter initialized")
	return nil
}

// Extend returns the inputter's shares of values[j]·Δ where Δ is the
// signer's key.
func (in *Inputter) Extend(ctx context.Context, values []field.Element) (
	[]field.Element, error) {

	if in.prgs0 == nil {
		return nil, ErrNotInitialized
	}
	n := len(values)

	u := make([]field.Element, 0, len(in.prgs0)*n)
	t0s := make([][]field.Element, len(in.prgs0))
	for k := range in.prgs0 {
		t0s[k] = in.prgs0[k].NextN(n)
		t1 := in.prgs1[k].NextN(n)
		for j, x := range values {
			u = append(u, t0s[k][j].Sub(t1[j]).Add(x))
		}
	}
	result := make([]field.Element, n)
	column := make([]field.Element, len(t0s))
	for j := range result {
		for k := range t0s {
			column[k] = t0s[k][j]
		}
		result[j] = in.f.Recombine(column).Neg()
	}
	if err := in.m.Send(in.peer, in.f.Encode(u)); err != nil {
		return nil, err
	}
	return result, nil
}
