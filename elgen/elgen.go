//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package elgen implements element generation: MAC-authenticated
// secret sharing of inputs, opening of shared values, and batched MAC
// checks of opened values.
package elgen

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/markkurossi/mascot/cope"
	"github.com/markkurossi/mascot/env"
	"github.com/markkurossi/mascot/field"
	"github.com/markkurossi/mascot/maccheck"
	"github.com/markkurossi/mascot/p2p"
	"github.com/markkurossi/mascot/prg"
	"github.com/markkurossi/mascot/spdz"
	"github.com/rs/zerolog"
)

var (
	// ErrAborted is returned by all calls after the session has
	// failed.
	ErrAborted = errors.New("elgen: session aborted")

	// ErrNotInitialized is returned when the session is used before
	// Initialize.
	ErrNotInitialized = errors.New("elgen: not initialized")

	// ErrAlreadyInitialized is returned when Initialize is called
	// twice.
	ErrAlreadyInitialized = errors.New("elgen: already initialized")
)

// ElementGeneration implements one party's element generation
// session. It is not safe for concurrent use and calls must not
// overlap.
type ElementGeneration struct {
	f           *field.Field
	m           p2p.Messenger
	rand        io.Reader
	log         zerolog.Logger
	macKeyShare field.Element
	localPrg    *prg.FieldElementPrg
	jointPrg    *prg.FieldElementPrg
	signers     []*cope.Signer
	inputters   []*cope.Inputter
	initialized bool
	err         error
}

// New creates an element generation session with the party's MAC key
// share. The joint PRG must be seeded identically on all parties.
func New(cfg *env.Config, m p2p.Messenger, macKeyShare field.Element,
	jointPrg *prg.FieldElementPrg) *ElementGeneration {

	eg := &ElementGeneration{
		f:           cfg.GetField(),
		m:           m,
		rand:        cfg.GetRandom(),
		log:         cfg.GetLogger("elgen", m.ID()),
		macKeyShare: macKeyShare,
		jointPrg:    jointPrg,
		signers:     make([]*cope.Signer, m.NumParties()),
		inputters:   make([]*cope.Inputter, m.NumParties()),
	}
	for _, peer := range p2p.Peers(m) {
		eg.signers[peer] = cope.NewSigner(cfg, m, peer, macKeyShare)
		eg.inputters[peer] = cope.NewInputter(cfg, m, peer)
	}
	return eg
}

// Field returns the session's field.
func (eg *ElementGeneration) Field() *field.Field {
	return eg.f
}

// MacKeyShare returns the party's MAC key share.
func (eg *ElementGeneration) MacKeyShare() field.Element {
	return eg.macKeyShare
}

// Initialize sets up the correlated product channels with all
// peers. With each peer, the party with the lower id sets up its
// inputter first and the other party its signer first.
func (eg *ElementGeneration) Initialize(ctx context.Context) error {
	if eg.err != nil {
		return eg.aborted()
	}
	if eg.initialized {
		return ErrAlreadyInitialized
	}
	localPrg, err := prg.NewRandom(eg.f, eg.rand)
	if err != nil {
		return eg.fail(err)
	}
	eg.localPrg = localPrg

	for _, peer := range p2p.Peers(eg.m) {
		if eg.m.ID() < peer {
			err = eg.inputters[peer].Initialize(ctx)
			if err == nil {
				err = eg.signers[peer].Initialize(ctx)
			}
		} else {
			err = eg.signers[peer].Initialize(ctx)
			if err == nil {
				err = eg.inputters[peer].Initialize(ctx)
			}
		}
		if err != nil {
			return eg.fail(fmt.Errorf("elgen: initialize peer %d: %w",
				peer, err))
		}
	}
	eg.initialized = true
	eg.log.Debug().Msg("initialized")

	return nil
}

func (eg *ElementGeneration) aborted() error {
	return fmt.Errorf("%w: %w", ErrAborted, eg.err)
}

func (eg *ElementGeneration) usable() error {
	if eg.err != nil {
		return eg.aborted()
	}
	if !eg.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (eg *ElementGeneration) fail(err error) error {
	if eg.err == nil {
		eg.err = err
		eg.log.Warn().Err(err).Msg("session aborted")
	}
	return err
}

// Input secret-shares the values to all parties and returns this
// party's authenticated shares of them. All other parties must call
// InputFrom with this party's id and the number of values.
func (eg *ElementGeneration) Input(ctx context.Context,
	values []field.Element) ([]spdz.Share, error) {

	if err := eg.usable(); err != nil {
		return nil, err
	}
	result, err := eg.input(ctx, values)
	if err != nil {
		return nil, eg.fail(err)
	}
	return result, nil
}

func (eg *ElementGeneration) input(ctx context.Context,
	values []field.Element) ([]spdz.Share, error) {

	// The padding element guarantees that the checked combination
	// always contains an element the inputter did not choose.
	padded := make([]field.Element, 0, len(values)+1)
	padded = append(padded, values...)
	padded = append(padded, eg.localPrg.Next())

	own := make([]field.Element, len(padded))
	copy(own, padded)
	for _, peer := range p2p.Peers(eg.m) {
		shares := eg.localPrg.NextN(len(padded))
		for j, s := range shares {
			own[j] = own[j].Sub(s)
		}
		if err := eg.m.Send(peer, eg.f.Encode(shares)); err != nil {
			return nil, err
		}
	}

	macs := eg.f.ScalarMultiply(padded, eg.macKeyShare)
	for _, peer := range p2p.Peers(eg.m) {
		contrib, err := eg.inputters[peer].Extend(ctx, padded)
		if err != nil {
			return nil, err
		}
		macs, err = eg.f.AddPairwise(macs, contrib)
		if err != nil {
			return nil, err
		}
	}

	coeffs := eg.jointPrg.NextN(len(padded))
	masked, err := eg.f.InnerProduct(padded, coeffs)
	if err != nil {
		return nil, err
	}
	if err := p2p.SendToAll(eg.m, eg.f.Encode([]field.Element{masked})); err != nil {
		return nil, err
	}
	if err := eg.runMacCheck(ctx, masked, macs, coeffs); err != nil {
		return nil, err
	}
	eg.log.Debug().Int("count", len(values)).Msg("input")

	return toShares(own[:len(values)], macs[:len(values)]), nil
}

// InputFrom receives this party's authenticated shares of count
// values input by the inputter party.
func (eg *ElementGeneration) InputFrom(ctx context.Context, inputter,
	count int) ([]spdz.Share, error) {

	if err := eg.usable(); err != nil {
		return nil, err
	}
	if inputter < 0 || inputter >= eg.m.NumParties() ||
		inputter == eg.m.ID() {
		return nil, fmt.Errorf("elgen: invalid inputter %d", inputter)
	}
	if count < 0 {
		return nil, fmt.Errorf("elgen: invalid count %d", count)
	}
	result, err := eg.inputFrom(ctx, inputter, count)
	if err != nil {
		return nil, eg.fail(err)
	}
	return result, nil
}

func (eg *ElementGeneration) inputFrom(ctx context.Context, inputter,
	count int) ([]spdz.Share, error) {

	data, err := eg.m.Receive(ctx, inputter)
	if err != nil {
		return nil, err
	}
	shares, err := eg.f.DecodeN(data, count+1)
	if err != nil {
		return nil, fmt.Errorf("elgen: shares from %d: %w", inputter, err)
	}
	macs, err := eg.signers[inputter].Extend(ctx, count+1)
	if err != nil {
		return nil, err
	}
	coeffs := eg.jointPrg.NextN(count + 1)

	data, err = eg.m.Receive(ctx, inputter)
	if err != nil {
		return nil, err
	}
	masked, err := eg.f.DecodeN(data, 1)
	if err != nil {
		return nil, fmt.Errorf("elgen: masked value from %d: %w",
			inputter, err)
	}
	if err := eg.runMacCheck(ctx, masked[0], macs, coeffs); err != nil {
		return nil, err
	}
	eg.log.Debug().Int("inputter", inputter).Int("count", count).
		Msg("input received")

	return toShares(shares[:count], macs[:count]), nil
}

// Open opens the shared values to all parties. Open does not
// authenticate the result: use Check to verify the opened values
// against their MAC shares.
func (eg *ElementGeneration) Open(ctx context.Context,
	shares []spdz.Share) ([]field.Element, error) {

	if err := eg.usable(); err != nil {
		return nil, err
	}
	result, err := eg.open(ctx, shares)
	if err != nil {
		return nil, eg.fail(err)
	}
	return result, nil
}

func (eg *ElementGeneration) open(ctx context.Context,
	shares []spdz.Share) ([]field.Element, error) {

	own := spdz.Values(shares)
	if err := p2p.SendToAll(eg.m, eg.f.Encode(own)); err != nil {
		return nil, err
	}
	data, err := p2p.ReceiveFromAll(ctx, eg.m)
	if err != nil {
		return nil, err
	}
	rows := [][]field.Element{own}
	for _, peer := range p2p.Peers(eg.m) {
		row, err := eg.f.DecodeN(data[peer], len(shares))
		if err != nil {
			return nil, fmt.Errorf("elgen: open from %d: %w", peer, err)
		}
		rows = append(rows, row)
	}
	return eg.f.SumRows(rows)
}

// Check verifies the opened values against the MAC shares of their
// shares. All parties must call Check with the same opened values.
func (eg *ElementGeneration) Check(ctx context.Context,
	shares []spdz.Share, opened []field.Element) error {

	if err := eg.usable(); err != nil {
		return err
	}
	if len(shares) != len(opened) {
		return fmt.Errorf("%w: %d shares, %d opened values",
			field.ErrLengthMismatch, len(shares), len(opened))
	}
	coeffs := eg.jointPrg.NextN(len(opened))
	value, err := eg.f.InnerProduct(opened, coeffs)
	if err != nil {
		return eg.fail(err)
	}
	if err := eg.runMacCheck(ctx, value, spdz.Macs(shares), coeffs); err != nil {
		return eg.fail(err)
	}
	return nil
}

func (eg *ElementGeneration) runMacCheck(ctx context.Context,
	value field.Element, macs, coeffs []field.Element) error {

	mac, err := eg.f.InnerProduct(macs, coeffs)
	if err != nil {
		return err
	}
	return maccheck.Check(ctx, eg.m, eg.rand, value, eg.macKeyShare, mac)
}

func toShares(values, macs []field.Element) []spdz.Share {
	result := make([]spdz.Share, len(values))
	for i := range values {
		result[i] = spdz.Share{
			Value: values[i],
			Mac:   macs[i],
		}
	}
	return result
}
