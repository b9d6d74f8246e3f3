//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package triple implements the generation of authenticated
// multiplication triples with sacrifice.
//
// Each party samples g left factors and one right factor per triple
// and the parties compute shares of the products with the per-peer
// multiplication sub-protocols. Every group is reduced into a
// candidate (a, b, c, â, ĉ) with two independent sets of joint
// coefficients. The candidates are authenticated with element
// generation and each (a, b, c) is verified by sacrificing (â, ĉ).
package triple

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/markkurossi/mascot/elgen"
	"github.com/markkurossi/mascot/env"
	"github.com/markkurossi/mascot/field"
	"github.com/markkurossi/mascot/mult"
	"github.com/markkurossi/mascot/p2p"
	"github.com/markkurossi/mascot/prg"
	"github.com/markkurossi/mascot/spdz"
	"github.com/markkurossi/mascot/timing"
	"github.com/rs/zerolog"
)

var (
	// ErrAborted is returned by all calls after the session has
	// failed.
	ErrAborted = errors.New("triple: session aborted")

	// ErrNotInitialized is returned when generating triples before
	// Initialize.
	ErrNotInitialized = errors.New("triple: not initialized")

	// ErrAlreadyInitialized is returned when Initialize is called
	// twice.
	ErrAlreadyInitialized = errors.New("triple: already initialized")
)

// candidate holds one party's unauthenticated shares of a triple
// candidate: a, b, c, and the sacrifice copy â, ĉ.
type candidate [5]field.Element

const (
	idxA = iota
	idxB
	idxC
	idxAHat
	idxCHat
)

// TripleGeneration implements one party's triple generation session.
// It is not safe for concurrent use and calls must not overlap.
type TripleGeneration struct {
	f           *field.Field
	m           p2p.Messenger
	rand        io.Reader
	log         zerolog.Logger
	groupSize   int
	eg          *elgen.ElementGeneration
	jointPrg    *prg.FieldElementPrg
	localPrg    *prg.FieldElementPrg
	lefts       []*mult.Left
	rights      []*mult.Right
	initialized bool
	err         error

	// Timing receives the phase samples of triple generation if set.
	Timing *timing.Timing
}

// New creates a triple generation session on top of the element
// generation session. The joint PRG must be seeded identically on all
// parties. Initialize initializes the element generation session.
func New(cfg *env.Config, m p2p.Messenger, eg *elgen.ElementGeneration,
	jointPrg *prg.FieldElementPrg) (*TripleGeneration, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tg := &TripleGeneration{
		f:         cfg.GetField(),
		m:         m,
		rand:      cfg.GetRandom(),
		log:       cfg.GetLogger("triple", m.ID()),
		groupSize: cfg.GetGroupSize(),
		eg:        eg,
		jointPrg:  jointPrg,
		lefts:     make([]*mult.Left, m.NumParties()),
		rights:    make([]*mult.Right, m.NumParties()),
	}
	for _, peer := range p2p.Peers(m) {
		tg.lefts[peer] = mult.NewLeft(cfg, m, peer)
		tg.rights[peer] = mult.NewRight(cfg, m, peer)
	}
	return tg, nil
}

// ElementGeneration returns the underlying element generation
// session.
func (tg *TripleGeneration) ElementGeneration() *elgen.ElementGeneration {
	return tg.eg
}

// Initialize initializes element generation and the multiplication
// sub-protocols with all peers. With each peer, the party with the
// lower id sets up its left multiplier first.
func (tg *TripleGeneration) Initialize(ctx context.Context) error {
	if tg.err != nil {
		return tg.aborted()
	}
	if tg.initialized {
		return ErrAlreadyInitialized
	}
	if err := tg.eg.Initialize(ctx); err != nil {
		return tg.fail(err)
	}
	localPrg, err := prg.NewRandom(tg.f, tg.rand)
	if err != nil {
		return tg.fail(err)
	}
	tg.localPrg = localPrg

	for _, peer := range p2p.Peers(tg.m) {
		if tg.m.ID() < peer {
			err = tg.lefts[peer].Initialize(ctx)
			if err == nil {
				err = tg.rights[peer].Initialize(ctx)
			}
		} else {
			err = tg.rights[peer].Initialize(ctx)
			if err == nil {
				err = tg.lefts[peer].Initialize(ctx)
			}
		}
		if err != nil {
			return tg.fail(fmt.Errorf("triple: initialize peer %d: %w",
				peer, err))
		}
	}
	tg.initialized = true
	tg.sample("Initialize")
	tg.log.Debug().Int("group", tg.groupSize).Msg("initialized")

	return nil
}

func (tg *TripleGeneration) aborted() error {
	return fmt.Errorf("%w: %w", ErrAborted, tg.err)
}

func (tg *TripleGeneration) fail(err error) error {
	if tg.err == nil {
		tg.err = err
		tg.log.Warn().Err(err).Msg("session aborted")
	}
	return err
}

func (tg *TripleGeneration) sample(label string, cols ...string) {
	if tg.Timing != nil {
		tg.Timing.Sample(label, cols...)
	}
}

// Triples generates count verified multiplication triples. Zero
// count returns an empty result without communication.
func (tg *TripleGeneration) Triples(ctx context.Context, count int) (
	[]spdz.Triple, error) {

	if tg.err != nil {
		return nil, tg.aborted()
	}
	if !tg.initialized {
		return nil, ErrNotInitialized
	}
	if count < 0 {
		return nil, fmt.Errorf("triple: invalid count %d", count)
	}
	if count == 0 {
		return nil, nil
	}
	result, err := tg.triples(ctx, count)
	if err != nil {
		return nil, tg.fail(err)
	}
	return result, nil
}

func (tg *TripleGeneration) triples(ctx context.Context, count int) (
	[]spdz.Triple, error) {

	lefts := tg.localPrg.NextN(count * tg.groupSize)
	rights := tg.localPrg.NextN(count)

	products, err := tg.multiply(ctx, lefts, rights)
	if err != nil {
		return nil, err
	}
	tg.sample("Multiply")

	candidates, err := tg.combine(lefts, rights, products)
	if err != nil {
		return nil, err
	}
	tg.sample("Combine")

	authenticated, err := tg.authenticate(ctx, candidates)
	if err != nil {
		return nil, err
	}
	tg.sample("Authenticate")

	result, err := tg.sacrifice(ctx, authenticated)
	if err != nil {
		return nil, err
	}
	tg.sample("Sacrifice")
	tg.log.Debug().Int("count", count).Msg("triples")

	return result, nil
}

// multiply returns this party's shares of lefts[i]·rights[i/g]
// summed over all parties' factors.
func (tg *TripleGeneration) multiply(ctx context.Context,
	lefts, rights []field.Element) ([]field.Element, error) {

	products, err := tg.f.PairwiseMultiply(lefts,
		tg.f.Stretch(rights, tg.groupSize))
	if err != nil {
		return nil, err
	}
	for _, peer := range p2p.Peers(tg.m) {
		var leftShares, rightShares []field.Element
		if tg.m.ID() < peer {
			leftShares, err = tg.lefts[peer].Multiply(ctx, lefts)
			if err == nil {
				rightShares, err = tg.rights[peer].Multiply(ctx, rights)
			}
		} else {
			rightShares, err = tg.rights[peer].Multiply(ctx, rights)
			if err == nil {
				leftShares, err = tg.lefts[peer].Multiply(ctx, lefts)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("triple: multiply with %d: %w", peer, err)
		}
		products, err = tg.f.SumRows([][]field.Element{
			products, leftShares, rightShares,
		})
		if err != nil {
			return nil, err
		}
	}
	return products, nil
}

// combine reduces each group of g products into one candidate using
// two independent sets of joint coefficients.
func (tg *TripleGeneration) combine(lefts, rights,
	products []field.Element) ([]candidate, error) {

	g := tg.groupSize
	if len(lefts) != len(rights)*g || len(products) != len(lefts) {
		return nil, fmt.Errorf("%w: %d lefts, %d rights, %d products",
			field.ErrLengthMismatch, len(lefts), len(rights), len(products))
	}
	masks := tg.jointPrg.NextMatrix(len(rights), g)
	sacrificeMasks := tg.jointPrg.NextMatrix(len(rights), g)

	result := make([]candidate, len(rights))
	for i := range rights {
		groupLefts := lefts[i*g : (i+1)*g]
		groupProducts := products[i*g : (i+1)*g]

		var c candidate
		var err error
		c[idxB] = rights[i]
		if c[idxA], err = tg.f.InnerProduct(groupLefts, masks[i]); err != nil {
			return nil, err
		}
		if c[idxC], err = tg.f.InnerProduct(groupProducts, masks[i]); err != nil {
			return nil, err
		}
		c[idxAHat], err = tg.f.InnerProduct(groupLefts, sacrificeMasks[i])
		if err != nil {
			return nil, err
		}
		c[idxCHat], err = tg.f.InnerProduct(groupProducts, sacrificeMasks[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// authenticate inputs every party's candidate shares and returns the
// authenticated sums. The result has five shares per candidate.
func (tg *TripleGeneration) authenticate(ctx context.Context,
	candidates []candidate) ([]spdz.Share, error) {

	flat := make([]field.Element, 0, len(candidates)*len(candidate{}))
	for _, c := range candidates {
		flat = append(flat, c[:]...)
	}

	rows := make([][]spdz.Share, tg.m.NumParties())
	for id := range rows {
		var err error
		if id == tg.m.ID() {
			rows[id], err = tg.eg.Input(ctx, flat)
		} else {
			rows[id], err = tg.eg.InputFrom(ctx, id, len(flat))
		}
		if err != nil {
			return nil, err
		}
	}
	return spdz.SumShares(rows)
}

// sacrifice verifies each authenticated candidate (a, b, c, â, ĉ) with
// a joint mask r: ρ = r·a - â is opened and σ = r·c - ĉ - b·ρ must be
// zero. The MAC check covers both ρ and σ.
func (tg *TripleGeneration) sacrifice(ctx context.Context,
	shares []spdz.Share) ([]spdz.Triple, error) {

	size := len(candidate{})
	if len(shares)%size != 0 {
		return nil, fmt.Errorf("%w: %d candidate shares",
			field.ErrLengthMismatch, len(shares))
	}
	count := len(shares) / size
	masks := tg.jointPrg.NextN(count)

	rhos := make([]spdz.Share, count)
	for i, r := range masks {
		c := shares[i*size : (i+1)*size]
		rhos[i] = c[idxA].Mul(r).Sub(c[idxAHat])
	}
	openRhos, err := tg.eg.Open(ctx, rhos)
	if err != nil {
		return nil, err
	}

	sigmas := make([]spdz.Share, count)
	result := make([]spdz.Triple, count)
	for i, r := range masks {
		c := shares[i*size : (i+1)*size]
		sigmas[i] = c[idxC].Mul(r).Sub(c[idxCHat]).Sub(c[idxB].Mul(openRhos[i]))
		result[i] = spdz.Triple{
			A: c[idxA],
			B: c[idxB],
			C: c[idxC],
		}
	}

	checked := append(rhos, sigmas...)
	expected := tg.f.PadWith(openRhos, tg.f.Zero(), len(checked))
	if err := tg.eg.Check(ctx, checked, expected); err != nil {
		return nil, err
	}
	return result, nil
}
