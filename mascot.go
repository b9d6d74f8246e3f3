//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package mascot implements an actively secure preprocessing engine
// for arithmetic multi-party computation. A Session generates
// MAC-authenticated multiplication triples, random elements, and
// input masks with the other parties of the computation.
package mascot

import (
	"context"
	"errors"
	"fmt"

	"github.com/markkurossi/mascot/cointoss"
	"github.com/markkurossi/mascot/elgen"
	"github.com/markkurossi/mascot/env"
	"github.com/markkurossi/mascot/field"
	"github.com/markkurossi/mascot/p2p"
	"github.com/markkurossi/mascot/prg"
	"github.com/markkurossi/mascot/spdz"
	"github.com/markkurossi/mascot/timing"
	"github.com/markkurossi/mascot/triple"
	"github.com/markkurossi/text/superscript"
	"github.com/rs/zerolog"
)

var (
	// ErrAborted is returned by all session calls after a protocol or
	// transport error.
	ErrAborted = errors.New("mascot: session aborted")

	// ErrNotInitialized is returned when generating before Initialize.
	ErrNotInitialized = errors.New("mascot: not initialized")

	// ErrAlreadyInitialized is returned when Initialize is called
	// twice.
	ErrAlreadyInitialized = errors.New("mascot: already initialized")
)

// Session implements one party's preprocessing session.
type Session struct {
	cfg         *env.Config
	m           p2p.Messenger
	f           *field.Field
	log         zerolog.Logger
	macKeyShare field.Element
	eg          *elgen.ElementGeneration
	tg          *triple.TripleGeneration
	err         error

	// Timing receives the phase samples of the session if set before
	// Initialize.
	Timing *timing.Timing
}

// New creates a new session for the party of the messenger. If
// macKeyShare is nil, the session samples a random MAC key share.
func New(cfg *env.Config, m p2p.Messenger, macKeyShare *field.Element) (
	*Session, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := cfg.GetField()

	var key field.Element
	if macKeyShare != nil {
		if !macKeyShare.Field().Equal(f) {
			return nil, fmt.Errorf("mascot: MAC key share field %v, expected %v",
				macKeyShare.Field(), f)
		}
		key = *macKeyShare
	} else {
		var err error
		key, err = f.Sample(cfg.GetRandom())
		if err != nil {
			return nil, err
		}
	}
	return &Session{
		cfg:         cfg,
		m:           m,
		f:           f,
		log:         cfg.GetLogger("mascot", m.ID()),
		macKeyShare: key,
	}, nil
}

// ID returns the session's party id.
func (s *Session) ID() int {
	return s.m.ID()
}

// IDString returns the party id as a superscript string.
func (s *Session) IDString() string {
	return superscript.Itoa(s.m.ID())
}

// Field returns the session's field.
func (s *Session) Field() *field.Field {
	return s.f
}

// MacKeyShare returns the party's MAC key share.
func (s *Session) MacKeyShare() field.Element {
	return s.macKeyShare
}

// Stats returns the I/O statistics of the session's messenger.
func (s *Session) Stats() p2p.IOStats {
	if st, ok := s.m.(interface{ Stats() p2p.IOStats }); ok {
		return st.Stats()
	}
	return p2p.NewIOStats()
}

// Initialize agrees on the joint randomness with all parties and sets
// up element and triple generation.
func (s *Session) Initialize(ctx context.Context) error {
	if s.err != nil {
		return s.aborted()
	}
	if s.tg != nil {
		return ErrAlreadyInitialized
	}
	seed, err := cointoss.Toss(ctx, s.m, s.cfg.GetRandom())
	if err != nil {
		return s.fail(fmt.Errorf("mascot: coin tossing: %w", err))
	}
	if s.Timing != nil {
		s.Timing.Sample("Coin toss")
	}
	jointPrg := prg.New(s.f, seed)

	eg := elgen.New(s.cfg, s.m, s.macKeyShare, jointPrg)
	tg, err := triple.New(s.cfg, s.m, eg, jointPrg)
	if err != nil {
		return s.fail(err)
	}
	tg.Timing = s.Timing
	if err := tg.Initialize(ctx); err != nil {
		return s.fail(err)
	}
	s.eg = eg
	s.tg = tg
	s.log.Debug().Int("parties", s.m.NumParties()).Msg("initialized")

	return nil
}

func (s *Session) aborted() error {
	return fmt.Errorf("%w: %w", ErrAborted, s.err)
}

func (s *Session) fail(err error) error {
	if s.err == nil {
		s.err = err
		s.log.Warn().Err(err).Msg("session aborted")
	}
	return err
}

// usable reports the error that prevents a generation call from
// starting.
func (s *Session) usable(count int) error {
	if s.err != nil {
		return s.aborted()
	}
	if s.tg == nil {
		return ErrNotInitialized
	}
	if count < 0 {
		return fmt.Errorf("mascot: invalid count %d", count)
	}
	return nil
}

// Triples generates count verified multiplication triples.
func (s *Session) Triples(ctx context.Context, count int) (
	[]spdz.Triple, error) {

	if err := s.usable(count); err != nil {
		return nil, err
	}
	result, err := s.tg.Triples(ctx, count)
	if err != nil {
		return nil, s.fail(err)
	}
	return result, nil
}

// RandomElements generates count authenticated elements whose values
// are unknown to every party. Each party inputs random values and the
// element is the sum of all inputs.
func (s *Session) RandomElements(ctx context.Context, count int) (
	[]spdz.Share, error) {

	if err := s.usable(count); err != nil {
		return nil, err
	}
	values, err := s.f.SampleN(s.cfg.GetRandom(), count)
	if err != nil {
		return nil, s.fail(err)
	}
	rows := make([][]spdz.Share, s.m.NumParties())
	for id := range rows {
		if id == s.m.ID() {
			rows[id], err = s.eg.Input(ctx, values)
		} else {
			rows[id], err = s.eg.InputFrom(ctx, id, count)
		}
		if err != nil {
			return nil, s.fail(err)
		}
	}
	if s.Timing != nil {
		s.Timing.Sample("Random elements")
	}
	return spdz.SumShares(rows)
}

// InputMasks generates count authenticated random masks whose values
// are known to the party towardParty only. On that party, the
// returned masks hold the plaintext values.
func (s *Session) InputMasks(ctx context.Context, towardParty, count int) (
	[]spdz.InputMask, error) {

	if err := s.usable(count); err != nil {
		return nil, err
	}
	if towardParty < 0 || towardParty >= s.m.NumParties() {
		return nil, fmt.Errorf("mascot: invalid party %d", towardParty)
	}
	var values []field.Element
	var shares []spdz.Share
	var err error
	if towardParty == s.m.ID() {
		values, err = s.f.SampleN(s.cfg.GetRandom(), count)
		if err != nil {
			return nil, s.fail(err)
		}
		shares, err = s.eg.Input(ctx, values)
	} else {
		shares, err = s.eg.InputFrom(ctx, towardParty, count)
	}
	if err != nil {
		return nil, s.fail(err)
	}
	result := make([]spdz.InputMask, len(shares))
	for i, share := range shares {
		result[i].Mask = share
		if values != nil {
			result[i].Value = &values[i]
		}
	}
	return result, nil
}
