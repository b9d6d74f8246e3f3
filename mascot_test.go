//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package mascot

import (
	"context"
	"testing"

	"github.com/markkurossi/mascot/env"
	"github.com/markkurossi/mascot/field"
	"github.com/markkurossi/mascot/hash"
	"github.com/markkurossi/mascot/internal/mpctest"
	"github.com/markkurossi/mascot/p2p"
	"github.com/markkurossi/mascot/spdz"
	"github.com/markkurossi/mascot/timing"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *env.Config {
	f, err := field.NewUint64(65519)
	require.NoError(t, err)
	return &env.Config{
		Field:     f,
		BatchSize: 2,
	}
}

type output struct {
	key     field.Element
	triples []spdz.Triple
	random  []spdz.Share
	masks   []spdz.InputMask
}

func open(f *field.Field, alpha field.Element, shares []spdz.Share) (
	field.Element, bool) {

	value := f.Sum(spdz.Values(shares))
	mac := f.Sum(spdz.Macs(shares))
	return value, mac.Equal(value.Mul(alpha))
}

func TestSession(t *testing.T) {
	cfg := testConfig(t)
	f := cfg.GetField()

	results := mpctest.MustRun(t, 3,
		func(ctx context.Context, nw *p2p.Network) (*output, error) {
			s, err := New(cfg, nw, nil)
			if err != nil {
				return nil, err
			}
			s.Timing = timing.New()
			if err := s.Initialize(ctx); err != nil {
				return nil, err
			}
			out := &output{
				key: s.MacKeyShare(),
			}
			out.triples, err = s.Triples(ctx, 2)
			if err != nil {
				return nil, err
			}
			out.random, err = s.RandomElements(ctx, 3)
			if err != nil {
				return nil, err
			}
			out.masks, err = s.InputMasks(ctx, 1, 2)
			if err != nil {
				return nil, err
			}
			return out, nil
		})

	var keys []field.Element
	for _, out := range results {
		keys = append(keys, out.key)
	}
	alpha := f.Sum(keys)

	column := func(get func(out *output) spdz.Share) []spdz.Share {
		var result []spdz.Share
		for _, out := range results {
			result = append(result, get(out))
		}
		return result
	}

	for i := 0; i < 2; i++ {
		a, ok := open(f, alpha, column(func(o *output) spdz.Share {
			return o.triples[i].A
		}))
		require.True(t, ok)
		b, ok := open(f, alpha, column(func(o *output) spdz.Share {
			return o.triples[i].B
		}))
		require.True(t, ok)
		c, ok := open(f, alpha, column(func(o *output) spdz.Share {
			return o.triples[i].C
		}))
		require.True(t, ok)
		require.True(t, c.Equal(a.Mul(b)))
	}
	for i := 0; i < 3; i++ {
		_, ok := open(f, alpha, column(func(o *output) spdz.Share {
			return o.random[i]
		}))
		require.True(t, ok)
	}
	for i := 0; i < 2; i++ {
		value, ok := open(f, alpha, column(func(o *output) spdz.Share {
			return o.masks[i].Mask
		}))
		require.True(t, ok)
		for id, out := range results {
			if id == 1 {
				require.NotNil(t, out.masks[i].Value)
				require.True(t, value.Equal(*out.masks[i].Value))
			} else {
				require.Nil(t, out.masks[i].Value)
			}
		}
	}
}

func TestSupplier(t *testing.T) {
	cfg := testConfig(t)
	f := cfg.GetField()
	keys := []field.Element{f.FromUint64(11231), f.FromUint64(7719)}

	type result struct {
		triples []spdz.Triple
		batches int
	}
	results := mpctest.MustRun(t, 2,
		func(ctx context.Context, nw *p2p.Network) (result, error) {
			var r result
			s, err := New(cfg, nw, &keys[nw.ID()])
			if err != nil {
				return r, err
			}
			if err := s.Initialize(ctx); err != nil {
				return r, err
			}
			sup := NewSupplier(s)
			for i := 0; i < 5; i++ {
				triple, err := sup.Next(ctx)
				if err != nil {
					return r, err
				}
				r.triples = append(r.triples, triple)
			}
			if sup.Remaining() != 1 {
				t.Errorf("party %d: %d triples remaining", nw.ID(),
					sup.Remaining())
			}
			r.batches = sup.Batches()
			return r, nil
		})

	alpha := f.Sum(keys)
	for _, r := range results {
		require.Len(t, r.triples, 5)
		require.Equal(t, 3, r.batches)
	}
	for i := 0; i < 5; i++ {
		a, ok := open(f, alpha, []spdz.Share{
			results[0].triples[i].A, results[1].triples[i].A,
		})
		require.True(t, ok)
		b, ok := open(f, alpha, []spdz.Share{
			results[0].triples[i].B, results[1].triples[i].B,
		})
		require.True(t, ok)
		c, ok := open(f, alpha, []spdz.Share{
			results[0].triples[i].C, results[1].triples[i].C,
		})
		require.True(t, ok)
		require.True(t, c.Equal(a.Mul(b)), "triple %d", i)
	}
}

func TestMisuse(t *testing.T) {
	cfg := testConfig(t)
	nws := p2p.NewLocalNetworks(2)
	defer func() {
		for _, nw := range nws {
			nw.Abort(nil)
		}
	}()

	key := field.Default().One()
	_, err := New(cfg, nws[0], &key)
	require.Error(t, err)

	s, err := New(cfg, nws[0], nil)
	require.NoError(t, err)
	require.Equal(t, 0, s.ID())
	require.Equal(t, "⁰", s.IDString())

	ctx := context.Background()
	_, err = s.Triples(ctx, 1)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = s.RandomElements(ctx, 1)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = s.InputMasks(ctx, 0, 1)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.Zero(t, s.Stats().Sum())
}

func TestInvalidCount(t *testing.T) {
	cfg := testConfig(t)

	results := mpctest.MustRun(t, 2,
		func(ctx context.Context, nw *p2p.Network) ([]error, error) {
			s, err := New(cfg, nw, nil)
			if err != nil {
				return nil, err
			}
			if err := s.Initialize(ctx); err != nil {
				return nil, err
			}
			var errs []error
			_, err = s.RandomElements(ctx, -1)
			errs = append(errs, err)
			_, err = s.InputMasks(ctx, nw.ID(), -1)
			errs = append(errs, err)
			_, err = s.InputMasks(ctx, 1-nw.ID(), -1)
			errs = append(errs, err)
			_, err = s.Triples(ctx, -1)
			errs = append(errs, err)
			_, err = s.InputMasks(ctx, 2, 1)
			errs = append(errs, err)

			// Argument errors leave the session usable.
			random, err := s.RandomElements(ctx, 2)
			if err != nil {
				return nil, err
			}
			if len(random) != 2 {
				t.Errorf("party %d: got %d random elements", nw.ID(),
					len(random))
			}
			errs = append(errs, s.Initialize(ctx))
			return errs, nil
		})
	for id, errs := range results {
		for i, err := range errs[:len(errs)-1] {
			require.Error(t, err, "party %d call %d", id, i)
			require.NotErrorIs(t, err, ErrAborted, "party %d call %d", id, i)
		}
		require.ErrorIs(t, errs[len(errs)-1], ErrAlreadyInitialized,
			"party %d", id)
	}
}

// tamper corrupts all messages the party sends after the first skip
// messages.
type tamper struct {
	p2p.Messenger
	skip int
	sent int
}

func (t *tamper) Send(peer int, data []byte) error {
	t.sent++
	if t.sent > t.skip {
		data = append([]byte(nil), data...)
		data[0] ^= 0x01
	}
	return t.Messenger.Send(peer, data)
}

func TestInitializeAbort(t *testing.T) {
	const n = 3
	cfg := testConfig(t)

	results, errs := mpctest.Run(t, n,
		func(ctx context.Context, nw *p2p.Network) ([]error, error) {
			// Every party sends its commitments honestly and corrupts
			// its coin toss openings.
			s, err := New(cfg, &tamper{
				Messenger: nw,
				skip:      n - 1,
			}, nil)
			if err != nil {
				return nil, err
			}
			err = s.Initialize(ctx)
			if err == nil {
				return nil, nil
			}
			next := []error{s.Initialize(ctx)}
			_, tErr := s.Triples(ctx, 1)
			next = append(next, tErr)
			_, rErr := s.RandomElements(ctx, 1)
			next = append(next, rErr)
			return next, err
		})
	for id, err := range errs {
		require.ErrorIs(t, err, hash.ErrCommitment, "party %d", id)
		require.Len(t, results[id], 3, "party %d", id)
		for i, next := range results[id] {
			require.ErrorIs(t, next, ErrAborted, "party %d call %d", id, i)
			require.ErrorIs(t, next, hash.ErrCommitment,
				"party %d call %d", id, i)
		}
	}
}
