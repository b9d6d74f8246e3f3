//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package triple

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/markkurossi/mascot/cointoss"
	"github.com/markkurossi/mascot/elgen"
	"github.com/markkurossi/mascot/env"
	"github.com/markkurossi/mascot/field"
	"github.com/markkurossi/mascot/internal/mpctest"
	"github.com/markkurossi/mascot/maccheck"
	"github.com/markkurossi/mascot/p2p"
	"github.com/markkurossi/mascot/prg"
	"github.com/markkurossi/mascot/spdz"
	"github.com/stretchr/testify/require"
)

func testField(t *testing.T) *field.Field {
	f, err := field.NewUint64(65519)
	require.NoError(t, err)
	return f
}

func keys(f *field.Field, n int) []field.Element {
	all := []field.Element{
		f.FromUint64(11231), f.FromUint64(7719), f.FromUint64(4444),
	}
	return all[:n]
}

func newSession(ctx context.Context, cfg *env.Config, nw *p2p.Network,
	key field.Element) (*TripleGeneration, error) {

	seed, err := cointoss.Toss(ctx, nw, cfg.GetRandom())
	if err != nil {
		return nil, err
	}
	jointPrg := prg.New(cfg.GetField(), seed)
	return New(cfg, nw, elgen.New(cfg, nw, key, jointPrg), jointPrg)
}

func setup(ctx context.Context, cfg *env.Config, nw *p2p.Network,
	key field.Element) (*TripleGeneration, error) {

	tg, err := newSession(ctx, cfg, nw, key)
	if err != nil {
		return nil, err
	}
	if err := tg.Initialize(ctx); err != nil {
		return nil, err
	}
	return tg, nil
}

// verify checks the multiplicative and MAC invariants of the
// per-party triples.
func verify(t *testing.T, f *field.Field, alphas []field.Element,
	triples [][]spdz.Triple) {

	alpha := f.Sum(alphas)
	for i := range triples[0] {
		var a, b, c []spdz.Share
		for id := range triples {
			a = append(a, triples[id][i].A)
			b = append(b, triples[id][i].B)
			c = append(c, triples[id][i].C)
		}
		values := make([]field.Element, 3)
		for j, shares := range [][]spdz.Share{a, b, c} {
			values[j] = f.Sum(spdz.Values(shares))
			mac := f.Sum(spdz.Macs(shares))
			require.True(t, mac.Equal(values[j].Mul(alpha)),
				"triple %d component %d MAC", i, j)
		}
		require.True(t, values[2].Equal(values[0].Mul(values[1])),
			"triple %d: %v·%v != %v", i, values[0], values[1], values[2])
	}
}

func run(t *testing.T, cfg *env.Config, alphas []field.Element,
	batches ...int) [][]spdz.Triple {

	results := mpctest.MustRun(t, len(alphas),
		func(ctx context.Context, nw *p2p.Network) ([]spdz.Triple, error) {
			tg, err := setup(ctx, cfg, nw, alphas[nw.ID()])
			if err != nil {
				return nil, err
			}
			var result []spdz.Triple
			for _, count := range batches {
				triples, err := tg.Triples(ctx, count)
				if err != nil {
					return nil, err
				}
				if len(triples) != count {
					t.Errorf("party %d: got %d triples, expected %d",
						nw.ID(), len(triples), count)
				}
				result = append(result, triples...)
			}
			return result, nil
		})

	var total int
	for _, count := range batches {
		total += count
	}
	for id := range results {
		require.Len(t, results[id], total, "party %d", id)
	}
	verify(t, cfg.GetField(), alphas, results)

	return results
}

func TestMultiplyScenarioA(t *testing.T) {
	f := testField(t)
	cfg := &env.Config{
		Field:     f,
		GroupSize: 1,
	}
	factors := [][2]uint64{
		{12, 11},
		{123, 2222},
	}
	results := mpctest.MustRun(t, 2,
		func(ctx context.Context, nw *p2p.Network) ([]field.Element, error) {
			tg, err := setup(ctx, cfg, nw, keys(f, 2)[nw.ID()])
			if err != nil {
				return nil, err
			}
			return tg.multiply(ctx,
				[]field.Element{f.FromUint64(factors[nw.ID()][0])},
				[]field.Element{f.FromUint64(factors[nw.ID()][1])})
		})
	sum := results[0][0].Add(results[1][0])
	require.Equal(t, uint64(39379), sum.Uint64())
}

func TestScenarioA(t *testing.T) {
	f := testField(t)
	run(t, &env.Config{Field: f}, keys(f, 2), 1)
}

func TestScenarioB(t *testing.T) {
	f := testField(t)
	run(t, &env.Config{Field: f}, keys(f, 3), 3)
}

func TestScenarioC(t *testing.T) {
	f := testField(t)
	run(t, &env.Config{Field: f}, keys(f, 2), 2, 2, 2, 2, 2)
}

func TestGroupSize(t *testing.T) {
	f := testField(t)
	for _, g := range []int{1, 2, 5} {
		run(t, &env.Config{Field: f, GroupSize: g}, keys(f, 2), 4)
	}
}

func TestDefaultField(t *testing.T) {
	f := field.Default()
	alphas, err := f.SampleN(rand.Reader, 3)
	require.NoError(t, err)
	run(t, &env.Config{}, alphas, 2)
}

func TestBatching(t *testing.T) {
	f := testField(t)
	one := run(t, &env.Config{Field: f}, keys(f, 2), 6)
	many := run(t, &env.Config{Field: f}, keys(f, 2), 2, 2, 2)
	require.Len(t, many[0], len(one[0]))
}

func TestZeroTriples(t *testing.T) {
	f := testField(t)
	cfg := &env.Config{
		Field: f,
	}
	results := mpctest.MustRun(t, 2,
		func(ctx context.Context, nw *p2p.Network) ([2]uint64, error) {
			var result [2]uint64
			tg, err := setup(ctx, cfg, nw, keys(f, 2)[nw.ID()])
			if err != nil {
				return result, err
			}
			before := nw.Stats()
			triples, err := tg.Triples(ctx, 0)
			if err != nil {
				return result, err
			}
			if len(triples) != 0 {
				t.Errorf("party %d: got %d triples", nw.ID(), len(triples))
			}
			after := nw.Stats()
			result[0] = after.Sent.Load() - before.Sent.Load()
			result[1] = after.Flushed.Load() - before.Flushed.Load()
			return result, nil
		})
	for id, result := range results {
		require.Zero(t, result[0], "party %d bytes sent", id)
		require.Zero(t, result[1], "party %d flushes", id)
	}
}

func TestMisuse(t *testing.T) {
	f := testField(t)

	_, err := New(&env.Config{Field: f, GroupSize: -1},
		p2p.NewLocalNetworks(2)[0], nil, nil)
	require.Error(t, err)

	cfg := &env.Config{
		Field: f,
	}
	results := mpctest.MustRun(t, 2,
		func(ctx context.Context, nw *p2p.Network) ([]error, error) {
			tg, err := newSession(ctx, cfg, nw, keys(f, 2)[nw.ID()])
			if err != nil {
				return nil, err
			}
			var errs []error
			_, err = tg.Triples(ctx, 1)
			errs = append(errs, err)

			if err := tg.Initialize(ctx); err != nil {
				return nil, err
			}
			errs = append(errs, tg.Initialize(ctx))

			_, err = tg.Triples(ctx, -1)
			errs = append(errs, err)

			// The session stays usable after misuse.
			_, err = tg.Triples(ctx, 1)
			errs = append(errs, err)

			return errs, nil
		})
	for id, errs := range results {
		require.ErrorIs(t, errs[0], ErrNotInitialized, "party %d", id)
		require.ErrorIs(t, errs[1], ErrAlreadyInitialized, "party %d", id)
		require.Error(t, errs[2], "party %d", id)
		require.NoError(t, errs[3], "party %d", id)
	}
}

// tamperedTriples runs the triple generation steps with party 0
// adding one to its share of c before authentication. The MACs of the
// candidates stay valid so only the sacrifice can detect the error.
func tamperedTriples(ctx context.Context, tg *TripleGeneration,
	count int) ([]spdz.Triple, error) {

	lefts := tg.localPrg.NextN(count * tg.groupSize)
	rights := tg.localPrg.NextN(count)

	products, err := tg.multiply(ctx, lefts, rights)
	if err != nil {
		return nil, err
	}
	candidates, err := tg.combine(lefts, rights, products)
	if err != nil {
		return nil, err
	}
	if tg.m.ID() == 0 {
		candidates[count-1][idxC] = candidates[count-1][idxC].Add(tg.f.One())
	}
	shares, err := tg.authenticate(ctx, candidates)
	if err != nil {
		return nil, err
	}
	return tg.sacrifice(ctx, shares)
}

func TestSacrificeAbort(t *testing.T) {
	cfg := &env.Config{}
	alphas, err := cfg.GetField().SampleN(rand.Reader, 3)
	require.NoError(t, err)

	results, errs := mpctest.Run(t, 3,
		func(ctx context.Context, nw *p2p.Network) (error, error) {
			tg, err := setup(ctx, cfg, nw, alphas[nw.ID()])
			if err != nil {
				return nil, err
			}
			triples, err := tamperedTriples(ctx, tg, 3)
			if err == nil {
				return nil, nil
			}
			if triples != nil {
				t.Errorf("party %d: triples returned with error", nw.ID())
			}
			_ = tg.fail(err)
			_, next := tg.Triples(ctx, 1)
			return next, err
		})
	for id, err := range errs {
		require.ErrorIs(t, err, maccheck.ErrMacCheck, "party %d", id)
		require.ErrorIs(t, results[id], ErrAborted, "party %d", id)
		require.ErrorIs(t, results[id], maccheck.ErrMacCheck, "party %d", id)
	}
}
