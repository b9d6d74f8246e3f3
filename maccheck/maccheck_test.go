//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package maccheck

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/markkurossi/mascot/field"
	"github.com/markkurossi/mascot/internal/mpctest"
	"github.com/markkurossi/mascot/p2p"
	"github.com/stretchr/testify/require"
)

type party struct {
	key field.Element
	mac field.Element
}

// deal splits value·Σkeys into random MAC shares.
func deal(t *testing.T, f *field.Field, value field.Element,
	keys []field.Element) []party {

	macs, err := f.SampleN(rand.Reader, len(keys)-1)
	require.NoError(t, err)
	last := value.Mul(f.Sum(keys)).Sub(f.Sum(macs))
	macs = append(macs, last)

	result := make([]party, len(keys))
	for i := range keys {
		result[i] = party{
			key: keys[i],
			mac: macs[i],
		}
	}
	return result
}

func run(t *testing.T, value field.Element, parties []party) []error {
	_, errs := mpctest.Run(t, len(parties),
		func(ctx context.Context, nw *p2p.Network) (struct{}, error) {
			p := parties[nw.ID()]
			return struct{}{}, Check(ctx, nw, rand.Reader, value, p.key, p.mac)
		})
	return errs
}

func TestCheck(t *testing.T) {
	f, err := field.NewUint64(65519)
	require.NoError(t, err)

	keys := []field.Element{
		f.FromUint64(11231), f.FromUint64(7719), f.FromUint64(4444),
	}
	value := f.FromUint64(39379)

	for n := 2; n <= len(keys); n++ {
		errs := run(t, value, deal(t, f, value, keys[:n]))
		for id, err := range errs {
			require.NoError(t, err, "party %d", id)
		}
	}
}

func TestCheckMismatch(t *testing.T) {
	f := field.Default()
	keys, err := f.SampleN(rand.Reader, 3)
	require.NoError(t, err)
	value, err := f.Sample(rand.Reader)
	require.NoError(t, err)

	parties := deal(t, f, value, keys)
	parties[1].mac = parties[1].mac.Add(f.One())

	errs := run(t, value, parties)
	for id, err := range errs {
		require.ErrorIs(t, err, ErrMacCheck, "party %d", id)
	}

	// A wrong public value fails in the same way.
	errs = run(t, value.Add(f.One()), deal(t, f, value, keys))
	for id, err := range errs {
		require.ErrorIs(t, err, ErrMacCheck, "party %d", id)
	}
}
