//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package mpctest runs multi-party protocols in tests.
package mpctest

import (
	"context"
	"testing"
	"time"

	"github.com/markkurossi/mascot/p2p"
	"golang.org/x/sync/errgroup"
)

// Timeout bounds the running time of one Run invocation. When it
// expires, all parties blocked in a receive fail.
var Timeout = 2 * time.Minute

// Run runs fn for each of numParties parties over a fresh in-memory
// network. It returns the parties' results and errors indexed by
// party id. A failing party does not cancel the others: each party
// must observe protocol aborts on its own.
func Run[T any](t testing.TB, numParties int,
	fn func(ctx context.Context, nw *p2p.Network) (T, error)) ([]T, []error) {

	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	nws := p2p.NewLocalNetworks(numParties)
	results := make([]T, numParties)
	errs := make([]error, numParties)

	var g errgroup.Group
	for id := range nws {
		id := id
		g.Go(func() error {
			results[id], errs[id] = fn(ctx, nws[id])
			return nil
		})
	}
	g.Wait()

	for _, nw := range nws {
		nw.Abort(nil)
	}
	return results, errs
}

// MustRun runs fn like Run and fails the test if any party fails.
func MustRun[T any](t testing.TB, numParties int,
	fn func(ctx context.Context, nw *p2p.Network) (T, error)) []T {

	t.Helper()

	results, errs := Run(t, numParties, fn)
	for id, err := range errs {
		if err != nil {
			t.Fatalf("party %d: %v", id, err)
		}
	}
	return results
}
