//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package mascot

import (
	"context"

	"github.com/markkurossi/mascot/spdz"
)

// Supplier serves triples one at a time from batches generated with
// a session. All parties must consume triples in the same order so
// that their refills happen together.
type Supplier struct {
	s         *Session
	batchSize int
	triples   []spdz.Triple
	batches   int
}

// NewSupplier creates a triple supplier for the session. It refills
// with the configured batch size.
func NewSupplier(s *Session) *Supplier {
	return &Supplier{
		s:         s,
		batchSize: s.cfg.GetBatchSize(),
	}
}

// Next returns the next triple, generating a new batch when the
// current one is used up.
func (sup *Supplier) Next(ctx context.Context) (spdz.Triple, error) {
	if len(sup.triples) == 0 {
		triples, err := sup.s.Triples(ctx, sup.batchSize)
		if err != nil {
			return spdz.Triple{}, err
		}
		sup.triples = triples
		sup.batches++
		sup.s.log.Debug().Int("batch", sup.batches).
			Int("size", len(triples)).Msg("supplier refill")
	}
	t := sup.triples[0]
	sup.triples = sup.triples[1:]
	return t, nil
}

// Remaining returns the number of triples left in the current batch.
func (sup *Supplier) Remaining() int {
	return len(sup.triples)
}

// Batches returns the number of batches generated.
func (sup *Supplier) Batches() int {
	return sup.batches
}
