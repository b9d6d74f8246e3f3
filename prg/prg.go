//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package prg implements deterministic expansion of seeds into field
// elements.
package prg

import (
	"fmt"
	"io"

	"github.com/markkurossi/mascot/field"
	"github.com/markkurossi/mascot/hash"
	"golang.org/x/crypto/chacha20"
)

// SeedSize defines the PRG seed size in bytes.
const SeedSize = chacha20.KeySize

// Seed defines a PRG seed.
type Seed [SeedSize]byte

// NewSeed reads a random seed from the entropy source.
func NewSeed(rand io.Reader) (Seed, error) {
	var seed Seed
	if _, err := io.ReadFull(rand, seed[:]); err != nil {
		return seed, fmt.Errorf("prg: read seed: %w", err)
	}
	return seed, nil
}

// SeedFromBytes derives a seed from arbitrary key material, such as
// an oblivious transfer label.
func SeedFromBytes(domain string, data []byte) Seed {
	h := hash.New()
	_ = h.WriteAny(&hash.BytesWithDomain{
		TheDomain: domain,
		Bytes:     data,
	})
	var seed Seed
	copy(seed[:], h.Sum())
	return seed
}

// FieldElementPrg expands a seed into a stream of field elements.
// Two instances with the same seed and field produce identical
// sequences. A FieldElementPrg is not safe for concurrent use.
type FieldElementPrg struct {
	f      *field.Field
	cipher *chacha20.Cipher
}

// New creates a new PRG for the field f from the seed.
func New(f *field.Field, seed Seed) *FieldElementPrg {
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce[:])
	if err != nil {
		// Key and nonce sizes are fixed by the types above.
		panic(err)
	}
	return &FieldElementPrg{
		f:      f,
		cipher: c,
	}
}

// NewRandom creates a PRG with a fresh random seed.
func NewRandom(f *field.Field, rand io.Reader) (*FieldElementPrg, error) {
	seed, err := NewSeed(rand)
	if err != nil {
		return nil, err
	}
	return New(f, seed), nil
}

// Field returns the PRG's field.
func (prg *FieldElementPrg) Field() *field.Field {
	return prg.f
}

// Read implements io.Reader by filling data with key stream.
func (prg *FieldElementPrg) Read(data []byte) (int, error) {
	for i := range data {
		data[i] = 0
	}
	prg.cipher.XORKeyStream(data, data)
	return len(data), nil
}

// Next returns the next element.
func (prg *FieldElementPrg) Next() field.Element {
	e, _ := prg.f.Sample(prg)
	return e
}

// NextN returns the next count elements.
func (prg *FieldElementPrg) NextN(count int) []field.Element {
	result := make([]field.Element, count)
	for i := range result {
		result[i] = prg.Next()
	}
	return result
}

// NextMatrix returns rows×cols elements in row-major order.
func (prg *FieldElementPrg) NextMatrix(rows, cols int) [][]field.Element {
	result := make([][]field.Element, rows)
	for i := range result {
		result[i] = prg.NextN(cols)
	}
	return result
}
