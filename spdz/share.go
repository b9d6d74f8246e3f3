//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package spdz implements MAC-authenticated additive secret shares.
package spdz

import (
	"fmt"

	"github.com/markkurossi/mascot/field"
)

// Share implements one party's share of an authenticated value v.
// Summed over all parties, the values give v and the MACs give v·α
// where α is the sum of the parties' MAC key shares.
type Share struct {
	Value field.Element
	Mac   field.Element
}

func (s Share) String() string {
	return fmt.Sprintf("%v{%v}", s.Value, s.Mac)
}

// Add returns the share of the sum of the shared values.
func (s Share) Add(o Share) Share {
	return Share{
		Value: s.Value.Add(o.Value),
		Mac:   s.Mac.Add(o.Mac),
	}
}

// Sub returns the share of the difference of the shared values.
func (s Share) Sub(o Share) Share {
	return Share{
		Value: s.Value.Sub(o.Value),
		Mac:   s.Mac.Sub(o.Mac),
	}
}

// Mul returns the share of the shared value multiplied by the public
// constant k.
func (s Share) Mul(k field.Element) Share {
	return Share{
		Value: s.Value.Mul(k),
		Mac:   s.Mac.Mul(k),
	}
}

// Values returns the value shares of the shares.
func Values(shares []Share) []field.Element {
	result := make([]field.Element, len(shares))
	for i, s := range shares {
		result[i] = s.Value
	}
	return result
}

// Macs returns the MAC shares of the shares.
func Macs(shares []Share) []field.Element {
	result := make([]field.Element, len(shares))
	for i, s := range shares {
		result[i] = s.Mac
	}
	return result
}

// SumShares returns the elementwise sum of the rows of shares.
func SumShares(rows [][]Share) ([]Share, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	result := make([]Share, len(rows[0]))
	copy(result, rows[0])
	for _, row := range rows[1:] {
		if len(row) != len(result) {
			return nil, fmt.Errorf("%w: share row length %d, expected %d",
				field.ErrLengthMismatch, len(row), len(result))
		}
		for i, s := range row {
			result[i] = result[i].Add(s)
		}
	}
	return result, nil
}

// Triple implements one party's shares of a multiplication triple
// (a, b, c) where c = a·b.
type Triple struct {
	A Share
	B Share
	C Share
}

// InputMask implements one party's share of a random mask r. The
// party toward which the mask was generated also knows the plaintext
// r in Value.
type InputMask struct {
	Mask  Share
	Value *field.Element
}
