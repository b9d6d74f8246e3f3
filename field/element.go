//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package field

import (
	"math/big"

	"github.com/cronokirby/saferith"
)

// Element implements an immutable field element. All operations
// return new elements and the value is always reduced into [0, p).
type Element struct {
	f *Field
	n *saferith.Nat
}

// Field returns the element's field.
func (e Element) Field() *Field {
	return e.f
}

// Add returns e+o.
func (e Element) Add(o Element) Element {
	return Element{
		f: e.f,
		n: new(saferith.Nat).ModAdd(e.n, o.n, e.f.mod),
	}
}

// Sub returns e-o.
func (e Element) Sub(o Element) Element {
	return Element{
		f: e.f,
		n: new(saferith.Nat).ModSub(e.n, o.n, e.f.mod),
	}
}

// Mul returns e*o.
func (e Element) Mul(o Element) Element {
	return Element{
		f: e.f,
		n: new(saferith.Nat).ModMul(e.n, o.n, e.f.mod),
	}
}

// Neg returns -e.
func (e Element) Neg() Element {
	return Element{
		f: e.f,
		n: new(saferith.Nat).ModNeg(e.n, e.f.mod),
	}
}

// Equal tests if the elements have the same value.
func (e Element) Equal(o Element) bool {
	return e.n.Eq(o.n) == 1
}

// IsZero tests if the element is zero.
func (e Element) IsZero() bool {
	return e.n.EqZero() == 1
}

// Bit returns the bit i of the element's canonical value.
func (e Element) Bit(i int) bool {
	return e.n.Big().Bit(i) != 0
}

// Bits returns the field bit length number of bits of the element,
// least significant bit first.
func (e Element) Bits() []bool {
	buf := e.Bytes()
	result := make([]bool, e.f.bitLen)
	for i := range result {
		result[i] = buf[len(buf)-1-i/8]&(1<<(i%8)) != 0
	}
	return result
}

// Bytes returns the fixed-width big-endian encoding of the element.
func (e Element) Bytes() []byte {
	return e.n.FillBytes(make([]byte, e.f.byteLen))
}

// Big returns the element value as big.Int.
func (e Element) Big() *big.Int {
	return e.n.Big()
}

// Uint64 returns the low 64 bits of the element value.
func (e Element) Uint64() uint64 {
	return e.n.Big().Uint64()
}

func (e Element) String() string {
	if e.n == nil {
		return "<nil>"
	}
	return e.n.Big().String()
}
