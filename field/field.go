//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package field implements arithmetic over prime fields Z/pZ.
package field

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/cronokirby/saferith"
)

var (
	// ErrLengthMismatch is returned when parallel lists have
	// different lengths.
	ErrLengthMismatch = errors.New("field: length mismatch")

	// ErrNonCanonical is returned when decoding a value that is not
	// reduced modulo the field prime.
	ErrNonCanonical = errors.New("field: non-canonical element")

	// ErrEncoding is returned when an encoded element list has an
	// invalid length.
	ErrEncoding = errors.New("field: invalid encoding")
)

// DefaultModulus is the 128-bit prime 2^128-159.
const DefaultModulus = "340282366920938463463374607431768211297"

// samplingSlack defines the number of extra bytes sampled for
// uniform reduction. It bounds the statistical distance from uniform
// by 2^-64.
const samplingSlack = 8

var defaultField *Field

func init() {
	p, _ := new(big.Int).SetString(DefaultModulus, 10)
	f, err := New(p)
	if err != nil {
		panic(err)
	}
	defaultField = f
}

// Field defines a prime field with a fixed modulus.
type Field struct {
	p       *big.Int
	mod     *saferith.Modulus
	bitLen  int
	byteLen int
	powers  []Element
}

// Default returns the default 128-bit prime field.
func Default() *Field {
	return defaultField
}

// New creates a field for the prime modulus p.
func New(p *big.Int) (*Field, error) {
	if p == nil || p.Cmp(big.NewInt(2)) <= 0 {
		return nil, fmt.Errorf("field: invalid modulus %v", p)
	}
	if !p.ProbablyPrime(20) {
		return nil, fmt.Errorf("field: modulus %v is not prime", p)
	}
	bitLen := p.BitLen()
	f := &Field{
		p:       new(big.Int).Set(p),
		mod:     saferith.ModulusFromBytes(p.Bytes()),
		bitLen:  bitLen,
		byteLen: (bitLen + 7) / 8,
	}
	f.powers = make([]Element, bitLen)
	two := f.FromUint64(2)
	acc := f.One()
	for i := range f.powers {
		f.powers[i] = acc
		acc = acc.Mul(two)
	}
	return f, nil
}

// NewUint64 creates a field for the prime modulus p.
func NewUint64(p uint64) (*Field, error) {
	return New(new(big.Int).SetUint64(p))
}

// Modulus returns a copy of the field modulus.
func (f *Field) Modulus() *big.Int {
	return new(big.Int).Set(f.p)
}

// BitLen returns the bit length of the modulus.
func (f *Field) BitLen() int {
	return f.bitLen
}

// ByteLen returns the fixed encoding width of field elements.
func (f *Field) ByteLen() int {
	return f.byteLen
}

// Equal tests if the fields have the same modulus.
func (f *Field) Equal(o *Field) bool {
	return f == o || f.p.Cmp(o.p) == 0
}

func (f *Field) String() string {
	return fmt.Sprintf("GF(%s)", f.p)
}

// Zero returns the additive identity.
func (f *Field) Zero() Element {
	return Element{
		f: f,
		n: new(saferith.Nat).SetUint64(0).Resize(f.bitLen),
	}
}

// One returns the multiplicative identity.
func (f *Field) One() Element {
	return f.FromUint64(1)
}

// FromUint64 creates an element from the value v reduced modulo p.
func (f *Field) FromUint64(v uint64) Element {
	return Element{
		f: f,
		n: new(saferith.Nat).Mod(new(saferith.Nat).SetUint64(v), f.mod),
	}
}

// FromBig creates an element from the value v reduced modulo p.
func (f *Field) FromBig(v *big.Int) Element {
	r := new(big.Int).Mod(v, f.p)
	return Element{
		f: f,
		n: new(saferith.Nat).SetBig(r, f.bitLen),
	}
}

// FromBytes decodes a fixed-width big-endian element. The value must
// be canonical, that is, smaller than the modulus.
func (f *Field) FromBytes(data []byte) (Element, error) {
	if len(data) != f.byteLen {
		return Element{}, fmt.Errorf("%w: element length %d, expected %d",
			ErrEncoding, len(data), f.byteLen)
	}
	if new(big.Int).SetBytes(data).Cmp(f.p) >= 0 {
		return Element{}, ErrNonCanonical
	}
	return Element{
		f: f,
		n: new(saferith.Nat).SetBytes(data).Resize(f.bitLen),
	}, nil
}

// Sample samples a uniformly random element from the entropy source.
func (f *Field) Sample(rand io.Reader) (Element, error) {
	buf := make([]byte, f.byteLen+samplingSlack)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return Element{}, err
	}
	return f.Reduce(buf), nil
}

// SampleN samples count random elements.
func (f *Field) SampleN(rand io.Reader, count int) ([]Element, error) {
	result := make([]Element, count)
	for i := range result {
		e, err := f.Sample(rand)
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// Reduce interprets data as a big-endian number and reduces it
// modulo p.
func (f *Field) Reduce(data []byte) Element {
	return Element{
		f: f,
		n: new(saferith.Nat).Mod(new(saferith.Nat).SetBytes(data), f.mod),
	}
}

// Encode encodes the elements as the concatenation of their
// fixed-width big-endian encodings.
func (f *Field) Encode(elements []Element) []byte {
	buf := make([]byte, len(elements)*f.byteLen)
	for i, e := range elements {
		e.n.FillBytes(buf[i*f.byteLen : (i+1)*f.byteLen])
	}
	return buf
}

// Decode decodes a list of fixed-width encoded elements.
func (f *Field) Decode(data []byte) ([]Element, error) {
	if len(data)%f.byteLen != 0 {
		return nil, fmt.Errorf("%w: data length %d not multiple of %d",
			ErrEncoding, len(data), f.byteLen)
	}
	result := make([]Element, len(data)/f.byteLen)
	for i := range result {
		e, err := f.FromBytes(data[i*f.byteLen : (i+1)*f.byteLen])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// DecodeN decodes exactly count elements from data.
func (f *Field) DecodeN(data []byte, count int) ([]Element, error) {
	if len(data) != count*f.byteLen {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d elements",
			ErrEncoding, len(data), count)
	}
	return f.Decode(data)
}
