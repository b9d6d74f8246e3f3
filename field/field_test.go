//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package field

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func testField(t *testing.T) *Field {
	f, err := NewUint64(65519)
	require.NoError(t, err)
	return f
}

func values(f *Field, vals ...uint64) []Element {
	result := make([]Element, len(vals))
	for i, v := range vals {
		result[i] = f.FromUint64(v)
	}
	return result
}

func ints(xs []Element) []uint64 {
	result := make([]uint64, len(xs))
	for i, x := range xs {
		result[i] = x.Uint64()
	}
	return result
}

func TestNew(t *testing.T) {
	_, err := NewUint64(65520)
	require.Error(t, err)
	_, err = NewUint64(2)
	require.Error(t, err)

	f := Default()
	require.Equal(t, 128, f.BitLen())
	require.Equal(t, 16, f.ByteLen())

	f = testField(t)
	require.Equal(t, 16, f.BitLen())
	require.Equal(t, 2, f.ByteLen())
}

func TestArithmetic(t *testing.T) {
	f := testField(t)

	a := f.FromUint64(65518)
	b := f.FromUint64(3)

	require.Equal(t, uint64(2), a.Add(b).Uint64())
	require.Equal(t, uint64(65515), a.Sub(b).Uint64())
	require.Equal(t, uint64(4), b.Sub(f.FromUint64(65518)).Uint64())
	require.Equal(t, uint64(65516), a.Mul(b).Uint64())
	require.Equal(t, uint64(1), a.Neg().Uint64())
	require.True(t, f.Zero().Neg().IsZero())
	require.True(t, f.FromUint64(65519).IsZero())
	require.Equal(t, uint64(1), f.FromUint64(65520).Uint64())
	require.Equal(t, uint64(65518),
		f.FromBig(big.NewInt(-1)).Uint64())

	// Scenario A reference product.
	left := f.FromUint64(12).Add(f.FromUint64(123))
	right := f.FromUint64(11).Add(f.FromUint64(2222))
	require.Equal(t, uint64(39379), left.Mul(right).Uint64())
}

func TestBits(t *testing.T) {
	f := testField(t)

	e := f.FromUint64(0x8005)
	bits := e.Bits()
	require.Len(t, bits, 16)
	for i, bit := range bits {
		require.Equal(t, e.Bit(i), bit, "bit %d", i)
	}
	require.True(t, bits[0])
	require.False(t, bits[1])
	require.True(t, bits[2])
	require.True(t, bits[15])

	require.Equal(t, uint64(0x8005), f.Recombine(values(f, 1, 0, 1, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1)).Uint64())
}

func TestBatch(t *testing.T) {
	f := testField(t)

	xs := values(f, 1, 2, 3)
	ys := values(f, 4, 5, 6)

	ip, err := f.InnerProduct(xs, ys)
	require.NoError(t, err)
	require.Equal(t, uint64(32), ip.Uint64())

	_, err = f.InnerProduct(xs, ys[:2])
	require.ErrorIs(t, err, ErrLengthMismatch)

	ip, err = f.InnerProduct(nil, nil)
	require.NoError(t, err)
	require.True(t, ip.IsZero())

	sums, err := f.SumRows([][]Element{xs, ys, xs})
	require.NoError(t, err)
	require.Equal(t, []uint64{6, 9, 12}, ints(sums))

	_, err = f.SumRows([][]Element{xs, ys[1:]})
	require.ErrorIs(t, err, ErrLengthMismatch)

	prod, err := f.PairwiseMultiply(xs, ys)
	require.NoError(t, err)
	require.Equal(t, []uint64{4, 10, 18}, ints(prod))

	_, err = f.PairwiseMultiply(xs[1:], ys)
	require.ErrorIs(t, err, ErrLengthMismatch)

	require.Equal(t, []uint64{2, 4, 6},
		ints(f.ScalarMultiply(xs, f.FromUint64(2))))

	require.Equal(t, []uint64{1, 1, 2, 2, 3, 3}, ints(f.Stretch(xs, 2)))
	require.Empty(t, f.Stretch(nil, 3))

	cols, err := f.Transpose([][]Element{xs, ys})
	require.NoError(t, err)
	require.Len(t, cols, 3)
	require.Equal(t, []uint64{1, 4}, ints(cols[0]))
	require.Equal(t, []uint64{2, 5}, ints(cols[1]))
	require.Equal(t, []uint64{3, 6}, ints(cols[2]))

	_, err = f.Transpose([][]Element{xs, ys[:1]})
	require.ErrorIs(t, err, ErrLengthMismatch)

	require.Equal(t, []uint64{1, 2, 3, 0, 0},
		ints(f.PadWith(xs, f.Zero(), 5)))
}

func TestEncoding(t *testing.T) {
	f := testField(t)

	xs := values(f, 0, 1, 0x1234, 65518)
	data := f.Encode(xs)
	require.Equal(t, []byte{0, 0, 0, 1, 0x12, 0x34, 0xff, 0xee}, data)

	decoded, err := f.DecodeN(data, len(xs))
	require.NoError(t, err)
	for i := range xs {
		require.True(t, xs[i].Equal(decoded[i]))
	}

	_, err = f.DecodeN(data, 3)
	require.ErrorIs(t, err, ErrEncoding)

	_, err = f.Decode(data[1:])
	require.ErrorIs(t, err, ErrEncoding)

	_, err = f.FromBytes([]byte{0xff, 0xef})
	require.ErrorIs(t, err, ErrNonCanonical)
}

func TestSample(t *testing.T) {
	f := Default()

	xs, err := f.SampleN(rand.Reader, 64)
	require.NoError(t, err)
	for _, x := range xs {
		require.Equal(t, -1, x.Big().Cmp(f.Modulus()))
		require.Len(t, x.Bytes(), 16)
	}
	require.False(t, xs[0].Equal(xs[1]))
}
