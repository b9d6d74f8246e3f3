//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package field

import (
	"fmt"
)

// Sum returns the sum of the elements.
func (f *Field) Sum(xs []Element) Element {
	sum := f.Zero()
	for _, x := range xs {
		sum = sum.Add(x)
	}
	return sum
}

// InnerProduct returns Σ xs[i]*ys[i].
func (f *Field) InnerProduct(xs, ys []Element) (Element, error) {
	if len(xs) != len(ys) {
		return Element{}, fmt.Errorf("%w: inner product of %d and %d",
			ErrLengthMismatch, len(xs), len(ys))
	}
	sum := f.Zero()
	for i := range xs {
		sum = sum.Add(xs[i].Mul(ys[i]))
	}
	return sum, nil
}

// SumRows returns the column-wise sum of the rows.
func (f *Field) SumRows(rows [][]Element) ([]Element, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	result := make([]Element, len(rows[0]))
	for i := range result {
		result[i] = f.Zero()
	}
	for _, row := range rows {
		if len(row) != len(result) {
			return nil, fmt.Errorf("%w: row length %d, expected %d",
				ErrLengthMismatch, len(row), len(result))
		}
		for i, e := range row {
			result[i] = result[i].Add(e)
		}
	}
	return result, nil
}

// AddPairwise returns the elementwise sum xs[i]+ys[i].
func (f *Field) AddPairwise(xs, ys []Element) ([]Element, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: add %d and %d",
			ErrLengthMismatch, len(xs), len(ys))
	}
	result := make([]Element, len(xs))
	for i := range xs {
		result[i] = xs[i].Add(ys[i])
	}
	return result, nil
}

// ScalarMultiply returns xs[i]*k.
func (f *Field) ScalarMultiply(xs []Element, k Element) []Element {
	result := make([]Element, len(xs))
	for i, x := range xs {
		result[i] = x.Mul(k)
	}
	return result
}

// PairwiseMultiply returns xs[i]*ys[i].
func (f *Field) PairwiseMultiply(xs, ys []Element) ([]Element, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: multiply %d and %d",
			ErrLengthMismatch, len(xs), len(ys))
	}
	result := make([]Element, len(xs))
	for i := range xs {
		result[i] = xs[i].Mul(ys[i])
	}
	return result, nil
}

// Stretch repeats each element of xs n times contiguously.
func (f *Field) Stretch(xs []Element, n int) []Element {
	result := make([]Element, 0, len(xs)*n)
	for _, x := range xs {
		for j := 0; j < n; j++ {
			result = append(result, x)
		}
	}
	return result
}

// Transpose converts the row-major matrix into column-major order.
func (f *Field) Transpose(rows [][]Element) ([][]Element, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	width := len(rows[0])
	result := make([][]Element, width)
	for i := range result {
		result[i] = make([]Element, len(rows))
	}
	for r, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d length %d, expected %d",
				ErrLengthMismatch, r, len(row), width)
		}
		for c, e := range row {
			result[c][r] = e
		}
	}
	return result, nil
}

// PadWith extends xs with copies of pad to the length n.
func (f *Field) PadWith(xs []Element, pad Element, n int) []Element {
	result := make([]Element, 0, n)
	result = append(result, xs...)
	for len(result) < n {
		result = append(result, pad)
	}
	return result
}

// Recombine returns Σ 2^k * xs[k]. The argument must have at most
// BitLen elements.
func (f *Field) Recombine(xs []Element) Element {
	sum := f.Zero()
	for k, x := range xs {
		sum = sum.Add(f.powers[k].Mul(x))
	}
	return sum
}
