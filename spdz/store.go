//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/markkurossi/mascot/field"
)

// TupleTypeTriple identifies multiplication triple lists.
const TupleTypeTriple = "MULTIPLICATION_TRIPLE_GFP"

// TupleList defines the serialized form of one party's tuples.
type TupleList struct {
	TupleType   string  `cbor:"1,keyasint"`
	Modulus     []byte  `cbor:"2,keyasint"`
	ElementSize int     `cbor:"3,keyasint"`
	Tuples      []Tuple `cbor:"4,keyasint"`
}

// Tuple defines the serialized shares of one tuple.
type Tuple struct {
	Shares []ShareData `cbor:"1,keyasint"`
}

// ShareData defines a serialized share.
type ShareData struct {
	Value []byte `cbor:"1,keyasint"`
	Mac   []byte `cbor:"2,keyasint"`
}

func encodeShare(s Share) ShareData {
	return ShareData{
		Value: s.Value.Bytes(),
		Mac:   s.Mac.Bytes(),
	}
}

func decodeShare(f *field.Field, data ShareData) (Share, error) {
	value, err := f.FromBytes(data.Value)
	if err != nil {
		return Share{}, err
	}
	mac, err := f.FromBytes(data.Mac)
	if err != nil {
		return Share{}, err
	}
	return Share{
		Value: value,
		Mac:   mac,
	}, nil
}

// WriteTriples writes the triples of field f to w.
func WriteTriples(w io.Writer, f *field.Field, triples []Triple) error {
	list := TupleList{
		TupleType:   TupleTypeTriple,
		Modulus:     f.Modulus().Bytes(),
		ElementSize: f.ByteLen(),
		Tuples:      make([]Tuple, len(triples)),
	}
	for i, t := range triples {
		list.Tuples[i] = Tuple{
			Shares: []ShareData{
				encodeShare(t.A),
				encodeShare(t.B),
				encodeShare(t.C),
			},
		}
	}
	return cbor.NewEncoder(w).Encode(&list)
}

// ReadTriples reads triples of field f from r.
func ReadTriples(r io.Reader, f *field.Field) ([]Triple, error) {
	var list TupleList
	if err := cbor.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("spdz: decode triples: %w", err)
	}
	if list.TupleType != TupleTypeTriple {
		return nil, fmt.Errorf("spdz: unexpected tuple type %q", list.TupleType)
	}
	if !bytes.Equal(list.Modulus, f.Modulus().Bytes()) ||
		list.ElementSize != f.ByteLen() {
		return nil, fmt.Errorf("spdz: triples for different field")
	}
	result := make([]Triple, len(list.Tuples))
	for i, tuple := range list.Tuples {
		if len(tuple.Shares) != 3 {
			return nil, fmt.Errorf("spdz: triple %d: invalid share count %d",
				i, len(tuple.Shares))
		}
		var shares [3]Share
		for j, data := range tuple.Shares {
			s, err := decodeShare(f, data)
			if err != nil {
				return nil, fmt.Errorf("spdz: triple %d: %w", i, err)
			}
			shares[j] = s
		}
		result[i] = Triple{
			A: shares[0],
			B: shares[1],
			C: shares[2],
		}
	}
	return result, nil
}
