//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package hash implements domain separated hashing and hash-based
// commitments.
package hash

import (
	"fmt"
	"io"

	"github.com/markkurossi/mascot/field"
	"github.com/zeebo/blake3"
)

// DigestSize defines the size of Sum output in bytes.
const DigestSize = 32

// Hash wraps the BLAKE3 hash with domain separated writes.
type Hash struct {
	h *blake3.Hasher
}

// New creates a new Hash.
func New() *Hash {
	return &Hash{
		h: blake3.New(),
	}
}

// Digest finalizes the current state and returns the extendable
// output stream.
func (hash *Hash) Digest() io.Reader {
	return hash.h.Digest()
}

// Sum returns DigestSize bytes of output for the current state.
func (hash *Hash) Sum() []byte {
	out := make([]byte, DigestSize)
	if _, err := io.ReadFull(hash.Digest(), out); err != nil {
		panic(fmt.Sprintf("hash: internal hash failure: %v", err))
	}
	return out
}

// Clone returns a copy of the hash in its current state.
func (hash *Hash) Clone() *Hash {
	return &Hash{
		h: hash.h.Clone(),
	}
}

// WriteAny writes the data values to the hash state. The supported
// types are []byte, string, int, field.Element, []field.Element, and
// WriterToWithDomain.
func (hash *Hash) WriteAny(data ...interface{}) error {
	for _, d := range data {
		var obj WriterToWithDomain
		switch t := d.(type) {
		case []byte:
			obj = &BytesWithDomain{
				TheDomain: "[]byte",
				Bytes:     t,
			}
		case string:
			obj = &BytesWithDomain{
				TheDomain: "string",
				Bytes:     []byte(t),
			}
		case int:
			v := uint64(t)
			obj = &BytesWithDomain{
				TheDomain: "int",
				Bytes: []byte{
					byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
					byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
				},
			}
		case field.Element:
			obj = &BytesWithDomain{
				TheDomain: "field.Element",
				Bytes:     t.Bytes(),
			}
		case []field.Element:
			if len(t) == 0 {
				obj = &BytesWithDomain{
					TheDomain: "[]field.Element",
				}
			} else {
				obj = &BytesWithDomain{
					TheDomain: "[]field.Element",
					Bytes:     t[0].Field().Encode(t),
				}
			}
		case WriterToWithDomain:
			obj = t
		default:
			return fmt.Errorf("hash: unsupported type %T", d)
		}
		if err := writeWithDomain(hash.h, obj); err != nil {
			return fmt.Errorf("hash: write %s: %w", obj.Domain(), err)
		}
	}
	return nil
}
