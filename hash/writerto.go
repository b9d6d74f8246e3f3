//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package hash

import (
	"encoding/binary"
	"io"
)

// WriterToWithDomain is a type that writes itself and names its
// domain. The domain separates values of different types that have
// the same byte representation.
type WriterToWithDomain interface {
	io.WriterTo

	// Domain returns a context string unique to each implementation.
	Domain() string
}

// writeWithDomain writes the object as the length prefixed domain
// followed by the length prefixed data.
func writeWithDomain(w io.Writer, object WriterToWithDomain) error {
	domain := object.Domain()

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(domain)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, domain); err != nil {
		return err
	}

	cw := &countingWriter{}
	if _, err := object.WriteTo(cw); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(hdr[:], uint32(cw.n))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := object.WriteTo(w)
	return err
}

type countingWriter struct {
	n int
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	cw.n += len(p)
	return len(p), nil
}

// BytesWithDomain annotates a byte slice with a domain.
type BytesWithDomain struct {
	TheDomain string
	Bytes     []byte
}

// WriteTo implements io.WriterTo.
func (b *BytesWithDomain) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Bytes)
	return int64(n), err
}

// Domain implements WriterToWithDomain.
func (b *BytesWithDomain) Domain() string {
	return b.TheDomain
}
