//
// io.go
//
// Copyright (c) 2023-2025 Markku Rossi
//
// All rights reserved.

package ot

import (
	"crypto/elliptic"
	"math/big"
)

// IO defines an I/O interface to communicate between peers.
type IO interface {
	// SendData sends binary data.
	SendData(val []byte) error

	// SendUint32 sends an uint32 value.
	SendUint32(val int) error

	// Flush flushed any pending data in the connection.
	Flush() error

	// ReceiveData receives binary data.
	ReceiveData() ([]byte, error)

	// ReceiveUint32 receives an uint32 value.
	ReceiveUint32() (int, error)
}

// SendString sends a string value.
func SendString(io IO, str string) error {
	return io.SendData([]byte(str))
}

// ReceiveString receives a string value.
func ReceiveString(io IO) (string, error) {
	data, err := io.ReceiveData()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SendBigInt sends the big-endian bytes of the non-negative v.
func SendBigInt(io IO, v *big.Int) error {
	return io.SendData(v.Bytes())
}

// ReceiveBigInt receives a big.Int from the connection.
func ReceiveBigInt(io IO) (*big.Int, error) {
	data, err := io.ReceiveData()
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(data), nil
}

// SendPoint sends the affine coordinates of a curve point.
func SendPoint(io IO, x, y *big.Int) error {
	if err := SendBigInt(io, x); err != nil {
		return err
	}
	return SendBigInt(io, y)
}

// ReceivePoint receives a point and verifies that it is on the curve.
func ReceivePoint(io IO, curve elliptic.Curve) (*big.Int, *big.Int, error) {
	x, err := ReceiveBigInt(io)
	if err != nil {
		return nil, nil, err
	}
	y, err := ReceiveBigInt(io)
	if err != nil {
		return nil, nil, err
	}
	if !curve.IsOnCurve(x, y) {
		return nil, nil, ErrInvalidPoint
	}
	return x, y, nil
}
