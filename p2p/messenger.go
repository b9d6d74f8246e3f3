//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/markkurossi/mascot/ot"
)

// Messenger defines the point-to-point transport between the
// parties. Parties are identified by integers 0...NumParties()-1.
// Messages between two parties are delivered reliably and in order.
type Messenger interface {
	// ID returns the identifier of this party.
	ID() int

	// NumParties returns the number of parties.
	NumParties() int

	// Send sends data to the peer. Send does not wait for the peer
	// to receive the data.
	Send(peer int, data []byte) error

	// Receive receives the next message from the peer. It blocks
	// until the message arrives or the context is done.
	Receive(ctx context.Context, peer int) ([]byte, error)
}

// Peers returns the peer ids of the messenger in ascending order.
func Peers(m Messenger) []int {
	var result []int
	for id := 0; id < m.NumParties(); id++ {
		if id != m.ID() {
			result = append(result, id)
		}
	}
	return result
}

// SendToAll sends data to all peers. The data is not delivered to
// the sender itself.
func SendToAll(m Messenger, data []byte) error {
	for _, peer := range Peers(m) {
		if err := m.Send(peer, data); err != nil {
			return err
		}
	}
	return nil
}

// ReceiveFromAll receives one message from each peer in ascending
// peer id order. The result is indexed by party id and the caller's
// own slot is nil.
func ReceiveFromAll(ctx context.Context, m Messenger) ([][]byte, error) {
	result := make([][]byte, m.NumParties())
	for _, peer := range Peers(m) {
		data, err := m.Receive(ctx, peer)
		if err != nil {
			return nil, err
		}
		result[peer] = data
	}
	return result, nil
}

var (
	_ ot.IO = &MessengerIO{}
)

// MessengerIO implements the ot.IO interface over a messenger
// channel to one peer. Each SendData and SendUint32 call is one
// message. Receives block under the context set for the IO.
type MessengerIO struct {
	ctx  context.Context
	m    Messenger
	peer int
}

// PeerIO creates a MessengerIO for the peer using the context ctx.
func PeerIO(ctx context.Context, m Messenger, peer int) *MessengerIO {
	return &MessengerIO{
		ctx:  ctx,
		m:    m,
		peer: peer,
	}
}

// SetContext sets the context for subsequent receives.
func (io *MessengerIO) SetContext(ctx context.Context) {
	io.ctx = ctx
}

func (io *MessengerIO) SendData(val []byte) error {
	return io.m.Send(io.peer, val)
}

func (io *MessengerIO) SendUint32(val int) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(val))
	return io.m.Send(io.peer, buf[:])
}

func (io *MessengerIO) Flush() error {
	return nil
}

func (io *MessengerIO) ReceiveData() ([]byte, error) {
	return io.m.Receive(io.ctx, io.peer)
}

func (io *MessengerIO) ReceiveUint32() (int, error) {
	data, err := io.m.Receive(io.ctx, io.peer)
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("p2p: invalid uint32 message length %d",
			len(data))
	}
	return int(binary.BigEndian.Uint32(data)), nil
}
