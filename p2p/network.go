//
// Copyright (c) 2020-2025 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrClosed is returned for operations on a closed or aborted
// network.
var ErrClosed = errors.New("p2p: network closed")

var (
	_ Messenger = &Network{}
)

// DialRetryDelay defines the delay between connection attempts to a
// peer.
var DialRetryDelay = time.Second

// Network implements a fully connected peer-to-peer network between
// parties. Once any receive fails or a receive context is cancelled,
// the network is aborted: all peer connections are shut down and all
// subsequent operations fail with ErrClosed.
type Network struct {
	id       int
	log      zerolog.Logger
	m        sync.Mutex
	peers    []*Peer
	arrived  []chan struct{}
	listener net.Listener
	cause    error
}

// Peer implements a peer in the peer-to-peer network.
type Peer struct {
	id   int
	conn *Conn
}

func newNetwork(id, numParties int, log zerolog.Logger) *Network {
	nw := &Network{
		id:      id,
		log:     log.With().Str("component", "p2p").Int("party", id).Logger(),
		peers:   make([]*Peer, numParties),
		arrived: make([]chan struct{}, numParties),
	}
	for i := range nw.arrived {
		nw.arrived[i] = make(chan struct{})
	}
	return nw
}

// NewLocalNetworks creates an in-memory network between numParties
// parties. The networks are indexed by party id.
func NewLocalNetworks(numParties int) []*Network {
	result := make([]*Network, numParties)
	for i := range result {
		result[i] = newNetwork(i, numParties, zerolog.Nop())
	}
	for i := 0; i < numParties; i++ {
		for j := i + 1; j < numParties; j++ {
			ci, cj := Pipe()
			result[i].setPeer(j, ci)
			result[j].setPeer(i, cj)
		}
	}
	return result
}

// NewNetwork creates a TCP network for the party id. The network
// listens for connections at addr. The peers are added with AddPeer.
func NewNetwork(addr string, id, numParties int, log zerolog.Logger) (
	*Network, error) {

	if id < 0 || id >= numParties {
		return nil, fmt.Errorf("p2p: invalid party id %d for %d parties",
			id, numParties)
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	nw := newNetwork(id, numParties, log)
	nw.listener = listener

	go nw.acceptLoop()

	return nw, nil
}

// ID returns the party id of this network endpoint.
func (nw *Network) ID() int {
	return nw.id
}

// NumParties returns the number of parties in the network.
func (nw *Network) NumParties() int {
	return len(nw.peers)
}

// AddPeer connects the peer id at addr. The party with the larger id
// dials and the party with the smaller id waits for the inbound
// connection, so both ends agree on the connection used.
func (nw *Network) AddPeer(ctx context.Context, addr string, id int) error {
	if id < 0 || id >= len(nw.peers) || id == nw.id {
		return fmt.Errorf("p2p: invalid peer id %d", id)
	}
	if id > nw.id {
		select {
		case <-nw.arrived[id]:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for {
		nw.log.Debug().Int("peer", id).Str("addr", addr).Msg("connecting")

		var d net.Dialer
		nc, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			nw.log.Debug().Err(err).Dur("delay", DialRetryDelay).
				Msg("connect failed, retrying")
			select {
			case <-time.After(DialRetryDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		conn := NewConn(newQueuedConn(nc))
		if err := conn.SendUint32(nw.id); err != nil {
			conn.Close()
			return err
		}
		if err := conn.Flush(); err != nil {
			conn.Close()
			return err
		}
		nw.log.Debug().Int("peer", id).Str("addr", addr).Msg("connected")
		return nw.setPeer(id, conn)
	}
}

func (nw *Network) acceptLoop() {
	for {
		nc, err := nw.listener.Accept()
		if err != nil {
			nw.log.Debug().Err(err).Msg("accept loop terminated")
			return
		}
		conn := NewConn(newQueuedConn(nc))

		// Read peer ID.
		id, err := conn.ReceiveUint32()
		if err != nil {
			nw.log.Warn().Err(err).Msg("peer handshake failed")
			conn.Close()
			continue
		}
		if id <= nw.id || id >= len(nw.peers) {
			nw.log.Warn().Int("peer", id).Msg("unexpected inbound peer")
			conn.Close()
			continue
		}
		if err := nw.setPeer(id, conn); err != nil {
			nw.log.Warn().Err(err).Msg("inbound connection error")
			conn.Close()
		}
	}
}

func (nw *Network) setPeer(id int, conn *Conn) error {
	nw.m.Lock()
	defer nw.m.Unlock()

	if nw.peers[id] != nil {
		return fmt.Errorf("p2p: peer %d already connected", id)
	}
	nw.peers[id] = &Peer{
		id:   id,
		conn: conn,
	}
	close(nw.arrived[id])
	return nil
}

func (nw *Network) peer(id int) (*Peer, error) {
	if id < 0 || id >= len(nw.peers) || id == nw.id {
		return nil, fmt.Errorf("p2p: invalid peer id %d", id)
	}
	nw.m.Lock()
	defer nw.m.Unlock()

	if nw.cause != nil {
		return nil, fmt.Errorf("%w: %w", ErrClosed, nw.cause)
	}
	peer := nw.peers[id]
	if peer == nil {
		return nil, fmt.Errorf("p2p: peer %d not connected", id)
	}
	return peer, nil
}

// Send sends data to the peer.
func (nw *Network) Send(id int, data []byte) error {
	peer, err := nw.peer(id)
	if err != nil {
		return err
	}
	if err := peer.conn.SendData(data); err != nil {
		return nw.fail(fmt.Errorf("p2p: send to %d: %w", id, err))
	}
	if err := peer.conn.Flush(); err != nil {
		return nw.fail(fmt.Errorf("p2p: send to %d: %w", id, err))
	}
	return nil
}

// Receive receives the next message from the peer. If the context is
// done before the message arrives, the network is aborted.
func (nw *Network) Receive(ctx context.Context, id int) ([]byte, error) {
	peer, err := nw.peer(id)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nw.fail(fmt.Errorf("p2p: receive from %d: %w", id, err))
	}
	stop := context.AfterFunc(ctx, func() {
		nw.Abort(ctx.Err())
	})
	data, err := peer.conn.ReceiveData()
	stop()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, nw.fail(fmt.Errorf("p2p: receive from %d: %w", id, err))
	}
	return data, nil
}

func (nw *Network) fail(err error) error {
	nw.Abort(err)
	return err
}

// Abort tears down the network with the cause. All blocked and
// future operations fail.
func (nw *Network) Abort(cause error) {
	nw.m.Lock()
	if nw.cause != nil {
		nw.m.Unlock()
		return
	}
	if cause == nil {
		cause = ErrClosed
	}
	nw.cause = cause
	peers := nw.peers
	nw.m.Unlock()

	nw.log.Debug().Err(cause).Msg("network aborted")

	if nw.listener != nil {
		nw.listener.Close()
	}
	for _, peer := range peers {
		if peer != nil {
			peer.conn.Shutdown()
		}
	}
}

// Close flushes and closes all peer connections.
func (nw *Network) Close() error {
	nw.m.Lock()
	if nw.cause != nil {
		nw.m.Unlock()
		return nil
	}
	nw.cause = ErrClosed
	peers := nw.peers
	nw.m.Unlock()

	var result error
	if nw.listener != nil {
		if err := nw.listener.Close(); err != nil {
			result = err
		}
	}
	for _, peer := range peers {
		if peer == nil {
			continue
		}
		if err := peer.conn.Close(); err != nil && result == nil {
			result = err
		}
	}
	return result
}

// Stats returns the I/O stats from the network.
func (nw *Network) Stats() IOStats {
	nw.m.Lock()
	defer nw.m.Unlock()

	result := NewIOStats()
	for _, peer := range nw.peers {
		if peer != nil {
			result = result.Add(peer.conn.Stats)
		}
	}
	return result
}
