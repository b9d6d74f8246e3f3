//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLocalNetwork(t *testing.T) {
	ctx := context.Background()
	nws := NewLocalNetworks(3)

	for _, nw := range nws {
		require.NoError(t, SendToAll(nw, []byte{byte(nw.ID())}))
		require.NoError(t, SendToAll(nw, []byte{byte(10 + nw.ID())}))
	}
	for _, nw := range nws {
		require.Equal(t, 3, nw.NumParties())
		for round := 0; round < 2; round++ {
			msgs, err := ReceiveFromAll(ctx, nw)
			require.NoError(t, err)
			require.Len(t, msgs, 3)
			for id, msg := range msgs {
				if id == nw.ID() {
					require.Nil(t, msg)
				} else {
					require.Equal(t, []byte{byte(round*10 + id)}, msg)
				}
			}
		}
	}
	for _, nw := range nws {
		require.Equal(t, uint64(2*2*5), nw.Stats().Sent.Load())
	}

	require.Error(t, nws[0].Send(0, nil))
	require.Error(t, nws[0].Send(3, nil))
}

func TestCancelReceive(t *testing.T) {
	nws := NewLocalNetworks(2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		_, err := nws[0].Receive(ctx, 1)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	err := <-done
	require.ErrorIs(t, err, context.Canceled)

	// The network is torn down.
	_, err = nws[0].Receive(context.Background(), 1)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, nws[0].Send(1, []byte{1}), ErrClosed)

	// The peer sees the connection closing.
	_, err = nws[1].Receive(context.Background(), 0)
	require.Error(t, err)
}

func TestPeerIO(t *testing.T) {
	ctx := context.Background()
	nws := NewLocalNetworks(2)

	io0 := PeerIO(ctx, nws[0], 1)
	io1 := PeerIO(ctx, nws[1], 0)

	require.NoError(t, io0.SendUint32(0xdeadbeef))
	require.NoError(t, io0.SendData([]byte("hello")))
	require.NoError(t, io0.Flush())

	v, err := io1.ReceiveUint32()
	require.NoError(t, err)
	require.Equal(t, 0xdeadbeef, v)

	data, err := io1.ReceiveData()
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)

	require.NoError(t, io1.SendData([]byte{1, 2}))
	_, err = io0.ReceiveUint32()
	require.Error(t, err)
}

func freeAddrs(t *testing.T, n int) []string {
	var result []string
	for i := 0; i < n; i++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		result = append(result, l.Addr().String())
		require.NoError(t, l.Close())
	}
	return result
}

func TestTCPNetwork(t *testing.T) {
	const n = 3

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	addrs := freeAddrs(t, n)
	nws := make([]*Network, n)
	for id := range nws {
		nw, err := NewNetwork(addrs[id], id, n, zerolog.Nop())
		require.NoError(t, err)
		nws[id] = nw
	}

	var g errgroup.Group
	for id := range nws {
		nw := nws[id]
		g.Go(func() error {
			for peer, addr := range addrs {
				if peer == nw.ID() {
					continue
				}
				if err := nw.AddPeer(ctx, addr, peer); err != nil {
					return err
				}
			}
			msg := []byte(fmt.Sprintf("hello from %d", nw.ID()))
			if err := SendToAll(nw, msg); err != nil {
				return err
			}
			msgs, err := ReceiveFromAll(ctx, nw)
			if err != nil {
				return err
			}
			for peer, msg := range msgs {
				if peer == nw.ID() {
					continue
				}
				if string(msg) != fmt.Sprintf("hello from %d", peer) {
					return fmt.Errorf("party %d: unexpected message %q",
						nw.ID(), msg)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, nw := range nws {
		require.NoError(t, nw.Close())
	}
}
