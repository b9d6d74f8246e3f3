//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"bytes"
	"io"
	"net"
	"sync"
)

// Pipe implements the Conn interface as a bidirectional communication
// pipe. Anything send to the first endpoint can be received from the
// second and vice versa. Writes are buffered without bound so a
// sender never waits for the receiver.
func Pipe() (*Conn, *Conn) {
	b0 := newBuffer()
	b1 := newBuffer()

	return NewConn(&pipe{r: b0, w: b1}), NewConn(&pipe{r: b1, w: b0})
}

type pipe struct {
	r *buffer
	w *buffer
}

func (p *pipe) Close() error {
	p.r.Abort()
	p.w.Abort()
	return nil
}

func (p *pipe) Read(data []byte) (n int, err error) {
	return p.r.Read(data)
}

func (p *pipe) Write(data []byte) (n int, err error) {
	return p.w.Write(data)
}

// buffer implements an unbounded byte queue with a blocking reader.
type buffer struct {
	m       sync.Mutex
	c       *sync.Cond
	data    bytes.Buffer
	closed  bool
	aborted bool
}

func newBuffer() *buffer {
	b := new(buffer)
	b.c = sync.NewCond(&b.m)
	return b
}

func (b *buffer) Write(data []byte) (int, error) {
	b.m.Lock()
	defer b.m.Unlock()

	if b.closed || b.aborted {
		return 0, io.ErrClosedPipe
	}
	b.data.Write(data)
	b.c.Broadcast()

	return len(data), nil
}

func (b *buffer) Read(data []byte) (int, error) {
	b.m.Lock()
	defer b.m.Unlock()

	for b.data.Len() == 0 && !b.closed && !b.aborted {
		b.c.Wait()
	}
	if b.aborted {
		return 0, io.ErrClosedPipe
	}
	if b.data.Len() == 0 {
		return 0, io.EOF
	}
	return b.data.Read(data)
}

// Close closes the buffer for writing. The reader receives the
// pending data and then io.EOF.
func (b *buffer) Close() {
	b.m.Lock()
	b.closed = true
	b.c.Broadcast()
	b.m.Unlock()
}

// Abort discards pending data and fails all reads and writes.
func (b *buffer) Abort() {
	b.m.Lock()
	b.aborted = true
	b.data.Reset()
	b.c.Broadcast()
	b.m.Unlock()
}

// queuedConn decouples writes to a network connection from the peer's
// reading: writes are queued and a background goroutine drains the
// queue to the connection.
type queuedConn struct {
	net.Conn
	q    *buffer
	done chan struct{}
}

func newQueuedConn(nc net.Conn) *queuedConn {
	c := &queuedConn{
		Conn: nc,
		q:    newBuffer(),
		done: make(chan struct{}),
	}
	go c.drain()
	return c
}

func (c *queuedConn) drain() {
	defer close(c.done)

	buf := make([]byte, writeBufSize)
	for {
		n, err := c.q.Read(buf)
		if err != nil {
			return
		}
		if _, err := c.Conn.Write(buf[:n]); err != nil {
			c.q.Abort()
			return
		}
	}
}

func (c *queuedConn) Write(data []byte) (int, error) {
	return c.q.Write(data)
}

// Close sends all queued data and closes the connection.
func (c *queuedConn) Close() error {
	c.q.Close()
	<-c.done
	return c.Conn.Close()
}

// Abort closes the connection without sending queued data.
func (c *queuedConn) Abort() error {
	c.q.Abort()
	return c.Conn.Close()
}
