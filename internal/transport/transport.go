// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package transport implements the body.Transport collaborator (spec.md
// §6) over a net.Conn. The read-deadline-per-read and buffer-reuse shape is
// grounded on gorox's net_tcpx.go Conn abstraction (SetReadDeadline before
// every Recv, a connection-owned growable input buffer); unlike the
// teacher's synchronous stream.read, each read here runs on its own
// goroutine and reports through a channel, since Pump needs a cancelable
// await point (spec.md §5) that a bare blocking net.Conn.Read cannot offer.
package transport

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"
)

// Conn implements body.Transport over a net.Conn.
type Conn struct {
	conn net.Conn
	buf  []byte

	readDeadline time.Duration

	pending     chan readOutcome
	readPending bool

	canceled chan struct{}
}

type readOutcome struct {
	n   int
	err error
}

// New wraps conn. bufSize sizes the reusable read buffer; readDeadline, if
// positive, is applied before every underlying Read call, mirroring
// gorox's per-recv SetReadDeadline.
func New(conn net.Conn, bufSize int, readDeadline time.Duration) *Conn {
	return &Conn{
		conn:         conn,
		buf:          make([]byte, bufSize),
		readDeadline: readDeadline,
		pending:      make(chan readOutcome, 1),
		canceled:     make(chan struct{}, 1),
	}
}

// ReadAsync implements body.Transport. It returns a slice into the
// connection's own reusable buffer; callers must finish using it before the
// next ReadAsync call.
func (c *Conn) ReadAsync(ctx context.Context) (buf []byte, isCompleted bool, err error) {
	if !c.readPending {
		c.readPending = true
		go c.readOnce()
	}

	select {
	case outcome := <-c.pending:
		c.readPending = false
		if outcome.err != nil {
			if errors.Is(outcome.err, io.EOF) {
				return nil, true, nil
			}
			return nil, false, outcome.err
		}
		return c.buf[:outcome.n], false, nil
	case <-c.canceled:
		c.readPending = false
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (c *Conn) readOnce() {
	if c.readDeadline > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readDeadline))
	}
	n, err := c.conn.Read(c.buf)
	c.pending <- readOutcome{n: n, err: err}
}

// AdvanceTo is a no-op for Conn: the underlying buffer is fully owned by
// this request's single in-flight read, so there is nothing to retain past
// examined the way a multi-segment ring buffer would need to.
func (c *Conn) AdvanceTo(consumed, examined int) {}

// CancelPendingRead wakes a read in progress without delivering bytes.
func (c *Conn) CancelPendingRead() {
	select {
	case c.canceled <- struct{}{}:
	default:
	}
}

// OnInputOrOutputCompleted closes the read half, signaling the peer that no
// further request data will be consumed.
func (c *Conn) OnInputOrOutputCompleted() {
	if closer, ok := c.conn.(interface{ CloseRead() error }); ok {
		_ = closer.CloseRead()
	}
}
