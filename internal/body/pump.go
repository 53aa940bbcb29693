// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Pump is the long-lived task of spec.md §4.3. Its dual-await shape — a
// suspending transport read, then a suspending pipe flush — is grounded on
// gorox's TCPXReverseProxy (net_tcpx.go): that function couples one
// goroutine's blocking reads to another side's blocking writes through a
// channel hand-off. Pump collapses the two TCPXReverseProxy goroutines into
// one, since here there is only one direction (inbound) and one consumer
// (BodyPipe) rather than two independently-paced sockets.

package body

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/hemichunk/chunkedbody/internal/logging"
)

// Pump drives a ChunkParser over a Transport's byte stream into a BodyPipe.
// It is constructed once per request by Lifecycle and run exactly once.
type Pump struct {
	transport Transport
	parser    *ChunkParser
	pipe      *BodyPipe
	timeout   TimeoutController
	conn      ConnCtx
	continuer PreContinueSignaler
	logger    logging.Logger

	canceled chan struct{}
	done     chan struct{}
	err      error

	// remainder holds the bytes past the parser's consumed cursor at the
	// moment it reached Complete: the start of the next pipelined request
	// already sitting in the transport's current read window. See
	// SUPPLEMENTED FEATURES #1.
	remainder []byte
}

// NewPump constructs a Pump. continuer may be nil if the caller never needs
// a 100-continue signal (e.g. tests). logger may be nil, in which case Pump
// logs nothing.
func NewPump(transport Transport, parser *ChunkParser, pipe *BodyPipe, timeout TimeoutController, conn ConnCtx, continuer PreContinueSignaler, logger logging.Logger) *Pump {
	return &Pump{
		transport: transport,
		parser:    parser,
		pipe:      pipe,
		timeout:   timeout,
		conn:      conn,
		continuer: continuer,
		logger:    logger,
		canceled:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run executes the pump loop to completion. It is meant to be called as
// `go pump.Run(ctx)` by Lifecycle's start hook; Done and Err report the outcome.
func (p *Pump) Run(ctx context.Context) {
	defer close(p.done)

	finalErr := p.loop(ctx)
	p.err = finalErr

	if finalErr != nil && p.logger != nil {
		p.logger.Error("chunked body pump terminated with error",
			logging.F("trace_id", p.conn.TraceID()),
			logging.F("error", finalErr.Error()),
		)
	}

	var wrapped error
	if finalErr != nil {
		wrapped = errors.WithStack(finalErr)
	}
	p.pipe.Complete(wrapped)
}

func (p *Pump) loop(ctx context.Context) error {
	sink := pipeSink{p.pipe}
	firstRead := true

	for {
		if p.timeout.RequestTimedOut() {
			return ErrRequestBodyTimeout
		}
		select {
		case <-p.canceled:
			return nil
		default:
		}

		buf, isCompleted, synchronous, err := p.readOne(ctx, firstRead)
		firstRead = false
		if err != nil {
			return errors.Wrap(err, "transport read failed")
		}
		_ = synchronous

		select {
		case <-p.canceled:
			return nil
		default:
		}

		var (
			done              bool
			consumed, examined int
			perr              error
		)
		if len(buf) > 0 {
			done, consumed, examined, perr = p.parser.Parse(buf, sink)
			if perr != nil {
				p.transport.AdvanceTo(consumed, examined)
				return perr
			}
			if flushErr := p.pipe.Flush(ctx); flushErr != nil {
				p.transport.AdvanceTo(consumed, examined)
				return flushErr
			}
		} else {
			done = p.parser.Done()
		}

		if done {
			if consumed < len(buf) {
				p.remainder = append([]byte(nil), buf[consumed:]...)
			}
			p.transport.AdvanceTo(consumed, examined)
			return nil
		}

		if isCompleted {
			p.transport.AdvanceTo(consumed, examined)
			p.transport.OnInputOrOutputCompleted()
			return ErrUnexpectedEndOfRequestBody
		}

		p.transport.AdvanceTo(consumed, examined)
	}
}

// readOne issues one transport read, signaling 100-continue exactly once if
// this is the first read and it does not complete immediately. The
// select-with-default probe is a best-effort synchronicity check: it only
// needs to distinguish "data was already sitting in the transport's buffer"
// from "we had to wait", not provide a hard real-time guarantee.
func (p *Pump) readOne(ctx context.Context, firstRead bool) (buf []byte, isCompleted bool, synchronous bool, err error) {
	if !firstRead || p.continuer == nil {
		buf, isCompleted, err = p.transport.ReadAsync(ctx)
		return buf, isCompleted, true, err
	}

	type result struct {
		buf         []byte
		isCompleted bool
		err         error
	}
	resultCh := make(chan result, 1)
	go func() {
		b, c, e := p.transport.ReadAsync(ctx)
		resultCh <- result{b, c, e}
	}()

	select {
	case r := <-resultCh:
		return r.buf, r.isCompleted, true, r.err
	default:
	}

	p.continuer.TryProduceContinue()
	r := <-resultCh
	return r.buf, r.isCompleted, false, r.err
}

// Cancel requests that the pump exit at its next loop boundary (spec.md §5
// Cancellation). It also cancels any transport read in progress, which is
// the authoritative wake — the canceled channel is a best-effort hint.
func (p *Pump) Cancel() {
	select {
	case <-p.canceled:
	default:
		close(p.canceled)
	}
	p.transport.CancelPendingRead()
}

// Done reports the channel closed when Run returns.
func (p *Pump) Done() <-chan struct{} { return p.done }

// Err returns the pump's terminal error, valid only after Done is closed.
func (p *Pump) Err() error { return p.err }

// Remainder returns bytes belonging to the next pipelined request that were
// already sitting in the transport's read window when the body completed.
// Valid only after Done is closed with a nil Err.
func (p *Pump) Remainder() []byte { return p.remainder }

// pipeSink adapts BodyPipe to io.Writer so ChunkParser.Parse can write
// chunk-data directly into it without an intermediate buffer.
type pipeSink struct {
	pipe *BodyPipe
}

func (s pipeSink) Write(b []byte) (int, error) {
	s.pipe.Write(b)
	return len(b), nil
}

var _ io.Writer = pipeSink{}
