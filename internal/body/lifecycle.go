// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Lifecycle orchestrates ChunkParser, BodyPipe, Pump and BodyReader as one
// per-request unit, matching spec.md §4.5's Constructed/Started/Completed/
// Stopped state machine. The opportunistic non-blocking drain before
// falling back to an async drain loop (spec.md §9) is implemented literally
// as two passes rather than folded into one loop, so the shortcut stays
// visible rather than buried in a condition.

package body

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hemichunk/chunkedbody/internal/logging"
)

// Lifecycle owns exactly one request body's ChunkParser, BodyPipe, Pump and
// BodyReader. It is not safe for concurrent Start/Stop/Consume calls; the
// outer connection loop serializes them per spec.md §3.
type Lifecycle struct {
	ctx context.Context

	transport Transport
	conn      ConnCtx
	timeout   TimeoutController
	logger    logging.Logger

	parser *ChunkParser
	pipe   *BodyPipe
	pump   *Pump
	reader *BodyReader

	startOnce sync.Once
	started   bool
	mu        sync.Mutex
}

// NewLifecycle constructs a Lifecycle for one request. maxBodySize of 0
// disables the body-size limit. ctx bounds the pump's transport reads and
// pipe flushes; the caller is expected to derive it from the connection's
// own context so Stop's cancellation path and ctx cancellation agree.
func NewLifecycle(ctx context.Context, transport Transport, trailers TrailerParser, timeout TimeoutController, conn ConnCtx, continuer PreContinueSignaler, logger logging.Logger, maxBodySize int64) *Lifecycle {
	parser := NewChunkParser(maxBodySize, trailers)
	pipe := NewBodyPipe()
	pump := NewPump(transport, parser, pipe, timeout, conn, continuer, logger)

	lc := &Lifecycle{
		ctx:       ctx,
		transport: transport,
		conn:      conn,
		timeout:   timeout,
		logger:    logger,
		parser:    parser,
		pipe:      pipe,
		pump:      pump,
	}
	lc.reader = NewBodyReader(pipe, timeout, lc.start)
	return lc
}

// BodyReader returns the handler-facing read surface. Its first TryRead or
// ReadAsync call transitions this Lifecycle to Started, exactly once.
func (lc *Lifecycle) BodyReader() *BodyReader { return lc.reader }

func (lc *Lifecycle) start() {
	lc.startOnce.Do(func() {
		lc.mu.Lock()
		lc.started = true
		lc.mu.Unlock()
		lc.conn.MarkStartedConsumingRequestBody()
		go lc.pump.Run(lc.ctx)
	})
}

// Stop implements spec.md §4.5 Stop. If the body was never read, it is a
// no-op. Otherwise it completes the reader side, then either observes that
// the pump already terminated or cancels it and waits.
func (lc *Lifecycle) Stop() error {
	lc.mu.Lock()
	started := lc.started
	lc.mu.Unlock()
	if !started {
		return nil
	}

	lc.reader.Complete(nil)

	select {
	case <-lc.pump.Done():
	default:
		lc.pump.Cancel()
		<-lc.pump.Done()
	}

	err := lc.pump.Err()
	lc.pipe.Reset()
	return err
}

// PipelinedRemainder returns bytes belonging to the next request already
// present in the transport's read window when this body completed, per
// SUPPLEMENTED FEATURES #1. Valid only after the pump has finished with no
// error.
func (lc *Lifecycle) PipelinedRemainder() []byte { return lc.pump.Remainder() }

// Consume implements spec.md §4.5 Consume (drain): a handler returned
// without fully reading the body, so the connection loop must discard the
// remainder before it can reuse the connection.
func (lc *Lifecycle) Consume(drainTimeout time.Duration) error {
	// Opportunistic non-blocking drain first: if the pump has already
	// buffered everything (or completed), this finishes without ever
	// installing a timeout. Preserve this shortcut exactly (spec.md §9).
	for {
		data, isCompleted, err := lc.reader.TryRead()
		if err != nil {
			return lc.handleDrainError(err)
		}
		if len(data) > 0 {
			lc.reader.AdvanceTo(len(data))
		}
		if isCompleted {
			return nil
		}
		if len(data) == 0 {
			break
		}
	}

	lc.timeout.SetTimeout(drainTimeout, "drain")
	defer lc.timeout.CancelTimeout()

	drainCtx, cancel := context.WithTimeout(lc.ctx, drainTimeout)
	defer cancel()

	for {
		data, isCompleted, err := lc.reader.ReadAsync(drainCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrConnectionAborted
		}
		if err != nil {
			return lc.handleDrainError(err)
		}
		if len(data) > 0 {
			lc.reader.AdvanceTo(len(data))
		}
		if isCompleted {
			return nil
		}
	}
}

func (lc *Lifecycle) handleDrainError(err error) error {
	switch {
	case errors.Is(err, ErrBadChunkSizeData), errors.Is(err, ErrBadChunkSuffix), errors.Is(err, ErrMaxBodySizeExceeded):
		lc.conn.SetBadRequestState(err)
	case errors.Is(err, ErrConnectionAborted):
		if lc.logger != nil {
			lc.logger.Warn("drain timed out on connection abort",
				logging.F("trace_id", lc.conn.TraceID()),
				logging.F("error", err.Error()),
			)
		}
	}
	return err
}
