// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package body

import (
	"context"
	"time"
)

// Transport is the read side of the inbound connection, named only at its
// interface per spec.md §6. The outer HTTP/1 connection loop (out of scope
// here) supplies the concrete implementation.
type Transport interface {
	// ReadAsync returns the next available bytes, retained in the caller's
	// window until AdvanceTo releases them. isCompleted reports that no
	// further bytes will ever arrive on this connection.
	ReadAsync(ctx context.Context) (buf []byte, isCompleted bool, err error)
	// AdvanceTo releases bytes up to consumed and informs the transport
	// that it should not signal new data until bytes past examined arrive.
	AdvanceTo(consumed, examined int)
	// CancelPendingRead wakes a read in progress without delivering bytes.
	CancelPendingRead()
	// OnInputOrOutputCompleted notifies the transport that the request
	// side of the connection has reached a terminal state.
	OnInputOrOutputCompleted()
}

// TrailerParser parses trailer header fields into the same window ChunkParser
// is scanning, reporting its own consumed/examined cursors exactly like
// ChunkParser itself (spec.md §4.1 TrailerHeaders, §6). consumed and examined
// are relative to the start of buf.
type TrailerParser interface {
	ParseTrailers(buf []byte) (done bool, consumed, examined int, err error)
}

// TimeoutController is the per-request timeout collaborator of spec.md §6.
type TimeoutController interface {
	SetTimeout(d time.Duration, reason string)
	CancelTimeout()
	StartTimingRead()
	StopTimingRead()
	BytesRead(delta int64)
	RequestTimedOut() bool
}

// ConnCtx is the connection-context collaborator of spec.md §6: keep-alive
// policy, bad-request signaling, and identifiers used only for logging.
type ConnCtx interface {
	KeepAlive() bool
	SetBadRequestState(err error)
	HasStartedConsumingRequestBody() bool
	MarkStartedConsumingRequestBody()
	TraceID() string
}

// PreContinueSignaler is invoked once when the first transport read does not
// complete synchronously (spec.md §4.3, §5 ordering guarantee 2).
type PreContinueSignaler interface {
	TryProduceContinue()
}
