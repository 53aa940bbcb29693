// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package connctx implements the ConnCtx collaborator (spec.md §6),
// grounded on gorox's httpIn_/httpConn keepAlive tri-state and
// MakeTempName identifier generation (web_http.go, mix_general.go).
// Trace identifiers use github.com/rs/xid instead of gorox's Unix-time-plus-
// counter temp names, since this repo's logging attaches a structured
// trace_id field to every line rather than embedding a name in a file path.
package connctx

import (
	"sync"

	"github.com/rs/xid"
)

// Ctx implements body.ConnCtx for one connection's in-flight request.
type Ctx struct {
	mu sync.Mutex

	keepAlive bool
	badReq    error
	started   bool

	traceID string
}

// New constructs a Ctx. keepAlive is the connection-level keep-alive policy
// the caller chose for this request; internal/server1 passes its configured
// KeepAliveDefault.
func New(keepAlive bool) *Ctx {
	return &Ctx{keepAlive: keepAlive, traceID: xid.New().String()}
}

// KeepAlive reports the connection-level keep-alive policy in effect when
// this Ctx was constructed.
func (c *Ctx) KeepAlive() bool { return c.keepAlive }

// SetBadRequestState records that this connection saw a malformed request
// and must not be reused, per spec.md §4.5 Consume.
func (c *Ctx) SetBadRequestState(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.badReq == nil {
		c.badReq = err
	}
}

// BadRequestErr returns the error recorded by SetBadRequestState, or nil.
func (c *Ctx) BadRequestErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.badReq
}

// HasStartedConsumingRequestBody reports whether Lifecycle.start has fired
// for this request.
func (c *Ctx) HasStartedConsumingRequestBody() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// MarkStartedConsumingRequestBody is called once by Lifecycle.start.
func (c *Ctx) MarkStartedConsumingRequestBody() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
}

// TraceID returns this request's identifier for log correlation.
func (c *Ctx) TraceID() string { return c.traceID }
