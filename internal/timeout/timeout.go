// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package timeout implements the TimeoutController collaborator (spec.md
// §6), grounded on gorox's recvTimeout/bodyTime/_isLongTime trio in
// web_http.go: a deadline set once at body-receive start, and a "has this
// taken too long" query computed from elapsed wall time rather than a
// live timer goroutine.
package timeout

import (
	"sync"
	"sync/atomic"
	"time"
)

// Controller implements body.TimeoutController.
type Controller struct {
	mu       sync.Mutex
	deadline time.Time
	reason   string

	readStarted  time.Time
	timingActive bool

	bytesRead int64

	timedOut atomic.Bool
}

// NewController constructs a Controller with no deadline set.
func NewController() *Controller { return &Controller{} }

// SetTimeout installs a deadline d from now, recording reason for
// diagnostics (spec.md §6). A zero d clears any existing deadline.
func (c *Controller) SetTimeout(d time.Duration, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		c.deadline = time.Time{}
		c.reason = ""
		return
	}
	c.deadline = time.Now().Add(d)
	c.reason = reason
	c.timedOut.Store(false)
}

// CancelTimeout clears the deadline; RequestTimedOut then reports false until
// a new deadline is set and elapses.
func (c *Controller) CancelTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = time.Time{}
	c.reason = ""
}

// StartTimingRead opens a back-pressure timing window, grounded on
// gorox's bodyTime field set at the start of each content read.
func (c *Controller) StartTimingRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readStarted = time.Now()
	c.timingActive = true
}

// StopTimingRead closes the timing window opened by StartTimingRead.
func (c *Controller) StopTimingRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timingActive = false
}

// BytesRead accumulates bytes released to the application, for diagnostics
// and future rate-based policies; it does not itself affect RequestTimedOut.
func (c *Controller) BytesRead(delta int64) {
	atomic.AddInt64(&c.bytesRead, delta)
}

// RequestTimedOut reports whether the deadline set by SetTimeout has
// elapsed, following gorox's _isLongTime: a plain time-since comparison,
// not a fired timer callback, since the pump polls this at loop boundaries
// rather than being woken by it.
func (c *Controller) RequestTimedOut() bool {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()
	if deadline.IsZero() {
		return false
	}
	out := time.Now().After(deadline)
	if out {
		c.timedOut.Store(true)
	}
	return out
}

// BytesReadTotal reports the cumulative count passed to BytesRead.
func (c *Controller) BytesReadTotal() int64 { return atomic.LoadInt64(&c.bytesRead) }
