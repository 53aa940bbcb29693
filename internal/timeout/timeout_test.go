// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package timeout

import (
	"testing"
	"time"
)

func TestRequestTimedOut(t *testing.T) {
	c := NewController()
	if c.RequestTimedOut() {
		t.Fatal("expected no timeout with no deadline set")
	}

	c.SetTimeout(10*time.Millisecond, "test")
	time.Sleep(20 * time.Millisecond)
	if !c.RequestTimedOut() {
		t.Fatal("expected timeout to have elapsed")
	}

	c.CancelTimeout()
	if c.RequestTimedOut() {
		t.Fatal("expected no timeout after CancelTimeout")
	}
}

func TestBytesReadAccumulates(t *testing.T) {
	c := NewController()
	c.BytesRead(3)
	c.BytesRead(4)
	if got := c.BytesReadTotal(); got != 7 {
		t.Fatalf("BytesReadTotal() = %d, want 7", got)
	}
}
