// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// BodyPipe is a bounded single-producer/single-consumer byte pipe with the
// back-pressure policy of spec.md §3/§4.2: pauseWriterThreshold =
// resumeWriterThreshold = 1, so at most one unread payload segment is ever
// buffered. The goroutine-plus-channel hand-off pattern is grounded on
// gorox's TCPXReverseProxy (net_tcpx.go), which couples a producer loop to
// a consumer loop through an unbuffered completion signal; BodyPipe
// generalizes that shape to a single in-flight []byte segment instead of a
// bidirectional socket relay.

package body

import (
	"context"
	"sync"

	"github.com/valyala/bytebufferpool"
)

// BodyPipe is safe for exactly one concurrent writer and one concurrent
// reader, per spec.md §5.
type BodyPipe struct {
	mu sync.Mutex

	segment   *bytebufferpool.ByteBuffer // the single in-flight payload segment, or nil
	readFrom  int                        // bytes of segment already released to the reader
	completed bool
	writeErr  error

	// readReady is signaled when a segment becomes available or the pipe
	// completes; writeReady is signaled when the reader has drained the
	// current segment below resumeWriterThreshold.
	readReady  chan struct{}
	writeReady chan struct{}

	readCanceled bool
}

// NewBodyPipe constructs an empty pipe ready for one request.
func NewBodyPipe() *BodyPipe {
	p := &BodyPipe{
		readReady:  make(chan struct{}, 1),
		writeReady: make(chan struct{}, 1),
	}
	return p
}

// Write appends bytes to the pipe's single in-flight segment. Write itself
// never blocks — back-pressure is applied by Flush, matching spec.md §4.2's
// separation between "appends" and "yields a completion to the writer only
// when the reader has released enough bytes".
func (p *BodyPipe) Write(b []byte) {
	if len(b) == 0 {
		return
	}
	p.mu.Lock()
	if p.segment == nil {
		p.segment = bytebufferpool.Get()
	}
	p.segment.Write(b)
	p.mu.Unlock()
}

// Flush makes previously written bytes observable to the reader and blocks
// the writer until the reader has advanced below resumeWriterThreshold (1
// unread byte), or the pipe is completed, or the context is canceled.
// CancelPendingRead does not wake a blocked Flush. This is the pump's
// back-pressure suspension point (spec.md §5).
func (p *BodyPipe) Flush(ctx context.Context) error {
	p.mu.Lock()
	hasUnread := p.segment != nil && p.readFrom < p.segment.Len()
	if !hasUnread {
		p.mu.Unlock()
		return nil
	}
	p.signalReadReadyLocked()
	p.mu.Unlock()

	for {
		p.mu.Lock()
		stillUnread := p.segment != nil && p.segment.Len()-p.readFrom >= 1
		if !stillUnread || p.completed {
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		select {
		case <-p.writeReady:
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Read returns the next available unread segment, or waits for the writer
// to Write/Flush/Complete. A canceled read (via CancelPendingRead) returns
// canceled=true with no error, distinct from a completed pipe.
func (p *BodyPipe) Read(ctx context.Context) (data []byte, isCompleted bool, canceled bool, err error) {
	for {
		p.mu.Lock()
		if p.readCanceled {
			p.readCanceled = false
			p.mu.Unlock()
			return nil, false, true, nil
		}
		if p.segment != nil && p.readFrom < p.segment.Len() {
			data = p.segment.B[p.readFrom:]
			err = p.writeErr
			p.mu.Unlock()
			return data, false, false, nil
		}
		if p.completed {
			err = p.writeErr
			p.mu.Unlock()
			return nil, true, false, err
		}
		p.mu.Unlock()

		select {
		case <-p.readReady:
			continue
		case <-ctx.Done():
			return nil, false, false, ctx.Err()
		}
	}
}

// TryRead is the non-blocking counterpart of Read, used by BodyReader's
// try_read and as the first probe inside read_async before it commits to
// suspending. ok is false when neither data nor completion is available yet.
func (p *BodyPipe) TryRead() (data []byte, isCompleted bool, ok bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readCanceled {
		p.readCanceled = false
		return nil, false, false, nil
	}
	if p.segment != nil && p.readFrom < p.segment.Len() {
		return p.segment.B[p.readFrom:], false, true, p.writeErr
	}
	if p.completed {
		return nil, true, true, p.writeErr
	}
	return nil, false, false, nil
}

// AdvanceTo releases consumed bytes back to the writer. It takes no examined
// cursor: BodyPipe has no separate examined-tracking state, since a single
// segment has nothing left to "examine" once consumed releases it.
func (p *BodyPipe) AdvanceTo(consumed int) {
	p.mu.Lock()
	if p.segment != nil {
		p.readFrom += consumed
		if p.readFrom >= p.segment.Len() {
			bytebufferpool.Put(p.segment)
			p.segment = nil
			p.readFrom = 0
			p.signalWriteReadyLocked()
		} else if p.segment.Len()-p.readFrom < 1 {
			p.signalWriteReadyLocked()
		}
	}
	p.mu.Unlock()
}

// Complete signals the end of the writer side, with an optional error that
// the reader observes on its next read (spec.md §4.2, §7).
func (p *BodyPipe) Complete(err error) {
	p.mu.Lock()
	p.completed = true
	p.writeErr = err
	p.signalReadReadyLocked()
	p.signalWriteReadyLocked()
	p.mu.Unlock()
}

// CancelPendingRead wakes a suspended Read with a canceled result, per
// spec.md §4.2.
func (p *BodyPipe) CancelPendingRead() {
	p.mu.Lock()
	p.readCanceled = true
	p.signalReadReadyLocked()
	p.mu.Unlock()
}

// Reset returns the pipe to its pristine state once both ends have
// completed, per spec.md §4.2 and §5 ordering guarantee 4. Reset panics if
// called before Complete, since that would race an in-flight writer.
func (p *BodyPipe) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.completed {
		panic("chunkedbody: BodyPipe.Reset called before Complete")
	}
	if p.segment != nil {
		bytebufferpool.Put(p.segment)
	}
	p.segment = nil
	p.readFrom = 0
	p.completed = false
	p.writeErr = nil
	p.readCanceled = false
}

func (p *BodyPipe) signalReadReadyLocked() {
	select {
	case p.readReady <- struct{}{}:
	default:
	}
}

func (p *BodyPipe) signalWriteReadyLocked() {
	select {
	case p.writeReady <- struct{}{}:
	default:
	}
}
