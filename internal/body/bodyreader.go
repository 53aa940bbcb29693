// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// BodyReader is the handler-facing surface of spec.md §4.4. try_read and
// read_async are expressed in terms of BodyPipe.TryRead/Read; the
// start-on-first-use hook is supplied by Lifecycle so BodyReader itself
// carries no opinion about when the pump begins.

package body

import "context"

type readResult struct {
	data        []byte
	isCompleted bool
	err         error
}

// BodyReader is the public read surface handed to application handlers.
// It is not safe for concurrent use by more than one goroutine, matching
// spec.md §3's single-reader ownership rule.
type BodyReader struct {
	pipe    *BodyPipe
	timeout TimeoutController
	start   func()

	previous  readResult
	completed bool

	// alreadyTimedBytes is the portion of the current back-pressure window's
	// buffered segment already reported to the timeout controller by a
	// prior suspending ReadAsync call, per spec.md §3/§4.4. It shrinks by
	// whatever AdvanceTo releases, since those bytes leave the window.
	alreadyTimedBytes int
}

// NewBodyReader constructs a BodyReader over pipe. start is invoked on every
// TryRead and ReadAsync call; BodyReader does not dedupe it, and Lifecycle's
// start hook launches the pump only on its first invocation.
func NewBodyReader(pipe *BodyPipe, timeout TimeoutController, start func()) *BodyReader {
	return &BodyReader{pipe: pipe, timeout: timeout, start: start}
}

// TryRead is the non-blocking probe of spec.md §4.4: it starts the pump if
// needed but never suspends, returning an empty, non-completed result when
// nothing is buffered yet.
func (r *BodyReader) TryRead() (data []byte, isCompleted bool, err error) {
	r.triggerStart()
	data, isCompleted, ok, err := r.pipe.TryRead()
	if !ok {
		return nil, false, nil
	}
	r.previous = readResult{data: data, isCompleted: isCompleted, err: err}
	return data, isCompleted, err
}

// ReadAsync starts the pump if needed, then loops until at least one byte is
// available or the pipe completes, timing any suspension against the
// timeout controller per spec.md §4.4.
func (r *BodyReader) ReadAsync(ctx context.Context) (data []byte, isCompleted bool, err error) {
	r.triggerStart()

	if d, ic, ok, e := r.pipe.TryRead(); ok {
		r.previous = readResult{data: d, isCompleted: ic, err: e}
		return d, ic, e
	}

	r.timeout.StartTimingRead()
	d, ic, canceled, e := r.pipe.Read(ctx)
	r.timeout.StopTimingRead()
	if canceled {
		return nil, false, nil
	}

	if delta := len(d) - r.alreadyTimedBytes; delta > 0 {
		r.timeout.BytesRead(int64(delta))
		r.alreadyTimedBytes = len(d)
	}

	r.previous = readResult{data: d, isCompleted: ic, err: e}
	return d, ic, e
}

// AdvanceTo releases consumed bytes from the pipe and reports the number
// released to the timeout controller's data-read callback, per spec.md
// §4.4. examined is accepted for interface parity with ChunkParser's cursor
// pair but BodyPipe has no use for it beyond consumed (see BodyPipe.AdvanceTo).
func (r *BodyReader) AdvanceTo(consumed int, examined ...int) {
	r.pipe.AdvanceTo(consumed)
	if consumed > 0 {
		r.timeout.BytesRead(int64(consumed))
	}
	r.alreadyTimedBytes -= consumed
	if r.alreadyTimedBytes < 0 {
		r.alreadyTimedBytes = 0
	}
}

// Complete completes the reader side only. It does not stop the pump — the
// pump's own writer-side completion ends its loop naturally on drain, per
// spec.md §4.4. Any read currently suspended on the pipe is woken so it
// does not block past the reader's own completion.
func (r *BodyReader) Complete(err error) {
	if r.completed {
		return
	}
	r.completed = true
	_ = err
	r.pipe.CancelPendingRead()
}

// IsBodyComplete reports whether the most recent TryRead or ReadAsync
// observed the pipe's terminal state. The outer request loop consults this
// to decide whether Lifecycle.Consume needs to drain anything before Stop.
func (r *BodyReader) IsBodyComplete() bool { return r.previous.isCompleted }

// CancelPendingRead is declared for interface parity but intentionally
// unsupported, per spec.md §4.4 and §9.
func (r *BodyReader) CancelPendingRead() error { return ErrNotSupported }

// OnWriterCompleted is declared for interface parity but intentionally
// unsupported, per spec.md §4.4 and §9.
func (r *BodyReader) OnWriterCompleted(error) error { return ErrNotSupported }

func (r *BodyReader) triggerStart() {
	if r.start != nil {
		r.start()
	}
}
