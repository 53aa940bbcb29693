// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package body

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemichunk/chunkedbody/internal/connctx"
	"github.com/hemichunk/chunkedbody/internal/timeout"
	"github.com/hemichunk/chunkedbody/internal/trailer"
)

// fakeTransport replays a fixed sequence of reads, one per ReadAsync call.
type fakeTransport struct {
	reads        [][]byte
	idx          int
	completedAt  int // index of the read that reports isCompleted along with its bytes; reads past the end report isCompleted with no bytes
	delay        time.Duration
	advanceCalls [][2]int
	canceled     bool
}

func (f *fakeTransport) ReadAsync(ctx context.Context) ([]byte, bool, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.idx >= len(f.reads) {
		return nil, true, nil
	}
	buf := f.reads[f.idx]
	isCompleted := f.idx == f.completedAt
	f.idx++
	return buf, isCompleted, nil
}

func (f *fakeTransport) AdvanceTo(consumed, examined int) {
	f.advanceCalls = append(f.advanceCalls, [2]int{consumed, examined})
}

func (f *fakeTransport) CancelPendingRead() { f.canceled = true }

func (f *fakeTransport) OnInputOrOutputCompleted() {}

type fakeContinuer struct {
	called int
}

func (f *fakeContinuer) TryProduceContinue() { f.called++ }

func TestPumpDecodesSingleChunkToCompletion(t *testing.T) {
	transport := &fakeTransport{reads: [][]byte{[]byte("5\r\nHello\r\n0\r\n\r\n")}}
	parser := NewChunkParser(0, trailer.NewParser())
	pipe := NewBodyPipe()
	conn := connctx.New(true)
	tc := timeout.NewController()
	continuer := &fakeContinuer{}

	pump := NewPump(transport, parser, pipe, tc, conn, continuer, nil)
	go pump.Run(context.Background())

	var got []byte
	for {
		data, isCompleted, canceled, err := pipe.Read(context.Background())
		require.NoError(t, err)
		require.False(t, canceled)
		got = append(got, data...)
		pipe.AdvanceTo(len(data))
		if isCompleted {
			break
		}
	}

	<-pump.Done()
	assert.NoError(t, pump.Err())
	assert.Equal(t, "Hello", string(got))
}

func TestPumpReportsUnexpectedEndOfRequestBody(t *testing.T) {
	transport := &fakeTransport{reads: [][]byte{[]byte("5\r\nHel")}, completedAt: 1}
	parser := NewChunkParser(0, trailer.NewParser())
	pipe := NewBodyPipe()
	conn := connctx.New(true)
	tc := timeout.NewController()

	pump := NewPump(transport, parser, pipe, tc, conn, nil, nil)
	go pump.Run(context.Background())

	// Drain the partial payload so the pump's flush under back-pressure
	// can unblock and reach its terminal error.
	data, isCompleted, _, err := pipe.Read(context.Background())
	require.NoError(t, err)
	require.False(t, isCompleted)
	pipe.AdvanceTo(len(data))

	<-pump.Done()
	assert.ErrorIs(t, pump.Err(), ErrUnexpectedEndOfRequestBody)

	_, isCompleted, _, err = pipe.Read(context.Background())
	assert.True(t, isCompleted)
	assert.Error(t, err)
}

func TestPumpSignalsContinueOnlyWhenFirstReadSuspends(t *testing.T) {
	// A delay guarantees the first read does not complete synchronously
	// from readOne's select-with-default probe, so the continuer is
	// deterministically invoked exactly once.
	transport := &fakeTransport{reads: [][]byte{[]byte("0\r\n\r\n")}, completedAt: 1, delay: 20 * time.Millisecond}
	parser := NewChunkParser(0, trailer.NewParser())
	pipe := NewBodyPipe()
	conn := connctx.New(true)
	tc := timeout.NewController()
	continuer := &fakeContinuer{}

	pump := NewPump(transport, parser, pipe, tc, conn, continuer, nil)
	go pump.Run(context.Background())

	<-pump.Done()
	assert.NoError(t, pump.Err())
	// The first (and only) read here is answered asynchronously by the
	// background goroutine in readOne, so continuer fires exactly once.
	assert.Equal(t, 1, continuer.called)
}

func TestPumpCancelStopsTheLoop(t *testing.T) {
	// completedAt -1 never matches an index, and the delay holds the first
	// read in flight long enough for Cancel to land while it is pending;
	// the loop's post-read cancellation check then ends the pump without
	// ever needing the fake transport to honor CancelPendingRead itself.
	transport := &fakeTransport{reads: make([][]byte, 100), completedAt: -1, delay: 30 * time.Millisecond}
	parser := NewChunkParser(0, trailer.NewParser())
	pipe := NewBodyPipe()
	conn := connctx.New(true)
	tc := timeout.NewController()

	pump := NewPump(transport, parser, pipe, tc, conn, nil, nil)
	go pump.Run(context.Background())

	time.Sleep(10 * time.Millisecond)
	pump.Cancel()

	select {
	case <-pump.Done():
	case <-time.After(time.Second):
		t.Fatal("pump did not stop after Cancel")
	}
	assert.True(t, transport.canceled)
}
