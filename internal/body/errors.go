// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package body

import "errors"

// Fatal error kinds raised by ChunkParser and Pump. Lifecycle.Stop returns
// the pump's error to its caller; internal/server1 uses it only to close the
// connection and does not map it to an HTTP status or write a response.
var (
	ErrBadChunkSizeData           = errors.New("chunkedbody: bad chunk size data")
	ErrBadChunkSuffix             = errors.New("chunkedbody: bad chunk suffix")
	ErrUnexpectedEndOfRequestBody = errors.New("chunkedbody: unexpected end of request content")
	ErrRequestBodyTimeout         = errors.New("chunkedbody: request body timeout")
	ErrMaxBodySizeExceeded        = errors.New("chunkedbody: max body size exceeded")
	ErrConnectionAborted          = errors.New("chunkedbody: connection aborted")
)

// ErrNotSupported is returned by the BodyReader operations spec.md §4.4
// declares for interface parity but intentionally does not implement.
var ErrNotSupported = errors.New("chunkedbody: operation not supported")
