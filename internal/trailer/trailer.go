// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package trailer implements the TrailerParser collaborator ChunkParser
// delegates to for the trailer-part of a chunked body (spec.md §4.1
// TrailerHeaders, §6). It is grounded on gorox's recvTrailerLines
// (web_http1.go), generalized away from that function's window-sliding
// r.bodyWindow bookkeeping into a plain consumed/examined cursor pair over
// whatever slice ChunkParser hands it, and away from its primes/array
// storage into a simple Field slice.
package trailer

import "errors"

// ErrBadTrailerField is returned when a trailer field-line violates RFC
// 7230's field-line grammar.
var ErrBadTrailerField = errors.New("chunkedbody: bad trailer field line")

// Field is one parsed trailer header field. Name is already lower-cased.
type Field struct {
	Name  string
	Value string
}

// tchar classifies bytes per RFC 7230's token grammar:
// tchar = ALPHA / DIGIT / "!" / "#" / "$" / "%" / "&" / "'" / "*" / "+" /
//
//	"-" / "." / "^" / "_" / "`" / "|" / "~"
//
// 0 = invalid, 1 = valid as-is, 2 = valid uppercase (lower-case in place),
// 3 = underscore (valid, but flagged).
var tchar = [256]int8{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 1, 0, 1, 1, 1, 1, 1, 0, 0, 1, 1, 0, 1, 1, 0,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0,
	0, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 0, 0, 0, 1, 3,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 1, 0, 1, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// HasUnderscore reports whether Parser flagged an underscore in any field
// name it has parsed so far. Some proxies reject underscored header names
// as a smuggling precaution; this repo only reports the fact, per spec.md's
// delegation of semantic validation to the collaborator's caller.
type Parser struct {
	Fields        []Field
	HasUnderscore bool
}

// NewParser constructs an empty trailer parser for one request.
func NewParser() *Parser { return &Parser{} }

// ParseTrailers implements body.TrailerParser. buf is the window starting
// at the first byte after the last-chunk's CRLF; it may contain zero or
// more complete field-lines followed by a terminating CRLF. consumed and
// examined are relative to buf's own start, matching ChunkParser's own
// cursor contract.
func (p *Parser) ParseTrailers(buf []byte) (done bool, consumed, examined int, err error) {
	pos := 0
	for {
		if pos >= len(buf) {
			return false, pos, pos, nil
		}
		if buf[pos] == '\r' {
			if pos+1 >= len(buf) {
				return false, pos, pos, nil
			}
			if buf[pos+1] != '\n' {
				return false, pos, pos, ErrBadTrailerField
			}
			return true, pos + 2, pos + 2, nil
		}
		if buf[pos] == '\n' {
			return true, pos + 1, pos + 1, nil
		}

		nameStart := pos
		for pos < len(buf) && buf[pos] != ':' {
			b := buf[pos]
			switch tchar[b] {
			case 0:
				return false, nameStart, len(buf), ErrBadTrailerField
			case 2:
				buf[pos] = b + 0x20
			case 3:
				p.HasUnderscore = true
			}
			pos++
		}
		if pos >= len(buf) {
			return false, nameStart, len(buf), nil // wait for the rest of the field-name
		}
		if pos == nameStart {
			return false, nameStart, len(buf), ErrBadTrailerField
		}
		name := string(buf[nameStart:pos])
		pos++ // skip ':'

		for pos < len(buf) && (buf[pos] == ' ' || buf[pos] == '\t') {
			pos++
		}
		if pos >= len(buf) {
			return false, nameStart, len(buf), nil
		}

		valueStart := pos
		for {
			if pos >= len(buf) {
				return false, nameStart, len(buf), nil
			}
			b := buf[pos]
			if b == '\r' {
				if pos+1 >= len(buf) {
					return false, nameStart, len(buf), nil
				}
				if buf[pos+1] != '\n' {
					return false, pos, len(buf), ErrBadTrailerField
				}
				break
			}
			if b == '\n' {
				break
			}
			if (b < 0x20 || b == 0x7F) && b != 0x09 {
				return false, pos, len(buf), ErrBadTrailerField
			}
			pos++
		}

		valueEnd := pos
		for valueEnd > valueStart && (buf[valueEnd-1] == ' ' || buf[valueEnd-1] == '\t') {
			valueEnd--
		}
		value := string(buf[valueStart:valueEnd])

		if buf[pos] == '\r' {
			pos += 2
		} else {
			pos++
		}

		p.Fields = append(p.Fields, Field{Name: name, Value: value})
	}
}
