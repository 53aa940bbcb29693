// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package trailer

import "testing"

func TestParseTrailersSingleField(t *testing.T) {
	p := NewParser()
	buf := []byte("X-Trace: 1\r\n\r\n")

	done, consumed, _, err := p.ParseTrailers(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done {
		t.Fatal("expected done")
	}
	if consumed != len(buf) {
		t.Fatalf("consumed = %d, want %d", consumed, len(buf))
	}
	if len(p.Fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(p.Fields))
	}
	if p.Fields[0].Name != "x-trace" {
		t.Fatalf("name = %q, want lower-cased %q", p.Fields[0].Name, "x-trace")
	}
	if p.Fields[0].Value != "1" {
		t.Fatalf("value = %q, want %q", p.Fields[0].Value, "1")
	}
}

func TestParseTrailersEmptySection(t *testing.T) {
	p := NewParser()
	buf := []byte("\r\n")

	done, consumed, _, err := p.ParseTrailers(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done || consumed != 2 {
		t.Fatalf("done=%v consumed=%d, want done and consumed=2", done, consumed)
	}
	if len(p.Fields) != 0 {
		t.Fatalf("expected no fields, got %d", len(p.Fields))
	}
}

func TestParseTrailersMultipleFieldsAndOWSTrimming(t *testing.T) {
	p := NewParser()
	buf := []byte("X-A:  one  \r\nX-B:two\r\n\r\n")

	done, consumed, _, err := p.ParseTrailers(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done || consumed != len(buf) {
		t.Fatalf("done=%v consumed=%d, want done and consumed=%d", done, consumed, len(buf))
	}
	if len(p.Fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(p.Fields))
	}
	if p.Fields[0].Value != "one" {
		t.Fatalf("value = %q, want OWS-trimmed %q", p.Fields[0].Value, "one")
	}
	if p.Fields[1].Name != "x-b" || p.Fields[1].Value != "two" {
		t.Fatalf("second field = %+v", p.Fields[1])
	}
}

func TestParseTrailersUnderscoreFlagged(t *testing.T) {
	p := NewParser()
	buf := []byte("X_Foo: bar\r\n\r\n")

	if _, _, _, err := p.ParseTrailers(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.HasUnderscore {
		t.Fatal("expected HasUnderscore to be set")
	}
}

func TestParseTrailersBadCharacterRejected(t *testing.T) {
	p := NewParser()
	buf := []byte("Bad Name: val\r\n\r\n")

	_, _, _, err := p.ParseTrailers(buf)
	if err != ErrBadTrailerField {
		t.Fatalf("err = %v, want ErrBadTrailerField", err)
	}
}

func TestParseTrailersSplitAcrossCalls(t *testing.T) {
	p := NewParser()
	full := []byte("X-Trace: 1\r\nX-Span: 2\r\n\r\n")

	consumedSoFar := 0
	done := false
	for upTo := 1; upTo <= len(full) && !done; upTo++ {
		window := full[consumedSoFar:upTo]
		var consumed int
		var err error
		done, consumed, _, err = p.ParseTrailers(window)
		if err != nil {
			t.Fatalf("unexpected error at upTo=%d: %v", upTo, err)
		}
		consumedSoFar += consumed
	}

	if !done {
		t.Fatal("expected done by the end of input")
	}
	if consumedSoFar != len(full) {
		t.Fatalf("consumedSoFar = %d, want %d", consumedSoFar, len(full))
	}
	if len(p.Fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(p.Fields))
	}
}
