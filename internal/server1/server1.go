// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package server1 is the outer HTTP/1 connection loop spec.md places out of
// scope except at its interface: it owns the socket, the request-line and
// header parse, and decides whether the body is chunked before handing the
// handler a body.BodyReader. Grounded on gorox's server1Conn.serve loop
// (web_http1.go) — "for persistent { onUse; execute; onEnd }" — trimmed to
// the chunked-body request path only; no HTTP/2 upgrade, no WebSocket, no
// backend/proxy role, per spec.md §1's out-of-scope list.
package server1

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/hemichunk/chunkedbody/internal/body"
	"github.com/hemichunk/chunkedbody/internal/config"
	"github.com/hemichunk/chunkedbody/internal/connctx"
	"github.com/hemichunk/chunkedbody/internal/logging"
	"github.com/hemichunk/chunkedbody/internal/timeout"
	"github.com/hemichunk/chunkedbody/internal/trailer"
	"github.com/hemichunk/chunkedbody/internal/transport"
)

// Handler processes one request's chunked body. req carries the parsed
// request line and headers; reader is the decoded body stream.
type Handler func(req *Request, reader *body.BodyReader) error

// Request is the minimal request-line-plus-headers view server1 parses.
// It deliberately does not generalize into a full header API: that belongs
// to the out-of-scope request-header-parsing collaborator spec.md names at
// its interface only.
type Request struct {
	Method string
	Target string
	Header textproto.MIMEHeader
}

// Server accepts connections and runs the chunked-body request loop over
// each one.
type Server struct {
	cfg    config.Config
	logger logging.Logger
	handle Handler
}

// New constructs a Server. handle is invoked once per request whose body is
// chunked-transfer-coded or absent (no Content-Length, or Content-Length 0);
// requests with a non-empty fixed-length body are rejected with 501, since
// this repo's scope is a chunked-body decoder, not a general HTTP/1 server.
func New(cfg config.Config, logger logging.Logger, handle Handler) *Server {
	return &Server{cfg: cfg, logger: logger, handle: handle}
}

// ListenAndServe binds cfg.Listen and serves connections until the
// listener fails.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	defer ln.Close()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.serve(conn)
	}
}

func (s *Server) serve(netConn net.Conn) {
	defer netConn.Close()

	reader := bufio.NewReader(netConn)
	persistent := true

	for persistent {
		req, contentLength, chunked, err := readRequestHead(reader)
		if err != nil {
			return
		}

		conn := connctx.New(s.cfg.KeepAliveDefault)
		if !wantsKeepAlive(req.Header, s.cfg.KeepAliveDefault) {
			persistent = false
		}

		switch {
		case chunked:
			var keepAlive bool
			var remainder []byte
			keepAlive, remainder = s.serveChunked(netConn, req, conn)
			persistent = persistent && keepAlive
			if len(remainder) > 0 {
				// The pipelining boundary: bytes already examined off the
				// socket that belong to the next request on this same
				// connection (SUPPLEMENTED FEATURES #1). Replay them ahead
				// of netConn rather than letting readRequestHead miss them.
				reader = bufio.NewReader(io.MultiReader(bytes.NewReader(remainder), netConn))
			}
		case contentLength == 0:
			if err := s.handle(req, emptyBodyReader()); err != nil {
				persistent = false
			}
		default:
			// A fixed Content-Length body is outside this repo's scope
			// (spec.md §1: "this is a request-body decoder" for the
			// chunked transfer-coding specifically); reject cleanly.
			fmt.Fprint(netConn, "HTTP/1.1 501 Not Implemented\r\nConnection: close\r\n\r\n")
			return
		}
	}
}

func (s *Server) serveChunked(netConn net.Conn, req *Request, conn *connctx.Ctx) (keepAlive bool, remainder []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()

	tc := transport.New(netConn, s.cfg.ReadBufferSize, s.cfg.ChunkPrefixTimeout)
	tp := timeout.NewController()
	tp.SetTimeout(s.cfg.RequestTimeout, "request")
	trailers := trailer.NewParser()

	lc := body.NewLifecycle(ctx, tc, trailers, tp, conn, continuerFunc(func() {
		fmt.Fprint(netConn, "HTTP/1.1 100 Continue\r\n\r\n")
	}), s.logger, s.cfg.MaxRequestBodySize)

	reader := lc.BodyReader()
	handlerErr := s.handle(req, reader)

	if !reader.IsBodyComplete() {
		// The handler returned before the body finished; drain the rest so
		// the connection can be reused (spec.md §4.5 Consume), before Stop
		// tears the pump down.
		_ = lc.Consume(s.cfg.DrainTimeout)
	}

	stopErr := lc.Stop()
	if handlerErr == nil && stopErr != nil {
		handlerErr = stopErr
	}
	remainder = lc.PipelinedRemainder()

	if badReqErr := conn.BadRequestErr(); badReqErr != nil {
		return false, remainder
	}
	return handlerErr == nil && conn.KeepAlive(), remainder
}

type continuerFunc func()

func (f continuerFunc) TryProduceContinue() { f() }

func readRequestHead(r *bufio.Reader) (req *Request, contentLength int64, chunked bool, err error) {
	tp := textproto.NewReader(r)
	line, err := tp.ReadLine()
	if err != nil {
		return nil, 0, false, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return nil, 0, false, fmt.Errorf("chunkedbody: malformed request line %q", line)
	}
	header, err := tp.ReadMIMEHeader()
	if err != nil {
		return nil, 0, false, err
	}
	req = &Request{Method: parts[0], Target: parts[1], Header: header}

	if te := header.Get("Transfer-Encoding"); strings.EqualFold(te, "chunked") {
		return req, 0, true, nil
	}
	if cl := header.Get("Content-Length"); cl != "" {
		n, perr := strconv.ParseInt(cl, 10, 64)
		if perr != nil {
			return nil, 0, false, perr
		}
		return req, n, false, nil
	}
	return req, 0, false, nil
}

func wantsKeepAlive(header textproto.MIMEHeader, defaultKeepAlive bool) bool {
	switch strings.ToLower(header.Get("Connection")) {
	case "keep-alive":
		return true
	case "close":
		return false
	default:
		return defaultKeepAlive
	}
}

// emptyBodyReader returns a BodyReader wired to an already-completed pipe,
// for requests that carry no body at all.
func emptyBodyReader() *body.BodyReader {
	pipe := body.NewBodyPipe()
	pipe.Complete(nil)
	return body.NewBodyReader(pipe, timeout.NewController(), func() {})
}
