// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hemichunk/chunkedbody/internal/body"
	"github.com/hemichunk/chunkedbody/internal/config"
	"github.com/hemichunk/chunkedbody/internal/logging"
	"github.com/hemichunk/chunkedbody/internal/server1"
)

func main() {
	cfgPath := "chunkedbody.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "chunkedbody-server: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Sign:   cfg.Logger.Sign,
		Target: cfg.Logger.Target,
		Level:  cfg.Logger.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "chunkedbody-server: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	srv := server1.New(cfg, logger, echoBody)

	logger.Info("chunked body server listening", logging.F("listen", cfg.Listen))
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", logging.F("error", err.Error()))
		os.Exit(1)
	}
}

// echoBody drains the decoded chunked body to io.Discard, a minimal demo
// handler exercising body.BodyReader the way a real application handler
// would: start, read_async in a loop, advance, complete.
func echoBody(req *server1.Request, reader *body.BodyReader) error {
	for {
		data, isCompleted, err := reader.ReadAsync(context.Background())
		if err != nil {
			reader.Complete(err)
			return err
		}
		if len(data) > 0 {
			if _, werr := io.Discard.Write(data); werr != nil {
				reader.Complete(werr)
				return werr
			}
			reader.AdvanceTo(len(data))
		}
		if isCompleted {
			reader.Complete(nil)
			return nil
		}
	}
}
