// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func init() {
	Register("zap", newZapLogger)
}

type zapLogger struct {
	l *zap.Logger
}

func newZapLogger(cfg Config) (Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Target != "" && cfg.Target != "stdout" {
		zcfg.OutputPaths = []string{cfg.Target}
		zcfg.ErrorOutputPaths = []string{cfg.Target}
	}
	if lvl, err := zapcore.ParseLevel(levelOrDefault(cfg.Level)); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{l: l}, nil
}

func levelOrDefault(level string) string {
	if level == "" {
		return "info"
	}
	return level
}

func (z *zapLogger) Debug(msg string, fields ...Field) { z.l.Debug(msg, toZapFields(fields)...) }
func (z *zapLogger) Info(msg string, fields ...Field)  { z.l.Info(msg, toZapFields(fields)...) }
func (z *zapLogger) Warn(msg string, fields ...Field)  { z.l.Warn(msg, toZapFields(fields)...) }
func (z *zapLogger) Error(msg string, fields ...Field) { z.l.Error(msg, toZapFields(fields)...) }

func (z *zapLogger) Close() error { return z.l.Sync() }

func toZapFields(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}
