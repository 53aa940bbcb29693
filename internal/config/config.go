// Copyright (c) 2024-2026, The ChunkedBody Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package config loads the per-request limits and timeouts this repo needs.
// gorox configures itself through a bespoke Component/Value-tree DSL that
// belongs to the routing/TLS/hosting-shell layer out of scope here; this
// package instead loads a flat YAML document with gopkg.in/yaml.v3,
// following shadowfax's dependency on the same library.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable this repo's server and body decoder consult.
type Config struct {
	Listen string `yaml:"listen"`

	MaxRequestBodySize int64         `yaml:"maxRequestBodySize"`
	ChunkPrefixTimeout time.Duration `yaml:"chunkPrefixTimeout"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"`
	DrainTimeout       time.Duration `yaml:"drainTimeout"`
	ReadBufferSize     int           `yaml:"readBufferSize"`

	KeepAliveDefault bool `yaml:"keepAliveDefault"`

	Logger LoggerConfig `yaml:"logger"`
}

// LoggerConfig selects and parameterizes the logging.Logger backend.
type LoggerConfig struct {
	Sign   string `yaml:"sign"`
	Target string `yaml:"target"`
	Level  string `yaml:"level"`
}

// Default returns the configuration used when no file is supplied,
// matching conservative production defaults rather than zero values.
func Default() Config {
	return Config{
		Listen:             ":8080",
		MaxRequestBodySize: 64 << 20,
		ChunkPrefixTimeout: 10 * time.Second,
		RequestTimeout:     60 * time.Second,
		DrainTimeout:       5 * time.Second,
		ReadBufferSize:     16 << 10,
		KeepAliveDefault:   true,
		Logger:             LoggerConfig{Sign: "noop", Level: "info"},
	}
}

// Load reads and parses a YAML config file at path, overlaying it onto
// Default so a partial document is valid.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
