// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	cases := []struct {
		label  string
		input  string
		expect Config
		errStr string
	}{
		{
			label:  "empty",
			input:  "",
			expect: DefaultConfig(),
		},
		{
			label: "partial",
			input: "max_depth: 10\nlog_level: debug\n",
			expect: Config{
				CacheSize: DefaultCacheSize,
				MaxDepth:  10,
				MaxLength: DefaultMaxLength,
				LogLevel:  "debug",
			},
		},
		{
			label: "all",
			input: "cache_size: 0\nmax_depth: 3\nmax_length: 64\nlog_level: error\n",
			expect: Config{
				CacheSize: 0,
				MaxDepth:  3,
				MaxLength: 64,
				LogLevel:  "error",
			},
		},
		{label: "unknown key", input: "cache_sise: 3\n", errStr: "failed to decode YAML"},
		{label: "wrong type", input: "max_depth: deep\n", errStr: "failed to decode YAML"},
		{label: "negative", input: "max_length: -1\n", errStr: "max_length must not be negative"},
		{label: "bad level", input: "log_level: loud\n", errStr: `unknown log_level "loud"`},
	}
	for _, c := range cases {
		c := c
		t.Run(c.label, func(t *testing.T) {
			t.Parallel()
			got, err := LoadConfig(strings.NewReader(c.input))
			if c.errStr != "" {
				if err == nil || !strings.Contains(err.Error(), c.errStr) {
					t.Fatalf("expected error with %q, got %v", c.errStr, err)
				}
				if !errors.Is(err, ErrConfig) {
					t.Errorf("error is not ErrConfig: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.expect {
				t.Errorf("got %+v, expected %+v", got, c.expect)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sqljson.yaml")
	if err := os.WriteFile(path, []byte("cache_size: 8\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheSize != 8 || cfg.MaxDepth != DefaultMaxDepth {
		t.Errorf("got %+v", cfg)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file: expected error")
	}
}

func TestConfigLevel(t *testing.T) {
	t.Parallel()
	for in, expect := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	} {
		if got := (Config{LogLevel: in}).Level(); got != expect {
			t.Errorf("%q: got %v, expected %v", in, got, expect)
		}
	}
}

func TestNewContextDefaults(t *testing.T) {
	t.Parallel()
	c := NewContext(Config{MaxDepth: -5})
	defer c.Close()
	cfg := c.Config()
	if cfg.CacheSize != DefaultCacheSize || cfg.MaxDepth != DefaultMaxDepth ||
		cfg.MaxLength != DefaultMaxLength || cfg.LogLevel != "info" {
		t.Errorf("got %+v", cfg)
	}
	if err := (Config{CacheSize: -1}).Validate(); !errors.Is(err, ErrConfig) {
		t.Errorf("negative cache size: got %v", err)
	}
}
