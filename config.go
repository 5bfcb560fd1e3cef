// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	yaml "github.com/goccy/go-yaml"
)

// Default configuration values.
const (
	DefaultCacheSize = 4
	DefaultMaxDepth  = 1000
	DefaultMaxLength = 1_000_000_000
)

// ErrConfig is the sentinel for invalid configuration.
var ErrConfig = errors.New("invalid configuration")

// Config tunes a Context.
type Config struct {
	// CacheSize is the number of parsed documents kept per Context.
	CacheSize int `yaml:"cache_size"`
	// MaxDepth is the deepest array and object nesting accepted.
	MaxDepth int `yaml:"max_depth"`
	// MaxLength bounds the size of any generated text or JSONB.
	MaxLength int `yaml:"max_length"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		CacheSize: DefaultCacheSize,
		MaxDepth:  DefaultMaxDepth,
		MaxLength: DefaultMaxLength,
		LogLevel:  "info",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CacheSize == 0 {
		c.CacheSize = d.CacheSize
	}
	if c.CacheSize < 0 {
		c.CacheSize = 0
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = d.MaxDepth
	}
	if c.MaxLength <= 0 {
		c.MaxLength = d.MaxLength
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	return c
}

// Validate reports configuration values that cannot be used.
func (c Config) Validate() error {
	if c.CacheSize < 0 {
		return errors.Wrapf(ErrConfig, "cache_size must not be negative, got %d", c.CacheSize)
	}
	if c.MaxDepth < 0 {
		return errors.Wrapf(ErrConfig, "max_depth must not be negative, got %d", c.MaxDepth)
	}
	if c.MaxLength < 0 {
		return errors.Wrapf(ErrConfig, "max_length must not be negative, got %d", c.MaxLength)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.Wrapf(ErrConfig, "unknown log_level %q", s)
}

// LoadConfig decodes a YAML configuration.  Keys that are absent keep their
// default values; an empty document yields DefaultConfig().
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.NewDecoder(r, yaml.DisallowUnknownField()).Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrapf(ErrConfig, "failed to decode YAML: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "opening config")
	}
	defer f.Close()
	return LoadConfig(f)
}
