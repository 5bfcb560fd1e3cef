// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"log/slog"

	"github.com/cockroachdb/errors"
)

// Context evaluates JSON functions.  It owns a small cache of parsed
// documents so that a chain of calls over the same text parses it once.
// A Context is not safe for concurrent use.
type Context struct {
	cfg    Config
	cache  *docCache
	logger *slog.Logger
	stats  Stats
}

// NewContext returns a Context using cfg.  Zero fields of cfg take their
// default values.
func NewContext(cfg Config) *Context {
	cfg = cfg.withDefaults()
	c := &Context{cfg: cfg}
	c.cache = newDocCache(c, cfg.CacheSize)
	c.SetLogger(nil)
	return c
}

// SetLogger sets the logger used for cache diagnostics.  A nil logger
// restores slog.Default().
func (c *Context) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	c.logger = l.With("component", "sqljson")
}

// Config returns the configuration in effect.
func (c *Context) Config() Config { return c.cfg }

// Stats returns the parse and cache counters.
func (c *Context) Stats() Stats { return c.stats }

// Close releases every cached document.  The Context remains usable.
func (c *Context) Close() {
	c.logger.Debug("closing context", slog.Int("cached", len(c.cache.slots)))
	c.cache.clear()
}

func (c *Context) countParse() { c.stats.Parses++ }

// document returns the parsed document for v, or nil for NULL.  Text is
// looked up in the cache first.  If tree is set the parse tree is built;
// otherwise the JSONB form is.  The caller must release the result.
func (c *Context) document(v Value, unedited, tree bool) (*document, error) {
	switch v.Type {
	case TypeNull:
		return nil, nil
	case TypeBlob:
		if !IsJSONB(v.Blob) {
			return nil, ErrBlob
		}
		d := newBlobDocument(c, v.Blob)
		if tree {
			if err := d.parseTree(); err != nil {
				return nil, err
			}
		}
		return d, nil
	}

	text := v.textBytes()
	if d := c.cache.find(text, unedited); d != nil {
		c.logger.Debug("cache hit", slog.Int("bytes", len(text)), slog.Bool("edited", d.useMod))
		if tree {
			if err := d.parseTree(); err != nil {
				return nil, err
			}
		}
		d.retain()
		return d, nil
	}

	d := newTextDocument(c, text)
	var err error
	if tree {
		err = d.parseTree()
	} else {
		err = d.parseBinary()
	}
	if err != nil {
		c.logger.Debug("parse failed", slog.Int("bytes", len(text)), slog.Any("error", err))
		return nil, err
	}
	c.cache.install(d)
	return d, nil
}

// errorOffset returns the byte offset recorded in a parse error.
func errorOffset(err error) (int, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Offset, true
	}
	return 0, false
}
