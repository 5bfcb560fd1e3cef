// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"bytes"
	"log/slog"
)

// Stats counts parse and cache activity of a Context.
type Stats struct {
	Parses    int
	Hits      int
	Misses    int
	Evictions int
}

// docCache is a small LRU of parsed text documents.  A document is found by
// its original input text or, once edited, by the text of its edited form.
type docCache struct {
	ctx    *Context
	slots  []*document
	maxAge uint64
}

func newDocCache(ctx *Context, size int) *docCache {
	return &docCache{ctx: ctx, slots: make([]*document, 0, size)}
}

// find returns a cached document for text.  When unedited is set only a
// document without edits can match, since the caller needs the tree as
// parsed.  On a hit the document is marked most recently used and its
// per-call state is reset.
func (c *docCache) find(text []byte, unedited bool) *document {
	for _, d := range c.slots {
		switch {
		case bytes.Equal(d.json, text) && (!d.hasMod || !unedited):
			d.useMod = false
		case !unedited && d.alt != nil && bytes.Equal(d.alt, text):
			d.useMod = true
		default:
			continue
		}
		d.err = nil
		c.maxAge++
		d.age = c.maxAge
		c.ctx.stats.Hits++
		return d
	}
	c.ctx.stats.Misses++
	return nil
}

// install adds d, evicting the least recently used slot if the cache is
// full.  The cache takes its own reference.
func (c *docCache) install(d *document) {
	if cap(c.slots) == 0 {
		return
	}
	if len(c.slots) == cap(c.slots) {
		oldest := 0
		for i, s := range c.slots {
			if s.age < c.slots[oldest].age {
				oldest = i
			}
		}
		evicted := c.slots[oldest]
		c.slots = append(c.slots[:oldest], c.slots[oldest+1:]...)
		c.ctx.stats.Evictions++
		c.ctx.logger.Debug("evicted document", slog.Int("bytes", len(evicted.json)))
		evicted.release()
	}
	c.maxAge++
	d.age = c.maxAge
	d.retain()
	c.slots = append(c.slots, d)
}

// clear releases every cached document.
func (c *docCache) clear() {
	slots := c.slots
	c.slots = c.slots[:0]
	for _, d := range slots {
		d.release()
	}
}
