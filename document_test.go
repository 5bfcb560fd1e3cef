// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
)

func cachedDocument(c *Context, text string) *document {
	for _, d := range c.cache.slots {
		if bytes.Equal(d.json, []byte(text)) {
			return d
		}
	}
	return nil
}

func TestSplicedValueOutlivesItsSlot(t *testing.T) {
	t.Parallel()
	c := NewContext(Config{CacheSize: 2})
	defer c.Close()

	edited, err := c.Set(Text(`{"a":1}`), Text("$.b"), JSONText(`{"c":[1,2]}`))
	expectJSON(t, "set", edited, err, `{"a":1,"b":{"c":[1,2]}}`)

	value := cachedDocument(c, `{"c":[1,2]}`)
	if value == nil {
		t.Fatal("value document is not cached")
	}

	// Refresh the edited document so the value's slot is the oldest.
	got, err := c.Extract(edited, Text("$.b.c[1]"))
	expectValue(t, "before eviction", got, err, Int(2))
	if _, err := c.Extract(Text(`[1]`), Text("$[0]")); err != nil {
		t.Fatal(err)
	}
	if cachedDocument(c, `{"c":[1,2]}`) != nil {
		t.Fatal("value document was not evicted")
	}
	if value.released || value.refs != 1 {
		t.Fatalf("evicted value: released %v, refs %d", value.released, value.refs)
	}

	before := c.Stats()
	got, err = c.Extract(edited, Text("$.b.c[1]"))
	expectValue(t, "after eviction", got, err, Int(2))
	if after := c.Stats(); after.Hits != before.Hits+1 || after.Parses != before.Parses {
		t.Errorf("expected a cache hit on the edited text: before %+v, after %+v", before, after)
	}

	c.Close()
	if !value.released || value.refs != 0 {
		t.Errorf("after close: released %v, refs %d", value.released, value.refs)
	}
}

func TestReleaseReentry(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)

	d := newTextDocument(c, []byte(`[1]`))
	d.retain()
	d.cleanups = append(d.cleanups, d.release, d.release)
	d.release()
	if d.released || d.refs != 1 {
		t.Fatalf("first release: released %v, refs %d", d.released, d.refs)
	}
	d.release()
	if !d.released || d.refs != 0 || d.cleanups != nil {
		t.Fatalf("last release: released %v, refs %d, cleanups %d", d.released, d.refs, len(d.cleanups))
	}
	d.release()
	if d.refs != 0 {
		t.Errorf("extra release: refs %d", d.refs)
	}

	// Two documents whose cleanups release each other.
	a := newTextDocument(c, []byte(`1`))
	b := newTextDocument(c, []byte(`2`))
	a.cleanups = append(a.cleanups, b.release)
	b.cleanups = append(b.cleanups, a.release)
	a.release()
	if !a.released || !b.released || a.refs != 0 || b.refs != 0 {
		t.Errorf("cycle: a %v/%d, b %v/%d", a.released, a.refs, b.released, b.refs)
	}
}

func TestMissingSubst(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)

	d := newTextDocument(c, []byte(`[1,2]`))
	defer d.release()
	if err := d.parseTree(); err != nil {
		t.Fatal(err)
	}
	d.addSubst(2)
	d.addNode(KindInt, []byte("3"))

	var s jsonString
	s.init(0)
	d.renderNode(0, &s)
	got, err := s.bytes()
	s.reset()
	if err != nil || string(got) != "[1,3]" {
		t.Fatalf("with subst: got %s, %v", got, err)
	}

	// Node 1 is marked replaced but the chain only holds node 2.
	d.nodes[1].flags |= flagReplace
	if _, err := d.resolve(1); !errors.IsAssertionFailure(err) {
		t.Errorf("resolve: expected an assertion failure, got %v", err)
	}
	s.init(0)
	defer s.reset()
	d.renderNode(0, &s)
	if _, err := s.bytes(); !errors.IsAssertionFailure(err) {
		t.Errorf("render: expected an assertion failure, got %v", err)
	}
}
