// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestCacheHits(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)
	doc := Text(`{"a":1,"b":[1,2]}`)
	for i := 0; i < 3; i++ {
		got, err := c.Extract(doc, Text("$.a"))
		expectValue(t, "extract", got, err, Int(1))
	}
	s := c.Stats()
	if s.Parses != 1 || s.Misses != 1 || s.Hits != 2 {
		t.Errorf("stats: %+v", s)
	}
}

func TestCacheEviction(t *testing.T) {
	t.Parallel()
	c := NewContext(Config{CacheSize: 2})
	defer c.Close()
	for _, doc := range []string{`[1]`, `[2]`, `[3]`, `[1]`} {
		if _, err := c.Extract(Text(doc), Text("$[0]")); err != nil {
			t.Fatal(err)
		}
	}
	s := c.Stats()
	if s.Misses != 4 || s.Hits != 0 || s.Evictions != 2 || s.Parses != 4 {
		t.Errorf("stats: %+v", s)
	}

	// A hit refreshes a slot so the other one is evicted next.
	if _, err := c.Extract(Text(`[3]`), Text("$[0]")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Extract(Text(`[4]`), Text("$[0]")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Extract(Text(`[3]`), Text("$[0]")); err != nil {
		t.Fatal(err)
	}
	s = c.Stats()
	if s.Hits != 2 || s.Evictions != 3 {
		t.Errorf("stats after refresh: %+v", s)
	}
}

func TestCacheDisabled(t *testing.T) {
	t.Parallel()
	c := NewContext(Config{CacheSize: -1})
	defer c.Close()
	for i := 0; i < 2; i++ {
		got, err := c.Extract(Text(`{"a":"x"}`), Text("$.a"))
		expectValue(t, "extract", got, err, Text("x"))
	}
	if s := c.Stats(); s.Parses != 2 || s.Hits != 0 {
		t.Errorf("stats: %+v", s)
	}
}

func TestCacheFindsEditedText(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)
	got, err := c.Set(Text(`{"a":1}`), Text("$.b"), Int(2))
	expectJSON(t, "set", got, err, `{"a":1,"b":2}`)

	before := c.Stats()
	got, err = c.Extract(got, Text("$.b"))
	expectValue(t, "extract edited", got, err, Int(2))
	after := c.Stats()
	if after.Parses != before.Parses || after.Hits != before.Hits+1 {
		t.Errorf("expected a cache hit without parsing: before %+v, after %+v", before, after)
	}

	got, err = c.Extract(Text(`{"a":1}`), Text("$.b"))
	if err != nil || !got.IsNull() {
		t.Errorf("original text: got %v, %v", got, err)
	}
}

func TestCacheClose(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer
	c := NewContext(DefaultConfig())
	c.SetLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

	if _, err := c.JSON(Text(`[1]`)); err != nil {
		t.Fatal(err)
	}
	c.Close()
	if _, err := c.JSON(Text(`[1]`)); err != nil {
		t.Fatal(err)
	}
	if s := c.Stats(); s.Parses != 2 || s.Hits != 0 {
		t.Errorf("stats: %+v", s)
	}
	c.Close()

	out := logs.String()
	for _, want := range []string{"closing context", "component=sqljson"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
