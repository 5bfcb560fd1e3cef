// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"bytes"
	"testing"
)

// RFC 7396 Appendix A.
var mergePatchCases = []struct {
	target string
	patch  string
	result string
}{
	{`{"a":"b"}`, `{"a":"c"}`, `{"a":"c"}`},
	{`{"a":"b"}`, `{"b":"c"}`, `{"a":"b","b":"c"}`},
	{`{"a":"b"}`, `{"a":null}`, `{}`},
	{`{"a":"b","b":"c"}`, `{"a":null}`, `{"b":"c"}`},
	{`{"a":["b"]}`, `{"a":"c"}`, `{"a":"c"}`},
	{`{"a":"c"}`, `{"a":["b"]}`, `{"a":["b"]}`},
	{`{"a":{"b":"c"}}`, `{"a":{"b":"d","c":null}}`, `{"a":{"b":"d"}}`},
	{`{"a":[{"b":"c"}]}`, `{"a":[1]}`, `{"a":[1]}`},
	{`["a","b"]`, `["c","d"]`, `["c","d"]`},
	{`{"a":"b"}`, `["c"]`, `["c"]`},
	{`{"a":"foo"}`, `null`, `null`},
	{`{"a":"foo"}`, `"bar"`, `"bar"`},
	{`{"e":null}`, `{"a":1}`, `{"e":null,"a":1}`},
	{`[1,2]`, `{"a":"b","c":null}`, `{"a":"b"}`},
	{`{}`, `{"a":{"bb":{"ccc":null}}}`, `{"a":{"bb":{}}}`},
}

func TestPatch(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)
	for _, p := range mergePatchCases {
		got, err := c.Patch(Text(p.target), Text(p.patch))
		expectJSON(t, p.target+" + "+p.patch, got, err, p.result)
	}
}

func TestPatchBlobs(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)
	for _, p := range mergePatchCases {
		label := p.target + " + " + p.patch
		target, err := c.JSONB(Text(p.target))
		if err != nil {
			t.Fatalf("%s: %v", label, err)
		}
		got, err := c.PatchB(target, Text(p.patch))
		if err != nil {
			t.Errorf("%s: unexpected error: %v", label, err)
			continue
		}
		if got.Type != TypeBlob {
			t.Errorf("%s: expected a blob, got %v", label, got.Type)
			continue
		}
		text, err := c.JSON(got)
		expectJSON(t, label, text, err, p.result)
	}

	got, err := c.PatchB(Text(`{"a":1}`), Text(`{"b":2}`))
	if err != nil {
		t.Fatal(err)
	}
	if expect := mustHex(t, "8c1761133117621332"); !bytes.Equal(got.Blob, expect) {
		t.Errorf("got %x, expected %x", got.Blob, expect)
	}
}

func TestPatchRepeated(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)
	for i := 0; i < 3; i++ {
		got, err := c.Patch(Text(`{"a":1,"b":2}`), Text(`{"b":null,"c":3}`))
		expectJSON(t, "repeat", got, err, `{"a":1,"c":3}`)
	}
	got, err := c.Extract(Text(`{"a":1,"b":2}`), Text("$.b"))
	expectValue(t, "original", got, err, Int(2))
}

func TestPatchNullsAndErrors(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)
	if got, err := c.Patch(Null(), Text(`{}`)); err != nil || !got.IsNull() {
		t.Errorf("NULL target: got %v, %v", got, err)
	}
	if got, err := c.Patch(Text(`{}`), Null()); err != nil || !got.IsNull() {
		t.Errorf("NULL patch: got %v, %v", got, err)
	}
	if _, err := c.Patch(Text(`{`), Text(`{}`)); err == nil {
		t.Error("malformed target: expected error")
	}
	if _, err := c.Patch(Text(`{}`), Text(`{"a":}`)); err == nil {
		t.Error("malformed patch: expected error")
	}
	got, err := c.Patch(Text(`{a:1}`), Text(`{b:0x10}`))
	expectJSON(t, "json5", got, err, `{"a":1,"b":16}`)
}
