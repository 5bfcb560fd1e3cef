// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"testing"
)

// treeText parses in with the tree parser and renders the tree.
func treeText(c *Context, in string) (string, error) {
	d := newTextDocument(c, []byte(in))
	defer d.release()
	if err := d.parseTree(); err != nil {
		return "", err
	}
	var s jsonString
	s.init(0)
	defer s.reset()
	d.renderNode(0, &s)
	b, err := s.bytes()
	return string(b), err
}

// blobText converts in to JSONB and renders the JSONB.
func blobText(in string) (string, error) {
	b, err := Convert([]byte(in), nil)
	if err != nil {
		return "", err
	}
	t, err := renderBlob(b, DefaultConfig())
	return string(t), err
}

func TestParserEquivalence(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)
	f := loadFixtures(t)

	inputs := append([]string(nil), f.Accept...)
	for _, j := range f.JSON5 {
		inputs = append(inputs, j.In)
	}
	for _, in := range inputs {
		fromTree, err := treeText(c, in)
		if err != nil {
			t.Errorf("%s: tree parser: %v", in, err)
			continue
		}
		fromBlob, err := blobText(in)
		if err != nil {
			t.Errorf("%s: blob parser: %v", in, err)
			continue
		}
		if fromTree != fromBlob {
			t.Errorf("%s: tree gives %s, JSONB gives %s", in, fromTree, fromBlob)
		}
	}

	for _, in := range f.Reject {
		if _, err := treeText(c, in); err == nil {
			t.Errorf("%s: tree parser accepted malformed text", in)
		}
		if _, err := blobText(in); err == nil {
			t.Errorf("%s: blob parser accepted malformed text", in)
		}
	}
}

func TestJSON5Normalization(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)

	for _, j := range loadFixtures(t).JSON5 {
		got, err := c.JSON(Text(j.In))
		expectJSON(t, j.In, got, err, j.Out)

		again, err := c.JSON(got)
		expectJSON(t, j.Out+" again", again, err, j.Out)

		valid, err := c.Valid(Text(j.Out), ValidRFC8259)
		expectValue(t, j.Out+" is canonical", valid, err, Int(1))

		valid, err = c.Valid(Text(j.In), ValidJSON5)
		expectValue(t, j.In+" is JSON5", valid, err, Int(1))
	}
}

func TestCanonicalTextUnchanged(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)

	for _, in := range loadFixtures(t).Accept {
		got, err := c.JSON(Text(in))
		if err != nil {
			t.Errorf("%s: %v", in, err)
			continue
		}
		again, err := c.JSON(got)
		expectValue(t, in+" is idempotent", again, err, got)

		valid, err := c.Valid(Text(in), ValidRFC8259)
		expectValue(t, in+" is canonical", valid, err, Int(1))
	}
}

func TestValid(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)

	cases := []struct {
		label  string
		input  Value
		flags  ValidFlags
		expect Value
	}{
		{"rfc 8259", Text(`{"a":1}`), ValidRFC8259, Int(1)},
		{"json5 as rfc 8259", Text(`{a:1}`), ValidRFC8259, Int(0)},
		{"json5", Text(`{a:1}`), ValidJSON5, Int(1)},
		{"json5 with both", Text(`{a:1}`), ValidRFC8259 | ValidJSON5, Int(1)},
		{"malformed", Text(`{`), ValidJSON5, Int(0)},
		{"integer", Int(5), ValidRFC8259, Int(1)},
		{"null", Null(), ValidRFC8259, Null()},
		{"jsonb as text", Blob(mustHex(t, "2b1331")), ValidRFC8259, Int(0)},
		{"jsonb", Blob(mustHex(t, "2b1331")), ValidJSONB, Int(1)},
		{"strict jsonb", Blob(mustHex(t, "2b1331")), ValidJSONBStrict, Int(1)},
		{"bad inner jsonb", Blob(mustHex(t, "2b1361")), ValidJSONB, Int(1)},
		{"bad inner jsonb strict", Blob(mustHex(t, "2b1361")), ValidJSONBStrict, Int(0)},
		{"text blob", Blob([]byte("[1]")), ValidRFC8259, Int(1)},
		{"text blob as jsonb", Blob([]byte("[1]")), ValidJSONB, Int(0)},
	}
	for _, tc := range cases {
		got, err := c.Valid(tc.input, tc.flags)
		expectValue(t, tc.label, got, err, tc.expect)
	}

	for _, flags := range []ValidFlags{0, 16} {
		if _, err := c.Valid(Text("1"), flags); err == nil {
			t.Errorf("flags %d: expected error", flags)
		}
	}
}

// TestValidAfterEdit checks that the canonical text of an edited JSON5
// document, found again in the cache, is reported as RFC 8259.
func TestValidAfterEdit(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)

	got, err := c.Set(Text(`{a:1}`), Text("$.b"), Int(2))
	expectJSON(t, "set", got, err, `{"a":1,"b":2}`)
	valid, err := c.Valid(got, ValidRFC8259)
	expectValue(t, "valid", valid, err, Int(1))
}
