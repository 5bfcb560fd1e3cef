// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestParseError(t *testing.T) {
	t.Parallel()
	_, err := Convert([]byte(`{,}`), nil)
	if err == nil {
		t.Fatal("expected error but got nil")
	}
	wrapped := fmt.Errorf("wrapped: %w", err)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatal("error wasn't a ParseError")
	}
	if pe.Offset != 1 {
		t.Errorf("offset: got %d, expected 1", pe.Offset)
	}
	if !errors.As(wrapped, &pe) {
		t.Fatal("wrapped error wasn't a ParseError")
	}
	if !errors.Is(wrapped, ErrMalformed) {
		t.Error("wrapped error isn't ErrMalformed")
	}
	if errors.Is(err, ErrTooDeep) {
		t.Error("syntax error shouldn't be ErrTooDeep")
	}
}

func TestDepthError(t *testing.T) {
	t.Parallel()
	c := NewContext(Config{MaxDepth: 2})
	defer c.Close()

	if _, err := c.JSON(Text("[[1]]")); err != nil {
		t.Fatalf("depth 2: unexpected error: %v", err)
	}
	_, err := c.JSON(Text("[[[1]]]"))
	if err == nil {
		t.Fatal("depth 3: expected error")
	}
	if !errors.Is(err, ErrTooDeep) || !errors.Is(err, ErrMalformed) {
		t.Errorf("depth 3: got %v, expected ErrTooDeep marked ErrMalformed", err)
	}
	if err.Error() != "maximum depth exceeded at byte 2" {
		t.Errorf("depth 3: got message %q", err.Error())
	}
}

func TestErrorPosition(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)

	cases := []struct {
		label  string
		input  Value
		expect Value
	}{
		{"valid", Text(`{"a":[1,2]}`), Int(0)},
		{"trailing comma", Text(`[1,2,]`), Int(6)},
		{"valid json5", Text(`{a:[1,2]}`), Int(0)},
		{"missing key", Text(`{,}`), Int(2)},
		{"trailing text", Text(`[1] x`), Int(5)},
		{"multibyte", Text(`"é" x`), Int(5)},
		{"empty", Text(""), Int(1)},
		{"null", Null(), Null()},
		{"valid jsonb", Blob(mustHex(t, "2b1331")), Int(0)},
		{"short jsonb element", Blob(mustHex(t, "2b2331")), Int(2)},
		{"bad jsonb integer", Blob(mustHex(t, "2b1361")), Int(2)},
		{"text in blob", Blob([]byte("[1,")), Int(4)},
	}
	for _, tc := range cases {
		got, err := c.ErrorPosition(tc.input)
		expectValue(t, tc.label, got, err, tc.expect)
	}
}

func TestPathError(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)

	for _, path := range []string{"a", "$.", "$[", "$[1", "$[x]", `$."a`, "$.a[#-]", "$a"} {
		_, err := c.Extract(Text(`{"a":[1]}`), Text(path))
		var pe *PathError
		if !errors.As(err, &pe) {
			t.Errorf("%s: expected PathError, got %v", path, err)
			continue
		}
		if pe.Path != path {
			t.Errorf("%s: error path is %q", path, pe.Path)
		}
	}
}

func TestBlobError(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)

	_, err := c.Array(Blob([]byte{0xff, 0x00}))
	if !errors.Is(err, ErrBlob) {
		t.Errorf("got %v, expected ErrBlob", err)
	}
	_, err = c.Extract(Blob([]byte{0xff, 0x00}), Text("$"))
	if !errors.Is(err, ErrBlob) {
		t.Errorf("got %v, expected ErrBlob", err)
	}
}

func TestMaxLength(t *testing.T) {
	t.Parallel()
	c := NewContext(Config{MaxLength: 16})
	defer c.Close()

	if _, err := c.Array(Text("short")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := c.Array(Text("this text is rather too long"))
	if !errors.Is(err, ErrNoMemory) {
		t.Errorf("got %v, expected ErrNoMemory", err)
	}
}
