// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestJSONStringInline(t *testing.T) {
	t.Parallel()

	var s jsonString
	s.init(0)
	defer s.reset()
	s.appendChar('[')
	s.appendSeparator()
	s.appendText("1")
	s.appendSeparator()
	s.printf(20, "%d", 22)
	s.appendChar(']')
	got, err := s.bytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "[1,22]" {
		t.Errorf("got %q", got)
	}
	if s.heap != nil {
		t.Error("small content should stay inline")
	}
}

func TestJSONStringSpill(t *testing.T) {
	t.Parallel()

	var s jsonString
	s.init(0)
	long := strings.Repeat("x", 3*inlineSize)
	s.appendText("ab")
	s.appendText(long)
	if s.heap == nil {
		t.Fatal("large content should move to a pooled buffer")
	}
	got, err := s.detach()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "ab"+long {
		t.Errorf("detached %d bytes, expected %d", len(got), len(long)+2)
	}
	if s.heap != nil || s.len() != 0 {
		t.Error("detach should leave the string empty")
	}

	// Detaching inline content copies it.
	s.appendText("cd")
	got, err = s.detach()
	if err != nil || string(got) != "cd" {
		t.Errorf("inline detach: got %q, %v", got, err)
	}
	s.reset()
}

func TestJSONStringLimit(t *testing.T) {
	t.Parallel()

	var s jsonString
	s.init(4)
	defer s.reset()
	s.appendText("abcd")
	s.appendChar('e')
	s.appendText("f")
	if _, err := s.bytes(); !errors.Is(err, ErrNoMemory) {
		t.Errorf("got %v, expected ErrNoMemory", err)
	}
	if _, err := s.detach(); !errors.Is(err, ErrNoMemory) {
		t.Errorf("detach: got %v, expected ErrNoMemory", err)
	}
}

func TestAppendQuoted(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in     string
		expect string
	}{
		{"", `""`},
		{"plain", `"plain"`},
		{`a"b\c`, `"a\"b\\c"`},
		{"\b\f\n\r\t", `"\b\f\n\r\t"`},
		{"\x00\x1f\v", `"\u0000\u001f\u000b"`},
		{"é/", `"é/"`},
		{strings.Repeat("\n", 60), `"` + strings.Repeat(`\n`, 60) + `"`},
	}
	for _, c := range cases {
		var s jsonString
		s.init(0)
		s.appendQuoted([]byte(c.in))
		got, err := s.bytes()
		s.reset()
		if err != nil {
			t.Errorf("%q: %v", c.in, err)
			continue
		}
		if string(got) != c.expect {
			t.Errorf("%q: got %s, expected %s", c.in, got, c.expect)
		}
	}
}
