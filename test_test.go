// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"bytes"
	"encoding/hex"
	"os"
	"strings"
	"testing"

	yaml "github.com/goccy/go-yaml"
	"go.mongodb.org/mongo-driver/bson"
)

// conversionTestCase describes converting JSON text.  output is the
// expected result in hex; errStr, if set, is a substring of the expected
// error.
type conversionTestCase struct {
	label  string
	input  string
	output string
	errStr string
}

// testWithConvert converts each input to JSONB and then to BSON and
// compares the BSON.
func testWithConvert(t *testing.T, cases []conversionTestCase) {
	t.Helper()
	testConversion(t, cases, func(in []byte) ([]byte, error) {
		jsonb, err := Convert(in, make([]byte, 0, 256))
		if err != nil {
			return nil, err
		}
		return ToBSON(jsonb, make([]byte, 0, 256))
	})
}

// testWithJSONB converts each input to JSONB and compares it.
func testWithJSONB(t *testing.T, cases []conversionTestCase) {
	t.Helper()
	testConversion(t, cases, func(in []byte) ([]byte, error) {
		return Convert(in, make([]byte, 0, 256))
	})
}

func testConversion(t *testing.T, cases []conversionTestCase, convert func([]byte) ([]byte, error)) {
	t.Helper()

	for _, c := range cases {
		c := c
		t.Run(c.label, func(t *testing.T) {
			t.Parallel()

			buf, err := convert([]byte(c.input))
			if c.errStr != "" {
				var got string
				if err != nil {
					got = err.Error()
				}
				if !strings.Contains(got, c.errStr) {
					t.Errorf("expected error with '%s', but got %v", c.errStr, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			expect := mustHex(t, c.output)
			if !bytes.Equal(expect, buf) {
				t.Fatalf("conversion doesn't match expected:\nGot:    %v\nExpect: %v", hex.EncodeToString(buf), strings.ToLower(c.output))
			}
		})
	}
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ToLower(s))
	if err != nil {
		t.Fatalf("error decoding test hex %q: %v", s, err)
	}
	return b
}

// newTestContext returns a Context whose cache is released when the test
// ends.
func newTestContext(t *testing.T) *Context {
	t.Helper()
	c := NewContext(DefaultConfig())
	t.Cleanup(c.Close)
	return c
}

// expectValue compares a function result, failing on error.
func expectValue(t *testing.T, label string, got Value, err error, expect Value) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", label, err)
		return
	}
	if !got.Equal(expect) {
		t.Errorf("%s: got %#v, expected %#v", label, got, expect)
	}
}

// expectJSON compares a function result with JSON text.
func expectJSON(t *testing.T, label string, got Value, err error, expect string) {
	t.Helper()
	expectValue(t, label, got, err, JSONText(expect))
}

func convertWithGoDriver(input []byte) ([]byte, error) {
	var got bson.Raw
	err := bson.UnmarshalExtJSON(input, false, &got)
	return got, err
}

// fixtures mirrors testdata/parse.yaml.
type fixtures struct {
	Accept []string `yaml:"accept"`
	Reject []string `yaml:"reject"`
	JSON5  []struct {
		In  string `yaml:"in"`
		Out string `yaml:"out"`
	} `yaml:"json5"`
}

func loadFixtures(t *testing.T) fixtures {
	t.Helper()
	data, err := os.ReadFile("testdata/parse.yaml")
	if err != nil {
		t.Fatal(err)
	}
	var f fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		t.Fatalf("decoding testdata/parse.yaml: %v", err)
	}
	return f
}
