// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"testing"
)

func TestGroupArray(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)
	a := c.GroupArray()

	got, err := a.Value()
	expectJSON(t, "empty", got, err, `[]`)

	for _, v := range []Value{Int(1), Text(`x"y`), Null(), JSONText(`{"a":[1,2]}`), Float(0.5)} {
		if err := a.Step(v); err != nil {
			t.Fatal(err)
		}
	}
	got, err = a.Value()
	expectJSON(t, "all", got, err, `[1,"x\"y",null,{"a":[1,2]},0.5]`)

	a.Inverse()
	got, err = a.Value()
	expectJSON(t, "inverse once", got, err, `["x\"y",null,{"a":[1,2]},0.5]`)
	a.Inverse()
	a.Inverse()
	got, err = a.Value()
	expectJSON(t, "inverse twice", got, err, `[{"a":[1,2]},0.5]`)
	a.Inverse()
	got, err = a.Value()
	expectJSON(t, "inverse nested", got, err, `[0.5]`)
	a.Inverse()
	got, err = a.Value()
	expectJSON(t, "inverse all", got, err, `[]`)
	a.Inverse()

	if err := a.Step(Int(7)); err != nil {
		t.Fatal(err)
	}
	got, err = a.Final()
	expectJSON(t, "final", got, err, `[7]`)
}

func TestGroupObject(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)
	a := c.GroupObject()

	steps := [][2]Value{
		{Text("a"), Int(1)},
		{Null(), Int(2)},
		{Text("b"), Text(`q,"x`)},
		{Int(3), JSONText(`[true]`)},
	}
	for _, s := range steps {
		if err := a.Step(s[0], s[1]); err != nil {
			t.Fatal(err)
		}
	}
	got, err := a.Value()
	expectJSON(t, "all", got, err, `{"a":1,"b":"q,\"x","3":[true]}`)

	a.Inverse()
	got, err = a.Final()
	expectJSON(t, "inverse", got, err, `{"b":"q,\"x","3":[true]}`)

	got, err = c.GroupObject().Final()
	expectJSON(t, "empty", got, err, `{}`)
}

func TestGroupBlobs(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)

	a := c.GroupArrayB()
	if err := a.Step(Int(1)); err != nil {
		t.Fatal(err)
	}
	got, err := a.Final()
	expectValue(t, "array", got, err, Blob(mustHex(t, "2b1331")))

	o := c.GroupObjectB()
	if err := o.Step(Text("a"), Int(1)); err != nil {
		t.Fatal(err)
	}
	got, err = o.Final()
	expectValue(t, "object", got, err, Blob(mustHex(t, "4c17611331")))

	a = c.GroupArray()
	if err := a.Step(Blob(mustHex(t, "2b1331"))); err != nil {
		t.Fatal(err)
	}
	got, err = a.Final()
	expectJSON(t, "blob element", got, err, `[[1]]`)
}

func TestGroupErrors(t *testing.T) {
	t.Parallel()
	c := newTestContext(t)
	if err := c.GroupArray().Step(); err == nil {
		t.Error("array with no value: expected error")
	}
	if err := c.GroupArray().Step(Int(1), Int(2)); err == nil {
		t.Error("array with two values: expected error")
	}
	if err := c.GroupObject().Step(Text("a")); err == nil {
		t.Error("object with no value: expected error")
	}

	a := c.GroupArray()
	if err := a.Step(Blob([]byte{0xff})); err == nil {
		t.Error("bad blob: expected error")
	}
	if _, err := a.Value(); err == nil {
		t.Error("value after bad blob: expected error")
	}
}
