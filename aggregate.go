// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import "github.com/cockroachdb/errors"

// Aggregate accumulates values into a JSON array or object, the way the
// group aggregate functions do.  It supports window use: Inverse removes
// the oldest entry.
type Aggregate struct {
	c      *Context
	object bool
	asBlob bool
	s      jsonString
	n      int
}

// GroupArray returns an aggregate building a JSON array.
func (c *Context) GroupArray() *Aggregate { return c.newAggregate(false, false) }

// GroupArrayB is GroupArray returning JSONB.
func (c *Context) GroupArrayB() *Aggregate { return c.newAggregate(false, true) }

// GroupObject returns an aggregate building a JSON object from label and
// value pairs.
func (c *Context) GroupObject() *Aggregate { return c.newAggregate(true, false) }

// GroupObjectB is GroupObject returning JSONB.
func (c *Context) GroupObjectB() *Aggregate { return c.newAggregate(true, true) }

func (c *Context) newAggregate(object, asBlob bool) *Aggregate {
	a := &Aggregate{c: c, object: object, asBlob: asBlob}
	a.s.init(c.cfg.MaxLength)
	return a
}

func (a *Aggregate) open() byte {
	if a.object {
		return '{'
	}
	return '['
}

// Step adds one entry.  Arrays take one value; objects take a label and a
// value, and entries with a NULL label are skipped.
func (a *Aggregate) Step(args ...Value) error {
	if a.object {
		if len(args) != 2 {
			return errors.New("json_group_object() needs a label and a value")
		}
		if args[0].IsNull() {
			return nil
		}
	} else if len(args) != 1 {
		return errors.New("json_group_array() needs exactly one value")
	}
	if a.s.len() == 0 {
		a.s.appendChar(a.open())
	} else {
		a.s.appendChar(',')
	}
	if a.object {
		a.s.appendQuoted([]byte(args[0].String()))
		a.s.appendChar(':')
		args = args[1:]
	}
	a.c.appendValue(&a.s, args[0])
	a.n++
	return a.s.err
}

// Inverse removes the oldest entry.
func (a *Aggregate) Inverse() {
	if a.n == 0 || a.s.err != nil {
		return
	}
	a.n--
	z := a.s.buf
	if a.n == 0 {
		a.s.buf = z[:0]
		return
	}
	// Find the first comma outside any string or nested container.
	depth, inStr := 0, false
	i := 1
	for ; i < len(z); i++ {
		c := z[i]
		if inStr {
			switch c {
			case '\\':
				i++
			case '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
		case ',':
			if depth == 0 {
				a.s.buf = append(z[:1], z[i+1:]...)
				return
			}
		}
	}
}

// Value returns the current result without ending the aggregate.
func (a *Aggregate) Value() (Value, error) {
	if a.s.err != nil {
		return Null(), a.s.err
	}
	var s jsonString
	s.init(a.c.cfg.MaxLength)
	defer s.reset()
	if a.s.len() == 0 {
		s.appendChar(a.open())
	} else {
		s.appendRaw(a.s.buf)
	}
	if a.object {
		s.appendChar('}')
	} else {
		s.appendChar(']')
	}
	t, err := s.bytes()
	if err != nil {
		return Null(), err
	}
	if !a.asBlob {
		return JSONText(string(t)), nil
	}
	return a.c.JSONB(JSONText(string(t)))
}

// Final returns the result and releases the aggregate's storage.
func (a *Aggregate) Final() (Value, error) {
	v, err := a.Value()
	a.s.reset()
	a.n = 0
	return v, err
}
