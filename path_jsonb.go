// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import "bytes"

// editMode selects what happens at the end of a path walk over JSONB.
type editMode uint8

const (
	editNone    editMode = iota // read only
	editDelete                  // remove the element if it exists
	editReplace                 // overwrite the element if it exists
	editInsert                  // create the element if it does not exist
	editSet                     // create or overwrite
)

type lookupResult uint8

const (
	lookupFound lookupResult = iota
	lookupNotFound
	lookupMalformed
)

// blobEditor walks and edits a JSONB buffer.  Edits splice b in place and
// then fix the payload size of every ancestor on the way back up; delta is
// the growth of the element being returned from.
type blobEditor struct {
	b     []byte
	mode  editMode
	ins   []byte // JSONB of the value written by replace, insert and set
	delta int
}

// find returns the offset of the element reached by steps from b[0].
func (e *blobEditor) find(steps []pathStep) (int, lookupResult) {
	e.delta = 0
	return e.step(0, -1, steps)
}

// step walks steps from the element at b[i].  iLabel is the offset of the
// element's object label, or -1; deleting an object member removes both.
func (e *blobEditor) step(i, iLabel int, steps []pathStep) (int, lookupResult) {
	kind, hdr, sz, ok := elementAt(e.b, i)
	if !ok {
		return 0, lookupMalformed
	}
	end := i + hdr + sz
	if len(steps) == 0 {
		switch e.mode {
		case editDelete:
			if iLabel >= 0 {
				i = iLabel
			}
			e.b = splice(e.b, i, end-i, nil)
			e.delta = i - end
		case editReplace, editSet:
			e.b = splice(e.b, i, end-i, e.ins)
			e.delta = len(e.ins) - (end - i)
		}
		return i, lookupFound
	}
	st := steps[0]
	switch st.typ {
	case stepLabel:
		if kind != KindObject {
			return 0, lookupNotFound
		}
		j := i + hdr
		for j < end {
			lk, lh, ls, ok := elementAt(e.b[:end], j)
			if !ok || !lk.isText() {
				return 0, lookupMalformed
			}
			v := j + lh + ls
			_, vh, vs, ok := elementAt(e.b[:end], v)
			if !ok {
				return 0, lookupMalformed
			}
			if bytes.Equal(e.b[j+lh:v], st.label) {
				r, res := e.step(v, j, steps[1:])
				if e.delta != 0 {
					e.adjust(i)
				}
				return r, res
			}
			j = v + vh + vs
		}
		if j > end {
			return 0, lookupMalformed
		}
		if e.mode < editInsert {
			return 0, lookupNotFound
		}
		sub, ok := e.substructure(steps[1:])
		if !ok {
			return 0, lookupNotFound
		}
		ins := appendHeader(nil, KindTextRaw, len(st.label))
		ins = append(ins, st.label...)
		ins = append(ins, sub...)
		return e.insertAt(i, end, ins), lookupFound

	default:
		if kind != KindArray {
			return 0, lookupNotFound
		}
		k := st.index
		if st.typ == stepFromEnd {
			n, ok := countElements(e.b, i+hdr, end)
			if !ok {
				return 0, lookupMalformed
			}
			if k > n {
				return 0, lookupNotFound
			}
			k = n - k
		}
		j := i + hdr
		for j < end {
			if k == 0 {
				r, res := e.step(j, -1, steps[1:])
				if e.delta != 0 {
					e.adjust(i)
				}
				return r, res
			}
			k--
			_, h, s, ok := elementAt(e.b[:end], j)
			if !ok {
				return 0, lookupMalformed
			}
			j += h + s
		}
		if j > end {
			return 0, lookupMalformed
		}
		if k != 0 || e.mode < editInsert {
			return 0, lookupNotFound
		}
		sub, ok := e.substructure(steps[1:])
		if !ok {
			return 0, lookupNotFound
		}
		return e.insertAt(i, end, sub), lookupFound
	}
}

// insertAt adds ins at the end of the container at b[i] whose payload ends
// at end, and returns the offset of the inserted bytes.
func (e *blobEditor) insertAt(i, end int, ins []byte) int {
	e.b = splice(e.b, end, 0, ins)
	e.delta = len(ins)
	e.adjust(i)
	return end
}

// adjust rewrites the header of the container at b[i] after a child grew by
// e.delta bytes, and adds any change in header length to e.delta.
func (e *blobEditor) adjust(i int) {
	_, sz := payloadSize(e.b, i)
	var d int
	e.b, d = rewriteHeaderSize(e.b, i, sz+e.delta)
	e.delta += d
}

// substructure builds the JSONB for the part of a path that does not exist
// yet: nested empty containers with e.ins at the innermost position.
func (e *blobEditor) substructure(steps []pathStep) ([]byte, bool) {
	if len(steps) == 0 {
		return e.ins, true
	}
	kind := KindArray
	if steps[0].typ == stepLabel {
		kind = KindObject
	}
	sub := &blobEditor{b: []byte{byte(kind)}, mode: editInsert, ins: e.ins}
	if _, res := sub.step(0, -1, steps); res != lookupFound {
		return nil, false
	}
	return sub.b, true
}

func countElements(b []byte, j, end int) (int, bool) {
	n := 0
	for j < end {
		_, h, s, ok := elementAt(b[:end], j)
		if !ok {
			return 0, false
		}
		j += h + s
		n++
	}
	return n, j == end
}
