// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/pretty"
)

// JSON returns v as minified canonical JSON text.  JSON5 input is
// normalized and JSONB input is rendered.
func (c *Context) JSON(v Value) (Value, error) {
	d, err := c.document(v, false, false)
	if err != nil || d == nil {
		return Null(), err
	}
	defer d.release()
	t, err := d.text()
	if err != nil {
		return Null(), err
	}
	return JSONText(string(t)), nil
}

// JSONB returns v converted to JSONB.
func (c *Context) JSONB(v Value) (Value, error) {
	d, err := c.document(v, false, false)
	if err != nil || d == nil {
		return Null(), err
	}
	defer d.release()
	b, err := d.binary()
	if err != nil {
		return Null(), err
	}
	return Blob(append([]byte(nil), b...)), nil
}

// ValidFlags selects what Valid accepts.  Flags may be combined.
type ValidFlags int

const (
	ValidRFC8259     ValidFlags = 1 << iota // canonical JSON text
	ValidJSON5                              // JSON5 text
	ValidJSONB                              // JSONB whose outer header is sound
	ValidJSONBStrict                        // JSONB that is sound throughout
)

// Valid returns 1 if v is well-formed according to flags, else 0.
func (c *Context) Valid(v Value, flags ValidFlags) (Value, error) {
	if flags < 1 || flags > 15 {
		return Null(), errors.New("FLAGS parameter to json_valid() must be between 1 and 15")
	}
	if v.IsNull() {
		return Null(), nil
	}
	if v.Type == TypeBlob && IsJSONB(v.Blob) {
		switch {
		case flags&ValidJSONB != 0:
			return Int(1), nil
		case flags&ValidJSONBStrict != 0:
			return boolValue(checkJSONB(v.Blob, c.cfg.MaxDepth) == 0), nil
		}
		return Int(0), nil
	}
	if flags&(ValidRFC8259|ValidJSON5) == 0 {
		return Int(0), nil
	}
	if v.Type == TypeBlob {
		v = Text(string(v.Blob))
	}
	d, err := c.document(v, false, false)
	if err != nil {
		if errors.Is(err, ErrNoMemory) {
			return Null(), err
		}
		return Int(0), nil
	}
	defer d.release()
	if flags&ValidJSON5 != 0 {
		return Int(1), nil
	}
	return boolValue(!d.hasNonstd || d.useMod), nil
}

func boolValue(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// ErrorPosition returns 0 if v is well-formed JSON or JSONB.  Otherwise it
// returns the 1-based character position of the first error in text, or
// one more than the byte offset of the first bad element of a JSONB blob.
func (c *Context) ErrorPosition(v Value) (Value, error) {
	if v.IsNull() {
		return Null(), nil
	}
	if v.Type == TypeBlob {
		if IsJSONB(v.Blob) {
			return Int(int64(checkJSONB(v.Blob, c.cfg.MaxDepth))), nil
		}
		v = Text(string(v.Blob))
	}
	d, err := c.document(v, false, false)
	if err == nil {
		d.release()
		return Int(0), nil
	}
	off, ok := errorOffset(err)
	if !ok {
		return Null(), err
	}
	z := v.textBytes()
	n := int64(1)
	for k := 0; k < off && k < len(z); k++ {
		if z[k]&0xc0 != 0x80 {
			n++
		}
	}
	return Int(n), nil
}

type extractFlags uint8

const (
	extractJSON   extractFlags = 1 << iota // always return JSON (->)
	extractSQL                             // always return an SQL value (->>)
	extractBlob                            // return JSONB
	extractAbbrev                          // accept abbreviated paths
)

// Extract returns the element at each path.  With one path, scalars are
// returned as SQL values and containers as JSON text.  With several, the
// results are returned as a JSON array with null for missing elements.
func (c *Context) Extract(doc Value, paths ...Value) (Value, error) {
	return c.extract(doc, paths, 0)
}

// ExtractB is Extract returning JSONB.
func (c *Context) ExtractB(doc Value, paths ...Value) (Value, error) {
	return c.extract(doc, paths, extractBlob)
}

// Arrow implements the -> operator: the element at path as JSON text.  The
// path may be abbreviated to a label or an array index.
func (c *Context) Arrow(doc, path Value) (Value, error) {
	return c.extract(doc, []Value{path}, extractJSON|extractAbbrev)
}

// ArrowText implements the ->> operator: the element at path as an SQL
// value.
func (c *Context) ArrowText(doc, path Value) (Value, error) {
	return c.extract(doc, []Value{path}, extractSQL|extractAbbrev)
}

func (c *Context) extract(doc Value, paths []Value, flags extractFlags) (Value, error) {
	if len(paths) == 0 {
		return Null(), nil
	}
	d, err := c.document(doc, false, false)
	if err != nil || d == nil {
		return Null(), err
	}
	defer d.release()
	b, err := d.binary()
	if err != nil {
		return Null(), err
	}

	if len(paths) == 1 {
		if paths[0].IsNull() {
			return Null(), nil
		}
		text := paths[0].String()
		if flags&extractAbbrev != 0 {
			text = abbreviatePath(paths[0])
		}
		i, found, err := c.find(b, text)
		if err != nil || !found {
			return Null(), err
		}
		return c.elementValue(b, i, flags)
	}

	if flags&extractBlob != 0 {
		out := reserveHeader(nil, KindArray)
		for _, pv := range paths {
			i, found := -1, false
			if !pv.IsNull() {
				if i, found, err = c.find(b, pv.String()); err != nil {
					return Null(), err
				}
			}
			if !found {
				out = append(out, byte(KindNull))
				continue
			}
			_, hdr, sz, _ := elementAt(b, i)
			out = append(out, b[i:i+hdr+sz]...)
		}
		out, _ = rewriteHeaderSize(out, 0, len(out)-reservedHeaderLen)
		return Blob(out), nil
	}

	var s jsonString
	s.init(c.cfg.MaxLength)
	defer s.reset()
	s.appendChar('[')
	for _, pv := range paths {
		i, found := -1, false
		if !pv.IsNull() {
			if i, found, err = c.find(b, pv.String()); err != nil {
				return Null(), err
			}
		}
		s.appendSeparator()
		if !found {
			s.appendText("null")
			continue
		}
		appendBlob(&s, b, i, 0, c.cfg.MaxDepth)
	}
	s.appendChar(']')
	return c.jsonResult(&s)
}

// find compiles path and looks it up in the JSONB document b.
func (c *Context) find(b []byte, path string) (int, bool, error) {
	p, err := compilePath(path)
	if err != nil {
		return 0, false, err
	}
	e := blobEditor{b: b}
	i, res := e.find(p.steps)
	switch res {
	case lookupMalformed:
		return 0, false, ErrMalformed
	case lookupNotFound:
		return 0, false, nil
	}
	return i, true, nil
}

// elementValue converts the element at b[i] to a result.
func (c *Context) elementValue(b []byte, i int, flags extractFlags) (Value, error) {
	kind, hdr, sz, ok := elementAt(b, i)
	if !ok {
		return Null(), ErrMalformed
	}
	if flags&extractBlob != 0 {
		return Blob(append([]byte(nil), b[i:i+hdr+sz]...)), nil
	}
	if flags&extractJSON != 0 || kind.isContainer() {
		t, err := renderBlob(b[i:i+hdr+sz], c.cfg)
		if err != nil {
			return Null(), err
		}
		if flags&extractSQL != 0 {
			return Text(string(t)), nil
		}
		return JSONText(string(t)), nil
	}
	return scalarValue(kind, b[i+hdr:i+hdr+sz])
}

func (c *Context) jsonResult(s *jsonString) (Value, error) {
	b, err := s.bytes()
	if err != nil {
		return Null(), err
	}
	return JSONText(string(b)), nil
}

// Quote returns v as a JSON value: text is quoted, numbers and NULL are
// written as JSON and JSON text is returned unchanged.
func (c *Context) Quote(v Value) (Value, error) {
	var s jsonString
	s.init(c.cfg.MaxLength)
	defer s.reset()
	c.appendValue(&s, v)
	return c.jsonResult(&s)
}

// Array returns a JSON array of vals.
func (c *Context) Array(vals ...Value) (Value, error) {
	var s jsonString
	s.init(c.cfg.MaxLength)
	defer s.reset()
	s.appendChar('[')
	for _, v := range vals {
		s.appendSeparator()
		c.appendValue(&s, v)
	}
	s.appendChar(']')
	return c.jsonResult(&s)
}

// ArrayB is Array returning JSONB.
func (c *Context) ArrayB(vals ...Value) (Value, error) {
	out := reserveHeader(nil, KindArray)
	var err error
	for _, v := range vals {
		if out, err = c.appendValueBlob(out, v); err != nil {
			return Null(), err
		}
	}
	return c.blobResult(out)
}

func (c *Context) blobResult(out []byte) (Value, error) {
	if len(out)-reservedHeaderLen > c.cfg.MaxLength {
		return Null(), ErrNoMemory
	}
	out, _ = rewriteHeaderSize(out, 0, len(out)-reservedHeaderLen)
	return Blob(out), nil
}

// Object returns a JSON object built from alternating labels and values.
// Labels must be text.
func (c *Context) Object(pairs ...Value) (Value, error) {
	if err := checkPairs(pairs); err != nil {
		return Null(), err
	}
	var s jsonString
	s.init(c.cfg.MaxLength)
	defer s.reset()
	s.appendChar('{')
	for i := 0; i < len(pairs); i += 2 {
		s.appendSeparator()
		s.appendQuoted([]byte(pairs[i].Text))
		s.appendChar(':')
		c.appendValue(&s, pairs[i+1])
	}
	s.appendChar('}')
	return c.jsonResult(&s)
}

// ObjectB is Object returning JSONB.
func (c *Context) ObjectB(pairs ...Value) (Value, error) {
	if err := checkPairs(pairs); err != nil {
		return Null(), err
	}
	out := reserveHeader(nil, KindObject)
	var err error
	for i := 0; i < len(pairs); i += 2 {
		out = appendHeader(out, KindTextRaw, len(pairs[i].Text))
		out = append(out, pairs[i].Text...)
		if out, err = c.appendValueBlob(out, pairs[i+1]); err != nil {
			return Null(), err
		}
	}
	return c.blobResult(out)
}

func checkPairs(pairs []Value) error {
	if len(pairs)%2 != 0 {
		return errors.New("json_object() requires an even number of arguments")
	}
	for i := 0; i < len(pairs); i += 2 {
		if pairs[i].Type != TypeText {
			return errors.New("json_object() labels must be TEXT")
		}
	}
	return nil
}

// locate returns the JSONB form of doc and the offset of the element at the
// optional path.  found is false for NULL arguments and missing elements.
func (c *Context) locate(doc Value, path []Value) (b []byte, i int, found bool, err error) {
	d, err := c.document(doc, false, false)
	if err != nil || d == nil {
		return nil, 0, false, err
	}
	defer d.release()
	if b, err = d.binary(); err != nil {
		return nil, 0, false, err
	}
	if len(path) == 0 {
		return b, 0, true, nil
	}
	if path[0].IsNull() {
		return nil, 0, false, nil
	}
	i, found, err = c.find(b, path[0].String())
	return b, i, found, err
}

// ArrayLength returns the number of elements of the array at the optional
// path, or 0 if the element is not an array.
func (c *Context) ArrayLength(doc Value, path ...Value) (Value, error) {
	b, i, found, err := c.locate(doc, path)
	if err != nil || !found {
		return Null(), err
	}
	kind, hdr, sz, ok := elementAt(b, i)
	if !ok {
		return Null(), ErrMalformed
	}
	if kind != KindArray {
		return Int(0), nil
	}
	n, ok := countElements(b, i+hdr, i+hdr+sz)
	if !ok {
		return Null(), ErrMalformed
	}
	return Int(int64(n)), nil
}

// Type returns the type name of the element at the optional path: null,
// true, false, integer, real, text, array or object.
func (c *Context) Type(doc Value, path ...Value) (Value, error) {
	b, i, found, err := c.locate(doc, path)
	if err != nil || !found {
		return Null(), err
	}
	kind, _, _, ok := elementAt(b, i)
	if !ok || kind > KindObject {
		return Null(), ErrMalformed
	}
	return Text(kind.String()), nil
}

// Set writes each value at its path, creating or overwriting.  args holds
// alternating paths and values.
func (c *Context) Set(doc Value, args ...Value) (Value, error) {
	return c.edit("json_set", doc, args, editSet, false)
}

// SetB is Set returning JSONB.
func (c *Context) SetB(doc Value, args ...Value) (Value, error) {
	return c.edit("jsonb_set", doc, args, editSet, true)
}

// Insert writes each value at its path only where nothing exists yet.
func (c *Context) Insert(doc Value, args ...Value) (Value, error) {
	return c.edit("json_insert", doc, args, editInsert, false)
}

// InsertB is Insert returning JSONB.
func (c *Context) InsertB(doc Value, args ...Value) (Value, error) {
	return c.edit("jsonb_insert", doc, args, editInsert, true)
}

// Replace overwrites each existing element at its path.
func (c *Context) Replace(doc Value, args ...Value) (Value, error) {
	return c.edit("json_replace", doc, args, editReplace, false)
}

// ReplaceB is Replace returning JSONB.
func (c *Context) ReplaceB(doc Value, args ...Value) (Value, error) {
	return c.edit("jsonb_replace", doc, args, editReplace, true)
}

// Remove deletes the element at each path.  Missing paths are ignored.
// Removing the root yields NULL.
func (c *Context) Remove(doc Value, paths ...Value) (Value, error) {
	return c.remove(doc, paths, false)
}

// RemoveB is Remove returning JSONB.
func (c *Context) RemoveB(doc Value, paths ...Value) (Value, error) {
	return c.remove(doc, paths, true)
}

func (c *Context) edit(fn string, doc Value, args []Value, mode editMode, asBlob bool) (Value, error) {
	if len(args)%2 != 0 {
		return Null(), errWrongNumArgs(fn)
	}
	if doc.IsNull() {
		return Null(), nil
	}
	if asBlob || doc.Type == TypeBlob {
		return c.editBinary(doc, args, mode, asBlob)
	}

	paths, err := compilePaths(args, 2)
	if err != nil {
		return Null(), err
	}
	d, err := c.document(doc, true, true)
	if err != nil {
		return Null(), err
	}
	defer d.release()
	d.useMod = true
	for i, p := range paths {
		if p == nil {
			continue
		}
		var apnd bool
		var idx int
		if mode == editReplace {
			idx = d.lookup(p, nil)
		} else {
			idx = d.lookup(p, &apnd)
		}
		if idx < 0 || (mode == editInsert && !apnd) {
			continue
		}
		if err := c.replaceNode(d, idx, args[2*i+1]); err != nil {
			return Null(), err
		}
	}
	return c.treeResult(d)
}

func (c *Context) remove(doc Value, paths []Value, asBlob bool) (Value, error) {
	if doc.IsNull() {
		return Null(), nil
	}
	for _, p := range paths {
		if p.IsNull() {
			return Null(), nil
		}
	}
	if asBlob || doc.Type == TypeBlob {
		return c.editBinary(doc, paths, editDelete, asBlob)
	}

	compiled, err := compilePaths(paths, 1)
	if err != nil {
		return Null(), err
	}
	d, err := c.document(doc, true, true)
	if err != nil {
		return Null(), err
	}
	defer d.release()
	d.useMod = true
	for _, p := range compiled {
		if idx := d.lookup(p, nil); idx >= 0 {
			d.nodes[idx].flags |= flagRemove
			d.hasMod = true
		}
	}
	return c.treeResult(d)
}

// treeResult renders an edited tree and remembers the text so it can be
// found in the cache by later calls.
func (c *Context) treeResult(d *document) (Value, error) {
	root, err := d.resolve(0)
	if err != nil {
		return Null(), err
	}
	if d.nodes[root].flags&flagRemove != 0 {
		return Null(), nil
	}
	if !d.hasMod {
		t, err := d.text()
		if err != nil {
			return Null(), err
		}
		return JSONText(string(t)), nil
	}
	alt, err := d.generateAlt()
	if err != nil {
		return Null(), err
	}
	return JSONText(string(alt)), nil
}

// compilePaths compiles the path in every stride'th argument.  NULL paths
// compile to nil.
func compilePaths(args []Value, stride int) ([]*jsonPath, error) {
	paths := make([]*jsonPath, 0, len(args)/stride)
	for i := 0; i < len(args); i += stride {
		if args[i].IsNull() {
			paths = append(paths, nil)
			continue
		}
		p, err := compilePath(args[i].String())
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// replaceNode makes v the new value of the node at idx.
func (c *Context) replaceNode(d *document, idx int, v Value) error {
	d.addSubst(idx)
	switch v.Type {
	case TypeNull:
		d.addNode(KindNull, nil)
	case TypeInt:
		d.addNode(KindInt, strconv.AppendInt(nil, v.Int, 10))
	case TypeFloat:
		t := formatReal(v.Float)
		if t == "null" {
			d.addNode(KindNull, nil)
		} else {
			d.addNode(KindFloat, []byte(t))
		}
	case TypeText:
		if !v.JSON {
			d.addNode(KindTextRaw, []byte(v.Text))
			return nil
		}
		pd, err := c.document(v, true, true)
		if err != nil {
			return err
		}
		d.appendNodes(pd.nodes[:pd.nodeSize(0)])
		d.cleanups = append(d.cleanups, pd.release)
	case TypeBlob:
		if !IsJSONB(v.Blob) {
			return ErrBlob
		}
		if _, err := d.blobToTree(v.Blob, 0, len(v.Blob), 0); err != nil {
			return err
		}
	}
	return nil
}

// editBinary applies edits to a private copy of the JSONB form of doc.
func (c *Context) editBinary(doc Value, args []Value, mode editMode, asBlob bool) (Value, error) {
	stride := 2
	if mode == editDelete {
		stride = 1
	}
	paths, err := compilePaths(args, stride)
	if err != nil {
		return Null(), err
	}
	d, err := c.document(doc, false, false)
	if err != nil || d == nil {
		return Null(), err
	}
	b, err := d.binary()
	if err != nil {
		d.release()
		return Null(), err
	}
	e := blobEditor{b: append(make([]byte, 0, len(b)+64), b...), mode: mode}
	d.release()

	for i, p := range paths {
		if p == nil {
			continue
		}
		if mode == editDelete && len(p.steps) == 0 {
			return Null(), nil
		}
		if mode != editDelete {
			if e.ins, err = c.appendValueBlob(nil, args[stride*i+1]); err != nil {
				return Null(), err
			}
		}
		if _, res := e.find(p.steps); res == lookupMalformed {
			return Null(), ErrMalformed
		}
		if len(e.b) > c.cfg.MaxLength {
			return Null(), ErrNoMemory
		}
	}
	if asBlob {
		return Blob(e.b), nil
	}
	t, err := renderBlob(e.b, c.cfg)
	if err != nil {
		return Null(), err
	}
	return JSONText(string(t)), nil
}

// Patch applies the RFC 7396 merge patch to target.
func (c *Context) Patch(target, patch Value) (Value, error) {
	return c.patch(target, patch, false)
}

// PatchB is Patch returning JSONB.
func (c *Context) PatchB(target, patch Value) (Value, error) {
	return c.patch(target, patch, true)
}

func (c *Context) patch(target, patch Value, asBlob bool) (Value, error) {
	x, err := c.document(target, true, true)
	if err != nil || x == nil {
		return Null(), err
	}
	defer x.release()
	x.hasMod = true
	y, err := c.document(patch, true, true)
	if err != nil || y == nil {
		return Null(), err
	}
	defer y.release()
	y.hasMod = true
	x.useMod = true
	y.useMod = true

	rd, ri := x.mergePatch(0, y, 0)
	if asBlob {
		b, err := rd.treeToBlob(ri, nil)
		if err != nil {
			return Null(), err
		}
		return Blob(b), nil
	}
	var s jsonString
	s.init(c.cfg.MaxLength)
	defer s.reset()
	rd.renderNode(ri, &s)
	return c.jsonResult(&s)
}

// Pretty returns v as indented JSON text.  indent defaults to four spaces.
func (c *Context) Pretty(v Value, indent ...string) (Value, error) {
	j, err := c.JSON(v)
	if err != nil || j.IsNull() {
		return j, err
	}
	in := "    "
	if len(indent) > 0 && indent[0] != "" {
		in = indent[0]
	}
	out := pretty.PrettyOptions([]byte(j.Text), &pretty.Options{Indent: in})
	return JSONText(strings.TrimSuffix(string(out), "\n")), nil
}
