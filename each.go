// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"strconv"
	"strings"
)

// Row is one row produced by Each or Tree.
type Row struct {
	Key     Value // label or array index; NULL for the root
	Value   Value // SQL value, or JSON text for containers
	Type    string
	Atom    Value // SQL value for scalars, NULL for containers
	ID      int64
	Parent  Value // ID of the containing element (Tree only)
	FullKey string
	Path    string
}

// Cursor iterates rows of Each or Tree.
type Cursor struct {
	rows []Row
	pos  int
	err  error
}

// Next advances to the next row and reports whether there is one.
func (c *Cursor) Next() bool {
	if c.err != nil || c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

// Row returns the current row.
func (c *Cursor) Row() Row { return c.rows[c.pos-1] }

// Err returns the error that ended iteration, if any.
func (c *Cursor) Err() error { return c.err }

// Each returns rows for the direct children of the element at root, or a
// single row if that element is a scalar.  An empty root means "$".
func (c *Context) Each(v Value, root string) *Cursor {
	return c.iterate(v, root, false)
}

// Tree returns rows for the element at root and all of its descendants in
// pre-order.
func (c *Context) Tree(v Value, root string) *Cursor {
	return c.iterate(v, root, true)
}

type eachWalker struct {
	c    *Context
	d    *document
	up   []int
	rows []Row
	err  error
}

func (c *Context) iterate(v Value, root string, recursive bool) *Cursor {
	if root == "" {
		root = "$"
	}
	p, err := compilePath(root)
	if err != nil {
		return &Cursor{err: err}
	}
	d, err := c.document(v, true, true)
	if err != nil || d == nil {
		return &Cursor{err: err}
	}
	defer d.release()
	idx := d.lookup(p, nil)
	if idx < 0 {
		return &Cursor{}
	}
	w := &eachWalker{c: c, d: d, up: d.parents()}
	if recursive {
		w.tree(idx, root)
	} else {
		w.each(idx, root)
	}
	return &Cursor{rows: w.rows, err: w.err}
}

func (w *eachWalker) each(idx int, root string) {
	d := w.d
	nd := &d.nodes[idx]
	if !nd.kind.isContainer() {
		row := w.row(idx, Null())
		row.Key = w.keyOf(idx)
		row.FullKey = root
		row.Path = root
		if row.Key.Type != TypeNull {
			row.Path = parentPath(root)
		}
		w.rows = append(w.rows, row)
		return
	}
	n := 0
	for j := 1; j <= nd.n; j += d.nodeSize(idx + j) {
		child := idx + j
		if nd.kind == KindObject {
			child++
		}
		row := w.row(child, Null())
		if nd.kind == KindObject {
			row.Key = w.label(idx + j)
			row.FullKey = root + labelStep(d.nodes[idx+j].content)
			j++
		} else {
			row.Key = Int(int64(n))
			row.FullKey = root + "[" + strconv.Itoa(n) + "]"
		}
		row.Path = root
		w.rows = append(w.rows, row)
		n++
	}
}

func (w *eachWalker) tree(idx int, root string) {
	row := w.row(idx, Null())
	row.Key = w.keyOf(idx)
	row.FullKey = root
	row.Path = root
	if row.Key.Type != TypeNull {
		row.Path = parentPath(root)
	}
	w.rows = append(w.rows, row)
	w.descend(idx, root)
}

func (w *eachWalker) descend(idx int, full string) {
	d := w.d
	nd := &d.nodes[idx]
	if !nd.kind.isContainer() {
		return
	}
	n := 0
	for j := 1; j <= nd.n; j += d.nodeSize(idx + j) {
		child := idx + j
		var row Row
		var childFull string
		if nd.kind == KindObject {
			child++
			row = w.row(child, Int(int64(idx)))
			row.Key = w.label(idx + j)
			childFull = full + labelStep(d.nodes[idx+j].content)
			j++
		} else {
			row = w.row(child, Int(int64(idx)))
			row.Key = Int(int64(n))
			childFull = full + "[" + strconv.Itoa(n) + "]"
		}
		row.FullKey = childFull
		row.Path = full
		w.rows = append(w.rows, row)
		w.descend(child, childFull)
		n++
	}
}

// row fills the value columns for the node at idx.
func (w *eachWalker) row(idx int, parent Value) Row {
	nd := &w.d.nodes[idx]
	r := Row{
		Type:   nd.kind.String(),
		ID:     int64(idx),
		Parent: parent,
		Atom:   Null(),
	}
	if nd.kind.isContainer() {
		var s jsonString
		s.init(w.c.cfg.MaxLength)
		w.d.renderNode(idx, &s)
		t, err := s.bytes()
		s.reset()
		if err != nil && w.err == nil {
			w.err = err
		}
		r.Value = JSONText(string(t))
		return r
	}
	v, err := scalarValue(nd.kind, nd.content)
	if err != nil && w.err == nil {
		w.err = err
	}
	r.Value = v
	r.Atom = v
	return r
}

// keyOf returns the key of the node at idx within its parent, or NULL for
// the document root.
func (w *eachWalker) keyOf(idx int) Value {
	p := w.up[idx]
	if p < 0 {
		return Null()
	}
	if w.d.nodes[p].kind == KindObject {
		return w.label(idx - 1)
	}
	n := 0
	for j := 1; p+j < idx; j += w.d.nodeSize(p + j) {
		n++
	}
	return Int(int64(n))
}

func (w *eachWalker) label(idx int) Value {
	nd := &w.d.nodes[idx]
	v, err := scalarValue(nd.kind, nd.content)
	if err != nil && w.err == nil {
		w.err = err
	}
	return v
}

// labelStep returns the path step selecting label.  Labels that are not
// plain identifiers are quoted.
func labelStep(label []byte) string {
	plain := len(label) > 0 && !isDigit(label[0])
	for _, c := range label {
		if !isAlnum(c) && c != '_' {
			plain = false
			break
		}
	}
	if plain {
		return "." + string(label)
	}
	return `."` + string(label) + `"`
}

// parentPath strips the last step from a path.
func parentPath(path string) string {
	if strings.HasSuffix(path, `"`) {
		if k := strings.LastIndex(path[:len(path)-1], `."`); k > 0 {
			return path[:k]
		}
	}
	k := strings.LastIndexAny(path, ".[")
	if k <= 0 {
		return "$"
	}
	return path[:k]
}
