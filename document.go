// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

// document is one parsed JSON input.  It may hold a parse tree, a JSONB
// encoding or both.  Documents are shared through the Cache and counted:
// the cache holds one reference and each in-flight edit holds another.
type document struct {
	ctx *Context

	json   []byte // input text; nil for JSONB input
	blob   []byte // JSONB of the unedited input
	isBlob bool   // input was JSONB

	nodes   []node
	hasTree bool
	up      []int // parent of each node, built on demand
	subst   int   // most recent subst node, or zero

	alt []byte // text of the edited tree, once generated

	hasNonstd bool // input used JSON5 extensions
	hasMod    bool // tree carries edits
	useMod    bool // rendering and lookup honor edits

	err    error // parse error of an uncached document
	errPos int

	refs     int
	age      uint64
	cleanups []func()
	released bool
}

func newTextDocument(ctx *Context, text []byte) *document {
	return &document{ctx: ctx, json: text, refs: 1}
}

func newBlobDocument(ctx *Context, blob []byte) *document {
	return &document{ctx: ctx, blob: blob, isBlob: true, refs: 1}
}

func (d *document) retain() { d.refs++ }

// release drops a reference.  The last release runs the cleanups, which may
// release other documents; a document is torn down at most once.
func (d *document) release() {
	if d.refs > 1 {
		d.refs--
		return
	}
	if d.released {
		return
	}
	d.released = true
	d.refs = 0
	cleanups := d.cleanups
	d.cleanups = nil
	for _, f := range cleanups {
		f()
	}
	d.nodes = nil
	d.up = nil
	d.alt = nil
}

// parseTree makes sure the parse tree is present.
func (d *document) parseTree() error {
	if d.hasTree {
		return nil
	}
	cfg := d.ctx.cfg
	d.ctx.countParse()
	if d.isBlob {
		d.nodes = d.nodes[:0]
		if _, err := d.blobToTree(d.blob, 0, len(d.blob), 0); err != nil {
			d.nodes = nil
			return err
		}
		d.hasTree = true
		return nil
	}
	p := treeParser{d: d, z: d.json, maxDepth: cfg.MaxDepth}
	if err := p.parseText(); err != nil {
		d.nodes = nil
		d.err = err
		d.errPos = p.errPos
		return err
	}
	d.hasTree = true
	return nil
}

// parseBinary makes sure the JSONB form of the unedited input is present.
func (d *document) parseBinary() error {
	if d.blob != nil {
		return nil
	}
	if d.hasTree && !d.hasMod {
		b, err := d.treeToBlob(0, nil)
		if err != nil {
			return err
		}
		d.blob = b
		return nil
	}
	cfg := d.ctx.cfg
	d.ctx.countParse()
	p := blobParser{z: d.json, maxDepth: cfg.MaxDepth, maxLength: cfg.MaxLength}
	b, err := p.convertText(make([]byte, 0, len(d.json)))
	if err != nil {
		d.err = err
		d.errPos = p.errPos
		return err
	}
	d.hasNonstd = p.nonstd
	d.blob = b
	return nil
}

// binary returns the JSONB form of the document as currently viewed.  The
// result must not be modified.
func (d *document) binary() ([]byte, error) {
	if d.useMod && d.hasMod {
		return d.treeToBlob(0, nil)
	}
	if err := d.parseBinary(); err != nil {
		return nil, err
	}
	return d.blob, nil
}

// text renders the document as currently viewed.
func (d *document) text() ([]byte, error) {
	if d.hasTree && (d.hasMod || d.blob == nil) {
		var s jsonString
		s.init(d.ctx.cfg.MaxLength)
		defer s.reset()
		d.renderNode(0, &s)
		return s.bytes()
	}
	b, err := d.binary()
	if err != nil {
		return nil, err
	}
	return renderBlob(b, d.ctx.cfg)
}

// generateAlt renders the edited tree and keeps the text so later calls
// passing the same text find this document in the cache.
func (d *document) generateAlt() ([]byte, error) {
	var s jsonString
	s.init(d.ctx.cfg.MaxLength)
	d.renderNode(0, &s)
	alt, err := s.detach()
	if err != nil {
		return nil, err
	}
	d.alt = alt
	return alt, nil
}

// parents returns the parent index of every node, computing it on first
// use.  The root's parent is -1.
func (d *document) parents() []int {
	if d.up != nil {
		return d.up
	}
	up := make([]int, len(d.nodes))
	up[0] = -1
	var walk func(idx int)
	walk = func(idx int) {
		nd := &d.nodes[idx]
		if !nd.kind.isContainer() {
			return
		}
		for j := 1; j <= nd.n; j += d.nodeSize(idx + j) {
			up[idx+j] = idx
			walk(idx + j)
		}
	}
	walk(0)
	d.up = up
	return up
}
