// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import "github.com/cockroachdb/errors"

type nodeFlag uint8

const (
	flagRaw     nodeFlag = 1 << iota // content must be escaped on output
	flagEscape                       // content contains backslash escapes
	flagRemove                       // removed by an edit
	flagReplace                      // replaced; see the subst chain
	flagAppend                       // container continues at node.link
	flagLabel                        // object label
	flagJSON5                        // content uses JSON5 syntax
)

// node is one entry of a parse tree.  Trees are flat: a container is
// followed by its descendants, and n counts the slots they occupy.
// Scalar nodes have the same kinds and payloads as JSONB elements.
//
// For a kindSubst node, n is the index of the replaced node and link is the
// index of the previous subst node, or zero.  The replacement value follows
// the subst node.
type node struct {
	kind    Kind
	flags   nodeFlag
	n       int
	link    int
	content []byte
}

// nodeSize returns the number of slots taken by the node at idx and its
// descendants.
func (d *document) nodeSize(idx int) int {
	if d.nodes[idx].kind.isContainer() {
		return d.nodes[idx].n + 1
	}
	return 1
}

func kindFlags(kind Kind) nodeFlag {
	switch kind {
	case KindTextRaw:
		return flagRaw
	case KindTextJ:
		return flagEscape
	case KindText5:
		return flagEscape | flagJSON5
	case KindInt5, KindFloat5:
		return flagJSON5
	}
	return 0
}

func (d *document) addNode(kind Kind, content []byte) int {
	d.nodes = append(d.nodes, node{kind: kind, flags: kindFlags(kind), content: content})
	return len(d.nodes) - 1
}

// appendNodes copies a complete subtree into d.
func (d *document) appendNodes(src []node) {
	d.nodes = append(d.nodes, src...)
}

// addSubst starts an edit of the node at idx.  The caller appends the
// replacement value immediately afterwards.
func (d *document) addSubst(idx int) {
	s := d.addNode(kindSubst, nil)
	d.nodes[s].n = idx
	d.nodes[s].link = d.subst
	d.subst = s
	d.nodes[idx].flags |= flagReplace
	d.hasMod = true
	d.useMod = true
}

// resolve follows the subst chain for an edited node and returns the index
// of its current value.  Newer substs are found first.
func (d *document) resolve(idx int) (int, error) {
	for d.useMod && d.nodes[idx].flags&flagReplace != 0 {
		i := d.subst
		for {
			if i <= 0 || i >= len(d.nodes) || d.nodes[i].kind != kindSubst {
				return idx, errors.AssertionFailedf("no subst for replaced node %d", idx)
			}
			if d.nodes[i].n == idx {
				break
			}
			i = d.nodes[i].link
		}
		idx = i + 1
	}
	return idx, nil
}

// treeParser builds a parse tree from JSON or JSON5 text.
type treeParser struct {
	d        *document
	z        []byte
	depth    int
	maxDepth int
	errPos   int
	err      error
}

func (p *treeParser) fail(i int, cause error) error {
	if p.err == nil {
		p.errPos = i
		p.err = newParseError(i, cause)
	}
	return p.err
}

// parseText parses the whole of z into d.nodes.
func (p *treeParser) parseText() error {
	i, step := p.parseValue(0)
	if step == stepValue {
		z := p.z
		for i < len(z) && isSpace(z[i]) {
			i++
		}
		if i < len(z) {
			i += json5Whitespace(z, i)
			if i < len(z) {
				return p.fail(i, ErrMalformed)
			}
			p.d.hasNonstd = true
		}
		return nil
	}
	return p.fail(i, ErrMalformed)
}

func (p *treeParser) parseValue(i int) (int, parseStep) {
	z, d := p.z, p.d
	for {
		if i >= len(z) {
			return i, stepEnd
		}
		switch c := z[i]; c {
		case '{':
			return p.parseObject(i)
		case '[':
			return p.parseArray(i)
		case '"', '\'':
			end, kind, json5, ok := scanString(z, i)
			if !ok {
				p.fail(end, ErrMalformed)
				return end, stepError
			}
			if json5 {
				d.hasNonstd = true
			}
			d.addNode(kind, z[i+1:end])
			return end + 1, stepValue
		case 't':
			if hasKeyword(z, i, "true") {
				d.addNode(KindTrue, nil)
				return i + 4, stepValue
			}
			return p.parseNanInf(i)
		case 'f':
			if hasKeyword(z, i, "false") {
				d.addNode(KindFalse, nil)
				return i + 5, stepValue
			}
			return p.parseNanInf(i)
		case 'n':
			if hasKeyword(z, i, "null") {
				d.addNode(KindNull, nil)
				return i + 4, stepValue
			}
			return p.parseNanInf(i)
		case '+', '.', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			end, kind, json5, repl, ok := scanNumber(z, i)
			if !ok {
				p.fail(end, ErrMalformed)
				return end, stepError
			}
			if json5 {
				d.hasNonstd = true
			}
			if repl == nil {
				repl = z[i:end]
			}
			d.addNode(kind, repl)
			return end, stepValue
		case '}':
			return i, stepCloseBrace
		case ']':
			return i, stepCloseBracket
		case ',':
			return i, stepComma
		case ':':
			return i, stepColon
		case ' ', '\t', '\n', '\r':
			i++
		default:
			n := json5Whitespace(z, i)
			if n == 0 {
				return p.parseNanInf(i)
			}
			i += n
			d.hasNonstd = true
		}
	}
}

func (p *treeParser) parseNanInf(i int) (int, parseStep) {
	n, kind, repl := matchNanInf(p.z, i)
	if n == 0 {
		p.fail(i, ErrMalformed)
		return i, stepError
	}
	p.d.hasNonstd = true
	p.d.addNode(kind, repl)
	return i + n, stepValue
}

func (p *treeParser) enter(i int) bool {
	p.depth++
	if p.depth > p.maxDepth {
		p.fail(i, errors.Mark(ErrTooDeep, ErrMalformed))
		return false
	}
	return true
}

func (p *treeParser) parseObject(i int) (int, parseStep) {
	z, d := p.z, p.d
	if !p.enter(i) {
		return i, stepError
	}
	defer func() { p.depth-- }()

	iThis := d.addNode(KindObject, nil)
	j := i + 1
	for first := true; ; first = false {
		// Key
		iLabel := len(d.nodes)
		x, step := p.parseValue(j)
		switch {
		case step == stepCloseBrace && first:
			d.nodes[iThis].n = 0
			return x + 1, stepValue
		case step == stepValue:
			if !d.nodes[iLabel].kind.isText() {
				p.fail(j, ErrMalformed)
				return j, stepError
			}
			j = x
		default:
			j += json5Whitespace(z, j)
			end, escaped := scanIdent(z, j)
			if end == j {
				if step == stepError {
					return x, stepError
				}
				p.fail(j, ErrMalformed)
				return j, stepError
			}
			p.err = nil
			kind := KindTextRaw
			if escaped {
				kind = KindTextJ
			}
			d.addNode(kind, z[j:end])
			d.hasNonstd = true
			j = end
		}
		d.nodes[iLabel].flags |= flagLabel

		// Separator
		if at(z, j) == ':' {
			j++
		} else {
			mark := len(d.nodes)
			x, step = p.parseValue(j)
			d.nodes = d.nodes[:mark]
			if step != stepColon {
				if step != stepError {
					p.fail(j, ErrMalformed)
				}
				return j, stepError
			}
			j = x + 1
		}

		// Value
		x, step = p.parseValue(j)
		if step != stepValue {
			if step != stepError {
				p.fail(j, ErrMalformed)
			}
			return j, stepError
		}
		j = x

		// Next member or end
		if at(z, j) == ',' {
			j++
			continue
		}
		if at(z, j) == '}' {
			break
		}
		mark := len(d.nodes)
		x, step = p.parseValue(j)
		d.nodes = d.nodes[:mark]
		if step == stepComma {
			j = x + 1
			continue
		}
		if step == stepCloseBrace {
			j = x
			break
		}
		if step != stepError {
			p.fail(j, ErrMalformed)
		}
		return j, stepError
	}
	d.nodes[iThis].n = len(d.nodes) - iThis - 1
	return j + 1, stepValue
}

func (p *treeParser) parseArray(i int) (int, parseStep) {
	z, d := p.z, p.d
	if !p.enter(i) {
		return i, stepError
	}
	defer func() { p.depth-- }()

	iThis := d.addNode(KindArray, nil)
	j := i + 1
	for first := true; ; first = false {
		x, step := p.parseValue(j)
		if step != stepValue {
			if step == stepCloseBracket && first {
				j = x
				break
			}
			if step != stepError {
				p.fail(j, ErrMalformed)
				return j, stepError
			}
			return x, stepError
		}
		j = x
		if at(z, j) == ',' {
			j++
			continue
		}
		if at(z, j) == ']' {
			break
		}
		mark := len(d.nodes)
		x, step = p.parseValue(j)
		d.nodes = d.nodes[:mark]
		if step == stepComma {
			j = x + 1
			continue
		}
		if step == stepCloseBracket {
			j = x
			break
		}
		if step != stepError {
			p.fail(j, ErrMalformed)
		}
		return j, stepError
	}
	d.nodes[iThis].n = len(d.nodes) - iThis - 1
	return j + 1, stepValue
}
