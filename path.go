// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

type stepType uint8

const (
	stepLabel   stepType = iota // .name or ."name"
	stepIndex                   // [N]
	stepFromEnd                 // [#] or [#-N]
)

type pathStep struct {
	typ   stepType
	label []byte
	index int // N, or the offset back from the end
}

// jsonPath is a compiled path expression.
type jsonPath struct {
	text  string
	steps []pathStep
}

// compilePath parses a path expression.  Every step is checked before any
// document is touched.
func compilePath(path string) (*jsonPath, error) {
	if len(path) == 0 || path[0] != '$' {
		return nil, newPathError(path, 0)
	}
	p := &jsonPath{text: path}
	i := 1
	for i < len(path) {
		switch path[i] {
		case '.':
			i++
			if i < len(path) && path[i] == '"' {
				k := strings.IndexByte(path[i+1:], '"')
				if k < 0 {
					return nil, newPathError(path, i)
				}
				p.steps = append(p.steps, pathStep{typ: stepLabel, label: []byte(path[i+1 : i+1+k])})
				i += k + 2
				continue
			}
			k := i
			for k < len(path) && path[k] != '.' && path[k] != '[' {
				k++
			}
			if k == i {
				return nil, newPathError(path, i)
			}
			p.steps = append(p.steps, pathStep{typ: stepLabel, label: []byte(path[i:k])})
			i = k
		case '[':
			start := i
			j := i + 1
			for j < len(path) && isDigit(path[j]) {
				j++
			}
			if j > i+1 && j < len(path) && path[j] == ']' {
				n, ok := pathIndex(path[i+1 : j])
				if !ok {
					return nil, newPathError(path, start)
				}
				p.steps = append(p.steps, pathStep{typ: stepIndex, index: n})
				i = j + 1
				continue
			}
			if j != i+1 || j >= len(path) || path[j] != '#' {
				return nil, newPathError(path, start)
			}
			j++
			off := 0
			if j+1 < len(path) && path[j] == '-' && isDigit(path[j+1]) {
				k := j + 1
				for k < len(path) && isDigit(path[k]) {
					k++
				}
				n, ok := pathIndex(path[j+1 : k])
				if !ok {
					return nil, newPathError(path, start)
				}
				off = n
				j = k
			}
			if j >= len(path) || path[j] != ']' {
				return nil, newPathError(path, start)
			}
			p.steps = append(p.steps, pathStep{typ: stepFromEnd, index: off})
			i = j + 1
		default:
			return nil, newPathError(path, i)
		}
	}
	return p, nil
}

func pathIndex(s string) (int, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

// abbreviatePath expands the right operand of -> and ->> into a full path.
// Text that is already a path is used as is.  Otherwise text starting with
// a digit or '[' selects an array element and anything else is appended as
// a label, so "a.b" becomes "$.a.b".
func abbreviatePath(v Value) string {
	switch v.Type {
	case TypeInt:
		if v.Int < 0 {
			return "$[#" + strconv.FormatInt(v.Int, 10) + "]"
		}
		return "$[" + strconv.FormatInt(v.Int, 10) + "]"
	case TypeFloat:
		return "$[" + strconv.FormatInt(int64(v.Float), 10) + "]"
	}
	s := v.String()
	switch {
	case s == "$" || strings.HasPrefix(s, "$.") || strings.HasPrefix(s, "$["):
		return s
	case s != "" && isDigit(s[0]):
		return "$[" + s + "]"
	case strings.HasPrefix(s, "["):
		return "$" + s
	}
	return "$." + s
}

// lookup finds the node reached by path from the root.  If apnd is not nil,
// missing trailing steps are created as a null placeholder and *apnd is set.
// It returns -1 if no node is found.
func (d *document) lookup(p *jsonPath, apnd *bool) int {
	return d.lookupStep(0, p.steps, apnd)
}

func (d *document) lookupStep(iRoot int, steps []pathStep, apnd *bool) int {
	if d.useMod {
		r, err := d.resolve(iRoot)
		if err != nil {
			return -1
		}
		iRoot = r
		if d.nodes[iRoot].flags&flagRemove != 0 {
			return -1
		}
	}
	if len(steps) == 0 {
		return iRoot
	}
	st := steps[0]
	switch st.typ {
	case stepLabel:
		if d.nodes[iRoot].kind != KindObject {
			return -1
		}
		base := iRoot
		for {
			for j := 1; j <= d.nodes[base].n; j += d.nodeSize(base+j+1) + 1 {
				if bytes.Equal(d.nodes[base+j].content, st.label) {
					return d.lookupStep(base+j+1, steps[1:], apnd)
				}
			}
			if !d.useMod || d.nodes[base].flags&flagAppend == 0 {
				break
			}
			base = d.nodes[base].link
		}
		if apnd == nil {
			return -1
		}
		iStart := d.addNode(KindObject, nil)
		d.nodes[iStart].n = 2
		iLabel := d.addNode(KindTextRaw, st.label)
		d.nodes[iLabel].flags |= flagLabel
		r := d.lookupAppend(steps[1:], apnd)
		if r >= 0 {
			d.link(base, iStart)
		}
		return r

	default:
		if d.nodes[iRoot].kind != KindArray {
			return -1
		}
		i := st.index
		if st.typ == stepFromEnd {
			n := d.arrayLength(iRoot)
			if i > n {
				return -1
			}
			i = n - i
		}
		base := iRoot
		j := 1
		for {
			for j <= d.nodes[base].n && (i > 0 || (d.useMod && d.nodes[base+j].flags&flagRemove != 0)) {
				if !d.useMod || d.nodes[base+j].flags&flagRemove == 0 {
					i--
				}
				j += d.nodeSize(base + j)
			}
			if i == 0 && j <= d.nodes[base].n {
				break
			}
			if !d.useMod || d.nodes[base].flags&flagAppend == 0 {
				break
			}
			base = d.nodes[base].link
			j = 1
		}
		if j <= d.nodes[base].n {
			return d.lookupStep(base+j, steps[1:], apnd)
		}
		if i == 0 && apnd != nil {
			iStart := d.addNode(KindArray, nil)
			d.nodes[iStart].n = 1
			r := d.lookupAppend(steps[1:], apnd)
			if r >= 0 {
				d.link(base, iStart)
			}
			return r
		}
		return -1
	}
}

// link attaches the container at iTail to the end of base's append chain.
func (d *document) link(base, iTail int) {
	d.nodes[base].link = iTail
	d.nodes[base].flags |= flagAppend
	d.hasMod = true
	d.useMod = true
}

// lookupAppend creates the value for the remaining steps of a path that
// runs past the end of the document.  Only label steps and steps selecting
// the first element of a new array can be created.
func (d *document) lookupAppend(steps []pathStep, apnd *bool) int {
	*apnd = true
	if len(steps) == 0 {
		return d.addNode(KindNull, nil)
	}
	switch st := steps[0]; {
	case st.typ == stepLabel:
		d.addNode(KindObject, nil)
	case st.index == 0:
		d.addNode(KindArray, nil)
	default:
		return -1
	}
	return d.lookupStep(len(d.nodes)-1, steps, apnd)
}

// arrayLength counts the live elements of the array at idx, including those
// on its append chain.
func (d *document) arrayLength(idx int) int {
	n := 0
	for base := idx; ; {
		for j := 1; j <= d.nodes[base].n; j += d.nodeSize(base + j) {
			if !d.useMod || d.nodes[base+j].flags&flagRemove == 0 {
				n++
			}
		}
		if !d.useMod || d.nodes[base].flags&flagAppend == 0 {
			return n
		}
		base = d.nodes[base].link
	}
}
