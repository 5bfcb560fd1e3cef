// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// renderNode appends the text of the node at idx.  When d.useMod is set,
// edits are honored: replaced nodes are redirected through the subst chain,
// removed entries are skipped and append chains are followed.
func (d *document) renderNode(idx int, s *jsonString) {
	idx, err := d.resolve(idx)
	if err != nil {
		s.fail(err)
		return
	}
	nd := &d.nodes[idx]
	switch nd.kind {
	case KindArray:
		s.appendChar('[')
		for base := idx; ; {
			for j := 1; j <= d.nodes[base].n; j += d.nodeSize(base + j) {
				if d.useMod && d.nodes[base+j].flags&flagRemove != 0 {
					continue
				}
				s.appendSeparator()
				d.renderNode(base+j, s)
			}
			if !d.useMod || d.nodes[base].flags&flagAppend == 0 {
				break
			}
			base = d.nodes[base].link
		}
		s.appendChar(']')
	case KindObject:
		s.appendChar('{')
		for base := idx; ; {
			for j := 1; j <= d.nodes[base].n; j += d.nodeSize(base+j+1) + 1 {
				if d.useMod && d.nodes[base+j+1].flags&flagRemove != 0 {
					continue
				}
				s.appendSeparator()
				d.renderNode(base+j, s)
				s.appendChar(':')
				d.renderNode(base+j+1, s)
			}
			if !d.useMod || d.nodes[base].flags&flagAppend == 0 {
				break
			}
			base = d.nodes[base].link
		}
		s.appendChar('}')
	default:
		appendScalar(s, nd.kind, nd.content)
	}
}

// appendScalar appends canonical JSON text for a scalar element.
func appendScalar(s *jsonString, kind Kind, p []byte) {
	switch kind {
	case KindNull:
		s.appendText("null")
	case KindTrue:
		s.appendText("true")
	case KindFalse:
		s.appendText("false")
	case KindInt, KindFloat:
		s.appendRaw(p)
	case KindInt5:
		appendNormalizedInt(s, p)
	case KindFloat5:
		appendNormalizedReal(s, p)
	case KindText, KindTextJ:
		s.appendChar('"')
		s.appendRaw(p)
		s.appendChar('"')
	case KindText5:
		appendNormalizedString(s, p)
	case KindTextRaw:
		s.appendQuoted(p)
	default:
		s.fail(ErrMalformed)
	}
}

// appendNormalizedInt renders hex and '+'-signed integers in decimal.
// Hex values too large for 64 bits become an overflow literal.
func appendNormalizedInt(s *jsonString, p []byte) {
	if len(p) == 0 {
		s.fail(ErrMalformed)
		return
	}
	neg := false
	switch p[0] {
	case '+':
		p = p[1:]
	case '-':
		neg = true
		p = p[1:]
		s.appendChar('-')
	}
	if len(p) > 2 && p[0] == '0' && (p[1] == 'x' || p[1] == 'X') {
		v, ok := parseHex(p[2:])
		if !ok {
			s.appendRaw(infinityText)
			return
		}
		if neg && v > 1<<63 || !neg && v > math.MaxInt64 {
			s.appendRaw(infinityText)
			return
		}
		s.printf(20, "%d", v)
		return
	}
	s.appendRaw(p)
}

func parseHex(p []byte) (uint64, bool) {
	var v uint64
	for _, c := range p {
		if v > math.MaxUint64>>4 {
			return 0, false
		}
		v = v<<4 | uint64(hexValue(c))
	}
	return v, true
}

// appendNormalizedReal renders JSON5 reals: no leading '+' and a digit on
// both sides of the decimal point.
func appendNormalizedReal(s *jsonString, p []byte) {
	if len(p) == 0 {
		s.fail(ErrMalformed)
		return
	}
	switch p[0] {
	case '+':
		p = p[1:]
	case '-':
		s.appendChar('-')
		p = p[1:]
	}
	if len(p) > 0 && p[0] == '.' {
		s.appendChar('0')
	}
	for i, c := range p {
		s.appendChar(c)
		if c == '.' && (i+1 == len(p) || !isDigit(p[i+1])) {
			s.appendChar('0')
		}
	}
}

// appendNormalizedString rewrites JSON5 string contents with RFC 8259
// escapes and adds the quotes.
func appendNormalizedString(s *jsonString, p []byte) {
	s.appendChar('"')
	for len(p) > 0 {
		k := 0
		for k < len(p) && p[k] != '\\' && p[k] != '"' {
			k++
		}
		s.appendRaw(p[:k])
		if k == len(p) {
			break
		}
		if p[k] == '"' {
			s.appendText(`\"`)
			p = p[k+1:]
			continue
		}
		p = p[k:]
		if len(p) < 2 {
			s.fail(ErrMalformed)
			return
		}
		switch p[1] {
		case '\'':
			s.appendChar('\'')
			p = p[2:]
		case 'v':
			s.appendText(`\u000b`)
			p = p[2:]
		case '0':
			s.appendText(`\u0000`)
			p = p[2:]
		case 'x':
			if len(p) < 4 {
				s.fail(ErrMalformed)
				return
			}
			s.appendText(`\u00`)
			s.appendRaw(p[2:4])
			p = p[4:]
		case '\r':
			p = p[2:]
			if len(p) > 0 && p[0] == '\n' {
				p = p[1:]
			}
		case '\n':
			p = p[2:]
		case 0xe2:
			if len(p) < 4 {
				s.fail(ErrMalformed)
				return
			}
			p = p[4:]
		default:
			s.appendRaw(p[:2])
			p = p[2:]
		}
	}
	s.appendChar('"')
}

// treeToBlob appends the JSONB encoding of the node at idx to out.
func (d *document) treeToBlob(idx int, out []byte) ([]byte, error) {
	out, err := d.appendNodeBlob(idx, out)
	if err != nil {
		return nil, err
	}
	if max := d.ctx.cfg.MaxLength; max > 0 && len(out) > max {
		return nil, ErrNoMemory
	}
	return out, nil
}

func (d *document) appendNodeBlob(idx int, out []byte) ([]byte, error) {
	idx, err := d.resolve(idx)
	if err != nil {
		return nil, err
	}
	nd := &d.nodes[idx]
	if !nd.kind.isContainer() {
		out = appendHeader(out, nd.kind, len(nd.content))
		return append(out, nd.content...), nil
	}
	lengthPos := len(out)
	out = reserveHeader(out, nd.kind)
	step := 1
	if nd.kind == KindObject {
		step = 2
	}
	for base := idx; ; {
		for j := 1; j <= d.nodes[base].n; {
			if d.useMod && d.nodes[base+j+step-1].flags&flagRemove != 0 {
				j += d.nodeSize(base + j + step - 1)
				if step == 2 {
					j++
				}
				continue
			}
			for k := 0; k < step; k++ {
				out, err = d.appendNodeBlob(base+j, out)
				if err != nil {
					return nil, err
				}
				j += d.nodeSize(base + j)
			}
		}
		if !d.useMod || d.nodes[base].flags&flagAppend == 0 {
			break
		}
		base = d.nodes[base].link
	}
	out, _ = rewriteHeaderSize(out, lengthPos, len(out)-lengthPos-reservedHeaderLen)
	return out, nil
}

// renderBlob renders a JSONB document as JSON text.
func renderBlob(b []byte, cfg Config) ([]byte, error) {
	var s jsonString
	s.init(cfg.MaxLength)
	defer s.reset()
	n := appendBlob(&s, b, 0, 0, cfg.MaxDepth)
	if s.err == nil && n != len(b) {
		s.fail(ErrMalformed)
	}
	return s.bytes()
}

// appendBlob appends the text of the element at b[i] and returns the offset
// just past it.  Malformed input sets the sticky error on s.
func appendBlob(s *jsonString, b []byte, i, depth, maxDepth int) int {
	kind, hdr, sz, ok := elementAt(b, i)
	if !ok || depth > maxDepth {
		s.fail(ErrMalformed)
		return len(b)
	}
	end := i + hdr + sz
	switch kind {
	case KindArray:
		s.appendChar('[')
		for j := i + hdr; j < end && s.err == nil; {
			s.appendSeparator()
			j = appendBlob(s, b[:end], j, depth+1, maxDepth)
		}
		s.appendChar(']')
	case KindObject:
		s.appendChar('{')
		n := 0
		for j := i + hdr; j < end && s.err == nil; n++ {
			if n&1 == 0 {
				if !Kind(b[j] & 0x0f).isText() {
					s.fail(ErrMalformed)
					break
				}
				s.appendSeparator()
			} else {
				s.appendChar(':')
			}
			j = appendBlob(s, b[:end], j, depth+1, maxDepth)
		}
		if n&1 != 0 {
			s.fail(ErrMalformed)
		}
		s.appendChar('}')
	default:
		if kind > KindObject {
			s.fail(ErrMalformed)
			return len(b)
		}
		appendScalar(s, kind, b[i+hdr:end])
	}
	return end
}

// blobToTree appends parse-tree nodes for the element at b[i] and returns
// the offset just past it.
func (d *document) blobToTree(b []byte, i, end, depth int) (int, error) {
	kind, hdr, sz, ok := elementAt(b[:end], i)
	if !ok || depth > d.ctx.cfg.MaxDepth {
		return 0, ErrMalformed
	}
	next := i + hdr + sz
	switch kind {
	case KindArray, KindObject:
		idx := d.addNode(kind, nil)
		n := 0
		for j := i + hdr; j < next; n++ {
			iChild := len(d.nodes)
			if kind == KindObject && n&1 == 0 && !Kind(b[j]&0x0f).isText() {
				return 0, ErrMalformed
			}
			var err error
			if j, err = d.blobToTree(b, j, next, depth+1); err != nil {
				return 0, err
			}
			if kind == KindObject && n&1 == 0 {
				d.nodes[iChild].flags |= flagLabel
			}
		}
		if kind == KindObject && n&1 != 0 {
			return 0, ErrMalformed
		}
		d.nodes[idx].n = len(d.nodes) - idx - 1
	default:
		if kind > KindObject {
			return 0, ErrMalformed
		}
		d.addNode(kind, b[i+hdr:next])
	}
	return next, nil
}

// scalarValue converts a scalar element to its SQL value.  Containers are
// not scalars; the caller renders them as JSON.
func scalarValue(kind Kind, p []byte) (Value, error) {
	switch kind {
	case KindNull:
		return Null(), nil
	case KindTrue:
		return Int(1), nil
	case KindFalse:
		return Int(0), nil
	case KindInt, KindInt5:
		return intValue(p)
	case KindFloat, KindFloat5:
		f, err := strconv.ParseFloat(string(p), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Value{}, ErrMalformed
		}
		return Float(f), nil
	case KindText, KindTextRaw:
		return Text(string(p)), nil
	case KindTextJ, KindText5:
		u, err := unescapeText(p)
		if err != nil {
			return Value{}, err
		}
		return Text(string(u)), nil
	}
	return Value{}, ErrMalformed
}

// intValue converts decimal or hex integer text.  Values outside the int64
// range are returned as reals.
func intValue(p []byte) (Value, error) {
	if len(p) == 0 {
		return Value{}, ErrMalformed
	}
	neg := false
	q := p
	switch q[0] {
	case '+':
		q = q[1:]
	case '-':
		neg = true
		q = q[1:]
	}
	if len(q) > 2 && q[0] == '0' && (q[1] == 'x' || q[1] == 'X') {
		v, ok := parseHex(q[2:])
		switch {
		case !ok:
			f := math.Inf(1)
			if neg {
				f = -f
			}
			return Float(f), nil
		case neg && v == 1<<63:
			return Int(math.MinInt64), nil
		case v > math.MaxInt64:
			f := float64(v)
			if neg {
				f = -f
			}
			return Float(f), nil
		case neg:
			return Int(-int64(v)), nil
		default:
			return Int(int64(v)), nil
		}
	}
	if i, err := strconv.ParseInt(string(p), 10, 64); err == nil {
		return Int(i), nil
	}
	f, err := strconv.ParseFloat(string(p), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Value{}, ErrMalformed
	}
	return Float(f), nil
}

// unescapeText decodes the escapes of TextJ or Text5 contents.  Surrogate
// pairs written as two \u escapes are combined.
func unescapeText(p []byte) ([]byte, error) {
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(p) {
			return nil, ErrMalformed
		}
		switch c = p[i]; c {
		case 'u':
			if !isHex4(p, i+1) {
				return nil, ErrMalformed
			}
			v := hex4(p, i+1)
			i += 4
			if v >= 0xd800 && v < 0xdc00 && isUnicodeEscape(p, i+1) {
				if lo := hex4(p, i+3); lo >= 0xdc00 && lo < 0xe000 {
					v = 0x10000 + (v-0xd800)<<10 + (lo - 0xdc00)
					i += 6
				}
			}
			out = utf8.AppendRune(out, v)
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'v':
			out = append(out, '\v')
		case '0':
			out = append(out, 0)
		case '"', '\\', '/', '\'':
			out = append(out, c)
		case 'x':
			if i+2 >= len(p) || !isHexDigit(p[i+1]) || !isHexDigit(p[i+2]) {
				return nil, ErrMalformed
			}
			out = utf8.AppendRune(out, rune(hexValue(p[i+1])<<4|hexValue(p[i+2])))
			i += 2
		case '\r':
			if i+1 < len(p) && p[i+1] == '\n' {
				i++
			}
		case '\n':
		case 0xe2:
			if i+2 >= len(p) || p[i+1] != 0x80 || (p[i+2] != 0xa8 && p[i+2] != 0xa9) {
				return nil, ErrMalformed
			}
			i += 2
		default:
			return nil, ErrMalformed
		}
	}
	return out, nil
}

func hex4(p []byte, i int) rune {
	return rune(hexValue(p[i]))<<12 | rune(hexValue(p[i+1]))<<8 |
		rune(hexValue(p[i+2]))<<4 | rune(hexValue(p[i+3]))
}
