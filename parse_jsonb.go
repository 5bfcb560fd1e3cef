// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import "github.com/cockroachdb/errors"

// blobParser converts JSON or JSON5 text directly to JSONB.  Containers get
// a reserved 4-byte header that is rewritten to the smallest encoding once
// the payload length is known.
type blobParser struct {
	z         []byte
	depth     int
	maxDepth  int
	maxLength int
	errPos    int
	err       error
	nonstd    bool
}

// convertText parses z as a single JSON value and appends its JSONB
// encoding to out.
func (p *blobParser) convertText(out []byte) ([]byte, error) {
	start := len(out)
	out, i, step := p.convertValue(out, 0)
	if step == stepValue {
		for i < len(p.z) && isSpace(p.z[i]) {
			i++
		}
		if i < len(p.z) {
			i += json5Whitespace(p.z, i)
			if i < len(p.z) {
				return out[:start], p.fail(i, ErrMalformed)
			}
			p.nonstd = true
		}
		if p.maxLength > 0 && len(out)-start > p.maxLength {
			return out[:start], ErrNoMemory
		}
		return out, nil
	}
	if p.err == nil {
		p.fail(i, ErrMalformed)
	}
	return out[:start], p.err
}

func (p *blobParser) fail(i int, cause error) error {
	if p.err == nil {
		p.errPos = i
		p.err = newParseError(i, cause)
	}
	return p.err
}

func (p *blobParser) tooDeep(i int) bool {
	p.depth++
	if p.depth > p.maxDepth {
		p.fail(i, errors.Mark(ErrTooDeep, ErrMalformed))
		return true
	}
	return false
}

// convertValue converts the value starting at or after z[i].  For stepValue
// the returned offset is just past the value; for structural tokens it is
// the offset of the token; for stepError it is the error position.
func (p *blobParser) convertValue(out []byte, i int) ([]byte, int, parseStep) {
	z := p.z
	for {
		if i >= len(z) {
			return out, i, stepEnd
		}
		c := z[i]
		switch c {
		case '{':
			return p.convertObject(out, i)
		case '[':
			return p.convertArray(out, i)
		case '"', '\'':
			end, kind, json5, ok := scanString(z, i)
			if !ok {
				p.fail(end, ErrMalformed)
				return out, end, stepError
			}
			if json5 {
				p.nonstd = true
			}
			out = appendHeader(out, kind, end-i-1)
			out = append(out, z[i+1:end]...)
			return out, end + 1, stepValue
		case 't':
			if hasKeyword(z, i, "true") {
				return append(out, byte(KindTrue)), i + 4, stepValue
			}
			return p.convertNanInf(out, i)
		case 'f':
			if hasKeyword(z, i, "false") {
				return append(out, byte(KindFalse)), i + 5, stepValue
			}
			return p.convertNanInf(out, i)
		case 'n':
			if hasKeyword(z, i, "null") {
				return append(out, byte(KindNull)), i + 4, stepValue
			}
			return p.convertNanInf(out, i)
		case '+', '.', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			end, kind, json5, repl, ok := scanNumber(z, i)
			if !ok {
				p.fail(end, ErrMalformed)
				return out, end, stepError
			}
			if json5 {
				p.nonstd = true
			}
			if repl != nil {
				out = appendHeader(out, kind, len(repl))
				return append(out, repl...), end, stepValue
			}
			out = appendHeader(out, kind, end-i)
			return append(out, z[i:end]...), end, stepValue
		case '}':
			return out, i, stepCloseBrace
		case ']':
			return out, i, stepCloseBracket
		case ',':
			return out, i, stepComma
		case ':':
			return out, i, stepColon
		case ' ', '\t', '\n', '\r':
			i++
			continue
		default:
			if n := json5Whitespace(z, i); n > 0 {
				i += n
				p.nonstd = true
				continue
			}
			return p.convertNanInf(out, i)
		}
	}
}

func (p *blobParser) convertNanInf(out []byte, i int) ([]byte, int, parseStep) {
	n, kind, repl := matchNanInf(p.z, i)
	if n == 0 {
		p.fail(i, ErrMalformed)
		return out, i, stepError
	}
	p.nonstd = true
	out = appendHeader(out, kind, len(repl))
	return append(out, repl...), i + n, stepValue
}

// finishContainer patches the reserved header at lengthPos with the final
// payload size.
func (p *blobParser) finishContainer(out []byte, lengthPos int) ([]byte, bool) {
	sz := len(out) - lengthPos - reservedHeaderLen
	if p.maxLength > 0 && sz > p.maxLength {
		p.fail(lengthPos, ErrNoMemory)
		return out, false
	}
	out, _ = rewriteHeaderSize(out, lengthPos, sz)
	return out, true
}

func (p *blobParser) convertObject(out []byte, i int) ([]byte, int, parseStep) {
	z := p.z
	if p.tooDeep(i) {
		return out, i, stepError
	}
	defer func() { p.depth-- }()

	lengthPos := len(out)
	out = reserveHeader(out, KindObject)
	j := i + 1
	for first := true; ; first = false {
		// Key
		keyPos := len(out)
		var x int
		var step parseStep
		out, x, step = p.convertValue(out, j)
		switch {
		case step == stepCloseBrace && first:
			j = x
			out, ok := p.finishContainer(out, lengthPos)
			if !ok {
				return out, j, stepError
			}
			return out, j + 1, stepValue
		case step == stepValue:
			if !Kind(out[keyPos] & 0x0f).isText() {
				p.fail(j, ErrMalformed)
				return out, j, stepError
			}
			j = x
		default:
			// Not a value: try an unquoted JSON5 key.
			j += json5Whitespace(z, j)
			end, escaped := scanIdent(z, j)
			if end == j {
				if step == stepError {
					return out, x, stepError
				}
				p.fail(j, ErrMalformed)
				return out, j, stepError
			}
			p.err = nil
			kind := KindTextRaw
			if escaped {
				kind = KindTextJ
			}
			out = appendHeader(out, kind, end-j)
			out = append(out, z[j:end]...)
			p.nonstd = true
			j = end
		}

		// Separator
		if at(z, j) == ':' {
			j++
		} else {
			_, x, step = p.convertValue(out, j)
			if step != stepColon {
				if step != stepError {
					p.fail(j, ErrMalformed)
				}
				return out, j, stepError
			}
			j = x + 1
		}

		// Value
		out, x, step = p.convertValue(out, j)
		if step != stepValue {
			if step != stepError {
				p.fail(j, ErrMalformed)
			}
			return out, j, stepError
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
		_, x, step = p.convertValue(out, j)
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
		return out, j, stepError
	}
	out, ok := p.finishContainer(out, lengthPos)
	if !ok {
		return out, j, stepError
	}
	return out, j + 1, stepValue
}

func (p *blobParser) convertArray(out []byte, i int) ([]byte, int, parseStep) {
	z := p.z
	if p.tooDeep(i) {
		return out, i, stepError
	}
	defer func() { p.depth-- }()

	lengthPos := len(out)
	out = reserveHeader(out, KindArray)
	j := i + 1
	for first := true; ; first = false {
		var x int
		var step parseStep
		out, x, step = p.convertValue(out, j)
		if step != stepValue {
			if step == stepCloseBracket && first {
				j = x
				break
			}
			if step != stepError {
				p.fail(j, ErrMalformed)
				return out, j, stepError
			}
			return out, x, stepError
		}
		j = x
		if at(z, j) == ',' {
			j++
			continue
		}
		if at(z, j) == ']' {
			break
		}
		_, x, step = p.convertValue(out, j)
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
		return out, j, stepError
	}
	out, ok := p.finishContainer(out, lengthPos)
	if !ok {
		return out, j, stepError
	}
	return out, j + 1, stepValue
}
