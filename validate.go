// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

// checkJSONB validates every element of the JSONB value in b.  It returns
// zero when b is well-formed, otherwise one more than the offset of the
// first element found to be bad.
func checkJSONB(b []byte, maxDepth int) int {
	if len(b) == 0 {
		return 1
	}
	return checkElement(b, 0, len(b), 0, maxDepth)
}

func checkElement(b []byte, i, end, depth, maxDepth int) int {
	if depth > maxDepth {
		return i + 1
	}
	kind, hdr, sz, ok := elementAt(b[:end], i)
	if !ok || i+hdr+sz != end {
		return i + 1
	}
	p := b[i+hdr : end]
	switch kind {
	case KindNull, KindTrue, KindFalse:
		if sz != 0 {
			return i + 1
		}
	case KindInt:
		if !checkInt(p, false) {
			return i + 1
		}
	case KindInt5:
		if !checkInt(p, true) {
			return i + 1
		}
	case KindFloat:
		if !checkFloat(p, false) {
			return i + 1
		}
	case KindFloat5:
		if !checkFloat(p, true) {
			return i + 1
		}
	case KindText:
		for _, c := range p {
			if c == '"' || c == '\\' || c < 0x20 {
				return i + 1
			}
		}
	case KindTextJ:
		if !checkEscapes(p, false) {
			return i + 1
		}
	case KindText5:
		if !checkEscapes(p, true) {
			return i + 1
		}
	case KindTextRaw:
	case KindArray:
		for j := i + hdr; j < end; {
			_, h, s, ok := elementAt(b[:end], j)
			if !ok {
				return j + 1
			}
			if r := checkElement(b, j, j+h+s, depth+1, maxDepth); r != 0 {
				return r
			}
			j += h + s
		}
	case KindObject:
		n := 0
		for j := i + hdr; j < end; n++ {
			k, h, s, ok := elementAt(b[:end], j)
			if !ok {
				return j + 1
			}
			if n&1 == 0 && !k.isText() {
				return j + 1
			}
			if r := checkElement(b, j, j+h+s, depth+1, maxDepth); r != 0 {
				return r
			}
			j += h + s
		}
		if n&1 != 0 {
			return end
		}
	default:
		return i + 1
	}
	return 0
}

func checkInt(p []byte, ext bool) bool {
	j := 0
	if j < len(p) && (p[j] == '-' || (ext && p[j] == '+')) {
		j++
	}
	if ext && j+2 < len(p) && p[j] == '0' && (p[j+1] == 'x' || p[j+1] == 'X') {
		for _, c := range p[j+2:] {
			if !isHexDigit(c) {
				return false
			}
		}
		return true
	}
	if j == len(p) {
		return false
	}
	for _, c := range p[j:] {
		if !isDigit(c) {
			return false
		}
	}
	return true
}

func checkFloat(p []byte, ext bool) bool {
	j := 0
	if j < len(p) && (p[j] == '-' || (ext && p[j] == '+')) {
		j++
	}
	digits, dot, exp := 0, false, false
	for ; j < len(p); j++ {
		c := p[j]
		switch {
		case isDigit(c):
			digits++
		case c == '.':
			if dot || exp {
				return false
			}
			if !ext && (digits == 0 || j+1 >= len(p) || !isDigit(p[j+1])) {
				return false
			}
			dot = true
		case c == 'e' || c == 'E':
			if exp || digits == 0 {
				return false
			}
			exp = true
			if j+1 < len(p) && (p[j+1] == '+' || p[j+1] == '-') {
				j++
			}
			if j+1 >= len(p) {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0 && (dot || exp)
}

func checkEscapes(p []byte, ext bool) bool {
	for j := 0; j < len(p); j++ {
		c := p[j]
		if c < 0x20 {
			return false
		}
		if c == '"' && !ext {
			return false
		}
		if c != '\\' {
			continue
		}
		j++
		if j >= len(p) {
			return false
		}
		switch p[j] {
		case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		case 'u':
			if !isHex4(p, j+1) {
				return false
			}
			j += 4
		default:
			if !ext {
				return false
			}
			if n := json5EscapeLen(p, j); n > 0 {
				j += n - 1
			} else {
				return false
			}
		}
	}
	return true
}
