// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import "bytes"

// Lexing helpers shared by the text-to-tree and text-to-JSONB parsers.

// parseStep reports what a call to parse one value found.
type parseStep uint8

const (
	stepValue        parseStep = iota // a value; offset is just past it
	stepEnd                           // end of input
	stepError                         // malformed input
	stepCloseBrace                    // '}' at offset
	stepCloseBracket                  // ']' at offset
	stepComma                         // ',' at offset
	stepColon                         // ':' at offset
)

// at returns z[i] or zero past the end of input.  The parsers treat zero as
// end of input only when i >= len(z); an embedded zero byte is an error.
func at(z []byte, i int) byte {
	if i < len(z) {
		return z[i]
	}
	return 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) byte {
	switch {
	case c <= '9':
		return c - '0'
	case c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}

func isHex4(z []byte, i int) bool {
	return i+4 <= len(z) && isHexDigit(z[i]) && isHexDigit(z[i+1]) &&
		isHexDigit(z[i+2]) && isHexDigit(z[i+3])
}

// isSpace reports RFC 8259 insignificant whitespace.
func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isIdentStart and isIdentPart classify bytes of unquoted JSON5 object keys.
// Bytes of multi-byte UTF-8 characters are always accepted.
func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '$' || c >= 0x80
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

// isUnicodeEscape reports whether z[i:] starts with \uXXXX.
func isUnicodeEscape(z []byte, i int) bool {
	return at(z, i) == '\\' && at(z, i+1) == 'u' && isHex4(z, i+2)
}

// json5Whitespace returns the number of bytes of JSON5 whitespace and
// comments at z[i:].  An unterminated block comment is not whitespace.
func json5Whitespace(z []byte, i int) int {
	n := i
	for n < len(z) {
		switch z[n] {
		case '\t', '\n', '\v', '\f', '\r', ' ':
			n++
			continue
		case '/':
			if at(z, n+1) == '*' {
				end := bytes.Index(z[n+2:], []byte("*/"))
				if end < 0 {
					return n - i
				}
				n += end + 4
				continue
			}
			if at(z, n+1) == '/' {
				j := n + 2
				for j < len(z) {
					c := z[j]
					if c == '\n' || c == '\r' {
						j++
						break
					}
					if c == 0xe2 && at(z, j+1) == 0x80 && (at(z, j+2) == 0xa8 || at(z, j+2) == 0xa9) {
						j += 3
						break
					}
					j++
				}
				n = j
				continue
			}
		case 0xc2:
			if at(z, n+1) == 0xa0 {
				n += 2
				continue
			}
		case 0xe1:
			if at(z, n+1) == 0x9a && at(z, n+2) == 0x80 {
				n += 3
				continue
			}
		case 0xe2:
			if at(z, n+1) == 0x80 {
				c := at(z, n+2)
				if c <= 0x8a || c == 0xa8 || c == 0xa9 || c == 0xaf {
					if c >= 0x80 {
						n += 3
						continue
					}
				}
			} else if at(z, n+1) == 0x81 && at(z, n+2) == 0x9f {
				n += 3
				continue
			}
		case 0xe3:
			if at(z, n+1) == 0x80 && at(z, n+2) == 0x80 {
				n += 3
				continue
			}
		case 0xef:
			if at(z, n+1) == 0xbb && at(z, n+2) == 0xbf {
				n += 3
				continue
			}
		}
		break
	}
	return n - i
}

// json5EscapeLen returns the length of the JSON5-only escape whose first
// byte, just after the backslash, is z[j].  It returns zero if z[j:] does
// not start such an escape.
func json5EscapeLen(z []byte, j int) int {
	switch c := at(z, j); c {
	case '\'', '0', 'v', '\n':
		return 1
	case '\r':
		if at(z, j+1) == '\n' {
			return 2
		}
		return 1
	case 'x':
		if isHexDigit(at(z, j+1)) && isHexDigit(at(z, j+2)) {
			return 3
		}
	case 0xe2:
		if at(z, j+1) == 0x80 && (at(z, j+2) == 0xa8 || at(z, j+2) == 0xa9) {
			return 3
		}
	}
	return 0
}

// scanString scans the quoted string whose opening delimiter is at z[i].
// On success it returns the offset of the closing delimiter and the text
// kind that describes the contents.  On failure ok is false and end is the
// offset of the byte that could not be accepted.
func scanString(z []byte, i int) (end int, kind Kind, json5 bool, ok bool) {
	delim := z[i]
	kind = KindText
	json5 = delim == '\''
	for j := i + 1; ; j++ {
		if j >= len(z) {
			return j, 0, false, false
		}
		c := z[j]
		switch {
		case c == delim:
			return j, kind, json5, true
		case c == '\\':
			j++
			switch e := at(z, j); {
			case e == '"' || e == '\\' || e == '/' || e == 'b' || e == 'f' ||
				e == 'n' || e == 'r' || e == 't':
				if kind == KindText {
					kind = KindTextJ
				}
			case e == 'u' && isHex4(z, j+1):
				if kind == KindText {
					kind = KindTextJ
				}
				j += 4
			default:
				n := json5EscapeLen(z, j)
				if n == 0 {
					return j, 0, false, false
				}
				kind = KindText5
				json5 = true
				j += n - 1
			}
		case c < 0x20:
			return j, 0, false, false
		case c == '"':
			// Only reachable inside a single-quoted string.
			kind = KindText5
		}
	}
}

// scanNumber scans the number starting at z[i], which is a digit, a sign
// or a decimal point.  repl, when not nil, is canonical text that replaces
// the source (signed Infinity).  On failure ok is false and end is the
// offset of the offending byte.
func scanNumber(z []byte, i int) (end int, kind Kind, json5 bool, repl []byte, ok bool) {
	c := z[i]
	isFloat := false
	if c == '+' {
		json5 = true
	}
	j := i + 1
	switch {
	case c == '.':
		if !isDigit(at(z, i+1)) {
			return i, 0, false, nil, false
		}
		json5 = true
		isFloat = true
	case c == '0':
		if (at(z, i+1) == 'x' || at(z, i+1) == 'X') && isHexDigit(at(z, i+2)) {
			return scanHex(z, i, i+3)
		}
		if isDigit(at(z, i+1)) {
			return i + 1, 0, false, nil, false
		}
	case c == '+' || c == '-':
		n := at(z, i+1)
		if !isDigit(n) {
			if n == 'I' || n == 'i' {
				if hasPrefixFold(z[i+1:], "inf") {
					repl = infinityText
					if c == '-' {
						repl = negInfinityText
					}
					end = i + 4
					if hasPrefixFold(z[i+4:], "inity") {
						end = i + 9
					}
					return end, KindFloat, true, repl, true
				}
			}
			if n != '.' {
				return i, 0, false, nil, false
			}
			json5 = true
		} else if n == '0' {
			if isDigit(at(z, i+2)) {
				return i + 1, 0, false, nil, false
			}
			if (at(z, i+2) == 'x' || at(z, i+2) == 'X') && isHexDigit(at(z, i+3)) {
				return scanHex(z, i, i+4)
			}
		}
	}

	seenE := false
	for ; ; j++ {
		c = at(z, j)
		if isDigit(c) {
			continue
		}
		if c == '.' {
			if isFloat {
				return j, 0, false, nil, false
			}
			isFloat = true
			continue
		}
		if c == 'e' || c == 'E' {
			if z[j-1] < '0' {
				if z[j-1] == '.' && j-2 >= i && isDigit(z[j-2]) {
					json5 = true
				} else {
					return j, 0, false, nil, false
				}
			}
			if seenE {
				return j, 0, false, nil, false
			}
			isFloat = true
			seenE = true
			c = at(z, j+1)
			if c == '+' || c == '-' {
				j++
				c = at(z, j+1)
			}
			if !isDigit(c) {
				return j, 0, false, nil, false
			}
			continue
		}
		break
	}
	if z[j-1] < '0' {
		if z[j-1] == '.' && j-2 >= i && isDigit(z[j-2]) {
			json5 = true
		} else {
			return j, 0, false, nil, false
		}
	}
	switch {
	case isFloat && json5:
		kind = KindFloat5
	case isFloat:
		kind = KindFloat
	case json5:
		kind = KindInt5
	default:
		kind = KindInt
	}
	return j, kind, json5, nil, true
}

func scanHex(z []byte, i, j int) (int, Kind, bool, []byte, bool) {
	for isHexDigit(at(z, j)) {
		j++
	}
	return j, KindInt5, true, nil, true
}

var (
	infinityText    = []byte("9e999")
	negInfinityText = []byte("-9e999")
)

// nanInf lists the JSON5 literals for infinity and NaN.  A match must not
// be followed by an alphanumeric character.
var nanInf = []struct {
	name string
	kind Kind
	repl []byte
}{
	{"inf", KindFloat, infinityText},
	{"infinity", KindFloat, infinityText},
	{"nan", KindNull, nil},
	{"qnan", KindNull, nil},
	{"snan", KindNull, nil},
}

// matchNanInf matches a NaN or Infinity literal at z[i:].  It returns the
// literal length, or zero.
func matchNanInf(z []byte, i int) (n int, kind Kind, repl []byte) {
	for _, e := range nanInf {
		if hasPrefixFold(z[i:], e.name) && !isAlnum(at(z, i+len(e.name))) {
			return len(e.name), e.kind, e.repl
		}
	}
	return 0, 0, nil
}

// hasPrefixFold reports whether b starts with the lower-case ASCII word s,
// ignoring case.
func hasPrefixFold(b []byte, s string) bool {
	if len(b) < len(s) {
		return false
	}
	for k := 0; k < len(s); k++ {
		c := b[k]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != s[k] {
			return false
		}
	}
	return true
}

// hasKeyword reports whether z[i:] is the literal s not followed by an
// alphanumeric character.
func hasKeyword(z []byte, i int, s string) bool {
	return bytes.HasPrefix(z[i:], []byte(s)) && !isAlnum(at(z, i+len(s)))
}

// scanIdent scans an unquoted JSON5 object key starting at z[i].  It
// returns the end offset and whether the key contains \u escapes; end is i
// if no key starts there.
func scanIdent(z []byte, i int) (end int, escaped bool) {
	if !isIdentStart(at(z, i)) && !isUnicodeEscape(z, i) {
		return i, false
	}
	k := i
	for k < len(z) {
		if isUnicodeEscape(z, k) {
			escaped = true
			k += 6
			continue
		}
		if isIdentPart(z[k]) && json5Whitespace(z, k) == 0 {
			k++
			continue
		}
		break
	}
	return k, escaped
}
