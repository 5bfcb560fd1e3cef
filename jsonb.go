// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"encoding/binary"
	"math"
)

// Kind is the element type of a JSONB element or a parse-tree node.  The
// values are the JSONB type tags stored in the low four bits of an element
// header.
type Kind uint8

const (
	KindNull    Kind = iota // null
	KindTrue                // true
	KindFalse               // false
	KindInt                 // canonical integer text
	KindInt5                // integer text using JSON5 or SQL extensions (hex, leading '+')
	KindFloat               // canonical real number text
	KindFloat5              // real number text using JSON5 extensions
	KindText                // string contents needing no escapes
	KindTextJ               // string contents with RFC 8259 escapes
	KindText5               // string contents with JSON5 escapes
	KindTextRaw             // string contents that must be escaped on output
	KindArray               // array; payload is the concatenated elements
	KindObject              // object; payload is label/value pairs

	// kindSubst marks a parse-tree edit node.  It is never serialized.
	kindSubst Kind = 13
)

var kindNames = [...]string{
	KindNull:    "null",
	KindTrue:    "true",
	KindFalse:   "false",
	KindInt:     "integer",
	KindInt5:    "integer",
	KindFloat:   "real",
	KindFloat5:  "real",
	KindText:    "text",
	KindTextJ:   "text",
	KindText5:   "text",
	KindTextRaw: "text",
	KindArray:   "array",
	KindObject:  "object",
	kindSubst:   "subst",
}

// String returns the SQL type name reported by json_type for the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

func (k Kind) isText() bool { return k >= KindText && k <= KindTextRaw }

func (k Kind) isContainer() bool { return k == KindArray || k == KindObject }

// Header size classes in the high nibble of the first header byte.
const (
	sizeClass1 = 12
	sizeClass2 = 13
	sizeClass4 = 14
	sizeClass8 = 15

	// reservedHeaderLen is the length of a header using the 4-byte class.
	reservedHeaderLen = 5
)

// payloadSize decodes the element header at b[i].  It returns the header
// length and the payload length.  A header length of zero means the header
// is truncated or otherwise cannot be decoded.
func payloadSize(b []byte, i int) (hdr int, sz int) {
	if i >= len(b) {
		return 0, 0
	}
	x := b[i] >> 4
	switch {
	case x <= 11:
		return 1, int(x)
	case x == sizeClass1:
		if i+1 >= len(b) {
			return 0, 0
		}
		return 2, int(b[i+1])
	case x == sizeClass2:
		if i+2 >= len(b) {
			return 0, 0
		}
		return 3, int(binary.BigEndian.Uint16(b[i+1:]))
	case x == sizeClass4:
		if i+4 >= len(b) {
			return 0, 0
		}
		return 5, int(binary.BigEndian.Uint32(b[i+1:]))
	default:
		if i+8 >= len(b) {
			return 0, 0
		}
		n := binary.BigEndian.Uint64(b[i+1:])
		if n > math.MaxInt32 {
			return 0, 0
		}
		return 9, int(n)
	}
}

// elementAt decodes the element at b[i] and checks that its payload lies
// within b.  ok is false for a malformed header.
func elementAt(b []byte, i int) (kind Kind, hdr int, sz int, ok bool) {
	hdr, sz = payloadSize(b, i)
	if hdr == 0 || i+hdr+sz > len(b) {
		return 0, 0, 0, false
	}
	return Kind(b[i] & 0x0f), hdr, sz, true
}

// headerExtra returns the number of bytes that follow the first header byte
// for the smallest encoding of a payload of size sz.
func headerExtra(sz int) int {
	switch {
	case sz <= 11:
		return 0
	case sz <= 0xff:
		return 1
	case sz <= 0xffff:
		return 2
	default:
		return 4
	}
}

// appendHeader appends the smallest header for an element of the given kind
// and payload size.
func appendHeader(b []byte, kind Kind, sz int) []byte {
	switch headerExtra(sz) {
	case 0:
		return append(b, byte(kind)|byte(sz)<<4)
	case 1:
		return append(b, byte(kind)|sizeClass1<<4, byte(sz))
	case 2:
		b = append(b, byte(kind)|sizeClass2<<4)
		return binary.BigEndian.AppendUint16(b, uint16(sz))
	default:
		b = append(b, byte(kind)|sizeClass4<<4)
		return binary.BigEndian.AppendUint32(b, uint32(sz))
	}
}

// reserveHeader appends a 4-byte class header whose size is patched later
// with rewriteHeaderSize.
func reserveHeader(b []byte, kind Kind) []byte {
	return append(b, byte(kind)|sizeClass4<<4, 0, 0, 0, 0)
}

// rewriteHeaderSize changes the payload size recorded in the header at b[i]
// to sz.  If the new size needs a different header length, everything after
// the header is shifted to open or close the gap.  It returns the updated
// buffer and the change in header length.
func rewriteHeaderSize(b []byte, i int, sz int) ([]byte, int) {
	var old int
	switch b[i] >> 4 {
	case sizeClass1:
		old = 1
	case sizeClass2:
		old = 2
	case sizeClass4:
		old = 4
	case sizeClass8:
		old = 8
	}
	need := headerExtra(sz)
	delta := need - old
	switch {
	case delta > 0:
		b = append(b, make([]byte, delta)...)
		copy(b[i+1+need:], b[i+1+old:len(b)-delta])
	case delta < 0:
		copy(b[i+1+need:], b[i+1+old:])
		b = b[:len(b)+delta]
	}
	kind := b[i] & 0x0f
	switch need {
	case 0:
		b[i] = kind | byte(sz)<<4
	case 1:
		b[i] = kind | sizeClass1<<4
		b[i+1] = byte(sz)
	case 2:
		b[i] = kind | sizeClass2<<4
		binary.BigEndian.PutUint16(b[i+1:], uint16(sz))
	default:
		b[i] = kind | sizeClass4<<4
		binary.BigEndian.PutUint32(b[i+1:], uint32(sz))
	}
	return b, delta
}

// IsJSONB reports whether b plausibly holds a JSONB document.  Only the
// outer header is examined: the type tag must be known and the declared
// size must account for every byte of b.
func IsJSONB(b []byte) bool {
	if len(b) < 1 {
		return false
	}
	kind := Kind(b[0] & 0x0f)
	if kind > KindObject {
		return false
	}
	hdr, sz := payloadSize(b, 0)
	if hdr == 0 || hdr+sz != len(b) {
		return false
	}
	if kind <= KindFalse && sz > 0 {
		return false
	}
	return true
}

// splice replaces n bytes of b at offset i with ins and returns the result.
func splice(b []byte, i int, n int, ins []byte) []byte {
	d := len(ins) - n
	switch {
	case d > 0:
		b = append(b, make([]byte, d)...)
		copy(b[i+len(ins):], b[i+n:len(b)-d])
	case d < 0:
		copy(b[i+len(ins):], b[i+n:])
		b = b[:len(b)+d]
	}
	copy(b[i:], ins)
	return b
}
