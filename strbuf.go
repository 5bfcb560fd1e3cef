// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"fmt"

	"github.com/valyala/bytebufferpool"
)

const inlineSize = 100

// jsonString accumulates generated JSON text.  Small results stay in the
// inline array; larger ones move to a pooled buffer.  Errors are sticky:
// once err is set every append is a no-op.
type jsonString struct {
	buf    []byte
	inline [inlineSize]byte
	heap   *bytebufferpool.ByteBuffer
	limit  int
	err    error
}

// init prepares s for use.  A positive limit bounds the accumulated length;
// exceeding it sets ErrNoMemory.
func (s *jsonString) init(limit int) {
	s.buf = s.inline[:0]
	s.heap = nil
	s.limit = limit
	s.err = nil
}

// reset releases any pooled storage and empties s.
func (s *jsonString) reset() {
	if s.heap != nil {
		s.heap.B = s.buf[:0]
		bytebufferpool.Put(s.heap)
		s.heap = nil
	}
	s.buf = s.inline[:0]
	s.err = nil
}

func (s *jsonString) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *jsonString) len() int { return len(s.buf) }

// grow makes room for n more bytes.  It reports false if s has failed.
func (s *jsonString) grow(n int) bool {
	if s.err != nil {
		return false
	}
	need := len(s.buf) + n
	if s.limit > 0 && need > s.limit {
		s.fail(ErrNoMemory)
		return false
	}
	if need <= cap(s.buf) {
		return true
	}
	total := 2 * cap(s.buf)
	if n >= cap(s.buf) {
		total = cap(s.buf) + n + 10
	}
	if s.heap == nil {
		// A fresh pooled buffer never aliases s.buf.
		s.heap = bytebufferpool.Get()
	}
	if cap(s.heap.B) >= total {
		s.heap.B = append(s.heap.B[:0], s.buf...)
	} else {
		nb := make([]byte, len(s.buf), total)
		copy(nb, s.buf)
		s.heap.B = nb
	}
	s.buf = s.heap.B
	return true
}

func (s *jsonString) appendRaw(b []byte) {
	if s.grow(len(b)) {
		s.buf = append(s.buf, b...)
	}
}

func (s *jsonString) appendText(t string) {
	if s.grow(len(t)) {
		s.buf = append(s.buf, t...)
	}
}

func (s *jsonString) appendChar(c byte) {
	if s.grow(1) {
		s.buf = append(s.buf, c)
	}
}

// appendSeparator appends a comma unless s is empty or ends with an opening
// bracket or brace.
func (s *jsonString) appendSeparator() {
	if len(s.buf) == 0 {
		return
	}
	if c := s.buf[len(s.buf)-1]; c != '[' && c != '{' {
		s.appendChar(',')
	}
}

// printf appends formatted text, truncated to at most max bytes.
func (s *jsonString) printf(max int, format string, args ...any) {
	if !s.grow(max) {
		return
	}
	start := len(s.buf)
	s.buf = fmt.Appendf(s.buf, format, args...)
	if len(s.buf)-start > max {
		s.buf = s.buf[:start+max]
	}
}

// terminate writes a zero byte just past the content without counting it.
func (s *jsonString) terminate() {
	if s.grow(1) {
		s.buf = append(s.buf, 0)[:len(s.buf)]
	}
}

// bytes returns a copy of the content, or the sticky error.
func (s *jsonString) bytes() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]byte(nil), s.buf...), nil
}

// detach hands the content to the caller and resets s.  Content held in
// the inline array is first moved to the heap; pooled storage is released
// to the caller rather than returned to the pool.
func (s *jsonString) detach() ([]byte, error) {
	if s.err != nil {
		err := s.err
		s.reset()
		return nil, err
	}
	s.terminate()
	var out []byte
	if s.heap == nil {
		out = make([]byte, len(s.buf), len(s.buf)+1)
		copy(out, s.buf)
	} else {
		out = s.buf
		s.heap.B = nil
		bytebufferpool.Put(s.heap)
		s.heap = nil
	}
	s.buf = s.inline[:0]
	return out, nil
}

// appendQuoted appends b as a JSON string literal, escaping quotes,
// backslashes and control characters.
func (s *jsonString) appendQuoted(b []byte) {
	if !s.grow(len(b) + 2) {
		return
	}
	s.buf = append(s.buf, '"')
	for _, c := range b {
		if c >= 0x20 && c != '"' && c != '\\' {
			s.buf = append(s.buf, c)
			continue
		}
		if !s.grow(7) {
			return
		}
		switch c {
		case '"', '\\':
			s.buf = append(s.buf, '\\', c)
		case '\b':
			s.buf = append(s.buf, '\\', 'b')
		case '\f':
			s.buf = append(s.buf, '\\', 'f')
		case '\n':
			s.buf = append(s.buf, '\\', 'n')
		case '\r':
			s.buf = append(s.buf, '\\', 'r')
		case '\t':
			s.buf = append(s.buf, '\\', 't')
		default:
			s.buf = append(s.buf, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		}
	}
	if s.grow(1) {
		s.buf = append(s.buf, '"')
	}
}

const hexDigits = "0123456789abcdef"
