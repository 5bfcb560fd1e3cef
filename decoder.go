// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"bufio"
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16BEBOM = []byte{0xFE, 0xFF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf32BEBOM = []byte{0x00, 0x00, 0xFE, 0xFF}
	utf32LEBOM = []byte{0xFF, 0xFE, 0x00, 0x00}
)

// Decoder reads successive JSON texts from a buffered input stream and
// converts each to JSONB.  Texts may be separated by optional white space
// or may be the elements of one top-level JSON array.  JSON5 input is
// accepted.
type Decoder struct {
	arrayFinished bool
	arrayStarted  bool
	json          *bufio.Reader
	maxDepth      int
	maxLength     int
	text          []byte
}

// NewDecoder returns a new decoder.  If a UTF-8 byte-order-mark (BOM) exists,
// it will be stripped.  Because only UTF-8 is supported, other BOMs are errors.
// This function consumes leading white space and checks if the first character
// is '['.  If so, the input format is expected to be a single JSON array and
// the stream will consist of the elements of the array.  Any read error
// (including io.EOF) will be returned.
func NewDecoder(json *bufio.Reader) (*Decoder, error) {
	if json.Size() < 8192 {
		json = bufio.NewReaderSize(json, 8192)
	}
	err := handleBOM(json)
	if err != nil {
		return nil, err
	}

	d := &Decoder{
		json:      json,
		maxDepth:  200,
		maxLength: DefaultMaxLength,
	}

	ch, err := d.readAfterWS()
	if err != nil {
		// Before a value is read, EOF is valid.
		if err == io.EOF {
			return nil, err
		}
		return nil, newReadError(err)
	}

	switch ch {
	case '[':
		d.arrayStarted = true
	default:
		err = d.json.UnreadByte()
		if err != nil {
			return nil, err
		}
	}

	return d, nil
}

// MaxDepth sets the maximum allowed nesting of a JSON text.  The default is
// 200.
func (d *Decoder) MaxDepth(n int) {
	d.maxDepth = n
}

// Decode converts a single JSON text from the input stream into a JSONB
// element.  The function takes an output buffer as an argument.  If the
// buffer is not large enough, a new buffer will be allocated on demand.  The
// final buffer is returned, just like with `append`.  The function returns
// io.EOF if no texts remain in the stream.
func (d *Decoder) Decode(buf []byte) ([]byte, error) {
	if d.arrayFinished {
		return nil, io.EOF
	}

	ch, err := d.readAfterWS()
	if err != nil {
		// Before reading a new value, EOF is valid.
		if err == io.EOF {
			return nil, err
		}
		return nil, newReadError(err)
	}

	if ch == ']' && d.arrayStarted {
		d.arrayFinished = true
		return nil, io.EOF
	}
	if err = d.json.UnreadByte(); err != nil {
		return nil, err
	}

	d.text = d.text[:0]
	if err = d.readValueText(); err != nil {
		return nil, err
	}
	p := blobParser{z: d.text, maxDepth: d.maxDepth, maxLength: d.maxLength}
	buf, err = p.convertText(buf)
	if err != nil {
		return nil, err
	}

	if d.arrayStarted {
		ch, err := d.readAfterWS()
		if err != nil {
			return nil, newReadError(err)
		}

		switch ch {
		case ',':
			// nothing
		case ']':
			d.arrayFinished = true
		default:
			return nil, d.parseError(ch, "expecting value-separator or end of array")
		}
	}

	return buf, nil
}

// readValueText copies the text of the next value into d.text.  Containers
// and strings are framed by their delimiters; other values end at white
// space or a structural character, which is left unread.
func (d *Decoder) readValueText() error {
	ch, err := d.json.ReadByte()
	if err != nil {
		return newReadError(err)
	}
	d.text = append(d.text, ch)
	switch ch {
	case '{', '[':
		return d.readContainerText()
	case '"', '\'':
		return d.readStringText(ch)
	}
	for {
		ch, err = d.json.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return newReadError(err)
		}
		switch ch {
		case ' ', '\t', '\n', '\r', ',', ']', '}', '/':
			return d.json.UnreadByte()
		}
		d.text = append(d.text, ch)
	}
}

func (d *Decoder) readContainerText() error {
	depth := 1
	for depth > 0 {
		ch, err := d.json.ReadByte()
		if err != nil {
			return newReadError(err)
		}
		d.text = append(d.text, ch)
		switch ch {
		case '{', '[':
			depth++
			if depth > d.maxDepth {
				return newParseError(len(d.text)-1, errors.Mark(ErrTooDeep, ErrMalformed))
			}
		case '}', ']':
			depth--
		case '"', '\'':
			if err = d.readStringText(ch); err != nil {
				return err
			}
		case '/':
			if err = d.readCommentText(); err != nil {
				return err
			}
		}
	}
	return nil
}

// readStringText copies through the closing quote q.
func (d *Decoder) readStringText(q byte) error {
	for {
		ch, err := d.json.ReadByte()
		if err != nil {
			return newReadError(err)
		}
		d.text = append(d.text, ch)
		switch ch {
		case '\\':
			ch, err = d.json.ReadByte()
			if err != nil {
				return newReadError(err)
			}
			d.text = append(d.text, ch)
		case q:
			return nil
		}
	}
}

// readCommentText copies a JSON5 comment whose leading slash has been
// read.  A slash that does not start a comment is left for the parser to
// reject.
func (d *Decoder) readCommentText() error {
	ch, err := d.json.ReadByte()
	if err != nil {
		return newReadError(err)
	}
	switch ch {
	case '/':
		d.text = append(d.text, ch)
		line, err := d.json.ReadBytes('\n')
		d.text = append(d.text, line...)
		if err != nil {
			return newReadError(err)
		}
	case '*':
		d.text = append(d.text, ch)
		var prev byte
		for {
			ch, err = d.json.ReadByte()
			if err != nil {
				return newReadError(err)
			}
			d.text = append(d.text, ch)
			if prev == '*' && ch == '/' {
				return nil
			}
			prev = ch
		}
	default:
		return d.json.UnreadByte()
	}
	return nil
}

func (d *Decoder) readAfterWS() (byte, error) {
	var ch byte
	var err error
	for {
		ch, err = d.json.ReadByte()
		if err != nil {
			return 0, err
		}
		switch ch {
		case ' ', '\t', '\n', '\r':
		default:
			return ch, nil
		}
	}
}

func (d *Decoder) parseError(ch byte, msg string) error {
	after, _ := d.json.Peek(20)
	return errors.Mark(
		errors.Newf("parse error: %s on char '%s', followed by '%s...'", msg, string(ch), after),
		ErrMalformed,
	)
}

// Convert converts a single JSON text to JSONB.  Unlike a Decoder, a
// top-level array is converted whole.  The function takes an output buffer
// as an argument.  If the buffer is not large enough, a new buffer will be
// allocated on demand.  The final buffer is returned, just like with
// `append`.  The function returns io.EOF if the input is empty.
func Convert(in []byte, out []byte) ([]byte, error) {
	r := bufio.NewReader(bytes.NewReader(in))
	if err := handleBOM(r); err != nil {
		return nil, err
	}
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return nil, io.EOF
	}
	p := blobParser{z: text, maxDepth: 200, maxLength: DefaultMaxLength}
	return p.convertText(out)
}

// detect/discard/error on BOM. Inability to peek is a NOP and
// will be handled by the normal parser
func handleBOM(r *bufio.Reader) error {
	// Peek 2 byte BOMs
	preamble, err := r.Peek(2)
	if err != nil {
		return nil
	}
	if bytes.Equal(preamble, utf16BEBOM) || bytes.Equal(preamble, utf16LEBOM) {
		return errors.New("error: detected unsupported UTF-16 BOM")
	}

	// Peek 3 byte BOM; UTF-8 is supported, so discard them if found.
	preamble, err = r.Peek(3)
	if err != nil {
		return nil
	}
	if bytes.Equal(preamble, utf8BOM) {
		_, _ = r.Discard(3)
	}

	// Peek 4 byte BOMs
	preamble, err = r.Peek(4)
	if err != nil {
		return nil
	}
	if bytes.Equal(preamble, utf32BEBOM) || bytes.Equal(preamble, utf32LEBOM) {
		return errors.New("error: detected unsupported UTF-32 BOM")
	}

	return nil
}

// newReadError is used when we expect to be able to read and fail.  If the
// error is EOF, we convert it to UnexpectedEOF because we aren't between
// top-level values.
func newReadError(err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return errors.Wrap(err, "error reading json")
}
