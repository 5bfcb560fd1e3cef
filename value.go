// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// ValueType is the storage class of a SQL value.
type ValueType uint8

const (
	TypeNull ValueType = iota
	TypeInt
	TypeFloat
	TypeText
	TypeBlob
)

var valueTypeNames = [...]string{"null", "integer", "real", "text", "blob"}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "unknown"
}

// Value is an argument to or result of a JSON function.  JSON marks text
// that is known to be well-formed JSON, such as the result of another JSON
// function; such text is embedded as JSON rather than quoted as a string.
type Value struct {
	Type  ValueType
	Int   int64
	Float float64
	Text  string
	Blob  []byte
	JSON  bool
}

// Null returns the SQL NULL value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(i int64) Value { return Value{Type: TypeInt, Int: i} }

// Float returns a real value.
func Float(f float64) Value { return Value{Type: TypeFloat, Float: f} }

// Text returns a text value.
func Text(s string) Value { return Value{Type: TypeText, Text: s} }

// JSONText returns a text value marked as JSON.
func JSONText(s string) Value { return Value{Type: TypeText, Text: s, JSON: true} }

// Blob returns a BLOB value.
func Blob(b []byte) Value { return Value{Type: TypeBlob, Blob: b} }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.Type == TypeNull }

// String returns the text form of v the way SQL would cast it to text.
// Blobs are shown as hex literals.
func (v Value) String() string {
	switch v.Type {
	case TypeInt:
		return strconv.FormatInt(v.Int, 10)
	case TypeFloat:
		return formatReal(v.Float)
	case TypeText:
		return v.Text
	case TypeBlob:
		return "x'" + strings.ToUpper(hex.EncodeToString(v.Blob)) + "'"
	}
	return "NULL"
}

// Equal reports whether v and o have the same type and contents.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type || v.JSON != o.JSON {
		return false
	}
	switch v.Type {
	case TypeInt:
		return v.Int == o.Int
	case TypeFloat:
		return v.Float == o.Float || (math.IsNaN(v.Float) && math.IsNaN(o.Float))
	case TypeText:
		return v.Text == o.Text
	case TypeBlob:
		return string(v.Blob) == string(o.Blob)
	}
	return true
}

// textBytes returns the bytes SQL would see when reading v as text.
func (v Value) textBytes() []byte {
	switch v.Type {
	case TypeText:
		return []byte(v.Text)
	case TypeBlob:
		return v.Blob
	case TypeNull:
		return nil
	}
	return []byte(v.String())
}

// formatReal renders f with 15 significant digits and always includes a
// decimal point or exponent so the result reads back as a real.  Infinite
// values use the overflow literal.
func formatReal(f float64) string {
	switch {
	case math.IsNaN(f):
		return "null"
	case math.IsInf(f, 1):
		return string(infinityText)
	case math.IsInf(f, -1):
		return string(negInfinityText)
	}
	s := strconv.FormatFloat(f, 'g', 15, 64)
	mant, exp, hasExp := strings.Cut(s, "e")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	} else {
		mant = strings.TrimRight(mant, "0")
		if strings.HasSuffix(mant, ".") {
			mant += "0"
		}
	}
	if !hasExp {
		return mant
	}
	return mant + "e" + exp
}

// appendValue appends the JSON text for a SQL value: NULL becomes null,
// numbers are written as numbers, JSON-marked text is embedded, other text
// is quoted and JSONB blobs are rendered.
func (c *Context) appendValue(s *jsonString, v Value) {
	switch v.Type {
	case TypeNull:
		s.appendText("null")
	case TypeInt:
		s.printf(20, "%d", v.Int)
	case TypeFloat:
		s.appendText(formatReal(v.Float))
	case TypeText:
		if v.JSON {
			s.appendText(v.Text)
		} else {
			s.appendQuoted([]byte(v.Text))
		}
	case TypeBlob:
		if !IsJSONB(v.Blob) {
			s.fail(ErrBlob)
			return
		}
		appendBlob(s, v.Blob, 0, 0, c.cfg.MaxDepth)
	}
}

// appendValueBlob appends the JSONB encoding of a SQL value.
func (c *Context) appendValueBlob(out []byte, v Value) ([]byte, error) {
	switch v.Type {
	case TypeNull:
		return append(out, byte(KindNull)), nil
	case TypeInt:
		t := strconv.FormatInt(v.Int, 10)
		out = appendHeader(out, KindInt, len(t))
		return append(out, t...), nil
	case TypeFloat:
		if math.IsNaN(v.Float) {
			return append(out, byte(KindNull)), nil
		}
		t := formatReal(v.Float)
		out = appendHeader(out, KindFloat, len(t))
		return append(out, t...), nil
	case TypeText:
		if v.JSON {
			p := blobParser{z: []byte(v.Text), maxDepth: c.cfg.MaxDepth, maxLength: c.cfg.MaxLength}
			return p.convertText(out)
		}
		out = appendHeader(out, KindTextRaw, len(v.Text))
		return append(out, v.Text...), nil
	default:
		if !IsJSONB(v.Blob) {
			return nil, ErrBlob
		}
		return append(out, v.Blob...), nil
	}
}
