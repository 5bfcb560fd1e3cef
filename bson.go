// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// ErrNotDocument is returned by ToBSON when the JSONB top-level element is
// not an object.
var ErrNotDocument = errors.New("BSON requires a top-level object")

// ToBSON converts a JSONB document to a BSON document appended to dst.
// Integers that fit in 32 bits become int32, other integers int64.  Reals
// become doubles, strings are unescaped and arrays use the keys "0", "1"
// and so on.  Duplicate labels are kept.
func ToBSON(jsonb []byte, dst []byte) ([]byte, error) {
	kind, hdr, sz, ok := elementAt(jsonb, 0)
	if !ok || hdr+sz != len(jsonb) {
		return nil, ErrMalformed
	}
	if kind != KindObject {
		return nil, ErrNotDocument
	}
	idx, dst := bsoncore.AppendDocumentStart(dst)
	dst, err := appendBSONObject(dst, jsonb, hdr, hdr+sz, 0)
	if err != nil {
		return nil, err
	}
	return bsoncore.AppendDocumentEnd(dst, idx)
}

func appendBSONObject(dst, b []byte, i, end, depth int) ([]byte, error) {
	for i < end {
		lk, lh, ls, ok := elementAt(b, i)
		if !ok || !lk.isText() {
			return nil, ErrMalformed
		}
		label, err := scalarValue(lk, b[i+lh:i+lh+ls])
		if err != nil {
			return nil, err
		}
		i += lh + ls
		if i >= end {
			return nil, ErrMalformed
		}
		if dst, i, err = appendBSONElement(dst, label.Text, b, i, depth); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func appendBSONArray(dst, b []byte, i, end, depth int) ([]byte, error) {
	var err error
	for n := 0; i < end; n++ {
		if dst, i, err = appendBSONElement(dst, strconv.Itoa(n), b, i, depth); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// appendBSONElement appends the element at b[i] under key and returns the
// offset of the next element.
func appendBSONElement(dst []byte, key string, b []byte, i, depth int) ([]byte, int, error) {
	kind, hdr, sz, ok := elementAt(b, i)
	if !ok {
		return nil, 0, ErrMalformed
	}
	next := i + hdr + sz
	p := b[i+hdr : next]
	switch kind {
	case KindNull:
		return bsoncore.AppendNullElement(dst, key), next, nil
	case KindTrue:
		return bsoncore.AppendBooleanElement(dst, key, true), next, nil
	case KindFalse:
		return bsoncore.AppendBooleanElement(dst, key, false), next, nil
	case KindObject, KindArray:
		if depth >= DefaultMaxDepth {
			return nil, 0, ErrTooDeep
		}
		var idx int32
		var err error
		if kind == KindObject {
			idx, dst = bsoncore.AppendDocumentElementStart(dst, key)
			dst, err = appendBSONObject(dst, b, i+hdr, next, depth+1)
		} else {
			idx, dst = bsoncore.AppendArrayElementStart(dst, key)
			dst, err = appendBSONArray(dst, b, i+hdr, next, depth+1)
		}
		if err != nil {
			return nil, 0, err
		}
		dst, err = bsoncore.AppendDocumentEnd(dst, idx)
		return dst, next, err
	}

	v, err := scalarValue(kind, p)
	if err != nil {
		return nil, 0, err
	}
	switch v.Type {
	case TypeInt:
		if v.Int >= math.MinInt32 && v.Int <= math.MaxInt32 {
			return bsoncore.AppendInt32Element(dst, key, int32(v.Int)), next, nil
		}
		return bsoncore.AppendInt64Element(dst, key, v.Int), next, nil
	case TypeFloat:
		return bsoncore.AppendDoubleElement(dst, key, v.Float), next, nil
	case TypeText:
		return bsoncore.AppendStringElement(dst, key, v.Text), next, nil
	}
	return nil, 0, ErrMalformed
}

// FromBSON converts a BSON document to a JSONB object appended to dst.
// Only the BSON types that have a JSON counterpart are accepted: double,
// string, document, array, boolean, null, int32 and int64.
func FromBSON(doc []byte, dst []byte) ([]byte, error) {
	if err := bsoncore.Document(doc).Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid BSON")
	}
	return appendJSONBDocument(dst, bsoncore.Document(doc), KindObject, 0)
}

func appendJSONBDocument(out []byte, doc bsoncore.Document, kind Kind, depth int) ([]byte, error) {
	if depth >= DefaultMaxDepth {
		return nil, ErrTooDeep
	}
	elems, err := doc.Elements()
	if err != nil {
		return nil, errors.Wrap(err, "invalid BSON")
	}
	start := len(out)
	out = reserveHeader(out, kind)
	for _, e := range elems {
		if kind == KindObject {
			key := e.Key()
			out = appendHeader(out, KindTextRaw, len(key))
			out = append(out, key...)
		}
		if out, err = appendJSONBValue(out, e.Value(), depth); err != nil {
			return nil, err
		}
	}
	out, _ = rewriteHeaderSize(out, start, len(out)-start-reservedHeaderLen)
	return out, nil
}

func appendJSONBValue(out []byte, v bsoncore.Value, depth int) ([]byte, error) {
	switch v.Type {
	case bsontype.Double:
		f := v.Double()
		if math.IsNaN(f) {
			return append(out, byte(KindNull)), nil
		}
		t := formatReal(f)
		out = appendHeader(out, KindFloat, len(t))
		return append(out, t...), nil
	case bsontype.String:
		s := v.StringValue()
		out = appendHeader(out, KindTextRaw, len(s))
		return append(out, s...), nil
	case bsontype.EmbeddedDocument:
		return appendJSONBDocument(out, bsoncore.Document(v.Data), KindObject, depth+1)
	case bsontype.Array:
		return appendJSONBDocument(out, bsoncore.Document(v.Data), KindArray, depth+1)
	case bsontype.Boolean:
		if v.Boolean() {
			return append(out, byte(KindTrue)), nil
		}
		return append(out, byte(KindFalse)), nil
	case bsontype.Null:
		return append(out, byte(KindNull)), nil
	case bsontype.Int32:
		t := strconv.FormatInt(int64(v.Int32()), 10)
		out = appendHeader(out, KindInt, len(t))
		return append(out, t...), nil
	case bsontype.Int64:
		t := strconv.FormatInt(v.Int64(), 10)
		out = appendHeader(out, KindInt, len(t))
		return append(out, t...), nil
	}
	return nil, errors.Newf("BSON type %s has no JSON equivalent", v.Type)
}
