// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrMalformed is returned for JSON text or JSONB that cannot be
	// interpreted.
	ErrMalformed = errors.New("malformed JSON")

	// ErrNoMemory is returned when a result or document would grow past
	// Config.MaxLength.
	ErrNoMemory = errors.New("out of memory")

	// ErrBlob is returned when a BLOB that is not JSONB is supplied where
	// JSON is required.
	ErrBlob = errors.New("JSON cannot hold BLOB values")

	// ErrTooDeep is wrapped by a ParseError when nesting exceeds
	// Config.MaxDepth.
	ErrTooDeep = errors.New("maximum depth exceeded")
)

// ParseError records JSON text parsing errors.  Offset is the byte offset of
// the first character that could not be interpreted.
type ParseError struct {
	Offset int
	msg    string
	cause  error
}

func (pe *ParseError) Error() string { return pe.msg }

// Unwrap lets errors.Is match ErrMalformed and ErrTooDeep.
func (pe *ParseError) Unwrap() error { return pe.cause }

func newParseError(offset int, cause error) *ParseError {
	return &ParseError{
		Offset: offset,
		msg:    fmt.Sprintf("%v at byte %d", cause, offset),
		cause:  cause,
	}
}

// PathError reports a syntax error in a path expression.  Near is the
// portion of the path starting at the step that could not be parsed.
type PathError struct {
	Path string
	Near string
}

func (pe *PathError) Error() string {
	return fmt.Sprintf("JSON path error near '%s'", pe.Near)
}

func newPathError(path string, at int) *PathError {
	return &PathError{Path: path, Near: path[at:]}
}

func errWrongNumArgs(fn string) error {
	return errors.Newf("%s() needs an odd number of arguments", fn)
}
