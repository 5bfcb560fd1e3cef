// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package main

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xdg-go/sqljson"
)

// parseLiteral converts one argument written in SQL literal syntax: NULL,
// integers, reals, 'text', j'json' for JSON-tagged text and x'hex' for
// blobs.  Anything else is taken as bare text.
func parseLiteral(tok string) (sqljson.Value, error) {
	switch {
	case strings.EqualFold(tok, "null"):
		return sqljson.Null(), nil
	case len(tok) >= 2 && tok[0] == '\'':
		s, err := unquote(tok)
		return sqljson.Text(s), err
	case len(tok) >= 3 && (tok[0] == 'j' || tok[0] == 'J') && tok[1] == '\'':
		s, err := unquote(tok[1:])
		return sqljson.JSONText(s), err
	case len(tok) >= 3 && (tok[0] == 'x' || tok[0] == 'X') && tok[1] == '\'':
		s, err := unquote(tok[1:])
		if err != nil {
			return sqljson.Null(), err
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return sqljson.Null(), errors.Wrapf(err, "bad blob literal %s", tok)
		}
		return sqljson.Blob(b), nil
	}
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return sqljson.Int(i), nil
	}
	if isNumeric(tok) {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return sqljson.Float(f), nil
		}
	}
	return sqljson.Text(tok), nil
}

// isNumeric reports whether tok looks like a decimal real, so that words
// such as "inf" stay text.
func isNumeric(tok string) bool {
	digits := false
	for i := 0; i < len(tok); i++ {
		switch c := tok[i]; {
		case c >= '0' && c <= '9':
			digits = true
		case c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-':
		default:
			return false
		}
	}
	return digits
}

// unquote strips SQL single quotes, where a doubled quote stands for one.
func unquote(tok string) (string, error) {
	if len(tok) < 2 || tok[0] != '\'' || tok[len(tok)-1] != '\'' {
		return "", errors.Newf("unterminated string literal %s", tok)
	}
	body := tok[1 : len(tok)-1]
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\'' {
			if i+1 >= len(body) || body[i+1] != '\'' {
				return "", errors.Newf("unescaped quote in literal %s", tok)
			}
			i++
		}
		sb.WriteByte(body[i])
	}
	return sb.String(), nil
}

// parseCall splits "name(arg, arg, ...)" into the function name and its
// literal arguments.
func parseCall(line string) (string, []sqljson.Value, error) {
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(line, ";")
	open := strings.IndexByte(line, '(')
	if open <= 0 || !strings.HasSuffix(line, ")") {
		return "", nil, errors.New("expected FUNC(ARG, ...)")
	}
	name := strings.TrimSpace(line[:open])
	toks, err := splitArgs(line[open+1 : len(line)-1])
	if err != nil {
		return "", nil, err
	}
	args := make([]sqljson.Value, 0, len(toks))
	for _, t := range toks {
		v, err := parseLiteral(t)
		if err != nil {
			return "", nil, err
		}
		args = append(args, v)
	}
	return name, args, nil
}

// splitArgs splits at commas outside quoted literals.
func splitArgs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var toks []string
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				toks = append(toks, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if inQuote {
		return nil, errors.New("unterminated string literal")
	}
	return append(toks, strings.TrimSpace(s[start:])), nil
}
