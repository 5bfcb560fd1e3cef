// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xdg-go/sqljson"
)

type scalarFunc func(c *sqljson.Context, args []sqljson.Value) (sqljson.Value, error)

type function struct {
	minArgs int
	maxArgs int // -1 for no limit
	call    scalarFunc
}

func variadic(f func(*sqljson.Context, sqljson.Value, ...sqljson.Value) (sqljson.Value, error)) scalarFunc {
	return func(c *sqljson.Context, args []sqljson.Value) (sqljson.Value, error) {
		return f(c, args[0], args[1:]...)
	}
}

func unary(f func(*sqljson.Context, sqljson.Value) (sqljson.Value, error)) scalarFunc {
	return func(c *sqljson.Context, args []sqljson.Value) (sqljson.Value, error) {
		return f(c, args[0])
	}
}

func binary(f func(*sqljson.Context, sqljson.Value, sqljson.Value) (sqljson.Value, error)) scalarFunc {
	return func(c *sqljson.Context, args []sqljson.Value) (sqljson.Value, error) {
		return f(c, args[0], args[1])
	}
}

func list(f func(*sqljson.Context, ...sqljson.Value) (sqljson.Value, error)) scalarFunc {
	return func(c *sqljson.Context, args []sqljson.Value) (sqljson.Value, error) {
		return f(c, args...)
	}
}

// aggregate feeds args to an aggregate, stride values per step.
func aggregate(start func(*sqljson.Context) *sqljson.Aggregate, stride int) scalarFunc {
	return func(c *sqljson.Context, args []sqljson.Value) (sqljson.Value, error) {
		if len(args)%stride != 0 {
			return sqljson.Null(), errors.Newf("expected a multiple of %d arguments", stride)
		}
		a := start(c)
		for i := 0; i < len(args); i += stride {
			if err := a.Step(args[i : i+stride]...); err != nil {
				return sqljson.Null(), err
			}
		}
		return a.Final()
	}
}

var functions = map[string]function{
	"json":              {1, 1, unary((*sqljson.Context).JSON)},
	"jsonb":             {1, 1, unary((*sqljson.Context).JSONB)},
	"json_array":        {0, -1, list((*sqljson.Context).Array)},
	"jsonb_array":       {0, -1, list((*sqljson.Context).ArrayB)},
	"json_object":       {0, -1, list((*sqljson.Context).Object)},
	"jsonb_object":      {0, -1, list((*sqljson.Context).ObjectB)},
	"json_quote":        {1, 1, unary((*sqljson.Context).Quote)},
	"json_extract":      {1, -1, variadic((*sqljson.Context).Extract)},
	"jsonb_extract":     {1, -1, variadic((*sqljson.Context).ExtractB)},
	"->":                {2, 2, binary((*sqljson.Context).Arrow)},
	"->>":               {2, 2, binary((*sqljson.Context).ArrowText)},
	"json_array_length": {1, 2, variadic((*sqljson.Context).ArrayLength)},
	"json_type":         {1, 2, variadic((*sqljson.Context).Type)},
	"json_set":          {1, -1, variadic((*sqljson.Context).Set)},
	"jsonb_set":         {1, -1, variadic((*sqljson.Context).SetB)},
	"json_insert":       {1, -1, variadic((*sqljson.Context).Insert)},
	"jsonb_insert":      {1, -1, variadic((*sqljson.Context).InsertB)},
	"json_replace":      {1, -1, variadic((*sqljson.Context).Replace)},
	"jsonb_replace":     {1, -1, variadic((*sqljson.Context).ReplaceB)},
	"json_remove":       {1, -1, variadic((*sqljson.Context).Remove)},
	"jsonb_remove":      {1, -1, variadic((*sqljson.Context).RemoveB)},
	"json_patch":        {2, 2, binary((*sqljson.Context).Patch)},
	"jsonb_patch":       {2, 2, binary((*sqljson.Context).PatchB)},
	"json_valid": {1, 2, func(c *sqljson.Context, args []sqljson.Value) (sqljson.Value, error) {
		flags := sqljson.ValidRFC8259
		if len(args) == 2 {
			if args[1].Type != sqljson.TypeInt {
				return sqljson.Null(), errors.New("FLAGS parameter to json_valid() must be an integer")
			}
			flags = sqljson.ValidFlags(args[1].Int)
		}
		return c.Valid(args[0], flags)
	}},
	"json_pretty": {1, 2, func(c *sqljson.Context, args []sqljson.Value) (sqljson.Value, error) {
		if len(args) == 2 && !args[1].IsNull() {
			return c.Pretty(args[0], args[1].String())
		}
		return c.Pretty(args[0])
	}},
	"json_error_position": {1, 1, unary((*sqljson.Context).ErrorPosition)},
	"json_group_array":    {0, -1, aggregate((*sqljson.Context).GroupArray, 1)},
	"jsonb_group_array":   {0, -1, aggregate((*sqljson.Context).GroupArrayB, 1)},
	"json_group_object":   {0, -1, aggregate((*sqljson.Context).GroupObject, 2)},
	"jsonb_group_object":  {0, -1, aggregate((*sqljson.Context).GroupObjectB, 2)},
}

// iterators produce rows rather than a single value.
var iterators = map[string]func(*sqljson.Context, sqljson.Value, string) *sqljson.Cursor{
	"json_each": (*sqljson.Context).Each,
	"json_tree": (*sqljson.Context).Tree,
}

// evaluate calls the named function and writes its result to w.
func evaluate(c *sqljson.Context, w io.Writer, name string, args []sqljson.Value) error {
	name = strings.ToLower(name)
	if it, ok := iterators[name]; ok {
		return writeRows(c, w, it, name, args)
	}
	f, ok := functions[name]
	if !ok {
		return errors.Newf("no such function: %s", name)
	}
	if len(args) < f.minArgs || (f.maxArgs >= 0 && len(args) > f.maxArgs) {
		return errors.Newf("wrong number of arguments to function %s()", name)
	}
	v, err := f.call(c, args)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, v.String())
	return err
}

func writeRows(c *sqljson.Context, w io.Writer, it func(*sqljson.Context, sqljson.Value, string) *sqljson.Cursor, name string, args []sqljson.Value) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.Newf("wrong number of arguments to function %s()", name)
	}
	root := ""
	if len(args) == 2 {
		root = args[1].String()
	}
	cur := it(c, args[0], root)
	fmt.Fprintln(w, "key\tvalue\ttype\tatom\tid\tparent\tfullkey\tpath")
	for cur.Next() {
		r := cur.Row()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.Key, r.Value, r.Type, r.Atom, r.ID, r.Parent, r.FullKey, r.Path)
	}
	return cur.Err()
}

// functionNames lists every name evaluate accepts.
func functionNames() []string {
	names := make([]string, 0, len(functions)+len(iterators))
	for n := range functions {
		names = append(names, n)
	}
	for n := range iterators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
