// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package sqljson_test

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/xdg-go/sqljson"
)

func ExampleContext_Extract() {
	c := sqljson.NewContext(sqljson.DefaultConfig())
	defer c.Close()

	doc := sqljson.Text(`{"a":[1,2,{"b":"x"}]}`)
	v, err := c.Extract(doc, sqljson.Text("$.a[2].b"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(v)

	v, err = c.Extract(doc, sqljson.Text("$.a"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(v)
	// Output:
	// x
	// [1,2,{"b":"x"}]
}

func ExampleContext_JSON() {
	c := sqljson.NewContext(sqljson.DefaultConfig())
	defer c.Close()

	v, err := c.JSON(sqljson.Text(`{a: 'x', b: 0x10, c: .5} // JSON5`))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(v)
	// Output: {"a":"x","b":16,"c":0.5}
}

func ExampleContext_Set() {
	c := sqljson.NewContext(sqljson.DefaultConfig())
	defer c.Close()

	v, err := c.Set(sqljson.Text(`{"a":1}`),
		sqljson.Text("$.b"), sqljson.Int(2),
		sqljson.Text("$.a"), sqljson.Text("one"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(v)
	// Output: {"a":"one","b":2}
}

func ExampleContext_Each() {
	c := sqljson.NewContext(sqljson.DefaultConfig())
	defer c.Close()

	cur := c.Each(sqljson.Text(`{"a":1,"b":[2]}`), "")
	for cur.Next() {
		r := cur.Row()
		fmt.Println(r.Key, r.Value, r.Type, r.FullKey)
	}
	if err := cur.Err(); err != nil {
		log.Fatal(err)
	}
	// Output:
	// a 1 integer $.a
	// b [2] array $.b
}

func ExampleAggregate() {
	c := sqljson.NewContext(sqljson.DefaultConfig())
	defer c.Close()

	g := c.GroupArray()
	for _, v := range []sqljson.Value{sqljson.Int(1), sqljson.Text("x"), sqljson.Null()} {
		if err := g.Step(v); err != nil {
			log.Fatal(err)
		}
	}
	v, err := g.Final()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(v)
	// Output: [1,"x",null]
}

func ExampleDecoder_Decode() {
	json := `{"a": 1, "b": "foo"}`
	jsonb := make([]byte, 0, 256)

	jsonReader := bufio.NewReader(bytes.NewReader([]byte(json)))
	dec, err := sqljson.NewDecoder(jsonReader)
	if err != nil {
		log.Fatal(err)
	}

	jsonb, err = dec.Decode(jsonb)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hex.EncodeToString(jsonb))
	// Output: ac17611331176237666f6f
}

func ExampleToBSON() {
	jsonb, err := sqljson.Convert([]byte(`{"a":1}`), nil)
	if err != nil {
		log.Fatal(err)
	}
	bson, err := sqljson.ToBSON(jsonb, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hex.EncodeToString(bson))
	// Output: 0c0000001061000100000000
}
