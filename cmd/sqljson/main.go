// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Command sqljson evaluates SQL JSON functions from the command line.
//
//	sqljson [-config file] [-v] FUNC ARG...
//	sqljson shell
//	sqljson convert [-bson] < input
//
// Arguments use SQL literal syntax: NULL, numbers, 'text', j'json' and
// x'hex'.  Bare words are text.
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/xdg-go/sqljson"
)

const appName = "sqljson"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "YAML configuration file")
	verbose := fs.Bool("v", false, "log cache activity at debug level")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] FUNC ARG... | shell | convert [-bson]\n", appName)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg := sqljson.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = sqljson.LoadConfigFile(*configFile); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", appName, err)
			return 1
		}
	}
	level := cfg.Level()
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	c := sqljson.NewContext(cfg)
	c.SetLogger(logger)
	defer c.Close()

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	switch rest[0] {
	case "shell":
		return runShell(c, stdout, stderr)
	case "convert":
		return runConvert(rest[1:], stdin, stdout, stderr)
	}

	vals := make([]sqljson.Value, 0, len(rest)-1)
	for _, a := range rest[1:] {
		v, err := parseLiteral(a)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", appName, err)
			return 2
		}
		vals = append(vals, v)
	}
	if err := evaluate(c, stdout, rest[0], vals); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", appName, err)
		return 1
	}
	logger.Debug("done", slog.Any("stats", c.Stats()))
	return 0
}

// runConvert streams JSON texts from stdin and writes each as a hex line of
// JSONB, or of BSON with -bson.
func runConvert(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asBSON := fs.Bool("bson", false, "write BSON documents instead of JSONB")
	maxDepth := fs.Int("max-depth", 200, "maximum nesting depth")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	dec, err := sqljson.NewDecoder(bufio.NewReader(stdin))
	if err == io.EOF {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", appName, err)
		return 1
	}
	dec.MaxDepth(*maxDepth)

	w := bufio.NewWriter(stdout)
	defer w.Flush()
	var buf, doc []byte
	for {
		buf, err = dec.Decode(buf[:0])
		if err == io.EOF {
			return 0
		}
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", appName, err)
			return 1
		}
		if *asBSON {
			if doc, err = sqljson.ToBSON(buf, doc[:0]); err != nil {
				fmt.Fprintf(stderr, "%s: %v\n", appName, err)
				return 1
			}
			fmt.Fprintln(w, hex.EncodeToString(doc))
			continue
		}
		fmt.Fprintln(w, hex.EncodeToString(buf))
	}
}
