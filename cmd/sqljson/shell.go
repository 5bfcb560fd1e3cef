// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/peterh/liner"
	"github.com/xdg-go/sqljson"
)

const (
	historyFile = ".sqljson_history"
	prompt      = "sqljson> "
	banner      = "sqljson shell. Enter FUNC(ARG, ...); .help for commands, Ctrl+D to exit."
	helpText    = `
Commands:
  .help       Show this help
  .functions  List the available functions
  .stats      Show parse and cache counters
  .quit       Exit the shell
`
)

func runShell(c *sqljson.Context, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(completeName)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintln(stdout)
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)
		if strings.HasPrefix(line, ".") {
			if done := shellCommand(c, stdout, line); done {
				break
			}
			continue
		}
		if err := evalLine(c, stdout, line); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
	}

	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	return 0
}

// evalLine evaluates one "FUNC(ARG, ...)" line.
func evalLine(c *sqljson.Context, w io.Writer, line string) error {
	name, args, err := parseCall(line)
	if err != nil {
		return err
	}
	return evaluate(c, w, name, args)
}

// shellCommand runs a dot command and reports whether the shell should exit.
func shellCommand(c *sqljson.Context, w io.Writer, line string) bool {
	switch strings.Fields(line)[0] {
	case ".quit", ".exit":
		return true
	case ".help":
		fmt.Fprint(w, helpText)
	case ".functions":
		fmt.Fprintln(w, strings.Join(functionNames(), " "))
	case ".stats":
		s := c.Stats()
		fmt.Fprintf(w, "parses=%d hits=%d misses=%d evictions=%d\n", s.Parses, s.Hits, s.Misses, s.Evictions)
	default:
		fmt.Fprintf(w, "unknown command %s; try .help\n", line)
	}
	return false
}

func completeName(line string) []string {
	var out []string
	for _, n := range functionNames() {
		if strings.HasPrefix(n, strings.ToLower(line)) {
			out = append(out, n+"(")
		}
	}
	return out
}
