// Copyright (c) 2025, Andrey Nering <andrey@nering.com.br>
// See LICENSE for licensing information

// Package coreutils implements the external-command contract of spec.md
// §6.4 and a representative coreutils catalogue (SPEC_FULL.md §D), wired
// in as the interpreter's ExecHandlerFunc. Unlike the teacher's
// moreinterp/coreutils (which shells out to real u-root command
// implementations bound to real file descriptors), every command here
// runs purely against a vfs.FS.
package coreutils

import (
	"fmt"

	"github.com/spf13/pflag"
)

// result is one command invocation's captured output, mirroring spec.md
// §6.4's run({argv, stdin, state}) -> {stdout, stderr, exit_code}.
type result struct {
	Stdout string
	Stderr string
	Exit   int
}

func errResult(name string, err error) result {
	return result{Stderr: fmt.Sprintf("%s: %s\n", name, err), Exit: 1}
}

// newFlagSet builds the shared flag-parser utility of spec.md §6.5 as a
// thin wrapper over pflag.FlagSet: combined short booleans, `--`, and
// GNU-style long flags all come from pflag directly, so each coreutil
// only declares {boolean, value} names and their defaults.
func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(discard{})
	fs.ParseErrorsWhitelist.UnknownFlags = false
	return fs
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
