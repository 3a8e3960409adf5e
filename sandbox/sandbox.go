// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package sandbox is the friendly front door spec.md §6.1 describes:
// tokenize, parse, execute, new_state and the optional format, all in one
// place instead of scattered across the interp/syntax/printer packages.
// It also carries the teacher's standalone word-expansion convenience
// functions (shell/expand.go), adapted from a real-environment variable
// lookup to a plain func(string) string one, since this sandbox never
// touches a host environment.
package sandbox

import (
	"strings"

	"github.com/elixir-ai-tools/just-bash-sub001/expand"
	"github.com/elixir-ai-tools/just-bash-sub001/interp"
	"github.com/elixir-ai-tools/just-bash-sub001/printer"
	"github.com/elixir-ai-tools/just-bash-sub001/syntax"
)

// Token, Script, Result and State re-export the primary API's vocabulary
// so callers only need to import this one package.
type (
	Token  = syntax.Token
	Script = syntax.Script
	Result = interp.Result
	State  = interp.State
)

// Tokenize exposes the lexer (spec.md §6.1).
func Tokenize(source string) ([]Token, error) { return interp.Tokenize(source) }

// Parse exposes the syntax parser (spec.md §6.1).
func Parse(source string) (*Script, error) { return interp.Parse(source) }

// Format pretty-prints a parsed script back to source (spec.md §6.1's
// optional format operation).
func Format(script *Script) string { return printer.String(script) }

// NewState constructs a sandbox State with spec.md §6.1's new_state
// defaults and options.
func NewState(opts ...interp.StateOption) *State { return interp.NewState(opts...) }

// Execute runs script against state (spec.md §6.1). Options such as
// interp.WithExecHandler(coreutils.ExecHandler(nil)) wire in external
// commands.
func Execute(script string, state *State, opts ...interp.Option) (Result, *State) {
	return interp.Execute(script, state, opts...)
}

type readOnlyWriteEnviron struct{ expand.Environ }

func (readOnlyWriteEnviron) Set(name string, vr expand.Variable) error { return nil }

// Expand performs word expansion on s using env to resolve variables,
// without running a full script: parameter expansions ($var, ${#var}),
// arithmetic expansions ($((...))) and brace expressions (foo{1,2,3}) are
// all applied. Command substitutions ($(...)) run as ordinary empty
// no-ops here, since this helper has no script runner to execute them
// against.
//
// If env is nil, every variable resolves unset.
func Expand(s string, env func(string) string) (string, error) {
	words, err := parseWords(s)
	if err != nil {
		return "", err
	}
	fields, err := wordContext(env).Fields(words...)
	if err != nil {
		return "", err
	}
	return strings.Join(fields, ""), nil
}

// Fields is like Expand, but performs IFS word-splitting and returns the
// resulting fields separately instead of joining them.
func Fields(s string, env func(string) string) ([]string, error) {
	words, err := parseWords(s)
	if err != nil {
		return nil, err
	}
	return wordContext(env).Fields(words...)
}

// parseWords treats s as a single bare simple-command line so the existing
// script parser's word splitting and word-parts dispatch (C2) can be
// reused without a dedicated standalone-word entry point.
func parseWords(s string) ([]*syntax.Word, error) {
	prog, err := syntax.Parse(s)
	if err != nil {
		return nil, err
	}
	if len(prog.Stmts) == 0 {
		return nil, nil
	}
	simple, ok := prog.Stmts[0].Pipeline.Commands[0].Expr.(*syntax.Simple)
	if !ok {
		return nil, nil
	}
	return simple.Args, nil
}

func wordContext(env func(string) string) *expand.Context {
	if env == nil {
		env = func(string) string { return "" }
	}
	return &expand.Context{Env: readOnlyWriteEnviron{expand.FuncEnviron(env)}}
}
