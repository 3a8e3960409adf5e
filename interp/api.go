// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"strings"

	"github.com/elixir-ai-tools/just-bash-sub001/syntax"
)

// ExecHandlerFunc runs an external command (one not a function or builtin),
// per spec.md §4.5.5 step 4 and the §6.4 external-command contract. The
// coreutils package supplies the concrete registry; a miss here is what
// produces "command not found", exit 127.
type ExecHandlerFunc func(argv []string, stdin string, state *State) (stdout, stderr string, exit int, newState *State)

// Interp is the interpreter (C5): a thin, mostly-stateless driver that
// threads a *State through a parsed Script, grounded on the teacher's
// api.go Runner shape but holding no real-OS handles (no stdout/stdin
// *os.File, no working-directory syscalls) since every effect is captured
// into strings against the vfs/expand packages instead.
type Interp struct {
	execHandler ExecHandlerFunc
}

// Option configures an Interp, mirroring the teacher's RunnerOption idiom.
type Option func(*Interp)

// WithExecHandler registers the external-command dispatcher (spec.md
// §4.5.5 step 4). Without one, every external command is "not found".
func WithExecHandler(f ExecHandlerFunc) Option {
	return func(r *Interp) { r.execHandler = f }
}

// New constructs an Interp with opts applied.
func New(opts ...Option) *Interp {
	r := &Interp{}
	for _, opt := range opts {
		opt(r)
	}
	if r.execHandler == nil {
		r.execHandler = notFoundHandler
	}
	return r
}

func notFoundHandler(argv []string, stdin string, state *State) (string, string, int, *State) {
	name := ""
	if len(argv) > 0 {
		name = argv[0]
	}
	return "", name + ": command not found\n", 127, state
}

// Execute parses and runs script against state, per spec.md §6.1's
// `execute(script, state) -> (Result, SandboxState)`. Lex/parse errors are
// surfaced as a Result with exit_code 2, per spec.md §7 axis 1. opts wires
// collaborators such as the coreutils package's ExecHandler; callers that
// run many scripts against the same exec handler should prefer New plus
// (*Interp).Run to avoid re-applying opts every call.
func Execute(script string, state *State, opts ...Option) (Result, *State) {
	prog, err := syntax.Parse(script)
	if err != nil {
		return Result{
			Stderr:   err.Error() + "\n",
			ExitCode: 2,
			Env:      envSnapshot(state),
		}, state
	}
	r := New(opts...)
	res := r.run(prog, state)
	return res, state
}

// Run executes an already-parsed Script against state using r's configured
// collaborators (exec handler), per spec.md §6.1's execute contract.
func (r *Interp) Run(prog *syntax.Script, state *State) Result {
	return r.run(prog, state)
}

// run drives one parsed Script against state in place, returning the
// captured Result. Unlike Execute, it assumes prog is already parsed (used
// internally for command substitution).
func (r *Interp) run(prog *syntax.Script, state *State) Result {
	var out, errOut strings.Builder
	st := &streams{out: &out, err: &errOut}
	exit, sig := r.runStmts(prog.Stmts, state, st)
	switch sig.Kind {
	case SignalReturn:
		exit = sig.N
		sig = Signal{}
	case SignalBreak, SignalContinue:
		// Stray break/continue that escaped every enclosing loop
		// terminates the script (spec.md §8.1 P7); signal must read
		// None once fully unwound.
		sig = Signal{}
	}
	if state.exitTrap != "" {
		r.runExitTrap(state, st)
	}
	state.LastExit = exit
	return Result{
		Stdout:   out.String(),
		Stderr:   errOut.String(),
		ExitCode: exit,
		Signal:   sig,
		Env:      envSnapshot(state),
	}
}

// runExitTrap runs the EXIT trap registered via `trap '...' EXIT`
// (SPEC_FULL.md §C.4): the script's own exit status is left untouched by
// whatever the trap body does.
func (r *Interp) runExitTrap(state *State, st *streams) {
	body := state.exitTrap
	state.exitTrap = ""
	prog, err := syntax.Parse(body)
	if err != nil {
		return
	}
	r.runStmtsArmed(prog.Stmts, state, st, true)
}

func envSnapshot(state *State) map[string]string {
	out := map[string]string{}
	for name, vr := range state.Environ.vars {
		if vr.Exported {
			out[name] = vr.String()
		}
	}
	return out
}

// Tokenize exposes the lexer (spec.md §6.1), for tooling/formatting use.
func Tokenize(source string) ([]syntax.Token, error) { return syntax.Tokenize(source) }

// Parse exposes the syntax parser (spec.md §6.1).
func Parse(source string) (*syntax.Script, error) { return syntax.Parse(source) }
