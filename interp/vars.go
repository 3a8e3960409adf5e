// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/elixir-ai-tools/just-bash-sub001/expand"
)

// Environ is the sandbox's flat variable namespace, implementing
// expand.WriteEnviron so the expand package can read and write through it
// directly. spec.md §3.3 describes `env` and `vars` as two maps, but since
// expand.Variable already tags each entry Exported/Local/ReadOnly, one flat
// map covers both without a parallel bookkeeping structure.
//
// `local` (spec.md §4.5.5) is handled with restore frames rather than a
// nested-scope lookup chain: entering a function call pushes a frame, and
// `local name` records name's current value (or "was unset") in the top
// frame the first time it's made local there. Returning from the function
// pops the frame, restoring every recorded name to its prior value. This
// matches bash's dynamic scoping (an unshadowed outer variable is visible
// and mutable from inside a function) while keeping Get/Set O(1) instead of
// O(call depth).
type Environ struct {
	vars   map[string]expand.Variable
	frames []restoreFrame
}

type restoreFrame map[string]expand.Variable

func newEnviron() *Environ {
	return &Environ{vars: make(map[string]expand.Variable)}
}

func expandVariableString(value string, exported bool) expand.Variable {
	return expand.Variable{Set: true, Exported: exported, Kind: expand.String, Str: value}
}

// Get implements expand.Environ.
func (e *Environ) Get(name string) expand.Variable { return e.vars[name] }

// Each implements expand.Environ.
func (e *Environ) Each(f func(name string, vr expand.Variable) bool) {
	for name, vr := range e.vars {
		if !f(name, vr) {
			return
		}
	}
}

// Set implements expand.WriteEnviron.
func (e *Environ) Set(name string, vr expand.Variable) error {
	if name == "" {
		return fmt.Errorf("invalid variable name")
	}
	if old, ok := e.vars[name]; ok && old.ReadOnly {
		return fmt.Errorf("%s: readonly variable", name)
	}
	if !vr.IsSet() && !vr.Declared() {
		delete(e.vars, name)
		return nil
	}
	e.vars[name] = vr
	return nil
}

// pushFrame starts a new local-variable restore frame, entered on each
// function call.
func (e *Environ) pushFrame() { e.frames = append(e.frames, restoreFrame{}) }

// popFrame restores every variable `local` shadowed in the top frame and
// discards the frame, run when a function call returns.
func (e *Environ) popFrame() {
	if len(e.frames) == 0 {
		return
	}
	frame := e.frames[len(e.frames)-1]
	e.frames = e.frames[:len(e.frames)-1]
	for name, old := range frame {
		if old.IsSet() || old.Declared() {
			e.vars[name] = old
		} else {
			delete(e.vars, name)
		}
	}
}

// markLocal records name's pre-`local` value in the active call frame, if
// any (top-level `local` outside a function is a no-op per bash).
func (e *Environ) markLocal(name string) {
	if len(e.frames) == 0 {
		return
	}
	frame := e.frames[len(e.frames)-1]
	if _, ok := frame[name]; ok {
		return
	}
	frame[name] = e.vars[name]
}

func (e *Environ) clone() *Environ {
	cp := &Environ{vars: make(map[string]expand.Variable, len(e.vars))}
	for k, v := range e.vars {
		cp.vars[k] = v
	}
	// Call frames are transient interpreter-stack state, not part of the
	// sandbox's externally observable value; a cloned state starts clean.
	return cp
}

// arithAdapter bridges Environ to arith.Env for $(( )) evaluation, reusing
// the same adapter shape as expand.Context's own arithEnv.
type arithAdapter struct{ env *Environ }

func (a arithAdapter) GetArith(name string) int64 {
	vr := a.env.Get(name)
	n, _ := strconv.ParseInt(strings.TrimSpace(vr.String()), 0, 64)
	return n
}

func (a arithAdapter) SetArith(name string, v int64) {
	a.env.Set(name, expandVariableString(strconv.FormatInt(v, 10), a.env.Get(name).Exported))
}
