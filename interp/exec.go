// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"strconv"
	"strings"

	"github.com/elixir-ai-tools/just-bash-sub001/expand"
	"github.com/elixir-ai-tools/just-bash-sub001/syntax"
)

// runSimple evaluates a Simple command's assignments and words, then
// dispatches per spec.md §4.5.5: empty argv persists the assignments and
// exits 0; otherwise a function, builtin, or external command runs with
// the assignments scoped to just that invocation.
func (r *Interp) runSimple(cmd *syntax.Command, expr *syntax.Simple, s *State, rs *streams, armed bool) (int, Signal) {
	ctx := r.buildContext(s)
	argv, err := ctx.Fields(expr.Args...)
	if err != nil {
		rs.writeErr(err.Error() + "\n")
		return 1, Signal{}
	}

	if len(argv) == 0 {
		for _, a := range cmd.Assigns {
			name, vr, err := r.evalAssign(a, s)
			if err != nil {
				rs.writeErr(err.Error() + "\n")
				return 1, Signal{}
			}
			s.Environ.Set(name, vr)
		}
		return 0, Signal{}
	}

	if len(cmd.Assigns) > 0 {
		s.Environ.pushFrame()
		defer s.Environ.popFrame()
		for _, a := range cmd.Assigns {
			name, vr, err := r.evalAssign(a, s)
			if err != nil {
				rs.writeErr(err.Error() + "\n")
				return 1, Signal{}
			}
			s.Environ.markLocal(name)
			s.Environ.Set(name, vr)
		}
	}

	if s.Options.Xtrace {
		rs.writeErr("+ " + strings.Join(argv, " ") + "\n")
	}

	name := argv[0]
	if alias, ok := s.aliases[name]; ok {
		name = alias
	}

	if fn, ok := s.Functions[name]; ok {
		return r.runFunction(fn, name, argv[1:], s, rs)
	}
	if b, ok := builtins[name]; ok {
		return b(r, argv, s, rs)
	}

	out, errOut, exit, newState := r.execHandler(argv, rs.in, s)
	rs.writeOut(out)
	rs.writeErr(errOut)
	if newState != nil && newState != s {
		*s = *newState
	}
	return exit, Signal{}
}

// runFunction invokes a user-defined function: a fresh positional-
// parameter frame ($1...$N, $#, $0) and a variable restore frame for
// `local` (spec.md §4.5.5 step 2).
func (r *Interp) runFunction(fn *funcDef, name string, args []string, s *State, rs *streams) (int, Signal) {
	savedPositional := s.Positional
	saved0, had0 := s.Environ.vars["0"]
	s.Positional = args
	s.Environ.vars["0"] = expandVariableString(name, false)
	s.Environ.pushFrame()
	defer func() {
		s.Environ.popFrame()
		s.Positional = savedPositional
		if had0 {
			s.Environ.vars["0"] = saved0
		} else {
			delete(s.Environ.vars, "0")
		}
	}()

	exit, sig := r.runCommand(fn.Body, s, rs, true)
	switch sig.Kind {
	case SignalReturn:
		return sig.N, Signal{}
	case SignalBreak, SignalContinue:
		// A break/continue that unwound every enclosing loop inside the
		// function additionally returns from the function itself
		// (spec.md §8.1 P7).
		return exit, Signal{}
	}
	return exit, sig
}

// evalAssign evaluates one `name=value` / `name+=value` / `name[i]=value`
// / `name=(...)` assignment (spec.md §4.5.4, §4.5.5) into the variable it
// should become.
func (r *Interp) evalAssign(a *syntax.Assign, s *State) (string, expand.Variable, error) {
	ctx := r.buildContext(s)
	cur := s.Environ.Get(a.Name)

	if a.Naked {
		return a.Name, expand.Variable{Local: cur.Local, Exported: cur.Exported, Kind: expand.Unknown}, nil
	}

	if a.Array != nil {
		var list []string
		assoc := map[string]string{}
		isAssoc := false
		for _, elem := range a.Array {
			if elem.Index != nil {
				key, err := ctx.Literal(elem.Index)
				if err != nil {
					return a.Name, expand.Variable{}, err
				}
				val, err := ctx.Literal(elem.Value)
				if err != nil {
					return a.Name, expand.Variable{}, err
				}
				if n, err := strconv.Atoi(key); err == nil {
					for len(list) <= n {
						list = append(list, "")
					}
					list[n] = val
				} else {
					isAssoc = true
					assoc[key] = val
				}
				continue
			}
			fields, err := ctx.Fields(elem.Value)
			if err != nil {
				return a.Name, expand.Variable{}, err
			}
			list = append(list, fields...)
		}
		if isAssoc {
			return a.Name, expand.Variable{Set: true, Exported: cur.Exported, Kind: expand.Associative, Map: assoc}, nil
		}
		return a.Name, expand.Variable{Set: true, Exported: cur.Exported, Kind: expand.Indexed, List: list}, nil
	}

	val := ""
	if a.Value != nil {
		v, err := ctx.Literal(a.Value)
		if err != nil {
			return a.Name, expand.Variable{}, err
		}
		val = v
	}

	if a.Index != nil {
		idxLit, err := ctx.Literal(a.Index)
		if err != nil {
			return a.Name, expand.Variable{}, err
		}
		if n, err := strconv.Atoi(idxLit); err == nil && cur.Kind != expand.Associative {
			list := append([]string(nil), cur.List...)
			for len(list) <= n {
				list = append(list, "")
			}
			if a.Append {
				list[n] += val
			} else {
				list[n] = val
			}
			return a.Name, expand.Variable{Set: true, Exported: cur.Exported, Kind: expand.Indexed, List: list}, nil
		}
		m := make(map[string]string, len(cur.Map))
		for k, v := range cur.Map {
			m[k] = v
		}
		if a.Append {
			m[idxLit] += val
		} else {
			m[idxLit] = val
		}
		return a.Name, expand.Variable{Set: true, Exported: cur.Exported, Kind: expand.Associative, Map: m}, nil
	}

	if a.Append && cur.IsSet() {
		val = cur.String() + val
	}
	return a.Name, expand.Variable{Set: true, Exported: cur.Exported, Kind: expand.String, Str: val}, nil
}
