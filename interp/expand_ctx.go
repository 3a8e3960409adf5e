// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"strconv"
	"strings"

	"github.com/elixir-ai-tools/just-bash-sub001/expand"
	"github.com/elixir-ai-tools/just-bash-sub001/syntax"
)

// syncSpecials writes the special/positional parameters ($@, $*, $#, $?,
// $!, $$, $-, $0, $1...) into the flat variable namespace as plain entries,
// so expand/param.go's ordinary Env.Get(name) lookups see them without any
// special-casing in the expand package itself. Called before every
// expansion so it always reflects the State's current positional
// parameters and exit status.
func (s *State) syncSpecials(scriptName string) {
	e := s.Environ
	e.vars["@"] = expand.Variable{Set: true, Kind: expand.Indexed, List: s.Positional}
	e.vars["*"] = expand.Variable{Set: true, Kind: expand.Indexed, List: s.Positional}
	e.vars["#"] = expandVariableString(strconv.Itoa(len(s.Positional)), false)
	e.vars["?"] = expandVariableString(strconv.Itoa(s.LastExit), false)
	e.vars["!"] = expandVariableString(strconv.Itoa(s.lastBgPID), false)
	e.vars["$"] = expandVariableString("1", false)
	e.vars["-"] = expandVariableString(s.optionLetters(), false)
	if scriptName != "" {
		e.vars["0"] = expandVariableString(scriptName, false)
	} else if _, ok := e.vars["0"]; !ok {
		e.vars["0"] = expandVariableString("bash", false)
	}
	for i, arg := range s.Positional {
		e.vars[strconv.Itoa(i+1)] = expandVariableString(arg, false)
	}
}

func (s *State) optionLetters() string {
	var b strings.Builder
	if s.Options.Errexit {
		b.WriteByte('e')
	}
	if s.Options.Nounset {
		b.WriteByte('u')
	}
	if s.Options.Xtrace {
		b.WriteByte('x')
	}
	if s.Options.Noglob {
		b.WriteByte('f')
	}
	return b.String()
}

// cmdRunner implements expand.CommandRunner by running a command
// substitution body in a subshell (spec.md §4.5.3 step 3): a clone of the
// state so the substitution's own side effects never escape, capturing
// only stdout (trailing newlines stripped, matching bash).
type cmdRunner struct {
	r *Interp
	s *State
}

func (cr cmdRunner) RunCaptured(body *syntax.Script) (string, error) {
	sub := cr.s.Clone()
	res := cr.r.run(body, sub)
	out := strings.TrimRight(res.Stdout, "\n")
	return out, nil
}

// buildContext constructs an expand.Context wired against the current
// interpreter and state, per spec.md §4.5.3's expansion pipeline.
func (r *Interp) buildContext(s *State) *expand.Context {
	s.syncSpecials("")
	return &expand.Context{
		Env: s.Environ,
		Config: expand.Config{
			FS:     s.FS,
			Runner: cmdRunner{r: r, s: s},
			LookupHome: func(user string) (string, bool) {
				home, ok := s.UserHomes[user]
				return home, ok
			},
			NoGlob:  s.Options.Noglob,
			NounSet: s.Options.Nounset,
		},
	}
}

// BuildContext exposes an expand.Context for callers outside this package
// that need §4.5.3-style formatting/expansion against a State's current
// variables but not full command-substitution support — the coreutils
// package's `printf` uses this, since its argv has already been expanded
// by the time the builtin/external dispatch runs.
func BuildContext(s *State) *expand.Context {
	s.syncSpecials("")
	return &expand.Context{
		Env: s.Environ,
		Config: expand.Config{
			FS: s.FS,
			LookupHome: func(user string) (string, bool) {
				home, ok := s.UserHomes[user]
				return home, ok
			},
			NoGlob:  s.Options.Noglob,
			NounSet: s.Options.Nounset,
		},
	}
}
