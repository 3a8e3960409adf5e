// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/elixir-ai-tools/just-bash-sub001/expand"
	"github.com/elixir-ai-tools/just-bash-sub001/syntax"
)

// builtinFunc is the shape of one shell builtin (spec.md §4.5.5 step 3):
// it runs directly against the current state rather than a clone, and may
// set a control-flow Signal (exit/return/break/continue).
type builtinFunc func(r *Interp, argv []string, s *State, rs *streams) (int, Signal)

// builtins is the closed set spec.md §4.5.5 names, plus the
// SPEC_FULL.md §C supplements (declare/typeset/readonly, getopts, trap)
// and alias, unalias, hash (a no-op) and type.
var builtins = map[string]builtinFunc{
	"cd":       biCd,
	"pwd":      biPwd,
	"echo":     biEcho,
	"printf":   biPrintf,
	"export":   biExport,
	"unset":    biUnset,
	"read":     biRead,
	"exit":     biExit,
	"return":   biReturn,
	"break":    biBreak,
	"continue": biContinue,
	"true":     biTrue,
	"false":    biFalse,
	":":        biTrue,
	"set":      biSet,
	"shift":    biShift,
	"test":     biTest,
	"[":        biBracketTest,
	"let":      biLet,
	"local":    biLocal,
	"source":   biSource,
	".":        biSource,
	"eval":     biEval,
	"declare":  biDeclare,
	"typeset":  biDeclare,
	"readonly": biReadonly,
	"getopts":  biGetopts,
	"alias":    biAlias,
	"unalias":  biUnalias,
	"hash":     biTrue,
	"type":     biType,
	"trap":     biTrap,
}

// biTrap implements `trap 'body' EXIT`, the one signal this sandbox gives
// runtime effect to (SPEC_FULL.md §C.4): everything else parses as an
// ordinary simple command but has no special handling, matching real
// bash's acceptance of `trap` with any signal name.
func biTrap(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	args := argv[1:]
	if len(args) == 0 {
		if s.exitTrap != "" {
			rs.writeOut(fmt.Sprintf("trap -- %q EXIT\n", s.exitTrap))
		}
		return 0, Signal{}
	}
	if len(args) == 1 && (args[0] == "-" || args[0] == "") {
		return 0, Signal{}
	}
	body := args[0]
	for _, sig := range args[1:] {
		if sig == "EXIT" || sig == "0" {
			s.exitTrap = body
		}
	}
	return 0, Signal{}
}

func biTrue(r *Interp, argv []string, s *State, rs *streams) (int, Signal)  { return 0, Signal{} }
func biFalse(r *Interp, argv []string, s *State, rs *streams) (int, Signal) { return 1, Signal{} }

func biCd(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	target := s.Environ.Get("HOME").String()
	if len(argv) > 1 {
		target = argv[1]
	}
	path := s.FS.ResolvePath(s.Cwd, target)
	info, err := s.FS.Stat(path)
	if err != nil || !info.IsDirectory {
		rs.writeErr(fmt.Sprintf("cd: %s: No such file or directory\n", target))
		return 1, Signal{}
	}
	s.Environ.Set("OLDPWD", expandVariableString(s.Cwd, true))
	s.Cwd = path
	s.Environ.Set("PWD", expandVariableString(s.Cwd, true))
	return 0, Signal{}
}

func biPwd(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	rs.writeOut(s.Cwd + "\n")
	return 0, Signal{}
}

func biEcho(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	args := argv[1:]
	newline := true
	interpretEscapes := false
	for len(args) > 0 {
		a := args[0]
		if a == "--" {
			args = args[1:]
			break
		}
		if len(a) < 2 || a[0] != '-' {
			break
		}
		valid := true
		for _, c := range a[1:] {
			if c != 'n' && c != 'e' && c != 'E' {
				valid = false
				break
			}
		}
		if !valid {
			break
		}
		for _, c := range a[1:] {
			switch c {
			case 'n':
				newline = false
			case 'e':
				interpretEscapes = true
			case 'E':
				interpretEscapes = false
			}
		}
		args = args[1:]
	}
	out := strings.Join(args, " ")
	if interpretEscapes {
		out = expandEchoEscapes(out)
	}
	rs.writeOut(out)
	if newline {
		rs.writeOut("\n")
	}
	return 0, Signal{}
}

func expandEchoEscapes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case '\\':
			b.WriteByte('\\')
		case 'c':
			return b.String()
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i+1])
		}
		i++
	}
	return b.String()
}

func biPrintf(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	if len(argv) < 2 {
		return 0, Signal{}
	}
	ctx := r.buildContext(s)
	out, _, err := ctx.Format(argv[1], argv[2:])
	if err != nil {
		rs.writeErr(err.Error() + "\n")
		return 1, Signal{}
	}
	rs.writeOut(out)
	return 0, Signal{}
}

func biExport(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	if len(argv) == 1 {
		names := make([]string, 0)
		for name, vr := range s.Environ.vars {
			if vr.Exported {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			rs.writeOut(fmt.Sprintf("declare -x %s=%q\n", name, s.Environ.Get(name).String()))
		}
		return 0, Signal{}
	}
	for _, arg := range argv[1:] {
		name, value, hasEq := strings.Cut(arg, "=")
		vr := s.Environ.Get(name)
		if hasEq {
			vr = expandVariableString(value, true)
		}
		vr.Exported = true
		if err := s.Environ.Set(name, vr); err != nil {
			rs.writeErr(err.Error() + "\n")
			return 1, Signal{}
		}
	}
	return 0, Signal{}
}

func biUnset(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	for _, name := range argv[1:] {
		if name == "-f" || name == "-v" {
			continue
		}
		delete(s.Functions, name)
		s.Environ.Set(name, expand.Variable{})
	}
	return 0, Signal{}
}

func biExit(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	code := s.LastExit
	if len(argv) > 1 {
		if n, err := strconv.Atoi(argv[1]); err == nil {
			code = n
		}
	}
	code = code & 0xff
	return code, Signal{Kind: SignalReturn, N: code}
}

func biReturn(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	code := s.LastExit
	if len(argv) > 1 {
		if n, err := strconv.Atoi(argv[1]); err == nil {
			code = n
		}
	}
	return code, Signal{Kind: SignalReturn, N: code}
}

func biBreak(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	n := 1
	if len(argv) > 1 {
		if v, err := strconv.Atoi(argv[1]); err == nil && v > 0 {
			n = v
		}
	}
	return 0, Signal{Kind: SignalBreak, N: n}
}

func biContinue(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	n := 1
	if len(argv) > 1 {
		if v, err := strconv.Atoi(argv[1]); err == nil && v > 0 {
			n = v
		}
	}
	return 0, Signal{Kind: SignalContinue, N: n}
}

func biSet(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	args := argv[1:]
	i := 0
	for i < len(args) {
		a := args[i]
		if a == "--" {
			i++
			break
		}
		if len(a) < 2 || (a[0] != '-' && a[0] != '+') {
			break
		}
		enable := a[0] == '-'
		if a == "-o" || a == "+o" {
			i++
			if i >= len(args) {
				break
			}
			applyLongOption(s, args[i], enable)
			i++
			continue
		}
		for _, c := range []byte(a[1:]) {
			applyShortOption(s, c, enable)
		}
		i++
	}
	if i < len(args) {
		s.Positional = append([]string(nil), args[i:]...)
	}
	return 0, Signal{}
}

func applyShortOption(s *State, c byte, enable bool) {
	switch c {
	case 'e':
		s.Options.Errexit = enable
	case 'u':
		s.Options.Nounset = enable
	case 'x':
		s.Options.Xtrace = enable
	case 'f':
		s.Options.Noglob = enable
	}
}

func applyLongOption(s *State, name string, enable bool) {
	switch name {
	case "errexit":
		s.Options.Errexit = enable
	case "nounset":
		s.Options.Nounset = enable
	case "pipefail":
		s.Options.Pipefail = enable
	case "xtrace":
		s.Options.Xtrace = enable
	case "noglob":
		s.Options.Noglob = enable
	}
}

func biShift(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	n := 1
	if len(argv) > 1 {
		if v, err := strconv.Atoi(argv[1]); err == nil {
			n = v
		}
	}
	if n > len(s.Positional) {
		return 1, Signal{}
	}
	s.Positional = s.Positional[n:]
	return 0, Signal{}
}

func biLet(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	ctx := r.buildContext(s)
	var last int64
	for _, expr := range argv[1:] {
		x, err := syntax.ParseArith(expr)
		if err != nil {
			rs.writeErr(err.Error() + "\n")
			return 1, Signal{}
		}
		v, err := ctx.EvalArith(x)
		if err != nil {
			rs.writeErr(err.Error() + "\n")
			return 1, Signal{}
		}
		last = v
	}
	return boolExit(last != 0), Signal{}
}

func biLocal(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	for _, arg := range argv[1:] {
		name, value, hasEq := strings.Cut(arg, "=")
		s.Environ.markLocal(name)
		if hasEq {
			s.Environ.Set(name, expandVariableString(value, s.Environ.Get(name).Exported))
		} else if !s.Environ.Get(name).Declared() {
			s.Environ.Set(name, expand.Variable{Local: true, Kind: expand.Unknown})
		}
	}
	return 0, Signal{}
}

func biDeclare(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	exported, readOnly, array, assoc := false, false, false, false
	args := argv[1:]
	i := 0
	for ; i < len(args); i++ {
		a := args[i]
		if len(a) < 2 || a[0] != '-' {
			break
		}
		for _, c := range a[1:] {
			switch c {
			case 'x':
				exported = true
			case 'r':
				readOnly = true
			case 'a':
				array = true
			case 'A':
				assoc = true
			}
		}
	}
	for _, arg := range args[i:] {
		name, value, hasEq := strings.Cut(arg, "=")
		cur := s.Environ.Get(name)
		vr := cur
		if hasEq {
			vr = expandVariableString(value, cur.Exported)
		} else if !cur.Declared() {
			vr = expand.Variable{Kind: expand.Unknown}
		}
		if array && vr.Kind != expand.Indexed {
			vr.Kind = expand.Indexed
		}
		if assoc && vr.Kind != expand.Associative {
			vr.Kind = expand.Associative
		}
		if exported {
			vr.Exported = true
		}
		if readOnly {
			vr.ReadOnly = true
		}
		s.Environ.vars[name] = vr
	}
	return 0, Signal{}
}

func biReadonly(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	for _, arg := range argv[1:] {
		name, value, hasEq := strings.Cut(arg, "=")
		vr := s.Environ.Get(name)
		if hasEq {
			vr = expandVariableString(value, vr.Exported)
		}
		vr.ReadOnly = true
		s.Environ.vars[name] = vr
	}
	return 0, Signal{}
}

func biRead(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	args := argv[1:]
	raw := false
	prompt := ""
	var names []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-r":
			raw = true
		case "-p":
			if i+1 < len(args) {
				i++
				prompt = args[i]
			}
		default:
			names = append(names, args[i])
		}
	}
	if prompt != "" {
		rs.writeErr(prompt)
	}
	if len(names) == 0 {
		names = []string{"REPLY"}
	}
	line, rest, hasLine := strings.Cut(rs.in, "\n")
	rs.in = rest
	if !raw {
		line = strings.ReplaceAll(line, "\\\n", "")
	}
	fields := strings.Fields(line)
	for i, name := range names {
		if i == len(names)-1 {
			val := ""
			if i < len(fields) {
				val = strings.Join(fields[i:], " ")
			}
			s.Environ.Set(name, expandVariableString(val, false))
			continue
		}
		val := ""
		if i < len(fields) {
			val = fields[i]
		}
		s.Environ.Set(name, expandVariableString(val, false))
	}
	if !hasLine && line == "" {
		return 1, Signal{}
	}
	return 0, Signal{}
}

func biSource(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	if len(argv) < 2 {
		return 0, Signal{}
	}
	path := s.FS.ResolvePath(s.Cwd, argv[1])
	data, err := s.FS.ReadFile(path)
	if err != nil {
		rs.writeErr(fmt.Sprintf("%s: No such file or directory\n", argv[1]))
		return 1, Signal{}
	}
	prog, err := syntax.Parse(string(data))
	if err != nil {
		rs.writeErr(err.Error() + "\n")
		return 2, Signal{}
	}
	savedPositional := s.Positional
	if len(argv) > 2 {
		s.Positional = argv[2:]
	}
	exit, sig := r.runStmtsArmed(prog.Stmts, s, rs, true)
	s.Positional = savedPositional
	if sig.Kind == SignalReturn {
		return sig.N, Signal{}
	}
	return exit, sig
}

func biEval(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	src := strings.Join(argv[1:], " ")
	prog, err := syntax.Parse(src)
	if err != nil {
		rs.writeErr(err.Error() + "\n")
		return 2, Signal{}
	}
	return r.runStmtsArmed(prog.Stmts, s, rs, true)
}

func biGetopts(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	if len(argv) < 3 {
		return 2, Signal{}
	}
	optstring := argv[1]
	varName := argv[2]
	args := s.Positional

	optindVr := s.Environ.Get("OPTIND")
	optind, _ := strconv.Atoi(optindVr.String())
	if optind < 1 {
		optind = 1
	}

	if optind-1 >= len(args) {
		s.Environ.Set(varName, expandVariableString("?", false))
		s.Environ.Set("OPTIND", expandVariableString(strconv.Itoa(optind), false))
		return 1, Signal{}
	}
	cur := args[optind-1]
	if len(cur) < 2 || cur[0] != '-' {
		s.Environ.Set(varName, expandVariableString("?", false))
		return 1, Signal{}
	}
	opt := string(cur[1])
	idx := strings.IndexByte(optstring, cur[1])
	if idx < 0 {
		s.Environ.Set(varName, expandVariableString("?", false))
		s.Environ.Set("OPTIND", expandVariableString(strconv.Itoa(optind+1), false))
		return 0, Signal{}
	}
	if idx+1 < len(optstring) && optstring[idx+1] == ':' {
		if len(cur) > 2 {
			s.Environ.Set("OPTARG", expandVariableString(cur[2:], false))
		} else if optind < len(args) {
			s.Environ.Set("OPTARG", expandVariableString(args[optind], false))
			optind++
		}
	}
	s.Environ.Set(varName, expandVariableString(opt, false))
	s.Environ.Set("OPTIND", expandVariableString(strconv.Itoa(optind+1), false))
	return 0, Signal{}
}

func biAlias(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	if s.aliases == nil {
		s.aliases = map[string]string{}
	}
	if len(argv) == 1 {
		names := make([]string, 0, len(s.aliases))
		for name := range s.aliases {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rs.writeOut(fmt.Sprintf("alias %s='%s'\n", name, s.aliases[name]))
		}
		return 0, Signal{}
	}
	for _, arg := range argv[1:] {
		name, value, ok := strings.Cut(arg, "=")
		if ok {
			s.aliases[name] = value
		} else if target, ok := s.aliases[name]; ok {
			rs.writeOut(fmt.Sprintf("alias %s='%s'\n", name, target))
		}
	}
	return 0, Signal{}
}

func biUnalias(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	for _, name := range argv[1:] {
		delete(s.aliases, name)
	}
	return 0, Signal{}
}

func biType(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	exit := 0
	for _, name := range argv[1:] {
		switch {
		case s.Functions[name] != nil:
			rs.writeOut(fmt.Sprintf("%s is a function\n", name))
		case builtins[name] != nil:
			rs.writeOut(fmt.Sprintf("%s is a shell builtin\n", name))
		default:
			rs.writeOut(fmt.Sprintf("%s: not found\n", name))
			exit = 1
		}
	}
	return exit, Signal{}
}
