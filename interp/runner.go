// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"io"
	"strconv"
	"strings"

	"github.com/elixir-ai-tools/just-bash-sub001/pattern"
	"github.com/elixir-ai-tools/just-bash-sub001/syntax"
	"github.com/elixir-ai-tools/just-bash-sub001/token"
	"github.com/elixir-ai-tools/just-bash-sub001/vfs"
)

// streams carries one command's effective stdin/stdout/stderr, captured
// into strings per spec.md §4.5.6: "the interpreter captures everything
// into strings; there are no OS file descriptors."
type streams struct {
	in  string
	out io.Writer
	err io.Writer
}

func (st *streams) writeOut(s string) { io.WriteString(st.out, s) }
func (st *streams) writeErr(s string) { io.WriteString(st.err, s) }

// runStmts executes a compound list sequentially (spec.md §4.5.1),
// threading $? and honoring errexit when armed.
func (r *Interp) runStmts(stmts []*syntax.Stmt, s *State, st *streams) (int, Signal) {
	return r.runStmtsArmed(stmts, s, st, true)
}

func (r *Interp) runStmtsArmed(stmts []*syntax.Stmt, s *State, st *streams, armed bool) (int, Signal) {
	exit := 0
	for _, stmt := range stmts {
		var sig Signal
		exit, sig = r.runStmt(stmt, s, st, armed)
		s.LastExit = exit
		if !sig.none() {
			return exit, sig
		}
		if armed && s.Options.Errexit && exit != 0 {
			return exit, Signal{Kind: SignalReturn, N: exit}
		}
	}
	return exit, Signal{}
}

// runStmt runs one "complete command": a chain of pipelines joined by
// &&/||, possibly backgrounded (spec.md §4.5.1).
func (r *Interp) runStmt(stmt *syntax.Stmt, s *State, st *streams, armed bool) (int, Signal) {
	run := func() (int, Signal) {
		exit, sig := r.runPipeline(stmt.Pipeline, s, st, armed)
		if !sig.none() {
			return exit, sig
		}
		for _, arm := range stmt.AndOr {
			if arm.Op == syntax.AndOp && exit != 0 {
				continue
			}
			if arm.Op == syntax.OrOp && exit == 0 {
				continue
			}
			exit, sig = r.runPipeline(arm.Pipeline, s, st, armed)
			if !sig.none() {
				return exit, sig
			}
		}
		return exit, Signal{}
	}

	if !stmt.Background {
		return run()
	}
	// True asynchrony is a non-goal (spec.md §4.5.1): a backgrounded
	// statement still runs synchronously, with $! bumped to a
	// monotonically increasing pseudo-PID.
	s.lastBgPID++
	return run()
}

// runPipeline executes a `|`-chain left to right, each stage receiving the
// previous stage's captured stdout as its stdin (spec.md §4.5.2). Every
// stage but the rightmost runs against a cloned state, discarding its
// mutations (§8.1's P5); the rightmost stage's mutations persist.
func (r *Interp) runPipeline(p *syntax.Pipeline, s *State, st *streams, armed bool) (int, Signal) {
	if len(p.Commands) == 0 {
		return 0, Signal{}
	}
	statuses := make([]int, len(p.Commands))
	stdin := st.in
	var sig Signal
	var lastExit int

	for i, cmd := range p.Commands {
		isLast := i == len(p.Commands)-1
		cmdState := s
		if !isLast {
			cmdState = s.Clone()
		}
		var out strings.Builder
		outW := io.Writer(&out)
		if isLast {
			outW = st.out
		}
		cst := &streams{in: stdin, out: outW, err: st.err}
		var exit int
		exit, sig = r.runCommand(cmd, cmdState, cst, armed && isLast)
		statuses[i] = exit
		lastExit = exit
		if !isLast {
			stdin = out.String()
		}
		if !sig.none() {
			break
		}
	}

	s.PipeStatus = statuses
	exit := lastExit
	if s.Options.Pipefail {
		exit = 0
		for _, c := range statuses {
			if c != 0 {
				exit = c
			}
		}
	}
	if p.Negated {
		exit = boolExit(exit != 0)
	}
	return exit, sig
}

// runCommand evaluates one pipeline stage: its redirections, then its
// command expression.
func (r *Interp) runCommand(cmd *syntax.Command, s *State, st *streams, armed bool) (int, Signal) {
	if fd, ok := cmd.Expr.(*syntax.FunctionDef); ok {
		// bash ignores redirections attached to a bare function definition.
		s.Functions[fd.Name] = &funcDef{Body: fd.Body}
		return 0, Signal{}
	}

	rs, flush, err := r.prepareRedirs(cmd.Redirs, s, st)
	if err != nil {
		st.writeErr(err.Error() + "\n")
		return 1, Signal{}
	}
	defer flush()

	switch expr := cmd.Expr.(type) {
	case *syntax.Simple:
		return r.runSimple(cmd, expr, s, rs, armed)
	case *syntax.If:
		return r.runIf(expr, s, rs)
	case *syntax.For:
		return r.runFor(expr, s, rs)
	case *syntax.CStyleFor:
		return r.runCStyleFor(expr, s, rs)
	case *syntax.While:
		return r.runWhileUntil(expr.Cond, expr.Body, false, s, rs)
	case *syntax.Until:
		return r.runWhileUntil(expr.Cond, expr.Body, true, s, rs)
	case *syntax.Case:
		return r.runCase(expr, s, rs)
	case *syntax.Subshell:
		sub := s.Clone()
		exit, sig := r.runStmtsArmed(expr.Stmts, sub, rs, true)
		s.LastExit = exit
		return exit, sig
	case *syntax.Group:
		return r.runStmtsArmed(expr.Stmts, s, rs, true)
	case *syntax.ArithmeticCommand:
		ctx := r.buildContext(s)
		v, err := ctx.EvalArith(expr.X)
		if err != nil {
			rs.writeErr(err.Error() + "\n")
			return 1, Signal{}
		}
		return boolExit(v != 0), Signal{}
	case *syntax.ConditionalCommand:
		ok, err := r.evalCond(expr.X, s)
		if err != nil {
			rs.writeErr(err.Error() + "\n")
			return 1, Signal{}
		}
		return boolExit(ok), Signal{}
	case *syntax.Select:
		return r.runSelect(expr, s, rs)
	case *syntax.Coproc:
		return r.runStmt(expr.Stmt, s, rs, true)
	default:
		return 0, Signal{}
	}
}

func boolExit(ok bool) int {
	if ok {
		return 0
	}
	return 1
}

func (r *Interp) runIf(n *syntax.If, s *State, st *streams) (int, Signal) {
	exit, sig := r.runStmtsArmed(n.Cond, s, st, false)
	if !sig.none() {
		return exit, sig
	}
	if exit == 0 {
		return r.runStmtsArmed(n.Then, s, st, true)
	}
	for _, elif := range n.Elifs {
		exit, sig = r.runStmtsArmed(elif.Cond, s, st, false)
		if !sig.none() {
			return exit, sig
		}
		if exit == 0 {
			return r.runStmtsArmed(elif.Then, s, st, true)
		}
	}
	if n.Else != nil {
		return r.runStmtsArmed(n.Else, s, st, true)
	}
	return 0, Signal{}
}

// unwindLoop interprets a Break/Continue signal against one loop level,
// per spec.md §4.5.8 and §8.1's P7.
func unwindLoop(sig Signal) (brk, cont bool, rest Signal) {
	switch sig.Kind {
	case SignalBreak:
		if sig.N <= 1 {
			return true, false, Signal{}
		}
		return true, false, Signal{Kind: SignalBreak, N: sig.N - 1}
	case SignalContinue:
		if sig.N <= 1 {
			return false, true, Signal{}
		}
		return true, false, Signal{Kind: SignalContinue, N: sig.N - 1}
	default:
		return false, false, sig
	}
}

func (r *Interp) runFor(n *syntax.For, s *State, st *streams) (int, Signal) {
	var words []string
	if n.Words == nil {
		words = s.Positional
	} else {
		ctx := r.buildContext(s)
		fields, err := ctx.Fields(n.Words...)
		if err != nil {
			st.writeErr(err.Error() + "\n")
			return 1, Signal{}
		}
		words = fields
	}
	exit := 0
	for _, w := range words {
		s.Environ.Set(n.Name, expandVariableString(w, false))
		var sig Signal
		exit, sig = r.runStmtsArmed(n.Body, s, st, true)
		if !sig.none() {
			brk, cont, rest := unwindLoop(sig)
			if cont {
				continue
			}
			if brk {
				return exit, rest
			}
			return exit, rest
		}
	}
	return exit, Signal{}
}

func (r *Interp) runCStyleFor(n *syntax.CStyleFor, s *State, st *streams) (int, Signal) {
	ctx := r.buildContext(s)
	if n.Init != nil {
		if _, err := ctx.EvalArith(n.Init); err != nil {
			st.writeErr(err.Error() + "\n")
			return 1, Signal{}
		}
	}
	exit := 0
	for {
		if n.Cond != nil {
			ctx = r.buildContext(s)
			v, err := ctx.EvalArith(n.Cond)
			if err != nil {
				st.writeErr(err.Error() + "\n")
				return 1, Signal{}
			}
			if v == 0 {
				break
			}
		}
		var sig Signal
		exit, sig = r.runStmtsArmed(n.Body, s, st, true)
		if !sig.none() {
			brk, cont, rest := unwindLoop(sig)
			if brk {
				return exit, rest
			}
			if !cont {
				return exit, rest
			}
		}
		ctx = r.buildContext(s)
		if n.Post != nil {
			if _, err := ctx.EvalArith(n.Post); err != nil {
				st.writeErr(err.Error() + "\n")
				return 1, Signal{}
			}
		}
	}
	return exit, Signal{}
}

func (r *Interp) runWhileUntil(cond, body []*syntax.Stmt, until bool, s *State, st *streams) (int, Signal) {
	exit := 0
	for {
		cExit, sig := r.runStmtsArmed(cond, s, st, false)
		if !sig.none() {
			return cExit, sig
		}
		ok := cExit == 0
		if until {
			ok = !ok
		}
		if !ok {
			break
		}
		var bsig Signal
		exit, bsig = r.runStmtsArmed(body, s, st, true)
		if !bsig.none() {
			brk, cont, rest := unwindLoop(bsig)
			if cont {
				continue
			}
			if brk {
				return exit, rest
			}
			return exit, rest
		}
	}
	return exit, Signal{}
}

func (r *Interp) runCase(n *syntax.Case, s *State, st *streams) (int, Signal) {
	ctx := r.buildContext(s)
	word, err := ctx.Literal(n.Word)
	if err != nil {
		st.writeErr(err.Error() + "\n")
		return 1, Signal{}
	}
	exit := 0
	testPatterns := true
	for idx, item := range n.Items {
		if testPatterns {
			found := false
			for _, p := range item.Patterns {
				pat, err := ctx.Pattern(p)
				if err != nil {
					continue
				}
				if ok, _ := pattern.Match(pat, word, 0); ok {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		var sig Signal
		exit, sig = r.runStmtsArmed(item.Body, s, st, true)
		if !sig.none() {
			return exit, sig
		}
		switch item.Term {
		case syntax.CaseFallThru:
			testPatterns = false
			if idx+1 < len(n.Items) {
				continue
			}
			return exit, Signal{}
		case syntax.CaseContTest:
			testPatterns = true
			continue
		default: // CaseBreak
			return exit, Signal{}
		}
	}
	return exit, Signal{}
}

// runSelect degrades the interactive `select` menu to a single
// non-interactive pass (SPEC_FULL.md §C.3): REPLY and the loop variable
// are set to the first word, if any, and the body runs once.
func (r *Interp) runSelect(n *syntax.Select, s *State, st *streams) (int, Signal) {
	ctx := r.buildContext(s)
	words, err := ctx.Fields(n.Words...)
	if err != nil {
		st.writeErr(err.Error() + "\n")
		return 1, Signal{}
	}
	reply := ""
	if len(words) > 0 {
		reply = words[0]
	}
	s.Environ.Set("REPLY", expandVariableString(reply, false))
	s.Environ.Set(n.Name, expandVariableString(reply, false))
	exit, sig := r.runStmtsArmed(n.Body, s, st, true)
	if !sig.none() {
		if brk, _, rest := unwindLoop(sig); brk {
			return exit, rest
		}
	}
	return exit, Signal{}
}

// --- redirections (spec.md §4.5.6) ---

type pendingWrite struct {
	path   string
	buf    *strings.Builder
	append bool
}

func (r *Interp) prepareRedirs(redirs []*syntax.Redirect, s *State, parent *streams) (*streams, func(), error) {
	rs := &streams{in: parent.in, out: parent.out, err: parent.err}
	if len(redirs) == 0 {
		return rs, func() {}, nil
	}
	var pending []*pendingWrite
	ctx := r.buildContext(s)

	targetPath := func(w *syntax.Word) (string, error) {
		fields, err := ctx.Fields(w)
		if err != nil {
			return "", err
		}
		path := ""
		if len(fields) > 0 {
			path = fields[0]
		}
		return s.FS.ResolvePath(s.Cwd, path), nil
	}

	bindWrite := func(fd int, path string, appendMode bool) {
		pw := &pendingWrite{path: path, buf: &strings.Builder{}, append: appendMode}
		pending = append(pending, pw)
		switch fd {
		case 2:
			rs.err = pw.buf
		default:
			rs.out = pw.buf
		}
	}

	for _, rd := range redirs {
		fd := defaultFd(rd.Op)
		if rd.Fd != nil {
			fd = *rd.Fd
		}
		switch rd.Op {
		case token.LSS:
			path, err := targetPath(rd.Target)
			if err != nil {
				return nil, nil, err
			}
			data, err := s.FS.ReadFile(path)
			if err != nil {
				return nil, nil, err
			}
			rs.in = string(data)
		case token.GTR, token.CLBOUT:
			path, err := targetPath(rd.Target)
			if err != nil {
				return nil, nil, err
			}
			bindWrite(fd, path, false)
		case token.SHR:
			path, err := targetPath(rd.Target)
			if err != nil {
				return nil, nil, err
			}
			bindWrite(fd, path, true)
		case token.RDRALL:
			path, err := targetPath(rd.Target)
			if err != nil {
				return nil, nil, err
			}
			bindWrite(1, path, false)
			rs.err = rs.out
		case token.APPALL:
			path, err := targetPath(rd.Target)
			if err != nil {
				return nil, nil, err
			}
			bindWrite(1, path, true)
			rs.err = rs.out
		case token.RDRINOUT:
			path, err := targetPath(rd.Target)
			if err != nil {
				return nil, nil, err
			}
			if data, err := s.FS.ReadFile(path); err == nil {
				rs.in = string(data)
			}
			bindWrite(fd, path, true)
		case token.SHL, token.DHEREDOC:
			content := ""
			if rd.Heredoc != nil && rd.Heredoc.Content != nil {
				if rd.Heredoc.Quoted {
					lit, _ := rd.Heredoc.Content.Lit()
					content = lit
				} else if lit, err := ctx.Literal(rd.Heredoc.Content); err == nil {
					content = lit
				}
			}
			rs.in = content
		case token.WHEREDOC:
			lit, err := ctx.Literal(rd.Target)
			if err != nil {
				return nil, nil, err
			}
			rs.in = lit + "\n"
		case token.DPLOUT:
			lit, ok := rd.Target.Lit()
			if !ok || lit == "-" {
				continue
			}
			n, err := strconv.Atoi(lit)
			if err != nil {
				continue
			}
			// n>&m: duplicate fd m's current target onto fd n. Only fds
			// 1 and 2 are observable in this model.
			var src io.Writer
			switch n {
			case 1:
				src = rs.out
			case 2:
				src = rs.err
			default:
				continue
			}
			switch fd {
			case 1:
				rs.out = src
			case 2:
				rs.err = src
			}
		case token.DPLIN:
			// Input fd duplication beyond fd 0 has no second stream to
			// read from in this model; a no-op.
		}
	}

	flush := func() {
		for _, pw := range pending {
			data := []byte(pw.buf.String())
			if pw.append {
				s.FS.AppendFile(pw.path, data)
			} else {
				s.FS.WriteFile(pw.path, data, vfs.WriteOptions{})
			}
		}
	}
	return rs, flush, nil
}

func defaultFd(op token.Kind) int {
	switch op {
	case token.LSS, token.SHL, token.DHEREDOC, token.WHEREDOC, token.DPLIN, token.RDRINOUT:
		return 0
	default:
		return 1
	}
}
