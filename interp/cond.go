// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/elixir-ai-tools/just-bash-sub001/pattern"
	"github.com/elixir-ai-tools/just-bash-sub001/syntax"
)

// evalCond evaluates a `[[ ]]` conditional expression (spec.md §4.3's
// precedence-climbing grammar, §4.5.7's last bullet).
func (r *Interp) evalCond(x syntax.CondExpr, s *State) (bool, error) {
	switch n := x.(type) {
	case *syntax.CondWord:
		ctx := r.buildContext(s)
		lit, err := ctx.Literal(n.X)
		if err != nil {
			return false, err
		}
		return lit != "", nil
	case *syntax.CondGroup:
		return r.evalCond(n.X, s)
	case *syntax.CondNot:
		ok, err := r.evalCond(n.X, s)
		return !ok, err
	case *syntax.CondAnd:
		ok, err := r.evalCond(n.X, s)
		if err != nil || !ok {
			return false, err
		}
		return r.evalCond(n.Y, s)
	case *syntax.CondOr:
		ok, err := r.evalCond(n.X, s)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		return r.evalCond(n.Y, s)
	case *syntax.CondUnary:
		return r.evalCondUnary(n, s)
	case *syntax.CondBinary:
		return r.evalCondBinary(n, s)
	default:
		return false, fmt.Errorf("unsupported conditional expression")
	}
}

func (r *Interp) condWordLiteral(x syntax.CondExpr, s *State) (string, error) {
	cw, ok := x.(*syntax.CondWord)
	if !ok {
		return "", fmt.Errorf("expected a word operand")
	}
	ctx := r.buildContext(s)
	return ctx.Literal(cw.X)
}

func (r *Interp) evalCondUnary(n *syntax.CondUnary, s *State) (bool, error) {
	val, err := r.condWordLiteral(n.X, s)
	if err != nil {
		return false, err
	}
	switch n.Op {
	case "-z":
		return val == "", nil
	case "-n":
		return val != "", nil
	case "-v":
		return s.Environ.Get(val).Declared(), nil
	}
	path := s.FS.ResolvePath(s.Cwd, val)
	info, statErr := s.FS.Stat(path)
	linfo, lstatErr := s.FS.Lstat(path)
	switch n.Op {
	case "-e":
		return statErr == nil, nil
	case "-f":
		return statErr == nil && info.IsFile, nil
	case "-d":
		return statErr == nil && info.IsDirectory, nil
	case "-r", "-w", "-x":
		return statErr == nil, nil
	case "-s":
		return statErr == nil && info.Size != nil && *info.Size > 0, nil
	case "-L", "-h":
		return lstatErr == nil && linfo.IsSymlink, nil
	case "-p", "-S", "-b", "-c":
		return false, nil
	case "-g", "-u", "-k":
		return statErr == nil && info.Mode&0o7000 != 0, nil
	case "-O", "-G":
		return statErr == nil, nil
	case "-N":
		return false, nil
	default:
		return false, fmt.Errorf("unsupported conditional unary operator %q", n.Op)
	}
}

func (r *Interp) evalCondBinary(n *syntax.CondBinary, s *State) (bool, error) {
	left, err := r.condWordLiteral(n.X, s)
	if err != nil {
		return false, err
	}

	switch n.Op {
	case "=", "==", "!=":
		cw, ok := n.Y.(*syntax.CondWord)
		if !ok {
			return false, fmt.Errorf("expected a word operand")
		}
		ctx := r.buildContext(s)
		pat, err := ctx.Pattern(cw.X)
		if err != nil {
			return false, err
		}
		matched, err := pattern.Match(pat, left, 0)
		if err != nil {
			return false, err
		}
		if n.Op == "!=" {
			return !matched, nil
		}
		return matched, nil
	case "<", ">":
		right, err := r.condWordLiteral(n.Y, s)
		if err != nil {
			return false, err
		}
		if n.Op == "<" {
			return left < right, nil
		}
		return left > right, nil
	case "=~":
		right, err := r.condWordLiteral(n.Y, s)
		if err != nil {
			return false, err
		}
		re, err := regexp.Compile(right)
		if err != nil {
			return false, err
		}
		return re.MatchString(left), nil
	case "-nt", "-ot", "-ef":
		right, err := r.condWordLiteral(n.Y, s)
		if err != nil {
			return false, err
		}
		return r.evalFileCompare(n.Op, left, right, s), nil
	}

	right, err := r.condWordLiteral(n.Y, s)
	if err != nil {
		return false, err
	}
	a, aerr := strconv.ParseInt(strings.TrimSpace(left), 0, 64)
	b, berr := strconv.ParseInt(strings.TrimSpace(right), 0, 64)
	if aerr != nil || berr != nil {
		return false, fmt.Errorf("integer expression expected")
	}
	switch n.Op {
	case "-eq":
		return a == b, nil
	case "-ne":
		return a != b, nil
	case "-lt":
		return a < b, nil
	case "-le":
		return a <= b, nil
	case "-gt":
		return a > b, nil
	case "-ge":
		return a >= b, nil
	default:
		return false, fmt.Errorf("unsupported conditional binary operator %q", n.Op)
	}
}

func (r *Interp) evalFileCompare(op, left, right string, s *State) bool {
	lp := s.FS.ResolvePath(s.Cwd, left)
	rp := s.FS.ResolvePath(s.Cwd, right)
	li, lerr := s.FS.Stat(lp)
	ri, rerr := s.FS.Stat(rp)
	switch op {
	case "-nt":
		return lerr == nil && (rerr != nil || li.Mtime.After(ri.Mtime))
	case "-ot":
		return rerr == nil && (lerr != nil || li.Mtime.Before(ri.Mtime))
	case "-ef":
		return lerr == nil && rerr == nil && lp == rp
	default:
		return false
	}
}
