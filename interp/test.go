// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import "github.com/elixir-ai-tools/just-bash-sub001/syntax"

// biTest and biBracketTest implement the `test`/`[` builtin (spec.md
// §4.5.5) by building the same CondExpr nodes the `[[ ]]` parser produces
// and handing them to evalCond, so both forms share one evaluator.
func biTest(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	return runTest(r, argv[1:], s, rs)
}

func biBracketTest(r *Interp, argv []string, s *State, rs *streams) (int, Signal) {
	args := argv[1:]
	if len(args) == 0 || args[len(args)-1] != "]" {
		rs.writeErr("[: missing closing ]\n")
		return 2, Signal{}
	}
	return runTest(r, args[:len(args)-1], s, rs)
}

func runTest(r *Interp, args []string, s *State, rs *streams) (int, Signal) {
	x, err := buildTestExpr(args)
	if err != nil {
		rs.writeErr(err.Error() + "\n")
		return 2, Signal{}
	}
	if x == nil {
		return 1, Signal{}
	}
	ok, err := r.evalCond(x, s)
	if err != nil {
		rs.writeErr(err.Error() + "\n")
		return 2, Signal{}
	}
	return boolExit(ok), Signal{}
}

func litWord(s string) *syntax.Word {
	return &syntax.Word{Parts: []syntax.WordPart{&syntax.Literal{Value: s}}}
}

// condUnaryOps and condBinaryOps mirror the operator sets the `[[ ]]`
// parser recognizes (syntax/parser.go); test(1)'s argv grammar needs its
// own copy since the parser's sets are unexported.
var condUnaryOps = map[string]bool{
	"-z": true, "-n": true, "-e": true, "-f": true, "-d": true, "-r": true,
	"-w": true, "-x": true, "-s": true, "-L": true, "-h": true, "-p": true,
	"-S": true, "-b": true, "-c": true, "-g": true, "-u": true, "-k": true,
	"-O": true, "-G": true, "-N": true, "-v": true,
}

var condBinaryOps = map[string]bool{
	"=": true, "==": true, "!=": true, "=~": true, "<": true, ">": true,
	"-eq": true, "-ne": true, "-lt": true, "-le": true, "-gt": true, "-ge": true,
	"-nt": true, "-ot": true, "-ef": true,
}

// buildTestExpr implements the classic test(1) argument-count grammar:
// 0 args is false, 1 arg is "is it non-empty", 2 args is a unary test
// (or negation), 3 args is a binary test (or negated unary), and beyond
// that the args are folded left to right into unary/binary tests joined
// by -a/-o, with no precedence between -a and -o and no `!` handling.
func buildTestExpr(args []string) (syntax.CondExpr, error) {
	switch len(args) {
	case 0:
		return nil, nil
	case 1:
		return &syntax.CondWord{X: litWord(args[0])}, nil
	case 2:
		if args[0] == "!" {
			inner, err := buildTestExpr(args[1:])
			if err != nil {
				return nil, err
			}
			return &syntax.CondNot{X: inner}, nil
		}
		if condUnaryOps[args[0]] {
			return &syntax.CondUnary{Op: args[0], X: &syntax.CondWord{X: litWord(args[1])}}, nil
		}
		return &syntax.CondWord{X: litWord(args[1])}, nil
	case 3:
		if args[0] == "!" {
			inner, err := buildTestExpr(args[1:])
			if err != nil {
				return nil, err
			}
			return &syntax.CondNot{X: inner}, nil
		}
		if condBinaryOps[args[1]] {
			return &syntax.CondBinary{
				Op: args[1],
				X:  &syntax.CondWord{X: litWord(args[0])},
				Y:  &syntax.CondWord{X: litWord(args[2])},
			}, nil
		}
	}
	// Fall back to folding -a/-o left to right over adjacent unary/binary
	// tests, sufficient for the multi-operand scripts this sandbox targets.
	var result syntax.CondExpr
	pendingOr := false
	i := 0
	for i < len(args) {
		if args[i] == "-a" || args[i] == "-o" {
			pendingOr = args[i] == "-o"
			i++
			continue
		}
		var term syntax.CondExpr
		switch {
		case i+1 < len(args) && condUnaryOps[args[i]]:
			term = &syntax.CondUnary{Op: args[i], X: &syntax.CondWord{X: litWord(args[i+1])}}
			i += 2
		case i+2 < len(args) && condBinaryOps[args[i+1]]:
			term = &syntax.CondBinary{Op: args[i+1], X: &syntax.CondWord{X: litWord(args[i])}, Y: &syntax.CondWord{X: litWord(args[i+2])}}
			i += 3
		default:
			term = &syntax.CondWord{X: litWord(args[i])}
			i++
		}
		if result == nil {
			result = term
			continue
		}
		if pendingOr {
			result = &syntax.CondOr{X: result, Y: term}
		} else {
			result = &syntax.CondAnd{X: result, Y: term}
		}
	}
	return result, nil
}
