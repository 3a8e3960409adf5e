// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package arith evaluates the syntax.ArithExpr tree C4 produces (spec.md
// §4.4), grounded on the teacher's interp/arith.go recursive evaluator but
// operating against an abstract Env instead of a concrete Runner so it can
// be driven by the interp package's own variable store.
package arith

import (
	"fmt"

	"github.com/elixir-ai-tools/just-bash-sub001/syntax"
)

// Env is the minimal variable contract the evaluator needs: read a
// variable's current integer value, and write one back (for assignment
// and increment/decrement operators).
type Env interface {
	GetArith(name string) int64
	SetArith(name string, v int64)
}

// Eval evaluates x against env and returns its integer result, per
// spec.md §4.4 "arithmetic evaluation" (division/modulo by zero is a
// reported error, not a panic, matching §7's typed-error discipline).
func Eval(x syntax.ArithExpr, env Env) (int64, error) {
	switch n := x.(type) {
	case *syntax.ArithNumber:
		return n.Value, nil
	case *syntax.ArithVariable:
		return varValue(n, env)
	case *syntax.ArithGroup:
		return Eval(n.X, env)
	case *syntax.ArithUnary:
		return evalUnary(n, env)
	case *syntax.ArithBinary:
		return evalBinary(n, env)
	case *syntax.ArithTernary:
		c, err := Eval(n.Cond, env)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return Eval(n.X, env)
		}
		return Eval(n.Y, env)
	case *syntax.ArithAssignment:
		return evalAssignment(n, env)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("arith: unsupported expression node %T", x)
	}
}

func varValue(v *syntax.ArithVariable, env Env) (int64, error) {
	name := v.Name
	if v.Index != nil {
		idx, err := Eval(v.Index, env)
		if err != nil {
			return 0, err
		}
		name = fmt.Sprintf("%s[%d]", v.Name, idx)
	}
	return env.GetArith(name), nil
}

func evalUnary(u *syntax.ArithUnary, env Env) (int64, error) {
	switch u.Op {
	case syntax.ArPlus:
		return Eval(u.X, env)
	case syntax.ArMinus:
		x, err := Eval(u.X, env)
		return -x, err
	case syntax.ArNot:
		x, err := Eval(u.X, env)
		if err != nil {
			return 0, err
		}
		if x == 0 {
			return 1, nil
		}
		return 0, nil
	case syntax.ArBitNot:
		x, err := Eval(u.X, env)
		return ^x, err
	case syntax.ArPreInc, syntax.ArPreDec, syntax.ArPostInc, syntax.ArPostDec:
		v, ok := u.X.(*syntax.ArithVariable)
		if !ok {
			return 0, fmt.Errorf("arith: increment/decrement target must be a variable")
		}
		old, err := varValue(v, env)
		if err != nil {
			return 0, err
		}
		delta := int64(1)
		if u.Op == syntax.ArPreDec || u.Op == syntax.ArPostDec {
			delta = -1
		}
		env.SetArith(v.Name, old+delta)
		if u.Op == syntax.ArPreInc || u.Op == syntax.ArPreDec {
			return old + delta, nil
		}
		return old, nil
	}
	return 0, fmt.Errorf("arith: unknown unary operator")
}

func evalBinary(b *syntax.ArithBinary, env Env) (int64, error) {
	if b.Op == syntax.ArLAnd {
		x, err := Eval(b.X, env)
		if err != nil {
			return 0, err
		}
		if x == 0 {
			return 0, nil
		}
		y, err := Eval(b.Y, env)
		if err != nil {
			return 0, err
		}
		return boolInt(y != 0), nil
	}
	if b.Op == syntax.ArLOr {
		x, err := Eval(b.X, env)
		if err != nil {
			return 0, err
		}
		if x != 0 {
			return 1, nil
		}
		y, err := Eval(b.Y, env)
		if err != nil {
			return 0, err
		}
		return boolInt(y != 0), nil
	}
	x, err := Eval(b.X, env)
	if err != nil {
		return 0, err
	}
	y, err := Eval(b.Y, env)
	if err != nil {
		return 0, err
	}
	switch b.Op {
	case syntax.ArAdd:
		return x + y, nil
	case syntax.ArSub:
		return x - y, nil
	case syntax.ArMul:
		return x * y, nil
	case syntax.ArQuo:
		if y == 0 {
			return 0, fmt.Errorf("arith: division by zero")
		}
		return x / y, nil
	case syntax.ArRem:
		if y == 0 {
			return 0, fmt.Errorf("arith: division by zero")
		}
		return x % y, nil
	case syntax.ArPow:
		return intPow(x, y), nil
	case syntax.ArEql:
		return boolInt(x == y), nil
	case syntax.ArNeq:
		return boolInt(x != y), nil
	case syntax.ArLss:
		return boolInt(x < y), nil
	case syntax.ArGtr:
		return boolInt(x > y), nil
	case syntax.ArLeq:
		return boolInt(x <= y), nil
	case syntax.ArGeq:
		return boolInt(x >= y), nil
	case syntax.ArAnd:
		return x & y, nil
	case syntax.ArOr:
		return x | y, nil
	case syntax.ArXor:
		return x ^ y, nil
	case syntax.ArShl:
		return x << uint(y), nil
	case syntax.ArShr:
		return x >> uint(y), nil
	case syntax.ArComma:
		return y, nil
	}
	return 0, fmt.Errorf("arith: unknown binary operator")
}

func evalAssignment(a *syntax.ArithAssignment, env Env) (int64, error) {
	rhs, err := Eval(a.Value, env)
	if err != nil {
		return 0, err
	}
	name := a.Target.Name
	if a.Target.Index != nil {
		idx, err := Eval(a.Target.Index, env)
		if err != nil {
			return 0, err
		}
		name = fmt.Sprintf("%s[%d]", a.Target.Name, idx)
	}
	var result int64
	switch a.Op {
	case syntax.ArAssign:
		result = rhs
	case syntax.ArAddAssign:
		result = env.GetArith(name) + rhs
	case syntax.ArSubAssign:
		result = env.GetArith(name) - rhs
	case syntax.ArMulAssign:
		result = env.GetArith(name) * rhs
	case syntax.ArQuoAssign:
		if rhs == 0 {
			return 0, fmt.Errorf("arith: division by zero")
		}
		result = env.GetArith(name) / rhs
	case syntax.ArRemAssign:
		if rhs == 0 {
			return 0, fmt.Errorf("arith: division by zero")
		}
		result = env.GetArith(name) % rhs
	case syntax.ArAndAssign:
		result = env.GetArith(name) & rhs
	case syntax.ArOrAssign:
		result = env.GetArith(name) | rhs
	case syntax.ArXorAssign:
		result = env.GetArith(name) ^ rhs
	case syntax.ArShlAssign:
		result = env.GetArith(name) << uint(rhs)
	case syntax.ArShrAssign:
		result = env.GetArith(name) >> uint(rhs)
	}
	env.SetArith(name, result)
	return result, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func intPow(a, b int64) int64 {
	if b < 0 {
		return 0
	}
	var r int64 = 1
	for ; b > 0; b-- {
		r *= a
	}
	return r
}
