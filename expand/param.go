// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/elixir-ai-tools/just-bash-sub001/pattern"
	"github.com/elixir-ai-tools/just-bash-sub001/syntax"
)

// paramExp evaluates one ${...} / $name parameter expansion against the
// current environment, implementing every ParamOp variant from spec.md
// §4.5.4. It is grounded on the teacher's expand/param.go, adapted to this
// module's ParamOp sum type and scalar/Indexed/Associative Variable model.
func (c *Context) paramExp(pe *syntax.ParamExpansion) (string, error) {
	name := pe.Name
	if pe.Indirect {
		target := c.Env.Get(name).String()
		if target == "" {
			return "", nil
		}
		name = target
	}

	special, idxN, specialErr := c.resolveIndex(pe.Index)
	if specialErr != nil {
		return "", specialErr
	}

	vr := c.Env.Get(name)
	set := vr.IsSet()
	str := c.scalarValue(vr, special, idxN, pe.Index)

	var elems []string
	switch {
	case special == "@" || special == "*":
		switch vr.Kind {
		case Indexed:
			elems = vr.List
		case Associative:
			elems = sortedMapValues(vr.Map)
		default:
			if vr.IsSet() {
				elems = []string{vr.Str}
			}
		}
	default:
		elems = []string{str}
	}

	if pe.Length {
		n := len(elems)
		if special != "@" && special != "*" {
			n = utf8.RuneCountInString(str)
		}
		return strconv.Itoa(n), nil
	}

	if pe.Op == nil {
		if !set && c.NounSet {
			return "", UnsetParameterError{Name: name, Message: "unbound variable"}
		}
		return str, nil
	}

	switch op := pe.Op.(type) {
	case *syntax.DefaultValue:
		if c.paramUnset(set, str, op.CheckEmpty) {
			return c.Literal(op.Word)
		}
		return str, nil
	case *syntax.AssignDefault:
		if c.paramUnset(set, str, op.CheckEmpty) {
			v, err := c.Literal(op.Word)
			if err != nil {
				return "", err
			}
			if err := c.Env.Set(name, Variable{Set: true, Kind: String, Str: v}); err != nil {
				return "", err
			}
			return v, nil
		}
		return str, nil
	case *syntax.ErrorIfUnset:
		if c.paramUnset(set, str, op.CheckEmpty) {
			msg, err := c.Literal(op.Word)
			if err != nil {
				return "", err
			}
			return "", UnsetParameterError{Name: name, Message: msg}
		}
		return str, nil
	case *syntax.UseAlternative:
		if !c.paramUnset(set, str, op.CheckEmpty) {
			return c.Literal(op.Word)
		}
		return "", nil
	case *syntax.Substring:
		return c.substring(str, op)
	case *syntax.PatternRemoval:
		for i, e := range elems {
			v, err := c.removePattern(e, op)
			if err != nil {
				return "", err
			}
			elems[i] = v
		}
		return strings.Join(elems, " "), nil
	case *syntax.PatternReplacement:
		for i, e := range elems {
			v, err := c.replacePattern(e, op)
			if err != nil {
				return "", err
			}
			elems[i] = v
		}
		return strings.Join(elems, " "), nil
	case *syntax.CaseModification:
		for i, e := range elems {
			elems[i] = c.caseMod(e, op)
		}
		return strings.Join(elems, " "), nil
	}
	return str, nil
}

func (c *Context) paramUnset(set bool, str string, checkEmpty bool) bool {
	if checkEmpty {
		return !set || str == ""
	}
	return !set
}

func sortedMapValues(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}

// resolveIndex evaluates a `[index]` word, recognizing the literal "@"/"*"
// special indices used to request every array element.
func (c *Context) resolveIndex(idx *syntax.Word) (special string, n int64, err error) {
	if idx == nil {
		return "", 0, nil
	}
	if s := litIndex(idx); s == "@" || s == "*" {
		return s, 0, nil
	}
	lit, err := c.Literal(idx)
	if err != nil {
		return "", 0, err
	}
	x, err := syntax.ParseArith(lit)
	if err != nil {
		return "", 0, err
	}
	v, err := c.EvalArith(x)
	return "", v, err
}

func (c *Context) scalarValue(vr Variable, special string, idxN int64, idx *syntax.Word) string {
	switch vr.Kind {
	case Indexed:
		if special == "@" {
			return strings.Join(vr.List, " ")
		}
		if special == "*" {
			return c.ifsJoin(vr.List)
		}
		if idx == nil {
			if len(vr.List) > 0 {
				return vr.List[0]
			}
			return ""
		}
		if idxN >= 0 && int(idxN) < len(vr.List) {
			return vr.List[idxN]
		}
		return ""
	case Associative:
		if special == "@" {
			return strings.Join(sortedMapValues(vr.Map), " ")
		}
		if special == "*" {
			return c.ifsJoin(sortedMapValues(vr.Map))
		}
		if idx == nil {
			return ""
		}
		key, _ := c.Literal(idx)
		return vr.Map[key]
	default:
		return vr.String()
	}
}

// substring implements ${name:offset:length} with Python-like negative
// offsets/lengths (spec.md §4.5.4).
func (c *Context) substring(str string, op *syntax.Substring) (string, error) {
	runes := []rune(str)
	n := len(runes)
	resolvePos := func(x syntax.ArithExpr) (int, error) {
		v, err := c.EvalArith(x)
		if err != nil {
			return 0, err
		}
		p := int(v)
		if p < 0 {
			p += n
			if p < 0 {
				p = 0
			}
		} else if p > n {
			p = n
		}
		return p, nil
	}
	offset := 0
	if op.Offset != nil {
		o, err := resolvePos(op.Offset)
		if err != nil {
			return "", err
		}
		offset = o
	}
	end := n
	if op.Length != nil {
		v, err := c.EvalArith(op.Length)
		if err != nil {
			return "", err
		}
		l := int(v)
		if l < 0 {
			end = n + l
		} else {
			end = offset + l
		}
		if end > n {
			end = n
		}
		if end < offset {
			end = offset
		}
	}
	return string(runes[offset:end]), nil
}

func (c *Context) removePattern(str string, op *syntax.PatternRemoval) (string, error) {
	pat, err := c.Pattern(op.Pattern)
	if err != nil {
		return "", err
	}
	mode := pattern.Mode(0)
	if !op.Greedy {
		mode |= pattern.Shortest
	}
	expr, err := pattern.Regexp(pat, mode)
	if err != nil {
		return str, nil
	}
	switch {
	case op.Side == syntax.RemovePrefix:
		expr = "^(" + expr + ")"
	case op.Side == syntax.RemoveSuffix && !op.Greedy:
		// ".*" eats as much as possible before handing back just enough
		// for the lazily-quantified group to match, which finds the
		// right-most (shortest) suffix match instead of the left-most one.
		expr = ".*(" + expr + ")$"
	case op.Side == syntax.RemoveSuffix:
		expr = "(" + expr + ")$"
	}
	loc, err := regexpFindSubmatch(expr, str)
	if err != nil || loc == nil {
		return str, nil
	}
	return str[:loc[0]] + str[loc[1]:], nil
}

func (c *Context) replacePattern(str string, op *syntax.PatternReplacement) (string, error) {
	pat, err := c.Pattern(op.Pattern)
	if err != nil {
		return "", err
	}
	repl := ""
	if op.Replacement != nil {
		repl, err = c.Literal(op.Replacement)
		if err != nil {
			return "", err
		}
	}
	expr, err := pattern.Regexp(pat, 0)
	if err != nil {
		return str, nil
	}
	switch op.Anchor {
	case syntax.AnchorStart:
		expr = "^(" + expr + ")"
	case syntax.AnchorEnd:
		expr = "(" + expr + ")$"
	}
	n := 1
	if op.All {
		n = -1
	}
	return regexpReplaceN(expr, str, repl, n)
}

func (c *Context) caseMod(str string, op *syntax.CaseModification) string {
	var matcher func(r rune) bool = func(rune) bool { return true }
	if op.Pattern != nil {
		if pat, err := c.Pattern(op.Pattern); err == nil && pat != "" {
			if expr, err := pattern.Regexp(pat, 0); err == nil {
				matcher = regexpRuneMatcher(expr)
			}
		}
	}
	upper := op.Direction == syntax.CaseUpper
	caser := cases.Upper(language.Und)
	if !upper {
		caser = cases.Lower(language.Und)
	}
	rs := []rune(str)
	for i, r := range rs {
		if !matcher(r) {
			continue
		}
		rs[i] = []rune(caser.String(string(r)))[0]
		if !op.All {
			break
		}
	}
	return string(rs)
}
