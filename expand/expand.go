// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package expand implements the word expansion pipeline of spec.md §4.5.3:
// brace expansion, tilde expansion, parameter/command/arithmetic expansion,
// field splitting on IFS, pathname expansion against a virtual filesystem,
// and quote removal. It is grounded on the teacher's expand/expand.go and
// expand/param.go, adapted from the teacher's pre-resolved *syntax.Word
// AST (which already folds brace expansion into sibling Words) to this
// module's explicit BraceExpansion/TildeExpansion/Glob WordPart nodes
// produced by C2.
package expand

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/elixir-ai-tools/just-bash-sub001/arith"
	"github.com/elixir-ai-tools/just-bash-sub001/pattern"
	"github.com/elixir-ai-tools/just-bash-sub001/syntax"
)

// Filesystem is the minimal directory-listing contract pathname expansion
// needs. The vfs package's FS type satisfies it.
type Filesystem interface {
	ReadDirNames(path string) ([]string, error)
	IsDir(path string) bool
}

// CommandRunner executes a nested command-substitution script body and
// captures its stdout, per spec.md §4.5.3 step 3. The interp package
// supplies the concrete implementation (running a subshell against a
// cloned SandboxState, per §4.5.2's "each stage is a subshell" rule).
type CommandRunner interface {
	RunCaptured(body *syntax.Script) (string, error)
}

// UnsetParameterError is raised by ${name:?message} (and its variants)
// when the referenced parameter is unset or empty.
type UnsetParameterError struct {
	Name    string
	Message string
}

func (u UnsetParameterError) Error() string {
	if u.Message != "" {
		return u.Name + ": " + u.Message
	}
	return u.Name + ": parameter null or not set"
}

// Config bundles the external hooks Context needs: a filesystem for
// pathname expansion, a command runner for $(...) and legacy `...`, and
// a user-home lookup hook for ~user (spec.md §4.5.3 step 2).
type Config struct {
	FS         Filesystem
	Runner     CommandRunner
	LookupHome func(user string) (string, bool)

	NoGlob   bool
	NounSet  bool
	GlobStar bool
}

// Context drives one expansion pipeline against a variable environment.
type Context struct {
	Env WriteEnviron
	Config

	ifs string
}

type arithEnv struct {
	c *Context
}

func (a arithEnv) GetArith(name string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(a.c.Env.Get(name).String()), 0, 64)
	return n
}

func (a arithEnv) SetArith(name string, v int64) {
	a.c.Env.Set(name, Variable{Set: true, Kind: String, Str: strconv.FormatInt(v, 10)})
}

// EvalArith evaluates an arithmetic expression tree against the context's
// variable environment, per spec.md §4.4's "undefined identifiers
// evaluate to 0" rule (handled inside package arith's Env contract).
func (c *Context) EvalArith(x syntax.ArithExpr) (int64, error) {
	return arith.Eval(x, arithEnv{c})
}

func (c *Context) prepareIFS() {
	vr := c.Env.Get("IFS")
	if !vr.IsSet() {
		c.ifs = " \t\n"
	} else {
		c.ifs = vr.String()
	}
}

func (c *Context) ifsRune(r rune) bool {
	for _, r2 := range c.ifs {
		if r == r2 {
			return true
		}
	}
	return false
}

func (c *Context) ifsJoin(strs []string) string {
	sep := ""
	if c.ifs != "" {
		sep = c.ifs[:1]
	}
	return strings.Join(strs, sep)
}

// fieldPart is one quoted-or-unquoted fragment of a field being built up
// during expansion; quote tracks whether it came from a quoted context
// (and so must survive later splitting/globbing untouched).
type fieldPart struct {
	val   string
	quote bool
}

// Literal expands a word ignoring field splitting and pathname expansion
// — the rules used for assignment right-hand-sides, here-doc delimiters,
// and other single-field contexts (spec.md §4.5.3's "quoted fragments
// preserve IFS-split behavior" carve-out applies to full ExpandFields,
// not here).
func (c *Context) Literal(w *syntax.Word) (string, error) {
	if w == nil {
		return "", nil
	}
	seqs, err := c.expandBraceParts(w.Parts)
	if err != nil {
		return "", err
	}
	if len(seqs) == 0 {
		return "", nil
	}
	field, err := c.wordField(seqs[0], false)
	if err != nil {
		return "", err
	}
	return c.join(field), nil
}

// Pattern expands a word for use as a shell glob pattern (case/esac arms,
// pattern-removal/replacement operands): quoted fragments are escaped so
// they match literally while unquoted fragments keep their glob meaning.
func (c *Context) Pattern(w *syntax.Word) (string, error) {
	if w == nil {
		return "", nil
	}
	seqs, err := c.expandBraceParts(w.Parts)
	if err != nil {
		return "", err
	}
	if len(seqs) == 0 {
		return "", nil
	}
	field, err := c.wordField(seqs[0], false)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, part := range field {
		if part.quote {
			sb.WriteString(pattern.QuoteMeta(part.val))
		} else {
			sb.WriteString(part.val)
		}
	}
	return sb.String(), nil
}

// Fields runs the full word expansion pipeline (spec.md §4.5.3) across one
// or more words, producing the final argv-style field list: brace
// expansion, tilde expansion, substitution, IFS splitting, pathname
// expansion, and quote removal.
func (c *Context) Fields(words ...*syntax.Word) ([]string, error) {
	c.prepareIFS()
	var fields []string
	for _, w := range words {
		seqs, err := c.expandBraceParts(w.Parts)
		if err != nil {
			return nil, err
		}
		for _, seq := range seqs {
			rawFields, err := c.wordFields(seq)
			if err != nil {
				return nil, err
			}
			for _, field := range rawFields {
				matches, didGlob, err := c.globField(field)
				if err != nil {
					return nil, err
				}
				if !didGlob {
					fields = append(fields, c.join(field))
					continue
				}
				fields = append(fields, matches...)
			}
		}
	}
	return fields, nil
}

func (c *Context) join(parts []fieldPart) string {
	if len(parts) == 1 {
		return parts[0].val
	}
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.val)
	}
	return sb.String()
}

// expandBraceRange expands {from..to[..step]}, honoring zero-padding
// widths and both integer and single-character forms (spec.md §4.5.3
// step 1).
func expandBraceRange(r *syntax.BraceRange) []string {
	step := r.Step
	if step == 0 {
		step = 1
	}
	if step < 0 {
		step = -step
	}
	if r.Chars {
		from, to := rune(r.From[0]), rune(r.To[0])
		var out []string
		if from <= to {
			for v := from; v <= to; v += rune(step) {
				out = append(out, string(v))
			}
		} else {
			for v := from; v >= to; v -= rune(step) {
				out = append(out, string(v))
			}
		}
		return out
	}
	from, errF := strconv.Atoi(r.From)
	to, errT := strconv.Atoi(r.To)
	if errF != nil || errT != nil {
		return []string{r.From, r.To}
	}
	width := len(r.From)
	if w2 := len(r.To); w2 > width {
		width = w2
	}
	pad := strings.HasPrefix(r.From, "0") || strings.HasPrefix(r.To, "0")
	fmtNum := func(n int) string {
		if !pad {
			return strconv.Itoa(n)
		}
		neg := n < 0
		s := strconv.Itoa(n)
		if neg {
			s = s[1:]
		}
		for len(s) < width-boolInt(neg) {
			s = "0" + s
		}
		if neg {
			s = "-" + s
		}
		return s
	}
	var out []string
	if from <= to {
		for v := from; v <= to; v += step {
			out = append(out, fmtNum(v))
		}
	} else {
		for v := from; v >= to; v -= step {
			out = append(out, fmtNum(v))
		}
	}
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// expandBraceParts expands every BraceExpansion WordPart in parts into its
// cartesian product of alternatives, recursing into nested brace bodies.
// A word with no brace parts returns a single-element result unchanged.
func (c *Context) expandBraceParts(parts []syntax.WordPart) ([][]syntax.WordPart, error) {
	current := [][]syntax.WordPart{nil}
	for _, p := range parts {
		var alts [][]syntax.WordPart
		if be, ok := p.(*syntax.BraceExpansion); ok {
			for _, item := range be.Items {
				switch {
				case item.Range != nil:
					for _, s := range expandBraceRange(item.Range) {
						alts = append(alts, []syntax.WordPart{&syntax.Literal{Value: s}})
					}
				case item.Text != nil:
					nested, err := c.expandBraceParts(item.Text.Parts)
					if err != nil {
						return nil, err
					}
					alts = append(alts, nested...)
				}
			}
		} else {
			alts = [][]syntax.WordPart{{p}}
		}
		var next [][]syntax.WordPart
		for _, cur := range current {
			for _, alt := range alts {
				combined := make([]syntax.WordPart, 0, len(cur)+len(alt))
				combined = append(combined, cur...)
				combined = append(combined, alt...)
				next = append(next, combined)
			}
		}
		current = next
	}
	return current, nil
}

// wordField expands a brace-resolved part sequence into one un-split
// field, honoring quote state for later pattern/quote-removal decisions.
func (c *Context) wordField(parts []syntax.WordPart, inDouble bool) ([]fieldPart, error) {
	var field []fieldPart
	for i, wp := range parts {
		switch x := wp.(type) {
		case *syntax.Literal:
			field = append(field, fieldPart{val: x.Value})
		case *syntax.TildeExpansion:
			if i != 0 {
				continue
			}
			field = append(field, fieldPart{val: c.expandTilde(x.User)})
		case *syntax.Glob:
			field = append(field, fieldPart{val: x.Pattern})
		case *syntax.SingleQuoted:
			field = append(field, fieldPart{val: x.Value, quote: true})
		case *syntax.DoubleQuoted:
			inner, err := c.wordField(x.Parts, true)
			if err != nil {
				return nil, err
			}
			for _, p := range inner {
				p.quote = true
				field = append(field, p)
			}
		case *syntax.ParamExpansion:
			s, err := c.paramExp(x)
			if err != nil {
				return nil, err
			}
			field = append(field, fieldPart{val: s})
		case *syntax.CommandSubstitution:
			s, err := c.cmdSubst(x)
			if err != nil {
				return nil, err
			}
			field = append(field, fieldPart{val: s})
		case *syntax.ArithmeticExpansion:
			v, err := c.EvalArith(x.X)
			if err != nil {
				return nil, err
			}
			field = append(field, fieldPart{val: strconv.FormatInt(v, 10)})
		case *syntax.ProcessSubstitution:
			// Runtime degrades to a no-op per spec.md's process-substitution
			// non-goal: the syntax parses but yields no real descriptor.
			field = append(field, fieldPart{val: ""})
		default:
			return nil, fmt.Errorf("expand: unhandled word part %T", wp)
		}
		_ = inDouble
	}
	return field, nil
}

// wordFields is like wordField, but splits unquoted expansion results on
// IFS into multiple fields (spec.md §4.5.3 step 4), including the
// "$@" / "$*" special cases.
func (c *Context) wordFields(parts []syntax.WordPart) ([][]fieldPart, error) {
	var fields [][]fieldPart
	var cur []fieldPart
	allowEmpty := false
	flush := func() {
		if len(cur) == 0 {
			return
		}
		fields = append(fields, cur)
		cur = nil
	}
	splitAdd := func(val string) {
		parts := strings.FieldsFunc(val, c.ifsRune)
		for i, s := range parts {
			if i > 0 {
				flush()
			}
			cur = append(cur, fieldPart{val: s})
		}
	}
	for i, wp := range parts {
		switch x := wp.(type) {
		case *syntax.Literal:
			cur = append(cur, fieldPart{val: x.Value})
		case *syntax.TildeExpansion:
			if i == 0 {
				cur = append(cur, fieldPart{val: c.expandTilde(x.User)})
			}
		case *syntax.Glob:
			cur = append(cur, fieldPart{val: x.Pattern})
		case *syntax.SingleQuoted:
			allowEmpty = true
			cur = append(cur, fieldPart{val: x.Value, quote: true})
		case *syntax.DoubleQuoted:
			allowEmpty = true
			if elems, ok := c.quotedElems(x.Parts); ok {
				for i, e := range elems {
					if i > 0 {
						flush()
					}
					cur = append(cur, fieldPart{val: e, quote: true})
				}
				continue
			}
			inner, err := c.wordField(x.Parts, true)
			if err != nil {
				return nil, err
			}
			for _, p := range inner {
				p.quote = true
				cur = append(cur, p)
			}
		case *syntax.ParamExpansion:
			s, err := c.paramExp(x)
			if err != nil {
				return nil, err
			}
			splitAdd(s)
		case *syntax.CommandSubstitution:
			s, err := c.cmdSubst(x)
			if err != nil {
				return nil, err
			}
			splitAdd(s)
		case *syntax.ArithmeticExpansion:
			v, err := c.EvalArith(x.X)
			if err != nil {
				return nil, err
			}
			cur = append(cur, fieldPart{val: strconv.FormatInt(v, 10)})
		case *syntax.ProcessSubstitution:
			// no-op; see wordField.
		default:
			return nil, fmt.Errorf("expand: unhandled word part %T", wp)
		}
	}
	flush()
	if allowEmpty && len(fields) == 0 {
		fields = append(fields, cur)
	}
	return fields, nil
}

// quotedElems detects the "$@" / "${arr[@]}" special case inside a
// DoubleQuoted part: each element becomes its own field instead of being
// joined and re-split.
func (c *Context) quotedElems(parts []syntax.WordPart) ([]string, bool) {
	if len(parts) != 1 {
		return nil, false
	}
	pe, ok := parts[0].(*syntax.ParamExpansion)
	if !ok || pe.Length {
		return nil, false
	}
	if pe.Name == "@" {
		return c.positionalAll(), true
	}
	if litIndex(pe.Index) != "@" {
		return nil, false
	}
	vr := c.Env.Get(pe.Name)
	if vr.Kind == Indexed {
		return vr.List, true
	}
	return nil, false
}

func (c *Context) positionalAll() []string {
	vr := c.Env.Get("@")
	return vr.List
}

func litIndex(w *syntax.Word) string {
	if w == nil || len(w.Parts) != 1 {
		return ""
	}
	lit, ok := w.Parts[0].(*syntax.Literal)
	if !ok {
		return ""
	}
	return lit.Value
}

func (c *Context) expandTilde(user string) string {
	if user == "" {
		return c.Env.Get("HOME").String()
	}
	if c.LookupHome != nil {
		if home, ok := c.LookupHome(user); ok {
			return home
		}
	}
	return "/home/" + user
}

func (c *Context) cmdSubst(cs *syntax.CommandSubstitution) (string, error) {
	if c.Runner == nil {
		return "", nil
	}
	out, err := c.Runner.RunCaptured(cs.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// escapedGlobField flattens a field into one string, escaping quoted
// fragments so they match literally, and reports whether the resulting
// string still carries glob metacharacters worth expanding.
func (c *Context) escapedGlobField(parts []fieldPart) (string, bool) {
	var sb strings.Builder
	glob := false
	for _, p := range parts {
		if p.quote {
			sb.WriteString(pattern.QuoteMeta(p.val))
			continue
		}
		sb.WriteString(p.val)
		if pattern.HasMeta(p.val) {
			glob = true
		}
	}
	if !glob {
		return "", false
	}
	return sb.String(), true
}

// globField performs pathname expansion (spec.md §4.5.3 step 5) for one
// unquoted field against the configured Filesystem: no matches leaves the
// word as-is (classic bash behavior; nullglob is not modeled).
func (c *Context) globField(field []fieldPart) ([]string, bool, error) {
	if c.NoGlob || c.FS == nil {
		return nil, false, nil
	}
	escaped, doGlob := c.escapedGlobField(field)
	if !doGlob {
		return nil, false, nil
	}
	matches, err := c.globPath(escaped)
	if err != nil {
		return nil, false, err
	}
	if len(matches) == 0 {
		return nil, false, nil
	}
	sort.Strings(matches)
	return matches, true, nil
}

func (c *Context) globPath(pat string) ([]string, error) {
	abs := strings.HasPrefix(pat, "/")
	segs := strings.Split(strings.TrimPrefix(pat, "/"), "/")
	cur := []string{"/"}
	if !abs {
		cur = []string{"."}
	}
	for _, seg := range segs {
		if seg == "" {
			continue
		}
		if seg == "**" && c.GlobStar {
			var all []string
			frontier := cur
			all = append(all, frontier...)
			for {
				var next []string
				for _, dir := range frontier {
					names, err := c.FS.ReadDirNames(dir)
					if err != nil {
						continue
					}
					for _, n := range names {
						if strings.HasPrefix(n, ".") {
							continue
						}
						next = append(next, joinPath(dir, n))
					}
				}
				if len(next) == 0 {
					break
				}
				all = append(all, next...)
				frontier = next
			}
			cur = all
			continue
		}
		var next []string
		mode := pattern.Filenames
		for _, dir := range cur {
			names, err := c.FS.ReadDirNames(dir)
			if err != nil {
				continue
			}
			sort.Strings(names)
			for _, n := range names {
				if strings.HasPrefix(n, ".") && !strings.HasPrefix(seg, ".") {
					continue
				}
				ok, err := pattern.Match(seg, n, mode)
				if err != nil {
					return nil, err
				}
				if ok {
					next = append(next, joinPath(dir, n))
				}
			}
		}
		cur = next
		if len(cur) == 0 {
			return nil, nil
		}
	}
	return cur, nil
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	if dir == "." {
		return name
	}
	return dir + "/" + name
}

// Format implements printf-style %-directive expansion for the `printf`
// builtin (spec.md §4.5.5's builtin dispatch), grounded on
// the teacher's ExpandFormat.
func (c *Context) Format(format string, args []string) (string, int, error) {
	var sb strings.Builder
	esc := false
	var fmts []rune
	initialArgs := len(args)

	for _, r := range format {
		switch {
		case esc:
			esc = false
			switch r {
			case 'n':
				sb.WriteRune('\n')
			case 'r':
				sb.WriteRune('\r')
			case 't':
				sb.WriteRune('\t')
			case '\\':
				sb.WriteRune('\\')
			default:
				sb.WriteRune('\\')
				sb.WriteRune(r)
			}
		case len(fmts) > 0:
			switch r {
			case '%':
				sb.WriteByte('%')
				fmts = nil
			case 'c':
				var b byte
				if len(args) > 0 {
					arg := args[0]
					args = args[1:]
					if len(arg) > 0 {
						b = arg[0]
					}
				}
				sb.WriteByte(b)
				fmts = nil
			case '+', '-', ' ':
				fmts = append(fmts, r)
			case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
				fmts = append(fmts, r)
			case 's', 'd', 'i', 'u', 'o', 'x':
				arg := ""
				if len(args) > 0 {
					arg = args[0]
					args = args[1:]
				}
				var farg interface{} = arg
				if r != 's' {
					n, _ := strconv.ParseInt(arg, 0, 0)
					if r == 'i' || r == 'd' {
						farg = int(n)
					} else {
						farg = uint(n)
					}
					if r == 'i' || r == 'u' {
						r = 'd'
					}
				}
				fmts = append(fmts, r)
				fmt.Fprintf(&sb, string(fmts), farg)
				fmts = nil
			default:
				return "", 0, fmt.Errorf("invalid format char: %c", r)
			}
		case r == '\\':
			esc = true
		case args != nil && r == '%':
			fmts = []rune{r}
		default:
			sb.WriteRune(r)
		}
	}
	if len(fmts) > 0 {
		return "", 0, fmt.Errorf("missing format char")
	}
	return sb.String(), initialArgs - len(args), nil
}
