// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"testing"

	"github.com/elixir-ai-tools/just-bash-sub001/syntax"
)

func mustWord(t *testing.T, raw string) *syntax.Word {
	t.Helper()
	script, err := syntax.Parse("x=" + raw)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", raw, err)
	}
	assign := script.Stmts[0].Pipeline.Commands[0].Assigns[0]
	return assign.Value
}

func newTestContext(pairs ...string) *Context {
	env := ListEnviron(pairs...)
	write := &mapWriteEnviron{values: map[string]Variable{}}
	env.Each(func(name string, vr Variable) bool {
		write.values[name] = vr
		return true
	})
	return &Context{Env: write}
}

// mapWriteEnviron is a tiny in-memory WriteEnviron for tests; production
// code gets its WriteEnviron from the interp package's variable scopes.
type mapWriteEnviron struct {
	values map[string]Variable
}

func (m *mapWriteEnviron) Get(name string) Variable { return m.values[name] }

func (m *mapWriteEnviron) Each(fn func(string, Variable) bool) {
	for k, v := range m.values {
		if !fn(k, v) {
			return
		}
	}
}

func (m *mapWriteEnviron) Set(name string, vr Variable) error {
	m.values[name] = vr
	return nil
}

func TestFieldsLiteral(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want []string
	}{
		{`foo`, []string{"foo"}},
		{`"foo bar"`, []string{"foo bar"}},
		{`foo" "bar`, []string{"foo bar"}},
		{`pre{a,b}post`, []string{"preapost", "prebpost"}},
		{`{1..5}`, []string{"1", "2", "3", "4", "5"}},
		{`{01..03}`, []string{"01", "02", "03"}},
		{`{a..d}`, []string{"a", "b", "c", "d"}},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			w := mustWord(t, tc.raw)
			c := newTestContext()
			got, err := c.Fields(w)
			if err != nil {
				t.Fatalf("Fields(%q) error: %v", tc.raw, err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("Fields(%q) = %q, want %q", tc.raw, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("Fields(%q) = %q, want %q", tc.raw, got, tc.want)
				}
			}
		})
	}
}

func TestParamExpDefault(t *testing.T) {
	t.Parallel()
	c := newTestContext()
	w := mustWord(t, `${foo:-bar}`)
	got, err := c.Literal(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "bar" {
		t.Fatalf("got %q, want %q", got, "bar")
	}
}

func TestParamExpLength(t *testing.T) {
	t.Parallel()
	c := newTestContext("foo=hello")
	w := mustWord(t, `${#foo}`)
	got, err := c.Literal(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "5" {
		t.Fatalf("got %q, want %q", got, "5")
	}
}

func TestParamExpCaseMod(t *testing.T) {
	t.Parallel()
	c := newTestContext("foo=hello")
	w := mustWord(t, `${foo^^}`)
	got, err := c.Literal(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "HELLO" {
		t.Fatalf("got %q, want %q", got, "HELLO")
	}
}

func TestParamExpPatternRemoval(t *testing.T) {
	t.Parallel()
	c := newTestContext("foo=hello.tar.gz")
	w := mustWord(t, `${foo%.*}`)
	got, err := c.Literal(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello.tar" {
		t.Fatalf("got %q, want %q", got, "hello.tar")
	}

	w2 := mustWord(t, `${foo%%.*}`)
	got2, err := c.Literal(w2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got2 != "hello" {
		t.Fatalf("got %q, want %q", got2, "hello")
	}
}

func TestParamExpSubstring(t *testing.T) {
	t.Parallel()
	c := newTestContext("foo=abcdef")
	w := mustWord(t, `${foo:1:3}`)
	got, err := c.Literal(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "bcd" {
		t.Fatalf("got %q, want %q", got, "bcd")
	}
}

func TestArithmeticExpansion(t *testing.T) {
	t.Parallel()
	c := newTestContext("x=3")
	w := mustWord(t, `$((x+2))`)
	got, err := c.Literal(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "5" {
		t.Fatalf("got %q, want %q", got, "5")
	}
}
