// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package printer

import (
	"strings"
	"testing"

	"github.com/elixir-ai-tools/just-bash-sub001/syntax"
)

func mustParse(t *testing.T, src string) *syntax.Script {
	t.Helper()
	prog, err := syntax.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return prog
}

func TestFprintSimple(t *testing.T) {
	srcs := []string{
		"echo hi",
		"echo a b c",
		"foo=bar echo $foo",
		"true && false",
	}
	for _, src := range srcs {
		prog := mustParse(t, src)
		got := String(prog)
		if strings.TrimSpace(got) == "" {
			t.Errorf("Fprint(%q) produced empty output", src)
		}
		if _, err := syntax.Parse(got); err != nil {
			t.Errorf("re-parsing printed form of %q failed: %v\nprinted:\n%s", src, err, got)
		}
	}
}

func TestFprintCompound(t *testing.T) {
	srcs := []string{
		"if true; then echo a; fi",
		"for i in 1 2 3; do echo $i; done",
		"while true; do echo x; break; done",
		"case $x in a) echo a;; *) echo other;; esac",
		"( echo sub )",
		"{ echo grp; }",
		"((x = 1 + 2))",
		"[[ -n $x ]]",
		"foo() { echo body; }",
	}
	for _, src := range srcs {
		prog := mustParse(t, src)
		got := String(prog)
		if got == "" {
			t.Errorf("Fprint(%q) produced empty output", src)
		}
		// the output itself must still be valid shell syntax.
		if _, err := syntax.Parse(got); err != nil {
			t.Errorf("re-parsing printed form of %q failed: %v\nprinted:\n%s", src, err, got)
		}
	}
}
