// Copyright (c) 2025, Andrey Nering <andrey@nering.com.br>
// See LICENSE for licensing information

package coreutils

import (
	"testing"

	"github.com/elixir-ai-tools/just-bash-sub001/interp"
)

func run(t *testing.T, script string, files map[string]any) interp.Result {
	t.Helper()
	state := interp.NewState(interp.WithFiles(files))
	r := interp.New(interp.WithExecHandler(ExecHandler(nil)))
	prog, err := interp.Parse(script)
	if err != nil {
		t.Fatalf("parse %q: %v", script, err)
	}
	return r.Run(prog, state)
}

func TestTextUtils(t *testing.T) {
	cases := []struct {
		name   string
		script string
		files  map[string]any
		want   string
	}{
		{"echo", `echo hello world`, nil, "hello world\n"},
		{"echo-n", `echo -n hi`, nil, "hi"},
		{"cat", `cat /f.txt`, map[string]any{"/f.txt": "a\nb\n"}, "a\nb\n"},
		{"head", `head -n 1 /f.txt`, map[string]any{"/f.txt": "a\nb\nc\n"}, "a\n"},
		{"tail", `tail -n 1 /f.txt`, map[string]any{"/f.txt": "a\nb\nc\n"}, "c\n"},
		{"wc-l", `wc -l /f.txt`, map[string]any{"/f.txt": "a\nb\n"}, "2\n"},
		{"tr", `echo abc | tr a-c x-z`, nil, "xyz\n"},
		{"cut", `echo a:b:c | cut -d: -f2`, nil, "b\n"},
		{"sort", `printf 'b\na\n' | sort`, nil, "a\nb\n"},
		{"uniq", `printf 'a\na\nb\n' | uniq`, nil, "a\nb\n"},
		{"rev", `echo abc | rev`, nil, "cba\n"},
		{"tac", `printf 'a\nb\n' | tac`, nil, "b\na\n"},
		{"grep", `printf 'foo\nbar\n' | grep foo`, nil, "foo\n"},
		{"seq", `seq 3`, nil, "1\n2\n3\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := run(t, tc.script, tc.files)
			if res.Stdout != tc.want {
				t.Errorf("stdout = %q, want %q (stderr=%q)", res.Stdout, tc.want, res.Stderr)
			}
		})
	}
}

func TestFsops(t *testing.T) {
	res := run(t, `mkdir -p /d/sub && touch /d/sub/f && ls /d/sub`, nil)
	if res.Stdout != "f\n" {
		t.Errorf("ls output = %q, stderr=%q", res.Stdout, res.Stderr)
	}

	res = run(t, `cp /a.txt /b.txt && cat /b.txt`, map[string]any{"/a.txt": "hi\n"})
	if res.Stdout != "hi\n" {
		t.Errorf("cp+cat output = %q, stderr=%q", res.Stdout, res.Stderr)
	}

	res = run(t, `mv /a.txt /c.txt && cat /c.txt`, map[string]any{"/a.txt": "hi\n"})
	if res.Stdout != "hi\n" {
		t.Errorf("mv+cat output = %q, stderr=%q", res.Stdout, res.Stderr)
	}

	res = run(t, `basename /a/b/c.txt`, nil)
	if res.Stdout != "c.txt\n" {
		t.Errorf("basename output = %q", res.Stdout)
	}

	res = run(t, `dirname /a/b/c.txt`, nil)
	if res.Stdout != "/a/b\n" {
		t.Errorf("dirname output = %q", res.Stdout)
	}
}

func TestUnknownCommandFallsThrough(t *testing.T) {
	state := interp.NewState()
	called := false
	fallback := func(argv []string, stdin string, s *interp.State) (string, string, int, *interp.State) {
		called = true
		return "", "nope: command not found\n", 127, s
	}
	r := interp.New(interp.WithExecHandler(ExecHandler(fallback)))
	prog, err := interp.Parse(`nope`)
	if err != nil {
		t.Fatal(err)
	}
	res := r.Run(prog, state)
	if !called {
		t.Fatal("expected fallback handler to be invoked for unregistered command")
	}
	if res.ExitCode != 127 {
		t.Errorf("exit code = %d, want 127", res.ExitCode)
	}
}
