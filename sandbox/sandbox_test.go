// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package sandbox

import "testing"

func TestExpand(t *testing.T) {
	env := func(name string) string {
		if name == "foo" {
			return "bar"
		}
		return ""
	}
	got, err := Expand("$foo/baz", env)
	if err != nil {
		t.Fatal(err)
	}
	if got != "bar/baz" {
		t.Errorf("Expand = %q, want %q", got, "bar/baz")
	}
}

func TestFields(t *testing.T) {
	env := func(name string) string {
		if name == "list" {
			return "a b c"
		}
		return ""
	}
	got, err := Fields("$list", env)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Fields = %v, want [a b c]", got)
	}
}

func TestExecuteRoundTrip(t *testing.T) {
	state := NewState()
	res, _ := Execute(`echo hi`, state)
	if res.Stdout != "hi\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hi\n")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	script, err := Parse("echo hi")
	if err != nil {
		t.Fatal(err)
	}
	out := Format(script)
	if _, err := Parse(out); err != nil {
		t.Errorf("Format produced unparsable output: %v\n%s", err, out)
	}
}
