// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/elixir-ai-tools/just-bash-sub001/interp"
)

// TestMain lets testscript re-exec this test binary as the "bashsub"
// command for TestScripts below, the same pattern the teacher's cmd/shfmt
// used for its own CLI integration tests.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"bashsub": main1,
	}))
}

func TestScripts(t *testing.T) {
	t.Parallel()
	testscript.Run(t, testscript.Params{
		Dir: filepath.Join("testdata", "scripts"),
	})
}

func TestSourceFromCommandFlag(t *testing.T) {
	old := *command
	defer func() { *command = old }()
	*command = "echo hi"

	src, _, err := source()
	if err != nil {
		t.Fatal(err)
	}
	if src != "echo hi" {
		t.Errorf("source() = %q, want %q", src, "echo hi")
	}
}

func TestNotFound(t *testing.T) {
	state := interp.NewState()
	stdout, stderr, exit, _ := notFound([]string{"nope"}, "", state)
	if stdout != "" || stderr != "nope: command not found\n" || exit != 127 {
		t.Errorf("notFound = (%q, %q, %d), want (\"\", %q, 127)", stdout, stderr, exit, "nope: command not found\n")
	}
}
