// Copyright (c) 2018, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Command bashsub is a thin CLI front-end over the sandbox package: it runs
// a Bash-subset script in the hermetic in-process interpreter and prints
// its captured stdout/stderr, exiting with the script's exit code. It is
// an example wrapper (spec.md §1 scopes the host CLI out of the library
// itself), grounded on the teacher's cmd/gosh but with every host-process
// concern (stdin TTY detection, os.Environ, context cancellation) dropped
// since the sandbox never touches the real OS.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/elixir-ai-tools/just-bash-sub001/coreutils"
	"github.com/elixir-ai-tools/just-bash-sub001/interp"
	"github.com/elixir-ai-tools/just-bash-sub001/sandbox"
)

var (
	app = kingpin.New("bashsub", "Run a Bash-subset script in a hermetic sandbox")

	command = app.Flag("command", "Script text to run instead of a file").Short('c').String()
	cwd     = app.Flag("cwd", "Initial working directory").Default("/home/user").String()
	format  = app.Flag("format", "Print the parsed script back out instead of running it").Bool()

	scriptFile = app.Arg("file", "Script file to run (omit with -c or to read stdin)").String()
	scriptArgs = app.Arg("args", "Positional arguments ($1, $2, ...) passed to the script").Strings()
)

func main() {
	os.Exit(main1())
}

// main1 returns an exit code instead of calling os.Exit directly, so
// testscript.RunMain can register it as an in-process subcommand (see
// main_test.go).
func main1() int {
	kingpin.MustParse(app.Parse(os.Args[1:]))
	return run()
}

func run() int {
	src, args, err := source()
	if err != nil {
		fmt.Fprintln(os.Stderr, "bashsub:", err)
		return 1
	}

	if *format {
		prog, err := sandbox.Parse(src)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bashsub:", err)
			return 2
		}
		fmt.Print(sandbox.Format(prog))
		return 0
	}

	state := sandbox.NewState(interp.WithCwd(*cwd))
	state.FS.Mkdir(*cwd, true)
	state.Positional = args
	res, _ := sandbox.Execute(src, state, interp.WithExecHandler(coreutils.ExecHandler(notFound)))
	fmt.Print(res.Stdout)
	fmt.Fprint(os.Stderr, res.Stderr)
	return res.ExitCode
}

// notFound is the terminal exec-handler fallback once coreutils' registry
// has had a chance at argv[0]: every remaining name is "command not found",
// per spec.md §6.4.
func notFound(argv []string, stdin string, state *interp.State) (stdout, stderr string, exit int, newState *interp.State) {
	name := ""
	if len(argv) > 0 {
		name = argv[0]
	}
	return "", name + ": command not found\n", 127, state
}

// source resolves the script text and its positional arguments from either
// -c TEXT, a file argument, or stdin, mirroring the teacher's three input
// modes but without the interactive-TTY REPL (the sandbox has no terminal
// to drive).
func source() (src string, args []string, err error) {
	if *command != "" {
		return *command, *scriptArgs, nil
	}
	if *scriptFile != "" {
		b, err := os.ReadFile(*scriptFile)
		if err != nil {
			return "", nil, err
		}
		return string(b), *scriptArgs, nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", nil, err
	}
	return string(b), *scriptArgs, nil
}

