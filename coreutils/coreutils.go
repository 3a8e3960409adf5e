// Copyright (c) 2025, Andrey Nering <andrey@nering.com.br>
// See LICENSE for licensing information

package coreutils

import (
	"github.com/elixir-ai-tools/just-bash-sub001/interp"
)

// commandFunc is one external command's implementation: argv[0] is the
// command name (spec.md §6.4), stdin is the previous pipeline stage's
// captured output, and s is the current sandbox state (read freely; only
// fs mutations persist, since this sandbox has no external process to
// isolate further writes into).
type commandFunc func(argv []string, stdin string, s *interp.State) result

// registry is the representative catalogue SPEC_FULL.md §D names.
var registry = map[string]commandFunc{
	"echo":     cmdEcho,
	"printf":   cmdPrintf,
	"cat":      cmdCat,
	"head":     cmdHead,
	"tail":     cmdTail,
	"wc":       cmdWc,
	"tr":       cmdTr,
	"cut":      cmdCut,
	"sort":     cmdSort,
	"uniq":     cmdUniq,
	"rev":      cmdRev,
	"tac":      cmdTac,
	"grep":     cmdGrep,
	"seq":      cmdSeq,
	"tee":      cmdTee,
	"mkdir":    cmdMkdir,
	"touch":    cmdTouch,
	"rm":       cmdRm,
	"cp":       cmdCp,
	"mv":       cmdMv,
	"ls":       cmdLs,
	"find":     cmdFind,
	"xargs":    cmdXargs,
	"basename": cmdBasename,
	"dirname":  cmdDirname,
	"date":     cmdDate,
	"sleep":    cmdSleep,
	"env":      cmdEnv,
	"which":    cmdWhich,
	"curl":     cmdCurl,
}

// ExecHandler returns an interp.ExecHandlerFunc middleware that serves
// any external command in the catalogue above, falling through to next
// (typically "command not found", exit 127) for anything else.
func ExecHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(argv []string, stdin string, state *interp.State) (string, string, int, *interp.State) {
		if len(argv) == 0 {
			return "", "", 0, state
		}
		cmd, ok := registry[argv[0]]
		if !ok {
			return next(argv, stdin, state)
		}
		res := cmd(argv, stdin, state)
		return res.Stdout, res.Stderr, res.Exit, state
	}
}
