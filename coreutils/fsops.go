// Copyright (c) 2025, Andrey Nering <andrey@nering.com.br>
// See LICENSE for licensing information

package coreutils

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/elixir-ai-tools/just-bash-sub001/interp"
	"github.com/elixir-ai-tools/just-bash-sub001/vfs"
)

func cmdMkdir(argv []string, stdin string, s *interp.State) result {
	fs := newFlagSet("mkdir")
	parents := fs.BoolP("parents", "p", false, "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("mkdir", err)
	}
	var errs []string
	for _, name := range fs.Args() {
		path := s.FS.ResolvePath(s.Cwd, name)
		if err := s.FS.Mkdir(path, *parents); err != nil {
			errs = append(errs, fmt.Sprintf("mkdir: cannot create directory '%s': %s", name, err))
		}
	}
	if len(errs) > 0 {
		return result{Stderr: strings.Join(errs, "\n") + "\n", Exit: 1}
	}
	return result{}
}

func cmdTouch(argv []string, stdin string, s *interp.State) result {
	var errs []string
	for _, name := range argv[1:] {
		path := s.FS.ResolvePath(s.Cwd, name)
		if s.FS.Exists(path) {
			continue
		}
		if err := s.FS.WriteFile(path, nil, vfs.WriteOptions{}); err != nil {
			errs = append(errs, fmt.Sprintf("touch: cannot touch '%s': %s", name, err))
		}
	}
	if len(errs) > 0 {
		return result{Stderr: strings.Join(errs, "\n") + "\n", Exit: 1}
	}
	return result{}
}

func cmdRm(argv []string, stdin string, s *interp.State) result {
	fs := newFlagSet("rm")
	recursive := fs.BoolP("recursive", "r", false, "")
	force := fs.BoolP("force", "f", false, "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("rm", err)
	}
	var errs []string
	for _, name := range fs.Args() {
		path := s.FS.ResolvePath(s.Cwd, name)
		if err := s.FS.Remove(path, *recursive, *force); err != nil && !*force {
			errs = append(errs, fmt.Sprintf("rm: cannot remove '%s': %s", name, err))
		}
	}
	if len(errs) > 0 {
		return result{Stderr: strings.Join(errs, "\n") + "\n", Exit: 1}
	}
	return result{}
}

func cmdCp(argv []string, stdin string, s *interp.State) result {
	fs := newFlagSet("cp")
	_ = fs.BoolP("recursive", "r", false, "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("cp", err)
	}
	args := fs.Args()
	if len(args) < 2 {
		return result{Stderr: "cp: missing operand\n", Exit: 1}
	}
	dst := s.FS.ResolvePath(s.Cwd, args[len(args)-1])
	for _, src := range args[:len(args)-1] {
		srcPath := s.FS.ResolvePath(s.Cwd, src)
		target := dst
		if s.FS.IsDir(dst) {
			target = vfs.ResolvePath(dst, s.FS.Basename(srcPath))
		}
		if err := s.FS.Copy(srcPath, target); err != nil {
			return result{Stderr: fmt.Sprintf("cp: cannot copy '%s': %s\n", src, err), Exit: 1}
		}
	}
	return result{}
}

func cmdMv(argv []string, stdin string, s *interp.State) result {
	args := argv[1:]
	if len(args) < 2 {
		return result{Stderr: "mv: missing operand\n", Exit: 1}
	}
	dst := s.FS.ResolvePath(s.Cwd, args[len(args)-1])
	for _, src := range args[:len(args)-1] {
		srcPath := s.FS.ResolvePath(s.Cwd, src)
		target := dst
		if s.FS.IsDir(dst) {
			target = vfs.ResolvePath(dst, s.FS.Basename(srcPath))
		}
		if err := s.FS.Move(srcPath, target); err != nil {
			return result{Stderr: fmt.Sprintf("mv: cannot move '%s': %s\n", src, err), Exit: 1}
		}
	}
	return result{}
}

func cmdLs(argv []string, stdin string, s *interp.State) result {
	fs := newFlagSet("ls")
	long := fs.BoolP("long", "l", false, "")
	all := fs.BoolP("all", "a", false, "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("ls", err)
	}
	targets := fs.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}
	var b strings.Builder
	for i, t := range targets {
		path := s.FS.ResolvePath(s.Cwd, t)
		names, err := s.FS.ReadDir(path)
		if err != nil {
			return result{Stderr: fmt.Sprintf("ls: cannot access '%s': %s\n", t, err), Exit: 1}
		}
		sort.Strings(names)
		if len(targets) > 1 {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%s:\n", t)
		}
		for _, name := range names {
			if !*all && strings.HasPrefix(name, ".") {
				continue
			}
			if !*long {
				fmt.Fprintf(&b, "%s\n", name)
				continue
			}
			info, _ := s.FS.Stat(vfs.ResolvePath(path, name))
			kind := "-"
			if info.IsDirectory {
				kind = "d"
			}
			size := int64(0)
			if info.Size != nil {
				size = *info.Size
			}
			fmt.Fprintf(&b, "%s%s %10d %s\n", kind, info.Mode.Perm(), size, name)
		}
	}
	return result{Stdout: b.String()}
}

func cmdFind(argv []string, stdin string, s *interp.State) result {
	args := argv[1:]
	root := "."
	var namePattern string
	i := 0
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		root = args[0]
		i = 1
	}
	for i < len(args) {
		switch args[i] {
		case "-name":
			if i+1 < len(args) {
				namePattern = args[i+1]
				i += 2
				continue
			}
		}
		i++
	}
	rootPath := s.FS.ResolvePath(s.Cwd, root)
	var out []string
	var walk func(path string)
	walk = func(path string) {
		out = append(out, path)
		names, err := s.FS.ReadDir(path)
		if err != nil {
			return
		}
		sort.Strings(names)
		for _, name := range names {
			walk(vfs.ResolvePath(path, name))
		}
	}
	walk(rootPath)
	if namePattern != "" {
		var filtered []string
		for _, p := range out {
			if ok, _ := doublestar.Match(namePattern, s.FS.Basename(p)); ok {
				filtered = append(filtered, p)
			}
		}
		out = filtered
	}
	return result{Stdout: joinLines(out)}
}

func cmdXargs(argv []string, stdin string, s *interp.State) result {
	cmdArgs := argv[1:]
	if len(cmdArgs) == 0 {
		cmdArgs = []string{"echo"}
	}
	fields := strings.Fields(stdin)
	full := append(append([]string(nil), cmdArgs...), fields...)
	fn, ok := registry[full[0]]
	if !ok {
		return result{Stderr: fmt.Sprintf("xargs: %s: No such file or directory\n", full[0]), Exit: 127}
	}
	return fn(full, "", s)
}

func cmdBasename(argv []string, stdin string, s *interp.State) result {
	if len(argv) < 2 {
		return result{Exit: 1}
	}
	name := s.FS.Basename(argv[1])
	if len(argv) > 2 {
		name = strings.TrimSuffix(name, argv[2])
	}
	return result{Stdout: name + "\n"}
}

func cmdDirname(argv []string, stdin string, s *interp.State) result {
	if len(argv) < 2 {
		return result{Exit: 1}
	}
	return result{Stdout: s.FS.Dirname(argv[1]) + "\n"}
}
