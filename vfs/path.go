// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package vfs

import "strings"

// Normalize resolves "."/".." segments in an absolute POSIX-style path,
// per spec.md §6.3, without touching the filesystem (no symlink following).
func Normalize(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	segs := strings.Split(path, "/")
	stack := make([]string, 0, len(segs))
	for _, s := range segs {
		switch s {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, s)
		}
	}
	return "/" + strings.Join(stack, "/")
}

// Dirname returns the parent directory of path, POSIX `dirname` semantics.
func Dirname(path string) string {
	n := Normalize(path)
	if n == "/" {
		return "/"
	}
	i := strings.LastIndex(n, "/")
	if i == 0 {
		return "/"
	}
	return n[:i]
}

// Basename returns the final path component, POSIX `basename` semantics.
func Basename(path string) string {
	n := Normalize(path)
	if n == "/" {
		return "/"
	}
	return n[strings.LastIndex(n, "/")+1:]
}

// ResolvePath joins path against base (unless path is already absolute) and
// normalizes the result, per spec.md §6.3's resolve_path(base, path).
func ResolvePath(base, path string) string {
	if strings.HasPrefix(path, "/") {
		return Normalize(path)
	}
	base = Normalize(base)
	if base == "/" {
		return Normalize("/" + path)
	}
	return Normalize(base + "/" + path)
}

func segments(path string) []string {
	n := Normalize(path)
	if n == "/" {
		return nil
	}
	return strings.Split(n[1:], "/")
}

func joinSeg(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
