// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package vfs

import "fmt"

// Code names one of the POSIX-style error conditions spec.md §6.3 requires
// the virtual filesystem contract to surface.
type Code string

const (
	ENOENT    Code = "ENOENT"
	EEXIST    Code = "EEXIST"
	EISDIR    Code = "EISDIR"
	ENOTDIR   Code = "ENOTDIR"
	ENOTEMPTY Code = "ENOTEMPTY"
	ELOOP     Code = "ELOOP"
)

// PathError reports a failed filesystem operation against a specific path,
// tagged with the POSIX-style Code callers switch on.
type PathError struct {
	Op   string
	Path string
	Code Code
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Code)
}

func errf(op, path string, code Code) error {
	return &PathError{Op: op, Path: path, Code: code}
}

// IsNotExist reports whether err is an ENOENT PathError.
func IsNotExist(err error) bool { return hasCode(err, ENOENT) }

// IsExist reports whether err is an EEXIST PathError.
func IsExist(err error) bool { return hasCode(err, EEXIST) }

func hasCode(err error, code Code) bool {
	pe, ok := err.(*PathError)
	return ok && pe.Code == code
}
