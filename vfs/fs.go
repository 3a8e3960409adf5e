// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package vfs is the concrete virtual filesystem of spec.md §6.3: a
// path->inode map with symlink resolution, backed by afero.MemMapFs so the
// interpreter's abstract filesystem contract has a real, separately
// maintained in-memory implementation instead of a hand-rolled map. The
// teacher (a real-OS shell interpreter) has no analogous component; this
// package is grounded on the contract spec.md §6.3 describes rather than
// on any one teacher file.
package vfs

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

const maxSymlinkDepth = 40

// Info mirrors the {is_file, is_directory, is_symbolic_link, mode, size,
// mtime} result of spec.md §6.3's stat/lstat. Size is nil until a lazy
// content provider has been materialized.
type Info struct {
	IsFile      bool
	IsDirectory bool
	IsSymlink   bool
	Mode        os.FileMode
	Size        *int64
	Mtime       time.Time
}

// WriteOptions configures write_file; a zero Mode defaults to 0644.
type WriteOptions struct {
	Mode os.FileMode
}

// Provider lazily produces a file's content; reads invoke it once and cache
// the result, per spec.md §6.3.
type Provider func() ([]byte, error)

// FileSeed is the {content, mode} form of an initial file map entry.
type FileSeed struct {
	Content []byte
	Mode    os.FileMode
}

// FS is the concrete virtual filesystem: regular files and directories live
// in an afero.MemMapFs; symlinks are tracked separately since MemMapFs has
// no native symlink support; ulid-stamped inode identities back hard-link
// aliasing so a write or chmod through any one alias is visible through
// all of them.
type FS struct {
	mu        sync.Mutex
	backing   afero.Fs
	symlinks  map[string]string
	inodeOf   map[string]string
	aliasesOf map[string][]string
	pending   map[string]Provider
	sf        singleflight.Group
}

// New returns an empty FS rooted at "/".
func New() *FS {
	fs := &FS{
		backing:   afero.NewMemMapFs(),
		symlinks:  map[string]string{},
		inodeOf:   map[string]string{},
		aliasesOf: map[string][]string{},
		pending:   map[string]Provider{},
	}
	fs.backing.MkdirAll("/", 0o755)
	return fs
}

// Seed populates the filesystem from an initial file map (spec.md §6.3):
// values may be string or []byte content, a FileSeed with an explicit mode,
// or a Provider for lazy content.
func (fs *FS) Seed(files map[string]any) error {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := fs.seedOne(p, files[p]); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FS) seedOne(path string, v any) error {
	norm := Normalize(path)
	if err := fs.Mkdir(Dirname(norm), true); err != nil && !IsExist(err) {
		return err
	}
	switch val := v.(type) {
	case string:
		return fs.WriteFile(norm, []byte(val), WriteOptions{})
	case []byte:
		return fs.WriteFile(norm, val, WriteOptions{})
	case FileSeed:
		return fs.WriteFile(norm, val.Content, WriteOptions{Mode: val.Mode})
	case Provider:
		return fs.seedProvider(norm, val)
	case func() ([]byte, error):
		return fs.seedProvider(norm, Provider(val))
	default:
		return fmt.Errorf("vfs: unsupported seed value for %q: %T", path, v)
	}
}

func (fs *FS) seedProvider(path string, p Provider) error {
	if err := fs.WriteFile(path, nil, WriteOptions{}); err != nil {
		return err
	}
	fs.mu.Lock()
	fs.pending[path] = p
	fs.mu.Unlock()
	return nil
}

// resolveLocked resolves every symlink component of path, including a
// trailing one. Callers hold fs.mu.
func (fs *FS) resolveLocked(path string, depth int) (string, error) {
	if depth > maxSymlinkDepth {
		return "", errf("resolve", path, ELOOP)
	}
	segs := segments(path)
	resolved := "/"
	for _, s := range segs {
		resolved = joinSeg(resolved, s)
		target, isSym := fs.symlinks[resolved]
		if !isSym {
			continue
		}
		var full string
		if strings.HasPrefix(target, "/") {
			full = target
		} else {
			full = joinSeg(Dirname(resolved), target)
		}
		sub, err := fs.resolveLocked(Normalize(full), depth+1)
		if err != nil {
			return "", err
		}
		resolved = sub
	}
	return resolved, nil
}

// resolveFinalLocked resolves path's parent directory chain and, if the
// final component is itself a symlink, follows it too.
func (fs *FS) resolveFinalLocked(path string) (string, error) {
	norm := Normalize(path)
	if norm == "/" {
		return "/", nil
	}
	parent, err := fs.resolveLocked(Dirname(norm), 0)
	if err != nil {
		return "", err
	}
	candidate := joinSeg(parent, Basename(norm))
	if _, ok := fs.symlinks[candidate]; ok {
		return fs.resolveLocked(candidate, 0)
	}
	return candidate, nil
}

func (fs *FS) statLocked(path string, follow bool) (Info, error) {
	norm := Normalize(path)
	if norm == "/" {
		fi, err := fs.backing.Stat("/")
		if err != nil {
			return Info{}, errf("stat", path, ENOENT)
		}
		return Info{IsDirectory: true, Mode: fi.Mode(), Mtime: fi.ModTime()}, nil
	}
	parent, err := fs.resolveLocked(Dirname(norm), 0)
	if err != nil {
		return Info{}, err
	}
	candidate := joinSeg(parent, Basename(norm))
	if target, ok := fs.symlinks[candidate]; ok {
		if !follow {
			sz := int64(len(target))
			return Info{IsSymlink: true, Mode: os.ModeSymlink | 0o777, Size: &sz}, nil
		}
		resolved, err := fs.resolveLocked(candidate, 0)
		if err != nil {
			return Info{}, err
		}
		candidate = resolved
	}
	fi, err := fs.backing.Stat(candidate)
	if err != nil {
		return Info{}, errf("stat", path, ENOENT)
	}
	info := Info{IsFile: !fi.IsDir(), IsDirectory: fi.IsDir(), Mode: fi.Mode(), Mtime: fi.ModTime()}
	if !fi.IsDir() {
		if _, pending := fs.pending[candidate]; pending {
			info.Size = nil
		} else {
			sz := fi.Size()
			info.Size = &sz
		}
	}
	return info, nil
}

// Exists reports whether path resolves to anything, following symlinks.
func (fs *FS) Exists(path string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, err := fs.statLocked(path, true)
	return err == nil
}

// Stat returns path's info, following a trailing symlink.
func (fs *FS) Stat(path string) (Info, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.statLocked(path, true)
}

// Lstat returns path's info without following a trailing symlink.
func (fs *FS) Lstat(path string) (Info, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.statLocked(path, false)
}

// IsDir reports whether path is a directory; satisfies expand.Filesystem.
func (fs *FS) IsDir(path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.IsDirectory
}

func (fs *FS) materialize(path string, provider Provider) error {
	_, err, _ := fs.sf.Do(path, func() (any, error) {
		fs.mu.Lock()
		if _, stillPending := fs.pending[path]; !stillPending {
			fs.mu.Unlock()
			return nil, nil
		}
		fs.mu.Unlock()

		data, err := provider()
		if err != nil {
			return nil, err
		}

		fs.mu.Lock()
		defer fs.mu.Unlock()
		if err := afero.WriteFile(fs.backing, path, data, 0o644); err != nil {
			return nil, err
		}
		delete(fs.pending, path)
		return nil, nil
	})
	return err
}

// ReadFile reads path's content, following symlinks and materializing a
// pending lazy provider at most once even under concurrent readers.
func (fs *FS) ReadFile(path string) ([]byte, error) {
	fs.mu.Lock()
	resolved, err := fs.resolveFinalLocked(path)
	if err != nil {
		fs.mu.Unlock()
		return nil, err
	}
	fi, err := fs.backing.Stat(resolved)
	if err != nil {
		fs.mu.Unlock()
		return nil, errf("read", path, ENOENT)
	}
	if fi.IsDir() {
		fs.mu.Unlock()
		return nil, errf("read", path, EISDIR)
	}
	provider, pending := fs.pending[resolved]
	fs.mu.Unlock()

	if pending {
		if err := fs.materialize(resolved, provider); err != nil {
			return nil, err
		}
	}
	return afero.ReadFile(fs.backing, resolved)
}

func (fs *FS) assignInodeLocked(path string) string {
	if id, ok := fs.inodeOf[path]; ok {
		return id
	}
	id := ulid.Make().String()
	fs.inodeOf[path] = id
	fs.aliasesOf[id] = append(fs.aliasesOf[id], path)
	return id
}

func (fs *FS) propagateLocked(path string, data []byte, mode os.FileMode) error {
	id, ok := fs.inodeOf[path]
	if !ok {
		return nil
	}
	for _, alias := range fs.aliasesOf[id] {
		if alias == path {
			continue
		}
		if err := afero.WriteFile(fs.backing, alias, data, mode); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FS) unlinkLocked(path string) {
	id, ok := fs.inodeOf[path]
	if !ok {
		return
	}
	delete(fs.inodeOf, path)
	aliases := fs.aliasesOf[id][:0]
	for _, a := range fs.aliasesOf[id] {
		if a != path {
			aliases = append(aliases, a)
		}
	}
	if len(aliases) == 0 {
		delete(fs.aliasesOf, id)
	} else {
		fs.aliasesOf[id] = aliases
	}
	delete(fs.pending, path)
}

// WriteFile creates or truncates path with data, propagating to any
// existing hard-link aliases.
func (fs *FS) WriteFile(path string, data []byte, opts WriteOptions) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	norm := Normalize(path)
	parent, err := fs.resolveLocked(Dirname(norm), 0)
	if err != nil {
		return err
	}
	if pfi, err := fs.backing.Stat(parent); err != nil || !pfi.IsDir() {
		return errf("write", path, ENOTDIR)
	}
	candidate := joinSeg(parent, Basename(norm))
	if _, ok := fs.symlinks[candidate]; ok {
		resolved, err := fs.resolveLocked(candidate, 0)
		if err != nil {
			return err
		}
		candidate = resolved
	}
	if fi, err := fs.backing.Stat(candidate); err == nil && fi.IsDir() {
		return errf("write", path, EISDIR)
	}

	mode := opts.Mode
	if mode == 0 {
		mode = 0o644
	}
	if err := afero.WriteFile(fs.backing, candidate, data, mode); err != nil {
		return err
	}
	delete(fs.pending, candidate)
	fs.assignInodeLocked(candidate)
	return fs.propagateLocked(candidate, data, mode)
}

// AppendFile appends data to path, creating it if absent.
func (fs *FS) AppendFile(path string, data []byte) error {
	fs.mu.Lock()
	resolved, err := fs.resolveFinalLocked(path)
	if err != nil {
		fs.mu.Unlock()
		if pe, ok := err.(*PathError); ok && pe.Code == ENOENT {
			return fs.WriteFile(path, data, WriteOptions{})
		}
		return err
	}
	fi, statErr := fs.backing.Stat(resolved)
	if statErr != nil {
		fs.mu.Unlock()
		return fs.WriteFile(path, data, WriteOptions{})
	}
	if fi.IsDir() {
		fs.mu.Unlock()
		return errf("append", path, EISDIR)
	}
	existing, _ := afero.ReadFile(fs.backing, resolved)
	combined := append(append([]byte{}, existing...), data...)
	mode := fi.Mode()
	if err := afero.WriteFile(fs.backing, resolved, combined, mode); err != nil {
		fs.mu.Unlock()
		return err
	}
	err = fs.propagateLocked(resolved, combined, mode)
	fs.mu.Unlock()
	return err
}

func (fs *FS) mkdirAllLocked(norm string) error {
	segs := segments(norm)
	cur := "/"
	for _, s := range segs {
		resolved, err := fs.resolveLocked(cur, 0)
		if err != nil {
			return err
		}
		cur = joinSeg(resolved, s)
		if _, ok := fs.symlinks[cur]; ok {
			r, err := fs.resolveLocked(cur, 0)
			if err != nil {
				return err
			}
			cur = r
			continue
		}
		if fi, err := fs.backing.Stat(cur); err == nil {
			if !fi.IsDir() {
				return errf("mkdir", norm, ENOTDIR)
			}
			continue
		}
		if err := fs.backing.Mkdir(cur, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Mkdir creates path as a directory, optionally creating parents as -p does.
func (fs *FS) Mkdir(path string, recursive bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	norm := Normalize(path)
	if recursive {
		return fs.mkdirAllLocked(norm)
	}
	parent, err := fs.resolveLocked(Dirname(norm), 0)
	if err != nil {
		return err
	}
	if pfi, err := fs.backing.Stat(parent); err != nil || !pfi.IsDir() {
		return errf("mkdir", path, ENOTDIR)
	}
	candidate := joinSeg(parent, Basename(norm))
	if _, err := fs.backing.Stat(candidate); err == nil {
		return errf("mkdir", path, EEXIST)
	}
	if _, ok := fs.symlinks[candidate]; ok {
		return errf("mkdir", path, EEXIST)
	}
	return fs.backing.Mkdir(candidate, 0o755)
}

// ReadDir lists the entry names of path, including any symlinks it holds.
func (fs *FS) ReadDir(path string) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	resolved, err := fs.resolveFinalLocked(path)
	if err != nil {
		return nil, err
	}
	fi, err := fs.backing.Stat(resolved)
	if err != nil {
		return nil, errf("readdir", path, ENOENT)
	}
	if !fi.IsDir() {
		return nil, errf("readdir", path, ENOTDIR)
	}
	infos, err := afero.ReadDir(fs.backing, resolved)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	for link := range fs.symlinks {
		if Dirname(link) == resolved {
			names = append(names, Basename(link))
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadDirNames satisfies expand.Filesystem.
func (fs *FS) ReadDirNames(path string) ([]string, error) { return fs.ReadDir(path) }

// Remove deletes path; recursive allows removing a non-empty directory
// tree, force suppresses the ENOENT error for a missing path.
func (fs *FS) Remove(path string, recursive, force bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	norm := Normalize(path)
	parent, err := fs.resolveLocked(Dirname(norm), 0)
	if err != nil {
		if force {
			return nil
		}
		return err
	}
	candidate := joinSeg(parent, Basename(norm))
	if _, ok := fs.symlinks[candidate]; ok {
		delete(fs.symlinks, candidate)
		return nil
	}
	fi, err := fs.backing.Stat(candidate)
	if err != nil {
		if force {
			return nil
		}
		return errf("rm", path, ENOENT)
	}
	if fi.IsDir() {
		entries, _ := afero.ReadDir(fs.backing, candidate)
		hasSymlinkChild := false
		for link := range fs.symlinks {
			if Dirname(link) == candidate {
				hasSymlinkChild = true
				break
			}
		}
		if !recursive && (len(entries) > 0 || hasSymlinkChild) {
			return errf("rm", path, ENOTEMPTY)
		}
		if recursive {
			for link := range fs.symlinks {
				if strings.HasPrefix(link, candidate+"/") {
					delete(fs.symlinks, link)
				}
			}
		}
		return fs.backing.RemoveAll(candidate)
	}
	fs.unlinkLocked(candidate)
	return fs.backing.Remove(candidate)
}

// Copy copies src to dst, recursing into directories.
func (fs *FS) Copy(src, dst string) error {
	fs.mu.Lock()
	resolved, err := fs.resolveFinalLocked(src)
	if err != nil {
		fs.mu.Unlock()
		return err
	}
	fi, err := fs.backing.Stat(resolved)
	if err != nil {
		fs.mu.Unlock()
		return errf("cp", src, ENOENT)
	}
	if fi.IsDir() {
		fs.mu.Unlock()
		return fs.copyDir(resolved, dst)
	}
	provider, pending := fs.pending[resolved]
	mode := fi.Mode()
	fs.mu.Unlock()

	if pending {
		if err := fs.materialize(resolved, provider); err != nil {
			return err
		}
	}
	data, err := afero.ReadFile(fs.backing, resolved)
	if err != nil {
		return err
	}
	return fs.WriteFile(dst, data, WriteOptions{Mode: mode})
}

func (fs *FS) copyDir(resolvedSrc, dst string) error {
	if err := fs.Mkdir(dst, true); err != nil && !IsExist(err) {
		return err
	}
	names, err := fs.ReadDir(resolvedSrc)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := fs.Copy(joinSeg(resolvedSrc, name), joinSeg(Normalize(dst), name)); err != nil {
			return err
		}
	}
	return nil
}

// Move renames src to dst: a copy followed by a forced recursive remove,
// since hard-link aliasing means a bare backing-store rename could desync
// the alias bookkeeping.
func (fs *FS) Move(src, dst string) error {
	if err := fs.Copy(src, dst); err != nil {
		return err
	}
	return fs.Remove(src, true, true)
}

// Chmod changes path's permission bits, propagating to hard-link aliases.
func (fs *FS) Chmod(path string, mode os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	resolved, err := fs.resolveFinalLocked(path)
	if err != nil {
		return err
	}
	if err := fs.backing.Chmod(resolved, mode); err != nil {
		return errf("chmod", path, ENOENT)
	}
	if id, ok := fs.inodeOf[resolved]; ok {
		for _, alias := range fs.aliasesOf[id] {
			if alias != resolved {
				fs.backing.Chmod(alias, mode)
			}
		}
	}
	return nil
}

// Symlink creates linkPath as a symlink pointing at target (not resolved
// until something reads through it).
func (fs *FS) Symlink(target, linkPath string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	norm := Normalize(linkPath)
	parent, err := fs.resolveLocked(Dirname(norm), 0)
	if err != nil {
		return err
	}
	candidate := joinSeg(parent, Basename(norm))
	if _, err := fs.backing.Stat(candidate); err == nil {
		return errf("symlink", linkPath, EEXIST)
	}
	if _, ok := fs.symlinks[candidate]; ok {
		return errf("symlink", linkPath, EEXIST)
	}
	fs.symlinks[candidate] = target
	return nil
}

// Readlink returns the literal target text of the symlink at path.
func (fs *FS) Readlink(path string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	norm := Normalize(path)
	parent, err := fs.resolveLocked(Dirname(norm), 0)
	if err != nil {
		return "", err
	}
	candidate := joinSeg(parent, Basename(norm))
	target, ok := fs.symlinks[candidate]
	if !ok {
		return "", errf("readlink", path, ENOENT)
	}
	return target, nil
}

// Link creates linkPath as a hard link aliasing target's inode: a write,
// append, or chmod through either path is visible through both.
func (fs *FS) Link(target, linkPath string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	resolvedTarget, err := fs.resolveFinalLocked(target)
	if err != nil {
		return err
	}
	fi, err := fs.backing.Stat(resolvedTarget)
	if err != nil {
		return errf("link", target, ENOENT)
	}
	if fi.IsDir() {
		return errf("link", target, EISDIR)
	}
	norm := Normalize(linkPath)
	parent, err := fs.resolveLocked(Dirname(norm), 0)
	if err != nil {
		return err
	}
	candidate := joinSeg(parent, Basename(norm))
	if _, err := fs.backing.Stat(candidate); err == nil {
		return errf("link", linkPath, EEXIST)
	}
	data, err := afero.ReadFile(fs.backing, resolvedTarget)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fs.backing, candidate, data, fi.Mode()); err != nil {
		return err
	}
	id := fs.assignInodeLocked(resolvedTarget)
	fs.inodeOf[candidate] = id
	fs.aliasesOf[id] = append(fs.aliasesOf[id], candidate)
	return nil
}

// AllPaths returns every path currently in the filesystem, sorted.
func (fs *FS) AllPaths() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var paths []string
	afero.Walk(fs.backing, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if p != "/" {
			paths = append(paths, p)
		}
		return nil
	})
	for link := range fs.symlinks {
		paths = append(paths, link)
	}
	sort.Strings(paths)
	return paths
}

// NormalizePath, Dirname, Basename and ResolvePath expose the package-level
// pure path helpers as FS methods, completing spec.md §6.3's contract.
func (fs *FS) NormalizePath(path string) string     { return Normalize(path) }
func (fs *FS) Dirname(path string) string           { return Dirname(path) }
func (fs *FS) Basename(path string) string          { return Basename(path) }
func (fs *FS) ResolvePath(base, path string) string { return ResolvePath(base, path) }

// Clone deep-copies the entire filesystem, including symlinks, directory
// structure, hard-link alias groups and pending lazy providers (copied by
// reference: materializing the clone's copy does not materialize the
// original's). The interpreter uses this for subshell isolation (spec.md
// P4): "( cmds )" runs against a clone so writes made inside never affect
// the outer state, matching how cwd/env/vars are already isolated by
// value-copying the rest of the sandbox state.
func (fs *FS) Clone() *FS {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	cp := &FS{
		backing:   afero.NewMemMapFs(),
		symlinks:  make(map[string]string, len(fs.symlinks)),
		inodeOf:   make(map[string]string, len(fs.inodeOf)),
		aliasesOf: make(map[string][]string, len(fs.aliasesOf)),
		pending:   make(map[string]Provider, len(fs.pending)),
	}
	cp.backing.MkdirAll("/", 0o755)

	afero.Walk(fs.backing, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil || p == "/" {
			return nil
		}
		if info.IsDir() {
			cp.backing.MkdirAll(p, info.Mode())
			return nil
		}
		data, rerr := afero.ReadFile(fs.backing, p)
		if rerr != nil {
			return nil
		}
		cp.backing.MkdirAll(Dirname(p), 0o755)
		afero.WriteFile(cp.backing, p, data, info.Mode())
		return nil
	})
	for link, target := range fs.symlinks {
		cp.symlinks[link] = target
	}
	for path, id := range fs.inodeOf {
		cp.inodeOf[path] = id
	}
	for id, aliases := range fs.aliasesOf {
		cp.aliasesOf[id] = append([]string(nil), aliases...)
	}
	for path, provider := range fs.pending {
		cp.pending[path] = provider
	}
	return cp
}
