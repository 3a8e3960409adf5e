// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package vfs

import (
	"os"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFile(t *testing.T) {
	t.Parallel()
	fs := New()
	// WriteFile does not create missing parent directories.
	if err := fs.Mkdir("/a", true); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := fs.WriteFile("/a/b.txt", []byte("hello"), WriteOptions{}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := fs.ReadFile("/a/b.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("ReadFile = %q, want %q", got, "hello")
	}
	if !fs.Exists("/a/b.txt") {
		t.Fatalf("Exists(/a/b.txt) = false")
	}
	if !fs.IsDir("/a") {
		t.Fatalf("IsDir(/a) = false")
	}
}

func TestReadFileMissing(t *testing.T) {
	t.Parallel()
	fs := New()
	if _, err := fs.ReadFile("/nope"); !IsNotExist(err) {
		t.Fatalf("ReadFile(/nope) error = %v, want ENOENT", err)
	}
}

func TestReadFileOnDirectory(t *testing.T) {
	t.Parallel()
	fs := New()
	if err := fs.Mkdir("/d", true); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	_, err := fs.ReadFile("/d")
	pe, ok := err.(*PathError)
	if !ok || pe.Code != EISDIR {
		t.Fatalf("ReadFile(/d) error = %v, want EISDIR", err)
	}
}

func TestMkdirRecursiveAndReadDir(t *testing.T) {
	t.Parallel()
	fs := New()
	if err := fs.Mkdir("/a/b/c", true); err != nil {
		t.Fatalf("Mkdir -p: %v", err)
	}
	if err := fs.WriteFile("/a/b/file1", []byte("x"), WriteOptions{}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	names, err := fs.ReadDir("/a/b")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	want := []string{"c", "file1"}
	if len(names) != len(want) {
		t.Fatalf("ReadDir(/a/b) = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("ReadDir(/a/b) = %v, want %v", names, want)
		}
	}
}

func TestRemoveNotEmpty(t *testing.T) {
	t.Parallel()
	fs := New()
	fs.Mkdir("/a", true)
	fs.WriteFile("/a/f", []byte("x"), WriteOptions{})
	if err := fs.Remove("/a", false, false); err == nil {
		t.Fatalf("Remove(/a, recursive=false) succeeded, want ENOTEMPTY")
	}
	if err := fs.Remove("/a", true, false); err != nil {
		t.Fatalf("Remove(/a, recursive=true): %v", err)
	}
	if fs.Exists("/a") {
		t.Fatalf("Exists(/a) = true after recursive remove")
	}
}

func TestSymlinkResolution(t *testing.T) {
	t.Parallel()
	fs := New()
	fs.WriteFile("/real", []byte("payload"), WriteOptions{})
	if err := fs.Symlink("/real", "/link"); err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	got, err := fs.ReadFile("/link")
	if err != nil {
		t.Fatalf("ReadFile(/link): %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("ReadFile(/link) = %q, want %q", got, "payload")
	}
	info, err := fs.Lstat("/link")
	if err != nil {
		t.Fatalf("Lstat: %v", err)
	}
	if !info.IsSymlink {
		t.Fatalf("Lstat(/link).IsSymlink = false")
	}
	target, err := fs.Readlink("/link")
	if err != nil || target != "/real" {
		t.Fatalf("Readlink(/link) = %q, %v, want /real", target, err)
	}
}

func TestSymlinkLoop(t *testing.T) {
	t.Parallel()
	fs := New()
	fs.Symlink("/b", "/a")
	fs.Symlink("/a", "/b")
	_, err := fs.ReadFile("/a")
	pe, ok := err.(*PathError)
	if !ok || pe.Code != ELOOP {
		t.Fatalf("ReadFile(/a) error = %v, want ELOOP", err)
	}
}

func TestHardLinkAliasing(t *testing.T) {
	t.Parallel()
	fs := New()
	fs.WriteFile("/orig", []byte("v1"), WriteOptions{})
	if err := fs.Link("/orig", "/alias"); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if err := fs.WriteFile("/alias", []byte("v2"), WriteOptions{}); err != nil {
		t.Fatalf("WriteFile(/alias): %v", err)
	}
	got, err := fs.ReadFile("/orig")
	if err != nil {
		t.Fatalf("ReadFile(/orig): %v", err)
	}
	if string(got) != "v2" {
		t.Fatalf("ReadFile(/orig) = %q, want %q (hard-link aliasing)", got, "v2")
	}
}

func TestLazyProviderMaterializesOnce(t *testing.T) {
	t.Parallel()
	fs := New()
	calls := 0
	provider := Provider(func() ([]byte, error) {
		calls++
		return []byte("lazy"), nil
	})
	if err := fs.Seed(map[string]any{"/lazy.txt": provider}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	info, err := fs.Stat("/lazy.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size != nil {
		t.Fatalf("Stat(/lazy.txt).Size = %v, want nil before materialization", *info.Size)
	}
	for i := 0; i < 3; i++ {
		got, err := fs.ReadFile("/lazy.txt")
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if string(got) != "lazy" {
			t.Fatalf("ReadFile = %q, want %q", got, "lazy")
		}
	}
	if calls != 1 {
		t.Fatalf("provider invoked %d times, want 1", calls)
	}
}

func TestSeedFileSeedMode(t *testing.T) {
	t.Parallel()
	fs := New()
	err := fs.Seed(map[string]any{
		"/bin/run": FileSeed{Content: []byte("#!/bin/sh\n"), Mode: 0o755},
	})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	info, err := fs.Stat("/bin/run")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode.Perm() != 0o755 {
		t.Fatalf("Stat(/bin/run).Mode = %v, want 0755", info.Mode.Perm())
	}
}

func TestNormalizeDirnameBasename(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path, norm, dir, base string
	}{
		{"/a/b/../c", "/a/c", "/a", "c"},
		{"a/b", "/a/b", "/a", "b"},
		{"/", "/", "/", "/"},
		{"/a/./b/", "/a/b", "/a", "b"},
	}
	for _, tc := range tests {
		if got := Normalize(tc.path); got != tc.norm {
			t.Errorf("Normalize(%q) = %q, want %q", tc.path, got, tc.norm)
		}
		if got := Dirname(tc.path); got != tc.dir {
			t.Errorf("Dirname(%q) = %q, want %q", tc.path, got, tc.dir)
		}
		if got := Basename(tc.path); got != tc.base {
			t.Errorf("Basename(%q) = %q, want %q", tc.path, got, tc.base)
		}
	}
}

func TestResolvePath(t *testing.T) {
	t.Parallel()
	if got := ResolvePath("/a/b", "../c"); got != "/a/c" {
		t.Fatalf("ResolvePath(/a/b, ../c) = %q, want /a/c", got)
	}
	if got := ResolvePath("/a/b", "/x/y"); got != "/x/y" {
		t.Fatalf("ResolvePath(/a/b, /x/y) = %q, want /x/y", got)
	}
}

func TestAllPaths(t *testing.T) {
	t.Parallel()
	fs := New()
	fs.WriteFile("/a", []byte("1"), WriteOptions{})
	fs.Mkdir("/d", true)
	fs.WriteFile("/d/b", []byte("2"), WriteOptions{})
	fs.Symlink("/a", "/link")
	paths := fs.AllPaths()
	want := map[string]bool{"/a": true, "/d": true, "/d/b": true, "/link": true}
	if len(paths) != len(want) {
		t.Fatalf("AllPaths() = %v, want keys of %v", paths, want)
	}
	for _, p := range paths {
		if !want[p] {
			t.Fatalf("AllPaths() contains unexpected %q", p)
		}
	}
}

func TestChmod(t *testing.T) {
	t.Parallel()
	fs := New()
	fs.WriteFile("/f", []byte("x"), WriteOptions{})
	if err := fs.Chmod("/f", 0o600); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	info, err := fs.Stat("/f")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode.Perm() != os.FileMode(0o600) {
		t.Fatalf("Stat(/f).Mode = %v, want 0600", info.Mode.Perm())
	}
}

func TestReadDirMatchesWrites(t *testing.T) {
	t.Parallel()
	fs := New()
	require.NoError(t, fs.Mkdir("/d", true))
	require.NoError(t, fs.WriteFile("/d/b", []byte("x"), WriteOptions{}))
	require.NoError(t, fs.WriteFile("/d/a", []byte("y"), WriteOptions{}))

	names, err := fs.ReadDir("/d")
	require.NoError(t, err)
	sort.Strings(names)

	want := []string{"a", "b"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("ReadDir(/d) mismatch (-want +got):\n%s", diff)
	}
}
