package binlink

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/voltpack/corepm"
)

func TestLinkCreatesShim(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	binDir := filepath.Join(dir, "node_modules", ".bin")
	target := filepath.Join(dir, "node_modules", "tool", "bin", "tool.js")

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(target, []byte("console.log('hi')"), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	l := New()
	entries := []corepm.ShimEntry{
		{BinDir: binDir, Name: "tool", TargetPath: target},
	}
	if err := l.Link(ctx, entries); err != nil {
		t.Fatalf("Link: %v", err)
	}

	shimPath := filepath.Join(binDir, "tool")
	if runtime.GOOS == "windows" {
		shimPath += ".cmd"
	}
	info, err := os.Lstat(shimPath)
	if err != nil {
		t.Fatalf("Lstat shim: %v", err)
	}

	if runtime.GOOS != "windows" {
		if info.Mode()&os.ModeSymlink == 0 {
			t.Fatalf("shim is not a symlink: mode = %v", info.Mode())
		}
		resolved, err := os.Readlink(shimPath)
		if err != nil {
			t.Fatalf("Readlink: %v", err)
		}
		if resolved != target {
			t.Errorf("shim resolves to %s, want %s", resolved, target)
		}
	}
}

func TestLinkReplacesExistingShim(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	binDir := filepath.Join(dir, ".bin")
	oldTarget := filepath.Join(dir, "old.js")
	newTarget := filepath.Join(dir, "new.js")

	for _, p := range []string{oldTarget, newTarget} {
		if err := os.WriteFile(p, []byte("x"), 0o755); err != nil {
			t.Fatalf("WriteFile(%s): %v", p, err)
		}
	}

	l := New()
	if err := l.Link(ctx, []corepm.ShimEntry{{BinDir: binDir, Name: "tool", TargetPath: oldTarget}}); err != nil {
		t.Fatalf("Link (first): %v", err)
	}
	if err := l.Link(ctx, []corepm.ShimEntry{{BinDir: binDir, Name: "tool", TargetPath: newTarget}}); err != nil {
		t.Fatalf("Link (second): %v", err)
	}

	shimPath := filepath.Join(binDir, "tool")
	if runtime.GOOS == "windows" {
		shimPath += ".cmd"
	}
	if runtime.GOOS != "windows" {
		resolved, err := os.Readlink(shimPath)
		if err != nil {
			t.Fatalf("Readlink: %v", err)
		}
		if resolved != newTarget {
			t.Errorf("shim resolves to %s, want %s (replacement)", resolved, newTarget)
		}
	}
}

func TestLinkMultipleEntriesShareBinDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	binDir := filepath.Join(dir, ".bin")
	targetA := filepath.Join(dir, "a.js")
	targetB := filepath.Join(dir, "b.js")
	for _, p := range []string{targetA, targetB} {
		if err := os.WriteFile(p, []byte("x"), 0o755); err != nil {
			t.Fatalf("WriteFile(%s): %v", p, err)
		}
	}

	l := New()
	entries := []corepm.ShimEntry{
		{BinDir: binDir, Name: "a", TargetPath: targetA},
		{BinDir: binDir, Name: "b", TargetPath: targetB},
	}
	if err := l.Link(ctx, entries); err != nil {
		t.Fatalf("Link: %v", err)
	}

	for _, name := range []string{"a", "b"} {
		p := filepath.Join(binDir, name)
		if runtime.GOOS == "windows" {
			p += ".cmd"
		}
		if _, err := os.Lstat(p); err != nil {
			t.Errorf("shim %s missing: %v", name, err)
		}
	}
}
