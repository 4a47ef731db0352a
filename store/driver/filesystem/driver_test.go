package filesystem

import (
	"context"
	"os"
	"testing"
)

func TestPutGetContent(t *testing.T) {
	root, err := os.MkdirTemp("", "corepm-fs-driver-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(root)

	d := New(DriverParameters{RootDirectory: root, MaxThreads: defaultMaxThreads})
	ctx := context.Background()

	if err := d.PutContent(ctx, "/a/b.txt", []byte("hello")); err != nil {
		t.Fatalf("PutContent: %v", err)
	}

	got, err := d.GetContent(ctx, "/a/b.txt")
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("GetContent = %q, want %q", got, "hello")
	}

	entries, err := d.List(ctx, "/a")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0] != "/a/b.txt" {
		t.Fatalf("List = %v, want [/a/b.txt]", entries)
	}

	if err := d.Move(ctx, "/a/b.txt", "/a/c.txt"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := d.Stat(ctx, "/a/b.txt"); err == nil {
		t.Fatal("Stat of moved-away source succeeded, want error")
	}
	if _, err := d.Stat(ctx, "/a/c.txt"); err != nil {
		t.Fatalf("Stat of moved destination: %v", err)
	}

	if err := d.Delete(ctx, "/a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := d.List(ctx, "/a"); err == nil {
		t.Fatal("List of deleted dir succeeded, want error")
	}
}

func TestFromParametersDefaults(t *testing.T) {
	params, err := fromParametersImpl(nil)
	if err != nil {
		t.Fatalf("fromParametersImpl(nil): %v", err)
	}
	if params.RootDirectory != defaultRootDirectory {
		t.Fatalf("RootDirectory = %q, want %q", params.RootDirectory, defaultRootDirectory)
	}
	if params.MaxThreads != defaultMaxThreads {
		t.Fatalf("MaxThreads = %d, want %d", params.MaxThreads, defaultMaxThreads)
	}
}

func TestFromParametersMaxThreadsBelowMin(t *testing.T) {
	params, err := fromParametersImpl(map[string]interface{}{"maxthreads": "5"})
	if err != nil {
		t.Fatalf("fromParametersImpl: %v", err)
	}
	if params.MaxThreads != minThreads {
		t.Fatalf("MaxThreads = %d, want clamped to min %d", params.MaxThreads, minThreads)
	}
}
