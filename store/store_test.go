package store

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/opencontainers/go-digest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), "", WithDriver("inmemory", nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestPutHasOpenFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	content := []byte("package body bytes")
	dgst := digest.FromBytes(content)

	if ok, err := s.HasFile(ctx, dgst); err != nil || ok {
		t.Fatalf("HasFile before put = %v, %v, want false, nil", ok, err)
	}

	if err := s.PutFile(ctx, dgst, bytes.NewReader(content)); err != nil {
		t.Fatalf("PutFile: %v", err)
	}

	if ok, err := s.HasFile(ctx, dgst); err != nil || !ok {
		t.Fatalf("HasFile after put = %v, %v, want true, nil", ok, err)
	}

	r, err := s.OpenFile(ctx, dgst)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("OpenFile content = %q, want %q", got, content)
	}
}

func TestPutFileIntegrityMismatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	wrongDigest := digest.FromBytes([]byte("not the real content"))
	err := s.PutFile(ctx, wrongDigest, bytes.NewReader([]byte("actual content")))

	var integrityErr *IntegrityError
	if err == nil {
		t.Fatal("PutFile with mismatched digest succeeded, want error")
	}
	if !asIntegrityError(err, &integrityErr) {
		t.Fatalf("PutFile error = %v, want *IntegrityError", err)
	}

	if ok, _ := s.HasFile(ctx, wrongDigest); ok {
		t.Fatal("HasFile true after failed integrity check, want false")
	}
}

func asIntegrityError(err error, target **IntegrityError) bool {
	e, ok := err.(*IntegrityError)
	if ok {
		*target = e
	}
	return ok
}

func TestCommitAndReadPackage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tarballDigest := digest.FromString("fake-tarball")

	staging, cleanup, err := s.NewStaging(ctx)
	if err != nil {
		t.Fatalf("NewStaging: %v", err)
	}
	defer cleanup(ctx)

	if err := s.driver.PutContent(ctx, staging+"/index.js", []byte("module.exports = {}")); err != nil {
		t.Fatalf("write staged file: %v", err)
	}

	fileDigest := digest.FromBytes([]byte("module.exports = {}"))
	manifest := NewManifest()
	manifest.Add("index.js", fileDigest, 0o644, 20)

	if err := s.CommitPackage(ctx, tarballDigest, staging, manifest); err != nil {
		t.Fatalf("CommitPackage: %v", err)
	}

	has, err := s.HasPackage(ctx, tarballDigest)
	if err != nil || !has {
		t.Fatalf("HasPackage = %v, %v, want true, nil", has, err)
	}

	got, err := s.Manifest(ctx, tarballDigest)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if len(got.Files) != 1 || got.Files[0].Path != "index.js" {
		t.Fatalf("Manifest.Files = %+v, want one index.js entry", got.Files)
	}

	dir, err := s.PackageDir(ctx, tarballDigest)
	if err != nil {
		t.Fatalf("PackageDir: %v", err)
	}
	content, err := s.driver.GetContent(ctx, dir+"/index.js")
	if err != nil {
		t.Fatalf("read committed file: %v", err)
	}
	if string(content) != "module.exports = {}" {
		t.Fatalf("committed file content = %q", content)
	}

	if _, err := s.LastAccess(ctx, tarballDigest); err != nil {
		t.Fatalf("LastAccess after commit: %v", err)
	}
}

func TestCommitPackageIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	dgst := digest.FromString("idempotent-tarball")

	for i := 0; i < 2; i++ {
		staging, cleanup, err := s.NewStaging(ctx)
		if err != nil {
			t.Fatalf("NewStaging: %v", err)
		}
		if err := s.CommitPackage(ctx, dgst, staging, NewManifest()); err != nil {
			t.Fatalf("CommitPackage iteration %d: %v", i, err)
		}
		cleanup(ctx)
	}
}
