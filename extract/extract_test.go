package extract

import (
	"archive/tar"
	"bytes"
	"context"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/opencontainers/go-digest"

	"github.com/voltpack/corepm/store"
)

type tarEntry struct {
	name     string
	typeflag byte
	body     string
	linkname string
	mode     int64
}

func buildTarball(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Typeflag: e.typeflag,
			Linkname: e.linkname,
			Size:     int64(len(e.body)),
			Mode:     e.mode,
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0o644
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader(%s): %v", e.name, err)
		}
		if e.body != "" {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("Write(%s): %v", e.name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip Close: %v", err)
	}
	return buf.Bytes()
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(context.Background(), "", store.WithDriver("inmemory", nil))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return s
}

func TestExtractRegularFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	x := New(s)

	body := buildTarball(t, []tarEntry{
		{name: "package/index.js", typeflag: tar.TypeReg, body: "module.exports = 1;\n"},
		{name: "package/bin/tool", typeflag: tar.TypeReg, body: "#!/bin/sh\necho hi\n", mode: 0o755},
	})

	dgst := digest.FromBytes(body)
	if err := x.Extract(ctx, dgst, bytes.NewReader(body)); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	has, err := s.HasPackage(ctx, dgst)
	if err != nil || !has {
		t.Fatalf("HasPackage = %v, %v, want true, nil", has, err)
	}

	manifest, err := s.Manifest(ctx, dgst)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if len(manifest.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2: %+v", len(manifest.Files), manifest.Files)
	}

	byPath := map[string]store.ManifestEntry{}
	for _, f := range manifest.Files {
		byPath[f.Path] = f
	}

	idx, ok := byPath["index.js"]
	if !ok {
		t.Fatalf("manifest missing index.js: %+v", manifest.Files)
	}
	if idx.Mode != 0o644 {
		t.Errorf("index.js mode = %o, want 0644", idx.Mode)
	}

	tool, ok := byPath["bin/tool"]
	if !ok {
		t.Fatalf("manifest missing bin/tool: %+v", manifest.Files)
	}
	if tool.Mode&0o111 == 0 {
		t.Errorf("bin/tool mode = %o, want executable bit set", tool.Mode)
	}
}

func TestExtractStripsLeadingDirectory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	x := New(s)

	body := buildTarball(t, []tarEntry{
		{name: "package/", typeflag: tar.TypeDir},
		{name: "package/a.txt", typeflag: tar.TypeReg, body: "a"},
	})
	dgst := digest.FromBytes(body)
	if err := x.Extract(ctx, dgst, bytes.NewReader(body)); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	manifest, err := s.Manifest(ctx, dgst)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if len(manifest.Files) != 1 || manifest.Files[0].Path != "a.txt" {
		t.Fatalf("Files = %+v, want one entry a.txt", manifest.Files)
	}
}

func TestExtractDedupsIdenticalFileContent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	x := New(s)

	shared := "identical contents across files"
	body := buildTarball(t, []tarEntry{
		{name: "package/a.txt", typeflag: tar.TypeReg, body: shared},
		{name: "package/b.txt", typeflag: tar.TypeReg, body: shared},
	})
	dgst := digest.FromBytes(body)
	if err := x.Extract(ctx, dgst, bytes.NewReader(body)); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	manifest, err := s.Manifest(ctx, dgst)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	if len(manifest.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(manifest.Files))
	}
	if manifest.Files[0].Digest != manifest.Files[1].Digest {
		t.Errorf("identical file contents produced different digests: %s vs %s", manifest.Files[0].Digest, manifest.Files[1].Digest)
	}
}

func TestExtractIsIdempotentForCommittedDigest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	x := New(s)

	body := buildTarball(t, []tarEntry{
		{name: "package/a.txt", typeflag: tar.TypeReg, body: "a"},
	})
	dgst := digest.FromBytes(body)
	if err := x.Extract(ctx, dgst, bytes.NewReader(body)); err != nil {
		t.Fatalf("Extract (first): %v", err)
	}
	if err := x.Extract(ctx, dgst, bytes.NewReader(body)); err != nil {
		t.Fatalf("Extract (second, already committed): %v", err)
	}
}

func TestExtractDegradedSymlinkOnInMemoryDriver(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	x := New(s)

	body := buildTarball(t, []tarEntry{
		{name: "package/real.txt", typeflag: tar.TypeReg, body: "target contents"},
		{name: "package/link.txt", typeflag: tar.TypeSymlink, linkname: "real.txt"},
	})
	dgst := digest.FromBytes(body)
	if err := x.Extract(ctx, dgst, bytes.NewReader(body)); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	manifest, err := s.Manifest(ctx, dgst)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}

	var link *store.ManifestEntry
	for i := range manifest.Files {
		if manifest.Files[i].Path == "link.txt" {
			link = &manifest.Files[i]
		}
	}
	if link == nil {
		t.Fatalf("manifest missing link.txt: %+v", manifest.Files)
	}
	// The inmemory driver has no FSRoot, so every symlink degrades to a
	// regular pooled file containing its target, regardless of host OS.
	if !link.Degraded {
		t.Errorf("link.txt Degraded = false, want true (inmemory driver has no real filesystem)")
	}
}

func TestExtractUnreadableGzipFails(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	x := New(s)

	err := x.Extract(ctx, digest.FromBytes([]byte("not gzip")), bytes.NewReader([]byte("not gzip")))
	if err == nil {
		t.Fatal("Extract with invalid gzip succeeded, want error")
	}
}
