package inmemory

import (
	"bytes"
	"context"
	"io"
	"testing"
)

func TestPutGetContent(t *testing.T) {
	d := New()
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
}

func TestWriterAppend(t *testing.T) {
	d := New()
	ctx := context.Background()

	w, err := d.Writer(ctx, "/f.txt", false)
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	if _, err := w.Write([]byte("abc")); err != nil {
		t.Fatal(err)
	}
	if err := w.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	w2, err := d.Writer(ctx, "/f.txt", true)
	if err != nil {
		t.Fatalf("Writer (append): %v", err)
	}
	if _, err := w2.Write([]byte("def")); err != nil {
		t.Fatal(err)
	}
	if err := w2.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w2.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := d.GetContent(ctx, "/f.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abcdef" {
		t.Fatalf("GetContent = %q, want %q", got, "abcdef")
	}
}

func TestListMoveDelete(t *testing.T) {
	d := New()
	ctx := context.Background()

	for _, p := range []string{"/pkg/a.js", "/pkg/b.js"} {
		if err := d.PutContent(ctx, p, []byte(p)); err != nil {
			t.Fatalf("PutContent(%s): %v", p, err)
		}
	}

	entries, err := d.List(ctx, "/pkg")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List = %v, want 2 entries", entries)
	}

	if err := d.Move(ctx, "/pkg/a.js", "/pkg2/a.js"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := d.Stat(ctx, "/pkg/a.js"); err == nil {
		t.Fatal("Stat of moved-away source succeeded, want error")
	}
	if _, err := d.Stat(ctx, "/pkg2/a.js"); err != nil {
		t.Fatalf("Stat of move destination: %v", err)
	}

	if err := d.Delete(ctx, "/pkg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := d.List(ctx, "/pkg"); err == nil {
		t.Fatal("List of deleted dir succeeded, want error")
	}
}

func TestReaderOffset(t *testing.T) {
	d := New()
	ctx := context.Background()

	if err := d.PutContent(ctx, "/f.txt", []byte("0123456789")); err != nil {
		t.Fatal(err)
	}

	rc, err := d.Reader(ctx, "/f.txt", 5)
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("56789")) {
		t.Fatalf("Reader at offset 5 = %q, want %q", got, "56789")
	}
}
