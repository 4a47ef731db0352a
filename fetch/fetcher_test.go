package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/voltpack/corepm"
)

func TestEnsureVerifiesDigest(t *testing.T) {
	body := []byte("tarball contents")
	dgst := digest.FromBytes(body)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	f := New(Options{})
	desc := corepm.PackageDescriptor{Resolved: srv.URL, Digest: dgst}

	var got []byte
	err := f.Ensure(context.Background(), desc, func(ctx context.Context, r io.Reader) error {
		var err error
		got, err = io.ReadAll(r)
		return err
	})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("got %q, want %q", got, body)
	}
}

func TestEnsureDetectsMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("actual bytes"))
	}))
	defer srv.Close()

	f := New(Options{})
	desc := corepm.PackageDescriptor{Resolved: srv.URL, Digest: digest.FromBytes([]byte("expected bytes"))}

	err := f.Ensure(context.Background(), desc, func(ctx context.Context, r io.Reader) error {
		_, err := io.ReadAll(r)
		return err
	})
	if err == nil {
		t.Fatal("Ensure succeeded, want IntegrityMismatch")
	}
	cerr, ok := err.(*corepm.Error)
	if !ok || cerr.Kind != corepm.ErrIntegrityMismatch {
		t.Fatalf("err = %v, want IntegrityMismatch", err)
	}
}

func TestEnsureDeduplicatesConcurrentFetches(t *testing.T) {
	body := []byte("shared tarball")
	dgst := digest.FromBytes(body)

	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		time.Sleep(20 * time.Millisecond)
		w.Write(body)
	}))
	defer srv.Close()

	f := New(Options{Concurrency: 4})
	desc := corepm.PackageDescriptor{Resolved: srv.URL, Digest: dgst}

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			errs <- f.Ensure(context.Background(), desc, func(ctx context.Context, r io.Reader) error {
				_, err := io.ReadAll(r)
				return err
			})
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Ensure: %v", err)
		}
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("requests = %d, want 1 (singleflight should dedup concurrent fetches of the same digest)", got)
	}
}

func TestEnsureTerminalStatusDoesNotRetry(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Options{RetryMax: 2, RetryWaitMin: time.Millisecond, RetryWaitMax: 2 * time.Millisecond})
	desc := corepm.PackageDescriptor{Resolved: srv.URL}

	err := f.Ensure(context.Background(), desc, func(ctx context.Context, r io.Reader) error {
		_, err := io.ReadAll(r)
		return err
	})
	if err == nil {
		t.Fatal("Ensure succeeded, want FetchFailed")
	}
	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("requests = %d, want 1 (404 is terminal, must not retry)", got)
	}
}

func TestEnsureRetriesServerError(t *testing.T) {
	body := []byte("eventually ok")
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	f := New(Options{RetryMax: 4, RetryWaitMin: time.Millisecond, RetryWaitMax: 2 * time.Millisecond})
	desc := corepm.PackageDescriptor{Resolved: srv.URL, Digest: digest.FromBytes(body)}

	err := f.Ensure(context.Background(), desc, func(ctx context.Context, r io.Reader) error {
		_, err := io.ReadAll(r)
		return err
	})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if got := atomic.LoadInt32(&requests); got < 3 {
		t.Errorf("requests = %d, want >= 3", got)
	}
}
