// Package fetch implements the Fetcher (§4.2): it turns a package
// descriptor's resolved URL into a verified byte stream, handling retry,
// bounded concurrency, and in-flight deduplication so callers never need
// to fetch the same digest twice.
//
// It is grounded on the teacher's own dependency closure rather than its
// registry client code: distribution-distribution already carries
// hashicorp/go-retryablehttp in its module graph, and golang.org/x/sync's
// errgroup is exercised the same way in the standardbeagle-lci example
// (bounded fan-out over a worker pool). The teacher's own HTTP registry
// client (client_repository.go, client_blob_writer.go) is a stateful
// pull-manifest/pull-blob session against the registry API's own error
// format (registry/api/errcode) with no analog here: a corepm Fetcher
// downloads one opaque tarball per descriptor, nothing more.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/singleflight"

	"github.com/voltpack/corepm"
	"github.com/voltpack/corepm/internal/dcontext"
)

// Sink receives a fetched, digest-verified tarball body. It is called at
// most once per distinct digest regardless of how many concurrent callers
// request it. Sink should read body to completion; data the Fetcher
// cannot verify because the body was only partially read is reported by
// Ensure, not by the Sink's own error path.
type Sink func(ctx context.Context, body io.Reader) error

// Options configures a Fetcher.
type Options struct {
	// Concurrency bounds the number of in-flight HTTP requests. 0 means
	// the §5 default of 16.
	Concurrency int
	// RetryMax is the number of retries after the first attempt; 0 means
	// the §4.2 default of 4 (5 attempts total).
	RetryMax int
	// RetryWaitMin/RetryWaitMax bound the exponential backoff between
	// attempts; zero values mean the §4.2 defaults of 200ms/8s.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// HTTPClient is the underlying transport; nil means
	// http.DefaultClient.
	HTTPClient *http.Client
}

// Fetcher pulls package tarballs over HTTPS, verifying their declared
// digest and deduplicating concurrent requests for the same one.
type Fetcher struct {
	client *retryablehttp.Client
	sem    chan struct{}
	group  singleflight.Group

	attempts atomic.Int64
	retries  atomic.Int64
	bytesIn  atomic.Int64
}

// New constructs a Fetcher.
func New(opts Options) *Fetcher {
	retryMax := opts.RetryMax
	if retryMax == 0 {
		retryMax = 4
	}
	waitMin := opts.RetryWaitMin
	if waitMin == 0 {
		waitMin = 200 * time.Millisecond
	}
	waitMax := opts.RetryWaitMax
	if waitMax == 0 {
		waitMax = 8 * time.Second
	}
	concurrency := opts.Concurrency
	if concurrency == 0 {
		concurrency = 16
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = opts.HTTPClient
	if rc.HTTPClient == nil {
		rc.HTTPClient = http.DefaultClient
	}
	rc.RetryMax = retryMax
	rc.RetryWaitMin = waitMin
	rc.RetryWaitMax = waitMax
	rc.Logger = nil
	rc.CheckRetry = checkRetry
	rc.Backoff = retryablehttp.DefaultBackoff

	f := &Fetcher{
		client: rc,
		sem:    make(chan struct{}, concurrency),
	}
	rc.RequestLogHook = f.countingRequestLogHook
	return f
}

// checkRetry implements §4.2's retry policy: network errors and 5xx
// responses retry, 408 and 429 retry, every other 4xx is terminal.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		// A network-level error (connection reset, timeout, DNS failure)
		// is always retryable under §4.2; only cancellation above is
		// terminal.
		return true, nil
	}
	if resp == nil {
		return true, nil
	}
	switch {
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests:
		return true, nil
	case resp.StatusCode >= 500:
		return true, nil
	case resp.StatusCode >= 400:
		return false, nil
	}
	return false, nil
}

// Ensure fetches desc's tarball and passes the verified body to sink,
// exactly once per distinct digest even under concurrent callers racing
// for the same package. It returns a *corepm.Error on any failure: a
// transport or status failure is FetchFailed, a digest mismatch is
// IntegrityMismatch, and a sink error is returned unwrapped (the sink,
// e.g. the Extractor, already wraps its own failures).
func (f *Fetcher) Ensure(ctx context.Context, desc corepm.PackageDescriptor, sink Sink) error {
	key := desc.Resolved
	if desc.HasIntegrity() {
		key = desc.Digest.String()
	}

	_, err, _ := f.group.Do(key, func() (interface{}, error) {
		return nil, f.fetchOnce(ctx, desc, sink)
	})
	return err
}

func (f *Fetcher) fetchOnce(ctx context.Context, desc corepm.PackageDescriptor, sink Sink) error {
	select {
	case f.sem <- struct{}{}:
	case <-ctx.Done():
		return corepm.NewError(corepm.ErrCancelled, "fetch.ensure", desc.Resolved, ctx.Err())
	}
	defer func() { <-f.sem }()

	log := dcontext.GetLoggerWithField(ctx, "url", desc.Resolved)
	log.Debug("fetching package tarball")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, desc.Resolved, nil)
	if err != nil {
		return corepm.NewError(corepm.ErrFetchFailed, "fetch.ensure", desc.Resolved, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return corepm.NewError(corepm.ErrFetchFailed, "fetch.ensure", desc.Resolved, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return corepm.NewError(corepm.ErrFetchFailed, "fetch.ensure", desc.Resolved, fmt.Errorf("unexpected status %s", resp.Status))
	}

	vr := newVerifyingReader(resp.Body, desc)

	sinkErr := sink(ctx, vr)
	f.bytesIn.Add(vr.bytesRead())
	if sinkErr != nil {
		return sinkErr
	}

	if mismatch := vr.mismatch(); mismatch != nil {
		return corepm.NewError(corepm.ErrIntegrityMismatch, "fetch.ensure", desc.Resolved, mismatch)
	}
	return nil
}
