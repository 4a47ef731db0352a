// Package pipeline wires the Store, Fetcher, Extractor, Materializer
// and Linker into the single end-to-end operation §6 calls an install:
// parse the lockfile, compute the plan, fetch and extract whatever the
// store doesn't already have, materialize the plan into the project
// tree, link executables, and emit a Report.
//
// It follows the teacher's own registry handler composition pattern
// (distribution.go wiring a Namespace's blob/manifest/tag services
// together behind one entry point) generalized from an HTTP request
// handler to a one-shot CLI run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/voltpack/corepm"
	"github.com/voltpack/corepm/binlink"
	"github.com/voltpack/corepm/extract"
	"github.com/voltpack/corepm/fetch"
	"github.com/voltpack/corepm/internal/dcontext"
	"github.com/voltpack/corepm/internal/uuid"
	"github.com/voltpack/corepm/lockfile"
	"github.com/voltpack/corepm/materialize"
	"github.com/voltpack/corepm/store"
)

// Options configures one Pipeline run.
type Options struct {
	// ProjectRoot is the absolute path install paths in the lockfile are
	// resolved relative to.
	ProjectRoot string
	// LockfilePath is the lockfile to parse; defaults to
	// "<ProjectRoot>/corepm-lock.yaml" when empty.
	LockfilePath string

	Verify   corepm.VerifyPolicy
	Strategy corepm.LinkStrategy

	FetchConcurrency int
}

// Pipeline runs installs against a single Store.
type Pipeline struct {
	store   *store.Store
	fetcher *fetch.Fetcher
	metrics *Metrics

	cached atomic.Int64
}

// New constructs a Pipeline backed by s.
func New(s *store.Store, opts Options) *Pipeline {
	return &Pipeline{
		store:   s,
		fetcher: fetch.New(fetch.Options{Concurrency: opts.FetchConcurrency}),
		metrics: NewMetrics(),
	}
}

// Metrics returns the Prometheus registry this Pipeline's runs publish
// counters to, for an embedding CLI to expose on a scrape endpoint.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Run performs one full install: parse, plan, fetch, extract,
// materialize, link, report.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*corepm.Report, error) {
	startedAt := time.Now()
	runID := uuid.NewString()
	ctx = dcontext.WithLogger(ctx, dcontext.GetLoggerWithField(ctx, "run.id", runID))

	report := corepm.NewReport(runID, opts.ProjectRoot, startedAt)

	lockfilePath := opts.LockfilePath
	if lockfilePath == "" {
		lockfilePath = opts.ProjectRoot + "/corepm-lock.yaml"
	}

	plan, err := p.buildPlan(lockfilePath, opts)
	if err != nil {
		return p.failReport(report, "pipeline.plan", "", err), err
	}
	fillPlanCounts(report, plan)

	extractor := extract.New(p.store)
	if err := p.fetchAndExtract(ctx, plan, extractor); err != nil {
		return p.failReport(report, "pipeline.fetch", "", err), err
	}

	mat := materialize.New(p.store, opts.Strategy)
	if err := mat.Place(ctx, plan.Placements); err != nil {
		return p.failReport(report, "pipeline.materialize", "", err), err
	}

	linker := binlink.New()
	if err := linker.Link(ctx, plan.Shims); err != nil {
		return p.failReport(report, "pipeline.binlink", "", err), err
	}

	p.fillCounts(report, extractor, mat, linker)
	report.EndedAt = time.Now()
	return report, nil
}

func (p *Pipeline) buildPlan(lockfilePath string, opts Options) (*lockfile.Plan, error) {
	f, err := os.Open(lockfilePath)
	if err != nil {
		return nil, corepm.NewError(corepm.ErrLockfileParse, "pipeline.plan", lockfilePath, err)
	}
	defer f.Close()

	doc, err := lockfile.Parse(f)
	if err != nil {
		return nil, err
	}

	return lockfile.BuildPlan(doc, lockfile.Options{
		ProjectRoot: opts.ProjectRoot,
		Verify:      opts.Verify,
	})
}

// fetchAndExtract fetches and extracts every distinct digest named by a
// real placement that the store doesn't already hold, bounded by the
// Fetcher's own concurrency cap (golang.org/x/sync/errgroup fans the
// work out; the Fetcher's internal semaphore is what actually bounds
// it, so errgroup here is purely a join point, not a second limiter).
func (p *Pipeline) fetchAndExtract(ctx context.Context, plan *lockfile.Plan, x *extract.Extractor) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, dgst := range pendingDigests(plan) {
		dgst := dgst
		g.Go(func() error {
			return p.ensureExtracted(gctx, dgst, plan, x)
		})
	}
	return g.Wait()
}

func (p *Pipeline) ensureExtracted(ctx context.Context, dgst digest.Digest, plan *lockfile.Plan, x *extract.Extractor) error {
	has, err := p.store.HasPackage(ctx, dgst)
	if err != nil {
		return err
	}
	if has {
		p.cached.Add(1)
		p.metrics.cached.Inc()
		return nil
	}

	desc, ok := descriptorForDigest(plan, dgst)
	if !ok {
		return fmt.Errorf("pipeline: no descriptor for digest %s", dgst)
	}

	sink := func(ctx context.Context, body io.Reader) error {
		return x.Extract(ctx, dgst, body)
	}
	if err := p.fetcher.Ensure(ctx, desc, sink); err != nil {
		return err
	}
	p.metrics.fetched.Inc()
	return nil
}

func pendingDigests(plan *lockfile.Plan) []digest.Digest {
	seen := make(map[digest.Digest]bool)
	var out []digest.Digest
	for _, pl := range plan.Placements {
		if pl.Kind != corepm.PlacementReal || !pl.Desc.HasIntegrity() {
			continue
		}
		if seen[pl.Desc.Digest] {
			continue
		}
		seen[pl.Desc.Digest] = true
		out = append(out, pl.Desc.Digest)
	}
	return out
}

func descriptorForDigest(plan *lockfile.Plan, dgst digest.Digest) (corepm.PackageDescriptor, bool) {
	for _, pl := range plan.Placements {
		if pl.Kind == corepm.PlacementReal && pl.Desc.Digest == dgst {
			return pl.Desc, true
		}
	}
	return corepm.PackageDescriptor{}, false
}

func fillPlanCounts(report *corepm.Report, plan *lockfile.Plan) {
	for _, pl := range plan.Placements {
		switch pl.Kind {
		case corepm.PlacementReal:
			report.Plan.Real++
		case corepm.PlacementWorkspaceLink:
			report.Plan.WorkspaceLink++
		case corepm.PlacementSkippedPlatform:
			report.Plan.SkippedPlatform++
		}
	}
	report.Plan.Shims = len(plan.Shims)
}

func (p *Pipeline) fillCounts(report *corepm.Report, x *extract.Extractor, mat *materialize.Materializer, linker *binlink.Linker) {
	fs := p.fetcher.Stats()
	xs := x.Stats()
	ms := mat.Stats()
	ls := linker.Stats()

	report.Fetch = corepm.FetchCounts{
		BytesIn:  fs.BytesIn,
		Attempts: fs.Attempts,
		Retries:  fs.Retries,
		Fetched:  xs.PackagesExtracted,
		Cached:   int(p.cached.Load()),
	}
	report.Extract = corepm.ExtractCounts{
		PackagesExtracted: xs.PackagesExtracted,
		FilesIngested:     xs.FilesIngested,
	}
	report.Materialize = corepm.MaterializeCounts{
		Cloned: ms.Cloned,
		Linked: ms.Linked,
		Copied: ms.Copied,
	}
	report.Bin = corepm.BinCounts{Created: ls.Created, Failed: ls.Failed}

	p.metrics.observe(ms, ls)
}

func (p *Pipeline) failReport(report *corepm.Report, op, path string, err error) *corepm.Report {
	report.EndedAt = time.Now()
	kind := corepm.ErrFetchFailed
	if cerr, ok := err.(*corepm.Error); ok {
		kind = cerr.Kind
	}
	report.Error = &corepm.ReportError{Kind: kind, Op: op, Path: path, Message: err.Error()}
	return report
}
