// Package binlink implements executable linking (§4.6): given the
// shim entries an install plan already resolved (name, owning
// package, and its `.bin` scope), it creates one invocable shim per
// entry under that scope's `.bin` directory.
//
// Collisions between two packages claiming the same bin name within
// the same scope are caught earlier, at plan-build time
// (lockfile.BuildPlan), so this package only has to honor the
// ordering it's handed: §4.6's "first writer wins" applies within a
// single scope across dependency layers, which the plan already
// encodes by rejecting same-scope collisions outright rather than
// silently picking a winner.
package binlink

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/voltpack/corepm"
	"github.com/voltpack/corepm/internal/dcontext"
	"github.com/voltpack/corepm/internal/uuid"
)

// Linker creates executable shims for an install plan's resolved bin
// entries.
type Linker struct {
	created atomic.Int64
	failed  atomic.Int64
}

// New constructs a Linker.
func New() *Linker {
	return &Linker{}
}

// Stats reports how many shims this Linker created or failed to
// create, for the run's Report.
type Stats struct {
	Created int
	Failed  int
}

// Stats returns the counters accumulated since this Linker was
// constructed.
func (l *Linker) Stats() Stats {
	return Stats{Created: int(l.created.Load()), Failed: int(l.failed.Load())}
}

// Link creates every shim in entries, creating each one's `.bin`
// directory on first use. A single shim failing to link is non-fatal
// per §4.6 (logged and counted, not returned): one broken executable
// shouldn't fail an otherwise-successful install. Link only returns an
// error for something that would make every remaining shim fail too
// (a `.bin` directory that can't be created at all).
func (l *Linker) Link(ctx context.Context, entries []corepm.ShimEntry) error {
	dirsCreated := make(map[string]bool)

	for _, e := range entries {
		if !dirsCreated[e.BinDir] {
			if err := os.MkdirAll(e.BinDir, 0o755); err != nil {
				return corepm.NewError(corepm.ErrShimFailed, "binlink.link", e.BinDir, err)
			}
			dirsCreated[e.BinDir] = true
		}

		if err := l.linkOne(ctx, e); err != nil {
			l.failed.Add(1)
			dcontext.GetLoggerWithField(ctx, "name", e.Name).WithError(err).Error("binlink: failed to create shim")
			continue
		}
		l.created.Add(1)
	}

	return nil
}

// linkOne creates shim e, replacing any previous shim of the same name
// atomically: the new shim (or, on Windows, trio of launcher files) is
// written under a staging name first, then renamed over the final
// name, so a concurrent invocation of the shim never observes a
// half-written launcher.
func (l *Linker) linkOne(ctx context.Context, e corepm.ShimEntry) error {
	staging := filepath.Join(e.BinDir, ".staging-"+uuid.NewString())
	if err := writeShim(staging, e.TargetPath); err != nil {
		removeShimFiles(staging)
		return err
	}
	if err := swapShim(staging, filepath.Join(e.BinDir, e.Name)); err != nil {
		removeShimFiles(staging)
		return err
	}
	return nil
}
