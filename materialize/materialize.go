// Package materialize implements the Materializer (§4.5): given an
// install plan and a populated Store, it produces the project's
// dependency tree using the fastest placement tier the host filesystem
// supports — directory clone, then hardlink, then byte copy — with an
// atomic staging-then-rename swap per scope so a partially built
// dependency directory is never visible.
//
// It follows the teacher's own atomic-publish idiom (seen in
// store/driver/filesystem's temp-path-then-rename Writer, and in
// store.Store.CommitPackage's staging-dir Move) generalized from the
// Store's driver-abstracted operations to real OS-level operations,
// since hardlinking and directory cloning have no equivalent in the
// StorageDriver interface.
package materialize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/voltpack/corepm"
	"github.com/voltpack/corepm/internal/dcontext"
	"github.com/voltpack/corepm/internal/uuid"
	"github.com/voltpack/corepm/store"
)

// Materializer places a plan's packages into the project tree.
type Materializer struct {
	store    *store.Store
	strategy corepm.LinkStrategy
	caps     *capabilityCache

	cloned atomic.Int64
	linked atomic.Int64
	copied atomic.Int64
}

// New constructs a Materializer backed by s, defaulting every package to
// strategy (§4.5's three tiers, or LinkAuto to let capability detection
// choose per package).
func New(s *store.Store, strategy corepm.LinkStrategy) *Materializer {
	return &Materializer{store: s, strategy: strategy, caps: newCapabilityCache()}
}

// Stats reports what this Materializer actually realized through each
// tier, after any per-package demotion, for the run's Report: Cloned
// counts packages, Linked and Copied count files.
type Stats struct {
	Cloned int
	Linked int
	Copied int
}

// Stats returns the tier counts accumulated since this Materializer was
// constructed. Safe to call while Place is still running.
func (m *Materializer) Stats() Stats {
	return Stats{
		Cloned: int(m.cloned.Load()),
		Linked: int(m.linked.Load()),
		Copied: int(m.copied.Load()),
	}
}

// Place realizes every real and workspace-link placement in order.
// Placements must already be sorted shallowest-first (lockfile.BuildPlan
// guarantees this), so a parent directory always exists before its
// children are placed into it.
func (m *Materializer) Place(ctx context.Context, placements []corepm.Placement) error {
	for _, p := range placements {
		switch p.Kind {
		case corepm.PlacementSkippedPlatform:
			continue
		case corepm.PlacementWorkspaceLink:
			if err := m.placeWorkspaceLink(ctx, p); err != nil {
				return err
			}
		case corepm.PlacementReal:
			if err := m.placePackage(ctx, p); err != nil {
				return err
			}
		}
	}
	return nil
}

// placePackage builds p's package tree under a sibling staging directory
// and atomically swaps it into place.
func (m *Materializer) placePackage(ctx context.Context, p corepm.Placement) error {
	log := dcontext.GetLoggerWithField(ctx, "path", p.Path)

	parent := filepath.Dir(p.Path)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return corepm.NewError(corepm.ErrMaterializeFailed, "materialize.place", p.Path, err)
	}

	stagingPath := filepath.Join(parent, ".staging-"+uuid.NewString())
	if err := m.build(ctx, p, stagingPath); err != nil {
		os.RemoveAll(stagingPath)
		return err
	}

	if err := m.swap(p.Path, stagingPath); err != nil {
		os.RemoveAll(stagingPath)
		return corepm.NewError(corepm.ErrMaterializeFailed, "materialize.swap", p.Path, err)
	}

	log.Debug("materialized package")
	return nil
}

// build fills stagingPath with p's package tree using the fastest tier
// the capability cache allows, demoting on failure per §4.5.
func (m *Materializer) build(ctx context.Context, p corepm.Placement, stagingPath string) error {
	dgst := p.Desc.Digest
	manifest, err := m.store.Manifest(ctx, dgst)
	if err != nil {
		return corepm.NewError(corepm.ErrMaterializeFailed, "materialize.manifest", p.Path, err)
	}

	tier := m.strategy
	if tier == corepm.LinkAuto {
		tier = m.probeTier(ctx, stagingPath)
	}

	switch tier {
	case corepm.LinkClone:
		srcDir, err := m.store.PackageDir(ctx, dgst)
		if err != nil {
			return corepm.NewError(corepm.ErrMaterializeFailed, "materialize.build", p.Path, err)
		}
		srcFS, ok := m.store.FSPath(srcDir)
		if ok {
			if err := cloneDir(srcFS, stagingPath); err == nil {
				m.cloned.Add(1)
				return nil
			}
			m.caps.demote(stagingPath, corepm.LinkClone)
			if err := resetStaging(stagingPath); err != nil {
				return corepm.NewError(corepm.ErrMaterializeFailed, "materialize.build", p.Path, err)
			}
		}
		fallthrough

	case corepm.LinkHardlink:
		if n, err := m.hardlinkManifest(ctx, manifest, stagingPath); err == nil {
			m.linked.Add(int64(n))
			return nil
		}
		m.caps.demote(stagingPath, corepm.LinkHardlink)
		if err := resetStaging(stagingPath); err != nil {
			return corepm.NewError(corepm.ErrMaterializeFailed, "materialize.build", p.Path, err)
		}
		fallthrough

	default:
		n, err := m.copyManifest(ctx, manifest, stagingPath)
		if err != nil {
			return err
		}
		m.copied.Add(int64(n))
		return nil
	}
}

// resetStaging discards any partial tree a failed tier attempt left
// behind, so the next tier down never collides with leftover files from
// the one that failed (a clone that created a destination stub before
// its FICLONE ioctl failed, or a hardlink pass that placed some entries
// before hitting EXDEV).
func resetStaging(stagingPath string) error {
	if err := os.RemoveAll(stagingPath); err != nil {
		return err
	}
	return os.MkdirAll(stagingPath, 0o755)
}

// swap renames dest out of the way (if present) and stagingPath into
// place, then removes the displaced directory. Nothing about this
// module requires the removal to happen before swap returns, so it
// happens in a detached goroutine exactly as §4.5 specifies
// ("removed asynchronously").
func (m *Materializer) swap(dest, stagingPath string) error {
	var displaced string
	if _, err := os.Lstat(dest); err == nil {
		displaced = filepath.Join(filepath.Dir(dest), ".trash-"+uuid.NewString())
		if err := os.Rename(dest, displaced); err != nil {
			return fmt.Errorf("displace existing %s: %w", dest, err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.Rename(stagingPath, dest); err != nil {
		if displaced != "" {
			os.Rename(displaced, dest)
		}
		return fmt.Errorf("rename staging into place: %w", err)
	}

	if displaced != "" {
		go os.RemoveAll(displaced)
	}
	return nil
}
