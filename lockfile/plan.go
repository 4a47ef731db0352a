package lockfile

import (
	"fmt"
	"path"
	"runtime"
	"sort"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/voltpack/corepm"
	"github.com/voltpack/corepm/reference"
)

// platformAliases maps lockfile os/cpu tokens (written in Node's
// process.platform/arch vocabulary, per SPEC_FULL.md's platform-filter
// supplement) to the runtime.GOOS/GOARCH values Go reports.
var platformAliases = map[string]string{
	"darwin": "darwin",
	"linux":  "linux",
	"win32":  "windows",
	"x64":    "amd64",
	"arm64":  "arm64",
	"ia32":   "386",
}

func normalizePlatformToken(tok string) string {
	if alias, ok := platformAliases[tok]; ok {
		return alias
	}
	return tok
}

// Options configures BuildPlan.
type Options struct {
	// ProjectRoot is the absolute path placements are resolved against.
	ProjectRoot string
	// Verify is the run's integrity policy.
	Verify corepm.VerifyPolicy
}

// Plan is a fully replayed install plan: every placement and shim the
// Materializer and bin linker need to act on, in execution order.
type Plan struct {
	Placements []corepm.Placement
	Shims      []corepm.ShimEntry
}

// BuildPlan replays doc into a Plan under opts, without performing any
// I/O: it only interprets the document, applies the platform filter and
// verify policy, and orders the result (§4.4).
func BuildPlan(doc *Document, opts Options) (*Plan, error) {
	workspaceMembers := make(map[string]bool, len(doc.Packages))
	for _, p := range doc.Packages {
		workspaceMembers[p] = true
	}

	placements := make([]corepm.Placement, 0, len(doc.Paths))
	for _, pe := range doc.Paths {
		placement, err := buildPlacement(pe, opts)
		if err != nil {
			return nil, err
		}
		placements = append(placements, placement)
	}

	sort.SliceStable(placements, func(i, j int) bool {
		a, b := placements[i], placements[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		aLink := a.Kind == corepm.PlacementWorkspaceLink
		bLink := b.Kind == corepm.PlacementWorkspaceLink
		if aLink != bLink {
			return !aLink
		}
		return a.Path < b.Path
	})

	shims, err := buildShims(placements)
	if err != nil {
		return nil, err
	}

	return &Plan{Placements: placements, Shims: shims}, nil
}

// buildPlacement interprets one lockfile path entry into a Placement.
// A platform-filtered entry still comes back as a PlacementSkippedPlatform
// placement rather than a signal to drop it: the caller keeps it in the
// Plan so downstream Materializer/binlink skip it by Kind, and the run's
// Report can still count it under skipped_platform (§8).
func buildPlacement(pe PathEntry, opts Options) (corepm.Placement, error) {
	entry := pe.Entry
	absPath := path.Join(opts.ProjectRoot, pe.Path)
	depth := strings.Count(strings.Trim(pe.Path, "/"), "/")

	if !reference.IsValidName(entry.Name) {
		return corepm.Placement{}, corepm.NewError(corepm.ErrLockfileParse, "lockfile.plan", pe.Path, fmt.Errorf("invalid package name %q", entry.Name))
	}
	if !entry.Link && !reference.IsValidVersion(entry.Version) {
		return corepm.Placement{}, corepm.NewError(corepm.ErrLockfileParse, "lockfile.plan", pe.Path, fmt.Errorf("invalid version %q for %s", entry.Version, entry.Name))
	}

	if entry.Link {
		return corepm.Placement{
			Path:            absPath,
			Depth:           depth,
			Kind:            corepm.PlacementWorkspaceLink,
			WorkspaceSource: path.Join(opts.ProjectRoot, entry.Resolved),
			Desc: corepm.PackageDescriptor{
				Name:      entry.Name,
				Version:   entry.Version,
				Workspace: true,
			},
		}, nil
	}

	if !platformMatches(entry.OS, runtime.GOOS) || !platformMatches(entry.CPU, runtime.GOARCH) {
		return corepm.Placement{
			Path:  absPath,
			Depth: depth,
			Kind:  corepm.PlacementSkippedPlatform,
			Desc:  corepm.PackageDescriptor{Name: entry.Name, Version: entry.Version},
		}, nil
	}

	var dgst digest.Digest
	if entry.Integrity != "" {
		dgst = digest.Digest(entry.Integrity)
		if err := dgst.Validate(); err != nil {
			return corepm.Placement{}, corepm.NewError(corepm.ErrLockfileParse, "lockfile.plan", pe.Path, fmt.Errorf("invalid integrity %q: %w", entry.Integrity, err))
		}
	}

	desc := corepm.PackageDescriptor{
		Name:         entry.Name,
		Version:      entry.Version,
		Digest:       dgst,
		Resolved:     entry.Resolved,
		Dependencies: entry.Dependencies,
		Bin:          entry.Bin,
		OS:           entry.OS,
		CPU:          entry.CPU,
	}

	if !desc.HasIntegrity() && opts.Verify == corepm.VerifyRequired {
		return corepm.Placement{}, corepm.NewError(corepm.ErrIntegrityMissing, "lockfile.plan", pe.Path, fmt.Errorf("package %s@%s has no integrity digest", entry.Name, entry.Version))
	}

	return corepm.Placement{
		Path:  absPath,
		Depth: depth,
		Kind:  corepm.PlacementReal,
		Desc:  desc,
	}, nil
}

// platformMatches reports whether tokens is empty (no filter) or contains
// an alias matching host.
func platformMatches(tokens []string, host string) bool {
	if len(tokens) == 0 {
		return true
	}
	for _, t := range tokens {
		negate := strings.HasPrefix(t, "!")
		tok := normalizePlatformToken(strings.TrimPrefix(t, "!"))
		if negate {
			if tok == host {
				return false
			}
			continue
		}
		if tok == host {
			return true
		}
	}
	// A token list that is entirely negations matches unless one of them
	// excluded host above.
	for _, t := range tokens {
		if !strings.HasPrefix(t, "!") {
			return false
		}
	}
	return true
}

// buildShims derives one ShimEntry per (placement, bin name) pair, rooted
// at the nearest ancestor node_modules/.bin directory. Platform-skipped
// placements never produce shims: a dependent shim for a package that
// was never extracted would point at a path that does not exist.
func buildShims(placements []corepm.Placement) ([]corepm.ShimEntry, error) {
	var shims []corepm.ShimEntry
	seen := make(map[string]corepm.ShimEntry)

	for _, p := range placements {
		if p.Kind != corepm.PlacementReal || len(p.Desc.Bin) == 0 {
			continue
		}
		binDir := nearestBinDir(p.Path)

		names := make([]string, 0, len(p.Desc.Bin))
		for name := range p.Desc.Bin {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			rel := p.Desc.Bin[name]
			entry := corepm.ShimEntry{
				BinDir:     binDir,
				Name:       name,
				TargetPath: path.Join(p.Path, rel),
				Placement:  p,
			}
			key := path.Join(binDir, name)
			if prior, ok := seen[key]; ok {
				return nil, corepm.NewError(corepm.ErrShimFailed, "lockfile.plan", key, fmt.Errorf("bin name %q collides: %s and %s", name, prior.Placement.Desc.Name, p.Desc.Name))
			}
			seen[key] = entry
			shims = append(shims, entry)
		}
	}

	return shims, nil
}

// nearestBinDir returns the `.bin` directory of the node_modules directory
// that directly contains pkgPath.
func nearestBinDir(pkgPath string) string {
	idx := strings.LastIndex(pkgPath, "/node_modules/")
	if idx < 0 {
		return path.Join(pkgPath, "..", ".bin")
	}
	nodeModulesDir := pkgPath[:idx+len("/node_modules")]
	return path.Join(nodeModulesDir, ".bin")
}
