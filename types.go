package corepm

import "github.com/opencontainers/go-digest"

// VerifyPolicy controls how the core reacts to a package descriptor that is
// missing an integrity digest.
type VerifyPolicy string

const (
	// VerifyRequired fails LockfilePlan with IntegrityMissing when a
	// descriptor has no digest.
	VerifyRequired VerifyPolicy = "required"
	// VerifyIfPresent verifies the digest when present and installs
	// without verification when absent.
	VerifyIfPresent VerifyPolicy = "if-present"
	// VerifySkip never verifies, regardless of whether a digest is present.
	VerifySkip VerifyPolicy = "skip"
)

// LinkStrategy selects (or forces) a Materializer placement tier.
type LinkStrategy string

const (
	LinkAuto     LinkStrategy = "auto"
	LinkClone    LinkStrategy = "clone"
	LinkHardlink LinkStrategy = "hardlink"
	LinkCopy     LinkStrategy = "copy"
)

// PackageDescriptor identifies one concrete, resolved package version as
// recorded in a lockfile. It carries everything needed to fetch, verify,
// extract, and place the package without any further resolution.
type PackageDescriptor struct {
	Name    string
	Version string

	// Digest is the tarball's content digest (algorithm + hex), required
	// unless the run's VerifyPolicy allows its absence.
	Digest digest.Digest

	// Resolved is the tarball's source URL.
	Resolved string

	// Dependencies maps direct dependency name to the version range or
	// pin recorded in the lockfile. The core does not interpret these
	// beyond using them, together with the lookup rules, to validate
	// that a placement exists for every edge.
	Dependencies map[string]string

	// Bin maps an executable name to its path relative to the package
	// root. Empty when the package declares no executables.
	Bin map[string]string

	// OS and CPU are optional platform filters; when non-empty and the
	// host platform is not listed, the entry is skipped.
	OS  []string
	CPU []string

	// Workspace is true when this descriptor is a local workspace
	// member rather than a tarball fetched from a registry.
	Workspace bool
}

// HasIntegrity reports whether this descriptor carries a usable digest.
func (d PackageDescriptor) HasIntegrity() bool {
	return d.Digest != ""
}

// PlacementKind distinguishes a real extracted package from a symlink (or
// junction) into a workspace member.
type PlacementKind int

const (
	PlacementReal PlacementKind = iota
	PlacementWorkspaceLink
	PlacementSkippedPlatform
)

func (k PlacementKind) String() string {
	switch k {
	case PlacementReal:
		return "real"
	case PlacementWorkspaceLink:
		return "workspace_link"
	case PlacementSkippedPlatform:
		return "skipped_platform"
	default:
		return "unknown"
	}
}

// Placement is one entry of an install plan: a decision to put a specific
// package at a specific absolute path in the project tree.
type Placement struct {
	// Path is the absolute target path inside the project.
	Path string
	// Depth is the number of path separators in Path relative to the
	// project root; the Materializer processes placements shallowest
	// first so that parents exist before children.
	Depth int

	Kind PlacementKind
	Desc PackageDescriptor

	// WorkspaceSource is set when Kind == PlacementWorkspaceLink: the
	// relative path, from the project root, of the workspace member
	// this placement should link to.
	WorkspaceSource string
}

// ShimEntry describes one executable shim to create under a `.bin`
// directory at some scope in the tree.
type ShimEntry struct {
	// BinDir is the absolute path of the `.bin` directory the shim is
	// created in.
	BinDir string
	// Name is the executable's name, e.g. "tsc".
	Name string
	// TargetPath is the absolute path to the file the shim invokes.
	TargetPath string
	// Placement is the owning package's placement, for error reporting.
	Placement Placement
}
