// Package store implements the installer's on-disk content-addressed store
// (CAS): package tarball entries keyed by tarball digest, a file pool keyed
// by per-file content digest, and the staging area used to publish both
// atomically.
package store

import (
	"fmt"
	"path"

	"github.com/opencontainers/go-digest"
)

// pathMapper maps the Store's object identities onto on-disk paths. The
// layout is:
//
//	<root>/pkgs/<algorithm>/<first two hex chars>/<remaining hex>/     package entry directory
//	<root>/pkgs/<algorithm>/<first two hex chars>/<remaining hex>/.manifest
//	<root>/files/<algorithm>/<first two hex chars>/<remaining hex>     file pool entry
//	<root>/tmp/<random>                                                staging area
//	<root>/meta/<algorithm>/<first two hex chars>/<remaining hex>      last-access metadata
//
// Keeping path generation in its own type, decoupled from the pathSpec
// values passed to it, means a future on-disk layout version could be
// introduced by swapping the mapper without touching callers.
type pathMapper struct {
	root string
}

// path returns the path identified by spec, relative to pm.root.
func (pm *pathMapper) path(spec pathSpec) (string, error) {
	switch v := spec.(type) {
	case pkgDirPathSpec:
		components, err := digestPathComponents(v.digest)
		if err != nil {
			return "", err
		}
		return path.Join(append([]string{pm.root, "pkgs"}, components...)...), nil

	case pkgManifestPathSpec:
		dir, err := pm.path(pkgDirPathSpec{digest: v.digest})
		if err != nil {
			return "", err
		}
		return path.Join(dir, ".manifest"), nil

	case filePoolPathSpec:
		components, err := digestPathComponents(v.digest)
		if err != nil {
			return "", err
		}
		return path.Join(append([]string{pm.root, "files"}, components...)...), nil

	case tmpRootPathSpec:
		return path.Join(pm.root, "tmp"), nil

	case metaRootPathSpec:
		return path.Join(pm.root, "meta"), nil

	case metaLastAccessPathSpec:
		components, err := digestPathComponents(v.digest)
		if err != nil {
			return "", err
		}
		return path.Join(append([]string{pm.root, "meta"}, components...)...), nil

	default:
		return "", fmt.Errorf("store: unknown path spec: %#v", v)
	}
}

// pathSpec marks a struct as a path specification consumed by pathMapper.
type pathSpec interface {
	pathSpec()
}

// pkgDirPathSpec is the directory holding one package's extracted tree.
type pkgDirPathSpec struct {
	digest digest.Digest
}

func (pkgDirPathSpec) pathSpec() {}

// pkgManifestPathSpec is the sidecar manifest listing a package's files.
type pkgManifestPathSpec struct {
	digest digest.Digest
}

func (pkgManifestPathSpec) pathSpec() {}

// filePoolPathSpec is a single regular file keyed by content digest.
type filePoolPathSpec struct {
	digest digest.Digest
}

func (filePoolPathSpec) pathSpec() {}

// tmpRootPathSpec is the staging directory root.
type tmpRootPathSpec struct{}

func (tmpRootPathSpec) pathSpec() {}

// metaRootPathSpec is the metadata directory root.
type metaRootPathSpec struct{}

func (metaRootPathSpec) pathSpec() {}

// metaLastAccessPathSpec is the last-access marker for one digest.
type metaLastAccessPathSpec struct {
	digest digest.Digest
}

func (metaLastAccessPathSpec) pathSpec() {}

// digestPathComponents breaks a digest into <algorithm>/<first two hex
// chars>/<remaining hex>, splitting the leaf directory so no single
// directory ever holds more than 256 first-level entries.
func digestPathComponents(dgst digest.Digest) ([]string, error) {
	if err := dgst.Validate(); err != nil {
		return nil, fmt.Errorf("store: invalid digest %q: %w", dgst, err)
	}

	hex := dgst.Hex()
	if len(hex) < 3 {
		return nil, fmt.Errorf("store: digest hex too short: %q", dgst)
	}

	return []string{string(dgst.Algorithm()), hex[:2], hex[2:]}, nil
}
