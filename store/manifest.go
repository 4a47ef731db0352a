package store

import (
	"encoding/json"
	"fmt"

	"github.com/opencontainers/go-digest"
)

// manifestSchemaVersion is bumped whenever Manifest's encoding changes in a
// way an older corepm binary couldn't read.
const manifestSchemaVersion = 1

// Manifest is the sidecar recorded alongside every committed package
// directory, listing every regular file and symlink it contains. The
// materialize package uses it to hardlink or clone individual files
// without re-walking and re-hashing the extracted tree on every install,
// and to recreate symlinks and directories without consulting the
// staging tree at all.
type Manifest struct {
	SchemaVersion int             `json:"schemaVersion"`
	Files         []ManifestEntry `json:"files"`
}

// EntryKind distinguishes a regular file from a symlink within a
// Manifest. A degraded symlink (recorded as a regular file on a platform
// that forbids symlinks, per §4.3) is EntryFile with Degraded set, not a
// distinct kind: materialize treats it exactly like any other file.
type EntryKind int

const (
	EntryFile EntryKind = iota
	EntrySymlink
)

// ManifestEntry is one regular file or symlink within a package's
// extracted tree.
type ManifestEntry struct {
	// Path is relative to the package root, using forward slashes.
	Path string `json:"path"`
	Kind EntryKind `json:"kind"`

	// Digest and Size apply to EntryFile entries: the file's content
	// digest in the store's file pool, and its byte length.
	Digest digest.Digest `json:"digest,omitempty"`
	Size   int64         `json:"size,omitempty"`

	// Mode is the POSIX permission bits to restore on materialize.
	Mode uint32 `json:"mode"`

	// Target is the symlink's recorded target, set only on EntrySymlink.
	Target string `json:"target,omitempty"`

	// Degraded records that this entry began as a symlink but was
	// written as a regular file (EntryFile) containing the target path,
	// because the extracting platform forbids symlinks.
	Degraded bool `json:"degraded,omitempty"`
}

// NewManifest returns an empty Manifest ready to have entries appended.
func NewManifest() *Manifest {
	return &Manifest{SchemaVersion: manifestSchemaVersion}
}

// Add records one regular file entry.
func (m *Manifest) Add(path string, dgst digest.Digest, mode uint32, size int64) {
	m.Files = append(m.Files, ManifestEntry{Path: path, Kind: EntryFile, Digest: dgst, Mode: mode, Size: size})
}

// AddSymlink records one symlink entry.
func (m *Manifest) AddSymlink(path, target string) {
	m.Files = append(m.Files, ManifestEntry{Path: path, Kind: EntrySymlink, Target: target})
}

// AddDegradedSymlink records a symlink that was written as a regular file
// containing its target path, because the extracting platform forbids
// symlinks.
func (m *Manifest) AddDegradedSymlink(path string, dgst digest.Digest, mode uint32, size int64) {
	m.Files = append(m.Files, ManifestEntry{Path: path, Kind: EntryFile, Digest: dgst, Mode: mode, Size: size, Degraded: true})
}

func (m *Manifest) encode() ([]byte, error) {
	return json.Marshal(m)
}

func decodeManifest(content []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(content, &m); err != nil {
		return nil, fmt.Errorf("store: decode manifest: %w", err)
	}
	if m.SchemaVersion != manifestSchemaVersion {
		return nil, fmt.Errorf("store: manifest schema version %d unsupported (want %d)", m.SchemaVersion, manifestSchemaVersion)
	}
	return &m, nil
}
