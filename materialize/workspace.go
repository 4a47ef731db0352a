package materialize

import (
	"context"
	"os"
	"path/filepath"

	"github.com/voltpack/corepm"
	"github.com/voltpack/corepm/internal/uuid"
)

// placeWorkspaceLink links a PlacementWorkspaceLink entry to its
// workspace member directory. Unlike package placements there is no
// Store-pool source to clone or hardlink from — workspace members live
// in the project tree itself — so the link is always a real symlink
// (or, on a platform that forbids them, a degraded text file recording
// the target, matching the Extractor's own degradation rule in
// extract.writeSymlink).
func (m *Materializer) placeWorkspaceLink(ctx context.Context, p corepm.Placement) error {
	parent := filepath.Dir(p.Path)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return corepm.NewError(corepm.ErrMaterializeFailed, "materialize.workspace", p.Path, err)
	}

	rel, err := filepath.Rel(parent, p.WorkspaceSource)
	if err != nil {
		rel = p.WorkspaceSource
	}

	stagingLink := filepath.Join(parent, ".staging-"+uuid.NewString())
	if err := os.Symlink(rel, stagingLink); err != nil {
		if !isUnsupportedSymlinkOS(err) {
			return corepm.NewError(corepm.ErrMaterializeFailed, "materialize.workspace", p.Path, err)
		}
		if err := writeDegradedLinkFile(stagingLink, rel); err != nil {
			return corepm.NewError(corepm.ErrMaterializeFailed, "materialize.workspace", p.Path, err)
		}
	}

	if err := m.swap(p.Path, stagingLink); err != nil {
		os.Remove(stagingLink)
		return corepm.NewError(corepm.ErrMaterializeFailed, "materialize.workspace", p.Path, err)
	}
	return nil
}

func writeDegradedLinkFile(path, target string) error {
	return os.WriteFile(path, []byte(target), 0o644)
}
