package materialize

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/voltpack/corepm/store"
)

// copyManifest recreates a package's tree under stagingPath by streaming
// each manifest entry's pool content through the portable Store API.
// This is the correctness floor every platform supports: no FSRoot, no
// filesystem-specific syscall, just Store.OpenFile followed by a byte
// copy. It is also what inmemory-backed tests exercise, since that
// driver never satisfies FSPath and so never reaches the clone or
// hardlink tiers.
// copyManifest returns the number of manifest entries it placed, the
// same file-granular count hardlinkManifest reports, so the copy tier's
// §8 "materialize.copied" figure stays consistent with the hardlink
// tier's "materialize.linked" one.
func (m *Materializer) copyManifest(ctx context.Context, manifest *store.Manifest, stagingPath string) (int, error) {
	placed := 0
	for _, entry := range manifest.Files {
		dst := filepath.Join(stagingPath, entry.Path)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return placed, err
		}

		if entry.Kind == store.EntrySymlink {
			if err := os.Symlink(entry.Target, dst); err != nil {
				return placed, err
			}
			placed++
			continue
		}

		if err := m.copyFile(ctx, entry, dst); err != nil {
			return placed, err
		}
		placed++
	}
	return placed, nil
}

func (m *Materializer) copyFile(ctx context.Context, entry store.ManifestEntry, dst string) error {
	r, err := m.store.OpenFile(ctx, entry.Digest)
	if err != nil {
		return err
	}
	defer r.Close()

	mode := fs.FileMode(entry.Mode)
	if mode == 0 {
		mode = 0o644
	}

	w, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer w.Close()

	_, err = io.Copy(w, r)
	return err
}
