package materialize

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/voltpack/corepm/store"
)

// hardlinkManifest recreates a package's tree under stagingPath by
// hardlinking each manifest entry back to its pool file, falling back to
// a real symlink for manifest entries recorded as symlinks (never
// degraded when the destination has a real filesystem, which hardlink
// and clone both require). It fails outright on the first error — most
// commonly EXDEV when the store and the project live on different
// volumes — leaving the caller to demote to the copy tier.
// hardlinkManifest returns the number of manifest entries it placed
// before either finishing or hitting an error, so the caller can report
// §8's file-granular "materialize.linked" count rather than one count
// per package.
func (m *Materializer) hardlinkManifest(ctx context.Context, manifest *store.Manifest, stagingPath string) (int, error) {
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

		srcRel, err := m.store.FilePoolPath(entry.Digest)
		if err != nil {
			return placed, err
		}
		srcOS, ok := m.store.FSPath(srcRel)
		if !ok {
			return placed, fs.ErrInvalid
		}

		if err := os.Link(srcOS, dst); err != nil {
			return placed, err
		}
		placed++
		if entry.Degraded {
			continue
		}
		if entry.Mode&0o111 != 0 {
			os.Chmod(dst, fs.FileMode(entry.Mode))
		}
	}
	return placed, nil
}
