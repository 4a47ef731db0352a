// Package extract implements the Extractor (§4.3): it consumes a
// tarball byte stream, publishes each regular file's content into the
// Store's file pool, records a manifest of the package's tree, and
// stages the tree itself for the Store to commit atomically. Staged
// regular files are byte copies of their pool entries (Store.LinkFile);
// they are not hardlinked to the pool.
//
// It follows the teacher's archive-handling idiom of decoding directly
// off an io.Reader with klauspost/compress's gzip (the teacher's own
// indirect dependency, pulled in by its OCI tooling) rather than stdlib
// compress/gzip, and uses opencontainers/go-digest the same way the rest
// of this module does.
package extract

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"github.com/opencontainers/go-digest"

	"github.com/voltpack/corepm"
	"github.com/voltpack/corepm/internal/dcontext"
	"github.com/voltpack/corepm/store"
)

// fileModeMask/execExtraBit are the §4.3 permission masks: the
// executable bit is preserved from the archive, every other write/group/
// other bit is stripped.
const (
	fileModeMask = 0o644
	execExtraBit = 0o111
)

// Extractor consumes tarball streams and publishes their contents into a
// Store.
type Extractor struct {
	store *store.Store

	packagesExtracted atomic.Int64
	filesIngested     atomic.Int64
}

// New constructs an Extractor backed by s.
func New(s *store.Store) *Extractor {
	return &Extractor{store: s}
}

// Stats reports activity counters for the run's Report.
type Stats struct {
	PackagesExtracted int
	FilesIngested     int
}

// Stats returns the counters accumulated since this Extractor was
// constructed. Safe to call while Extract calls are still in flight.
func (x *Extractor) Stats() Stats {
	return Stats{
		PackagesExtracted: int(x.packagesExtracted.Load()),
		FilesIngested:     int(x.filesIngested.Load()),
	}
}

// Extract decodes the gzip-compressed tarball read from r, stages its
// tree, and commits it into the Store under dgst. It is safe to call
// concurrently for distinct digests; concurrent calls for the same
// digest race harmlessly since Store.CommitPackage treats a second
// publish of the same digest as a no-op.
func (x *Extractor) Extract(ctx context.Context, dgst digest.Digest, r io.Reader) error {
	if has, err := x.store.HasPackage(ctx, dgst); err != nil {
		return corepm.NewError(corepm.ErrExtractFailed, "extract.extract", dgst.String(), err)
	} else if has {
		_, err := io.Copy(io.Discard, r)
		return err
	}

	log := dcontext.GetLoggerWithField(ctx, "digest", dgst.String())

	gz, err := gzip.NewReader(r)
	if err != nil {
		return corepm.NewError(corepm.ErrExtractFailed, "extract.extract", dgst.String(), fmt.Errorf("open gzip stream: %w", err))
	}
	defer gz.Close()

	stagingDir, cleanup, err := x.store.NewStaging(ctx)
	if err != nil {
		return corepm.WrapError(corepm.ErrExtractFailed, "extract.extract", dgst.String(), err)
	}

	// fsRoot is the real OS directory backing stagingDir, when the store
	// is running on the filesystem driver; it is used only for symlink
	// creation, the one operation the driver's StorageDriver interface
	// can't express. With no real filesystem underneath (the inmemory
	// driver, used by tests), symlinks degrade the same way they would
	// on a platform that forbids them.
	fsRoot, hasFSRoot := x.store.FSPath(stagingDir)

	manifest := store.NewManifest()

	entries := extractState{
		tr:         tar.NewReader(gz),
		stagingDir: stagingDir,
		fsRoot:     fsRoot,
		hasFSRoot:  hasFSRoot,
		manifest:   manifest,
	}

	if err := x.extractEntries(ctx, &entries); err != nil {
		cleanup(ctx)
		return err
	}

	if err := x.store.CommitPackage(ctx, dgst, stagingDir, manifest); err != nil {
		cleanup(ctx)
		return corepm.WrapError(corepm.ErrExtractFailed, "extract.extract", dgst.String(), err)
	}

	x.packagesExtracted.Add(1)
	log.Debug("extracted package")
	return nil
}

type extractState struct {
	tr         *tar.Reader
	stagingDir string
	fsRoot     string
	hasFSRoot  bool
	manifest   *store.Manifest
}

func (x *Extractor) extractEntries(ctx context.Context, st *extractState) error {
	for {
		hdr, err := st.tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return corepm.NewError(corepm.ErrExtractFailed, "extract.entries", "", err)
		}

		rel := stripLeadingDir(hdr.Name)
		if rel == "" {
			continue
		}
		target := path.Join(st.stagingDir, rel)

		switch hdr.Typeflag {
		case tar.TypeDir:
			// The driver's Writer creates parent directories on demand
			// (the filesystem driver's own Writer calls os.MkdirAll);
			// an otherwise-empty directory entry needs no action since
			// the materializer rebuilds directory structure from the
			// manifest's file paths.

		case tar.TypeReg, tar.TypeRegA:
			mode := fileMode(hdr.Mode)
			dgst, size, err := x.ingestFile(ctx, st.tr)
			if err != nil {
				return corepm.NewError(corepm.ErrExtractFailed, "extract.file", rel, err)
			}
			if err := x.store.LinkFile(ctx, dgst, target); err != nil {
				return corepm.NewError(corepm.ErrExtractFailed, "extract.file", rel, err)
			}
			st.manifest.Add(rel, dgst, mode, size)

		case tar.TypeSymlink:
			if err := x.writeSymlink(ctx, st, target, hdr.Linkname, rel); err != nil {
				return corepm.NewError(corepm.ErrExtractFailed, "extract.symlink", rel, err)
			}

		default:
			dcontext.GetLoggerWithField(ctx, "path", rel).Info("extract: skipping unsupported tar entry type")
		}
	}
}

// ingestFile streams a tar entry's content into the Store's file pool,
// returning its content digest and size. It reads the whole entry into
// memory and computes the digest from that buffer before calling PutFile
// (which verifies the digest again); the entry is not hashed while it
// streams to disk.
func (x *Extractor) ingestFile(ctx context.Context, r io.Reader) (digest.Digest, int64, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	dgst := digest.FromBytes(buf)
	if has, err := x.store.HasFile(ctx, dgst); err != nil {
		return "", 0, err
	} else if !has {
		if err := x.store.PutFile(ctx, dgst, bytes.NewReader(buf)); err != nil {
			return "", 0, err
		}
	}
	x.filesIngested.Add(1)
	return dgst, int64(len(buf)), nil
}

// writeSymlink creates a real symlink at target when the store exposes a
// real OS directory, falling back to recording the link target as an
// ordinary pooled file (§4.3's degradation path) otherwise — the same
// fallback used when os.Symlink itself fails because the platform
// forbids symlinks.
func (x *Extractor) writeSymlink(ctx context.Context, st *extractState, target, linkname, rel string) error {
	if st.hasFSRoot {
		fsTarget := path.Join(st.fsRoot, strings.TrimPrefix(target, st.stagingDir))
		if err := os.MkdirAll(path.Dir(fsTarget), 0o755); err != nil {
			return err
		}
		if err := os.Symlink(linkname, fsTarget); err == nil {
			st.manifest.AddSymlink(rel, linkname)
			return nil
		} else if !isUnsupportedSymlink(err) {
			return err
		}
	}

	dgst := digest.FromString(linkname)
	if err := x.store.PutFile(ctx, dgst, strings.NewReader(linkname)); err != nil {
		return err
	}
	if err := x.store.LinkFile(ctx, dgst, target); err != nil {
		return err
	}
	st.manifest.AddDegradedSymlink(rel, dgst, fileModeMask, int64(len(linkname)))
	return nil
}

// fileMode masks a tar entry's mode down to §4.3's allowed bits,
// preserving only the user-executable bit beyond the base file mode.
func fileMode(tarMode int64) uint32 {
	mode := uint32(fileModeMask)
	if tarMode&0o100 != 0 {
		mode |= execExtraBit
	}
	return mode
}

// stripLeadingDir removes a tarball's single implicit top-level
// directory (conventionally "package/"), returning "" for the directory
// entry itself.
func stripLeadingDir(name string) string {
	name = strings.TrimPrefix(name, "./")
	idx := strings.IndexByte(name, '/')
	if idx < 0 {
		return ""
	}
	rel := name[idx+1:]
	return strings.TrimSuffix(rel, "/")
}
