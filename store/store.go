package store

import (
	"context"
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"

	"github.com/voltpack/corepm"
	"github.com/voltpack/corepm/internal/uuid"
	storedriver "github.com/voltpack/corepm/store/driver"
	"github.com/voltpack/corepm/store/driver/factory"
	_ "github.com/voltpack/corepm/store/driver/filesystem" // registers the "filesystem" factory
	_ "github.com/voltpack/corepm/store/driver/inmemory"   // registers the "inmemory" factory
)

// Store is the installer's on-disk content-addressed store: a file pool
// keyed by per-file digest, a package-tarball pool keyed by tarball digest,
// and the staging area both are published through. Every method is safe
// for concurrent use; callers coordinate deduplication of in-flight work
// themselves (the fetch package does this with its own table keyed by
// digest).
type Store struct {
	driver storedriver.StorageDriver
	pm     *pathMapper
}

// Option configures a Store at construction time.
type Option func(*options)

type options struct {
	driverName string
	params     map[string]interface{}
}

// WithDriver selects a registered store/driver/factory backend by name.
// The default is "filesystem"; tests typically pass WithDriver("inmemory").
func WithDriver(name string, params map[string]interface{}) Option {
	return func(o *options) {
		o.driverName = name
		o.params = params
	}
}

// New constructs a Store rooted at root on the local filesystem, or at an
// alternate backend selected via WithDriver.
func New(ctx context.Context, root string, opts ...Option) (*Store, error) {
	o := &options{
		driverName: "filesystem",
		params:     map[string]interface{}{"rootdirectory": root},
	}
	for _, opt := range opts {
		opt(o)
	}

	d, err := factory.Create(ctx, o.driverName, o.params)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", root, err)
	}

	return &Store{driver: d, pm: &pathMapper{root: "/"}}, nil
}

// fsRooter is implemented by drivers with a real OS directory underneath
// (today, only the filesystem driver). Drivers without one (inmemory,
// used by tests) leave extract and materialize to fall back to the
// portable Store API instead of raw OS calls.
type fsRooter interface {
	FSRoot() string
}

// FSPath translates a store-relative path (as returned by NewStaging or
// PackageDir) into a real OS path, when the underlying driver exposes
// one. It returns ok=false for drivers with no filesystem underneath.
func (s *Store) FSPath(storePath string) (resolved string, ok bool) {
	r, ok := s.driver.(fsRooter)
	if !ok {
		return "", false
	}
	return r.FSRoot() + storePath, true
}

// NewStaging returns a fresh empty directory path under the store's tmp/
// area, along with a cleanup func that removes it. The caller (the
// Extractor) writes a package's files there before CommitPackage publishes
// the result atomically.
func (s *Store) NewStaging(ctx context.Context) (path string, cleanup func(context.Context) error, err error) {
	root, err := s.pm.path(tmpRootPathSpec{})
	if err != nil {
		return "", nil, err
	}

	p := root + "/" + uuid.NewString()
	if err := s.driver.PutContent(ctx, p+"/.keep", nil); err != nil {
		return "", nil, corepm.NewError(corepm.ErrStoreBusy, "store.stage", p, err)
	}

	cleanup = func(ctx context.Context) error {
		return s.driver.Delete(ctx, p)
	}
	return p, cleanup, nil
}

// HasPackage reports whether a package tarball identified by dgst has
// already been extracted into the store.
func (s *Store) HasPackage(ctx context.Context, dgst digest.Digest) (bool, error) {
	p, err := s.pm.path(pkgManifestPathSpec{digest: dgst})
	if err != nil {
		return false, err
	}
	return s.pathExists(ctx, p)
}

// PackageDir returns the absolute store path of the extracted package
// directory for dgst, touching its last-access marker. Materialize callers
// use this as the clone/hardlink/copy source.
func (s *Store) PackageDir(ctx context.Context, dgst digest.Digest) (string, error) {
	p, err := s.pm.path(pkgDirPathSpec{digest: dgst})
	if err != nil {
		return "", err
	}
	if err := s.touchLastAccess(ctx, dgst); err != nil {
		return "", err
	}
	return p, nil
}

// CommitPackage publishes stagingDir (as returned by NewStaging, already
// populated with a package's extracted file tree) as the package entry for
// dgst, along with its manifest. The move is atomic on backends where
// staging and the destination share a volume (always true for the local
// filesystem driver).
func (s *Store) CommitPackage(ctx context.Context, dgst digest.Digest, stagingDir string, manifest *Manifest) error {
	dir, err := s.pm.path(pkgDirPathSpec{digest: dgst})
	if err != nil {
		return err
	}

	if ok, err := s.pathExists(ctx, dir); err != nil {
		return err
	} else if ok {
		// Another caller already published this digest; content-addressed
		// storage means this is always safe to treat as a no-op.
		return nil
	}

	if err := s.driver.Delete(ctx, stagingDir+"/.keep"); err != nil {
		if _, ok := err.(storedriver.PathNotFoundError); !ok {
			return err
		}
	}

	if err := s.driver.Move(ctx, stagingDir, dir); err != nil {
		return corepm.NewError(corepm.ErrStoreBusy, "store.commit", dir, err)
	}

	manifestPath, err := s.pm.path(pkgManifestPathSpec{digest: dgst})
	if err != nil {
		return err
	}

	encoded, err := manifest.encode()
	if err != nil {
		return err
	}

	if err := s.driver.PutContent(ctx, manifestPath, encoded); err != nil {
		return fmt.Errorf("store: write manifest for %s: %w", dgst, err)
	}

	return s.touchLastAccess(ctx, dgst)
}

// Manifest returns the recorded file manifest for an already-committed
// package.
func (s *Store) Manifest(ctx context.Context, dgst digest.Digest) (*Manifest, error) {
	p, err := s.pm.path(pkgManifestPathSpec{digest: dgst})
	if err != nil {
		return nil, err
	}

	content, err := s.driver.GetContent(ctx, p)
	if err != nil {
		return nil, err
	}

	return decodeManifest(content)
}

// FilePoolPath returns the store-relative path of the pooled file entry
// for dgst, for callers (materialize) that need a real OS path — via
// FSPath — to hardlink or clone an individual file directly rather than
// going through LinkFile's portable driver copy.
func (s *Store) FilePoolPath(dgst digest.Digest) (string, error) {
	return s.pm.path(filePoolPathSpec{digest: dgst})
}

// HasFile reports whether a file with the given content digest is already
// present in the file pool.
func (s *Store) HasFile(ctx context.Context, dgst digest.Digest) (bool, error) {
	p, err := s.pm.path(filePoolPathSpec{digest: dgst})
	if err != nil {
		return false, err
	}
	return s.pathExists(ctx, p)
}

// PutFile ingests r into the file pool under dgst, verifying the bytes
// actually hash to dgst before publishing. Ingesting the same digest twice
// concurrently is safe: the loser's write lands in tmp/ and is discarded.
func (s *Store) PutFile(ctx context.Context, dgst digest.Digest, r io.Reader) error {
	if ok, err := s.HasFile(ctx, dgst); err != nil {
		return err
	} else if ok {
		_, err := io.Copy(io.Discard, r)
		return err
	}

	tmpRoot, err := s.pm.path(tmpRootPathSpec{})
	if err != nil {
		return err
	}
	tmpPath := tmpRoot + "/" + uuid.NewString()

	digester := dgst.Algorithm().Digester()
	tee := io.TeeReader(r, digester.Hash())

	w, err := s.driver.Writer(ctx, tmpPath, false)
	if err != nil {
		return corepm.NewError(corepm.ErrStoreBusy, "store.stage", tmpPath, err)
	}

	if _, err := io.Copy(w, tee); err != nil {
		w.Cancel(ctx)
		return err
	}
	if err := w.Commit(ctx); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	if actual := digester.Digest(); actual != dgst {
		s.driver.Delete(ctx, tmpPath)
		return &IntegrityError{Expected: dgst.String(), Actual: actual.String()}
	}

	finalPath, err := s.pm.path(filePoolPathSpec{digest: dgst})
	if err != nil {
		return err
	}

	if err := s.driver.Move(ctx, tmpPath, finalPath); err != nil {
		return corepm.NewError(corepm.ErrStoreBusy, "store.publish", finalPath, err)
	}
	return nil
}

// OpenFile returns a reader over the pooled file content for dgst.
func (s *Store) OpenFile(ctx context.Context, dgst digest.Digest) (io.ReadCloser, error) {
	p, err := s.pm.path(filePoolPathSpec{digest: dgst})
	if err != nil {
		return nil, err
	}
	return s.driver.Reader(ctx, p, 0)
}

// LinkFile copies the pooled file at dgst to destPath through the driver,
// on every driver; it never creates a hardlink. OS-level hardlinks are
// made only by the materialize package, which has filesystem access the
// driver interface doesn't expose.
func (s *Store) LinkFile(ctx context.Context, dgst digest.Digest, destPath string) error {
	r, err := s.OpenFile(ctx, dgst)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := s.driver.Writer(ctx, destPath, false)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Cancel(ctx)
		return err
	}
	if err := w.Commit(ctx); err != nil {
		return err
	}
	return w.Close()
}

func (s *Store) pathExists(ctx context.Context, p string) (bool, error) {
	if _, err := s.driver.Stat(ctx, p); err != nil {
		if _, ok := err.(storedriver.PathNotFoundError); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IntegrityError reports a digest computed over fetched or extracted bytes
// that does not match what was declared.
type IntegrityError struct {
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("store: integrity mismatch: expected %s, got %s", e.Expected, e.Actual)
}
