// Package driver defines the interface the store's content-addressed CAS
// uses to talk to its underlying byte storage, and a handful of shared
// implementations (base bounds-checking, a local filesystem backend, and an
// in-memory backend for tests).
//
// Only one backend ever runs in a given process — the local filesystem one —
// but keeping the boundary as an interface lets the store's tests swap in
// the in-memory driver without touching disk, and leaves room for a remote
// cache-warming backend later without reshaping the store package.
package driver

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"
)

// StorageDriver is the minimal filesystem-like interface the store needs
// from whatever is holding its bytes.
type StorageDriver interface {
	// Name returns the human-readable name of the driver, for logging.
	Name() string

	// GetContent retrieves the content stored at "path" as a []byte. This
	// should only be used for small objects (manifests, not tarballs).
	GetContent(ctx context.Context, path string) ([]byte, error)

	// PutContent stores content at "path", replacing anything already
	// there. Implementations must make this appear atomic to readers.
	PutContent(ctx context.Context, path string, content []byte) error

	// Reader retrieves an io.ReadCloser for the content stored at "path"
	// with a given byte offset.
	Reader(ctx context.Context, path string, offset int64) (io.ReadCloser, error)

	// Writer returns a FileWriter which stores the content written to it
	// at "path" once Commit is called.
	Writer(ctx context.Context, path string, append bool) (FileWriter, error)

	// Stat retrieves the FileInfo for the given path.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// List returns the paths of the direct descendants of the given path.
	List(ctx context.Context, path string) ([]string, error)

	// Move moves an object stored at sourcePath to destPath, removing the
	// original object. Implementations should make this atomic when the
	// two paths are on the same physical volume.
	Move(ctx context.Context, sourcePath, destPath string) error

	// Delete recursively deletes everything stored at "path".
	Delete(ctx context.Context, path string) error

	// Walk traverses everything under "path", calling f on each entry.
	Walk(ctx context.Context, path string, f WalkFn, options ...func(*WalkOptions)) error
}

// FileWriter is a handle to an in-progress write. Exactly one of Commit or
// Cancel must be called before discarding it.
type FileWriter interface {
	io.WriteCloser

	// Size returns the number of bytes written so far.
	Size() int64

	// Cancel discards the write, removing any partial data.
	Cancel(ctx context.Context) error

	// Commit flushes and finalizes the write, making it visible to
	// readers at the path the writer was opened for.
	Commit(ctx context.Context) error
}

// FileInfo describes a file or directory entry.
type FileInfo interface {
	// Path returns the path of this entry, relative to the driver root.
	Path() string

	// Size returns the size in bytes. Meaningless for directories.
	Size() int64

	// ModTime returns the last-modified time.
	ModTime() time.Time

	// IsDir reports whether the entry is a directory.
	IsDir() bool
}

// FileInfoFields is the plain-data backing of FileInfoInternal, exported
// so drivers can build one without a constructor.
type FileInfoFields struct {
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// FileInfoInternal is the standard FileInfo implementation backed directly
// by a FileInfoFields value, for drivers with no richer OS-level FileInfo
// of their own (the in-memory driver; the filesystem driver uses os.FileInfo
// instead).
type FileInfoInternal struct {
	FileInfoFields
}

var _ FileInfo = FileInfoInternal{}

func (fi FileInfoInternal) Path() string       { return fi.FileInfoFields.Path }
func (fi FileInfoInternal) Size() int64        { return fi.FileInfoFields.Size }
func (fi FileInfoInternal) ModTime() time.Time { return fi.FileInfoFields.ModTime }
func (fi FileInfoInternal) IsDir() bool        { return fi.FileInfoFields.IsDir }

// WalkOptions augments a Walk call.
type WalkOptions struct {
	// StartAfterHint is a path the walk may use to skip entries known to
	// sort before it. It is a hint: implementations using WalkFallback
	// honor it, others may ignore it.
	StartAfterHint string
}

// WithStartAfterHint returns a WalkOptions mutator setting StartAfterHint.
func WithStartAfterHint(hint string) func(*WalkOptions) {
	return func(o *WalkOptions) {
		o.StartAfterHint = hint
	}
}

// PathComponentRegexp is the expression each path component must match.
var PathComponentRegexp = regexp.MustCompile(`[a-zA-Z0-9._-]+`)

// PathRegexp is the expression a driver path must match: absolute, with at
// least one component.
var PathRegexp = regexp.MustCompile(`^(/[a-zA-Z0-9._-]+)+$`)

// PathNotFoundError is returned when operating on a path that doesn't exist.
type PathNotFoundError struct {
	Path string
}

func (e PathNotFoundError) Error() string {
	return fmt.Sprintf("driver: path not found: %s", e.Path)
}

// InvalidPathError is returned when a path fails PathRegexp.
type InvalidPathError struct {
	Path string
}

func (e InvalidPathError) Error() string {
	return fmt.Sprintf("driver: invalid path: %s", e.Path)
}

// InvalidOffsetError is returned when a read or write offset is invalid for
// the addressed path.
type InvalidOffsetError struct {
	Path   string
	Offset int64
}

func (e InvalidOffsetError) Error() string {
	return fmt.Sprintf("driver: invalid offset %d for path: %s", e.Offset, e.Path)
}
