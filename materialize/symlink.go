//go:build !windows

package materialize

import (
	"errors"
	"os"
	"syscall"
)

// isUnsupportedSymlinkOS reports whether err indicates the underlying
// filesystem or OS forbids symlink creation entirely, mirroring the
// extract package's own degradation check for the same reason: a
// handful of restrictive filesystems surface EPERM or ENOTSUP here
// instead of succeeding.
func isUnsupportedSymlinkOS(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	return errors.Is(linkErr.Err, syscall.EPERM) || errors.Is(linkErr.Err, syscall.ENOTSUP)
}
