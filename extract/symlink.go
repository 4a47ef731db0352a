//go:build !windows

package extract

import (
	"errors"
	"os"
	"syscall"
)

// isUnsupportedSymlink reports whether err indicates the underlying
// filesystem or OS forbids symlink creation entirely, as opposed to some
// other failure (missing parent directory, disk full) that should
// propagate normally. A small number of restrictive filesystems (some
// network mounts, certain container overlay configurations) surface
// EPERM or ENOTSUP here.
func isUnsupportedSymlink(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	return errors.Is(linkErr.Err, syscall.EPERM) || errors.Is(linkErr.Err, syscall.ENOTSUP)
}
