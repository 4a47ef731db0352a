//go:build windows

package materialize

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// isUnsupportedSymlinkOS reports whether err is Windows'
// ERROR_PRIVILEGE_NOT_HELD, returned when the process lacks
// SeCreateSymbolicLinkPrivilege.
func isUnsupportedSymlinkOS(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	return errors.Is(linkErr.Err, windows.ERROR_PRIVILEGE_NOT_HELD)
}
