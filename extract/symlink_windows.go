//go:build windows

package extract

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// isUnsupportedSymlink reports whether err is Windows' ERROR_PRIVILEGE_NOT_HELD,
// returned when the process lacks SeCreateSymbolicLinkPrivilege (the common
// case outside Developer Mode or an elevated prompt).
func isUnsupportedSymlink(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	return errors.Is(linkErr.Err, windows.ERROR_PRIVILEGE_NOT_HELD)
}
