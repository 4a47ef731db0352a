//go:build !linux && !darwin

package materialize

import "errors"

// cloneDir is unsupported on platforms with no reflink or clonefile
// equivalent wired in (including windows); probeTier still selects
// LinkClone for a scope until the first attempt there fails and demotes
// it to hardlink.
func cloneDir(src, dst string) error {
	return errors.ErrUnsupported
}
