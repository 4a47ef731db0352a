package binlink

import "os"

// trioExts are the sibling launcher files written when a plain symlink
// shim isn't usable: a POSIX shell script (extensionless, picked up by
// git-bash/MSYS/Cygwin), a cmd.exe batch launcher, and a PowerShell
// launcher, mirroring npm's own cmd-shim convention.
var trioExts = []string{"", ".cmd", ".ps1"}

// writeShim creates a shim at path invoking target. It always tries a
// real symlink first — cheap, and correct on every platform that
// allows it, including Windows in Developer Mode or an elevated
// prompt — and only falls back to the three-launcher-file trio when
// os.Symlink fails for a reason that indicates the platform forbids
// symlinks outright, the same probe-not-assume approach the extract
// package uses for tarball symlink entries.
func writeShim(path, target string) error {
	err := os.Symlink(target, path)
	if err == nil {
		return nil
	}
	if !isUnsupportedSymlinkOS(err) {
		return err
	}
	return writeShimTrio(path, target)
}

func writeShimTrio(path, target string) error {
	if err := os.WriteFile(path, []byte(shScript(target)), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path+".cmd", []byte(cmdScript(target)), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(path+".ps1", []byte(ps1Script(target)), 0o644); err != nil {
		return err
	}
	return nil
}

// swapShim renames every file writeShim may have produced for staging
// over its counterpart at final. Both the symlink path and the trio
// path write under the bare staging name (plus, for the trio, its two
// extensions), so renaming all of trioExts covers either case: the
// extras are simply no-ops when the corresponding staging file was
// never created (os.Rename on a nonexistent source is ignored here
// since writeShim already guarantees every file it promises exists).
func swapShim(staging, final string) error {
	if err := os.Rename(staging, final); err != nil {
		return err
	}
	for _, ext := range trioExts[1:] {
		if _, err := os.Lstat(staging + ext); err != nil {
			continue
		}
		if err := os.Rename(staging+ext, final+ext); err != nil {
			return err
		}
	}
	return nil
}

// removeShimFiles removes every file writeShim may have created for a
// failed or superseded shim attempt.
func removeShimFiles(path string) {
	for _, ext := range trioExts {
		os.Remove(path + ext)
	}
}
