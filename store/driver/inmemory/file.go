package inmemory

import (
	"bytes"
	"errors"
	"io"
	"path"
	"sort"
	"strings"
	"time"
)

var (
	errNotExists = errors.New("inmemory: path does not exist")
	errIsNotDir  = errors.New("inmemory: not a directory")
	errIsDir     = errors.New("inmemory: is a directory")
)

// normalize ensures p is absolute and has no trailing slash (except root).
func normalize(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = path.Clean(p)
	return p
}

// pathEntry is either a *dir or a *file.
type pathEntry interface {
	path() string
	isdir() bool
	modtime() time.Time
}

type common struct {
	p   string
	mod time.Time
}

func (c common) path() string      { return c.p }
func (c common) modtime() time.Time { return c.mod }

// dir is a directory node in the in-memory tree.
type dir struct {
	common
	children map[string]pathEntry
}

func (d *dir) isdir() bool { return true }

// child returns the direct child named name, or nil.
func (d *dir) child(name string) pathEntry {
	if d.children == nil {
		return nil
	}
	return d.children[name]
}

func (d *dir) add(name string, e pathEntry) {
	if d.children == nil {
		d.children = make(map[string]pathEntry)
	}
	d.children[name] = e
}

func (d *dir) remove(name string) {
	delete(d.children, name)
}

// find walks from d to the node at the given normalized absolute path,
// returning the deepest entry reached. If the full path is not found, the
// returned entry's path() will not equal the requested path — callers
// compare found.path() != normalized to detect a miss, matching the
// contract the driver relies on.
func (d *dir) find(normalized string) pathEntry {
	if normalized == d.p {
		return d
	}

	rel := strings.TrimPrefix(normalized, d.p)
	rel = strings.TrimPrefix(rel, "/")
	parts := strings.Split(rel, "/")

	var cur pathEntry = d
	for _, part := range parts {
		if part == "" {
			continue
		}
		curDir, ok := cur.(*dir)
		if !ok {
			return cur
		}
		next := curDir.child(part)
		if next == nil {
			return cur
		}
		cur = next
	}
	return cur
}

// mkfile creates (or truncates-in-place, if it already exists as a file)
// the file at normalized, creating any missing parent directories.
func (d *dir) mkfile(normalized string) (*file, error) {
	dirPath, name := path.Split(normalized)
	dirPath = strings.TrimSuffix(dirPath, "/")
	if dirPath == "" {
		dirPath = "/"
	}

	parent, err := d.mkdirAll(dirPath)
	if err != nil {
		return nil, err
	}

	if existing := parent.child(name); existing != nil {
		if f, ok := existing.(*file); ok {
			return f, nil
		}
		return nil, errIsDir
	}

	f := &file{common: common{p: normalized, mod: time.Now()}}
	parent.add(name, f)
	return f, nil
}

// mkdirAll returns the *dir at normalized, creating it and any missing
// ancestors.
func (d *dir) mkdirAll(normalized string) (*dir, error) {
	if normalized == d.p {
		return d, nil
	}

	rel := strings.TrimPrefix(normalized, d.p)
	rel = strings.TrimPrefix(rel, "/")
	parts := strings.Split(rel, "/")

	cur := d
	built := d.p
	for _, part := range parts {
		if part == "" {
			continue
		}
		built = normalize(path.Join(built, part))
		next := cur.child(part)
		if next == nil {
			nd := &dir{common: common{p: built, mod: time.Now()}}
			cur.add(part, nd)
			cur = nd
			continue
		}
		nd, ok := next.(*dir)
		if !ok {
			return nil, errIsNotDir
		}
		cur = nd
	}
	return cur, nil
}

// list returns the direct children of the directory at normalized.
func (d *dir) list(normalized string) ([]string, error) {
	found := d.find(normalized)
	if found == nil || found.path() != normalized {
		return nil, errNotExists
	}
	target, ok := found.(*dir)
	if !ok {
		return nil, errIsNotDir
	}

	entries := make([]string, 0, len(target.children))
	for name := range target.children {
		entries = append(entries, path.Join(normalized, name))
	}
	sort.Strings(entries)
	return entries, nil
}

// move relocates the entry at src to dst, creating dst's parent as needed.
func (d *dir) move(src, dst string) error {
	srcDirPath, srcName := path.Split(src)
	srcDirPath = strings.TrimSuffix(srcDirPath, "/")
	if srcDirPath == "" {
		srcDirPath = "/"
	}

	srcParentEntry := d.find(srcDirPath)
	if srcParentEntry == nil || srcParentEntry.path() != srcDirPath {
		return errNotExists
	}
	srcParent, ok := srcParentEntry.(*dir)
	if !ok {
		return errIsNotDir
	}

	entry := srcParent.child(srcName)
	if entry == nil {
		return errNotExists
	}

	dstDirPath, dstName := path.Split(dst)
	dstDirPath = strings.TrimSuffix(dstDirPath, "/")
	if dstDirPath == "" {
		dstDirPath = "/"
	}

	dstParent, err := d.mkdirAll(dstDirPath)
	if err != nil {
		return err
	}

	srcParent.remove(srcName)
	reparent(entry, normalize(path.Join(dst)))
	dstParent.add(dstName, entry)
	return nil
}

// reparent rewrites the path of e (and, recursively, its children) after a
// move.
func reparent(e pathEntry, newPath string) {
	switch v := e.(type) {
	case *file:
		v.p = newPath
	case *dir:
		v.p = newPath
		for name, child := range v.children {
			reparent(child, normalize(path.Join(newPath, name)))
		}
	}
}

// delete removes the entry at normalized.
func (d *dir) delete(normalized string) error {
	if normalized == d.p {
		return errNotExists
	}

	dirPath, name := path.Split(normalized)
	dirPath = strings.TrimSuffix(dirPath, "/")
	if dirPath == "" {
		dirPath = "/"
	}

	parentEntry := d.find(dirPath)
	if parentEntry == nil || parentEntry.path() != dirPath {
		return errNotExists
	}
	parent, ok := parentEntry.(*dir)
	if !ok {
		return errIsNotDir
	}

	if parent.child(name) == nil {
		return errNotExists
	}
	parent.remove(name)
	return nil
}

// file is a leaf node holding bytes.
type file struct {
	common
	data []byte
}

func (f *file) isdir() bool { return false }

func (f *file) truncate() {
	f.data = f.data[:0]
	f.mod = time.Now()
}

func (f *file) sectionReader(offset int64) io.Reader {
	if offset >= int64(len(f.data)) {
		return bytes.NewReader(nil)
	}
	return bytes.NewReader(f.data[offset:])
}

// WriteAt writes p into the file's buffer starting at offset, growing the
// buffer as needed. It never leaves a gap: callers only ever write at 0 or
// at the current end, matching how the Writer and PutContent paths use it.
func (f *file) WriteAt(p []byte, offset int64) (int, error) {
	end := offset + int64(len(p))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	n := copy(f.data[offset:end], p)
	f.mod = time.Now()
	return n, nil
}
