package reference

import "path"

// ScopePath returns the on-disk path components a scoped package name
// materializes under, e.g. "@scope/name" -> ["@scope", "name"], and an
// unscoped "name" -> ["name"]. The Materializer and BinLinker use this to
// build "node_modules/@scope/name" rather than a single flattened
// directory, per §6 ("scoped packages live under @scope/<name>").
func ScopePath(name string) []string {
	scope, component := SplitScope(name)
	if scope == "" {
		return []string{component}
	}
	return []string{"@" + scope, component}
}

// JoinScopePath joins root with the path components of a (possibly scoped)
// package name.
func JoinScopePath(root, name string) string {
	return path.Join(append([]string{root}, ScopePath(name)...)...)
}
