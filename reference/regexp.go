// Package reference parses and validates the two identifiers a lockfile
// entry is keyed and addressed by: a package name (optionally scoped, e.g.
// "@scope/name") and a version string. The grammar and regexp-builder idiom
// below (literal/optional/repeated/anchored combinators composed into named
// productions) is carried over from the teacher's Docker image-reference
// grammar, retargeted at npm's naming rules instead of Docker's.
//
// Grammar
//
//	reference     := name [ "@" version ]
//	name          := [ scope "/" ] component
//	scope         := "@" component
//	component     := [a-z0-9] [a-z0-9._-]*
//	version       := [0-9A-Za-z.+-]+
package reference

import "regexp"

const (
	// componentPat matches one unscoped name or scope component: npm
	// requires names to start with a lowercase letter or digit, and
	// allows dots, dashes, underscores thereafter.
	componentPat = `[a-z0-9](?:[a-z0-9._-]*[a-z0-9])?`

	// scopePat matches the "@scope" prefix of a scoped package name.
	scopePat = `@` + componentPat

	// versionPat matches a version string loosely: numeric/alpha dot
	// segments with optional pre-release/build metadata, permissive
	// enough to carry exact pins, dist-tags resolved upstream, and
	// workspace protocol versions without re-implementing full semver.
	versionPat = `[0-9A-Za-z][0-9A-Za-z.+_-]*`

	// namePat matches a (possibly scoped) package name, non-capturing so
	// it can be embedded as a single capture group in ReferenceRegexp.
	namePat = `(?:` + scopePat + `/)?` + componentPat
)

var (
	// NameRegexp matches a (possibly scoped) package name.
	NameRegexp = regexp.MustCompile(namePat)

	// anchoredNameRegexp is used to validate a standalone name value.
	anchoredNameRegexp = regexp.MustCompile(anchored(namePat))

	// VersionRegexp matches a valid version string.
	VersionRegexp = regexp.MustCompile(versionPat)

	// anchoredVersionRegexp validates a standalone version value.
	anchoredVersionRegexp = regexp.MustCompile(anchored(versionPat))

	referencePat = anchored(capture(namePat), optional(literal("@"), capture(versionPat)))

	// ReferenceRegexp is the full supported "name[@version]" format, with
	// capturing groups for name and version.
	ReferenceRegexp = regexp.MustCompile(referencePat)
)

func literal(s string) string {
	re := regexp.MustCompile(regexp.QuoteMeta(s))
	if _, complete := re.LiteralPrefix(); !complete {
		panic("must be a literal")
	}
	return re.String()
}

func expression(res ...string) string {
	var s string
	for _, re := range res {
		s += re
	}
	return s
}

func optional(res ...string) string {
	return group(expression(res...)) + `?`
}

func group(res ...string) string {
	return `(?:` + expression(res...) + `)`
}

func capture(res ...string) string {
	return `(` + expression(res...) + `)`
}

func anchored(res ...string) string {
	return `^` + expression(res...) + `$`
}
