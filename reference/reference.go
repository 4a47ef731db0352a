package reference

import (
	"errors"
	"fmt"
	"strings"
)

// NameTotalLengthMax mirrors npm's own registry-enforced package name
// length cap (214, minus room for a scope).
const NameTotalLengthMax = 214

var (
	// ErrReferenceInvalidFormat is returned when a "name[@version]" string
	// does not match ReferenceRegexp.
	ErrReferenceInvalidFormat = errors.New("reference: invalid reference format")

	// ErrNameEmpty is returned for an empty package name.
	ErrNameEmpty = errors.New("reference: package name must have at least one component")

	// ErrNameTooLong is returned when a name exceeds NameTotalLengthMax.
	ErrNameTooLong = fmt.Errorf("reference: package name must not be more than %d characters", NameTotalLengthMax)

	// ErrVersionInvalidFormat is returned when a version string does not
	// match VersionRegexp.
	ErrVersionInvalidFormat = errors.New("reference: invalid version format")
)

// Reference is a parsed "name[@version]" identifier, as found in a
// lockfile's dependency edges (§6: "dependencies (name -> version)").
type Reference interface {
	// String returns the full reference, e.g. "@scope/name@1.2.3".
	String() string
	// Name returns the package name, including its scope if any.
	Name() string
}

// Versioned is a Reference that also carries a version.
type Versioned interface {
	Reference
	Version() string
}

// Parse parses s as a "name[@version]" reference.
func Parse(s string) (Reference, error) {
	matches := ReferenceRegexp.FindStringSubmatch(s)
	if matches == nil {
		if s == "" {
			return nil, ErrNameEmpty
		}
		return nil, ErrReferenceInvalidFormat
	}

	name := matches[1]
	if len(name) > NameTotalLengthMax {
		return nil, ErrNameTooLong
	}

	if matches[2] == "" {
		return named(name), nil
	}
	return versioned{name: name, version: matches[2]}, nil
}

// ParseVersioned parses s and requires it to carry a version.
func ParseVersioned(s string) (Versioned, error) {
	ref, err := Parse(s)
	if err != nil {
		return nil, err
	}
	v, ok := ref.(Versioned)
	if !ok {
		return nil, fmt.Errorf("reference: %q has no version", s)
	}
	return v, nil
}

// IsValidName reports whether name is a syntactically valid (possibly
// scoped) package name.
func IsValidName(name string) bool {
	return anchoredNameRegexp.MatchString(name) && len(name) <= NameTotalLengthMax
}

// IsValidVersion reports whether version is a syntactically valid version
// string.
func IsValidVersion(version string) bool {
	return anchoredVersionRegexp.MatchString(version)
}

// SplitScope splits a package name into its scope (without the leading
// "@", empty if unscoped) and unscoped component.
func SplitScope(name string) (scope, component string) {
	i := strings.IndexByte(name, '/')
	if i < 0 || name[0] != '@' {
		return "", name
	}
	return name[1:i], name[i+1:]
}

type named string

func (n named) String() string { return string(n) }
func (n named) Name() string   { return string(n) }

type versioned struct {
	name    string
	version string
}

func (v versioned) String() string  { return v.name + "@" + v.version }
func (v versioned) Name() string    { return v.name }
func (v versioned) Version() string { return v.version }
