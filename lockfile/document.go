// Package lockfile parses a lockfile document (§6) into a Document, and
// replays a Document into a concrete install Plan without doing any
// version resolution (§4.4 LockfilePlan). It follows the teacher's
// yaml.v2-based config parsing idiom (configuration/parser.go), using
// yaml.MapSlice instead of a plain map so duplicate install paths — which
// a plain map would silently collapse — surface as a LockfileConflict.
package lockfile

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v2"

	"github.com/voltpack/corepm"
)

// RawEntry is one lockfile entry as it appears under "paths" or "packages".
type RawEntry struct {
	Name         string            `yaml:"name"`
	Version      string            `yaml:"version"`
	Resolved     string            `yaml:"resolved,omitempty"`
	Integrity    string            `yaml:"integrity,omitempty"`
	Dependencies map[string]string `yaml:"dependencies,omitempty"`
	Bin          map[string]string `yaml:"bin,omitempty"`
	OS           []string          `yaml:"os,omitempty"`
	CPU          []string          `yaml:"cpu,omitempty"`
	Link         bool              `yaml:"link,omitempty"`
}

// Document is the parsed top-level shape of a lockfile.
type Document struct {
	// Paths maps a project-relative install path to its entry. Order is
	// preserved and duplicate keys are detected, unlike a plain
	// map[string]RawEntry decode.
	Paths []PathEntry

	// Packages lists workspace member declarations
	// ("packages.<relative-workspace-path>"). A bare name with no value
	// is sufficient; this module never resolves or validates the
	// member's own manifest.
	Packages []string
}

// PathEntry pairs an install path with its entry, preserving document
// order for the duplicate-path check.
type PathEntry struct {
	Path  string
	Entry RawEntry
}

// rawDocument mirrors Document's YAML shape using yaml.MapSlice so
// Parse can detect duplicate keys before they collapse.
type rawDocument struct {
	Paths    yaml.MapSlice `yaml:"paths"`
	Packages yaml.MapSlice `yaml:"packages"`
}

// Parse decodes a lockfile document from r.
func Parse(r io.Reader) (*Document, error) {
	in, err := io.ReadAll(r)
	if err != nil {
		return nil, corepm.NewError(corepm.ErrLockfileParse, "lockfile.parse", "", err)
	}

	var raw rawDocument
	if err := yaml.Unmarshal(in, &raw); err != nil {
		return nil, corepm.NewError(corepm.ErrLockfileParse, "lockfile.parse", "", err)
	}

	doc := &Document{}
	seen := make(map[string]bool, len(raw.Paths))
	for _, item := range raw.Paths {
		p, ok := item.Key.(string)
		if !ok {
			return nil, corepm.NewError(corepm.ErrLockfileParse, "lockfile.parse", "", fmt.Errorf("non-string path key %v", item.Key))
		}
		if seen[p] {
			return nil, corepm.NewError(corepm.ErrLockfileConflict, "lockfile.parse", p, fmt.Errorf("duplicate install path %q", p))
		}
		seen[p] = true

		entry, err := decodeEntry(item.Value)
		if err != nil {
			return nil, corepm.NewError(corepm.ErrLockfileParse, "lockfile.parse", p, err)
		}
		doc.Paths = append(doc.Paths, PathEntry{Path: p, Entry: entry})
	}

	for _, item := range raw.Packages {
		p, ok := item.Key.(string)
		if !ok {
			return nil, corepm.NewError(corepm.ErrLockfileParse, "lockfile.parse", "", fmt.Errorf("non-string workspace key %v", item.Key))
		}
		doc.Packages = append(doc.Packages, p)
	}

	return doc, nil
}

// decodeEntry re-marshals a yaml.MapSlice value (or a bare mapping) back
// through yaml so it can be unmarshaled into a typed RawEntry, avoiding a
// hand-rolled reflection walk of the intermediate interface{} shape.
func decodeEntry(v interface{}) (RawEntry, error) {
	var entry RawEntry
	b, err := yaml.Marshal(v)
	if err != nil {
		return entry, err
	}
	if err := yaml.Unmarshal(b, &entry); err != nil {
		return entry, err
	}
	return entry, nil
}
