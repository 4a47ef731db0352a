// Package corepm implements the installer core: replaying a lockfile into a
// concrete install plan, fetching and verifying tarballs into a
// content-addressed store, and materializing a project's dependency tree by
// the fastest filesystem mechanism the host supports.
//
// The core is organized as a small pipeline of independently testable
// stages, each living in its own package:
//
//	lockfile     parses a lockfile document into an install plan
//	fetch        downloads and verifies tarballs over HTTPS
//	extract      decodes tarballs into the store's file pool
//	store        the on-disk content-addressed store (CAS)
//	materialize  builds the project's node_modules-shaped tree
//	binlink      creates executable shims under .bin directories
//	pipeline     composes the above and produces a Report
//
// None of these packages know about the CLI, reporting UI, or any other
// caller; they are driven entirely through Go values.
package corepm
