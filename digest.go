package corepm

import (
	"crypto"
	"io"

	"github.com/opencontainers/go-digest"

	// sha256-simd registers an assembly-accelerated SHA-256 under
	// crypto.SHA256, so every digest.Canonical / digest.SHA256 computation
	// in this module and in opencontainers/go-digest picks it up with no
	// further code changes. Per-file hashing in the Extractor runs on
	// every byte of every package, so this is the one hash path where the
	// faster implementation earns its keep.
	_ "github.com/minio/sha256-simd"
)

// TarballAlgorithm is the digest algorithm the Fetcher verifies tarball
// bodies against, per spec: SHA-512 preferred.
const TarballAlgorithm = digest.SHA512

// FileAlgorithm is the digest algorithm the Extractor computes per
// regular-file entry for the store's file pool.
const FileAlgorithm = digest.SHA256

func init() {
	// Ensure both algorithms are available even if something in the
	// import graph only pulled in one side of crypto's hash registry.
	if !TarballAlgorithm.Available() {
		panic("corepm: sha512 digest algorithm unavailable")
	}
	if !FileAlgorithm.Available() {
		panic("corepm: sha256 digest algorithm unavailable")
	}
	_ = crypto.SHA256 // referenced to document the sha256-simd registration above
}

// DigestReader consumes r fully, returning its digest under alg. It is used
// wherever a digest must be computed from a stream that has already been
// written elsewhere (the streaming write itself uses an io.Writer digester
// via alg.Digester() to avoid buffering).
func DigestReader(alg digest.Algorithm, r io.Reader) (digest.Digest, error) {
	digester := alg.Digester()
	if _, err := io.Copy(digester.Hash(), r); err != nil {
		return "", err
	}
	return digester.Digest(), nil
}
