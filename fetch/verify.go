package fetch

import (
	"io"

	"github.com/opencontainers/go-digest"

	"github.com/voltpack/corepm"
)

// verifyingReader tees a fetched body through a digest computation,
// surfacing a mismatch once the body has been read to completion. §4.2
// requires the declared algorithm (SHA-512 preferred); when the
// descriptor carries no digest at all (verify policy "skip"), the reader
// is a pure passthrough.
type verifyingReader struct {
	r        io.Reader
	digester digest.Digester
	want     digest.Digest
	eof      bool
	n        int64
}

func newVerifyingReader(r io.Reader, desc corepm.PackageDescriptor) *verifyingReader {
	vr := &verifyingReader{r: r}
	if desc.HasIntegrity() {
		vr.want = desc.Digest
		vr.digester = desc.Digest.Algorithm().Digester()
	}
	return vr
}

func (vr *verifyingReader) Read(p []byte) (int, error) {
	n, err := vr.r.Read(p)
	vr.n += int64(n)
	if n > 0 && vr.digester != nil {
		vr.digester.Hash().Write(p[:n])
	}
	if err == io.EOF {
		vr.eof = true
	}
	return n, err
}

// bytesRead returns the number of bytes read from the underlying body
// so far, regardless of whether verification is enabled.
func (vr *verifyingReader) bytesRead() int64 {
	return vr.n
}

// mismatch returns a non-nil error once the body has been fully consumed
// and its computed digest does not match the declared one. It returns nil
// if verification was never enabled, or if the body was not read to EOF
// (the caller's own error, if any, takes precedence in that case).
func (vr *verifyingReader) mismatch() error {
	if vr.digester == nil || !vr.eof {
		return nil
	}
	if got := vr.digester.Digest(); got != vr.want {
		return &corepm.IntegrityMismatchError{Expected: vr.want.String(), Actual: got.String()}
	}
	return nil
}
