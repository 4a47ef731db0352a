package corepm

import "fmt"

// ErrorKind is the closed set of error categories the core can surface. The
// Pipeline converts the first fatal error it sees into the run's terminal
// error; non-fatal kinds (ShimFailed under the default policy, PlatformSkip)
// accumulate in the Report instead of aborting the run.
type ErrorKind string

const (
	ErrLockfileParse     ErrorKind = "LockfileParse"
	ErrLockfileConflict  ErrorKind = "LockfileConflict"
	ErrIntegrityMissing  ErrorKind = "IntegrityMissing"
	ErrIntegrityMismatch ErrorKind = "IntegrityMismatch"
	ErrFetchFailed       ErrorKind = "FetchFailed"
	ErrExtractFailed     ErrorKind = "ExtractFailed"
	ErrStoreBusy         ErrorKind = "StoreBusy"
	ErrMaterializeFailed ErrorKind = "MaterializeFailed"
	ErrShimFailed        ErrorKind = "ShimFailed"
	ErrCancelled         ErrorKind = "Cancelled"
	ErrPlatformSkip      ErrorKind = "PlatformSkip"
)

// Error is the core's uniform error type. Every error that crosses a
// component boundary is wrapped in one of these so the Pipeline can classify
// it without type-switching on a dozen unrelated error types, and so a raw OS
// error is never silently swallowed.
type Error struct {
	Kind ErrorKind
	// Op names the operation that failed, e.g. "store.commit" or
	// "fetch.get", for log correlation.
	Op string
	// Path is the store or project-relative path involved, when any.
	Path string
	// Err is the underlying error, often a raw *os.PathError or a
	// network error. Never nil except for PlatformSkip.
	Err error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IntegrityMismatchError reports a verified digest that does not match what
// the lockfile declared. Both digests are exposed so callers can log or
// display them without re-parsing Error.Err.
type IntegrityMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *IntegrityMismatchError) Error() string {
	return fmt.Sprintf("integrity mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// NewError constructs an *Error, the standard wrapping point for every
// component boundary.
func NewError(kind ErrorKind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// WrapError wraps err for a component boundary the same way NewError does,
// except that if err is already an *Error (typically one raised by the
// Store, whose own ErrorKind like StoreBusy is more specific than the
// caller's default), its Kind is preserved instead of being overwritten by
// defaultKind. Op and Path are still updated to the caller's own operation
// name, so the error still reads as having crossed this boundary.
func WrapError(defaultKind ErrorKind, op, path string, err error) *Error {
	kind := defaultKind
	if cerr, ok := err.(*Error); ok {
		kind = cerr.Kind
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}
