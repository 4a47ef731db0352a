package dcontext

import "context"

type versionKey struct{}

func (versionKey) String() string { return "version" }

// WithVersion stamps ctx with the running core's version string and folds it
// into the logger so every subsequent log line from this ctx carries it.
func WithVersion(ctx context.Context, version string) context.Context {
	ctx = context.WithValue(ctx, versionKey{}, version)
	return WithLogger(ctx, GetLogger(ctx, versionKey{}))
}

// GetVersion returns the version previously stored with WithVersion, or "".
func GetVersion(ctx context.Context) string {
	return GetStringValue(ctx, versionKey{})
}
