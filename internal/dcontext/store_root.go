package dcontext

import "context"

type storeRootKey struct{}

func (storeRootKey) String() string { return "storeRoot" }

// WithStoreRoot stamps ctx with the Store's resolved root directory, so deep
// call stacks (fetch, extract, materialize) can log it without threading an
// extra parameter through every function signature.
func WithStoreRoot(ctx context.Context, root string) context.Context {
	return context.WithValue(ctx, storeRootKey{}, root)
}

// GetStoreRoot returns the root directory stamped by WithStoreRoot, or "".
func GetStoreRoot(ctx context.Context) string {
	return GetStringValue(ctx, storeRootKey{})
}
