// Package dcontext provides context helpers specific to the installer core:
// a logger value, request-scoped tracing, and a handful of well-known string
// fields (run id, version) threaded through every component instead of
// relying on package-level globals.
package dcontext

import "context"

// Background returns a non-nil, empty root context, aliasing context.Background.
// It exists so call sites read "dcontext.Background()" and never need to also
// import the standard context package just for this one call.
func Background() context.Context {
	return context.Background()
}

// GetStringValue returns ctx.Value(key) as a string, or "" if the key is
// absent or not a string. It never panics on an unexpected type, which makes
// it safe to use for optional, best-effort fields pulled out of a context for
// logging.
func GetStringValue(ctx context.Context, key interface{}) (value string) {
	if valuev, ok := ctx.Value(key).(string); ok {
		value = valuev
	}
	return
}
