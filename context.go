package bookline

import "context"

// ctxDepsKey is an unexported type for keys defined in this package.
type ctxDepsKey struct{}

// NewDepsContext returns a new Context carrying the dependency value handed
// to an agent run. Tool handlers and output parsers read it back with
// DepsFromContext.
func NewDepsContext(ctx context.Context, deps any) context.Context {
	return context.WithValue(ctx, ctxDepsKey{}, deps)
}

// DepsFromContext retrieves the run dependency of type T from the context.
func DepsFromContext[T any](ctx context.Context) (T, bool) {
	deps, ok := ctx.Value(ctxDepsKey{}).(T)
	return deps, ok
}
