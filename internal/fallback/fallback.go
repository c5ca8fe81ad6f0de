// Package fallback tries an ordered list of data sources until one yields a value.
package fallback

import (
	"context"

	"go.uber.org/zap"
)

// Resolver is one tier of a chain. Fetch returns ok=false when the tier has
// nothing to offer; an error means the tier failed. Both move on to the next tier.
type Resolver[T any] struct {
	Name  string
	Fetch func(ctx context.Context) (value T, ok bool, err error)
}

// FirstOf walks resolvers in order and returns the first value a tier
// produces, together with that tier's name. Failures are logged and swallowed.
// When every tier comes up empty, ok is false and value is the zero T.
func FirstOf[T any](ctx context.Context, log *zap.SugaredLogger, resolvers ...Resolver[T]) (value T, source string, ok bool) {
	for _, r := range resolvers {
		v, found, err := r.Fetch(ctx)
		switch {
		case err != nil:
			log.Warnw("fallback tier failed", "tier", r.Name, "error", err)
		case !found:
			log.Debugw("fallback tier empty", "tier", r.Name)
		default:
			log.Debugw("fallback tier hit", "tier", r.Name)
			return v, r.Name, true
		}
	}
	var zero T
	return zero, "", false
}

// Static is a tier that always yields v.
func Static[T any](name string, v T) Resolver[T] {
	return Resolver[T]{
		Name: name,
		Fetch: func(context.Context) (T, bool, error) {
			return v, true, nil
		},
	}
}
