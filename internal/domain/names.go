package domain

import "context"

// NameResolver looks up a display name for a user within a scope (usually a
// group). Implementations return ErrNameNotFound when they know nothing.
type NameResolver interface {
	ResolveName(ctx context.Context, scope, userID string) (string, error)
}

// NameResolverFunc adapts a function to NameResolver.
type NameResolverFunc func(ctx context.Context, scope, userID string) (string, error)

func (f NameResolverFunc) ResolveName(ctx context.Context, scope, userID string) (string, error) {
	return f(ctx, scope, userID)
}
