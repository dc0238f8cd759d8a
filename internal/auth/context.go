package auth

import (
	"context"

	"propdash/pkg/model"
)

type contextKey struct{}

func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// IdentityFromContext returns the zero Identity when the request was not authenticated.
func IdentityFromContext(ctx context.Context) model.Identity {
	identity, _ := ctx.Value(contextKey{}).(model.Identity)
	return identity
}
