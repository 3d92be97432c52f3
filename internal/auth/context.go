// Package auth carries the authenticated identity through request contexts
// and verifies the identity tokens issued by the external identity provider.
package auth

import (
	"context"

	"github.com/welldanyogia/icd-messaging-backend/internal/models"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying identity
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// FromContext returns the identity stored in ctx.
// ok is false when no identity is present or it lacks a uid or email.
func FromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(models.Identity)
	if !ok || !identity.Valid() {
		return models.Identity{}, false
	}
	return identity, true
}
