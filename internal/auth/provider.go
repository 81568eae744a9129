// Package auth adapts the external federated-identity provider. The core
// only ever sees the verified identity and an opaque revocable grant that
// come out of Exchange; everything else about the login flow stays here.
package auth

import (
	"context"

	"github.com/skyrc/skyrc/internal/domain"
)

// Grant is the opaque capability tied to one completed authorization.
// Revoke is fire-and-forget from the caller's point of view.
type Grant interface {
	Revoke(ctx context.Context) error
}

// Provider is the contract an external identity provider must satisfy.
// Implementations return identity facts only; session management is the
// caller's concern.
type Provider interface {
	// Name returns the provider identifier (e.g. "atproto").
	Name() string

	// AuthCodeURL returns the authorization URL for the given CSRF state.
	AuthCodeURL(state string) string

	// Exchange trades the authorization code for a verified identity and
	// the grant that can later revoke it upstream.
	Exchange(ctx context.Context, code string) (domain.Identity, Grant, error)
}
