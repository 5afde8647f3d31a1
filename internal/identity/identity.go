// Package identity resolves the authenticated caller of a request.
//
// Tokens are issued elsewhere (account registration and login are outside this service). The
// server only verifies bearer tokens and places the resulting Identity in the request context,
// where the workflow handlers pick it up with FromContext.
package identity

import (
	"context"
	"strings"
)

// Identity is an authenticated caller: an opaque user id (the token subject) and an email address.
// Recipient authorization is scoped by email, ownership by id.
type Identity struct {
	ID    string
	Email string
}

// NormalizedEmail returns the email in the form used for recipient matching.
func (i Identity) NormalizedEmail() string {
	return NormalizeEmail(i.Email)
}

// NormalizeEmail lower cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by NewContext, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	if !ok || id.ID == "" {
		return Identity{}, false
	}
	return id, true
}
