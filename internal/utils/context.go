// Package utils provides small helpers shared across the transport layer:
// type-safe context keys and JSON response writing.
package utils

import (
	"context"

	"github.com/sam-im/sam-server/models"
)

// contextKey is a private type for context keys. Using a dedicated type
// instead of a plain string prevents collisions with other packages that
// may use string-based keys in the context.
type contextKey string

// String returns the string representation of the context key.
func (c contextKey) String() string {
	return string(c)
}

// AuthUserCtxKey is the key under which the authentication middleware
// stores the resolved [models.AuthenticatedUser].
var AuthUserCtxKey = contextKey("authUser")

// GetAuthenticatedUserFromContext retrieves the authenticated caller from
// the context. ok is false when the value is missing or has an unexpected
// type, which means the request never passed the auth middleware.
func GetAuthenticatedUserFromContext(ctx context.Context) (models.AuthenticatedUser, bool) {
	user, ok := ctx.Value(AuthUserCtxKey).(models.AuthenticatedUser)
	return user, ok
}
