package models

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a registered SAM account: one user identified by a
// server-issued 128-bit AccountID and bound to a long-lived identity key.
type Account struct {
	// AccountID is the server-issued unique identifier of the account.
	AccountID uuid.UUID `json:"account_id"`

	// Username is the login name supplied at registration.
	Username string `json:"username"`

	// IdentityKey is the account's long-lived Ed25519 public identity key.
	// It is immutable after registration; all signed pre-keys published for
	// any device of this account must verify under it.
	IdentityKey []byte `json:"identity_key"`

	// CreatedAt is the timestamp when the account was registered.
	CreatedAt time.Time `json:"created_at"`
}
