// SPDX-License-Identifier: Apache-2.0

package crypto

import "errors"

// Sentinel errors surfaced by the credential and token primitives. Callers
// should match against these values with [errors.Is].
var (
	// ErrAuthMalformed is returned when basic auth userinfo cannot be split
	// into a valid "accountID.deviceID" pair.
	ErrAuthMalformed = errors.New("malformed authentication credentials")

	// ErrLinkTokenMalformed is returned when a device-link token does not
	// have the "claims:signature" shape or its parts cannot be decoded.
	ErrLinkTokenMalformed = errors.New("malformed device-link token")

	// ErrWrongSignature is returned when a device-link token's HMAC does
	// not match the recomputed signature.
	ErrWrongSignature = errors.New("wrong device-link token signature")

	// ErrLinkExpired is returned when a device-link token is older than the
	// accepted validity window.
	ErrLinkExpired = errors.New("device-link token expired")

	// ErrKeyVerificationFailed is returned when a signed pre-key's
	// signature does not verify under the account identity key.
	ErrKeyVerificationFailed = errors.New("key signature verification failed")
)
