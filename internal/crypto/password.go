// SPDX-License-Identifier: Apache-2.0

// Package crypto bundles the cryptographic primitives of the server core:
// salted password hashing, HMAC-signed device-link tokens, and signed
// pre-key verification. Everything here is pure computation; no store or
// network access happens below this package.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters, following the OWASP (2024) recommendation:
// 1 iteration, 64 MiB memory, 4 threads, 256-bit output.
const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32

	saltLen = 16
)

// Password is a stored device credential: the Argon2id digest of the
// password together with the random salt it was derived with.
type Password struct {
	Hash []byte
	Salt []byte
}

// GeneratePassword derives a [Password] from the plain-text password using
// a fresh 16-byte salt from the OS CSPRNG. Returns an error only if the
// random read fails.
func GeneratePassword(plain string) (Password, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return Password{}, err
	}

	return Password{
		Hash: hashPassword(plain, salt),
		Salt: salt,
	}, nil
}

// Verify reports whether candidate derives to the stored hash under the
// stored salt. The comparison is constant-time.
func (p Password) Verify(candidate string) bool {
	derived := hashPassword(candidate, p.Salt)
	return subtle.ConstantTimeCompare(p.Hash, derived) == 1
}

func hashPassword(plain string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(plain),
		salt,
		argonTime,
		argonMemory,
		argonThreads,
		argonKeyLen,
	)
}

// ParseBasicCredentials splits basic auth userinfo of the form
// "accountID.deviceID" on the first dot and parses both components.
//
// Any malformed component (a missing dot, a non-UUID account part, or a
// device part that is not a positive 32-bit integer) yields
// [ErrAuthMalformed] without detail about which part was wrong.
func ParseBasicCredentials(userinfo string) (uuid.UUID, uint32, error) {
	accountPart, devicePart, found := strings.Cut(userinfo, ".")
	if !found {
		return uuid.Nil, 0, ErrAuthMalformed
	}

	accountID, err := uuid.Parse(accountPart)
	if err != nil {
		return uuid.Nil, 0, ErrAuthMalformed
	}

	deviceID, err := strconv.ParseUint(devicePart, 10, 32)
	if err != nil || deviceID == 0 {
		return uuid.Nil, 0, ErrAuthMalformed
	}

	return accountID, uint32(deviceID), nil
}
