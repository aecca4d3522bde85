// SPDX-License-Identifier: Apache-2.0

package crypto

import "crypto/ed25519"

// VerifySignedKey checks the Edwards-curve signature of a signed pre-key:
// signature must be a valid Ed25519 signature over publicKey, made with the
// account identity key.
//
// Returns [ErrKeyVerificationFailed] if the identity key has the wrong
// length or the signature does not verify.
func VerifySignedKey(identityKey, publicKey, signature []byte) error {
	if len(identityKey) != ed25519.PublicKeySize {
		return ErrKeyVerificationFailed
	}

	if !ed25519.Verify(ed25519.PublicKey(identityKey), publicKey, signature) {
		return ErrKeyVerificationFailed
	}

	return nil
}
