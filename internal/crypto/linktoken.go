// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sam-im/sam-server/models"
)

// LinkTokenTTL is the absolute validity window of a device-link token,
// measured against the millisecond timestamp embedded in its claims.
const LinkTokenTTL = 600 * time.Second

// LinkTokenAuthenticator mints and verifies device-link tokens.
//
// A token is "{accountID}.{unixMillis}:{base64url(hmacSha256(secret, claims))}"
// where claims is everything before the last colon. The token id is
// base64(SHA-256(token)); the store's used-token set keyed by that id makes
// each token consumable at most once.
type LinkTokenAuthenticator struct {
	secret []byte

	// now is the clock source, injectable for tests.
	now func() time.Time
}

// NewLinkTokenAuthenticator constructs an authenticator signing with the
// given shared secret.
func NewLinkTokenAuthenticator(secret string) *LinkTokenAuthenticator {
	return &LinkTokenAuthenticator{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Mint issues a fresh link token bound to accountID and the current wall
// clock.
func (a *LinkTokenAuthenticator) Mint(accountID uuid.UUID) models.LinkToken {
	claims := fmt.Sprintf("%s.%d", accountID, a.now().UnixMilli())
	signature := a.sign(claims)

	token := claims + ":" + base64.RawURLEncoding.EncodeToString(signature)

	return models.LinkToken{
		ID:    LinkTokenID(token),
		Token: token,
	}
}

// Verify checks a presented token and returns the account it authorizes
// linking to.
//
// Failure modes:
//   - [ErrLinkTokenMalformed]: no colon separator, undecodable signature,
//     or claims that do not parse as "uuid.millis".
//   - [ErrWrongSignature]: the HMAC does not match (constant-time check).
//   - [ErrLinkExpired]: the embedded timestamp is older than [LinkTokenTTL].
func (a *LinkTokenAuthenticator) Verify(token string) (uuid.UUID, error) {
	sepIdx := strings.LastIndex(token, ":")
	if sepIdx < 0 {
		return uuid.Nil, ErrLinkTokenMalformed
	}

	claims, encodedSignature := token[:sepIdx], token[sepIdx+1:]

	signature, err := base64.RawURLEncoding.DecodeString(encodedSignature)
	if err != nil {
		return uuid.Nil, ErrLinkTokenMalformed
	}

	if !hmac.Equal(signature, a.sign(claims)) {
		return uuid.Nil, ErrWrongSignature
	}

	accountPart, millisPart, found := strings.Cut(claims, ".")
	if !found {
		return uuid.Nil, ErrLinkTokenMalformed
	}

	accountID, err := uuid.Parse(accountPart)
	if err != nil {
		return uuid.Nil, ErrLinkTokenMalformed
	}

	millis, err := strconv.ParseInt(millisPart, 10, 64)
	if err != nil {
		return uuid.Nil, ErrLinkTokenMalformed
	}

	if a.now().UnixMilli()-millis > LinkTokenTTL.Milliseconds() {
		return uuid.Nil, ErrLinkExpired
	}

	return accountID, nil
}

func (a *LinkTokenAuthenticator) sign(claims string) []byte {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(claims))
	return mac.Sum(nil)
}

// LinkTokenID computes the deterministic content hash of a raw token:
// standard-base64 of SHA-256(token). The same token always hashes to the
// same id, which is what allows the used-token set to reject replays.
func LinkTokenID(token string) string {
	digest := sha256.Sum256([]byte(token))
	return base64.StdEncoding.EncodeToString(digest[:])
}
