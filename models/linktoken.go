package models

// LinkToken authorizes a new device to join an existing account. The token
// string is "{accountID}.{unixMillis}:{base64url(hmacSha256(secret, claims))}"
// and is accepted for ten minutes after minting, at most once.
type LinkToken struct {
	// ID is base64(SHA-256(Token)), a deterministic content hash recorded
	// in the used-token set when the token is consumed.
	ID string `json:"id"`

	// Token is the signed credential handed to the linking device.
	Token string `json:"token"`
}
