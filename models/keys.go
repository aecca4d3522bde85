package models

// PreKey is an unsigned EC one-time pre-key. Each key is handed out to at
// most one peer and deleted from the directory on consumption.
type PreKey struct {
	// KeyID is the client-chosen identifier of the key, unique per device.
	KeyID uint32 `json:"key_id"`

	// PublicKey holds the serialized public key bytes.
	PublicKey []byte `json:"public_key"`
}

// SignedPreKey is a pre-key whose public key is signed with the account's
// identity key. The same shape covers the signed EC pre-key, one-time PQ
// pre-keys, and the last-resort PQ pre-key.
type SignedPreKey struct {
	// KeyID is the client-chosen identifier of the key.
	KeyID uint32 `json:"key_id"`

	// PublicKey holds the serialized public key bytes.
	PublicKey []byte `json:"public_key"`

	// Signature is the Ed25519 signature over PublicKey, made with the
	// account identity key.
	Signature []byte `json:"signature"`
}

// KeyBundle is the key material a device publishes to the directory.
// Every field is optional; signature checks are applied to all signed
// entries before any of them becomes visible.
type KeyBundle struct {
	// PreKeys are EC one-time pre-keys to append. Unsigned.
	PreKeys []PreKey `json:"pre_keys,omitempty"`

	// PqPreKeys are one-time PQ (Kyber-class) pre-keys to append.
	PqPreKeys []SignedPreKey `json:"pq_pre_keys,omitempty"`

	// SignedPreKey replaces the device's current signed pre-key when set.
	SignedPreKey *SignedPreKey `json:"signed_pre_key,omitempty"`

	// PqLastResortPreKey replaces the device's last-resort PQ key when set.
	// The last-resort key is served when no one-time PQ key remains and is
	// never consumed.
	PqLastResortPreKey *SignedPreKey `json:"pq_last_resort_pre_key,omitempty"`
}

// PreKeyBundle is the minimum key material a peer needs to start a session
// with one device.
type PreKeyBundle struct {
	// DeviceID is the device the bundle belongs to.
	DeviceID uint32 `json:"device_id"`

	// RegistrationID is the device's registration id.
	RegistrationID uint32 `json:"registration_id"`

	// PreKey is a consumed EC one-time pre-key, or nil when the device has
	// none left.
	PreKey *PreKey `json:"pre_key"`

	// PqPreKey is a consumed one-time PQ pre-key, or the device's
	// last-resort PQ key when no one-time key remains.
	PqPreKey *SignedPreKey `json:"pq_pre_key"`

	// SignedPreKey is the device's current signed pre-key.
	SignedPreKey SignedPreKey `json:"signed_pre_key"`
}

// PreKeyBundles is the answer to a directory query for a whole account:
// the identity key plus one bundle per device in ascending device id order.
type PreKeyBundles struct {
	IdentityKey []byte         `json:"identity_key"`
	Bundles     []PreKeyBundle `json:"bundles"`
}
