package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PrimaryDeviceID is the device id reserved for the device that registered
// the account. It exists for exactly as long as the account does and can only
// be removed by deleting the whole account.
const PrimaryDeviceID uint32 = 1

// MaxRegistrationID is the largest valid registration id. Registration ids
// are 14-bit values chosen by the client.
const MaxRegistrationID uint32 = 0x3FFF

// Device is one enrolled device of an account. Devices authenticate with
// basic auth credentials of the form "accountID.deviceID:password".
type Device struct {
	// AccountID identifies the owning account.
	AccountID uuid.UUID `json:"account_id"`

	// DeviceID is the per-account device number, starting at 1 for the
	// primary device. Ids are allocated densely from the lowest free slot.
	DeviceID uint32 `json:"device_id"`

	// Name is the client-chosen display name of the device (e.g. "phone").
	Name string `json:"name"`

	// RegistrationID is the 14-bit client-chosen identifier used by the
	// cryptographic session protocol (1..16383).
	RegistrationID uint32 `json:"registration_id"`

	// CreatedAt is the timestamp when the device was enrolled.
	CreatedAt time.Time `json:"created_at"`

	// PasswordHash is the Argon2id digest of the device password.
	// Never exposed via JSON.
	PasswordHash []byte `json:"-"`

	// PasswordSalt is the per-password random salt used to derive
	// PasswordHash. Never exposed via JSON.
	PasswordSalt []byte `json:"-"`
}

// Address identifies one device of one account. It is the routing key for
// message queues, key material, and live subscriptions.
type Address struct {
	AccountID uuid.UUID
	DeviceID  uint32
}

// Addr returns the routing address of the device.
func (d Device) Addr() Address {
	return Address{AccountID: d.AccountID, DeviceID: d.DeviceID}
}

// String renders the address as "accountID.deviceID", the same form used in
// basic auth userinfo.
func (a Address) String() string {
	return fmt.Sprintf("%s.%d", a.AccountID, a.DeviceID)
}
