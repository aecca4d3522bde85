package models

import "github.com/google/uuid"

// DeviceActivation is the client-supplied description of a device being
// enrolled, either at registration (device 1) or through linking.
type DeviceActivation struct {
	// Name is the display name of the device.
	Name string `json:"name"`

	// RegistrationID is the 14-bit registration id chosen by the device.
	RegistrationID uint32 `json:"registration_id"`

	// KeyBundle is the initial key material published for the device.
	KeyBundle KeyBundle `json:"key_bundle"`
}

// RegistrationRequest is the body of POST /api/v1/account.
type RegistrationRequest struct {
	// IdentityKey is the account's Ed25519 public identity key.
	IdentityKey []byte `json:"identity_key"`

	// DeviceActivation describes the primary device.
	DeviceActivation DeviceActivation `json:"device_activation"`
}

// RegistrationResponse is the answer to a successful registration.
type RegistrationResponse struct {
	AccountID uuid.UUID `json:"account_id"`
}

// LinkDeviceRequest is the body of POST /api/v1/devices/link.
type LinkDeviceRequest struct {
	// Token is the link token minted by the primary device.
	Token string `json:"token"`

	// DeviceActivation describes the new device.
	DeviceActivation DeviceActivation `json:"device_activation"`
}

// LinkDeviceResponse is the answer to a successful link.
type LinkDeviceResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	DeviceID  uint32    `json:"device_id"`
}

// AuthenticatedUser is the resolved caller of an authenticated request:
// the account and the concrete device whose credentials were presented.
type AuthenticatedUser struct {
	Account Account
	Device  Device
}

// Addr returns the routing address of the authenticated device.
func (u AuthenticatedUser) Addr() Address {
	return u.Device.Addr()
}
