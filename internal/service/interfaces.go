package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/sam-im/sam-server/models"
)

// AuthService resolves basic auth credentials into an authenticated caller.
type AuthService interface {
	// Authenticate verifies that the device exists and that password
	// matches its stored hash. Every failure mode yields [ErrUnauthorized]
	// so the caller cannot distinguish a wrong account from a wrong
	// password.
	Authenticate(ctx context.Context, accountID uuid.UUID, deviceID uint32, password string) (models.AuthenticatedUser, error)
}

// AccountService owns the account lifecycle.
type AccountService interface {
	// Register creates a new account with its primary device and initial
	// key material. Partial writes are rolled back best-effort so a failed
	// registration leaves no account behind.
	Register(ctx context.Context, req models.RegistrationRequest, username, password string) (models.RegistrationResponse, error)

	// Delete tears the account down: per device, key material first, then
	// queued messages, then the device row; the account row last. The
	// order guarantees no dangling keys or messages are observable after
	// removal.
	Delete(ctx context.Context, accountID uuid.UUID) error
}

// DeviceService owns device enrollment, linking, and removal.
type DeviceService interface {
	// EnrollPrimaryDevice creates device 1 during registration and
	// publishes its initial key bundle.
	EnrollPrimaryDevice(ctx context.Context, account models.Account, activation models.DeviceActivation, password string) (models.Device, error)

	// ProvisionLinkToken mints a link token authorizing one new device to
	// join the account.
	ProvisionLinkToken(ctx context.Context, accountID uuid.UUID) (models.LinkToken, error)

	// LinkDevice validates and consumes a link token, allocates the next
	// free device id, creates the device, and publishes its initial keys.
	LinkDevice(ctx context.Context, req models.LinkDeviceRequest, password string) (models.LinkDeviceResponse, error)

	// Unlink removes a non-primary device together with its keys and
	// queued messages. Unlinking device 1 fails with
	// [ErrPrimaryDeviceProtected] while the account exists.
	Unlink(ctx context.Context, addr models.Address) error

	// GetDevices lists the account's devices in ascending id order.
	GetDevices(ctx context.Context, accountID uuid.UUID) ([]models.Device, error)
}

// KeyService owns the pre-key directory.
type KeyService interface {
	// Publish stores a published key bundle after verifying every signed
	// entry against identityKey. A verification failure aborts the whole
	// publication; a store failure mid-way rolls back already-applied
	// changes.
	Publish(ctx context.Context, addr models.Address, identityKey []byte, bundle models.KeyBundle) error

	// AssembleBundle consumes key material for one device: pops an EC
	// one-time key if any, pops a PQ one-time key or falls back to the
	// last-resort key, and reads the signed pre-key.
	AssembleBundle(ctx context.Context, device models.Device) (models.PreKeyBundle, error)

	// AssembleForAccount returns the identity key and one bundle per
	// device of the account, in ascending device id order.
	AssembleForAccount(ctx context.Context, accountID uuid.UUID) (models.PreKeyBundles, error)
}
