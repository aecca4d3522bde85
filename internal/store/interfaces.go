package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sam-im/sam-server/models"
)

// AccountStore persists accounts and the used-link-token set that enforces
// exactly-once device linking.
type AccountStore interface {
	// CreateAccount persists a new account. Fails with [ErrAccountExists]
	// if the account id is already taken.
	CreateAccount(ctx context.Context, account models.Account) error

	// GetAccount returns the account, or [ErrAccountNotFound].
	GetAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error)

	// DeleteAccount removes the account row and all its used-token
	// entries. Fails with [ErrAccountNotFound] if the account is absent.
	DeleteAccount(ctx context.Context, accountID uuid.UUID) error

	// AddUsedLinkToken records a consumed link-token id. A second call
	// with the same id fails with [ErrLinkTokenReused]; callers consult it
	// before accepting a token so each token links at most one device.
	AddUsedLinkToken(ctx context.Context, tokenID string) error

	// RemoveExpiredLinkTokens drops used-token entries recorded before the
	// given time and reports how many were removed. Tokens older than the
	// link TTL can no longer verify, so their ids need no replay record.
	RemoveExpiredLinkTokens(ctx context.Context, before time.Time) (int, error)
}

// DeviceStore persists the devices of an account.
type DeviceStore interface {
	// CreateDevice persists a new device. Fails with [ErrDeviceExists] if
	// the (account, device) pair is already taken.
	CreateDevice(ctx context.Context, device models.Device) error

	// GetDevice returns the device at addr, or [ErrDeviceNotFound].
	GetDevice(ctx context.Context, addr models.Address) (models.Device, error)

	// GetDevices returns all devices of the account in ascending device id
	// order. An account with no devices yields an empty slice.
	GetDevices(ctx context.Context, accountID uuid.UUID) ([]models.Device, error)

	// DeleteDevice removes the device at addr, or fails with
	// [ErrDeviceNotFound].
	DeleteDevice(ctx context.Context, addr models.Address) error
}

// KeyStore persists published pre-key material per device.
//
// Take operations are atomic per address: a one-time key returned by one
// call is never returned by another, including under concurrent callers.
type KeyStore interface {
	// AddPreKeys appends EC one-time pre-keys in the given order.
	AddPreKeys(ctx context.Context, addr models.Address, keys []models.PreKey) error

	// TakePreKey pops the oldest EC one-time pre-key, or fails with
	// [ErrNoPreKey] when none remain.
	TakePreKey(ctx context.Context, addr models.Address) (models.PreKey, error)

	// RemovePreKeys deletes the EC one-time keys with the given ids.
	// Missing ids are ignored. Used for publication rollback.
	RemovePreKeys(ctx context.Context, addr models.Address, keyIDs []uint32) error

	// AddPqPreKeys appends one-time PQ pre-keys in the given order.
	AddPqPreKeys(ctx context.Context, addr models.Address, keys []models.SignedPreKey) error

	// TakePqPreKey pops the oldest one-time PQ pre-key, or fails with
	// [ErrNoPqPreKey] when none remain.
	TakePqPreKey(ctx context.Context, addr models.Address) (models.SignedPreKey, error)

	// RemovePqPreKeys deletes the one-time PQ keys with the given ids.
	// Missing ids are ignored.
	RemovePqPreKeys(ctx context.Context, addr models.Address, keyIDs []uint32) error

	// SetSignedPreKey replaces the device's signed pre-key and returns the
	// previous one, or nil if the device had none.
	SetSignedPreKey(ctx context.Context, addr models.Address, key models.SignedPreKey) (*models.SignedPreKey, error)

	// GetSignedPreKey returns the current signed pre-key, or
	// [ErrNoSignedPreKey].
	GetSignedPreKey(ctx context.Context, addr models.Address) (models.SignedPreKey, error)

	// ClearSignedPreKey removes the signed pre-key if present.
	ClearSignedPreKey(ctx context.Context, addr models.Address) error

	// SetLastResortPqPreKey replaces the device's last-resort PQ key and
	// returns the previous one, or nil if the device had none.
	SetLastResortPqPreKey(ctx context.Context, addr models.Address, key models.SignedPreKey) (*models.SignedPreKey, error)

	// GetLastResortPqPreKey returns the last-resort PQ key without
	// removing it, or [ErrNoLastResortPqPreKey].
	GetLastResortPqPreKey(ctx context.Context, addr models.Address) (models.SignedPreKey, error)

	// ClearLastResortPqPreKey removes the last-resort PQ key if present.
	ClearLastResortPqPreKey(ctx context.Context, addr models.Address) error

	// DeleteAllKeys removes every kind of key material held for addr.
	DeleteAllKeys(ctx context.Context, addr models.Address) error
}

// MessageStore persists per-device envelope queues in enqueue order.
type MessageStore interface {
	// AddEnvelope appends the envelope to its destination queue.
	AddEnvelope(ctx context.Context, envelope models.ServerEnvelope) error

	// GetEnvelope reads one queued envelope, or fails with
	// [ErrEnvelopeMissing].
	GetEnvelope(ctx context.Context, addr models.Address, id uuid.UUID) (models.ServerEnvelope, error)

	// DeleteEnvelope removes one queued envelope, or fails with
	// [ErrEnvelopeMissing].
	DeleteEnvelope(ctx context.Context, addr models.Address, id uuid.UUID) error

	// EnvelopeIDs returns a snapshot of the queue's message ids in enqueue
	// order.
	EnvelopeIDs(ctx context.Context, addr models.Address) ([]uuid.UUID, error)

	// DeleteAllEnvelopes drains the queue of addr.
	DeleteAllEnvelopes(ctx context.Context, addr models.Address) error
}
