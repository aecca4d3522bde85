package service

import "errors"

var (
	ErrInvalidDataProvided = errors.New("invalid data provided")

	// ErrUnauthorized is returned for any authentication failure. It is
	// deliberately unspecific: callers must not learn which of account,
	// device, or password was wrong.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPrimaryDeviceProtected is returned when an unlink targets device 1
	// while the account still exists. The primary device can only go down
	// with the whole account.
	ErrPrimaryDeviceProtected = errors.New("primary device cannot be unlinked")

	// ErrNoSignedKey is returned when a bundle is requested for a device
	// that has never published a signed pre-key.
	ErrNoSignedKey = errors.New("device has no signed pre-key")

	// ErrNoPqKey is returned when a device has neither a one-time PQ
	// pre-key nor a last-resort PQ pre-key.
	ErrNoPqKey = errors.New("device has no pq pre-key")
)
