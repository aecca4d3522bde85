package store

import "errors"

// Sentinel errors returned by store methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrAccountExists is returned when an account id is already taken.
	ErrAccountExists = errors.New("account already exists")

	// ErrAccountNotFound is returned when a lookup or delete targets an
	// account that does not exist.
	ErrAccountNotFound = errors.New("account was not found")

	// ErrDeviceExists is returned when a (account, device) pair is already
	// taken.
	ErrDeviceExists = errors.New("device already exists")

	// ErrDeviceNotFound is returned when a lookup or delete targets a
	// device that does not exist.
	ErrDeviceNotFound = errors.New("device was not found")

	// ErrLinkTokenReused is returned when a link-token id is added to the
	// used-token set a second time.
	ErrLinkTokenReused = errors.New("device-link token already used")

	// ErrNoPreKey is returned when a device has no EC one-time pre-keys
	// left to hand out.
	ErrNoPreKey = errors.New("no one-time pre-key available")

	// ErrNoPqPreKey is returned when a device has no one-time PQ pre-keys
	// left to hand out.
	ErrNoPqPreKey = errors.New("no one-time pq pre-key available")

	// ErrNoSignedPreKey is returned when a device has never published a
	// signed pre-key.
	ErrNoSignedPreKey = errors.New("no signed pre-key available")

	// ErrNoLastResortPqPreKey is returned when a device has never
	// published a last-resort PQ pre-key.
	ErrNoLastResortPqPreKey = errors.New("no last-resort pq pre-key available")

	// ErrEnvelopeMissing is returned when a queued envelope addressed by
	// message id does not exist.
	ErrEnvelopeMissing = errors.New("envelope was not found")
)

// Low-level database operation errors. These are returned (or wrapped) by
// SQL repository methods when an operation fails before any domain logic
// can be applied.
var (
	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to execute statement")

	// ErrScanningRow is returned when scanning column values from a single
	// result row into a destination struct fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails, typically mid-result-set.
	ErrScanningRows = errors.New("failed to scan rows")
)
