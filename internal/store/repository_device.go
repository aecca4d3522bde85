package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/models"
)

// deviceRepository is the PostgreSQL-backed implementation of [DeviceStore].
type deviceRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewDeviceRepository constructs a [DeviceStore] backed by the provided
// database connection and logger.
func NewDeviceRepository(db *DB, logger *logger.Logger) DeviceStore {
	logger.Debug().Msg("creating device repository")
	return &deviceRepository{
		db:     db,
		logger: logger,
	}
}

// CreateDevice persists a new device row.
//
// Error handling:
//   - PostgreSQL unique_violation (23505) → [ErrDeviceExists].
func (r *deviceRepository) CreateDevice(ctx context.Context, device models.Device) error {
	log := logger.FromContext(ctx)

	_, err := r.db.ExecContext(ctx, createDevice,
		device.AccountID, device.DeviceID, device.Name, device.RegistrationID,
		device.CreatedAt, device.PasswordHash, device.PasswordSalt)
	if err != nil {
		log.Err(err).Str("func", "*deviceRepository.CreateDevice").Msg("error: insert failed")

		switch postgresError(err) {
		case pgerrcode.UniqueViolation:
			return ErrDeviceExists
		default:
			return fmt.Errorf("unexpected DB error: %w", err)
		}
	}

	return nil
}

// GetDevice retrieves the device at addr, or [ErrDeviceNotFound].
func (r *deviceRepository) GetDevice(ctx context.Context, addr models.Address) (models.Device, error) {
	log := logger.FromContext(ctx)

	var device models.Device
	row := r.db.QueryRowContext(ctx, findDevice, addr.AccountID, addr.DeviceID)

	if err := row.Scan(&device.AccountID, &device.DeviceID, &device.Name, &device.RegistrationID,
		&device.CreatedAt, &device.PasswordHash, &device.PasswordSalt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Device{}, ErrDeviceNotFound
		}

		log.Err(err).Str("func", "*deviceRepository.GetDevice").Msg("error: scanning error")
		return models.Device{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return device, nil
}

// GetDevices retrieves all devices of the account in ascending device id
// order.
func (r *deviceRepository) GetDevices(ctx context.Context, accountID uuid.UUID) ([]models.Device, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, findDevicesByAccount, accountID)
	if err != nil {
		log.Err(err).Str("func", "*deviceRepository.GetDevices").Msg("error: query failed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	devices := make([]models.Device, 0, 4)
	for rows.Next() {
		var device models.Device
		if err := rows.Scan(&device.AccountID, &device.DeviceID, &device.Name, &device.RegistrationID,
			&device.CreatedAt, &device.PasswordHash, &device.PasswordSalt); err != nil {
			log.Err(err).Str("func", "*deviceRepository.GetDevices").Msg("error: scanning error")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		devices = append(devices, device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return devices, nil
}

// DeleteDevice removes the device at addr. A delete that affects no rows is
// reported as [ErrDeviceNotFound].
func (r *deviceRepository) DeleteDevice(ctx context.Context, addr models.Address) error {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, deleteDevice, addr.AccountID, addr.DeviceID)
	if err != nil {
		log.Err(err).Str("func", "*deviceRepository.DeleteDevice").Msg("error: delete failed")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}
