package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/models"
)

// keyRepository is the PostgreSQL-backed implementation of [KeyStore].
//
// Atomic single-issue of one-time keys is delegated to the database: the
// take queries delete exactly one row selected with FOR UPDATE SKIP LOCKED,
// so two concurrent bundle requests can never receive the same key.
type keyRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewKeyRepository constructs a [KeyStore] backed by the provided database
// connection and logger.
func NewKeyRepository(db *DB, logger *logger.Logger) KeyStore {
	logger.Debug().Msg("creating key repository")
	return &keyRepository{
		db:     db,
		logger: logger,
	}
}

func (r *keyRepository) AddPreKeys(ctx context.Context, addr models.Address, keys []models.PreKey) error {
	log := logger.FromContext(ctx)

	for _, key := range keys {
		if _, err := r.db.ExecContext(ctx, insertPreKey, addr.AccountID, addr.DeviceID, key.KeyID, key.PublicKey); err != nil {
			log.Err(err).Str("func", "*keyRepository.AddPreKeys").Msg("error: insert failed")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	return nil
}

func (r *keyRepository) TakePreKey(ctx context.Context, addr models.Address) (models.PreKey, error) {
	log := logger.FromContext(ctx)

	var key models.PreKey
	row := r.db.QueryRowContext(ctx, takePreKey, addr.AccountID, addr.DeviceID)

	if err := row.Scan(&key.KeyID, &key.PublicKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PreKey{}, ErrNoPreKey
		}

		log.Err(err).Str("func", "*keyRepository.TakePreKey").Msg("error: scanning error")
		return models.PreKey{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return key, nil
}

func (r *keyRepository) RemovePreKeys(ctx context.Context, addr models.Address, keyIDs []uint32) error {
	if len(keyIDs) == 0 {
		return nil
	}

	if _, err := r.db.ExecContext(ctx, deletePreKeysByIDs, addr.AccountID, addr.DeviceID, toInt64s(keyIDs)); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *keyRepository) AddPqPreKeys(ctx context.Context, addr models.Address, keys []models.SignedPreKey) error {
	log := logger.FromContext(ctx)

	for _, key := range keys {
		if _, err := r.db.ExecContext(ctx, insertPqPreKey,
			addr.AccountID, addr.DeviceID, key.KeyID, key.PublicKey, key.Signature); err != nil {
			log.Err(err).Str("func", "*keyRepository.AddPqPreKeys").Msg("error: insert failed")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	return nil
}

func (r *keyRepository) TakePqPreKey(ctx context.Context, addr models.Address) (models.SignedPreKey, error) {
	log := logger.FromContext(ctx)

	var key models.SignedPreKey
	row := r.db.QueryRowContext(ctx, takePqPreKey, addr.AccountID, addr.DeviceID)

	if err := row.Scan(&key.KeyID, &key.PublicKey, &key.Signature); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SignedPreKey{}, ErrNoPqPreKey
		}

		log.Err(err).Str("func", "*keyRepository.TakePqPreKey").Msg("error: scanning error")
		return models.SignedPreKey{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return key, nil
}

func (r *keyRepository) RemovePqPreKeys(ctx context.Context, addr models.Address, keyIDs []uint32) error {
	if len(keyIDs) == 0 {
		return nil
	}

	if _, err := r.db.ExecContext(ctx, deletePqPreKeysByIDs, addr.AccountID, addr.DeviceID, toInt64s(keyIDs)); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *keyRepository) SetSignedPreKey(ctx context.Context, addr models.Address, key models.SignedPreKey) (*models.SignedPreKey, error) {
	prev, err := r.GetSignedPreKey(ctx, addr)
	var previous *models.SignedPreKey
	switch {
	case err == nil:
		previous = &prev
	case errors.Is(err, ErrNoSignedPreKey):
		previous = nil
	default:
		return nil, err
	}

	if _, err := r.db.ExecContext(ctx, upsertSignedPreKey,
		addr.AccountID, addr.DeviceID, key.KeyID, key.PublicKey, key.Signature); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return previous, nil
}

func (r *keyRepository) GetSignedPreKey(ctx context.Context, addr models.Address) (models.SignedPreKey, error) {
	var key models.SignedPreKey
	row := r.db.QueryRowContext(ctx, findSignedPreKey, addr.AccountID, addr.DeviceID)

	if err := row.Scan(&key.KeyID, &key.PublicKey, &key.Signature); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SignedPreKey{}, ErrNoSignedPreKey
		}

		return models.SignedPreKey{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return key, nil
}

func (r *keyRepository) ClearSignedPreKey(ctx context.Context, addr models.Address) error {
	if _, err := r.db.ExecContext(ctx, deleteSignedPreKey, addr.AccountID, addr.DeviceID); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *keyRepository) SetLastResortPqPreKey(ctx context.Context, addr models.Address, key models.SignedPreKey) (*models.SignedPreKey, error) {
	prev, err := r.GetLastResortPqPreKey(ctx, addr)
	var previous *models.SignedPreKey
	switch {
	case err == nil:
		previous = &prev
	case errors.Is(err, ErrNoLastResortPqPreKey):
		previous = nil
	default:
		return nil, err
	}

	if _, err := r.db.ExecContext(ctx, upsertLastResortPqPreKey,
		addr.AccountID, addr.DeviceID, key.KeyID, key.PublicKey, key.Signature); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return previous, nil
}

func (r *keyRepository) GetLastResortPqPreKey(ctx context.Context, addr models.Address) (models.SignedPreKey, error) {
	var key models.SignedPreKey
	row := r.db.QueryRowContext(ctx, findLastResortPqPreKey, addr.AccountID, addr.DeviceID)

	if err := row.Scan(&key.KeyID, &key.PublicKey, &key.Signature); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SignedPreKey{}, ErrNoLastResortPqPreKey
		}

		return models.SignedPreKey{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return key, nil
}

func (r *keyRepository) ClearLastResortPqPreKey(ctx context.Context, addr models.Address) error {
	if _, err := r.db.ExecContext(ctx, deleteLastResortPqPreKey, addr.AccountID, addr.DeviceID); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *keyRepository) DeleteAllKeys(ctx context.Context, addr models.Address) error {
	for _, query := range []string{deleteAllKeysEC, deleteAllKeysPq, deleteSignedPreKey, deleteLastResortPqPreKey} {
		if _, err := r.db.ExecContext(ctx, query, addr.AccountID, addr.DeviceID); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	return nil
}

func toInt64s(ids []uint32) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
