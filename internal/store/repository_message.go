package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/models"
)

// messageRepository is the PostgreSQL-backed implementation of
// [MessageStore]. Queue order is the bigserial "seq" column assigned at
// insert time.
type messageRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewMessageRepository constructs a [MessageStore] backed by the provided
// database connection and logger.
func NewMessageRepository(db *DB, logger *logger.Logger) MessageStore {
	logger.Debug().Msg("creating message repository")
	return &messageRepository{
		db:     db,
		logger: logger,
	}
}

func (r *messageRepository) AddEnvelope(ctx context.Context, envelope models.ServerEnvelope) error {
	log := logger.FromContext(ctx)

	_, err := r.db.ExecContext(ctx, insertEnvelope,
		envelope.ID, envelope.DestAccountID, envelope.DestDeviceID,
		envelope.Type, envelope.SrcAccountID, envelope.SrcDeviceID, envelope.Content)
	if err != nil {
		log.Err(err).Str("func", "*messageRepository.AddEnvelope").Msg("error: insert failed")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *messageRepository) GetEnvelope(ctx context.Context, addr models.Address, id uuid.UUID) (models.ServerEnvelope, error) {
	log := logger.FromContext(ctx)

	var envelope models.ServerEnvelope
	row := r.db.QueryRowContext(ctx, findEnvelope, addr.AccountID, addr.DeviceID, id)

	if err := row.Scan(&envelope.ID, &envelope.DestAccountID, &envelope.DestDeviceID,
		&envelope.Type, &envelope.SrcAccountID, &envelope.SrcDeviceID, &envelope.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ServerEnvelope{}, ErrEnvelopeMissing
		}

		log.Err(err).Str("func", "*messageRepository.GetEnvelope").Msg("error: scanning error")
		return models.ServerEnvelope{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return envelope, nil
}

func (r *messageRepository) DeleteEnvelope(ctx context.Context, addr models.Address, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, deleteEnvelope, addr.AccountID, addr.DeviceID, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		return ErrEnvelopeMissing
	}

	return nil
}

func (r *messageRepository) EnvelopeIDs(ctx context.Context, addr models.Address) ([]uuid.UUID, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, findEnvelopeIDs, addr.AccountID, addr.DeviceID)
	if err != nil {
		log.Err(err).Str("func", "*messageRepository.EnvelopeIDs").Msg("error: query failed")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0, 16)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return ids, nil
}

func (r *messageRepository) DeleteAllEnvelopes(ctx context.Context, addr models.Address) error {
	if _, err := r.db.ExecContext(ctx, deleteAllEnvelopes, addr.AccountID, addr.DeviceID); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}
