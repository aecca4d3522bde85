package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/models"
)

// accountRepository is the PostgreSQL-backed implementation of
// [AccountStore]. It handles the "accounts" and "used_link_tokens" tables.
//
// All methods obtain a context-scoped logger via [logger.FromContext] for
// structured, request-level tracing of database interactions.
type accountRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewAccountRepository constructs an [AccountStore] backed by the provided
// database connection and logger.
func NewAccountRepository(db *DB, logger *logger.Logger) AccountStore {
	logger.Debug().Msg("creating account repository")
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAccount persists a new account record.
//
// Error handling:
//   - PostgreSQL unique_violation (23505) → [ErrAccountExists].
//   - Any other driver-level error → wrapped as "unexpected DB error".
func (r *accountRepository) CreateAccount(ctx context.Context, account models.Account) error {
	log := logger.FromContext(ctx)

	_, err := r.db.ExecContext(ctx, createAccount,
		account.AccountID, account.Username, account.IdentityKey, account.CreatedAt)
	if err != nil {
		log.Err(err).Str("func", "*accountRepository.CreateAccount").Msg("error: insert failed")

		switch postgresError(err) {
		case pgerrcode.UniqueViolation:
			return ErrAccountExists
		default:
			return fmt.Errorf("unexpected DB error: %w", err)
		}
	}

	return nil
}

// GetAccount retrieves an account by id, or [ErrAccountNotFound].
func (r *accountRepository) GetAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	log := logger.FromContext(ctx)

	var account models.Account
	row := r.db.QueryRowContext(ctx, findAccountByID, accountID)

	if err := row.Scan(&account.AccountID, &account.Username, &account.IdentityKey, &account.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, ErrAccountNotFound
		}

		log.Err(err).Str("func", "*accountRepository.GetAccount").Msg("error: scanning error")
		return models.Account{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return account, nil
}

// DeleteAccount removes the account row. A delete that affects no rows is
// reported as [ErrAccountNotFound].
func (r *accountRepository) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, deleteAccountByID, accountID)
	if err != nil {
		log.Err(err).Str("func", "*accountRepository.DeleteAccount").Msg("error: delete failed")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// AddUsedLinkToken records a consumed token id.
//
// Error handling:
//   - PostgreSQL unique_violation (23505) → [ErrLinkTokenReused].
func (r *accountRepository) AddUsedLinkToken(ctx context.Context, tokenID string) error {
	log := logger.FromContext(ctx)

	_, err := r.db.ExecContext(ctx, insertUsedLinkToken, tokenID)
	if err != nil {
		log.Err(err).Str("func", "*accountRepository.AddUsedLinkToken").Msg("error: insert failed")

		switch postgresError(err) {
		case pgerrcode.UniqueViolation:
			return ErrLinkTokenReused
		default:
			return fmt.Errorf("unexpected DB error: %w", err)
		}
	}

	return nil
}

// RemoveExpiredLinkTokens drops used-token rows recorded before the given
// time and reports how many were removed.
func (r *accountRepository) RemoveExpiredLinkTokens(ctx context.Context, before time.Time) (int, error) {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, deleteExpiredLinkTokens, before)
	if err != nil {
		log.Err(err).Str("func", "*accountRepository.RemoveExpiredLinkTokens").Msg("error: delete failed")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return int(affected), nil
}
