package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/store"
	"github.com/sam-im/sam-server/models"
)

// accountService is the concrete implementation of AccountService.
//
// It orchestrates the multi-store sequences that account creation and
// deletion require. There are no cross-store transactions; consistency
// comes from the mandated ordering plus best-effort compensating cleanup.
type accountService struct {
	accountStore store.AccountStore
	deviceStore  store.DeviceStore
	keyStore     store.KeyStore
	messageStore store.MessageStore

	deviceService DeviceService

	logger *logger.Logger
}

// NewAccountService constructs an AccountService wired to the four stores
// and the device service used for primary-device enrollment.
func NewAccountService(
	accountStore store.AccountStore,
	deviceStore store.DeviceStore,
	keyStore store.KeyStore,
	messageStore store.MessageStore,
	deviceService DeviceService,
	logger *logger.Logger,
) AccountService {
	return &accountService{
		accountStore:  accountStore,
		deviceStore:   deviceStore,
		keyStore:      keyStore,
		messageStore:  messageStore,
		deviceService: deviceService,
		logger:        logger,
	}
}

// Register creates a new account.
//
// It mints a fresh account id, persists the account with the supplied
// identity key, then delegates to the device service to enroll device 1
// with the activation payload. If enrollment fails the account row is
// removed again so a failed registration is not observable.
func (s *accountService) Register(ctx context.Context, req models.RegistrationRequest, username, password string) (models.RegistrationResponse, error) {
	log := logger.FromContext(ctx)

	if username == "" || password == "" || len(req.IdentityKey) == 0 {
		log.Error().Str("username", username).Msg("invalid registration data provided")
		return models.RegistrationResponse{}, ErrInvalidDataProvided
	}
	if err := validateActivation(req.DeviceActivation); err != nil {
		log.Err(err).Msg("invalid device activation provided")
		return models.RegistrationResponse{}, err
	}

	account := models.Account{
		AccountID:   uuid.New(),
		Username:    username,
		IdentityKey: req.IdentityKey,
		CreatedAt:   time.Now(),
	}

	if err := s.accountStore.CreateAccount(ctx, account); err != nil {
		log.Err(err).Msg("account creation ended with error")
		return models.RegistrationResponse{}, fmt.Errorf("account creation ended with error: %w", err)
	}

	if _, err := s.deviceService.EnrollPrimaryDevice(ctx, account, req.DeviceActivation, password); err != nil {
		log.Err(err).Str("account_id", account.AccountID.String()).Msg("primary device enrollment failed, rolling back account")

		// Best-effort compensation; the original error is the one reported.
		if rollbackErr := s.accountStore.DeleteAccount(ctx, account.AccountID); rollbackErr != nil {
			log.Err(rollbackErr).Str("account_id", account.AccountID.String()).Msg("account rollback failed")
		}

		return models.RegistrationResponse{}, fmt.Errorf("primary device enrollment failed: %w", err)
	}

	log.Info().Str("account_id", account.AccountID.String()).Msg("account registered")
	return models.RegistrationResponse{AccountID: account.AccountID}, nil
}

// Delete removes the account and everything it owns.
//
// Per device, in order: key material, queued envelopes, the device row.
// The account row goes last. The ordering guarantees that once any
// teardown step is observable, no dangling keys or messages remain behind
// a still-visible account.
func (s *accountService) Delete(ctx context.Context, accountID uuid.UUID) error {
	log := logger.FromContext(ctx)

	devices, err := s.deviceStore.GetDevices(ctx, accountID)
	if err != nil {
		log.Err(err).Str("account_id", accountID.String()).Msg("device listing failed during account deletion")
		return fmt.Errorf("device listing failed during account deletion: %w", err)
	}

	for _, device := range devices {
		addr := device.Addr()

		if err := s.keyStore.DeleteAllKeys(ctx, addr); err != nil {
			return fmt.Errorf("key cleanup failed for device %d: %w", device.DeviceID, err)
		}
		if err := s.messageStore.DeleteAllEnvelopes(ctx, addr); err != nil {
			return fmt.Errorf("message cleanup failed for device %d: %w", device.DeviceID, err)
		}
		if err := s.deviceStore.DeleteDevice(ctx, addr); err != nil {
			return fmt.Errorf("device deletion failed for device %d: %w", device.DeviceID, err)
		}
	}

	if err := s.accountStore.DeleteAccount(ctx, accountID); err != nil {
		log.Err(err).Str("account_id", accountID.String()).Msg("account deletion failed")
		return fmt.Errorf("account deletion failed: %w", err)
	}

	log.Info().Str("account_id", accountID.String()).Int("devices", len(devices)).Msg("account deleted")
	return nil
}

// validateActivation checks the client-supplied device activation payload.
// Registration ids are 14-bit values and must not be zero.
func validateActivation(activation models.DeviceActivation) error {
	if activation.RegistrationID == 0 || activation.RegistrationID > models.MaxRegistrationID {
		return ErrInvalidDataProvided
	}
	return nil
}
