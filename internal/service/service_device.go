// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sam-im/sam-server/internal/crypto"
	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/store"
	"github.com/sam-im/sam-server/models"
)

// deviceService is the concrete implementation of DeviceService.
type deviceService struct {
	deviceStore  store.DeviceStore
	accountStore store.AccountStore
	keyStore     store.KeyStore
	messageStore store.MessageStore

	keyService KeyService
	linkAuth   *crypto.LinkTokenAuthenticator

	logger *logger.Logger
}

// NewDeviceService constructs a DeviceService. The key service publishes
// initial bundles during enrollment; the link authenticator mints and
// verifies device-link tokens.
func NewDeviceService(
	deviceStore store.DeviceStore,
	accountStore store.AccountStore,
	keyStore store.KeyStore,
	messageStore store.MessageStore,
	keyService KeyService,
	linkAuth *crypto.LinkTokenAuthenticator,
	logger *logger.Logger,
) DeviceService {
	return &deviceService{
		deviceStore:  deviceStore,
		accountStore: accountStore,
		keyStore:     keyStore,
		messageStore: messageStore,
		keyService:   keyService,
		linkAuth:     linkAuth,
		logger:       logger,
	}
}

// EnrollPrimaryDevice creates device 1 for a freshly created account and
// publishes its initial key bundle. On key publication failure the device
// row is removed again so the caller can roll back the account cleanly.
func (s *deviceService) EnrollPrimaryDevice(ctx context.Context, account models.Account, activation models.DeviceActivation, password string) (models.Device, error) {
	return s.enroll(ctx, account, models.PrimaryDeviceID, activation, password)
}

// ProvisionLinkToken mints a link token bound to the account.
func (s *deviceService) ProvisionLinkToken(ctx context.Context, accountID uuid.UUID) (models.LinkToken, error) {
	log := logger.FromContext(ctx)

	token := s.linkAuth.Mint(accountID)

	log.Info().Str("account_id", accountID.String()).Str("token_id", token.ID).Msg("link token provisioned")
	return token, nil
}

// LinkDevice attaches a new device to an existing account.
//
// The token is verified first, then consumed by recording its id in the
// used-token set; only after consumption is the device id allocated and
// the device created. Verification failures carry the token sentinel
// (malformed, wrong signature, expired); a token for an account that no
// longer exists surfaces as [ErrUnauthorized], and a replayed token as
// [store.ErrLinkTokenReused]. Key publication failures roll the device
// back, but the token stays consumed.
func (s *deviceService) LinkDevice(ctx context.Context, req models.LinkDeviceRequest, password string) (models.LinkDeviceResponse, error) {
	log := logger.FromContext(ctx)

	if password == "" {
		return models.LinkDeviceResponse{}, ErrInvalidDataProvided
	}
	if err := validateActivation(req.DeviceActivation); err != nil {
		return models.LinkDeviceResponse{}, err
	}

	accountID, err := s.linkAuth.Verify(req.Token)
	if err != nil {
		log.Err(err).Msg("link token verification failed")
		return models.LinkDeviceResponse{}, fmt.Errorf("link token verification failed: %w", err)
	}

	account, err := s.accountStore.GetAccount(ctx, accountID)
	if err != nil {
		log.Err(err).Str("account_id", accountID.String()).Msg("link target account lookup failed")
		return models.LinkDeviceResponse{}, ErrUnauthorized
	}

	if err := s.accountStore.AddUsedLinkToken(ctx, crypto.LinkTokenID(req.Token)); err != nil {
		if errors.Is(err, store.ErrLinkTokenReused) {
			log.Warn().Str("account_id", accountID.String()).Msg("link token replay rejected")
			return models.LinkDeviceResponse{}, err
		}
		return models.LinkDeviceResponse{}, fmt.Errorf("link token consumption ended with error: %w", err)
	}

	deviceID, err := s.nextDeviceID(ctx, accountID)
	if err != nil {
		return models.LinkDeviceResponse{}, err
	}

	device, err := s.enroll(ctx, account, deviceID, req.DeviceActivation, password)
	if err != nil {
		return models.LinkDeviceResponse{}, err
	}

	log.Info().Str("account_id", accountID.String()).Uint32("device_id", device.DeviceID).Msg("device linked")
	return models.LinkDeviceResponse{
		AccountID: accountID,
		DeviceID:  device.DeviceID,
	}, nil
}

// Unlink removes a non-primary device together with its key material and
// queued envelopes. Device 1 is protected; it only goes away with the
// account.
func (s *deviceService) Unlink(ctx context.Context, addr models.Address) error {
	log := logger.FromContext(ctx)

	if addr.DeviceID == models.PrimaryDeviceID {
		return ErrPrimaryDeviceProtected
	}

	if _, err := s.deviceStore.GetDevice(ctx, addr); err != nil {
		return fmt.Errorf("device lookup ended with error: %w", err)
	}

	if err := s.keyStore.DeleteAllKeys(ctx, addr); err != nil {
		return fmt.Errorf("key cleanup ended with error: %w", err)
	}
	if err := s.messageStore.DeleteAllEnvelopes(ctx, addr); err != nil {
		return fmt.Errorf("message cleanup ended with error: %w", err)
	}
	if err := s.deviceStore.DeleteDevice(ctx, addr); err != nil {
		return fmt.Errorf("device deletion ended with error: %w", err)
	}

	log.Info().Str("address", addr.String()).Msg("device unlinked")
	return nil
}

// GetDevices lists the account's devices in ascending device id order.
func (s *deviceService) GetDevices(ctx context.Context, accountID uuid.UUID) ([]models.Device, error) {
	devices, err := s.deviceStore.GetDevices(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("device listing ended with error: %w", err)
	}
	return devices, nil
}

// enroll creates a device row at the given id, derives its password hash,
// and publishes the activation's key bundle. A publication failure removes
// the device row again.
func (s *deviceService) enroll(ctx context.Context, account models.Account, deviceID uint32, activation models.DeviceActivation, password string) (models.Device, error) {
	log := logger.FromContext(ctx)

	credential, err := crypto.GeneratePassword(password)
	if err != nil {
		return models.Device{}, fmt.Errorf("password generation ended with error: %w", err)
	}

	device := models.Device{
		AccountID:      account.AccountID,
		DeviceID:       deviceID,
		Name:           activation.Name,
		RegistrationID: activation.RegistrationID,
		PasswordHash:   credential.Hash,
		PasswordSalt:   credential.Salt,
		CreatedAt:      time.Now(),
	}

	if err := s.deviceStore.CreateDevice(ctx, device); err != nil {
		log.Err(err).Str("address", device.Addr().String()).Msg("device creation ended with error")
		return models.Device{}, fmt.Errorf("device creation ended with error: %w", err)
	}

	if err := s.keyService.Publish(ctx, device.Addr(), account.IdentityKey, activation.KeyBundle); err != nil {
		log.Err(err).Str("address", device.Addr().String()).Msg("initial key publication failed, rolling back device")

		if rollbackErr := s.deviceStore.DeleteDevice(ctx, device.Addr()); rollbackErr != nil {
			log.Err(rollbackErr).Str("address", device.Addr().String()).Msg("device rollback failed")
		}

		return models.Device{}, fmt.Errorf("initial key publication failed: %w", err)
	}

	return device, nil
}

// nextDeviceID allocates the lowest free device id for the account.
// Existing ids arrive sorted ascending; the first gap wins, otherwise
// len+1.
func (s *deviceService) nextDeviceID(ctx context.Context, accountID uuid.UUID) (uint32, error) {
	devices, err := s.deviceStore.GetDevices(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("device listing ended with error: %w", err)
	}

	ids := make([]uint32, 0, len(devices))
	for _, device := range devices {
		ids = append(ids, device.DeviceID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	next := uint32(len(ids) + 1)
	for i, id := range ids {
		if id != uint32(i+1) {
			next = uint32(i + 1)
			break
		}
	}

	return next, nil
}
