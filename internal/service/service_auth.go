package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/sam-im/sam-server/internal/crypto"
	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/store"
	"github.com/sam-im/sam-server/models"
)

// authService is the concrete implementation of AuthService. It resolves
// basic auth credentials against the account and device stores and checks
// the password with the constant-time Argon2id verifier.
type authService struct {
	accountStore store.AccountStore
	deviceStore  store.DeviceStore

	// logger is the structured logger used for diagnostic and error output.
	logger *logger.Logger
}

// NewAuthService constructs a new AuthService wired to the given stores.
//
// The returned service is safe for concurrent use; all state is read-only
// after construction.
func NewAuthService(accountStore store.AccountStore, deviceStore store.DeviceStore, logger *logger.Logger) AuthService {
	return &authService{
		accountStore: accountStore,
		deviceStore:  deviceStore,
		logger:       logger,
	}
}

// Authenticate resolves the caller behind "accountID.deviceID:password"
// credentials.
//
// Missing account, missing device, and wrong password all collapse into
// [ErrUnauthorized]; the distinction is logged server-side only.
func (a *authService) Authenticate(ctx context.Context, accountID uuid.UUID, deviceID uint32, password string) (models.AuthenticatedUser, error) {
	log := logger.FromContext(ctx)

	account, err := a.accountStore.GetAccount(ctx, accountID)
	if err != nil {
		log.Err(err).Str("account_id", accountID.String()).Msg("authentication failed: account lookup")
		return models.AuthenticatedUser{}, ErrUnauthorized
	}

	device, err := a.deviceStore.GetDevice(ctx, models.Address{AccountID: accountID, DeviceID: deviceID})
	if err != nil {
		log.Err(err).Str("account_id", accountID.String()).Uint32("device_id", deviceID).Msg("authentication failed: device lookup")
		return models.AuthenticatedUser{}, ErrUnauthorized
	}

	stored := crypto.Password{Hash: device.PasswordHash, Salt: device.PasswordSalt}
	if !stored.Verify(password) {
		log.Warn().Str("account_id", accountID.String()).Uint32("device_id", deviceID).Msg("authentication failed: wrong password")
		return models.AuthenticatedUser{}, ErrUnauthorized
	}

	return models.AuthenticatedUser{Account: account, Device: device}, nil
}
