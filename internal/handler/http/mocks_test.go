package http

import (
	"context"

	"github.com/google/uuid"

	"github.com/sam-im/sam-server/models"
)

// Hand-rolled service mocks with func fields; unset fields panic so tests
// fail loudly on unexpected service calls.

type mockAuthService struct {
	authenticateFn func(ctx context.Context, accountID uuid.UUID, deviceID uint32, password string) (models.AuthenticatedUser, error)
}

func (m *mockAuthService) Authenticate(ctx context.Context, accountID uuid.UUID, deviceID uint32, password string) (models.AuthenticatedUser, error) {
	return m.authenticateFn(ctx, accountID, deviceID, password)
}

type mockAccountService struct {
	registerFn func(ctx context.Context, req models.RegistrationRequest, username, password string) (models.RegistrationResponse, error)
	deleteFn   func(ctx context.Context, accountID uuid.UUID) error
}

func (m *mockAccountService) Register(ctx context.Context, req models.RegistrationRequest, username, password string) (models.RegistrationResponse, error) {
	return m.registerFn(ctx, req, username, password)
}

func (m *mockAccountService) Delete(ctx context.Context, accountID uuid.UUID) error {
	return m.deleteFn(ctx, accountID)
}

type mockDeviceService struct {
	enrollPrimaryDeviceFn func(ctx context.Context, account models.Account, activation models.DeviceActivation, password string) (models.Device, error)
	provisionLinkTokenFn  func(ctx context.Context, accountID uuid.UUID) (models.LinkToken, error)
	linkDeviceFn          func(ctx context.Context, req models.LinkDeviceRequest, password string) (models.LinkDeviceResponse, error)
	unlinkFn              func(ctx context.Context, addr models.Address) error
	getDevicesFn          func(ctx context.Context, accountID uuid.UUID) ([]models.Device, error)
}

func (m *mockDeviceService) EnrollPrimaryDevice(ctx context.Context, account models.Account, activation models.DeviceActivation, password string) (models.Device, error) {
	return m.enrollPrimaryDeviceFn(ctx, account, activation, password)
}

func (m *mockDeviceService) ProvisionLinkToken(ctx context.Context, accountID uuid.UUID) (models.LinkToken, error) {
	return m.provisionLinkTokenFn(ctx, accountID)
}

func (m *mockDeviceService) LinkDevice(ctx context.Context, req models.LinkDeviceRequest, password string) (models.LinkDeviceResponse, error) {
	return m.linkDeviceFn(ctx, req, password)
}

func (m *mockDeviceService) Unlink(ctx context.Context, addr models.Address) error {
	return m.unlinkFn(ctx, addr)
}

func (m *mockDeviceService) GetDevices(ctx context.Context, accountID uuid.UUID) ([]models.Device, error) {
	return m.getDevicesFn(ctx, accountID)
}

type mockKeyService struct {
	publishFn            func(ctx context.Context, addr models.Address, identityKey []byte, bundle models.KeyBundle) error
	assembleBundleFn     func(ctx context.Context, device models.Device) (models.PreKeyBundle, error)
	assembleForAccountFn func(ctx context.Context, accountID uuid.UUID) (models.PreKeyBundles, error)
}

func (m *mockKeyService) Publish(ctx context.Context, addr models.Address, identityKey []byte, bundle models.KeyBundle) error {
	return m.publishFn(ctx, addr, identityKey, bundle)
}

func (m *mockKeyService) AssembleBundle(ctx context.Context, device models.Device) (models.PreKeyBundle, error) {
	return m.assembleBundleFn(ctx, device)
}

func (m *mockKeyService) AssembleForAccount(ctx context.Context, accountID uuid.UUID) (models.PreKeyBundles, error) {
	return m.assembleForAccountFn(ctx, accountID)
}
