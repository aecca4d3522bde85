package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sam-im/sam-server/models"
)

// Hand-rolled store mocks: each method delegates to a func field so tests
// only wire the calls they expect. An unset field panics, which fails the
// test loudly on unexpected store access.

type mockAccountStore struct {
	createAccountFn           func(ctx context.Context, account models.Account) error
	getAccountFn              func(ctx context.Context, accountID uuid.UUID) (models.Account, error)
	deleteAccountFn           func(ctx context.Context, accountID uuid.UUID) error
	addUsedLinkTokenFn        func(ctx context.Context, tokenID string) error
	removeExpiredLinkTokensFn func(ctx context.Context, before time.Time) (int, error)
}

func (m *mockAccountStore) CreateAccount(ctx context.Context, account models.Account) error {
	return m.createAccountFn(ctx, account)
}

func (m *mockAccountStore) GetAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	return m.getAccountFn(ctx, accountID)
}

func (m *mockAccountStore) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	return m.deleteAccountFn(ctx, accountID)
}

func (m *mockAccountStore) AddUsedLinkToken(ctx context.Context, tokenID string) error {
	return m.addUsedLinkTokenFn(ctx, tokenID)
}

func (m *mockAccountStore) RemoveExpiredLinkTokens(ctx context.Context, before time.Time) (int, error) {
	return m.removeExpiredLinkTokensFn(ctx, before)
}

type mockDeviceStore struct {
	createDeviceFn func(ctx context.Context, device models.Device) error
	getDeviceFn    func(ctx context.Context, addr models.Address) (models.Device, error)
	getDevicesFn   func(ctx context.Context, accountID uuid.UUID) ([]models.Device, error)
	deleteDeviceFn func(ctx context.Context, addr models.Address) error
}

func (m *mockDeviceStore) CreateDevice(ctx context.Context, device models.Device) error {
	return m.createDeviceFn(ctx, device)
}

func (m *mockDeviceStore) GetDevice(ctx context.Context, addr models.Address) (models.Device, error) {
	return m.getDeviceFn(ctx, addr)
}

func (m *mockDeviceStore) GetDevices(ctx context.Context, accountID uuid.UUID) ([]models.Device, error) {
	return m.getDevicesFn(ctx, accountID)
}

func (m *mockDeviceStore) DeleteDevice(ctx context.Context, addr models.Address) error {
	return m.deleteDeviceFn(ctx, addr)
}

type mockKeyStore struct {
	addPreKeysFn              func(ctx context.Context, addr models.Address, keys []models.PreKey) error
	takePreKeyFn              func(ctx context.Context, addr models.Address) (models.PreKey, error)
	removePreKeysFn           func(ctx context.Context, addr models.Address, keyIDs []uint32) error
	addPqPreKeysFn            func(ctx context.Context, addr models.Address, keys []models.SignedPreKey) error
	takePqPreKeyFn            func(ctx context.Context, addr models.Address) (models.SignedPreKey, error)
	removePqPreKeysFn         func(ctx context.Context, addr models.Address, keyIDs []uint32) error
	setSignedPreKeyFn         func(ctx context.Context, addr models.Address, key models.SignedPreKey) (*models.SignedPreKey, error)
	getSignedPreKeyFn         func(ctx context.Context, addr models.Address) (models.SignedPreKey, error)
	clearSignedPreKeyFn       func(ctx context.Context, addr models.Address) error
	setLastResortPqPreKeyFn   func(ctx context.Context, addr models.Address, key models.SignedPreKey) (*models.SignedPreKey, error)
	getLastResortPqPreKeyFn   func(ctx context.Context, addr models.Address) (models.SignedPreKey, error)
	clearLastResortPqPreKeyFn func(ctx context.Context, addr models.Address) error
	deleteAllKeysFn           func(ctx context.Context, addr models.Address) error
}

func (m *mockKeyStore) AddPreKeys(ctx context.Context, addr models.Address, keys []models.PreKey) error {
	return m.addPreKeysFn(ctx, addr, keys)
}

func (m *mockKeyStore) TakePreKey(ctx context.Context, addr models.Address) (models.PreKey, error) {
	return m.takePreKeyFn(ctx, addr)
}

func (m *mockKeyStore) RemovePreKeys(ctx context.Context, addr models.Address, keyIDs []uint32) error {
	return m.removePreKeysFn(ctx, addr, keyIDs)
}

func (m *mockKeyStore) AddPqPreKeys(ctx context.Context, addr models.Address, keys []models.SignedPreKey) error {
	return m.addPqPreKeysFn(ctx, addr, keys)
}

func (m *mockKeyStore) TakePqPreKey(ctx context.Context, addr models.Address) (models.SignedPreKey, error) {
	return m.takePqPreKeyFn(ctx, addr)
}

func (m *mockKeyStore) RemovePqPreKeys(ctx context.Context, addr models.Address, keyIDs []uint32) error {
	return m.removePqPreKeysFn(ctx, addr, keyIDs)
}

func (m *mockKeyStore) SetSignedPreKey(ctx context.Context, addr models.Address, key models.SignedPreKey) (*models.SignedPreKey, error) {
	return m.setSignedPreKeyFn(ctx, addr, key)
}

func (m *mockKeyStore) GetSignedPreKey(ctx context.Context, addr models.Address) (models.SignedPreKey, error) {
	return m.getSignedPreKeyFn(ctx, addr)
}

func (m *mockKeyStore) ClearSignedPreKey(ctx context.Context, addr models.Address) error {
	return m.clearSignedPreKeyFn(ctx, addr)
}

func (m *mockKeyStore) SetLastResortPqPreKey(ctx context.Context, addr models.Address, key models.SignedPreKey) (*models.SignedPreKey, error) {
	return m.setLastResortPqPreKeyFn(ctx, addr, key)
}

func (m *mockKeyStore) GetLastResortPqPreKey(ctx context.Context, addr models.Address) (models.SignedPreKey, error) {
	return m.getLastResortPqPreKeyFn(ctx, addr)
}

func (m *mockKeyStore) ClearLastResortPqPreKey(ctx context.Context, addr models.Address) error {
	return m.clearLastResortPqPreKeyFn(ctx, addr)
}

func (m *mockKeyStore) DeleteAllKeys(ctx context.Context, addr models.Address) error {
	return m.deleteAllKeysFn(ctx, addr)
}

type mockMessageStore struct {
	addEnvelopeFn        func(ctx context.Context, envelope models.ServerEnvelope) error
	getEnvelopeFn        func(ctx context.Context, addr models.Address, id uuid.UUID) (models.ServerEnvelope, error)
	deleteEnvelopeFn     func(ctx context.Context, addr models.Address, id uuid.UUID) error
	envelopeIDsFn        func(ctx context.Context, addr models.Address) ([]uuid.UUID, error)
	deleteAllEnvelopesFn func(ctx context.Context, addr models.Address) error
}

func (m *mockMessageStore) AddEnvelope(ctx context.Context, envelope models.ServerEnvelope) error {
	return m.addEnvelopeFn(ctx, envelope)
}

func (m *mockMessageStore) GetEnvelope(ctx context.Context, addr models.Address, id uuid.UUID) (models.ServerEnvelope, error) {
	return m.getEnvelopeFn(ctx, addr, id)
}

func (m *mockMessageStore) DeleteEnvelope(ctx context.Context, addr models.Address, id uuid.UUID) error {
	return m.deleteEnvelopeFn(ctx, addr, id)
}

func (m *mockMessageStore) EnvelopeIDs(ctx context.Context, addr models.Address) ([]uuid.UUID, error) {
	return m.envelopeIDsFn(ctx, addr)
}

func (m *mockMessageStore) DeleteAllEnvelopes(ctx context.Context, addr models.Address) error {
	return m.deleteAllEnvelopesFn(ctx, addr)
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
