// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sam-im/sam-server/internal/crypto"
	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/store"
	"github.com/sam-im/sam-server/models"
)

// keyService is the concrete implementation of KeyService.
type keyService struct {
	keyStore     store.KeyStore
	accountStore store.AccountStore
	deviceStore  store.DeviceStore

	logger *logger.Logger
}

// NewKeyService constructs a KeyService over the key directory and the
// account and device stores it resolves identities and devices through.
func NewKeyService(keyStore store.KeyStore, accountStore store.AccountStore, deviceStore store.DeviceStore, logger *logger.Logger) KeyService {
	return &keyService{
		keyStore:     keyStore,
		accountStore: accountStore,
		deviceStore:  deviceStore,
		logger:       logger,
	}
}

// Publish stores a published key bundle for addr.
//
// All signed entries are verified against identityKey before anything is
// written, so a bad signature anywhere leaves the directory untouched. The
// writes themselves run in a fixed order with compensation: a store error
// mid-way removes the keys appended so far and restores replaced singleton
// keys.
func (s *keyService) Publish(ctx context.Context, addr models.Address, identityKey []byte, bundle models.KeyBundle) error {
	log := logger.FromContext(ctx)

	if err := verifyBundleSignatures(identityKey, bundle); err != nil {
		log.Err(err).Str("address", addr.String()).Msg("key bundle signature verification failed")
		return err
	}

	var applied []func()

	rollback := func() {
		for i := len(applied) - 1; i >= 0; i-- {
			applied[i]()
		}
	}

	if len(bundle.PreKeys) > 0 {
		if err := s.keyStore.AddPreKeys(ctx, addr, bundle.PreKeys); err != nil {
			return fmt.Errorf("pre-key append ended with error: %w", err)
		}
		ids := preKeyIDs(bundle.PreKeys)
		applied = append(applied, func() {
			if err := s.keyStore.RemovePreKeys(ctx, addr, ids); err != nil {
				log.Err(err).Str("address", addr.String()).Msg("pre-key rollback failed")
			}
		})
	}

	if len(bundle.PqPreKeys) > 0 {
		if err := s.keyStore.AddPqPreKeys(ctx, addr, bundle.PqPreKeys); err != nil {
			rollback()
			return fmt.Errorf("pq pre-key append ended with error: %w", err)
		}
		ids := signedPreKeyIDs(bundle.PqPreKeys)
		applied = append(applied, func() {
			if err := s.keyStore.RemovePqPreKeys(ctx, addr, ids); err != nil {
				log.Err(err).Str("address", addr.String()).Msg("pq pre-key rollback failed")
			}
		})
	}

	if bundle.SignedPreKey != nil {
		previous, err := s.keyStore.SetSignedPreKey(ctx, addr, *bundle.SignedPreKey)
		if err != nil {
			rollback()
			return fmt.Errorf("signed pre-key replacement ended with error: %w", err)
		}
		applied = append(applied, func() {
			s.restoreSignedPreKey(ctx, addr, previous)
		})
	}

	if bundle.PqLastResortPreKey != nil {
		if _, err := s.keyStore.SetLastResortPqPreKey(ctx, addr, *bundle.PqLastResortPreKey); err != nil {
			rollback()
			return fmt.Errorf("last-resort pq key replacement ended with error: %w", err)
		}
	}

	log.Info().
		Str("address", addr.String()).
		Int("pre_keys", len(bundle.PreKeys)).
		Int("pq_pre_keys", len(bundle.PqPreKeys)).
		Bool("signed_pre_key", bundle.SignedPreKey != nil).
		Bool("pq_last_resort", bundle.PqLastResortPreKey != nil).
		Msg("key bundle published")
	return nil
}

// AssembleBundle consumes key material for one device.
//
// The EC one-time key is optional: an empty EC pool yields a nil PreKey.
// The PQ slot always fills, from a consumed one-time PQ key if any remain,
// otherwise from the persistent last-resort key; a device with neither
// fails with [ErrNoPqKey]. A device without a signed pre-key fails with
// [ErrNoSignedKey].
func (s *keyService) AssembleBundle(ctx context.Context, device models.Device) (models.PreKeyBundle, error) {
	addr := device.Addr()

	signedPreKey, err := s.keyStore.GetSignedPreKey(ctx, addr)
	if err != nil {
		if errors.Is(err, store.ErrNoSignedPreKey) {
			return models.PreKeyBundle{}, ErrNoSignedKey
		}
		return models.PreKeyBundle{}, fmt.Errorf("signed pre-key read ended with error: %w", err)
	}

	bundle := models.PreKeyBundle{
		DeviceID:       device.DeviceID,
		RegistrationID: device.RegistrationID,
		SignedPreKey:   signedPreKey,
	}

	preKey, err := s.keyStore.TakePreKey(ctx, addr)
	switch {
	case err == nil:
		bundle.PreKey = &preKey
	case errors.Is(err, store.ErrNoPreKey):
		// EC pool exhausted; the bundle goes out without a one-time key.
	default:
		return models.PreKeyBundle{}, fmt.Errorf("pre-key take ended with error: %w", err)
	}

	pqPreKey, err := s.keyStore.TakePqPreKey(ctx, addr)
	switch {
	case err == nil:
		bundle.PqPreKey = &pqPreKey
	case errors.Is(err, store.ErrNoPqPreKey):
		lastResort, lrErr := s.keyStore.GetLastResortPqPreKey(ctx, addr)
		if lrErr != nil {
			if errors.Is(lrErr, store.ErrNoLastResortPqPreKey) {
				return models.PreKeyBundle{}, ErrNoPqKey
			}
			return models.PreKeyBundle{}, fmt.Errorf("last-resort pq key read ended with error: %w", lrErr)
		}
		bundle.PqPreKey = &lastResort
	default:
		return models.PreKeyBundle{}, fmt.Errorf("pq pre-key take ended with error: %w", err)
	}

	return bundle, nil
}

// AssembleForAccount answers a directory query for a whole account: the
// identity key plus one consumed bundle per device in ascending device id
// order.
func (s *keyService) AssembleForAccount(ctx context.Context, accountID uuid.UUID) (models.PreKeyBundles, error) {
	account, err := s.accountStore.GetAccount(ctx, accountID)
	if err != nil {
		return models.PreKeyBundles{}, fmt.Errorf("account lookup ended with error: %w", err)
	}

	devices, err := s.deviceStore.GetDevices(ctx, accountID)
	if err != nil {
		return models.PreKeyBundles{}, fmt.Errorf("device listing ended with error: %w", err)
	}

	bundles := models.PreKeyBundles{
		IdentityKey: account.IdentityKey,
		Bundles:     make([]models.PreKeyBundle, 0, len(devices)),
	}

	for _, device := range devices {
		bundle, err := s.AssembleBundle(ctx, device)
		if err != nil {
			return models.PreKeyBundles{}, fmt.Errorf("bundle assembly for device %d ended with error: %w", device.DeviceID, err)
		}
		bundles.Bundles = append(bundles.Bundles, bundle)
	}

	return bundles, nil
}

// restoreSignedPreKey undoes a signed pre-key replacement during rollback:
// the previous key is put back, or the slot cleared if there was none.
func (s *keyService) restoreSignedPreKey(ctx context.Context, addr models.Address, previous *models.SignedPreKey) {
	log := logger.FromContext(ctx)

	var err error
	if previous != nil {
		_, err = s.keyStore.SetSignedPreKey(ctx, addr, *previous)
	} else {
		err = s.keyStore.ClearSignedPreKey(ctx, addr)
	}
	if err != nil {
		log.Err(err).Str("address", addr.String()).Msg("signed pre-key rollback failed")
	}
}

// verifyBundleSignatures checks every signed entry of the bundle against
// the account identity key before any write happens.
func verifyBundleSignatures(identityKey []byte, bundle models.KeyBundle) error {
	for _, key := range bundle.PqPreKeys {
		if err := crypto.VerifySignedKey(identityKey, key.PublicKey, key.Signature); err != nil {
			return err
		}
	}
	if bundle.SignedPreKey != nil {
		if err := crypto.VerifySignedKey(identityKey, bundle.SignedPreKey.PublicKey, bundle.SignedPreKey.Signature); err != nil {
			return err
		}
	}
	if bundle.PqLastResortPreKey != nil {
		if err := crypto.VerifySignedKey(identityKey, bundle.PqLastResortPreKey.PublicKey, bundle.PqLastResortPreKey.Signature); err != nil {
			return err
		}
	}
	return nil
}

func preKeyIDs(keys []models.PreKey) []uint32 {
	ids := make([]uint32, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, key.KeyID)
	}
	return ids
}

func signedPreKeyIDs(keys []models.SignedPreKey) []uint32 {
	ids := make([]uint32, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, key.KeyID)
	}
	return ids
}
