package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sam-im/sam-server/internal/crypto"
	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/store"
	"github.com/sam-im/sam-server/models"
)

// signedKey builds a SignedPreKey whose signature verifies under priv's
// public key.
func signedKey(t *testing.T, priv ed25519.PrivateKey, keyID uint32) models.SignedPreKey {
	t.Helper()

	publicKey := []byte("public-key-material")
	return models.SignedPreKey{
		KeyID:     keyID,
		PublicKey: publicKey,
		Signature: ed25519.Sign(priv, publicKey),
	}
}

func TestKeyService_Publish(t *testing.T) {
	identityPub, identityPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	addr := models.Address{AccountID: uuid.New(), DeviceID: 1}

	t.Run("stores a full bundle", func(t *testing.T) {
		signed := signedKey(t, identityPriv, 10)
		lastResort := signedKey(t, identityPriv, 11)
		pq := signedKey(t, identityPriv, 12)

		var addedPre []models.PreKey
		var addedPq []models.SignedPreKey
		var setSigned, setLastResort *models.SignedPreKey

		keys := &mockKeyStore{
			addPreKeysFn: func(_ context.Context, got models.Address, keys []models.PreKey) error {
				assert.Equal(t, addr, got)
				addedPre = keys
				return nil
			},
			addPqPreKeysFn: func(_ context.Context, _ models.Address, keys []models.SignedPreKey) error {
				addedPq = keys
				return nil
			},
			setSignedPreKeyFn: func(_ context.Context, _ models.Address, key models.SignedPreKey) (*models.SignedPreKey, error) {
				setSigned = &key
				return nil, nil
			},
			setLastResortPqPreKeyFn: func(_ context.Context, _ models.Address, key models.SignedPreKey) (*models.SignedPreKey, error) {
				setLastResort = &key
				return nil, nil
			},
		}

		svc := NewKeyService(keys, nil, nil, logger.Nop())

		err := svc.Publish(context.Background(), addr, identityPub, models.KeyBundle{
			PreKeys:            []models.PreKey{{KeyID: 1, PublicKey: []byte("ec")}},
			PqPreKeys:          []models.SignedPreKey{pq},
			SignedPreKey:       &signed,
			PqLastResortPreKey: &lastResort,
		})
		require.NoError(t, err)
		assert.Len(t, addedPre, 1)
		assert.Len(t, addedPq, 1)
		require.NotNil(t, setSigned)
		assert.Equal(t, signed, *setSigned)
		require.NotNil(t, setLastResort)
		assert.Equal(t, lastResort, *setLastResort)
	})

	t.Run("bad signature rejects the whole bundle", func(t *testing.T) {
		signed := signedKey(t, identityPriv, 10)
		signed.Signature[0] ^= 0x01

		svc := NewKeyService(&mockKeyStore{}, nil, nil, logger.Nop())

		err := svc.Publish(context.Background(), addr, identityPub, models.KeyBundle{
			PreKeys:      []models.PreKey{{KeyID: 1, PublicKey: []byte("ec")}},
			SignedPreKey: &signed,
		})
		assert.ErrorIs(t, err, crypto.ErrKeyVerificationFailed)
	})

	t.Run("store failure rolls back applied steps", func(t *testing.T) {
		signed := signedKey(t, identityPriv, 10)
		pq := signedKey(t, identityPriv, 12)
		storeErr := errors.New("disk full")

		var removedPre, removedPq []uint32
		var clearedSigned bool

		keys := &mockKeyStore{
			addPreKeysFn: func(context.Context, models.Address, []models.PreKey) error { return nil },
			addPqPreKeysFn: func(context.Context, models.Address, []models.SignedPreKey) error {
				return nil
			},
			setSignedPreKeyFn: func(context.Context, models.Address, models.SignedPreKey) (*models.SignedPreKey, error) {
				return nil, nil
			},
			setLastResortPqPreKeyFn: func(context.Context, models.Address, models.SignedPreKey) (*models.SignedPreKey, error) {
				return nil, storeErr
			},
			removePreKeysFn: func(_ context.Context, _ models.Address, keyIDs []uint32) error {
				removedPre = keyIDs
				return nil
			},
			removePqPreKeysFn: func(_ context.Context, _ models.Address, keyIDs []uint32) error {
				removedPq = keyIDs
				return nil
			},
			clearSignedPreKeyFn: func(context.Context, models.Address) error {
				clearedSigned = true
				return nil
			},
		}

		svc := NewKeyService(keys, nil, nil, logger.Nop())

		lastResort := signedKey(t, identityPriv, 11)
		err := svc.Publish(context.Background(), addr, identityPub, models.KeyBundle{
			PreKeys:            []models.PreKey{{KeyID: 1, PublicKey: []byte("ec")}},
			PqPreKeys:          []models.SignedPreKey{pq},
			SignedPreKey:       &signed,
			PqLastResortPreKey: &lastResort,
		})
		assert.ErrorIs(t, err, storeErr)
		assert.Equal(t, []uint32{1}, removedPre)
		assert.Equal(t, []uint32{12}, removedPq)
		assert.True(t, clearedSigned)
	})

	t.Run("rollback restores a replaced signed pre-key", func(t *testing.T) {
		previous := signedKey(t, identityPriv, 9)
		signed := signedKey(t, identityPriv, 10)
		lastResort := signedKey(t, identityPriv, 11)
		storeErr := errors.New("disk full")

		var restored []models.SignedPreKey

		keys := &mockKeyStore{
			setSignedPreKeyFn: func(_ context.Context, _ models.Address, key models.SignedPreKey) (*models.SignedPreKey, error) {
				restored = append(restored, key)
				return &previous, nil
			},
			setLastResortPqPreKeyFn: func(context.Context, models.Address, models.SignedPreKey) (*models.SignedPreKey, error) {
				return nil, storeErr
			},
		}

		svc := NewKeyService(keys, nil, nil, logger.Nop())

		err := svc.Publish(context.Background(), addr, identityPub, models.KeyBundle{
			SignedPreKey:       &signed,
			PqLastResortPreKey: &lastResort,
		})
		assert.ErrorIs(t, err, storeErr)
		require.Len(t, restored, 2)
		assert.Equal(t, signed, restored[0])
		assert.Equal(t, previous, restored[1])
	})
}

func TestKeyService_AssembleBundle(t *testing.T) {
	device := models.Device{
		AccountID:      uuid.New(),
		DeviceID:       2,
		RegistrationID: 512,
	}
	signed := models.SignedPreKey{KeyID: 5, PublicKey: []byte("spk")}
	ecKey := models.PreKey{KeyID: 1, PublicKey: []byte("ec")}
	pqKey := models.SignedPreKey{KeyID: 2, PublicKey: []byte("pq")}
	lastResort := models.SignedPreKey{KeyID: 3, PublicKey: []byte("lr")}

	tests := []struct {
		name       string
		keys       *mockKeyStore
		wantPreKey *models.PreKey
		wantPqKey  *models.SignedPreKey
		wantErr    error
	}{
		{
			name: "one-time keys available",
			keys: &mockKeyStore{
				getSignedPreKeyFn: func(context.Context, models.Address) (models.SignedPreKey, error) {
					return signed, nil
				},
				takePreKeyFn: func(context.Context, models.Address) (models.PreKey, error) {
					return ecKey, nil
				},
				takePqPreKeyFn: func(context.Context, models.Address) (models.SignedPreKey, error) {
					return pqKey, nil
				},
			},
			wantPreKey: &ecKey,
			wantPqKey:  &pqKey,
		},
		{
			name: "ec pool empty yields nil pre-key",
			keys: &mockKeyStore{
				getSignedPreKeyFn: func(context.Context, models.Address) (models.SignedPreKey, error) {
					return signed, nil
				},
				takePreKeyFn: func(context.Context, models.Address) (models.PreKey, error) {
					return models.PreKey{}, store.ErrNoPreKey
				},
				takePqPreKeyFn: func(context.Context, models.Address) (models.SignedPreKey, error) {
					return pqKey, nil
				},
			},
			wantPqKey: &pqKey,
		},
		{
			name: "pq pool empty falls back to last resort",
			keys: &mockKeyStore{
				getSignedPreKeyFn: func(context.Context, models.Address) (models.SignedPreKey, error) {
					return signed, nil
				},
				takePreKeyFn: func(context.Context, models.Address) (models.PreKey, error) {
					return ecKey, nil
				},
				takePqPreKeyFn: func(context.Context, models.Address) (models.SignedPreKey, error) {
					return models.SignedPreKey{}, store.ErrNoPqPreKey
				},
				getLastResortPqPreKeyFn: func(context.Context, models.Address) (models.SignedPreKey, error) {
					return lastResort, nil
				},
			},
			wantPreKey: &ecKey,
			wantPqKey:  &lastResort,
		},
		{
			name: "no pq key at all",
			keys: &mockKeyStore{
				getSignedPreKeyFn: func(context.Context, models.Address) (models.SignedPreKey, error) {
					return signed, nil
				},
				takePreKeyFn: func(context.Context, models.Address) (models.PreKey, error) {
					return ecKey, nil
				},
				takePqPreKeyFn: func(context.Context, models.Address) (models.SignedPreKey, error) {
					return models.SignedPreKey{}, store.ErrNoPqPreKey
				},
				getLastResortPqPreKeyFn: func(context.Context, models.Address) (models.SignedPreKey, error) {
					return models.SignedPreKey{}, store.ErrNoLastResortPqPreKey
				},
			},
			wantErr: ErrNoPqKey,
		},
		{
			name: "no signed pre-key",
			keys: &mockKeyStore{
				getSignedPreKeyFn: func(context.Context, models.Address) (models.SignedPreKey, error) {
					return models.SignedPreKey{}, store.ErrNoSignedPreKey
				},
			},
			wantErr: ErrNoSignedKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewKeyService(tt.keys, nil, nil, logger.Nop())

			bundle, err := svc.AssembleBundle(context.Background(), device)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, device.DeviceID, bundle.DeviceID)
			assert.Equal(t, device.RegistrationID, bundle.RegistrationID)
			assert.Equal(t, signed, bundle.SignedPreKey)
			assert.Equal(t, tt.wantPreKey, bundle.PreKey)
			assert.Equal(t, tt.wantPqKey, bundle.PqPreKey)
		})
	}
}

func TestKeyService_AssembleForAccount(t *testing.T) {
	accountID := uuid.New()
	account := models.Account{AccountID: accountID, IdentityKey: []byte("identity-key")}
	signed := models.SignedPreKey{KeyID: 5, PublicKey: []byte("spk")}
	lastResort := models.SignedPreKey{KeyID: 3, PublicKey: []byte("lr")}

	accounts := &mockAccountStore{
		getAccountFn: func(context.Context, uuid.UUID) (models.Account, error) {
			return account, nil
		},
	}
	devices := &mockDeviceStore{
		getDevicesFn: func(context.Context, uuid.UUID) ([]models.Device, error) {
			return []models.Device{
				{AccountID: accountID, DeviceID: 1, RegistrationID: 100},
				{AccountID: accountID, DeviceID: 2, RegistrationID: 200},
			}, nil
		},
	}
	keys := &mockKeyStore{
		getSignedPreKeyFn: func(context.Context, models.Address) (models.SignedPreKey, error) {
			return signed, nil
		},
		takePreKeyFn: func(context.Context, models.Address) (models.PreKey, error) {
			return models.PreKey{}, store.ErrNoPreKey
		},
		takePqPreKeyFn: func(context.Context, models.Address) (models.SignedPreKey, error) {
			return models.SignedPreKey{}, store.ErrNoPqPreKey
		},
		getLastResortPqPreKeyFn: func(context.Context, models.Address) (models.SignedPreKey, error) {
			return lastResort, nil
		},
	}

	svc := NewKeyService(keys, accounts, devices, logger.Nop())

	bundles, err := svc.AssembleForAccount(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, account.IdentityKey, bundles.IdentityKey)
	require.Len(t, bundles.Bundles, 2)
	assert.Equal(t, uint32(1), bundles.Bundles[0].DeviceID)
	assert.Equal(t, uint32(2), bundles.Bundles[1].DeviceID)
	for _, bundle := range bundles.Bundles {
		assert.Nil(t, bundle.PreKey)
		assert.Equal(t, &lastResort, bundle.PqPreKey)
	}
}
