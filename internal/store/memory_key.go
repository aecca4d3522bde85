package store

import (
	"context"
	"sync"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/models"
)

// deviceKeys is the key material held for one device: ordered bags of
// one-time keys plus the two singleton slots.
type deviceKeys struct {
	preKeys   []models.PreKey
	pqPreKeys []models.SignedPreKey

	signedPreKey       *models.SignedPreKey
	lastResortPqPreKey *models.SignedPreKey
}

// memoryKeyStore is the in-memory implementation of [KeyStore]. A single
// store-wide mutex serializes every operation, which trivially satisfies the
// contract that a one-time key is never handed to two callers.
type memoryKeyStore struct {
	mu   sync.Mutex
	keys map[models.Address]*deviceKeys

	logger *logger.Logger
}

// NewMemoryKeyStore constructs an empty in-memory [KeyStore].
func NewMemoryKeyStore(logger *logger.Logger) KeyStore {
	logger.Debug().Msg("creating in-memory key store")
	return &memoryKeyStore{
		keys:   make(map[models.Address]*deviceKeys),
		logger: logger,
	}
}

// keysFor returns the key state of addr, creating it on first use.
// Caller must hold mu.
func (s *memoryKeyStore) keysFor(addr models.Address) *deviceKeys {
	dk, ok := s.keys[addr]
	if !ok {
		dk = &deviceKeys{}
		s.keys[addr] = dk
	}
	return dk
}

func (s *memoryKeyStore) AddPreKeys(_ context.Context, addr models.Address, keys []models.PreKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dk := s.keysFor(addr)
	dk.preKeys = append(dk.preKeys, keys...)
	return nil
}

func (s *memoryKeyStore) TakePreKey(_ context.Context, addr models.Address) (models.PreKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dk := s.keysFor(addr)
	if len(dk.preKeys) == 0 {
		return models.PreKey{}, ErrNoPreKey
	}

	key := dk.preKeys[0]
	dk.preKeys = dk.preKeys[1:]
	return key, nil
}

func (s *memoryKeyStore) RemovePreKeys(_ context.Context, addr models.Address, keyIDs []uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dk := s.keysFor(addr)
	dk.preKeys = filterPreKeys(dk.preKeys, keyIDs)
	return nil
}

func (s *memoryKeyStore) AddPqPreKeys(_ context.Context, addr models.Address, keys []models.SignedPreKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dk := s.keysFor(addr)
	dk.pqPreKeys = append(dk.pqPreKeys, keys...)
	return nil
}

func (s *memoryKeyStore) TakePqPreKey(_ context.Context, addr models.Address) (models.SignedPreKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dk := s.keysFor(addr)
	if len(dk.pqPreKeys) == 0 {
		return models.SignedPreKey{}, ErrNoPqPreKey
	}

	key := dk.pqPreKeys[0]
	dk.pqPreKeys = dk.pqPreKeys[1:]
	return key, nil
}

func (s *memoryKeyStore) RemovePqPreKeys(_ context.Context, addr models.Address, keyIDs []uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dk := s.keysFor(addr)
	dk.pqPreKeys = filterSignedPreKeys(dk.pqPreKeys, keyIDs)
	return nil
}

func (s *memoryKeyStore) SetSignedPreKey(_ context.Context, addr models.Address, key models.SignedPreKey) (*models.SignedPreKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dk := s.keysFor(addr)
	prev := dk.signedPreKey
	dk.signedPreKey = &key
	return prev, nil
}

func (s *memoryKeyStore) GetSignedPreKey(_ context.Context, addr models.Address) (models.SignedPreKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dk := s.keysFor(addr)
	if dk.signedPreKey == nil {
		return models.SignedPreKey{}, ErrNoSignedPreKey
	}

	return *dk.signedPreKey, nil
}

func (s *memoryKeyStore) ClearSignedPreKey(_ context.Context, addr models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keysFor(addr).signedPreKey = nil
	return nil
}

func (s *memoryKeyStore) SetLastResortPqPreKey(_ context.Context, addr models.Address, key models.SignedPreKey) (*models.SignedPreKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dk := s.keysFor(addr)
	prev := dk.lastResortPqPreKey
	dk.lastResortPqPreKey = &key
	return prev, nil
}

func (s *memoryKeyStore) GetLastResortPqPreKey(_ context.Context, addr models.Address) (models.SignedPreKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dk := s.keysFor(addr)
	if dk.lastResortPqPreKey == nil {
		return models.SignedPreKey{}, ErrNoLastResortPqPreKey
	}

	return *dk.lastResortPqPreKey, nil
}

func (s *memoryKeyStore) ClearLastResortPqPreKey(_ context.Context, addr models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keysFor(addr).lastResortPqPreKey = nil
	return nil
}

func (s *memoryKeyStore) DeleteAllKeys(_ context.Context, addr models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.keys, addr)
	return nil
}

func filterPreKeys(keys []models.PreKey, removeIDs []uint32) []models.PreKey {
	if len(removeIDs) == 0 {
		return keys
	}

	remove := make(map[uint32]struct{}, len(removeIDs))
	for _, id := range removeIDs {
		remove[id] = struct{}{}
	}

	kept := keys[:0]
	for _, key := range keys {
		if _, ok := remove[key.KeyID]; !ok {
			kept = append(kept, key)
		}
	}
	return kept
}

func filterSignedPreKeys(keys []models.SignedPreKey, removeIDs []uint32) []models.SignedPreKey {
	if len(removeIDs) == 0 {
		return keys
	}

	remove := make(map[uint32]struct{}, len(removeIDs))
	for _, id := range removeIDs {
		remove[id] = struct{}{}
	}

	kept := keys[:0]
	for _, key := range keys {
		if _, ok := remove[key.KeyID]; !ok {
			kept = append(kept, key)
		}
	}
	return kept
}
