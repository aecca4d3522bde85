package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/models"
)

// memoryAccountStore is the in-memory implementation of [AccountStore].
// It is the default backend when no database DSN is configured and the one
// used throughout the test suite.
type memoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]models.Account

	// usedTokens maps consumed link-token ids to the time they were
	// consumed, so the sweeper can drop entries past the link TTL.
	usedTokens map[string]time.Time

	logger *logger.Logger
}

// NewMemoryAccountStore constructs an empty in-memory [AccountStore].
func NewMemoryAccountStore(logger *logger.Logger) AccountStore {
	logger.Debug().Msg("creating in-memory account store")
	return &memoryAccountStore{
		accounts:   make(map[uuid.UUID]models.Account),
		usedTokens: make(map[string]time.Time),
		logger:     logger,
	}
}

func (s *memoryAccountStore) CreateAccount(_ context.Context, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.AccountID]; ok {
		return ErrAccountExists
	}

	s.accounts[account.AccountID] = account
	return nil
}

func (s *memoryAccountStore) GetAccount(_ context.Context, accountID uuid.UUID) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return models.Account{}, ErrAccountNotFound
	}

	return account, nil
}

func (s *memoryAccountStore) DeleteAccount(_ context.Context, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return ErrAccountNotFound
	}

	delete(s.accounts, accountID)
	return nil
}

func (s *memoryAccountStore) AddUsedLinkToken(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usedTokens[tokenID]; ok {
		return ErrLinkTokenReused
	}

	s.usedTokens[tokenID] = time.Now()
	return nil
}

func (s *memoryAccountStore) RemoveExpiredLinkTokens(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, usedAt := range s.usedTokens {
		if usedAt.Before(before) {
			delete(s.usedTokens, id)
			removed++
		}
	}

	return removed, nil
}
