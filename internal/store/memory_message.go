package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/models"
)

// memoryMessageStore is the in-memory implementation of [MessageStore].
// Each destination queue is an ordered slice; enqueue order is the slice
// order, which gives the per-destination FIFO guarantee for free.
type memoryMessageStore struct {
	mu     sync.RWMutex
	queues map[models.Address][]models.ServerEnvelope

	logger *logger.Logger
}

// NewMemoryMessageStore constructs an empty in-memory [MessageStore].
func NewMemoryMessageStore(logger *logger.Logger) MessageStore {
	logger.Debug().Msg("creating in-memory message store")
	return &memoryMessageStore{
		queues: make(map[models.Address][]models.ServerEnvelope),
		logger: logger,
	}
}

func (s *memoryMessageStore) AddEnvelope(_ context.Context, envelope models.ServerEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := envelope.DestAddr()
	s.queues[addr] = append(s.queues[addr], envelope)
	return nil
}

func (s *memoryMessageStore) GetEnvelope(_ context.Context, addr models.Address, id uuid.UUID) (models.ServerEnvelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, envelope := range s.queues[addr] {
		if envelope.ID == id {
			return envelope, nil
		}
	}

	return models.ServerEnvelope{}, ErrEnvelopeMissing
}

func (s *memoryMessageStore) DeleteEnvelope(_ context.Context, addr models.Address, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.queues[addr]
	for i, envelope := range queue {
		if envelope.ID == id {
			s.queues[addr] = append(queue[:i], queue[i+1:]...)
			return nil
		}
	}

	return ErrEnvelopeMissing
}

func (s *memoryMessageStore) EnvelopeIDs(_ context.Context, addr models.Address) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queue := s.queues[addr]
	ids := make([]uuid.UUID, 0, len(queue))
	for _, envelope := range queue {
		ids = append(ids, envelope.ID)
	}

	return ids, nil
}

func (s *memoryMessageStore) DeleteAllEnvelopes(_ context.Context, addr models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.queues, addr)
	return nil
}
