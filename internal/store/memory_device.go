package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/models"
)

// memoryDeviceStore is the in-memory implementation of [DeviceStore].
type memoryDeviceStore struct {
	mu      sync.RWMutex
	devices map[models.Address]models.Device

	logger *logger.Logger
}

// NewMemoryDeviceStore constructs an empty in-memory [DeviceStore].
func NewMemoryDeviceStore(logger *logger.Logger) DeviceStore {
	logger.Debug().Msg("creating in-memory device store")
	return &memoryDeviceStore{
		devices: make(map[models.Address]models.Device),
		logger:  logger,
	}
}

func (s *memoryDeviceStore) CreateDevice(_ context.Context, device models.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[device.Addr()]; ok {
		return ErrDeviceExists
	}

	s.devices[device.Addr()] = device
	return nil
}

func (s *memoryDeviceStore) GetDevice(_ context.Context, addr models.Address) (models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	device, ok := s.devices[addr]
	if !ok {
		return models.Device{}, ErrDeviceNotFound
	}

	return device, nil
}

func (s *memoryDeviceStore) GetDevices(_ context.Context, accountID uuid.UUID) ([]models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := make([]models.Device, 0, 4)
	for addr, device := range s.devices {
		if addr.AccountID == accountID {
			devices = append(devices, device)
		}
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].DeviceID < devices[j].DeviceID
	})

	return devices, nil
}

func (s *memoryDeviceStore) DeleteDevice(_ context.Context, addr models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[addr]; !ok {
		return ErrDeviceNotFound
	}

	delete(s.devices, addr)
	return nil
}
