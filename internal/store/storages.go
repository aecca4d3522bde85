package store

import (
	"context"

	"github.com/sam-im/sam-server/internal/config"
	"github.com/sam-im/sam-server/internal/logger"
)

// Storages bundles the four persistence contracts the server core depends
// on. Services receive the aggregate and pick the stores they need.
type Storages struct {
	AccountStore AccountStore
	DeviceStore  DeviceStore
	KeyStore     KeyStore
	MessageStore MessageStore
}

// NewStorages selects and constructs the storage backend from configuration:
// a non-empty database DSN selects the PostgreSQL-backed repositories (and
// runs pending migrations); an empty DSN selects the in-memory stores.
func NewStorages(ctx context.Context, cfg config.Storage, log *logger.Logger) (*Storages, error) {
	if cfg.DB.DSN == "" {
		log.Info().Msg("no database DSN configured, using in-memory stores")
		return NewMemoryStorages(log), nil
	}

	db, err := NewConnectPostgres(ctx, cfg.DB, log)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		return nil, err
	}

	return &Storages{
		AccountStore: NewAccountRepository(db, log),
		DeviceStore:  NewDeviceRepository(db, log),
		KeyStore:     NewKeyRepository(db, log),
		MessageStore: NewMessageRepository(db, log),
	}, nil
}

// NewMemoryStorages constructs the in-memory backend. Exported for tests
// that need a fully wired store set without a database.
func NewMemoryStorages(log *logger.Logger) *Storages {
	return &Storages{
		AccountStore: NewMemoryAccountStore(log),
		DeviceStore:  NewMemoryDeviceStore(log),
		KeyStore:     NewMemoryKeyStore(log),
		MessageStore: NewMemoryMessageStore(log),
	}
}
