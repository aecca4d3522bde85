package service

import (
	"github.com/sam-im/sam-server/internal/config"
	"github.com/sam-im/sam-server/internal/crypto"
	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/store"
)

type Services struct {
	AuthService    AuthService
	AccountService AccountService
	DeviceService  DeviceService
	KeyService     KeyService
}

func NewServices(storages *store.Storages, cfg config.App, logger *logger.Logger) *Services {
	linkAuthenticator := crypto.NewLinkTokenAuthenticator(cfg.LinkSecret)

	keyService := NewKeyService(storages.KeyStore, storages.AccountStore, storages.DeviceStore, logger)
	deviceService := NewDeviceService(storages.DeviceStore, storages.AccountStore, storages.KeyStore, storages.MessageStore, keyService, linkAuthenticator, logger)

	return &Services{
		AuthService:    NewAuthService(storages.AccountStore, storages.DeviceStore, logger),
		AccountService: NewAccountService(storages.AccountStore, storages.DeviceStore, storages.KeyStore, storages.MessageStore, deviceService, logger),
		DeviceService:  deviceService,
		KeyService:     keyService,
	}
}
