package handler

import (
	"github.com/sam-im/sam-server/internal/config"
	"github.com/sam-im/sam-server/internal/handler/http"
	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/metrics"
	"github.com/sam-im/sam-server/internal/relay"
	"github.com/sam-im/sam-server/internal/service"
)

type Handlers struct {
	HTTP *http.Handler
}

func NewHandlers(services *service.Services, router *relay.Router, m *metrics.Metrics, cfg *config.StructuredConfig, logger *logger.Logger) (*Handlers, error) {
	logger.Info().Msg("creating new handlers...")

	if cfg.Server.HTTPAddress == "" {
		return nil, errNoHandlersAreCreated
	}

	return &Handlers{
		HTTP: http.NewHandler(services, router, m, cfg.App, logger),
	}, nil
}
