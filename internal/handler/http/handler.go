package http

import (
	"github.com/gorilla/websocket"

	"github.com/sam-im/sam-server/internal/config"
	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/metrics"
	"github.com/sam-im/sam-server/internal/relay"
	"github.com/sam-im/sam-server/internal/service"
)

type Handler struct {
	services *service.Services
	router   *relay.Router
	metrics  *metrics.Metrics

	version  string
	upgrader websocket.Upgrader

	logger *logger.Logger
}

func NewHandler(services *service.Services, router *relay.Router, m *metrics.Metrics, cfg config.App, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		router:   router,
		metrics:  m,
		version:  cfg.Version,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		logger: logger,
	}
}
