package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sam-im/sam-server/internal/config"
	"github.com/sam-im/sam-server/internal/logger"
)

const shutdownTimeout = 15 * time.Second

type httpServer struct {
	server *http.Server

	certPath string
	keyPath  string

	logger *logger.Logger
}

func newHTTPServer(mux http.Handler, cfg config.Server, logger *logger.Logger) *httpServer {
	return &httpServer{
		server: &http.Server{
			Addr:    cfg.HTTPAddress,
			Handler: mux,
			// ReadHeaderTimeout and IdleTimeout do not apply to hijacked
			// websocket connections, so sessions can stay open.
			ReadHeaderTimeout: cfg.RequestTimeout,
			IdleTimeout:       cfg.RequestTimeout,
		},
		certPath: cfg.TLSCertPath,
		keyPath:  cfg.TLSKeyPath,
		logger:   logger,
	}
}

func (h *httpServer) RunServer() {
	var err error
	if h.certPath != "" && h.keyPath != "" {
		err = h.server.ListenAndServeTLS(h.certPath, h.keyPath)
	} else {
		err = h.server.ListenAndServe()
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		h.logger.Err(err).Msg("HTTP server ListenAndServe")
	}
}

func (h *httpServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Err(err).Msg("HTTP server Shutdown")
	}
}
