package http

import (
	"net/http"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/utils"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// health handles GET /api/v1/health, the liveness probe.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	if _, err := utils.WriteJSON(w, healthResponse{Status: "ok", Version: h.version}, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing health response")
	}
}
