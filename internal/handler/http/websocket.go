package http

import (
	"net/http"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/session"
	"github.com/sam-im/sam-server/internal/utils"
)

// websocket handles GET /api/v1/websocket: it upgrades the authenticated
// request and runs the framed session until the client disconnects. The
// session owns the connection after a successful upgrade.
func (h *Handler) websocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	user, ok := utils.GetAuthenticatedUserFromContext(ctx)
	if !ok {
		log.Err(ErrNotAuthenticated).Send()
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		log.Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sess := session.New(conn, user, h.router, h.metrics, logger.FromContext(ctx))
	if err := sess.Run(ctx); err != nil {
		log.Err(err).Str("address", user.Addr().String()).Msg("session ended with error")
	}
}
