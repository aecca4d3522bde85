package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/utils"
	"github.com/sam-im/sam-server/models"
)

// getKeys handles GET /api/v1/keys/{accountId}: the directory query that
// assembles one pre-key bundle per device of the target account. Each
// successful query consumes one-time keys, so peers should cache the
// result per session setup.
func (h *Handler) getKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	accountID, err := uuid.Parse(chi.URLParam(r, "accountId"))
	if err != nil {
		log.Err(err).Msg("malformed account id in path")
		http.Error(w, "malformed account id", http.StatusBadRequest)
		return
	}

	bundles, err := h.services.KeyService.AssembleForAccount(ctx, accountID)
	if err != nil {
		log.Err(err).Str("account_id", accountID.String()).Msg("bundle assembly failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	if _, err := utils.WriteJSON(w, bundles, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing key bundles")
	}
}

// publishKeys handles PUT /api/v1/keys: the authenticated device uploads
// a new batch of key material for itself.
func (h *Handler) publishKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	user, ok := utils.GetAuthenticatedUserFromContext(ctx)
	if !ok {
		log.Err(ErrNotAuthenticated).Send()
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var bundle models.KeyBundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err := h.services.KeyService.Publish(ctx, user.Addr(), user.Account.IdentityKey, bundle); err != nil {
		log.Err(err).Str("address", user.Addr().String()).Msg("key publication failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusOK)
}
