package http

import (
	"encoding/json"
	"net/http"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/utils"
	"github.com/sam-im/sam-server/models"
)

// register handles POST /api/v1/account. The basic auth userinfo carries
// the desired username and the password becomes the primary device
// credential; the body describes the identity key and the primary device
// activation.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	username, password, ok := r.BasicAuth()
	if !ok {
		log.Err(ErrEmptyAuthorizationHeader).Send()
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req models.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	resp, err := h.services.AccountService.Register(ctx, req, username, password)
	if err != nil {
		log.Err(err).Msg("account registration failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	if _, err := utils.WriteJSON(w, resp, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing registration response")
	}
}

// deleteAccount handles DELETE /api/v1/account. Only the primary device
// may tear the account down.
func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	user, ok := utils.GetAuthenticatedUserFromContext(ctx)
	if !ok {
		log.Err(ErrNotAuthenticated).Send()
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if user.Device.DeviceID != models.PrimaryDeviceID {
		log.Err(ErrPrimaryDeviceRequired).Msg("account deletion attempted from a linked device")
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	if err := h.services.AccountService.Delete(ctx, user.Account.AccountID); err != nil {
		log.Err(err).Msg("account deletion failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
