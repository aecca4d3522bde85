package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/utils"
	"github.com/sam-im/sam-server/models"
)

// provisionLinkToken handles GET /api/v1/devices/provision. Only the
// primary device may authorize new devices.
func (h *Handler) provisionLinkToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	user, ok := utils.GetAuthenticatedUserFromContext(ctx)
	if !ok {
		log.Err(ErrNotAuthenticated).Send()
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if user.Device.DeviceID != models.PrimaryDeviceID {
		log.Err(ErrPrimaryDeviceRequired).Msg("link provisioning attempted from a linked device")
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	token, err := h.services.DeviceService.ProvisionLinkToken(ctx, user.Account.AccountID)
	if err != nil {
		log.Err(err).Msg("link token provisioning failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	if _, err := utils.WriteJSON(w, token, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing link token")
	}
}

// linkDevice handles POST /api/v1/devices/link. The request is not device
// authenticated: the link token in the body authorizes it, and the basic
// auth password becomes the new device's credential.
func (h *Handler) linkDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	_, password, ok := r.BasicAuth()
	if !ok {
		log.Err(ErrEmptyAuthorizationHeader).Send()
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req models.LinkDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	resp, err := h.services.DeviceService.LinkDevice(ctx, req, password)
	if err != nil {
		log.Err(err).Msg("device linking failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	if _, err := utils.WriteJSON(w, resp, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing link response")
	}
}

// listDevices handles GET /api/v1/devices: the authenticated account's
// devices in ascending id order.
func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	user, ok := utils.GetAuthenticatedUserFromContext(ctx)
	if !ok {
		log.Err(ErrNotAuthenticated).Send()
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	devices, err := h.services.DeviceService.GetDevices(ctx, user.Account.AccountID)
	if err != nil {
		log.Err(err).Msg("device listing failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	if _, err := utils.WriteJSON(w, devices, http.StatusOK); err != nil {
		log.Err(err).Msg("error writing device list")
	}
}

// unlinkDevice handles DELETE /api/v1/device/{id}. The primary device may
// unlink any linked device; a linked device may only unlink itself.
func (h *Handler) unlinkDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	user, ok := utils.GetAuthenticatedUserFromContext(ctx)
	if !ok {
		log.Err(ErrNotAuthenticated).Send()
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	deviceID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil || deviceID == 0 {
		log.Err(err).Msg("malformed device id in path")
		http.Error(w, "malformed device id", http.StatusBadRequest)
		return
	}

	if user.Device.DeviceID != models.PrimaryDeviceID && uint32(deviceID) != user.Device.DeviceID {
		log.Err(ErrPrimaryDeviceRequired).Msg("cross-device unlink attempted from a linked device")
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	addr := models.Address{AccountID: user.Account.AccountID, DeviceID: uint32(deviceID)}
	if err := h.services.DeviceService.Unlink(ctx, addr); err != nil {
		log.Err(err).Str("address", addr.String()).Msg("device unlink failed")
		http.Error(w, http.StatusText(statusFromError(err)), statusFromError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
