// Package http implements the HTTP transport layer of the server: route
// handlers, middleware, the error-to-status mapping, and the websocket
// session upgrade. Requests are authenticated with basic credentials of
// the form "accountID.deviceID:password" before reaching the service
// layer.
package http

import (
	"context"
	"net/http"

	"github.com/sam-im/sam-server/internal/crypto"
	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/utils"
)

// auth enforces basic authentication of device credentials.
//
// The userinfo part must be "accountID.deviceID"; the password is the
// device password chosen at enrollment. On success the resolved
// [models.AuthenticatedUser] is stored in the request context under
// [utils.AuthUserCtxKey]. Every failure answers 401 without revealing
// which part of the credentials was wrong.
func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)

		userinfo, password, ok := r.BasicAuth()
		if !ok {
			log.Err(ErrEmptyAuthorizationHeader).Send()
			w.Header().Set("WWW-Authenticate", `Basic realm="sam"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		accountID, deviceID, err := crypto.ParseBasicCredentials(userinfo)
		if err != nil {
			log.Err(err).Msg("malformed basic credentials")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		user, err := h.services.AuthService.Authenticate(ctx, accountID, deviceID, password)
		if err != nil {
			log.Err(err).Msg("authentication rejected")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx = context.WithValue(ctx, utils.AuthUserCtxKey, user)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
