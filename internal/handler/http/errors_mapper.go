package http

import (
	"errors"
	"net/http"

	"github.com/sam-im/sam-server/internal/crypto"
	"github.com/sam-im/sam-server/internal/relay"
	"github.com/sam-im/sam-server/internal/service"
	"github.com/sam-im/sam-server/internal/store"
)

var errorStatusMap = map[error]int{
	service.ErrInvalidDataProvided: http.StatusBadRequest,

	crypto.ErrAuthMalformed: http.StatusUnauthorized,
	service.ErrUnauthorized: http.StatusUnauthorized,

	service.ErrPrimaryDeviceProtected: http.StatusForbidden,
	crypto.ErrLinkExpired:             http.StatusForbidden,
	crypto.ErrWrongSignature:          http.StatusForbidden,
	crypto.ErrLinkTokenMalformed:      http.StatusForbidden,
	store.ErrLinkTokenReused:          http.StatusForbidden,
	ErrPrimaryDeviceRequired:          http.StatusForbidden,

	store.ErrAccountNotFound:  http.StatusNotFound,
	store.ErrDeviceNotFound:   http.StatusNotFound,
	store.ErrEnvelopeMissing:  http.StatusNotFound,
	relay.ErrUnknownRecipient: http.StatusNotFound,

	store.ErrAccountExists: http.StatusConflict,
	store.ErrDeviceExists:  http.StatusConflict,

	crypto.ErrKeyVerificationFailed: http.StatusUnprocessableEntity,
	service.ErrNoSignedKey:          http.StatusUnprocessableEntity,
	service.ErrNoPqKey:              http.StatusUnprocessableEntity,

	store.ErrExecutingQuery:     http.StatusInternalServerError,
	store.ErrExecutingStatement: http.StatusInternalServerError,
	store.ErrScanningRow:        http.StatusInternalServerError,
	store.ErrScanningRows:       http.StatusInternalServerError,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
