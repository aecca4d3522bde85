package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	// routes without device authorization
	router.Group(func(r chi.Router) {
		r.Post("/api/v1/account", h.register)
		r.Post("/api/v1/devices/link", h.linkDevice)
		r.Get("/api/v1/health", h.health)
		r.Method("GET", "/metrics", h.metrics.Handler())
	})

	// routes behind basic device credentials
	router.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Delete("/api/v1/account", h.deleteAccount)

		r.Get("/api/v1/keys/{accountId}", h.getKeys)
		r.Put("/api/v1/keys", h.publishKeys)

		r.Get("/api/v1/devices", h.listDevices)
		r.Get("/api/v1/devices/provision", h.provisionLinkToken)
		r.Delete("/api/v1/device/{id}", h.unlinkDevice)

		r.Get("/api/v1/websocket", h.websocket)
	})

	return router
}
