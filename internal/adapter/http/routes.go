package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/TheLucianoBraga/zapgestor/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. Every
// route under /api/v1 is tenant-scoped and requires the X-Tenant-ID
// header.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireTenant)

		// Settings
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
		r.Get("/settings/{key}", h.GetSetting)
		r.Delete("/settings/{key}", h.DeleteSetting)

		// Connection lifecycle
		r.Get("/connection", h.GetConnectionStatus)
		r.Post("/connection/pair", h.StartPairing)
		r.Post("/connection/pair/cancel", h.CancelPairing)
		r.Post("/connection/disconnect", h.Disconnect)
		r.Post("/connection/clear", h.ClearSession)
		r.Post("/connection/send", h.SendText)

		// Scheduled message queue
		r.Get("/queue/messages", h.ListPendingMessages)
		r.Get("/queue/messages/history", h.ListMessageHistory)
		r.Post("/queue/messages/{id}/cancel", h.CancelMessage)
		r.Post("/queue/messages/{id}/retry", h.RetryMessage)
		r.Delete("/queue/messages/{id}", h.DeleteMessage)

		// Charge schedule queue
		r.Get("/queue/charges", h.ListPendingCharges)
		r.Get("/queue/charges/history", h.ListChargeHistory)
		r.Post("/queue/charges/{id}/cancel", h.CancelCharge)
		r.Post("/queue/charges/{id}/retry", h.RetryCharge)
		r.Delete("/queue/charges/{id}", h.DeleteCharge)

		// Real-time updates
		r.Get("/ws", h.Hub.HandleWS)
	})
}
