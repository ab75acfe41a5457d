package http

import (
	"net/http"

	"github.com/TheLucianoBraga/zapgestor/internal/adapter/ws"
	"github.com/TheLucianoBraga/zapgestor/internal/service"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// Limits holds per-request resource limits.
type Limits struct {
	MaxRequestBodySize int64
}

// Handlers bundles the services exposed over HTTP.
type Handlers struct {
	Settings   *service.SettingsService
	Connection *service.ConnectionService
	Queue      *service.QueueService
	Hub        *ws.Hub
	Limits     Limits
}

// NewHandlers creates the handler set with default limits.
func NewHandlers(st *service.SettingsService, conn *service.ConnectionService, q *service.QueueService, hub *ws.Hub) *Handlers {
	return &Handlers{
		Settings:   st,
		Connection: conn,
		Queue:      q,
		Hub:        hub,
		Limits:     Limits{MaxRequestBodySize: maxRequestBodySize},
	}
}

// Health handles GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
