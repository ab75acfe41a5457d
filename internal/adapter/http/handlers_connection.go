package http

import (
	"errors"
	"net/http"

	"github.com/TheLucianoBraga/zapgestor/internal/port/gateway"
)

// GetConnectionStatus handles GET /api/v1/connection
func (h *Handlers) GetConnectionStatus(w http.ResponseWriter, r *http.Request) {
	res, err := h.Connection.Status(r.Context())
	if err != nil {
		writeDomainError(w, err, "connection status unavailable")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// StartPairing handles POST /api/v1/connection/pair
func (h *Handlers) StartPairing(w http.ResponseWriter, r *http.Request) {
	res, err := h.Connection.StartPairing(r.Context())
	if err != nil {
		if errors.Is(err, gateway.ErrQRNotAvailable) {
			writeError(w, http.StatusBadGateway, "the gateway did not produce a QR code")
			return
		}
		writeDomainError(w, err, "pairing failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CancelPairing handles POST /api/v1/connection/pair/cancel
func (h *Handlers) CancelPairing(w http.ResponseWriter, r *http.Request) {
	if err := h.Connection.CancelPairing(r.Context()); err != nil {
		writeDomainError(w, err, "cancel pairing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// Disconnect handles POST /api/v1/connection/disconnect
func (h *Handlers) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.Connection.Disconnect(r.Context()); err != nil {
		writeDomainError(w, err, "disconnect failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// ClearSession handles POST /api/v1/connection/clear
func (h *Handlers) ClearSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Connection.ClearSession(r.Context()); err != nil {
		writeDomainError(w, err, "clear session failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type sendTextRequest struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
}

// SendText handles POST /api/v1/connection/send
func (h *Handlers) SendText(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[sendTextRequest](w, r, h.Limits.MaxRequestBodySize)
	if !ok {
		return
	}
	if err := h.Connection.SendText(r.Context(), req.Phone, req.Text); err != nil {
		writeDomainError(w, err, "send failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
