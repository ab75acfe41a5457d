package http

import (
	"net/http"

	"github.com/TheLucianoBraga/zapgestor/internal/domain/schedule"
)

// ListPendingMessages handles GET /api/v1/queue/messages
func (h *Handlers) ListPendingMessages(w http.ResponseWriter, r *http.Request) {
	items, err := h.Queue.ListPendingMessages(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if items == nil {
		items = []schedule.Message{}
	}
	writeJSON(w, http.StatusOK, items)
}

// ListMessageHistory handles GET /api/v1/queue/messages/history
func (h *Handlers) ListMessageHistory(w http.ResponseWriter, r *http.Request) {
	items, err := h.Queue.ListMessageHistory(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if items == nil {
		items = []schedule.Message{}
	}
	writeJSON(w, http.StatusOK, items)
}

// CancelMessage handles POST /api/v1/queue/messages/{id}/cancel
func (h *Handlers) CancelMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.Queue.CancelMessage(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "message not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// RetryMessage handles POST /api/v1/queue/messages/{id}/retry
func (h *Handlers) RetryMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.Queue.RetryMessage(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "message not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pending"})
}

// DeleteMessage handles DELETE /api/v1/queue/messages/{id}
func (h *Handlers) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.Queue.DeleteMessage(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "message not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPendingCharges handles GET /api/v1/queue/charges
func (h *Handlers) ListPendingCharges(w http.ResponseWriter, r *http.Request) {
	items, err := h.Queue.ListPendingCharges(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if items == nil {
		items = []schedule.Charge{}
	}
	writeJSON(w, http.StatusOK, items)
}

// ListChargeHistory handles GET /api/v1/queue/charges/history
func (h *Handlers) ListChargeHistory(w http.ResponseWriter, r *http.Request) {
	items, err := h.Queue.ListChargeHistory(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if items == nil {
		items = []schedule.Charge{}
	}
	writeJSON(w, http.StatusOK, items)
}

// CancelCharge handles POST /api/v1/queue/charges/{id}/cancel
func (h *Handlers) CancelCharge(w http.ResponseWriter, r *http.Request) {
	if err := h.Queue.CancelCharge(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "charge not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// RetryCharge handles POST /api/v1/queue/charges/{id}/retry
func (h *Handlers) RetryCharge(w http.ResponseWriter, r *http.Request) {
	if err := h.Queue.RetryCharge(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "charge not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pending"})
}

// DeleteCharge handles DELETE /api/v1/queue/charges/{id}
func (h *Handlers) DeleteCharge(w http.ResponseWriter, r *http.Request) {
	if err := h.Queue.DeleteCharge(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "charge not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
