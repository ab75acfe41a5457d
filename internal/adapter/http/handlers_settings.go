package http

import (
	"net/http"

	"github.com/TheLucianoBraga/zapgestor/internal/domain/settings"
)

// GetSettings handles GET /api/v1/settings
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	list, err := h.Settings.List(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}

	// Return as a map of key -> value for frontend convenience.
	result := make(map[string]string, len(list))
	for _, s := range list {
		result[s.Key] = s.Value
	}
	writeJSON(w, http.StatusOK, result)
}

// GetSetting handles GET /api/v1/settings/{key}
func (h *Handlers) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := urlParam(r, "key")
	s, err := h.Settings.Get(r.Context(), key)
	if err != nil {
		writeDomainError(w, err, "setting not found")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdateSettings handles PUT /api/v1/settings
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[settings.UpdateRequest](w, r, h.Limits.MaxRequestBodySize)
	if !ok {
		return
	}
	if len(req.Settings) == 0 {
		writeError(w, http.StatusBadRequest, "settings map must not be empty")
		return
	}
	if err := h.Settings.Update(r.Context(), req); err != nil {
		writeDomainError(w, err, "settings update failed")
		return
	}

	// Credentials or the provider may have changed; rebuild the gateway
	// on next use.
	h.Connection.InvalidateGateway(r.Context())

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DeleteSetting handles DELETE /api/v1/settings/{key}
func (h *Handlers) DeleteSetting(w http.ResponseWriter, r *http.Request) {
	key := urlParam(r, "key")
	if err := h.Settings.Delete(r.Context(), key); err != nil {
		writeDomainError(w, err, "setting not found")
		return
	}
	h.Connection.InvalidateGateway(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
