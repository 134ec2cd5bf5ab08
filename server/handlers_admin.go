package server

import (
	"log/slog"
	"net/http"

	"github.com/onnwee/meow-bot-auth/telemetry"
)

// HandleAdminChannels lists the join list in insertion order.
func (h *Handlers) HandleAdminChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.store.List(r.Context())
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("list join list", slog.Any("err", err))
		http.Error(w, "failed to read join list", http.StatusInternalServerError)
		return
	}
	if channels == nil {
		channels = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channels": channels,
		"count":    len(channels),
	})
}
