package server

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/onnwee/meow-bot-auth/telemetry"
)

// HandleAuthURL returns the Twitch authorize URL a frontend should send the broadcaster to.
// A random state is generated when the caller does not supply one.
func (h *Handlers) HandleAuthURL(w http.ResponseWriter, r *http.Request) {
	redirectURI := r.URL.Query().Get("redirect_uri")
	if redirectURI == "" {
		writeJSON(w, http.StatusBadRequest, failureResponse{Error: "Invalid request", Details: "redirect_uri is required"})
		return
	}
	state := r.URL.Query().Get("state")
	if state == "" {
		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			http.Error(w, "state gen error", http.StatusInternalServerError)
			return
		}
		state = hex.EncodeToString(b)
	}
	authURL, err := h.oauth.AuthorizeURL(redirectURI, state)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("build authorize url", slog.Any("err", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": authURL, "state": state})
}
