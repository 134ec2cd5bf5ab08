package server

import (
	"context"
	"net/http"
)

const healthMessage = "Meow Bot Auth API is running"

// HandleHealth reports liveness. It touches no dependency.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": healthMessage,
	})
}

type readinessCheck struct {
	name string
	fn   func(context.Context) error
}

// HandleReadyz responds to readiness probe requests: the join list must be writable, a
// migrated schema must be clean, and the Twitch app credentials must yield a token.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []readinessCheck{{"join_list", h.store.Ping}}
	if h.schemaCheck != nil {
		checks = append(checks, readinessCheck{"migrations", h.schemaCheck})
	}
	checks = append(checks, readinessCheck{"twitch_credentials", func(ctx context.Context) error {
		_, err := h.appToken.Get(ctx)
		return err
	}})

	for _, check := range checks {
		if err := check.fn(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
