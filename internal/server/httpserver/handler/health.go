package handler

import (
	"net/http"
	"time"

	"github.com/baumanab/delta/internal/infra/buildinfo"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "healthy",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": buildinfo.Get().Version,
		"tables":  len(h.catalog.Names()),
	})
}
