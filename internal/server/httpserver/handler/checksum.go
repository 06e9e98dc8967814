package handler

import (
	"errors"
	"net/http"

	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/core/snapshot"
)

// handleGetChecksum handles GET /tables/{name}/checksum. The checksum is
// computed from the replayed state, not read from the store.
func (h *Handler) handleGetChecksum(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshotFor(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if snap.Kind() == snapshot.Empty {
		h.handleError(w, r, domain.ErrNoCommits.WithDetails(r.PathValue("name")))
		return
	}
	c, err := snap.ComputeChecksum(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, checksumView(snap.Version(), c))
}

// handleSaveChecksum handles POST /tables/{name}/checksum.
func (h *Handler) handleSaveChecksum(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	table, err := h.catalog.Table(name)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	snap, err := h.snapshotFor(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	c, err := table.SaveChecksum(r.Context(), snap)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.logger.Info("checksum saved", "table", name, "version", snap.Version())
	h.writeJSON(w, r, http.StatusCreated, checksumView(snap.Version(), c))
}

// handleVerify handles POST /tables/{name}/verify. A mismatch is a
// successful request reporting match=false.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	version, err := queryVersion(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	table, err := h.catalog.Table(r.PathValue("name"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	res, err := table.Verify(r.Context(), version)
	switch {
	case err == nil:
		h.recordVerification("match")
		h.writeJSON(w, r, http.StatusOK, VerifyResponse{
			Version:  res.Version,
			Match:    true,
			Stored:   checksumView(res.Version, res.Stored),
			Computed: checksumView(res.Version, res.Computed),
		})
	case errors.Is(err, domain.ErrChecksumMismatch) && res != nil:
		h.recordVerification("mismatch")
		h.writeJSON(w, r, http.StatusOK, VerifyResponse{
			Version:  res.Version,
			Stored:   checksumView(res.Version, res.Stored),
			Computed: checksumView(res.Version, res.Computed),
			Diff:     res.Stored.Diff(res.Computed),
		})
	default:
		h.recordVerification("error")
		h.handleError(w, r, err)
	}
}

func (h *Handler) recordVerification(result string) {
	if h.metrics != nil {
		h.metrics.RecordChecksumVerification(result)
	}
}
