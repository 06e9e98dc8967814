package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/core/snapshot"
	"github.com/baumanab/delta/internal/storage"
	"github.com/baumanab/delta/internal/telemetry/logger"
	"github.com/baumanab/delta/internal/telemetry/metric"
)

// ErrInternal is reported for failures that carry no domain code.
var ErrInternal = domain.NewDomainError("DS-SYS-5000", "internal server error")

// Catalog resolves table names to tables and snapshots.
type Catalog interface {
	Names() []string
	Table(name string) (*storage.Table, error)
	Snapshot(ctx context.Context, name string, version int64) (*snapshot.Snapshot, error)
}

// Handler serves the table API.
type Handler struct {
	catalog Catalog
	metrics *metric.Registry
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New creates a Handler. metrics may be nil.
func New(catalog Catalog, metrics *metric.Registry, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		catalog: catalog,
		metrics: metrics,
		logger:  log,
		mux:     http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)

	h.mux.HandleFunc("GET /tables", h.handleListTables)
	h.mux.HandleFunc("GET /tables/{name}/snapshot", h.handleSnapshot)
	h.mux.HandleFunc("GET /tables/{name}/files", h.handleFiles)
	h.mux.HandleFunc("GET /tables/{name}/tombstones", h.handleTombstones)
	h.mux.HandleFunc("GET /tables/{name}/transactions", h.handleTransactions)
	h.mux.HandleFunc("GET /tables/{name}/properties", h.handleProperties)

	h.mux.HandleFunc("GET /tables/{name}/checksum", h.handleGetChecksum)
	h.mux.HandleFunc("POST /tables/{name}/checksum", h.handleSaveChecksum)
	h.mux.HandleFunc("POST /tables/{name}/verify", h.handleVerify)
}

// writeJSON writes a success envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// handleError logs unexpected failures before writing the envelope.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if !domain.IsDomainError(err, "") || StatusForCode(domain.GetErrorCode(err)) >= 500 {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"error", err)
	}
	WriteError(w, r, err)
}

// WriteError writes err as an error envelope. Errors without a domain code
// are reported as ErrInternal and their text is not exposed.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code, message, details := ErrInternal.Code, ErrInternal.Message, ""
	var de *domain.DomainError
	if errors.As(err, &de) {
		code, message, details = de.Code, de.Message, de.Details
		if outer := err.Error(); outer != de.Error() {
			details = outer
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(StatusForCode(code))
	resp := NewErrorResponse(logger.RequestIDFromContext(r.Context()), code, message, details)
	_ = json.NewEncoder(w).Encode(resp)
}

// StatusForCode maps an error code to its HTTP status: the first three
// digits of the numeric suffix, or 500 when they are not an error status.
func StatusForCode(code string) int {
	i := strings.LastIndexByte(code, '-')
	digits := code[i+1:]
	if len(digits) < 3 {
		return http.StatusInternalServerError
	}
	status, err := strconv.Atoi(digits[:3])
	if err != nil || status < 400 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}
