package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/baumanab/delta/internal/server/httpserver/handler"
	"github.com/baumanab/delta/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Catalog resolves table names to snapshots.
	Catalog handler.Catalog

	// Metrics records request metrics and serves /metrics. Optional.
	Metrics *metric.Registry

	Logger *slog.Logger

	// RateLimit and RateBurst bound requests per client IP. A zero
	// RateLimit disables limiting.
	RateLimit float64
	RateBurst int

	// EnableAudit logs every API request.
	EnableAudit bool
}

// NewRouter builds the API handler. The middleware order is
// Recover -> RequestID -> RateLimit -> Audit -> handler.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	h := handler.New(cfg.Catalog, cfg.Metrics, log)

	chain := []Middleware{Recover(log), RequestID(), RateLimit(cfg.RateLimit, cfg.RateBurst)}
	if cfg.EnableAudit {
		chain = append(chain, Audit(log, cfg.Metrics))
	}

	mux := http.NewServeMux()
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), Recover(log), RequestID()))
	}
	mux.Handle("/", Chain(h, chain...))
	return mux
}
