package localserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/infra/buildinfo"
	"github.com/baumanab/delta/internal/telemetry/logger"
	"github.com/baumanab/delta/internal/telemetry/metric"
)

// ErrUnknownCommand is returned for commands the handler does not know.
var ErrUnknownCommand = errors.New("unknown command")

// Tables is the catalog view the admin commands act on.
type Tables interface {
	Names() []string
	TableStats() []metric.TableStat
	Invalidate(name string)
}

// Handler executes admin commands.
type Handler struct {
	tables   Tables
	reload   func() error
	shutdown func()
	started  time.Time
}

// NewHandler creates a Handler. reload and shutdown may be nil, in which
// case the matching commands fail.
func NewHandler(tables Tables, reload func() error, shutdown func()) *Handler {
	return &Handler{
		tables:   tables,
		reload:   reload,
		shutdown: shutdown,
		started:  time.Now(),
	}
}

type statusReply struct {
	Version  string             `json:"version"`
	Uptime   string             `json:"uptime"`
	LogLevel string             `json:"log_level"`
	Tables   int                `json:"tables"`
	Loaded   []metric.TableStat `json:"loaded"`
}

// Execute runs cmd and writes its output to w.
func (h *Handler) Execute(w io.Writer, cmd string, args []string) error {
	switch cmd {
	case "status":
		return h.handleStatus(w)
	case "reload":
		return h.handleReload()
	case "invalidate":
		return h.handleInvalidate(args)
	case "shutdown":
		return h.handleShutdown()
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (h *Handler) handleStatus(w io.Writer) error {
	loaded := h.tables.TableStats()
	if loaded == nil {
		loaded = []metric.TableStat{}
	}
	return json.NewEncoder(w).Encode(statusReply{
		Version:  buildinfo.Get().Version,
		Uptime:   time.Since(h.started).Round(time.Second).String(),
		LogLevel: logger.GetLevel(),
		Tables:   len(h.tables.Names()),
		Loaded:   loaded,
	})
}

func (h *Handler) handleReload() error {
	if h.reload == nil {
		return errors.New("reload: no configuration file")
	}
	return h.reload()
}

func (h *Handler) handleInvalidate(args []string) error {
	if len(args) != 1 {
		return domain.ErrInvalidArgument.WithDetails("invalidate NAME")
	}
	for _, name := range h.tables.Names() {
		if name == args[0] {
			h.tables.Invalidate(name)
			return nil
		}
	}
	return domain.ErrTableNotFound.WithDetails(args[0])
}

func (h *Handler) handleShutdown() error {
	if h.shutdown == nil {
		return errors.New("shutdown: not supported")
	}
	h.shutdown()
	return nil
}
