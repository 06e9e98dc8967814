package handler

import (
	"iter"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/core/snapshot"
	"github.com/baumanab/delta/internal/telemetry/logger"
)

// Pagination bounds for file listings.
const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// handleListTables handles GET /tables.
func (h *Handler) handleListTables(w http.ResponseWriter, r *http.Request) {
	names := h.catalog.Names()
	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		t, err := h.catalog.Table(name)
		if err != nil {
			continue // removed by a concurrent reload
		}
		tables = append(tables, TableInfo{Name: name, Root: logger.MaskURL(t.Root())})
	}
	h.writeJSON(w, r, http.StatusOK, tables)
}

// queryVersion reads ?version=, defaulting to -1 (latest).
func queryVersion(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("version")
	if raw == "" {
		return -1, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidArgument.WithDetails("version must be an integer")
	}
	return v, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.ErrInvalidArgument.WithDetails(key + " must be a non-negative integer")
	}
	return n, nil
}

// snapshotFor resolves the table and version named by the request.
func (h *Handler) snapshotFor(r *http.Request) (*snapshot.Snapshot, error) {
	version, err := queryVersion(r)
	if err != nil {
		return nil, err
	}
	return h.catalog.Snapshot(r.Context(), r.PathValue("name"), version)
}

// handleSnapshot handles GET /tables/{name}/snapshot.
func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshotFor(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	ctx := r.Context()

	proto, err := snap.Protocol(ctx)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	md, err := snap.Metadata(ctx)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	sum, err := snap.Summary(ctx)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, SnapshotResponse{
		Table:    r.PathValue("name"),
		Version:  snap.Version(),
		Kind:     snap.Kind().String(),
		Replayed: snap.ReplayCount() > 0,
		Protocol: proto,
		Metadata: MetadataView{
			ID:               md.ID,
			Name:             md.Name,
			Description:      md.Description,
			Format:           md.Format.Provider,
			PartitionColumns: md.PartitionColumns,
			CreatedTime:      md.CreatedTime,
			SchemaString:     md.SchemaString,
		},
		Summary: SummaryView{
			SizeInBytes:        sum.SizeInBytes,
			Size:               humanize.IBytes(uint64(max(sum.SizeInBytes, 0))),
			NumFiles:           sum.NumOfFiles,
			NumRemoves:         sum.NumOfRemoves,
			NumMetadata:        sum.NumOfMetadata,
			NumProtocol:        sum.NumOfProtocol,
			NumSetTransactions: sum.NumOfSetTransactions,
			Histogram:          sum.Histogram,
		},
	})
}

// paginate collects the window [offset, offset+limit) of seq and counts
// every element.
func paginate[T any](seq iter.Seq[T], offset, limit int) ([]T, int) {
	items := make([]T, 0, min(limit, DefaultPageLimit))
	total := 0
	for v := range seq {
		if total >= offset && len(items) < limit {
			items = append(items, v)
		}
		total++
	}
	return items, total
}

func pageParams(r *http.Request) (offset, limit int, err error) {
	if offset, err = queryInt(r, "offset", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = queryInt(r, "limit", DefaultPageLimit); err != nil {
		return 0, 0, err
	}
	if limit == 0 || limit > MaxPageLimit {
		return 0, 0, domain.ErrInvalidArgument.WithDetails("limit must be between 1 and " + strconv.Itoa(MaxPageLimit))
	}
	return offset, limit, nil
}

// handleFiles handles GET /tables/{name}/files.
func (h *Handler) handleFiles(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	snap, err := h.snapshotFor(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	files, err := snap.AllFiles(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	items, total := paginate(files, offset, limit)
	h.writeJSON(w, r, http.StatusOK, Page[domain.AddFile]{
		Version: snap.Version(),
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		Items:   items,
	})
}

// handleTombstones handles GET /tables/{name}/tombstones.
func (h *Handler) handleTombstones(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	snap, err := h.snapshotFor(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	removes, err := snap.Tombstones(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	items, total := paginate(removes, offset, limit)
	h.writeJSON(w, r, http.StatusOK, Page[domain.RemoveFile]{
		Version: snap.Version(),
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		Items:   items,
	})
}

// handleTransactions handles GET /tables/{name}/transactions.
func (h *Handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshotFor(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	txns, err := snap.SetTransactions(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if txns == nil {
		txns = []domain.SetTransaction{}
	}
	h.writeJSON(w, r, http.StatusOK, TransactionsResponse{Version: snap.Version(), Transactions: txns})
}

// handleProperties handles GET /tables/{name}/properties. Values under
// credential-like keys are redacted.
func (h *Handler) handleProperties(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshotFor(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	props, err := snap.Properties(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, PropertiesResponse{
		Version:    snap.Version(),
		Properties: logger.RedactConfiguration(props),
	})
}
