// Export endpoints: canonical JSON download and file export.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kimhsiao/conceptdeck/internal/cache"
	"github.com/kimhsiao/conceptdeck/internal/export"
)

// ExportHandler serves export, backup and restore operations.
type ExportHandler struct {
	cache    *cache.Cache
	exporter *export.Service
	guard    *OpGuard
	events   Broadcaster
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(c *cache.Cache, s *export.Service, guard *OpGuard, events Broadcaster) *ExportHandler {
	return &ExportHandler{cache: c, exporter: s, guard: guard, events: events}
}

// ExportRequest is the body for POST /api/export.
type ExportRequest struct {
	Format string `json:"format"`
}

// Download handles GET /api/export/download, streaming the snapshot in
// the canonical export form without touching the export directory.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := export.MarshalConcepts(h.cache.Snapshot())
	if err != nil {
		http.Error(w, "Export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="concepts.json"`)
	w.Write(data)
}

// Export handles POST /api/export, writing a timestamped file in the
// requested format to the export directory.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Format == "" {
		req.Format = string(export.FormatJSON)
	}

	if !h.guard.TryAcquire(OpExport) {
		respondBusy(w, OpExport)
		return
	}
	defer h.guard.Release(OpExport)

	snap := h.cache.Snapshot()

	var (
		result *export.Result
		err    error
	)
	switch export.Format(req.Format) {
	case export.FormatJSON:
		result, err = h.exporter.WriteJSON(snap)
	case export.FormatMarkdown:
		result, err = h.exporter.WriteMarkdown(snap)
	default:
		http.Error(w, "format must be json or markdown", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.events.BroadcastExportFailed(req.Format, err.Error())
		http.Error(w, "Export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.events.BroadcastExportCompleted(req.Format, result.FilePath, result.Count)

	writeJSON(w, http.StatusOK, result)
}
