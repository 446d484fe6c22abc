// Staged bulk import endpoints: preview, commit, discard, status.
package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/kimhsiao/conceptdeck/internal/cache"
	"github.com/kimhsiao/conceptdeck/internal/importer"
)

// importStage holds a validated batch between preview and commit. The
// raw bytes are kept so commit can re-run the validator; the validator
// is pure, so both runs see the same result.
type importStage struct {
	filePath string
	raw      []byte
	result   importer.ValidationResult
	stagedAt time.Time
}

// ImportHandler serves the staged import flow. A preview validates a
// local file and stages the outcome; commit merges the staged valid
// records into the snapshot; discard throws the stage away.
type ImportHandler struct {
	cache     *cache.Cache
	validator *importer.Validator
	guard     *OpGuard
	events    Broadcaster
	maxBytes  int64

	mu    sync.Mutex
	stage *importStage
}

// NewImportHandler creates an ImportHandler.
func NewImportHandler(c *cache.Cache, v *importer.Validator, guard *OpGuard, events Broadcaster, maxBytes int64) *ImportHandler {
	return &ImportHandler{
		cache:     c,
		validator: v,
		guard:     guard,
		events:    events,
		maxBytes:  maxBytes,
	}
}

// ImportPreviewRequest is the body for POST /api/import/preview.
type ImportPreviewRequest struct {
	FilePath string `json:"file_path"`
}

// Preview handles POST /api/import/preview. The file is read, validated
// and staged; nothing is written to the snapshot or the store.
func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ImportPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.FilePath == "" {
		http.Error(w, "file_path is required", http.StatusBadRequest)
		return
	}

	if !h.guard.TryAcquire(OpImport) {
		respondBusy(w, OpImport)
		return
	}
	defer h.guard.Release(OpImport)

	raw, err := importer.ReadConceptFile(req.FilePath, h.maxBytes)
	if err != nil {
		h.events.BroadcastImportFailed(err.Error())
		http.Error(w, "Import failed: "+err.Error(), statusFor(err))
		return
	}

	result := h.validator.Validate(raw)

	h.mu.Lock()
	h.stage = &importStage{
		filePath: req.FilePath,
		raw:      raw,
		result:   result,
		stagedAt: time.Now(),
	}
	h.mu.Unlock()

	h.events.BroadcastImportStaged(req.FilePath, result.TotalConcepts,
		len(result.ValidConcepts), result.ErrorCount(), result.WarningCount())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file_path": req.FilePath,
		"staged":    true,
		"result":    result,
	})
}

// Commit handles POST /api/import/commit. The staged bytes are
// re-validated and the valid records merged into the snapshot; records
// whose title already exists locally are skipped.
func (h *ImportHandler) Commit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.guard.TryAcquire(OpImport) {
		respondBusy(w, OpImport)
		return
	}
	defer h.guard.Release(OpImport)

	h.mu.Lock()
	stage := h.stage
	h.mu.Unlock()

	if stage == nil {
		http.Error(w, "No import is staged", http.StatusConflict)
		return
	}

	result := h.validator.Validate(stage.raw)
	if !result.IsValid {
		h.events.BroadcastImportFailed("staged batch has validation errors")
		http.Error(w, "Staged import has validation errors; fix the file and preview again", http.StatusBadRequest)
		return
	}

	merged, added := importer.Merge(h.cache.Snapshot(), result.ValidConcepts)
	if err := h.cache.Replace(merged); err != nil {
		h.events.BroadcastImportFailed(err.Error())
		http.Error(w, "Commit failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	h.stage = nil
	h.mu.Unlock()

	h.events.BroadcastImportCommitted(added, len(merged))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"added":   added,
		"skipped": len(result.ValidConcepts) - added,
		"total":   len(merged),
	})
}

// Discard handles POST /api/import/discard.
func (h *ImportHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.mu.Lock()
	staged := h.stage != nil
	h.stage = nil
	h.mu.Unlock()

	if !staged {
		http.Error(w, "No import is staged", http.StatusConflict)
		return
	}

	h.events.BroadcastImportDiscarded()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"discarded": true,
	})
}

// Status handles GET /api/import/status.
func (h *ImportHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.mu.Lock()
	stage := h.stage
	h.mu.Unlock()

	if stage == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"staged": false,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"staged":    true,
		"file_path": stage.filePath,
		"staged_at": stage.stagedAt,
		"is_valid":  stage.result.IsValid,
		"total":     stage.result.TotalConcepts,
		"valid":     len(stage.result.ValidConcepts),
		"errors":    stage.result.ErrorCount(),
		"warnings":  stage.result.WarningCount(),
	})
}
