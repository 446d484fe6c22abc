// Backup and restore endpoints.
package handlers

import (
	"encoding/json"
	"net/http"
)

// BackupRequest is the body for POST /api/backup. The password is
// optional; when present the archive is encrypted and the password is
// never stored anywhere.
type BackupRequest struct {
	Password string `json:"password"`
}

// RestoreRequest is the body for POST /api/backup/restore.
type RestoreRequest struct {
	FilePath string `json:"file_path"`
	Password string `json:"password"`
}

// Backup handles POST /api/backup, writing a tar.gz archive of the
// current snapshot to the export directory.
func (h *ExportHandler) Backup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BackupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if !h.guard.TryAcquire(OpBackup) {
		respondBusy(w, OpBackup)
		return
	}
	defer h.guard.Release(OpBackup)

	result, err := h.exporter.Backup(h.cache.Snapshot(), req.Password)
	if err != nil {
		h.events.BroadcastBackupFailed(err.Error())
		http.Error(w, "Backup failed: "+err.Error(), statusFor(err))
		return
	}

	h.events.BroadcastBackupCompleted(result.FilePath, result.Count, result.Encrypted)

	writeJSON(w, http.StatusOK, result)
}

// Restore handles POST /api/backup/restore. The archive data runs
// through the validator and, when clean, replaces the local snapshot.
// The store is not written; push the restored set explicitly.
func (h *ExportHandler) Restore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.FilePath == "" {
		http.Error(w, "file_path is required", http.StatusBadRequest)
		return
	}

	if !h.guard.TryAcquire(OpRestore) {
		respondBusy(w, OpRestore)
		return
	}
	defer h.guard.Release(OpRestore)

	result, err := h.exporter.Restore(req.FilePath, req.Password)
	if err != nil {
		h.events.BroadcastRestoreFailed(err.Error())
		http.Error(w, "Restore failed: "+err.Error(), statusFor(err))
		return
	}

	if err := h.cache.Replace(result.Result.ValidConcepts); err != nil {
		h.events.BroadcastRestoreFailed(err.Error())
		http.Error(w, "Restore failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	restored := len(result.Result.ValidConcepts)
	h.events.BroadcastRestoreCompleted(restored)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"manifest": result.Manifest,
		"restored": restored,
		"warnings": result.Result.WarningCount(),
	})
}
