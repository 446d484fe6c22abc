// Package handlers provides the REST API for the ConceptDeck desktop app.
package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	apperrors "github.com/kimhsiao/conceptdeck/internal/errors"
	syncctl "github.com/kimhsiao/conceptdeck/internal/sync"
)

// Broadcaster pushes live events to connected UI clients. The WebSocket
// hub in cmd/desktop implements it; NopBroadcaster serves tests and
// headless use.
type Broadcaster interface {
	BroadcastConceptCreated(id, title string)
	BroadcastConceptUpdated(id, title string)
	BroadcastConceptDeleted(id string)
	BroadcastImportStaged(filePath string, total, valid, errors, warnings int)
	BroadcastImportCommitted(added, total int)
	BroadcastImportDiscarded()
	BroadcastImportFailed(reason string)
	BroadcastSyncOutcome(outcome syncctl.Outcome)
	BroadcastExportCompleted(format, filePath string, count int)
	BroadcastExportFailed(format, reason string)
	BroadcastBackupCompleted(filePath string, count int, encrypted bool)
	BroadcastBackupFailed(reason string)
	BroadcastRestoreCompleted(count int)
	BroadcastRestoreFailed(reason string)
}

// NopBroadcaster discards all events.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastConceptCreated(id, title string) {}

func (NopBroadcaster) BroadcastConceptUpdated(id, title string) {}

func (NopBroadcaster) BroadcastConceptDeleted(id string) {}

func (NopBroadcaster) BroadcastImportStaged(string, int, int, int, int) {}

func (NopBroadcaster) BroadcastImportCommitted(added, total int) {}

func (NopBroadcaster) BroadcastImportDiscarded() {}

func (NopBroadcaster) BroadcastImportFailed(reason string) {}

func (NopBroadcaster) BroadcastSyncOutcome(outcome syncctl.Outcome) {}

func (NopBroadcaster) BroadcastExportCompleted(string, string, int) {}

func (NopBroadcaster) BroadcastExportFailed(format, reason string) {}

func (NopBroadcaster) BroadcastBackupCompleted(string, int, bool) {}

func (NopBroadcaster) BroadcastBackupFailed(reason string) {}

func (NopBroadcaster) BroadcastRestoreCompleted(count int) {}

func (NopBroadcaster) BroadcastRestoreFailed(reason string) {}

// OpKind names a guarded long-running operation.
type OpKind string

const (
	OpExport   OpKind = "export"
	OpImport   OpKind = "import"
	OpSyncPush OpKind = "sync-push"
	OpSyncPull OpKind = "sync-pull"
	OpBackup   OpKind = "backup"
	OpRestore  OpKind = "restore"
)

// OpGuard allows one in-flight operation per kind. There is no queueing
// and no cancellation; a second request of the same kind is rejected
// while the first is running.
type OpGuard struct {
	mu   sync.Mutex
	busy map[OpKind]bool
}

// NewOpGuard creates a guard with no operations in flight.
func NewOpGuard() *OpGuard {
	return &OpGuard{busy: make(map[OpKind]bool)}
}

// TryAcquire marks the kind busy and reports whether it was free.
func (g *OpGuard) TryAcquire(kind OpKind) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy[kind] {
		return false
	}
	g.busy[kind] = true
	return true
}

// Release marks the kind free again.
func (g *OpGuard) Release(kind OpKind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, kind)
}

// Busy returns the kinds currently in flight, sorted for stable output.
func (g *OpGuard) Busy() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	kinds := make([]string, 0, len(g.busy))
	for kind := range g.busy {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	return kinds
}

// respondBusy rejects a request because another operation of the same
// kind is already running.
func respondBusy(w http.ResponseWriter, kind OpKind) {
	http.Error(w, "Another "+string(kind)+" operation is already running", http.StatusConflict)
}

// writeJSON sends a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps an application error to an HTTP status code.
func statusFor(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrValidation, apperrors.ErrInvalid, apperrors.ErrMalformedInput,
		apperrors.ErrImportFailed, apperrors.ErrRestoreFailed,
		apperrors.ErrInvalidPassword, apperrors.ErrCorruptedArchive:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
