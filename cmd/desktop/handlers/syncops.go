// Sync push, pull and status endpoints.
package handlers

import (
	"net/http"

	"github.com/kimhsiao/conceptdeck/internal/cache"
	syncctl "github.com/kimhsiao/conceptdeck/internal/sync"
)

// SyncOpsHandler triggers sync operations against the store gateway.
// Outcomes are always returned with HTTP 200; the outcome's status
// field tells the UI whether the operation succeeded, was a no-op or
// failed. Only a concurrent operation of the same kind is an HTTP
// error.
type SyncOpsHandler struct {
	controller *syncctl.Controller
	cache      *cache.Cache
	guard      *OpGuard
	events     Broadcaster
}

// NewSyncOpsHandler creates a SyncOpsHandler.
func NewSyncOpsHandler(ctl *syncctl.Controller, c *cache.Cache, guard *OpGuard, events Broadcaster) *SyncOpsHandler {
	return &SyncOpsHandler{controller: ctl, cache: c, guard: guard, events: events}
}

// Push handles POST /api/sync/push, replacing the store contents with
// the local snapshot.
func (h *SyncOpsHandler) Push(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.guard.TryAcquire(OpSyncPush) {
		respondBusy(w, OpSyncPush)
		return
	}
	defer h.guard.Release(OpSyncPush)

	outcome := h.controller.Push(r.Context(), h.cache.Snapshot())
	h.events.BroadcastSyncOutcome(outcome)

	writeJSON(w, http.StatusOK, outcome)
}

// Pull handles POST /api/sync/pull, replacing the local snapshot with
// the store contents. An empty store leaves the snapshot unchanged.
func (h *SyncOpsHandler) Pull(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.guard.TryAcquire(OpSyncPull) {
		respondBusy(w, OpSyncPull)
		return
	}
	defer h.guard.Release(OpSyncPull)

	outcome, next := h.controller.Pull(r.Context(), h.cache.Snapshot())

	if outcome.Status == syncctl.StatusSuccess {
		if err := h.cache.Replace(next); err != nil {
			h.events.BroadcastSyncOutcome(outcome)
			http.Error(w, "Pull failed to persist snapshot: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	h.events.BroadcastSyncOutcome(outcome)

	writeJSON(w, http.StatusOK, outcome)
}

// Status handles GET /api/sync/status, reporting the last outcome per
// direction and the operations currently in flight.
func (h *SyncOpsHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	push, pull := h.controller.Last()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"push": push,
		"pull": pull,
		"busy": h.guard.Busy(),
	})
}
