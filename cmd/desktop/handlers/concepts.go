// Concept CRUD, listing and preview endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kimhsiao/conceptdeck/internal/cache"
	"github.com/kimhsiao/conceptdeck/internal/export"
	"github.com/kimhsiao/conceptdeck/internal/logging"
	"github.com/kimhsiao/conceptdeck/internal/models"
	"github.com/kimhsiao/conceptdeck/internal/search"
	"github.com/kimhsiao/conceptdeck/internal/store"
)

// ConceptHandler serves the concept CRUD and query endpoints. Writes go
// through the store gateway; reads are answered from the local snapshot.
type ConceptHandler struct {
	store  store.Gateway
	cache  *cache.Cache
	events Broadcaster
}

// NewConceptHandler creates a ConceptHandler.
func NewConceptHandler(gw store.Gateway, c *cache.Cache, events Broadcaster) *ConceptHandler {
	return &ConceptHandler{store: gw, cache: c, events: events}
}

// refresh pulls the full record set from the store and swaps the local
// snapshot. Called after every successful write. A refresh failure
// leaves the snapshot stale but never fails the write that caused it.
func (h *ConceptHandler) refresh(ctx context.Context) {
	concepts, err := h.store.FetchAll(ctx)
	if err != nil {
		logging.Warn("Snapshot refresh failed after write", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if err := h.cache.Replace(concepts); err != nil {
		logging.Warn("Snapshot persist failed after write", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// ListConcepts handles GET /api/concepts with optional q, topic,
// topic_id, page and per_page parameters.
func (h *ConceptHandler) ListConcepts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	query := search.Query{
		Q:     params.Get("q"),
		Topic: params.Get("topic"),
	}
	if raw := params.Get("topic_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "topic_id must be an integer", http.StatusBadRequest)
			return
		}
		query.TopicID = &id
	}
	query.Page, _ = strconv.Atoi(params.Get("page"))
	query.PerPage, _ = strconv.Atoi(params.Get("per_page"))

	page := search.Filter(h.cache.Snapshot(), query)

	writeJSON(w, http.StatusOK, page)
}

// CreateConcept handles POST /api/concepts.
func (h *ConceptHandler) CreateConcept(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body models.Concept
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	draft := models.NewDraft(body.Params(), time.Now())
	created, err := h.store.Create(r.Context(), draft)
	if err != nil {
		http.Error(w, "Create failed: "+err.Error(), statusFor(err))
		return
	}

	h.refresh(r.Context())
	h.events.BroadcastConceptCreated(created.ID, created.Title)

	writeJSON(w, http.StatusCreated, created)
}

// GetConcept handles GET /api/concepts/{id}.
func (h *ConceptHandler) GetConcept(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Missing concept id", http.StatusBadRequest)
		return
	}

	concept, ok := h.cache.Snapshot().FindByID(id)
	if !ok {
		http.Error(w, "Concept not found: "+id, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, concept)
}

// UpdateConcept handles PUT /api/concepts/{id}.
func (h *ConceptHandler) UpdateConcept(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Missing concept id", http.StatusBadRequest)
		return
	}

	var patch models.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		http.Error(w, "Update failed: "+err.Error(), statusFor(err))
		return
	}

	h.refresh(r.Context())
	h.events.BroadcastConceptUpdated(updated.ID, updated.Title)

	writeJSON(w, http.StatusOK, updated)
}

// DeleteConcept handles DELETE /api/concepts/{id}.
func (h *ConceptHandler) DeleteConcept(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Missing concept id", http.StatusBadRequest)
		return
	}

	deleted, err := h.store.DeleteByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Delete failed: "+err.Error(), statusFor(err))
		return
	}

	h.refresh(r.Context())
	h.events.BroadcastConceptDeleted(deleted.ID)

	w.WriteHeader(http.StatusNoContent)
}

// PreviewConcept handles GET /api/concepts/{id}/preview, rendering the
// record's Markdown fields to HTML.
func (h *ConceptHandler) PreviewConcept(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Missing concept id", http.StatusBadRequest)
		return
	}

	concept, ok := h.cache.Snapshot().FindByID(id)
	if !ok {
		http.Error(w, "Concept not found: "+id, http.StatusNotFound)
		return
	}

	html, err := export.RenderHTML(concept)
	if err != nil {
		http.Error(w, "Preview failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":    concept.ID,
		"title": concept.Title,
		"html":  html,
	})
}
