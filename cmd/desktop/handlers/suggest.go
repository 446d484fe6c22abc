// Keyword suggestion endpoint.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kimhsiao/conceptdeck/internal/models"
	"github.com/kimhsiao/conceptdeck/internal/suggest"
)

// SuggestHandler serves keyword suggestions for a draft record.
type SuggestHandler struct {
	suggester *suggest.Suggester
}

// NewSuggestHandler creates a SuggestHandler.
func NewSuggestHandler(s *suggest.Suggester) *SuggestHandler {
	return &SuggestHandler{suggester: s}
}

// SuggestKeyword handles POST /api/suggest/keyword. The body is a
// concept draft; the suggester ranks terms from its prose fields.
func (h *SuggestHandler) SuggestKeyword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var draft models.Concept
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	suggestions := h.suggester.Suggest(draft)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"total":       len(suggestions),
	})
}
