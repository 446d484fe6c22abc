// Topic listing endpoint.
package handlers

import (
	"net/http"

	"github.com/kimhsiao/conceptdeck/internal/cache"
	"github.com/kimhsiao/conceptdeck/internal/search"
)

// TopicHandler serves the distinct-topic listing.
type TopicHandler struct {
	cache *cache.Cache
}

// NewTopicHandler creates a TopicHandler.
func NewTopicHandler(c *cache.Cache) *TopicHandler {
	return &TopicHandler{cache: c}
}

// ListTopics handles GET /api/topics.
func (h *TopicHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	topics := search.Topics(h.cache.Snapshot())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"topics": topics,
		"total":  len(topics),
	})
}
