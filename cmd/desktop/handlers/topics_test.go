package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/conceptdeck/internal/cache"
	"github.com/kimhsiao/conceptdeck/internal/search"
)

func TestListTopics_countsAndSorts(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Replace(cache.Snapshot{
		seededConcept("Joins", "SQL"),
		seededConcept("Goroutines", "Go"),
		seededConcept("Channels", "Go"),
	}))

	h := NewTopicHandler(c)
	w := invoke(h.ListTopics, jsonRequest(http.MethodGet, "/api/topics", ""))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Topics []search.Topic `json:"topics"`
		Total  int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Topics, 2)
	assert.Equal(t, search.Topic{Topic: "Go", Count: 2}, resp.Topics[0])
	assert.Equal(t, search.Topic{Topic: "SQL", Count: 1}, resp.Topics[1])
}

func TestListTopics_emptySnapshot(t *testing.T) {
	h := NewTopicHandler(newTestCache(t))

	w := invoke(h.ListTopics, jsonRequest(http.MethodGet, "/api/topics", ""))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":0`)
}

func TestListTopics_rejectsNonGet(t *testing.T) {
	h := NewTopicHandler(newTestCache(t))

	w := invoke(h.ListTopics, jsonRequest(http.MethodPost, "/api/topics", ""))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
