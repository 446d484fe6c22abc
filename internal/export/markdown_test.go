package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/conceptdeck/internal/cache"
	"github.com/kimhsiao/conceptdeck/internal/models"
)

func TestRenderHTML_rendersExplanationFields(t *testing.T) {
	c := models.NewDraft(models.DraftParams{
		Topic: "Go", Title: "Channel",
		Definition:          "A typed conduit between goroutines.",
		Keyword:             "concurrency",
		DetailedExplanation: "| op | blocks |\n|---|---|\n| send | yes |",
		WhenToUse:           "Passing ownership of data.",
		CodeExample:         "ch := make(chan int)\nch <- 1",
	}, exportNow)

	html, err := RenderHTML(c)
	require.NoError(t, err)

	assert.Contains(t, html, "A typed conduit between goroutines.")
	assert.Contains(t, html, "<strong>Keyword:</strong>")
	assert.Contains(t, html, "<table>") // GFM tables enabled
	assert.Contains(t, html, "<pre><code>")
	assert.Contains(t, html, "ch := make(chan int)")
}

func TestRenderHTML_escapesRawHTML(t *testing.T) {
	c := models.NewDraft(models.DraftParams{
		Topic: "Go", Title: "XSS",
		Definition: "<script>alert(1)</script>",
		Keyword:    "safety",
	}, exportNow)

	html, err := RenderHTML(c)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestStudySheet_skipsEmptyOptionalFields(t *testing.T) {
	snap := cache.Snapshot{
		models.NewDraft(models.DraftParams{
			Topic: "Go", Title: "Minimal",
			Definition: "Just the required fields.",
			Keyword:    "basics",
		}, exportNow),
	}

	sheet := StudySheet(snap, exportNow)

	assert.Contains(t, sheet, "### Minimal")
	assert.Contains(t, sheet, "**Keyword:** basics")
	assert.NotContains(t, sheet, "When to use")
	assert.NotContains(t, sheet, "Why it matters")
	assert.NotContains(t, sheet, "```")
}

func TestStudySheet_emptySnapshot(t *testing.T) {
	sheet := StudySheet(nil, time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC))

	assert.True(t, strings.HasPrefix(sheet, "# Concept study sheet"))
	assert.Contains(t, sheet, "(0 concepts)")
	assert.NotContains(t, sheet, "##  ")
}
