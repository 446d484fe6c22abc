package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/conceptdeck/internal/models"
)

func TestSuggest_ranksByFrequency(t *testing.T) {
	s := NewSuggester(3)

	got := s.SuggestFromText(
		"goroutine goroutine goroutine channel channel select waitgroup")

	require.Len(t, got, 3)
	assert.Equal(t, "goroutine", got[0].Keyword)
	assert.Equal(t, "channel", got[1].Keyword)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestSuggest_tiesBreakAlphabetically(t *testing.T) {
	s := NewSuggester(4)

	got := s.SuggestFromText("zebra apple mango apple zebra mango")

	require.Len(t, got, 3)
	assert.Equal(t, "apple", got[0].Keyword)
	assert.Equal(t, "mango", got[1].Keyword)
	assert.Equal(t, "zebra", got[2].Keyword)
}

func TestSuggest_neverReturnsStopWords(t *testing.T) {
	s := NewSuggester(20)

	got := s.SuggestFromText(
		"the the the and and with very goroutine because through during")

	require.Len(t, got, 1)
	assert.Equal(t, "goroutine", got[0].Keyword)
}

func TestSuggest_normalizesTokens(t *testing.T) {
	s := NewSuggester(5)

	got := s.SuggestFromText("Goroutine, GOROUTINE! (goroutine)")

	require.Len(t, got, 1)
	assert.Equal(t, "goroutine", got[0].Keyword)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestSuggest_dropsShortAndNumericTokens(t *testing.T) {
	s := NewSuggester(10)

	got := s.SuggestFromText("go io 42 100 channel x1")

	keywords := make([]string, 0, len(got))
	for _, sg := range got {
		keywords = append(keywords, sg.Keyword)
	}
	assert.NotContains(t, keywords, "go")
	assert.NotContains(t, keywords, "42")
	assert.Contains(t, keywords, "channel")
}

func TestSuggest_excludesExistingKeyword(t *testing.T) {
	s := NewSuggester(10)
	c := models.Concept{
		Title:      "Mutex",
		Definition: "A mutex guards shared state. The mutex blocks writers.",
		Keyword:    "mutex",
	}

	got := s.Suggest(c)

	for _, sg := range got {
		assert.NotEqual(t, "mutex", sg.Keyword)
	}
	require.NotEmpty(t, got)
}

func TestSuggest_combinesDraftFields(t *testing.T) {
	s := NewSuggester(10)
	c := models.Concept{
		Title:               "Context",
		Definition:          "Carries deadlines across boundaries.",
		DetailedExplanation: "Cancellation propagates to children.",
		WhenToUse:           "Long-running requests.",
	}

	got := s.Suggest(c)
	keywords := make([]string, 0, len(got))
	for _, sg := range got {
		keywords = append(keywords, sg.Keyword)
	}

	assert.Contains(t, keywords, "context")
	assert.Contains(t, keywords, "cancellation")
	assert.Contains(t, keywords, "deadlines")
}

func TestSuggest_emptyInput(t *testing.T) {
	s := NewSuggester(0) // falls back to DefaultLimit

	assert.Empty(t, s.SuggestFromText(""))
	assert.Empty(t, s.Suggest(models.Concept{}))
	assert.NotNil(t, s.Suggest(models.Concept{}))
}

func TestSuggest_respectsLimit(t *testing.T) {
	s := NewSuggester(2)

	got := s.SuggestFromText("alpha beta gamma delta epsilon")
	assert.Len(t, got, 2)
}
