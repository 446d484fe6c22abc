package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/kimhsiao/conceptdeck/internal/cache"
	apperrors "github.com/kimhsiao/conceptdeck/internal/errors"
	"github.com/kimhsiao/conceptdeck/internal/models"
)

// markdown renders GFM (tables, strikethrough, autolinks) with raw
// HTML escaped, since concept fields are user input.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// StudySheet renders the snapshot as a Markdown document grouped by
// topic. Topics are sorted case-insensitively; concepts keep their
// snapshot order within a topic.
func StudySheet(snap cache.Snapshot, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString("# Concept study sheet\n\n")
	fmt.Fprintf(&b, "Generated %s (%d concepts).\n", generatedAt.Format("2006-01-02 15:04"), len(snap))

	grouped := map[string][]models.Concept{}
	var topics []string
	for _, c := range snap {
		if _, ok := grouped[c.Topic]; !ok {
			topics = append(topics, c.Topic)
		}
		grouped[c.Topic] = append(grouped[c.Topic], c)
	}
	sort.SliceStable(topics, func(i, j int) bool {
		return strings.ToLower(topics[i]) < strings.ToLower(topics[j])
	})

	for _, topic := range topics {
		fmt.Fprintf(&b, "\n## %s\n", topic)
		for _, c := range grouped[topic] {
			fmt.Fprintf(&b, "\n### %s\n\n", c.Title)
			writeConceptBody(&b, c)
		}
	}

	return b.String()
}

// RenderHTML renders one concept's explanation fields as HTML for the
// detail preview.
func RenderHTML(c models.Concept) (string, error) {
	var b strings.Builder
	writeConceptBody(&b, c)

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(b.String()), &buf); err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternal, "failed to render concept", err)
	}
	return buf.String(), nil
}

// writeConceptBody emits the shared Markdown body for one concept.
// Empty optional fields are skipped.
func writeConceptBody(b *strings.Builder, c models.Concept) {
	fmt.Fprintf(b, "%s\n", c.Definition)

	if c.DetailedExplanation != "" {
		fmt.Fprintf(b, "\n%s\n", c.DetailedExplanation)
	}

	fmt.Fprintf(b, "\n**Keyword:** %s\n", c.Keyword)

	if c.WhenToUse != "" {
		fmt.Fprintf(b, "\n**When to use:** %s\n", c.WhenToUse)
	}
	if c.WhyNeed != "" {
		fmt.Fprintf(b, "\n**Why it matters:** %s\n", c.WhyNeed)
	}
	if c.Differences != "" {
		fmt.Fprintf(b, "\n**Differences:** %s\n", c.Differences)
	}
	if c.CodeExample != "" {
		fmt.Fprintf(b, "\n```\n%s\n```\n", strings.TrimRight(c.CodeExample, "\n"))
	}
}
