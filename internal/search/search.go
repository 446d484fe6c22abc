// Package search filters the concept snapshot for the list surface.
// Plain substring matching over a few fields; no ranking.
package search

import (
	"sort"
	"strings"

	"github.com/kimhsiao/conceptdeck/internal/cache"
	"github.com/kimhsiao/conceptdeck/internal/models"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Query holds the list filters. Zero values mean "no filter"; TopicID
// is a pointer because 0 is a real topic id.
type Query struct {
	Q       string
	Topic   string
	TopicID *int
	Page    int
	PerPage int
}

// Page is one page of filtered results.
type Page struct {
	Concepts   []models.Concept `json:"concepts"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
}

// Filter applies the query to a snapshot, preserving snapshot order.
func Filter(snap cache.Snapshot, q Query) Page {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 || q.PerPage > MaxPerPage {
		q.PerPage = DefaultPerPage
	}

	needle := strings.ToLower(strings.TrimSpace(q.Q))
	topic := strings.TrimSpace(q.Topic)

	matched := []models.Concept{}
	for _, c := range snap {
		if needle != "" && !matches(c, needle) {
			continue
		}
		if topic != "" && !strings.EqualFold(c.Topic, topic) {
			continue
		}
		if q.TopicID != nil && c.TopicID != *q.TopicID {
			continue
		}
		matched = append(matched, c)
	}

	total := len(matched)
	totalPages := (total + q.PerPage - 1) / q.PerPage
	if totalPages < 1 {
		totalPages = 1
	}

	start := (q.Page - 1) * q.PerPage
	if start > total {
		start = total
	}
	end := start + q.PerPage
	if end > total {
		end = total
	}

	return Page{
		Concepts:   matched[start:end],
		Total:      total,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: totalPages,
	}
}

// matches reports whether the lowercased needle occurs in any of the
// searchable fields.
func matches(c models.Concept, needle string) bool {
	for _, field := range []string{c.Title, c.Topic, c.Definition, c.Keyword} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Topic is one distinct topic label with its record count.
type Topic struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Topics lists the distinct topic labels of a snapshot with counts,
// sorted case-insensitively.
func Topics(snap cache.Snapshot) []Topic {
	counts := map[string]int{}
	var labels []string
	for _, c := range snap {
		if _, ok := counts[c.Topic]; !ok {
			labels = append(labels, c.Topic)
		}
		counts[c.Topic]++
	}

	sort.SliceStable(labels, func(i, j int) bool {
		a, b := strings.ToLower(labels[i]), strings.ToLower(labels[j])
		if a != b {
			return a < b
		}
		return labels[i] < labels[j]
	})

	out := make([]Topic, 0, len(labels))
	for _, label := range labels {
		out = append(out, Topic{Topic: label, Count: counts[label]})
	}
	return out
}
