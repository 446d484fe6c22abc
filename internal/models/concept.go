// Package models provides data model definitions for ConceptDeck.
package models

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Concept represents a single knowledge-base record.
type Concept struct {
	ID                  string    `db:"id" json:"id,omitempty"`
	TopicID             int       `db:"topic_id" json:"topicID"`
	Topic               string    `db:"topic" json:"topic"`
	Title               string    `db:"title" json:"title"`
	Definition          string    `db:"definition" json:"definition"`
	Keyword             string    `db:"keyword" json:"keyword"`
	DetailedExplanation string    `db:"detailed_explanation" json:"detailedExplanation"`
	WhenToUse           string    `db:"when_to_use" json:"whenToUse"`
	WhyNeed             string    `db:"why_need" json:"whyNeed"`
	CodeExample         string    `db:"code_example" json:"codeExample"`
	Differences         string    `db:"differences" json:"differences"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}

// TableName returns the table name for Concept.
func (Concept) TableName() string {
	return "concepts"
}

// notBlank rejects strings that are empty after trimming.
var notBlank = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return validation.ErrRequired
	}
	return nil
})

// Validate enforces the required-field invariants. Records accepted
// into the system always carry non-blank topic, title, definition
// and keyword.
func (c Concept) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Topic, validation.Required, notBlank),
		validation.Field(&c.Title, validation.Required, notBlank),
		validation.Field(&c.Definition, validation.Required, notBlank),
		validation.Field(&c.Keyword, validation.Required, notBlank),
	)
}

// TitleKey returns the case-insensitive form of the title used for
// duplicate detection during import and merge.
func (c *Concept) TitleKey() string {
	return TitleKey(c.Title)
}

// TitleKey normalizes a title for duplicate comparison.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// IsDraft reports whether the record has not been persisted yet.
func (c *Concept) IsDraft() bool {
	return c.ID == ""
}

// Touch updates the UpdatedAt timestamp.
func (c *Concept) Touch(now time.Time) {
	c.UpdatedAt = now
}

// DraftParams carries the raw values for building a new record.
type DraftParams struct {
	ID                  string
	TopicID             int
	Topic               string
	Title               string
	Definition          string
	Keyword             string
	DetailedExplanation string
	WhenToUse           string
	WhyNeed             string
	CodeExample         string
	Differences         string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewDraft builds a normalized Concept from raw params. All string
// fields are trimmed, missing optionals default to empty and zero
// timestamps default to now. This is the only construction path, so
// the defaulting rules live in one place.
func NewDraft(p DraftParams, now time.Time) Concept {
	c := Concept{
		ID:                  strings.TrimSpace(p.ID),
		TopicID:             p.TopicID,
		Topic:               strings.TrimSpace(p.Topic),
		Title:               strings.TrimSpace(p.Title),
		Definition:          strings.TrimSpace(p.Definition),
		Keyword:             strings.TrimSpace(p.Keyword),
		DetailedExplanation: strings.TrimSpace(p.DetailedExplanation),
		WhenToUse:           strings.TrimSpace(p.WhenToUse),
		WhyNeed:             strings.TrimSpace(p.WhyNeed),
		CodeExample:         strings.TrimSpace(p.CodeExample),
		Differences:         strings.TrimSpace(p.Differences),
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	return c
}

// Params converts a decoded record back into draft parameters. Handlers
// accept concept JSON bodies and rebuild the record through NewDraft so
// the normalization rules apply to every construction path.
func (c Concept) Params() DraftParams {
	return DraftParams{
		ID:                  c.ID,
		TopicID:             c.TopicID,
		Topic:               c.Topic,
		Title:               c.Title,
		Definition:          c.Definition,
		Keyword:             c.Keyword,
		DetailedExplanation: c.DetailedExplanation,
		WhenToUse:           c.WhenToUse,
		WhyNeed:             c.WhyNeed,
		CodeExample:         c.CodeExample,
		Differences:         c.Differences,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

// Patch carries optional replacement values for an update. Nil fields
// are left unchanged.
type Patch struct {
	TopicID             *int    `json:"topicID,omitempty"`
	Topic               *string `json:"topic,omitempty"`
	Title               *string `json:"title,omitempty"`
	Definition          *string `json:"definition,omitempty"`
	Keyword             *string `json:"keyword,omitempty"`
	DetailedExplanation *string `json:"detailedExplanation,omitempty"`
	WhenToUse           *string `json:"whenToUse,omitempty"`
	WhyNeed             *string `json:"whyNeed,omitempty"`
	CodeExample         *string `json:"codeExample,omitempty"`
	Differences         *string `json:"differences,omitempty"`
}

// Apply copies the patch onto the record, trimming string values the
// same way NewDraft does.
func (p *Patch) Apply(c *Concept) {
	if p.TopicID != nil {
		c.TopicID = *p.TopicID
	}
	setTrimmed := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setTrimmed(&c.Topic, p.Topic)
	setTrimmed(&c.Title, p.Title)
	setTrimmed(&c.Definition, p.Definition)
	setTrimmed(&c.Keyword, p.Keyword)
	setTrimmed(&c.DetailedExplanation, p.DetailedExplanation)
	setTrimmed(&c.WhenToUse, p.WhenToUse)
	setTrimmed(&c.WhyNeed, p.WhyNeed)
	setTrimmed(&c.CodeExample, p.CodeExample)
	setTrimmed(&c.Differences, p.Differences)
}
