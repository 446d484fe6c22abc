// Package importer implements the concept import pipeline: file gate,
// validation of untrusted input and the additive merge policy.
package importer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "github.com/kimhsiao/conceptdeck/internal/errors"
	"github.com/kimhsiao/conceptdeck/internal/models"
)

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic describes one finding of the validator. Index is the
// zero-based record position, or -1 for batch-level findings.
type Diagnostic struct {
	Severity Severity            `json:"severity"`
	Code     apperrors.ErrorCode `json:"code,omitempty"`
	Message  string              `json:"message"`
	Field    string              `json:"field,omitempty"`
	Index    int                 `json:"index"`
}

// ValidationResult is the complete outcome of validating one batch.
// It is returned for preview and reused verbatim on commit.
type ValidationResult struct {
	IsValid       bool             `json:"isValid"`
	Diagnostics   []Diagnostic     `json:"diagnostics"`
	ValidConcepts []models.Concept `json:"validConcepts"`
	TotalConcepts int              `json:"totalConcepts"`
}

// ErrorCount returns the number of error-level diagnostics.
func (r *ValidationResult) ErrorCount() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

// WarningCount returns the number of warning-level diagnostics.
func (r *ValidationResult) WarningCount() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// fieldKind selects how a schema field is checked and extracted.
type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindID
	kindTime
)

// fieldRule is one row of the declarative record schema.
type fieldRule struct {
	name     string
	kind     fieldKind
	required bool
}

// conceptSchema drives the validator. The known key set is exactly
// the rows of this table; everything else is an unknown field.
var conceptSchema = []fieldRule{
	{"id", kindID, false},
	{"topicID", kindNumber, false},
	{"topic", kindString, true},
	{"title", kindString, true},
	{"definition", kindString, true},
	{"keyword", kindString, true},
	{"detailedExplanation", kindString, false},
	{"whenToUse", kindString, false},
	{"whyNeed", kindString, false},
	{"codeExample", kindString, false},
	{"differences", kindString, false},
	{"createdAt", kindTime, false},
	{"updatedAt", kindTime, false},
}

var knownFields = func() map[string]bool {
	m := make(map[string]bool, len(conceptSchema))
	for _, rule := range conceptSchema {
		m[rule.name] = true
	}
	return m
}()

// Validator turns untrusted raw input into a ValidationResult. It is
// pure: no I/O, and with a fixed clock the same input always yields
// the same output, so preview and commit can run it independently.
type Validator struct {
	now func() time.Time
}

// NewValidator returns a validator that stamps defaulted timestamps
// with time.Now.
func NewValidator() *Validator {
	return NewValidatorWithClock(time.Now)
}

// NewValidatorWithClock returns a validator with a fixed clock so
// repeated runs over the same input produce identical output.
func NewValidatorWithClock(now func() time.Time) *Validator {
	return &Validator{now: now}
}

// Validate checks a raw JSON batch of concept records. It never
// returns an error; malformed input becomes an error diagnostic.
func (v *Validator) Validate(raw []byte) ValidationResult {
	result := ValidationResult{
		Diagnostics:   []Diagnostic{},
		ValidConcepts: []models.Concept{},
	}

	var parsed interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: SeverityError,
			Code:     apperrors.ErrMalformedInput,
			Message:  fmt.Sprintf("input is not valid JSON: %v", err),
			Index:    -1,
		})
		return result
	}

	records, ok := parsed.([]interface{})
	if !ok {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: SeverityError,
			Code:     apperrors.ErrMalformedInput,
			Message:  "expected an array of concept records",
			Index:    -1,
		})
		return result
	}

	if len(records) == 0 {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Code:     apperrors.ErrEmptyBatch,
			Message:  "no concepts to import",
			Index:    -1,
		})
		return result
	}

	result.TotalConcepts = len(records)
	now := v.now()
	seenTitles := make(map[string]struct{})
	errorCount := 0

	for i, entry := range records {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: SeverityError,
				Code:     apperrors.ErrSchemaViolation,
				Message:  fmt.Sprintf("record %d is not an object", i),
				Index:    i,
			})
			errorCount++
			continue
		}

		recordErrors := v.checkRecord(obj, i, seenTitles, &result)
		errorCount += recordErrors
		if recordErrors == 0 {
			result.ValidConcepts = append(result.ValidConcepts, buildConcept(obj, now))
		}
	}

	result.IsValid = len(result.ValidConcepts) > 0 && errorCount == 0
	if result.IsValid {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("%d concepts ready to import", len(result.ValidConcepts)),
			Index:    -1,
		})
	}
	return result
}

// checkRecord walks the schema for one record and appends its
// diagnostics. Returns the number of error-level findings.
func (v *Validator) checkRecord(obj map[string]interface{}, index int, seenTitles map[string]struct{}, result *ValidationResult) int {
	errorCount := 0

	// required fields: present, a string, non-empty after trim
	for _, rule := range conceptSchema {
		if !rule.required {
			continue
		}
		value, present := obj[rule.name]
		var message string
		switch {
		case !present:
			message = fmt.Sprintf("record %d: required field %q is missing", index, rule.name)
		default:
			s, isString := value.(string)
			switch {
			case !isString:
				message = fmt.Sprintf("record %d: field %q must be a string", index, rule.name)
			case strings.TrimSpace(s) == "":
				message = fmt.Sprintf("record %d: field %q cannot be empty", index, rule.name)
			}
		}
		if message != "" {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: SeverityError,
				Code:     apperrors.ErrSchemaViolation,
				Message:  message,
				Field:    rule.name,
				Index:    index,
			})
			errorCount++
		}
	}

	// unknown fields warn but never block
	var unknown []string
	for key := range obj {
		if !knownFields[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Code:     apperrors.ErrUnknownField,
			Message:  fmt.Sprintf("record %d: unknown field %q will be ignored", index, key),
			Field:    key,
			Index:    index,
		})
	}

	// duplicate titles within the batch warn; the merge step keeps
	// only the first occurrence
	if s, ok := obj["title"].(string); ok {
		if key := models.TitleKey(s); key != "" {
			if _, dup := seenTitles[key]; dup {
				result.Diagnostics = append(result.Diagnostics, Diagnostic{
					Severity: SeverityWarning,
					Code:     apperrors.ErrDuplicateTitle,
					Message:  fmt.Sprintf("record %d: duplicate title %q, only first occurrence imported", index, s),
					Field:    "title",
					Index:    index,
				})
			} else {
				seenTitles[key] = struct{}{}
			}
		}
	}

	// topicID is optional but must be numeric when present
	if value, present := obj["topicID"]; present {
		if _, isNumber := value.(float64); !isNumber {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: SeverityError,
				Code:     apperrors.ErrSchemaViolation,
				Message:  fmt.Sprintf("record %d: field %q must be a number", index, "topicID"),
				Field:    "topicID",
				Index:    index,
			})
			errorCount++
		}
	}

	return errorCount
}

// buildConcept extracts the known fields of an accepted record and
// normalizes them through the draft factory.
func buildConcept(obj map[string]interface{}, now time.Time) models.Concept {
	params := models.DraftParams{}
	for _, rule := range conceptSchema {
		value, present := obj[rule.name]
		if !present {
			continue
		}
		switch rule.kind {
		case kindString:
			s, _ := value.(string)
			setStringParam(&params, rule.name, s)
		case kindNumber:
			if f, ok := value.(float64); ok {
				params.TopicID = int(f)
			}
		case kindID:
			if s, ok := value.(string); ok {
				params.ID = s
			}
		case kindTime:
			setTimeParam(&params, rule.name, parseTimestamp(value))
		}
	}
	return models.NewDraft(params, now)
}

func setStringParam(params *models.DraftParams, name, value string) {
	switch name {
	case "topic":
		params.Topic = value
	case "title":
		params.Title = value
	case "definition":
		params.Definition = value
	case "keyword":
		params.Keyword = value
	case "detailedExplanation":
		params.DetailedExplanation = value
	case "whenToUse":
		params.WhenToUse = value
	case "whyNeed":
		params.WhyNeed = value
	case "codeExample":
		params.CodeExample = value
	case "differences":
		params.Differences = value
	}
}

func setTimeParam(params *models.DraftParams, name string, value time.Time) {
	switch name {
	case "createdAt":
		params.CreatedAt = value
	case "updatedAt":
		params.UpdatedAt = value
	}
}

// millisecondEpoch marks the boundary above which a numeric timestamp
// is read as unix milliseconds rather than seconds.
const millisecondEpoch = 1e11

// parseTimestamp accepts RFC3339 strings and unix second or
// millisecond numbers. Anything else yields the zero time, which the
// draft factory replaces with the validation clock.
func parseTimestamp(value interface{}) time.Time {
	switch v := value.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	case float64:
		switch {
		case v >= millisecondEpoch:
			return time.UnixMilli(int64(v))
		case v > 0:
			return time.Unix(int64(v), 0)
		}
	}
	return time.Time{}
}
