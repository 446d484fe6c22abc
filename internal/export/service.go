// Package export writes the concept working set out as files: the
// canonical JSON array shared with import, a Markdown study sheet, and
// password-protectable backup archives.
package export

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kimhsiao/conceptdeck/internal/cache"
	apperrors "github.com/kimhsiao/conceptdeck/internal/errors"
	"github.com/kimhsiao/conceptdeck/internal/importer"
	"github.com/kimhsiao/conceptdeck/internal/models"
)

const timestampLayout = "20060102_150405"

// Format names an export file format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Result describes a written export file.
type Result struct {
	FilePath  string `json:"file_path"`
	Format    Format `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	Count     int    `json:"count"`
	Checksum  string `json:"checksum"`
}

// Service writes export artifacts under a fixed directory.
type Service struct {
	dir       string
	now       func() time.Time
	validator *importer.Validator
}

// NewService creates a Service writing into dir.
func NewService(dir string) *Service {
	return NewServiceWithClock(dir, time.Now)
}

// NewServiceWithClock injects the clock used for file names, manifests
// and restore validation.
func NewServiceWithClock(dir string, now func() time.Time) *Service {
	return &Service{
		dir:       dir,
		now:       now,
		validator: importer.NewValidatorWithClock(now),
	}
}

// MarshalConcepts renders the canonical export form: a two-space
// indented JSON array, byte-compatible with the import contract.
func MarshalConcepts(concepts []models.Concept) ([]byte, error) {
	if concepts == nil {
		concepts = []models.Concept{}
	}
	return json.MarshalIndent(concepts, "", "  ")
}

// Checksum returns the hex SHA-256 of the given bytes.
func Checksum(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// WriteJSON writes the snapshot as concepts_<timestamp>.json.
func (s *Service) WriteJSON(snap cache.Snapshot) (*Result, error) {
	data, err := MarshalConcepts(snap)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to encode concepts", err)
	}

	name := fmt.Sprintf("concepts_%s.json", s.now().Format(timestampLayout))
	path := filepath.Join(s.dir, name)
	if err := s.writeFile(path, data); err != nil {
		return nil, err
	}

	return &Result{
		FilePath:  path,
		Format:    FormatJSON,
		SizeBytes: int64(len(data)),
		Count:     len(snap),
		Checksum:  Checksum(data),
	}, nil
}

// WriteMarkdown writes the snapshot as a study sheet,
// concepts_<timestamp>.md.
func (s *Service) WriteMarkdown(snap cache.Snapshot) (*Result, error) {
	data := []byte(StudySheet(snap, s.now()))

	name := fmt.Sprintf("concepts_%s.md", s.now().Format(timestampLayout))
	path := filepath.Join(s.dir, name)
	if err := s.writeFile(path, data); err != nil {
		return nil, err
	}

	return &Result{
		FilePath:  path,
		Format:    FormatMarkdown,
		SizeBytes: int64(len(data)),
		Count:     len(snap),
		Checksum:  Checksum(data),
	}, nil
}

// writeFile writes data to a temp file and renames it into place.
func (s *Service) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.Wrap(apperrors.ErrExportFailed, "failed to create export directory", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return apperrors.Wrap(apperrors.ErrExportFailed, "failed to write export file", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return apperrors.Wrap(apperrors.ErrExportFailed, "failed to finalize export file", err)
	}
	return nil
}
