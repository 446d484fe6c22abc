package importer

import (
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/kimhsiao/conceptdeck/internal/errors"
)

// ReadConceptFile reads an import file after gating it: the extension
// must be .json and the size must stay under maxBytes. Both checks run
// before the file content is read, so oversized files are never loaded.
func ReadConceptFile(path string, maxBytes int64) ([]byte, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		return nil, apperrors.Newf(apperrors.ErrInvalid, "unsupported file type %q, expected .json", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrImportFailed, "cannot access import file", err)
	}
	if info.IsDir() {
		return nil, apperrors.New(apperrors.ErrInvalid, "import path is a directory")
	}
	if info.Size() > maxBytes {
		return nil, apperrors.Newf(apperrors.ErrInvalid, "file size %d exceeds the %d byte limit", info.Size(), maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrImportFailed, "failed to read import file", err)
	}
	return data, nil
}
