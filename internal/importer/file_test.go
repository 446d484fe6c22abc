package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kimhsiao/conceptdeck/internal/errors"
)

const testMaxBytes = 1024

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadConceptFile_readsContent(t *testing.T) {
	path := writeTempFile(t, "concepts.json", `[{"title":"A"}]`)

	data, err := ReadConceptFile(path, testMaxBytes)

	require.NoError(t, err)
	assert.Equal(t, `[{"title":"A"}]`, string(data))
}

func TestReadConceptFile_extensionCaseInsensitive(t *testing.T) {
	path := writeTempFile(t, "concepts.JSON", `[]`)

	_, err := ReadConceptFile(path, testMaxBytes)

	assert.NoError(t, err)
}

func TestReadConceptFile_rejectsWrongExtension(t *testing.T) {
	path := writeTempFile(t, "concepts.txt", `[]`)

	_, err := ReadConceptFile(path, testMaxBytes)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalid))
	assert.Contains(t, err.Error(), ".json")
}

func TestReadConceptFile_rejectsOversizedBeforeRead(t *testing.T) {
	big := make([]byte, testMaxBytes+1)
	for i := range big {
		big[i] = 'x'
	}
	path := writeTempFile(t, "concepts.json", string(big))

	_, err := ReadConceptFile(path, testMaxBytes)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalid))
	assert.Contains(t, err.Error(), "byte limit")
}

func TestReadConceptFile_missingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	_, err := ReadConceptFile(path, testMaxBytes)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrImportFailed))
}

func TestReadConceptFile_rejectsDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "folder.json")
	require.NoError(t, os.Mkdir(dir, 0o755))

	_, err := ReadConceptFile(dir, testMaxBytes)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalid))
}
