package export

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kimhsiao/conceptdeck/internal/cache"
	apperrors "github.com/kimhsiao/conceptdeck/internal/errors"
	"github.com/kimhsiao/conceptdeck/internal/export/crypto"
	"github.com/kimhsiao/conceptdeck/internal/importer"
)

const (
	manifestName   = "manifest.json"
	dataName       = "data.json"
	archiveVersion = "1.0"
)

// Manifest is the metadata entry of a backup archive. It never holds
// the password or anything derived from it.
type Manifest struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Checksum   string    `json:"checksum"`
	Encrypted  bool      `json:"encrypted"`
}

// BackupResult describes a written backup archive.
type BackupResult struct {
	FilePath  string `json:"file_path"`
	SizeBytes int64  `json:"size_bytes"`
	Count     int    `json:"count"`
	Checksum  string `json:"checksum"`
	Encrypted bool   `json:"encrypted"`
}

// RestoreResult carries the manifest of a restored archive plus the
// validation result of its data; Result.ValidConcepts is the record
// set to load.
type RestoreResult struct {
	Manifest Manifest                  `json:"manifest"`
	Result   importer.ValidationResult `json:"result"`
}

// Backup writes the snapshot as a tar.gz archive holding manifest.json
// and data.json, encrypted when a password is given.
func (s *Service) Backup(snap cache.Snapshot, password string) (*BackupResult, error) {
	data, err := MarshalConcepts(snap)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to encode concepts", err)
	}

	manifest := Manifest{
		Version:    archiveVersion,
		ExportedAt: s.now(),
		Count:      len(snap),
		Checksum:   Checksum(data),
		Encrypted:  password != "",
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to encode manifest", err)
	}

	payload, err := buildArchive(manifest, manifestData, data)
	if err != nil {
		return nil, err
	}

	if password != "" {
		payload, err = crypto.EncryptArchive(payload, password)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidPassword, "password rejected", err)
		}
	}

	name := fmt.Sprintf("backup_%s.tar.gz", s.now().Format(timestampLayout))
	path := filepath.Join(s.dir, name)
	if err := s.writeFile(path, payload); err != nil {
		return nil, err
	}

	return &BackupResult{
		FilePath:  path,
		SizeBytes: int64(len(payload)),
		Count:     manifest.Count,
		Checksum:  manifest.Checksum,
		Encrypted: manifest.Encrypted,
	}, nil
}

// Restore opens a backup archive, verifies its checksum and runs the
// data through the import validator. The caller replaces the snapshot
// with Result.ValidConcepts; the store is never written here.
func (s *Service) Restore(path, password string) (*RestoreResult, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRestoreFailed, "failed to read archive", err)
	}

	if crypto.IsEncrypted(payload) {
		if password == "" {
			return nil, apperrors.New(apperrors.ErrInvalidPassword, "archive is encrypted and requires a password")
		}
		payload, err = crypto.DecryptArchive(payload, password)
		if err != nil {
			if errors.Is(err, crypto.ErrInvalidPassword) {
				return nil, apperrors.Wrap(apperrors.ErrInvalidPassword, "wrong password for archive", err)
			}
			return nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "failed to decrypt archive", err)
		}
	}

	files, err := extractArchive(payload)
	if err != nil {
		return nil, err
	}

	manifestData, ok := files[manifestName]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCorruptedArchive, "archive is missing "+manifestName)
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "manifest is not valid JSON", err)
	}

	data, ok := files[dataName]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCorruptedArchive, "archive is missing "+dataName)
	}
	if manifest.Checksum == "" || manifest.Checksum != Checksum(data) {
		return nil, apperrors.New(apperrors.ErrCorruptedArchive, "data checksum does not match manifest")
	}

	result := s.validator.Validate(data)
	if !result.IsValid {
		return nil, apperrors.Newf(apperrors.ErrRestoreFailed,
			"archive data failed validation with %d errors", result.ErrorCount())
	}

	return &RestoreResult{Manifest: manifest, Result: result}, nil
}

func buildArchive(manifest Manifest, manifestData, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	entries := []struct {
		name string
		data []byte
	}{
		{manifestName, manifestData},
		{dataName, data},
	}
	for _, entry := range entries {
		hdr := &tar.Header{
			Name:    entry.name,
			Mode:    0644,
			Size:    int64(len(entry.data)),
			ModTime: manifest.ExportedAt,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to write archive header", err)
		}
		if _, err := tw.Write(entry.data); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to write archive entry", err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to close archive", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to compress archive", err)
	}
	return buf.Bytes(), nil
}

func extractArchive(payload []byte) (map[string][]byte, error) {
	gzr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "archive is not gzip data", err)
	}
	defer gzr.Close()

	files := map[string][]byte{}
	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "failed to read archive entry", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCorruptedArchive, "failed to read archive entry", err)
		}
		files[hdr.Name] = data
	}
	return files, nil
}
