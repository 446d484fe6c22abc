// Package cache persists the concept working set between sessions.
//
// The snapshot file is the desktop analog of browser local storage: a
// single JSON array in the canonical export format, replaced wholesale
// on every mutation. Readers always receive copies; the held snapshot
// is never handed out by reference.
package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/kimhsiao/conceptdeck/internal/errors"
	"github.com/kimhsiao/conceptdeck/internal/logging"
	"github.com/kimhsiao/conceptdeck/internal/models"
)

// Snapshot is a point-in-time copy of the concept working set, ordered
// the way lists are served (newest creation first).
type Snapshot []models.Concept

// Clone returns an independent copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// FindByID returns the concept with the given id, if present.
func (s Snapshot) FindByID(id string) (models.Concept, bool) {
	for _, c := range s {
		if c.ID == id {
			return c, true
		}
	}
	return models.Concept{}, false
}

// Cache is a file-backed holder for the current snapshot.
type Cache struct {
	mu   sync.RWMutex
	path string
	snap Snapshot
}

// Open loads the snapshot file at path. A missing file yields an empty
// cache; an unreadable one fails. A file that exists but does not parse
// is treated as lost data: the cache starts empty and the next Replace
// overwrites it.
func Open(path string) (*Cache, error) {
	c := &Cache{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to read snapshot file", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logging.Warn("Snapshot file is not valid JSON, starting empty", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return c, nil
	}

	c.snap = snap
	return c, nil
}

// Snapshot returns a copy of the current working set.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Clone()
}

// Len returns the number of concepts currently held.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snap)
}

// Replace swaps the working set wholesale and persists it. The file is
// written to a temp path and renamed into place so a crash mid-write
// never leaves a truncated snapshot. On write failure the in-memory
// snapshot keeps its previous value.
func (c *Cache) Replace(snap Snapshot) error {
	next := snap.Clone()
	if next == nil {
		next = Snapshot{} // empty set serializes as [], not null
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to encode snapshot", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to create snapshot directory", err)
	}

	tempPath := c.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to write snapshot file", err)
	}
	if err := os.Rename(tempPath, c.path); err != nil {
		os.Remove(tempPath)
		return apperrors.Wrap(apperrors.ErrInternal, "failed to replace snapshot file", err)
	}

	c.snap = next
	return nil
}
