package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/kimhsiao/conceptdeck/internal/errors"
	"github.com/kimhsiao/conceptdeck/internal/models"
)

// schema is applied at startup. The table is created in place rather
// than migrated; title carries no unique constraint because duplicate
// titles are legal through the direct create path.
const schema = `
CREATE TABLE IF NOT EXISTS concepts (
	id TEXT PRIMARY KEY,
	topic_id INTEGER NOT NULL DEFAULT 0,
	topic TEXT NOT NULL,
	title TEXT NOT NULL,
	definition TEXT NOT NULL,
	keyword TEXT NOT NULL,
	detailed_explanation TEXT NOT NULL DEFAULT '',
	when_to_use TEXT NOT NULL DEFAULT '',
	why_need TEXT NOT NULL DEFAULT '',
	code_example TEXT NOT NULL DEFAULT '',
	differences TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_concepts_created_at ON concepts(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_concepts_topic ON concepts(topic);
`

const conceptColumns = `id, topic_id, topic, title, definition, keyword,
	detailed_explanation, when_to_use, why_need, code_example, differences,
	created_at, updated_at`

const insertConcept = `
INSERT INTO concepts (` + conceptColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// SQLiteStore is the Gateway backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// prepared statements are cached to avoid repeated SQL parsing
	stmtCache sync.Map // map[string]*sql.Stmt
}

// Open opens the SQLite database at path with:
// - WAL mode for concurrent reads during writes
// - a single connection, since SQLite supports one writer
// - the concepts schema applied
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to create data directory", err)
		}
	}

	// modernc.org/sqlite is pure Go, no CGO
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to open database", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to enable WAL mode", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to enable foreign keys", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to apply schema", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes cached statements and the database connection.
func (s *SQLiteStore) Close() error {
	s.stmtCache.Range(func(key, value interface{}) bool {
		value.(*sql.Stmt).Close()
		return true
	})
	return s.db.Close()
}

// prepareStmt gets or creates a prepared statement from the cache.
func (s *SQLiteStore) prepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := s.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := s.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// FetchAll returns every record ordered by creation time descending.
// Records created in the same millisecond come back newest insert
// first, which the rowid tiebreak provides.
func (s *SQLiteStore) FetchAll(ctx context.Context) ([]models.Concept, error) {
	query := `SELECT ` + conceptColumns + ` FROM concepts ORDER BY created_at DESC, rowid DESC`
	stmt, err := s.prepareStmt(query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to prepare fetch", err)
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to fetch concepts", err)
	}
	defer rows.Close()

	concepts := []models.Concept{}
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to scan concept", err)
		}
		concepts = append(concepts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "failed to iterate concepts", err)
	}
	return concepts, nil
}

// Create persists a draft, assigning an id and any missing timestamps.
func (s *SQLiteStore) Create(ctx context.Context, draft models.Concept) (models.Concept, error) {
	if err := draft.Validate(); err != nil {
		return models.Concept{}, apperrors.Wrap(apperrors.ErrValidation, "concept failed validation", err)
	}

	now := time.Now()
	if draft.ID == "" {
		draft.ID = models.NewID()
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = now
	}
	draft.CreatedAt = storedTime(draft.CreatedAt)
	draft.UpdatedAt = storedTime(draft.UpdatedAt)

	if _, err := s.db.ExecContext(ctx, insertConcept, insertArgs(&draft)...); err != nil {
		return models.Concept{}, apperrors.Wrap(apperrors.ErrDatabase, "failed to insert concept", err)
	}
	return draft, nil
}

// Update applies a partial patch to an existing record, bumps its
// updated timestamp and re-validates the result.
func (s *SQLiteStore) Update(ctx context.Context, id string, patch models.Patch) (models.Concept, error) {
	current, err := s.getByID(ctx, id)
	if err != nil {
		return models.Concept{}, err
	}

	patch.Apply(&current)
	current.Touch(storedTime(time.Now()))
	if err := current.Validate(); err != nil {
		return models.Concept{}, apperrors.Wrap(apperrors.ErrValidation, "concept failed validation", err)
	}

	query := `
	UPDATE concepts
	SET topic_id = ?, topic = ?, title = ?, definition = ?, keyword = ?,
		detailed_explanation = ?, when_to_use = ?, why_need = ?,
		code_example = ?, differences = ?, updated_at = ?
	WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		current.TopicID, current.Topic, current.Title, current.Definition, current.Keyword,
		current.DetailedExplanation, current.WhenToUse, current.WhyNeed,
		current.CodeExample, current.Differences, current.UpdatedAt.UnixMilli(), id)
	if err != nil {
		return models.Concept{}, apperrors.Wrap(apperrors.ErrDatabase, "failed to update concept", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.Concept{}, apperrors.Newf(apperrors.ErrNotFound, "concept not found: %s", id)
	}
	return current, nil
}

// DeleteByID removes a record and returns the deleted value.
func (s *SQLiteStore) DeleteByID(ctx context.Context, id string) (models.Concept, error) {
	current, err := s.getByID(ctx, id)
	if err != nil {
		return models.Concept{}, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM concepts WHERE id = ?`, id)
	if err != nil {
		return models.Concept{}, apperrors.Wrap(apperrors.ErrDatabase, "failed to delete concept", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.Concept{}, apperrors.Newf(apperrors.ErrNotFound, "concept not found: %s", id)
	}
	return current, nil
}

// ReplaceAll clears the table and bulk-inserts the given records in a
// single transaction. Every record is validated before anything is
// cleared, so a bad batch leaves the prior contents intact.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, drafts []models.Concept) (int, error) {
	for i := range drafts {
		if err := drafts[i].Validate(); err != nil {
			return 0, apperrors.Wrap(apperrors.ErrValidation,
				fmt.Sprintf("record %d failed validation", i), err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM concepts`); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "failed to clear concepts", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertConcept)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "failed to prepare bulk insert", err)
	}
	defer stmt.Close()

	now := time.Now()
	seenIDs := make(map[string]struct{}, len(drafts))

	// insert in reverse so the rowid tiebreak in FetchAll preserves
	// the order of records sharing a creation millisecond
	for i := len(drafts) - 1; i >= 0; i-- {
		draft := drafts[i]
		if _, taken := seenIDs[draft.ID]; draft.ID == "" || taken {
			draft.ID = models.NewID()
		}
		seenIDs[draft.ID] = struct{}{}
		if draft.CreatedAt.IsZero() {
			draft.CreatedAt = now
		}
		if draft.UpdatedAt.IsZero() {
			draft.UpdatedAt = now
		}
		draft.CreatedAt = storedTime(draft.CreatedAt)
		draft.UpdatedAt = storedTime(draft.UpdatedAt)

		if _, err := stmt.ExecContext(ctx, insertArgs(&draft)...); err != nil {
			return 0, apperrors.Wrap(apperrors.ErrDatabase,
				fmt.Sprintf("failed to insert record %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "failed to commit replace", err)
	}
	return len(drafts), nil
}

// getByID loads one record or reports NOT_FOUND.
func (s *SQLiteStore) getByID(ctx context.Context, id string) (models.Concept, error) {
	query := `SELECT ` + conceptColumns + ` FROM concepts WHERE id = ?`
	stmt, err := s.prepareStmt(query)
	if err != nil {
		return models.Concept{}, apperrors.Wrap(apperrors.ErrDatabase, "failed to prepare get", err)
	}

	c, err := scanConcept(stmt.QueryRowContext(ctx, id))
	if err == sql.ErrNoRows {
		return models.Concept{}, apperrors.Newf(apperrors.ErrNotFound, "concept not found: %s", id)
	}
	if err != nil {
		return models.Concept{}, apperrors.Wrap(apperrors.ErrDatabase, "failed to load concept", err)
	}
	return c, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanConcept(row scanner) (models.Concept, error) {
	var c models.Concept
	var createdAt, updatedAt int64
	err := row.Scan(
		&c.ID, &c.TopicID, &c.Topic, &c.Title, &c.Definition, &c.Keyword,
		&c.DetailedExplanation, &c.WhenToUse, &c.WhyNeed, &c.CodeExample,
		&c.Differences, &createdAt, &updatedAt,
	)
	if err != nil {
		return models.Concept{}, err
	}
	c.CreatedAt = time.UnixMilli(createdAt)
	c.UpdatedAt = time.UnixMilli(updatedAt)
	return c, nil
}

func insertArgs(c *models.Concept) []interface{} {
	return []interface{}{
		c.ID, c.TopicID, c.Topic, c.Title, c.Definition, c.Keyword,
		c.DetailedExplanation, c.WhenToUse, c.WhyNeed, c.CodeExample,
		c.Differences, c.CreatedAt.UnixMilli(), c.UpdatedAt.UnixMilli(),
	}
}

// storedTime truncates to the millisecond precision kept in the
// database, so values returned from writes match later fetches.
func storedTime(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli())
}
