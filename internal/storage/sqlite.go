package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nikbrunner/bmsync/internal/model"
)

const currentSchemaVersion = 2

// SQLiteStorage implements Storage using a SQLite database.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage creates a new SQLiteStorage with the given database path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &SQLiteStorage{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the migration version recorded in the database.
func (s *SQLiteStorage) SchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	return version, err
}

// migrate runs database migrations.
func (s *SQLiteStorage) migrate() error {
	version, err := s.SchemaVersion()
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	return nil
}

// migrateV1 creates the initial schema.
// created_at is unix nanoseconds so ORDER BY is exact.
func (s *SQLiteStorage) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS bookmarks (
			id TEXT PRIMARY KEY NOT NULL,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_bookmarks_user_created
			ON bookmarks(user_id, created_at DESC, id DESC);

		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds a (user_id, url) index for duplicate checks on import.
func (s *SQLiteStorage) migrateV2() error {
	migration := `
		CREATE INDEX IF NOT EXISTS idx_bookmarks_user_url ON bookmarks(user_id, url);
		UPDATE schema_version SET version = 2;
	`
	_, err := s.db.Exec(migration)
	return err
}

// Query returns a newest-first window of the user's bookmarks together with
// the user's total bookmark count. Both reads share one transaction so the
// count matches the window.
func (s *SQLiteStorage) Query(ctx context.Context, q Query) (model.Page, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return model.Page{}, err
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookmarks WHERE user_id = ?", q.UserID,
	).Scan(&total); err != nil {
		return model.Page{}, err
	}

	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	limit := q.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, user_id, title, url, created_at
		FROM bookmarks
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, q.UserID, limit, offset)
	if err != nil {
		return model.Page{}, err
	}
	defer rows.Close()

	records := []model.Bookmark{}
	for rows.Next() {
		var b model.Bookmark
		var createdAt int64
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.URL, &createdAt); err != nil {
			return model.Page{}, err
		}
		b.CreatedAt = time.Unix(0, createdAt).UTC()
		records = append(records, b)
	}
	if err := rows.Err(); err != nil {
		return model.Page{}, err
	}

	return model.Page{Records: records, Total: total}, nil
}

// Insert stores a new bookmark.
func (s *SQLiteStorage) Insert(ctx context.Context, b model.Bookmark) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (id, user_id, title, url, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, b.ID, b.UserID, b.Title, b.URL, b.CreatedAt.UnixNano())
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

// Delete removes the user's bookmark with the given ID.
func (s *SQLiteStorage) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM bookmarks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation matches the modernc driver's constraint error text.
func isUniqueViolation(err error) bool {
	var target interface{ Code() int }
	if errors.As(err, &target) {
		// SQLITE_CONSTRAINT_PRIMARYKEY
		return target.Code() == 1555
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// DefaultSQLitePath returns the default SQLite database path: ~/.config/bmsync/bookmarks.db
func DefaultSQLitePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bmsync", "bookmarks.db"), nil
}
