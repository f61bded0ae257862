package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps answers in a SQLite table, for caches shared between
// many runs or repositories.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	const schema = `
	CREATE TABLE IF NOT EXISTS answers (
		key TEXT PRIMARY KEY,
		answer TEXT NOT NULL,
		tool TEXT,
		file TEXT,
		description TEXT,
		created_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var e Entry
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT answer, tool, file, description, created_at FROM answers WHERE key = ?`, key,
	).Scan(&e.Answer, &e.Tool, &e.File, &e.Description, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	e.CreatedAt = time.Unix(created, 0)
	return e, true, nil
}

func (s *SQLiteStore) PutAll(ctx context.Context, entries map[string]Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO answers (key, answer, tool, file, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for k, e := range entries {
		if _, err := stmt.ExecContext(ctx, k, e.Answer, e.Tool, e.File, e.Description, e.CreatedAt.Unix()); err != nil {
			return fmt.Errorf("failed to store %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM answers`)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
