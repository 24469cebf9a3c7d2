package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pages (
		path       TEXT PRIMARY KEY,
		content    TEXT NOT NULL,
		digest     TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS revisions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		path       TEXT NOT NULL,
		digest     TEXT NOT NULL,
		message    TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS revisions_path ON revisions(path, id)`,
}

// Revision is one recorded save of a page
type Revision struct {
	ID      int64
	Path    string
	Digest  string
	Message string
	Created time.Time
}

// SQLiteStore keeps pages in a single database file together with a
// revision log of commit messages.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at dsn
func OpenSQLite(ctx context.Context, dsn string, log *slog.Logger) (*SQLiteStore, error) {
	if dsn != ":memory:" && dsn != "" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &SQLiteStore{db: db, log: orDiscard(log), now: time.Now}, nil
}

// Load reads the page at p
func (s *SQLiteStore) Load(ctx context.Context, p string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM pages WHERE path = ?`, p).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", p, err)
	}
	return content, nil
}

// Save upserts the page and records a revision. A save whose digest
// matches the stored one is skipped.
func (s *SQLiteStore) Save(ctx context.Context, p, markdown, message string) error {
	digest := Digest(markdown)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT digest FROM pages WHERE path = ?`, p).Scan(&current)
	switch {
	case err == nil && current == digest:
		s.log.Debug("save skipped, content unchanged", "path", p)
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to read %s: %w", p, err)
	}

	now := s.now().UnixMilli()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pages (path, content, digest, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET content = excluded.content, digest = excluded.digest, updated_at = excluded.updated_at`,
		p, markdown, digest, now); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO revisions (path, digest, message, created_at) VALUES (?, ?, ?, ?)`,
		p, digest, message, now); err != nil {
		return fmt.Errorf("failed to record revision of %s: %w", p, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", p, err)
	}
	s.log.Info("page saved", "path", p, "bytes", len(markdown), "message", message)
	return nil
}

// Delete removes the page and its history
func (s *SQLiteStore) Delete(ctx context.Context, p string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE path = ?`, p)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM revisions WHERE path = ?`, p); err != nil {
		return fmt.Errorf("failed to delete history of %s: %w", p, err)
	}
	s.log.Info("page deleted", "path", p)
	return nil
}

// List returns all pages ordered by path
func (s *SQLiteStore) List(ctx context.Context) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, updated_at FROM pages ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p string
		var ms int64
		if err := rows.Scan(&p, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, NewPageInfo(p, time.UnixMilli(ms)))
	}
	return pages, rows.Err()
}

// Revisions returns the history of p, newest first
func (s *SQLiteStore) Revisions(ctx context.Context, p string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, digest, message, created_at FROM revisions WHERE path = ? ORDER BY id DESC`, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read history of %s: %w", p, err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var r Revision
		var ms int64
		if err := rows.Scan(&r.ID, &r.Path, &r.Digest, &r.Message, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		r.Created = time.UnixMilli(ms)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
