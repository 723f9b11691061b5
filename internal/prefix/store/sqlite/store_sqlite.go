// Package sqlite stores the prefix registry in a single SQLite file using the
// legacy postal_prefixes layout, so existing databases keep working.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"postcheck/internal/prefix/models"
	"postcheck/internal/prefix/store"
	txutil "postcheck/pkg/platform/tx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS postal_prefixes (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		prefix TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS registry_bootstrap (
		name       TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// SQLiteStore is a file-backed prefix store. The UNIQUE constraint on
// postal_prefixes.prefix is the uniqueness arbiter.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the schema.
// SQLite allows one writer, so the pool is held to a single connection.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return store.Wrap("ensure prefix schema", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.Prefix, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT prefix FROM postal_prefixes ORDER BY prefix`)
	if err != nil {
		return nil, store.Wrap("list prefixes", err)
	}
	defer rows.Close()

	var prefixes []models.Prefix
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, store.Wrap("scan prefix", err)
		}
		prefixes = append(prefixes, models.Prefix(p))
	}
	if err := rows.Err(); err != nil {
		return nil, store.Wrap("list prefixes", err)
	}
	return prefixes, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, prefix models.Prefix) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM postal_prefixes WHERE prefix = ?)`, prefix.String(),
	).Scan(&exists)
	if err != nil {
		return false, store.Wrap("check prefix", err)
	}
	return exists, nil
}

func (s *SQLiteStore) Add(ctx context.Context, prefix models.Prefix) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO postal_prefixes (prefix) VALUES (?)`, prefix.String())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("add prefix %s: %w", prefix, store.ErrAlreadyUsed)
		}
		return store.Wrap("add prefix", err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, prefix models.Prefix) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM postal_prefixes WHERE prefix = ?`, prefix.String())
	if err != nil {
		return store.Wrap("remove prefix", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Wrap("remove prefix", err)
	}
	if n == 0 {
		return fmt.Errorf("remove prefix %s: %w", prefix, store.ErrNotFound)
	}
	return nil
}

// Bootstrap seeds the registry once, guarded by a row in registry_bootstrap.
// An existing database that predates the marker table keeps its rows.
func (s *SQLiteStore) Bootstrap(ctx context.Context, seed []models.Prefix) (bool, error) {
	seeded := false
	err := txutil.Run(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO registry_bootstrap (name) VALUES (?)`, store.BootstrapName)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}

		var hasData bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM postal_prefixes)`).Scan(&hasData); err != nil {
			return err
		}
		if hasData {
			return nil
		}
		for _, p := range seed {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO postal_prefixes (prefix) VALUES (?)`, p.String()); err != nil {
				return err
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, store.Wrap("bootstrap prefixes", err)
	}
	return seeded, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return store.Wrap("ping sqlite", s.db.PingContext(ctx))
}

func isUniqueViolation(err error) bool {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	switch sqlErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqlErr.Error(), "UNIQUE")
	}
	return false
}
