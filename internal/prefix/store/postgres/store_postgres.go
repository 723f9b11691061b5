package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"postcheck/internal/prefix/models"
	"postcheck/internal/prefix/store"
	txutil "postcheck/pkg/platform/tx"
)

const uniqueViolation = "23505"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS postal_prefixes (
		id         BIGSERIAL PRIMARY KEY,
		prefix     TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS registry_bootstrap (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// PostgresStore persists the prefix registry in PostgreSQL. The UNIQUE
// constraint on postal_prefixes.prefix decides concurrent inserts.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed prefix store. Works with both the
// pgx stdlib driver and lib/pq.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the registry tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return store.Wrap("ensure prefix schema", err)
		}
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Prefix, error) {
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

func (s *PostgresStore) Exists(ctx context.Context, prefix models.Prefix) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM postal_prefixes WHERE prefix = $1)`, prefix.String(),
	).Scan(&exists)
	if err != nil {
		return false, store.Wrap("check prefix", err)
	}
	return exists, nil
}

func (s *PostgresStore) Add(ctx context.Context, prefix models.Prefix) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO postal_prefixes (prefix) VALUES ($1)`, prefix.String())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("add prefix %s: %w", prefix, store.ErrAlreadyUsed)
		}
		return store.Wrap("add prefix", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, prefix models.Prefix) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM postal_prefixes WHERE prefix = $1`, prefix.String())
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

// Bootstrap seeds the registry in one transaction guarded by a marker row.
// Concurrent bootstraps serialize on the marker's primary key; the loser sees
// zero affected rows and backs off. A table that already holds prefixes is
// marked as bootstrapped without being touched.
func (s *PostgresStore) Bootstrap(ctx context.Context, seed []models.Prefix) (bool, error) {
	seeded := false
	err := txutil.Run(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO registry_bootstrap (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, store.BootstrapName)
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
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO postal_prefixes (prefix) VALUES ($1) ON CONFLICT (prefix) DO NOTHING`, p.String()); err != nil {
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	return store.Wrap("ping postgres", s.db.PingContext(ctx))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
