package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a file-backed KV.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the database at path and creates the schema if needed.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, goerr.New("sqlite store needs a path")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite store", goerr.V("path", path))
	}

	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		namespace  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, key)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to create sqlite schema", goerr.V("path", path))
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, ns, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE namespace = ? AND key = ?`, ns, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, goerr.Wrap(err, "failed to read key", goerr.V("key", key))
	}
	return v, true, nil
}

func (s *SQLite) Set(ctx context.Context, ns, key, value string) error {
	return set(ctx, s.db, ns, key, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func set(ctx context.Context, db execer, ns, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO kv (namespace, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		ns, key, value)
	if err != nil {
		return goerr.Wrap(err, "failed to write key", goerr.V("key", key))
	}
	return nil
}

func (s *SQLite) Incr(ctx context.Context, ns, key string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var cur string
	err = tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE namespace = ? AND key = ?`, ns, key).Scan(&cur)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, goerr.Wrap(err, "failed to read counter", goerr.V("key", key))
	}
	n := parseCount(cur) + 1
	if err := set(ctx, tx, ns, key, strconv.FormatInt(n, 10)); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, goerr.Wrap(err, "failed to commit counter", goerr.V("key", key))
	}
	return n, nil
}

func (s *SQLite) Clear(ctx context.Context, ns string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE namespace = ?`, ns); err != nil {
		return goerr.Wrap(err, "failed to clear namespace")
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
