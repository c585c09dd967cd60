package adapter

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/model"
	"github.com/m-mizutani/seochat/pkg/utils/clock"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStorage stores objects in a single-table SQLite database
type SQLiteStorage struct {
	db *sql.DB
}

var _ Storage = &SQLiteStorage{}

// NewSQLiteStorage opens (and creates if needed) the database at path
func NewSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	if path == "" {
		return nil, goerr.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", path))
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to create kv table", goerr.V("path", path))
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	return &sqliteWriter{ctx: ctx, storage: s, key: key}, nil
}

func (s *SQLiteStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(ErrNotFound, "object does not exist", goerr.V("key", key))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query kv", goerr.V("key", key), goerr.T(model.TagPersistence))
	}
	return io.NopCloser(bytes.NewReader(value)), nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return goerr.Wrap(err, "failed to delete kv", goerr.V("key", key), goerr.T(model.TagPersistence))
	}
	return nil
}

type sqliteWriter struct {
	bytes.Buffer
	ctx     context.Context
	storage *SQLiteStorage
	key     string
}

func (w *sqliteWriter) Close() error {
	_, err := w.storage.db.ExecContext(w.ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		w.key, w.Bytes(), clock.Now(w.ctx).UnixMilli(),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert kv", goerr.V("key", w.key), goerr.T(model.TagPersistence))
	}
	return nil
}
