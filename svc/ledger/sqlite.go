package ledger

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const defaultQueryTimeout = 5 * time.Second

// SQLiteStore is the default ledger backend: a single-file database in
// the user's data directory, surviving reinstalls of the client the way
// the browser profile survived page reloads.
type SQLiteStore struct {
	db           *sql.DB
	queryTimeout time.Duration
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithTimeout(path, defaultQueryTimeout)
}

func NewSQLiteStoreWithTimeout(path string, queryTimeout time.Duration) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "create ledger directory")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}
	// Single local writer; one connection avoids SQLITE_BUSY entirely.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}
	s := &SQLiteStore{db: db, queryTimeout: queryTimeout}
	if err := s.migrate(); err != nil {
		return nil, errors.Wrap(err, "migration failed")
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return errors.Wrap(err, "enable WAL mode")
	}
	if _, err := s.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return errors.Wrap(err, "set busy timeout")
	}
	query := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	var value string
	err := s.db.QueryRowContext(queryCtx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "ledger get")
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	// Upsert preserves the original rowid, so insertion order survives
	// token refreshes that rewrite the same key.
	q := `
	INSERT INTO kv (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	_, err := s.db.ExecContext(queryCtx, q, key, value)
	return errors.Wrap(err, "ledger set")
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	_, err := s.db.ExecContext(queryCtx, `DELETE FROM kv WHERE key = ?`, key)
	return errors.Wrap(err, "ledger delete")
}

func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	q := `SELECT key FROM kv WHERE key LIKE ? || '%' ORDER BY rowid`
	rows, err := s.db.QueryContext(queryCtx, q, prefix)
	if err != nil {
		return nil, errors.Wrap(err, "ledger keys")
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.Wrap(err, "scan key")
		}
		keys = append(keys, k)
	}
	return keys, errors.Wrap(rows.Err(), "iterate keys")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
