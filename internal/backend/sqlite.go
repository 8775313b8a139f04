package backend

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteBackend stores the engine's key→bytes map as rows in a single
// table, using modernc.org/sqlite the way the teacher's pkg/core/store.go
// opens its database: WAL journal mode, a busy timeout, and foreign keys
// enabled (foreign keys are a no-op on this single-table schema but kept
// for parity with the teacher's connection string).
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLiteBackend opens (and creates if absent) a SQLite-backed Backend
// at path. Use ":memory:" for a purely in-process store.
func OpenSQLiteBackend(path string) (*SQLiteBackend, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("backend: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer KV table; avoids SQLITE_BUSY under WAL
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value BLOB NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("backend: create table: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Load(ctx context.Context) (map[string][]byte, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key, value FROM kv`)
	if err != nil {
		return nil, fmt.Errorf("backend: load: %w", err)
	}
	defer rows.Close()

	out := map[string][]byte{}
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("backend: scan row: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

// Save atomically replaces the table contents within one transaction.
func (b *SQLiteBackend) Save(ctx context.Context, data map[string][]byte) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("backend: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("backend: clear kv: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO kv (key, value) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("backend: prepare insert: %w", err)
	}
	defer stmt.Close()

	for key, value := range data {
		if _, err := stmt.ExecContext(ctx, key, value); err != nil {
			return fmt.Errorf("backend: insert key %q: %w", key, err)
		}
	}
	return tx.Commit()
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
