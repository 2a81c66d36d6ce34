// Package index provides SQLite-backed indexing of annotated documents
// with optional FTS5 full-text search over feedback text.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	memo_text  TEXT NOT NULL DEFAULT '',
	fixes      INTEGER NOT NULL DEFAULT 0,
	questions  INTEGER NOT NULL DEFAULT 0,
	highlights INTEGER NOT NULL DEFAULT 0,
	open_memos INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS memos (
	doc_path   TEXT NOT NULL,
	memo_id    TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT 'fix',
	status     TEXT NOT NULL DEFAULT 'open',
	owner      TEXT NOT NULL DEFAULT 'human',
	color      TEXT NOT NULL DEFAULT 'red',
	text       TEXT NOT NULL DEFAULT '',
	anchor     TEXT NOT NULL DEFAULT '',
	UNIQUE(doc_path, memo_id)
);

CREATE TABLE IF NOT EXISTS gates (
	doc_path   TEXT NOT NULL,
	gate_id    TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT 'custom',
	status     TEXT NOT NULL DEFAULT 'proceed',
	blocked_by TEXT NOT NULL DEFAULT '',
	UNIQUE(doc_path, gate_id)
);

CREATE INDEX IF NOT EXISTS idx_memos_doc ON memos(doc_path);
CREATE INDEX IF NOT EXISTS idx_memos_status ON memos(status);
CREATE INDEX IF NOT EXISTS idx_gates_doc ON gates(doc_path);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
