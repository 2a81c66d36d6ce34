package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seonyeomin-rgb/md-feedback/internal/annotation"
	"github.com/seonyeomin-rgb/md-feedback/internal/apperr"
)

// DocRow represents a row in the documents table. The counters mirror
// the annotation counts of the file at the time it was last indexed.
type DocRow struct {
	Path       string
	Title      string
	Checksum   string
	Fixes      int
	Questions  int
	Highlights int
	OpenMemos  int
	UpdatedAt  time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// UpsertDocument inserts or replaces a document, its memo and gate rows,
// and its FTS entry within a transaction. memoText is the concatenated
// memo text used for search.
func (db *DB) UpsertDocument(d DocRow, body, memoText string, memos []annotation.Memo, gates []annotation.Gate) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	// Upsert documents table (includes body and memo text for fallback search).
	_, err = tx.Exec(`
		INSERT INTO documents (path, title, checksum, body, memo_text, fixes, questions, highlights, open_memos, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			body       = excluded.body,
			memo_text  = excluded.memo_text,
			fixes      = excluded.fixes,
			questions  = excluded.questions,
			highlights = excluded.highlights,
			open_memos = excluded.open_memos,
			updated_at = excluded.updated_at
	`, d.Path, d.Title, d.Checksum, body, memoText, d.Fixes, d.Questions, d.Highlights, d.OpenMemos, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, d.Path, d.Title, body, memoText); err != nil {
		return err
	}

	// Replace memo rows: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM memos WHERE doc_path = ?`, d.Path)
	if len(memos) > 0 {
		stmt, err := tx.Prepare(`
			INSERT OR IGNORE INTO memos (doc_path, memo_id, type, status, owner, color, text, anchor)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("index: prepare memo insert: %w", err)
		}
		defer stmt.Close()
		for _, m := range memos {
			if _, err := stmt.Exec(d.Path, m.ID, m.Type, m.Status, m.Owner, m.Color, m.Text, m.Anchor); err != nil {
				return fmt.Errorf("index: insert memo: %w", err)
			}
		}
	}

	// Replace gate rows the same way.
	_, _ = tx.Exec(`DELETE FROM gates WHERE doc_path = ?`, d.Path)
	if len(gates) > 0 {
		stmt, err := tx.Prepare(`
			INSERT OR IGNORE INTO gates (doc_path, gate_id, type, status, blocked_by)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("index: prepare gate insert: %w", err)
		}
		defer stmt.Close()
		for _, g := range gates {
			if _, err := stmt.Exec(d.Path, g.ID, g.Type, g.Status, strings.Join(g.BlockedBy, ",")); err != nil {
				return fmt.Errorf("index: insert gate: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry, and its memo and gate rows.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM memos WHERE doc_path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM gates WHERE doc_path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetDocument returns the indexed row for a path.
func (db *DB) GetDocument(path string) (*DocRow, error) {
	var d DocRow
	err := db.conn.QueryRow(`
		SELECT path, title, checksum, fixes, questions, highlights, open_memos, updated_at
		FROM documents WHERE path = ?
	`, path).Scan(&d.Path, &d.Title, &d.Checksum, &d.Fixes, &d.Questions, &d.Highlights, &d.OpenMemos, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns a page of indexed documents plus the total count.
// filter "open" restricts to documents with open memos; sort is "path"
// or "updated" (default, most recent first).
func (db *DB) ListDocuments(limit, offset int, filter, sort string) ([]DocRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	where := ""
	if filter == "open" {
		where = "WHERE open_memos > 0"
	}
	order := "ORDER BY updated_at DESC"
	if sort == "path" {
		order = "ORDER BY path ASC"
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM documents ` + where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	rows, err := db.conn.Query(fmt.Sprintf(`
		SELECT path, title, checksum, fixes, questions, highlights, open_memos, updated_at
		FROM documents %s %s LIMIT ? OFFSET ?
	`, where, order), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocRow
	for rows.Next() {
		var d DocRow
		if err := rows.Scan(&d.Path, &d.Title, &d.Checksum, &d.Fixes, &d.Questions, &d.Highlights, &d.OpenMemos, &d.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path→checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// AllPaths returns every indexed document path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// OpenMemoDocs returns the paths of every document with at least one
// open memo, most recently updated first.
func (db *DB) OpenMemoDocs() ([]string, error) {
	rows, err := db.conn.Query(`SELECT path FROM documents WHERE open_memos > 0 ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("index: open memo docs: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
