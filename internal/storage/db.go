package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"streamstats/internal"
)

type DB struct {
	conn *sql.DB
}

type StoredDocument struct {
	Name      string
	Hash      string
	Body      string
	UpdatedAt string
}

type RunRow struct {
	ID           int
	TraceID      string
	DocumentName string
	DocumentHash string
	Timings      map[string]float64
	Sources      []internal.SourceStats
	CreatedAt    string
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS documents (
  name TEXT PRIMARY KEY,
  hash TEXT NOT NULL,
  body TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  documentName TEXT NOT NULL,
  documentHash TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  sourcesJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_documentName ON runs(documentName);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// UpsertDocument replaces the stored copy of a document; only the latest
// build of each name is kept.
func (d *DB) UpsertDocument(name, hash, body string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
INSERT INTO documents (name, hash, body) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  hash=excluded.hash,
  body=excluded.body,
  updatedAt=CURRENT_TIMESTAMP
`, name, hash, body); err != nil {
		return err
	}
	if _, err := tx.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, "document.last_built", name); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *DB) GetDocument(name string) (*StoredDocument, error) {
	var doc StoredDocument
	err := d.conn.QueryRow(`
SELECT name, hash, body, updatedAt FROM documents WHERE name = ?
`, name).Scan(&doc.Name, &doc.Hash, &doc.Body, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *DB) MustDocument(name string) (StoredDocument, error) {
	doc, err := d.GetDocument(name)
	if err != nil {
		return StoredDocument{}, err
	}
	if doc == nil {
		return StoredDocument{}, fmt.Errorf("document not found: name=%s", name)
	}
	return *doc, nil
}

func (d *DB) InsertRun(traceID, documentName, documentHash string, timings map[string]float64, sources []internal.SourceStats) error {
	timingsJSON, err := json.Marshal(timings)
	if err != nil {
		return fmt.Errorf("encode run timings: %w", err)
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("encode run sources: %w", err)
	}
	_, err = d.conn.Exec(`
INSERT INTO runs (traceId, documentName, documentHash, timingsJson, sourcesJson) VALUES (?, ?, ?, ?, ?)
`, traceID, documentName, documentHash, string(timingsJSON), string(sourcesJSON))
	return err
}

func (d *DB) ListRuns(documentName string, limit int) ([]RunRow, error) {
	rows, err := d.conn.Query(`
SELECT id, traceId, documentName, documentHash, timingsJson, sourcesJson, createdAt
FROM runs WHERE documentName = ? ORDER BY id DESC LIMIT ?
`, documentName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var row RunRow
		var timingsJSON, sourcesJSON string
		if err := rows.Scan(&row.ID, &row.TraceID, &row.DocumentName, &row.DocumentHash, &timingsJSON, &sourcesJSON, &row.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(timingsJSON), &row.Timings)
		_ = json.Unmarshal([]byte(sourcesJSON), &row.Sources)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
