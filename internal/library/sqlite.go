package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const librarySchema = `
CREATE TABLE IF NOT EXISTS library_queries (
	query_id  TEXT NOT NULL,
	record_id TEXT NOT NULL,
	inputs    JSON NOT NULL,
	PRIMARY KEY (query_id, record_id)
) WITHOUT ROWID;
`

// SQLiteFetcher serves library documents from a SQLite database.
type SQLiteFetcher struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the library database at path.
func OpenSQLite(path string) (*SQLiteFetcher, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(librarySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteFetcher{db: db}, nil
}

// Put stores doc under ref, replacing any previous version.
func (f *SQLiteFetcher) Put(ctx context.Context, ref Ref, doc *Document) error {
	inputs := doc.Inputs
	if inputs == nil {
		inputs = []Input{}
	}
	raw, err := json.Marshal(inputs)
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}
	_, err = f.db.ExecContext(ctx,
		`INSERT INTO library_queries (query_id, record_id, inputs) VALUES (?, ?, ?)
		 ON CONFLICT (query_id, record_id) DO UPDATE SET inputs = excluded.inputs`,
		ref.QueryID, ref.RecordID, string(raw))
	if err != nil {
		return fmt.Errorf("put %s: %w", ref, err)
	}
	return nil
}

// Fetch implements Fetcher.
func (f *SQLiteFetcher) Fetch(ctx context.Context, ref Ref) (*Document, error) {
	var raw string
	err := f.db.QueryRowContext(ctx,
		`SELECT inputs FROM library_queries WHERE query_id = ? AND record_id = ?`,
		ref.QueryID, ref.RecordID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	doc := &Document{}
	if err := json.Unmarshal([]byte(raw), &doc.Inputs); err != nil {
		return nil, fmt.Errorf("parse inputs of %s: %w", ref, err)
	}
	return doc, nil
}

// Close releases the database.
func (f *SQLiteFetcher) Close() error {
	return f.db.Close()
}
