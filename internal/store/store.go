// Package store persists comp documents in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agentic-research/blocks/api"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("document not found")

const documentSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	shape      JSON,
	value      JSON NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Document is a saved tree: its JSON value and, optionally, the shape that
// parses it.
type Document struct {
	ID      string
	Name    string
	Shape   *api.Shape
	Value   any
	Created time.Time
	Updated time.Time
}

// Summary is a Document without its payload.
type Summary struct {
	ID      string
	Name    string
	Updated time.Time
}

// Store is a SQLite-backed document store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(documentSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Save stores value under name. Saving an existing name keeps its ID and
// creation time. It returns the document ID.
func (s *Store) Save(ctx context.Context, name string, shape *api.Shape, value any) (string, error) {
	if name == "" {
		return "", errors.New("save: empty document name")
	}
	rawValue, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	var rawShape any
	if shape != nil {
		b, err := json.Marshal(shape)
		if err != nil {
			return "", fmt.Errorf("marshal shape: %w", err)
		}
		rawShape = string(b)
	}

	now := s.now().UnixNano()
	var id string
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO documents (id, name, shape, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
			shape = excluded.shape, value = excluded.value, updated_at = excluded.updated_at
		 RETURNING id`,
		uuid.NewString(), name, rawShape, string(rawValue), now, now).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return id, nil
}

// Load returns the document saved under name.
func (s *Store) Load(ctx context.Context, name string) (*Document, error) {
	var (
		doc              Document
		rawShape         sql.NullString
		rawValue         string
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, shape, value, created_at, updated_at FROM documents WHERE name = ?`,
		name).Scan(&doc.ID, &doc.Name, &rawShape, &rawValue, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(rawValue), &doc.Value); err != nil {
		return nil, fmt.Errorf("parse value of %s: %w", name, err)
	}
	if rawShape.Valid {
		doc.Shape = &api.Shape{}
		if err := json.Unmarshal([]byte(rawShape.String), doc.Shape); err != nil {
			return nil, fmt.Errorf("parse shape of %s: %w", name, err)
		}
	}
	doc.Created = time.Unix(0, created)
	doc.Updated = time.Unix(0, updated)
	return &doc, nil
}

// List returns every document, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, updated_at FROM documents ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var out []Summary
	for rows.Next() {
		var sum Summary
		var updated int64
		if err := rows.Scan(&sum.ID, &sum.Name, &updated); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sum.Updated = time.Unix(0, updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the document saved under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
