// Package sqlite persists project documents in a single SQLite table as JSON
// payloads keyed by project name.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"opticore/pkg/domain"
)

// Store is a SQLite-backed project store. Each document is one row; the full
// document travels as a JSON blob so schema evolution stays in the document
// layer, not in SQL migrations.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore opens (or creates) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "opticore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS projects (
		name TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create projects table: %w", err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// SaveProject upserts doc under its name.
func (s *Store) SaveProject(ctx context.Context, doc domain.ProjectDocument) (domain.ProjectDocument, error) {
	doc.SchemaVersion = domain.ProjectSchemaVersion
	if err := doc.Validate(); err != nil {
		return domain.ProjectDocument{}, err
	}
	now := s.now().UTC()
	doc.CreatedAt = now
	if prev, err := s.LoadProject(ctx, doc.Name); err == nil {
		doc.CreatedAt = prev.CreatedAt
	}
	doc.UpdatedAt = now
	payload, err := json.Marshal(doc)
	if err != nil {
		return domain.ProjectDocument{}, fmt.Errorf("encode project: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO projects (name, payload) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload`, doc.Name, payload); err != nil {
		return domain.ProjectDocument{}, fmt.Errorf("upsert project: %w", err)
	}
	return doc, nil
}

// LoadProject decodes the document stored under name. Documents written by a
// newer release are rejected rather than misread.
func (s *Store) LoadProject(ctx context.Context, name string) (domain.ProjectDocument, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM projects WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProjectDocument{}, domain.NotFoundError{Kind: "project", Name: name}
	}
	if err != nil {
		return domain.ProjectDocument{}, fmt.Errorf("select project: %w", err)
	}
	return decodeDocument(payload)
}

// ListProjects returns all stored documents ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]domain.ProjectDocument, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select projects: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.ProjectDocument
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		doc, err := decodeDocument(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// DeleteProject removes the named document.
func (s *Store) DeleteProject(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Kind: "project", Name: name}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func decodeDocument(payload []byte) (domain.ProjectDocument, error) {
	var doc domain.ProjectDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.ProjectDocument{}, fmt.Errorf("decode project: %w", err)
	}
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return domain.ProjectDocument{}, err
	}
	return doc, nil
}

var _ domain.ProjectStore = (*Store)(nil)
