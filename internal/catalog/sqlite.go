package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"opticore/pkg/domain"
)

// SQLite persists catalog entries as JSON payloads keyed by id.
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (and if needed creates) the catalog database at path.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "opticore-catalog.db"
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
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS materials (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create materials table: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) Lookup(ctx context.Context, id string) (domain.Material, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM materials WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Material{}, ErrNotFound
	}
	if err != nil {
		return domain.Material{}, fmt.Errorf("select material: %w", err)
	}
	var m domain.Material
	if err := json.Unmarshal(payload, &m); err != nil {
		return domain.Material{}, fmt.Errorf("decode material %s: %w", id, err)
	}
	return m, nil
}

func (s *SQLite) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	like := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload FROM materials WHERE id LIKE ? OR name LIKE ? ORDER BY id LIMIT ?`,
		like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search materials: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var m domain.Material
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, fmt.Errorf("decode material %s: %w", id, err)
		}
		out = append(out, Entry{ID: id, Name: m.Name, Kind: m.Kind, Comment: m.Comment})
	}
	return out, rows.Err()
}

func (s *SQLite) Put(ctx context.Context, id string, m domain.Material) error {
	if err := m.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode material: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO materials(id,name,payload) VALUES(?,?,?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, payload=excluded.payload`,
		id, m.Name, payload)
	if err != nil {
		return fmt.Errorf("upsert material: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *SQLite) Path() string { return s.path }
