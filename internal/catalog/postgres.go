package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"opticore/pkg/domain"
)

const defaultPostgresDSN = "postgres://localhost/opticore?sslmode=disable"

// Postgres stores catalog entries as JSONB payloads keyed by id. The schema
// mirrors the sqlite driver so the two stay interchangeable.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a postgres-backed catalog using the DSN (falling back to
// a local default) and ensures the materials table exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS materials (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create materials table: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Lookup(ctx context.Context, id string) (domain.Material, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM materials WHERE id = $1`, id).Scan(&payload)
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

func (p *Postgres) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	like := "%" + query + "%"
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, payload FROM materials WHERE id ILIKE $1 OR name ILIKE $1 ORDER BY id LIMIT $2`,
		like, limit)
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

func (p *Postgres) Put(ctx context.Context, id string, m domain.Material) error {
	if err := m.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode material: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO materials(id,name,payload) VALUES($1,$2,$3)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, payload=excluded.payload`,
		id, m.Name, payload)
	if err != nil {
		return fmt.Errorf("upsert material: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }

// DB exposes the underlying handle for integration test hooks.
func (p *Postgres) DB() *sql.DB { return p.db }
