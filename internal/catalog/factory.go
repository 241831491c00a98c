package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"opticore/pkg/domain"
)

// OpenFromEnv selects a catalog driver from the environment:
//
//	OPTICORE_CATALOG_DRIVER: memory|sqlite|postgres (default memory, seeded)
//	OPTICORE_CATALOG_SQLITE_PATH: database path when driver=sqlite
//	OPTICORE_CATALOG_POSTGRES_DSN: DSN when driver=postgres
func OpenFromEnv(ctx context.Context) (Source, error) {
	driver := os.Getenv("OPTICORE_CATALOG_DRIVER")
	if driver == "" {
		driver = "memory"
	}
	switch driver {
	case "memory":
		return NewMemorySeeded(), nil
	case "sqlite":
		return NewSQLite(os.Getenv("OPTICORE_CATALOG_SQLITE_PATH"))
	case "postgres":
		return NewPostgres(ctx, os.Getenv("OPTICORE_CATALOG_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown catalog driver %s", driver)
	}
}

// MetricsSource wraps a Source, counting lookups through the telemetry seam.
type MetricsSource struct {
	Inner   Source
	Observe func(result string)
}

func (m MetricsSource) Lookup(ctx context.Context, id string) (domain.Material, error) {
	material, err := m.Inner.Lookup(ctx, id)
	switch {
	case err == nil:
		m.Observe("hit")
	case errors.Is(err, ErrNotFound):
		m.Observe("miss")
	default:
		m.Observe("error")
	}
	return material, err
}

func (m MetricsSource) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	return m.Inner.Search(ctx, query, limit)
}

func (m MetricsSource) Put(ctx context.Context, id string, mat domain.Material) error {
	return m.Inner.Put(ctx, id, mat)
}

func (m MetricsSource) Close() error { return m.Inner.Close() }
