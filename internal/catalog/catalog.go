// Package catalog is the refractive-index database the resolver consults for
// sourced materials. Entries are keyed by shelf/book/page ids as used by
// refractiveindex.info; drivers exist for memory, sqlite and postgres.
package catalog

import (
	"context"
	"errors"

	"opticore/pkg/domain"
)

// ErrNotFound reports an unknown catalog id, distinct from transport
// failures which surface as driver errors.
var ErrNotFound = errors.New("catalog: entry not found")

// Entry is a search result: the id plus enough of the definition to pick
// from.
type Entry struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	Kind    domain.MaterialKind `json:"kind"`
	Comment string              `json:"comment,omitempty"`
}

// Source looks up and stores dispersion definitions.
type Source interface {
	// Lookup returns the material stored under id or ErrNotFound.
	Lookup(ctx context.Context, id string) (domain.Material, error)
	// Search returns up to limit entries whose id or name contains query,
	// ordered by id. An empty query lists everything up to limit.
	Search(ctx context.Context, query string, limit int) ([]Entry, error)
	// Put stores a definition under id, replacing any previous one.
	Put(ctx context.Context, id string, m domain.Material) error
	Close() error
}
