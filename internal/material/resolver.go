package material

import (
	"context"
	"fmt"
	"sync"

	"opticore/pkg/domain"
)

// CatalogSource is the external dispersion lookup the resolver consults for
// catalog-sourced materials. Implementations live in internal/catalog.
type CatalogSource interface {
	Lookup(ctx context.Context, id string) (domain.Material, error)
}

// Resolver turns domain material definitions into Dispersion evaluators and
// caches the result. It is process-scoped state constructed once and injected
// wherever materials are resolved; there is no ambient global cache.
//
// A failed catalog lookup is cached as an Unresolved state so the failure
// surfaces at every use of that material without re-fetching, until
// Invalidate clears it.
type Resolver struct {
	catalog CatalogSource

	mu    sync.Mutex
	cache map[string]Dispersion
}

// NewResolver constructs a resolver. catalog may be nil when no sourced
// materials are in play.
func NewResolver(catalog CatalogSource) *Resolver {
	return &Resolver{catalog: catalog, cache: make(map[string]Dispersion)}
}

// Resolve returns the dispersion evaluator for the definition. Concurrent
// first access is serialized so a sourced material is fetched at most once.
func (r *Resolver) Resolve(ctx context.Context, m domain.Material) (Dispersion, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.cache[m.Name]; ok {
		return d, nil
	}
	d, err := r.build(ctx, m)
	if err != nil {
		return nil, err
	}
	r.cache[m.Name] = d
	return d, nil
}

// Invalidate drops any cached evaluator for the named material, forcing the
// next Resolve to rebuild (and for sourced materials, re-fetch).
func (r *Resolver) Invalidate(name string) {
	r.mu.Lock()
	delete(r.cache, name)
	r.mu.Unlock()
}

func (r *Resolver) build(ctx context.Context, m domain.Material) (Dispersion, error) {
	switch m.Kind {
	case domain.MaterialConstant:
		return Constant{N: m.N, K: m.K}, nil
	case domain.MaterialTabulated:
		return NewTabulated(m.Name, m.Samples, m.Extrapolate)
	case domain.MaterialFormula:
		return NewFormula(m.Name, *m.Formula, m.Extrapolate)
	case domain.MaterialSourced:
		if r.catalog == nil {
			return Unresolved{Name: m.Name, Reason: "no catalog configured"}, nil
		}
		fetched, err := r.catalog.Lookup(ctx, m.SourceID)
		if err != nil {
			// Cache the error state, not the error: the material stays
			// defined but unusable until the catalog recovers.
			return Unresolved{Name: m.Name, Reason: fmt.Sprintf("catalog lookup %s: %v", m.SourceID, err)}, nil
		}
		fetched.Name = m.Name
		fetched.Extrapolate = m.Extrapolate
		if fetched.Kind == domain.MaterialSourced {
			return Unresolved{Name: m.Name, Reason: "catalog returned another sourced definition"}, nil
		}
		return r.build(ctx, fetched)
	default:
		return nil, domain.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown material kind %q", m.Kind)}
	}
}
