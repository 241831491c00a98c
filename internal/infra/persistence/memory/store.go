// Package memory provides a volatile project store for tests and
// single-process runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"opticore/pkg/domain"
)

// Store keeps project documents in a map guarded by a RWMutex. Callers always
// receive copies.
type Store struct {
	mu       sync.RWMutex
	projects map[string]domain.ProjectDocument
	now      func() time.Time
}

// NewStore constructs an empty in-memory project store.
func NewStore() *Store {
	return &Store{
		projects: make(map[string]domain.ProjectDocument),
		now:      time.Now,
	}
}

// WithClock overrides the timestamp source. Tests use this for deterministic
// CreatedAt and UpdatedAt values.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// SaveProject stores doc under its name, stamping SchemaVersion and the
// create and update timestamps. Saving an existing name replaces the document
// but preserves its original CreatedAt.
func (s *Store) SaveProject(_ context.Context, doc domain.ProjectDocument) (domain.ProjectDocument, error) {
	doc.SchemaVersion = domain.ProjectSchemaVersion
	if err := doc.Validate(); err != nil {
		return domain.ProjectDocument{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	if prev, ok := s.projects[doc.Name]; ok {
		doc.CreatedAt = prev.CreatedAt
	} else {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	s.projects[doc.Name] = cloneDocument(doc)
	return doc, nil
}

// LoadProject returns the document stored under name.
func (s *Store) LoadProject(_ context.Context, name string) (domain.ProjectDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.projects[name]
	if !ok {
		return domain.ProjectDocument{}, domain.NotFoundError{Kind: "project", Name: name}
	}
	doc = cloneDocument(doc)
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return domain.ProjectDocument{}, err
	}
	return doc, nil
}

// ListProjects returns all documents ordered by name.
func (s *Store) ListProjects(_ context.Context) ([]domain.ProjectDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ProjectDocument, 0, len(s.projects))
	for _, doc := range s.projects {
		out = append(out, cloneDocument(doc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteProject removes the named document.
func (s *Store) DeleteProject(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[name]; !ok {
		return domain.NotFoundError{Kind: "project", Name: name}
	}
	delete(s.projects, name)
	return nil
}

// Close releases nothing; it exists to satisfy domain.ProjectStore.
func (s *Store) Close() error { return nil }

func cloneDocument(doc domain.ProjectDocument) domain.ProjectDocument {
	out := doc
	out.Materials = make([]domain.Material, len(doc.Materials))
	for i, m := range doc.Materials {
		out.Materials[i] = cloneMaterial(m)
	}
	out.Arrays = make([]domain.Array, len(doc.Arrays))
	for i, a := range doc.Arrays {
		out.Arrays[i] = cloneArray(a)
	}
	return out
}

func cloneMaterial(m domain.Material) domain.Material {
	out := m
	if m.Samples != nil {
		out.Samples = append([]domain.DispersionSample(nil), m.Samples...)
	}
	if m.Formula != nil {
		f := *m.Formula
		f.Coefficients = append([]float64(nil), m.Formula.Coefficients...)
		out.Formula = &f
	}
	return out
}

func cloneArray(a domain.Array) domain.Array {
	out := a
	out.Elements = append([]domain.ArrayElement(nil), a.Elements...)
	return out
}

var _ domain.ProjectStore = (*Store)(nil)
