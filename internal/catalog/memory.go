package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"opticore/pkg/domain"
)

// Memory is an in-process catalog used by tests and the default wiring.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]domain.Material
}

// NewMemory constructs an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]domain.Material)}
}

// NewMemorySeeded constructs a catalog pre-populated with common constants,
// so a fresh deployment has usable incidence and substrate media.
func NewMemorySeeded() *Memory {
	m := NewMemory()
	seed := map[string]domain.Material{
		"other/air/const":     {Name: "Air", Kind: domain.MaterialConstant, N: 1.0, Comment: "vacuum approximation"},
		"main/Si/const":       {Name: "Si", Kind: domain.MaterialConstant, N: 3.5, Comment: "silicon, visible average"},
		"main/SiO2/const":     {Name: "SiO2", Kind: domain.MaterialConstant, N: 1.45},
		"main/TiO2/const":     {Name: "TiO2", Kind: domain.MaterialConstant, N: 2.35},
		"main/MgF2/const":     {Name: "MgF2", Kind: domain.MaterialConstant, N: 1.38},
		"glass/BK7/Sellmeier": {Name: "BK7", Kind: domain.MaterialFormula, Formula: &domain.DispersionFormula{
			ID: 1,
			Coefficients: []float64{
				0,
				1.03961212, 0.0774607,
				0.231792344, 0.1414847,
				1.01046945, 10.176475,
			},
			MinNm: 300,
			MaxNm: 2500,
		}},
	}
	for id, mat := range seed {
		m.entries[id] = mat
	}
	return m
}

func (m *Memory) Lookup(_ context.Context, id string) (domain.Material, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[id]
	if !ok {
		return domain.Material{}, ErrNotFound
	}
	return cloneMaterial(entry), nil
}

func (m *Memory) Search(_ context.Context, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := strings.ToLower(query)
	m.mu.RLock()
	ids := make([]string, 0, len(m.entries))
	for id, entry := range m.entries {
		if q == "" || strings.Contains(strings.ToLower(id), q) || strings.Contains(strings.ToLower(entry.Name), q) {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]Entry, 0, len(ids))
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range ids {
		entry := m.entries[id]
		out = append(out, Entry{ID: id, Name: entry.Name, Kind: entry.Kind, Comment: entry.Comment})
	}
	return out, nil
}

func (m *Memory) Put(_ context.Context, id string, mat domain.Material) error {
	if strings.TrimSpace(id) == "" {
		return domain.ValidationError{Field: "id", Message: "must not be empty"}
	}
	if err := mat.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[id] = cloneMaterial(mat)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }

func cloneMaterial(in domain.Material) domain.Material {
	out := in
	if in.Samples != nil {
		out.Samples = append([]domain.DispersionSample(nil), in.Samples...)
	}
	if in.Formula != nil {
		f := *in.Formula
		f.Coefficients = append([]float64(nil), in.Formula.Coefficients...)
		out.Formula = &f
	}
	return out
}
