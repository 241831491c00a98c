// Package design owns the mutable design session: the material and array
// definitions, the media selection and the default sweep parameters that
// together describe a filter under construction.
package design

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"opticore/internal/catalog"
	"opticore/internal/material"
	"opticore/internal/structure"
	"opticore/internal/telemetry"
	"opticore/internal/tmm"
	"opticore/pkg/domain"
)

// Limits bounds the session size.
type Limits struct {
	MaxMaterials int
	MaxArrays    int
}

// DefaultLimits mirrors the domain bounds.
var DefaultLimits = Limits{MaxMaterials: domain.MaxMaterials, MaxArrays: domain.MaxArrays}

// Service is the session state machine. All public methods are safe for
// concurrent use; reads return copies.
type Service struct {
	mu         sync.RWMutex
	materials  map[string]domain.Material
	arrays     map[string]domain.Array
	incidence  string
	substrate  string
	expression string
	request    domain.SimulationRequest

	resolver *material.Resolver
	catalog  catalog.Source
	projects domain.ProjectStore
	logger   telemetry.Logger
	metrics  telemetry.MetricsRecorder
	limits   Limits
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the session logger.
func WithLogger(l telemetry.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.MetricsRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCatalog attaches a material catalog for sourced materials and imports.
func WithCatalog(src catalog.Source) Option {
	return func(s *Service) { s.catalog = src }
}

// WithProjectStore attaches the project persistence backend.
func WithProjectStore(store domain.ProjectStore) Option {
	return func(s *Service) { s.projects = store }
}

// WithLimits overrides the session bounds, mainly for tests.
func WithLimits(l Limits) Option {
	return func(s *Service) { s.limits = l }
}

// NewService builds a session seeded with the default media: Air (n=1) as
// incidence and Si (n=3.5) as substrate.
func NewService(opts ...Option) *Service {
	s := &Service{
		materials: make(map[string]domain.Material),
		arrays:    make(map[string]domain.Array),
		logger:    telemetry.NopLogger{},
		metrics:   telemetry.NopMetrics{},
		limits:    DefaultLimits,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resolver = material.NewResolver(s.catalog)
	air := domain.Material{Name: "Air", Kind: domain.MaterialConstant, N: 1.0}
	si := domain.Material{Name: "Si", Kind: domain.MaterialConstant, N: 3.5}
	s.materials[air.Name] = air
	s.materials[si.Name] = si
	s.incidence = air.Name
	s.substrate = si.Name
	s.request = domain.SimulationRequest{
		StartNm:            400,
		EndNm:              800,
		Steps:              401,
		Polarization:       domain.PolarizationTE,
		DefaultThicknessNm: 100,
	}
	return s
}

// AddMaterial defines (or redefines) a material. A name already used by an
// array is rejected because expressions resolve both from one namespace.
func (s *Service) AddMaterial(m domain.Material) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.arrays[m.Name]; ok {
		return domain.ValidationError{Field: "name", Message: fmt.Sprintf("%q already names an array", m.Name)}
	}
	if _, exists := s.materials[m.Name]; !exists && len(s.materials) >= s.limits.MaxMaterials {
		return domain.LimitError{What: "materials", Limit: s.limits.MaxMaterials, Actual: len(s.materials) + 1}
	}
	s.materials[m.Name] = m
	s.resolver.Invalidate(m.Name)
	s.logger.Debug("material defined", "name", m.Name, "kind", string(m.Kind))
	return nil
}

// GetMaterial returns the named definition.
func (s *Service) GetMaterial(name string) (domain.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.materials[name]
	if !ok {
		return domain.Material{}, domain.NotFoundError{Kind: "material", Name: name}
	}
	return m, nil
}

// ListMaterials returns all definitions ordered by name.
func (s *Service) ListMaterials() []domain.Material {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Material, 0, len(s.materials))
	for _, m := range s.materials {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RemoveMaterial deletes a definition unless something still references it.
func (s *Service) RemoveMaterial(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.materials[name]; !ok {
		return domain.NotFoundError{Kind: "material", Name: name}
	}
	if err := s.inUseLocked(name); err != nil {
		return err
	}
	delete(s.materials, name)
	s.resolver.Invalidate(name)
	return nil
}

// AddArray defines (or redefines) an array. Cycles are rejected eagerly so a
// bad definition never lies dormant until the next expansion.
func (s *Service) AddArray(a domain.Array) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.materials[a.Name]; ok {
		return domain.ValidationError{Field: "name", Message: fmt.Sprintf("%q already names a material", a.Name)}
	}
	if _, exists := s.arrays[a.Name]; !exists && len(s.arrays) >= s.limits.MaxArrays {
		return domain.LimitError{What: "arrays", Limit: s.limits.MaxArrays, Actual: len(s.arrays) + 1}
	}
	next := make(map[string]domain.Array, len(s.arrays)+1)
	for k, v := range s.arrays {
		next[k] = v
	}
	next[a.Name] = a
	if err := structure.CheckArrayCycles(next); err != nil {
		return err
	}
	s.arrays[a.Name] = a
	s.logger.Debug("array defined", "name", a.Name, "elements", len(a.Elements))
	return nil
}

// GetArray returns the named array.
func (s *Service) GetArray(name string) (domain.Array, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.arrays[name]
	if !ok {
		return domain.Array{}, domain.NotFoundError{Kind: "array", Name: name}
	}
	return cloneArray(a), nil
}

// ListArrays returns all arrays ordered by name.
func (s *Service) ListArrays() []domain.Array {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Array, 0, len(s.arrays))
	for _, a := range s.arrays {
		out = append(out, cloneArray(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RemoveArray deletes an array unless another array or the current expression
// references it.
func (s *Service) RemoveArray(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.arrays[name]; !ok {
		return domain.NotFoundError{Kind: "array", Name: name}
	}
	if err := s.inUseLocked(name); err != nil {
		return err
	}
	delete(s.arrays, name)
	return nil
}

// inUseLocked reports whether name is still referenced by an array, the
// current expression, or the media selection.
func (s *Service) inUseLocked(name string) error {
	if s.incidence == name || s.substrate == name {
		return domain.ValidationError{Field: "name", Message: fmt.Sprintf("%q is the current incidence or substrate medium", name)}
	}
	for _, a := range s.arrays {
		if a.Name == name {
			continue
		}
		for _, ref := range structure.ArrayReferences(a) {
			if ref == name {
				return domain.ValidationError{Field: "name", Message: fmt.Sprintf("%q is referenced by array %q", name, a.Name)}
			}
		}
	}
	if s.expression != "" {
		refs, err := structure.ExpressionReferences(s.expression)
		if err == nil {
			for _, ref := range refs {
				if ref == name {
					return domain.ValidationError{Field: "name", Message: fmt.Sprintf("%q is referenced by the current expression", name)}
				}
			}
		}
	}
	return nil
}

// SetMedia selects the semi-infinite incidence and substrate materials. Both
// must be defined.
func (s *Service) SetMedia(incidence, substrate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.materials[incidence]; !ok {
		return domain.NotFoundError{Kind: "material", Name: incidence}
	}
	if _, ok := s.materials[substrate]; !ok {
		return domain.NotFoundError{Kind: "material", Name: substrate}
	}
	s.incidence = incidence
	s.substrate = substrate
	return nil
}

// Media returns the current incidence and substrate selection.
func (s *Service) Media() (incidence, substrate string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.incidence, s.substrate
}

// SetExpression records the session's working expression after checking it
// parses and expands against the current definitions.
func (s *Service) SetExpression(expression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.expandLocked(expression, s.request.DefaultThicknessNm); err != nil {
		return err
	}
	s.expression = expression
	return nil
}

// Expression returns the session's working expression.
func (s *Service) Expression() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expression
}

// SetRequest stores the default sweep parameters used when a sweep request
// leaves fields unset. Expression is carried separately.
func (s *Service) SetRequest(req domain.SimulationRequest) error {
	probe := req
	if probe.Expression == "" {
		probe.Expression = "x"
	}
	if err := probe.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.request = req
	return nil
}

// Request returns the default sweep parameters with the session expression
// filled in.
func (s *Service) Request() domain.SimulationRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req := s.request
	if req.Expression == "" {
		req.Expression = s.expression
	}
	return req
}

// ValidateExpression expands an expression against the current definitions
// without touching session state, returning the layer sequence it would
// produce.
func (s *Service) ValidateExpression(expression string, defaultThicknessNm float64) (domain.FilterStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if defaultThicknessNm <= 0 {
		defaultThicknessNm = s.request.DefaultThicknessNm
	}
	layers, err := s.expandLocked(expression, defaultThicknessNm)
	if err != nil {
		return domain.FilterStructure{}, err
	}
	return domain.FilterStructure{Layers: layers, Incidence: s.incidence, Substrate: s.substrate}, nil
}

// BuildStructure expands the expression and resolves every material into a
// stack ready for the engine. Media resolution failures surface here, before
// any sweep is queued.
func (s *Service) BuildStructure(ctx context.Context, expression string, defaultThicknessNm float64) (tmm.Stack, domain.FilterStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if expression == "" {
		expression = s.expression
	}
	if defaultThicknessNm <= 0 {
		defaultThicknessNm = s.request.DefaultThicknessNm
	}
	layers, err := s.expandLocked(expression, defaultThicknessNm)
	if err != nil {
		return tmm.Stack{}, domain.FilterStructure{}, err
	}

	incidence, err := s.mediumLocked(ctx, s.incidence)
	if err != nil {
		return tmm.Stack{}, domain.FilterStructure{}, err
	}
	substrate, err := s.mediumLocked(ctx, s.substrate)
	if err != nil {
		return tmm.Stack{}, domain.FilterStructure{}, err
	}

	stack := tmm.Stack{Incidence: incidence, Substrate: substrate, Layers: make([]tmm.Layer, 0, len(layers))}
	for _, layer := range layers {
		medium, err := s.mediumLocked(ctx, layer.Material)
		if err != nil {
			return tmm.Stack{}, domain.FilterStructure{}, err
		}
		def := s.materials[layer.Material]
		stack.Layers = append(stack.Layers, tmm.Layer{
			Medium:      medium,
			ThicknessNm: layer.ThicknessNm,
			Defect:      def.Defect,
		})
	}
	fs := domain.FilterStructure{Layers: layers, Incidence: s.incidence, Substrate: s.substrate}
	return stack, fs, nil
}

// MaterialIndexAt evaluates a defined material's complex index at one
// wavelength. The extrapolated flag reports a lookup held at its range
// boundary.
func (s *Service) MaterialIndexAt(ctx context.Context, name string, wavelengthNm float64) (index complex128, extrapolated bool, err error) {
	if wavelengthNm <= 0 {
		return 0, false, domain.ValidationError{Field: "wavelength_nm", Message: "must be positive"}
	}
	s.mu.RLock()
	medium, err := s.mediumLocked(ctx, name)
	s.mu.RUnlock()
	if err != nil {
		return 0, false, err
	}
	return medium.Dispersion.IndexAt(wavelengthNm)
}

// ImportMaterialFromCatalog fetches a catalog entry and defines it in the
// session under localName (the catalog page name when empty).
func (s *Service) ImportMaterialFromCatalog(ctx context.Context, id, localName string) (domain.Material, error) {
	if s.catalog == nil {
		return domain.Material{}, domain.ValidationError{Field: "catalog", Message: "no catalog configured"}
	}
	m, err := s.catalog.Lookup(ctx, id)
	if err != nil {
		return domain.Material{}, err
	}
	if localName != "" {
		m.Name = localName
	}
	if err := s.AddMaterial(m); err != nil {
		return domain.Material{}, err
	}
	return m, nil
}

// SaveProject snapshots the session into the project store under name.
func (s *Service) SaveProject(ctx context.Context, name string) (domain.ProjectDocument, error) {
	store, err := s.projectStore()
	if err != nil {
		return domain.ProjectDocument{}, err
	}
	s.mu.RLock()
	doc := domain.ProjectDocument{
		Name:       name,
		Materials:  s.listMaterialsLocked(),
		Arrays:     s.listArraysLocked(),
		Expression: s.expression,
		Incidence:  s.incidence,
		Substrate:  s.substrate,
		Request:    s.request,
	}
	s.mu.RUnlock()
	saved, err := store.SaveProject(ctx, doc)
	if err != nil {
		return domain.ProjectDocument{}, err
	}
	s.logger.Info("project saved", "name", name, "materials", len(saved.Materials), "arrays", len(saved.Arrays))
	return saved, nil
}

// LoadProject replaces the whole session with a stored document. The session
// is untouched when the load fails.
func (s *Service) LoadProject(ctx context.Context, name string) (domain.ProjectDocument, error) {
	store, err := s.projectStore()
	if err != nil {
		return domain.ProjectDocument{}, err
	}
	doc, err := store.LoadProject(ctx, name)
	if err != nil {
		return domain.ProjectDocument{}, err
	}

	materials := make(map[string]domain.Material, len(doc.Materials))
	for _, m := range doc.Materials {
		materials[m.Name] = m
	}
	arrays := make(map[string]domain.Array, len(doc.Arrays))
	for _, a := range doc.Arrays {
		arrays[a.Name] = a
	}
	if _, ok := materials[doc.Incidence]; !ok {
		return domain.ProjectDocument{}, domain.ValidationError{Field: "incidence", Message: fmt.Sprintf("document names undefined material %q", doc.Incidence)}
	}
	if _, ok := materials[doc.Substrate]; !ok {
		return domain.ProjectDocument{}, domain.ValidationError{Field: "substrate", Message: fmt.Sprintf("document names undefined material %q", doc.Substrate)}
	}
	if err := structure.CheckArrayCycles(arrays); err != nil {
		return domain.ProjectDocument{}, err
	}

	s.mu.Lock()
	for name := range s.materials {
		s.resolver.Invalidate(name)
	}
	s.materials = materials
	s.arrays = arrays
	s.incidence = doc.Incidence
	s.substrate = doc.Substrate
	s.expression = doc.Expression
	s.request = doc.Request
	for name := range materials {
		s.resolver.Invalidate(name)
	}
	s.mu.Unlock()
	s.logger.Info("project loaded", "name", name)
	return doc, nil
}

// ListProjects lists stored documents.
func (s *Service) ListProjects(ctx context.Context) ([]domain.ProjectDocument, error) {
	store, err := s.projectStore()
	if err != nil {
		return nil, err
	}
	return store.ListProjects(ctx)
}

// DeleteProject removes a stored document.
func (s *Service) DeleteProject(ctx context.Context, name string) error {
	store, err := s.projectStore()
	if err != nil {
		return err
	}
	return store.DeleteProject(ctx, name)
}

func (s *Service) projectStore() (domain.ProjectStore, error) {
	if s.projects == nil {
		return nil, domain.ValidationError{Field: "projects", Message: "no project store configured"}
	}
	return s.projects, nil
}

func (s *Service) expandLocked(expression string, defaultThicknessNm float64) ([]domain.Layer, error) {
	defs := structure.Definitions{Materials: s.materials, Arrays: s.arrays}
	return structure.Expand(expression, defs, defaultThicknessNm)
}

func (s *Service) mediumLocked(ctx context.Context, name string) (tmm.Medium, error) {
	def, ok := s.materials[name]
	if !ok {
		return tmm.Medium{}, domain.NotFoundError{Kind: "material", Name: name}
	}
	d, err := s.resolver.Resolve(ctx, def)
	if err != nil {
		return tmm.Medium{}, err
	}
	return tmm.Medium{Name: name, Dispersion: d}, nil
}

func (s *Service) listMaterialsLocked() []domain.Material {
	out := make([]domain.Material, 0, len(s.materials))
	for _, m := range s.materials {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) listArraysLocked() []domain.Array {
	out := make([]domain.Array, 0, len(s.arrays))
	for _, a := range s.arrays {
		out = append(out, cloneArray(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func cloneArray(a domain.Array) domain.Array {
	out := a
	out.Elements = append([]domain.ArrayElement(nil), a.Elements...)
	return out
}
