// Package domain defines the optical design entities shared across opticore:
// materials and their dispersion data, reusable layer arrays, flattened filter
// structures, simulation requests/results and the error taxonomy used by the
// parser, the engine and the stores.
package domain

import (
	"fmt"
	"math"
	"regexp"
)

// MaterialKind identifies how a material's refractive index is represented.
type MaterialKind string

const (
	// MaterialConstant is a wavelength-independent complex index (n, k).
	MaterialConstant MaterialKind = "constant"
	// MaterialTabulated is an ordered (wavelength, n, k) sample table.
	MaterialTabulated MaterialKind = "tabulated"
	// MaterialFormula is a refractiveindex.info dispersion formula.
	MaterialFormula MaterialKind = "formula"
	// MaterialSourced is resolved on demand through a catalog lookup.
	MaterialSourced MaterialKind = "sourced"
)

// Session limits. The design session rejects definitions beyond these bounds.
const (
	MaxMaterials = 100
	MaxArrays    = 20
	// MaxLayers bounds the expanded layer sequence so matrix work stays tractable.
	MaxLayers = 8192
	// MaxNameLength bounds material and array identifiers.
	MaxNameLength = 32
)

var nameRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidateName reports whether s is usable as a material or array identifier
// inside structure expressions: a letter followed by letters, digits or
// underscores. Identifiers are case-sensitive.
func ValidateName(s string) error {
	if s == "" {
		return ValidationError{Field: "name", Message: "must not be empty"}
	}
	if len(s) > MaxNameLength {
		return ValidationError{Field: "name", Message: fmt.Sprintf("%q exceeds %d characters", s, MaxNameLength)}
	}
	if !nameRE.MatchString(s) {
		return ValidationError{Field: "name", Message: fmt.Sprintf("%q is not a valid identifier", s)}
	}
	return nil
}

// DispersionSample is one tabulated dispersion point.
type DispersionSample struct {
	WavelengthNm float64 `json:"wavelength_nm"`
	N            float64 `json:"n"`
	K            float64 `json:"k"`
}

// DispersionFormula describes a refractiveindex.info formula (1..9) with its
// coefficients in the database's micrometre conventions and an optional
// validity range in nanometres.
type DispersionFormula struct {
	ID           int       `json:"id"`
	Coefficients []float64 `json:"coefficients"`
	MinNm        float64   `json:"min_nm,omitempty"`
	MaxNm        float64   `json:"max_nm,omitempty"`
}

// Material is an immutable index-of-refraction definition. Exactly one
// representation applies depending on Kind. Layers reference materials by
// name; the definition itself is never duplicated.
type Material struct {
	Name string       `json:"name"`
	Kind MaterialKind `json:"kind"`

	// Constant representation.
	N float64 `json:"n,omitempty"`
	K float64 `json:"k,omitempty"`

	// Tabulated representation; wavelengths strictly increasing.
	Samples []DispersionSample `json:"samples,omitempty"`
	// Extrapolate selects the out-of-range policy for tabulated and formula
	// materials: when true the boundary value is held and the lookup is
	// annotated, when false the lookup fails with OutOfRangeError.
	Extrapolate bool `json:"extrapolate,omitempty"`

	// Formula representation.
	Formula *DispersionFormula `json:"formula,omitempty"`

	// Sourced representation: the catalog id (shelf/book/page form).
	SourceID string `json:"source_id,omitempty"`

	// Defect marks a marker material whose layers may carry zero thickness.
	Defect bool `json:"defect,omitempty"`

	Comment string `json:"comment,omitempty"`
}

// Validate checks the kind-specific invariants of the definition.
func (m Material) Validate() error {
	if err := ValidateName(m.Name); err != nil {
		return err
	}
	switch m.Kind {
	case MaterialConstant:
		if m.N <= 0 {
			return ValidationError{Field: "n", Message: "refractive index must be positive"}
		}
		if m.K < 0 {
			return ValidationError{Field: "k", Message: "extinction coefficient must not be negative"}
		}
	case MaterialTabulated:
		if len(m.Samples) == 0 {
			return ValidationError{Field: "samples", Message: "tabulated material needs at least one sample"}
		}
		prev := math.Inf(-1)
		for i, s := range m.Samples {
			if s.WavelengthNm <= 0 {
				return ValidationError{Field: "samples", Message: fmt.Sprintf("sample %d: wavelength must be positive", i)}
			}
			if s.WavelengthNm <= prev {
				return ValidationError{Field: "samples", Message: fmt.Sprintf("sample %d: wavelengths must be strictly increasing", i)}
			}
			if s.N <= 0 {
				return ValidationError{Field: "samples", Message: fmt.Sprintf("sample %d: refractive index must be positive", i)}
			}
			if s.K < 0 {
				return ValidationError{Field: "samples", Message: fmt.Sprintf("sample %d: extinction coefficient must not be negative", i)}
			}
			prev = s.WavelengthNm
		}
	case MaterialFormula:
		if m.Formula == nil {
			return ValidationError{Field: "formula", Message: "formula material needs formula data"}
		}
		if m.Formula.ID < 1 || m.Formula.ID > 9 {
			return ValidationError{Field: "formula", Message: fmt.Sprintf("unknown dispersion formula %d", m.Formula.ID)}
		}
		if len(m.Formula.Coefficients) == 0 {
			return ValidationError{Field: "formula", Message: "formula needs coefficients"}
		}
	case MaterialSourced:
		if m.SourceID == "" {
			return ValidationError{Field: "source_id", Message: "sourced material needs a catalog id"}
		}
	default:
		return ValidationError{Field: "kind", Message: fmt.Sprintf("unknown material kind %q", m.Kind)}
	}
	return nil
}

// ArrayElement is one entry of an Array: a reference to a material with an
// explicit thickness, or a reference to another array (thickness ignored).
type ArrayElement struct {
	Ref         string  `json:"ref"`
	ThicknessNm float64 `json:"thickness_nm,omitempty"`
}

// Array is a named, reusable ordered sequence of layer building blocks usable
// as a term inside structure expressions.
type Array struct {
	Name     string         `json:"name"`
	Elements []ArrayElement `json:"elements"`
}

// Validate checks the array shape; reference resolution happens at expansion.
func (a Array) Validate() error {
	if err := ValidateName(a.Name); err != nil {
		return err
	}
	if len(a.Elements) == 0 {
		return ValidationError{Field: "elements", Message: "array needs at least one element"}
	}
	for i, el := range a.Elements {
		if err := ValidateName(el.Ref); err != nil {
			return ValidationError{Field: "elements", Message: fmt.Sprintf("element %d: %v", i, err)}
		}
		if el.ThicknessNm < 0 {
			return ValidationError{Field: "elements", Message: fmt.Sprintf("element %d: thickness must not be negative", i)}
		}
	}
	return nil
}

// Layer is the engine's unit of work: a material reference plus a physical
// thickness. Position is implicit by order, first layer closest to the
// incidence medium.
type Layer struct {
	Material    string  `json:"material"`
	ThicknessNm float64 `json:"thickness_nm"`
}

// FilterStructure is an expanded, ordered layer sequence bounded by two
// semi-infinite media. An empty layer sequence is a valid degenerate case
// (a bare incidence/substrate interface).
type FilterStructure struct {
	Layers    []Layer `json:"layers"`
	Incidence string  `json:"incidence"`
	Substrate string  `json:"substrate"`
}
