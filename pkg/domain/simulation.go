package domain

import (
	"fmt"
	"strings"
	"time"
)

// Polarization selects the field orientation for oblique incidence.
type Polarization string

const (
	// PolarizationTE is transverse electric (s).
	PolarizationTE Polarization = "TE"
	// PolarizationTM is transverse magnetic (p).
	PolarizationTM Polarization = "TM"
)

// ParsePolarization normalizes user input; it accepts TE/TM and the s/p
// aliases in any case.
func ParsePolarization(s string) (Polarization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "te", "s":
		return PolarizationTE, nil
	case "tm", "p":
		return PolarizationTM, nil
	default:
		return "", ValidationError{Field: "polarization", Message: fmt.Sprintf("unknown polarization %q", s)}
	}
}

// SimulationRequest describes one sweep: the structure expression with a
// default thickness for bare material terms, the wavelength grid and the
// incidence conditions.
type SimulationRequest struct {
	Expression         string       `json:"expression"`
	StartNm            float64      `json:"start_nm"`
	EndNm              float64      `json:"end_nm"`
	Steps              int          `json:"steps"`
	AngleDeg           float64      `json:"angle_deg"`
	Polarization       Polarization `json:"polarization"`
	DefaultThicknessNm float64      `json:"default_thickness_nm"`
}

// Validate rejects invalid grids and incidence conditions before any
// expansion or matrix work begins.
func (r SimulationRequest) Validate() error {
	if strings.TrimSpace(r.Expression) == "" {
		return ValidationError{Field: "expression", Message: "must not be empty"}
	}
	if r.StartNm <= 0 {
		return ValidationError{Field: "start_nm", Message: "must be positive"}
	}
	if r.EndNm <= r.StartNm {
		return ValidationError{Field: "end_nm", Message: "must be greater than start_nm"}
	}
	if r.Steps < 1 {
		return ValidationError{Field: "steps", Message: "must be at least 1"}
	}
	if r.AngleDeg < 0 || r.AngleDeg >= 90 {
		return ValidationError{Field: "angle_deg", Message: "must be in [0, 90)"}
	}
	if r.Polarization != PolarizationTE && r.Polarization != PolarizationTM {
		return ValidationError{Field: "polarization", Message: fmt.Sprintf("unknown polarization %q", r.Polarization)}
	}
	if r.DefaultThicknessNm <= 0 {
		return ValidationError{Field: "default_thickness_nm", Message: "must be positive"}
	}
	return nil
}

// WarningCode classifies result annotations.
type WarningCode string

const (
	// WarnConservation flags R+T deviating from 1 for a nominally lossless
	// stack, or R/T exceeding 1. Values are reported as computed, never capped.
	WarnConservation WarningCode = "conservation"
	// WarnExtrapolated flags an index lookup clamped to the boundary of its
	// tabulated or formula validity range.
	WarnExtrapolated WarningCode = "extrapolated"
	// WarnNonFinite flags matrix overflow or a non-finite response, reported
	// alongside the sample's NumericalError.
	WarnNonFinite WarningCode = "nonfinite"
)

// Warning is a non-fatal result annotation.
type Warning struct {
	Code         WarningCode `json:"code"`
	Message      string      `json:"message"`
	Material     string      `json:"material,omitempty"`
	WavelengthNm float64     `json:"wavelength_nm,omitempty"`
}

// SpectrumSample is the optical response at one wavelength.
type SpectrumSample struct {
	WavelengthNm  float64 `json:"wavelength_nm"`
	Reflectance   float64 `json:"reflectance"`
	Transmittance float64 `json:"transmittance"`
	// PhaseRad is the phase of the complex reflection coefficient.
	PhaseRad float64 `json:"phase_rad"`
}

// SimulationResult is a completed sweep: one sample per grid point in
// ascending wavelength order plus any annotations collected along the way.
type SimulationResult struct {
	Request    SimulationRequest `json:"request"`
	Samples    []SpectrumSample  `json:"samples"`
	Warnings   []Warning         `json:"warnings,omitempty"`
	ComputedAt time.Time         `json:"computed_at"`
}
