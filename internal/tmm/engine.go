package tmm

import (
	"fmt"
	"math"
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/floats"

	"opticore/internal/material"
	"opticore/pkg/domain"
)

// conservationTol is the allowed |R+T-1| deviation for a lossless stack at a
// single sample. Larger deviations are annotated on the result, never hidden.
const conservationTol = 1e-8

// Medium is a material with its resolved dispersion evaluator.
type Medium struct {
	Name       string
	Dispersion material.Dispersion
}

// Layer is one slab of the stack. Defect layers may carry zero thickness and
// contribute an identity matrix.
type Layer struct {
	Medium
	ThicknessNm float64
	Defect      bool
}

// Stack is the engine's input: an ordered layer sequence bounded by two
// semi-infinite media. The first layer is closest to the incidence medium.
// An empty layer sequence is the bare two-media interface.
type Stack struct {
	Incidence Medium
	Layers    []Layer
	Substrate Medium
}

// Sample is the optical response at one wavelength.
type Sample struct {
	WavelengthNm  float64
	Reflectance   float64
	Transmittance float64
	PhaseRad      float64
}

// At computes reflectance, transmittance and reflection phase for a single
// wavelength. Warnings carry extrapolation and conservation annotations.
//
// Total internal reflection and grazing incidence need no special handling:
// the generalized Snell construction keeps kx conserved through complex
// arithmetic and the boundary formulas remain valid.
func At(stack Stack, angleDeg float64, pol domain.Polarization, wavelengthNm float64) (Sample, []domain.Warning, error) {
	if wavelengthNm <= 0 {
		return Sample{}, nil, domain.ValidationError{Field: "wavelength_nm", Message: "must be positive"}
	}
	if angleDeg < 0 || angleDeg >= 90 {
		return Sample{}, nil, domain.ValidationError{Field: "angle_deg", Message: "must be in [0, 90)"}
	}
	if pol != domain.PolarizationTE && pol != domain.PolarizationTM {
		return Sample{}, nil, domain.ValidationError{Field: "polarization", Message: fmt.Sprintf("unknown polarization %q", pol)}
	}
	if len(stack.Layers) > domain.MaxLayers {
		return Sample{}, nil, domain.LimitError{What: "layers", Limit: domain.MaxLayers, Actual: len(stack.Layers)}
	}

	var warnings []domain.Warning
	lookup := func(m Medium) (complex128, error) {
		idx, extrapolated, err := m.Dispersion.IndexAt(wavelengthNm)
		if err != nil {
			return 0, err
		}
		if !material.Finite(idx) {
			return 0, domain.MaterialStateError{Material: m.Name, Reason: "non-finite refractive index"}
		}
		if extrapolated {
			warnings = append(warnings, domain.Warning{
				Code:         domain.WarnExtrapolated,
				Message:      fmt.Sprintf("index of %s held at its range boundary", m.Name),
				Material:     m.Name,
				WavelengthNm: wavelengthNm,
			})
		}
		return idx, nil
	}

	n0, err := lookup(stack.Incidence)
	if err != nil {
		return Sample{}, warnings, err
	}
	if material.IsAbsorbing(n0) {
		return Sample{}, warnings, domain.ValidationError{Field: "incidence", Message: "incidence medium must be non-absorbing"}
	}
	nSub, err := lookup(stack.Substrate)
	if err != nil {
		return Sample{}, warnings, err
	}

	theta0 := angleDeg * math.Pi / 180
	// kx/k0 is conserved across every interface.
	sin0 := complex(real(n0)*math.Sin(theta0), 0)
	lossless := !material.IsAbsorbing(nSub)

	product := Identity
	for _, layer := range stack.Layers {
		if layer.ThicknessNm < 0 || (layer.ThicknessNm == 0 && !layer.Defect) {
			return Sample{}, warnings, domain.ValidationError{
				Field:   "thickness",
				Message: fmt.Sprintf("layer %s: thickness must be positive", layer.Name),
			}
		}
		n, err := lookup(layer.Medium)
		if err != nil {
			return Sample{}, warnings, err
		}
		if material.IsAbsorbing(n) {
			lossless = false
		}
		cosT := snellCos(n, sin0)
		delta := 2 * math.Pi * n * complex(layer.ThicknessNm, 0) * cosT / complex(wavelengthNm, 0)
		m := characteristic(delta, admittance(n, cosT, pol))
		product = product.Mul(m)
		if !product.Finite() {
			warnings = append(warnings, domain.Warning{
				Code:         domain.WarnNonFinite,
				Message:      fmt.Sprintf("matrix overflow in layer %s", layer.Name),
				Material:     layer.Name,
				WavelengthNm: wavelengthNm,
			})
			return Sample{}, warnings, domain.NumericalError{WavelengthNm: wavelengthNm, Reason: "characteristic matrix overflow"}
		}
	}

	eta0 := admittance(n0, snellCos(n0, sin0), pol)
	etaSub := admittance(nSub, snellCos(nSub, sin0), pol)

	// [B C]^T = M · [1 eta_sub]^T, then the standard boundary formulas.
	b := product.A + product.B*etaSub
	c := product.C + product.D*etaSub
	denom := eta0*b + c
	if denom == 0 {
		return Sample{}, warnings, domain.NumericalError{WavelengthNm: wavelengthNm, Reason: "degenerate boundary condition"}
	}
	r := (eta0*b - c) / denom
	reflectance := real(r)*real(r) + imag(r)*imag(r)
	absDenom := real(denom)*real(denom) + imag(denom)*imag(denom)
	transmittance := 4 * real(eta0) * real(etaSub) / absDenom

	if math.IsNaN(reflectance) || math.IsInf(reflectance, 0) || math.IsNaN(transmittance) || math.IsInf(transmittance, 0) {
		warnings = append(warnings, domain.Warning{
			Code:         domain.WarnNonFinite,
			Message:      "non-finite response",
			WavelengthNm: wavelengthNm,
		})
		return Sample{}, warnings, domain.NumericalError{WavelengthNm: wavelengthNm, Reason: "non-finite response"}
	}

	if lossless && math.Abs(reflectance+transmittance-1) > conservationTol {
		warnings = append(warnings, domain.Warning{
			Code:         domain.WarnConservation,
			Message:      fmt.Sprintf("R+T deviates from 1 by %g for a lossless stack", reflectance+transmittance-1),
			WavelengthNm: wavelengthNm,
		})
	}
	if reflectance > 1+conservationTol || transmittance > 1+conservationTol {
		warnings = append(warnings, domain.Warning{
			Code:         domain.WarnConservation,
			Message:      fmt.Sprintf("unphysical response R=%g T=%g reported unclamped", reflectance, transmittance),
			WavelengthNm: wavelengthNm,
		})
	}

	return Sample{
		WavelengthNm:  wavelengthNm,
		Reflectance:   reflectance,
		Transmittance: transmittance,
		PhaseRad:      cmplx.Phase(r),
	}, warnings, nil
}

// Simulate runs the full wavelength grid synchronously. The asynchronous
// sweep worker calls At directly so it can interleave cancellation checks.
func Simulate(stack Stack, req domain.SimulationRequest) (domain.SimulationResult, error) {
	if err := req.Validate(); err != nil {
		return domain.SimulationResult{}, err
	}
	grid := Grid(req.StartNm, req.EndNm, req.Steps)
	result := domain.SimulationResult{
		Request:    req,
		Samples:    make([]domain.SpectrumSample, 0, len(grid)),
		ComputedAt: time.Now().UTC(),
	}
	for _, wl := range grid {
		sample, warnings, err := At(stack, req.AngleDeg, req.Polarization, wl)
		result.Warnings = append(result.Warnings, warnings...)
		if err != nil {
			return domain.SimulationResult{}, err
		}
		result.Samples = append(result.Samples, domain.SpectrumSample{
			WavelengthNm:  sample.WavelengthNm,
			Reflectance:   sample.Reflectance,
			Transmittance: sample.Transmittance,
			PhaseRad:      sample.PhaseRad,
		})
	}
	return result, nil
}

// Grid returns steps wavelengths from start to end inclusive, ascending.
func Grid(startNm, endNm float64, steps int) []float64 {
	if steps <= 1 {
		return []float64{startNm}
	}
	grid := make([]float64, steps)
	floats.Span(grid, startNm, endNm)
	return grid
}

// snellCos computes cos(theta_j) from the conserved sin component, pinned to
// the principal branch with Im(n·cosθ) >= 0 so evanescent waves decay into
// the stack instead of growing.
func snellCos(n, sin0 complex128) complex128 {
	s := sin0 / n
	cosT := cmplx.Sqrt(1 - s*s)
	if imag(n*cosT) < 0 {
		cosT = -cosT
	}
	return cosT
}

// admittance returns the polarization-dependent effective admittance in
// free-space units: TE uses n·cosθ, TM uses n/cosθ.
func admittance(n, cosT complex128, pol domain.Polarization) complex128 {
	if pol == domain.PolarizationTM {
		return n / cosT
	}
	return n * cosT
}
