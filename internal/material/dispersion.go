// Package material evaluates complex refractive indices for the engine.
// Every representation shares the Dispersion contract: a pure function of
// vacuum wavelength with an explicit out-of-range policy. The convention is
// N = n + ik with k >= 0 for absorbing media.
package material

import (
	"math"
	"math/cmplx"

	"opticore/pkg/domain"
)

// Dispersion evaluates a material's complex refractive index.
type Dispersion interface {
	// IndexAt returns the complex index at the given vacuum wavelength in
	// nanometres. Lookups outside a bounded validity range either clamp to
	// the boundary value (reporting extrapolated=true) or fail with
	// domain.OutOfRangeError, depending on the material's policy.
	IndexAt(wavelengthNm float64) (index complex128, extrapolated bool, err error)
}

// Constant is a wavelength-independent index.
type Constant struct {
	N float64
	K float64
}

func (c Constant) IndexAt(float64) (complex128, bool, error) {
	return complex(c.N, c.K), false, nil
}

// Tabulated interpolates linearly between strictly increasing samples.
type Tabulated struct {
	name        string
	samples     []domain.DispersionSample
	extrapolate bool
}

// NewTabulated validates the sample table once; IndexAt is then pure.
func NewTabulated(name string, samples []domain.DispersionSample, extrapolate bool) (*Tabulated, error) {
	if len(samples) == 0 {
		return nil, domain.ValidationError{Field: "samples", Message: "tabulated material needs at least one sample"}
	}
	prev := math.Inf(-1)
	for _, s := range samples {
		if s.WavelengthNm <= prev {
			return nil, domain.ValidationError{Field: "samples", Message: "wavelengths must be strictly increasing"}
		}
		prev = s.WavelengthNm
	}
	cp := make([]domain.DispersionSample, len(samples))
	copy(cp, samples)
	return &Tabulated{name: name, samples: cp, extrapolate: extrapolate}, nil
}

func (t *Tabulated) IndexAt(wavelengthNm float64) (complex128, bool, error) {
	first, last := t.samples[0], t.samples[len(t.samples)-1]
	if wavelengthNm < first.WavelengthNm {
		if !t.extrapolate {
			return 0, false, domain.OutOfRangeError{Material: t.name, WavelengthNm: wavelengthNm, MinNm: first.WavelengthNm, MaxNm: last.WavelengthNm}
		}
		return complex(first.N, first.K), true, nil
	}
	if wavelengthNm > last.WavelengthNm {
		if !t.extrapolate {
			return 0, false, domain.OutOfRangeError{Material: t.name, WavelengthNm: wavelengthNm, MinNm: first.WavelengthNm, MaxNm: last.WavelengthNm}
		}
		return complex(last.N, last.K), true, nil
	}
	// Binary search for the bracketing pair.
	lo, hi := 0, len(t.samples)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if t.samples[mid].WavelengthNm <= wavelengthNm {
			lo = mid
		} else {
			hi = mid
		}
	}
	a, b := t.samples[lo], t.samples[hi]
	if a.WavelengthNm == wavelengthNm || lo == hi {
		return complex(a.N, a.K), false, nil
	}
	f := (wavelengthNm - a.WavelengthNm) / (b.WavelengthNm - a.WavelengthNm)
	n := a.N + f*(b.N-a.N)
	k := a.K + f*(b.K-a.K)
	return complex(n, k), false, nil
}

// Unresolved is the error state of a material whose definition could not be
// resolved, for example a catalog lookup that failed. Every evaluation fails
// with the recorded reason, so the state is distinguishable from a zero-loss
// material wherever it is used.
type Unresolved struct {
	Name   string
	Reason string
}

func (u Unresolved) IndexAt(float64) (complex128, bool, error) {
	return 0, false, domain.MaterialStateError{Material: u.Name, Reason: u.Reason}
}

// IsAbsorbing reports whether the index carries measurable loss.
func IsAbsorbing(index complex128) bool {
	return math.Abs(imag(index)) > 1e-12
}

// Finite rejects NaN/Inf indices produced by malformed coefficient sets.
func Finite(index complex128) bool {
	return !cmplx.IsNaN(index) && !cmplx.IsInf(index)
}
