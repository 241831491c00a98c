package material

import (
	"math"

	"opticore/pkg/domain"
)

// Formula evaluates one of the nine refractiveindex.info dispersion formulas.
// Coefficients follow the database's micrometre conventions; IndexAt accepts
// nanometres and converts. Formulas model transparent ranges, so k is zero.
type Formula struct {
	name        string
	id          int
	coeffs      []float64
	minNm       float64
	maxNm       float64
	extrapolate bool
}

// NewFormula validates the formula id and coefficient count.
func NewFormula(name string, f domain.DispersionFormula, extrapolate bool) (*Formula, error) {
	if f.ID < 1 || f.ID > 9 {
		return nil, domain.ValidationError{Field: "formula", Message: "formula id must be in 1..9"}
	}
	if len(f.Coefficients) == 0 {
		return nil, domain.ValidationError{Field: "formula", Message: "formula needs coefficients"}
	}
	cp := make([]float64, len(f.Coefficients))
	copy(cp, f.Coefficients)
	return &Formula{name: name, id: f.ID, coeffs: cp, minNm: f.MinNm, maxNm: f.MaxNm, extrapolate: extrapolate}, nil
}

func (f *Formula) IndexAt(wavelengthNm float64) (complex128, bool, error) {
	eval := wavelengthNm
	extrapolated := false
	if f.minNm > 0 && wavelengthNm < f.minNm {
		if !f.extrapolate {
			return 0, false, domain.OutOfRangeError{Material: f.name, WavelengthNm: wavelengthNm, MinNm: f.minNm, MaxNm: f.maxNm}
		}
		eval, extrapolated = f.minNm, true
	}
	if f.maxNm > 0 && wavelengthNm > f.maxNm {
		if !f.extrapolate {
			return 0, false, domain.OutOfRangeError{Material: f.name, WavelengthNm: wavelengthNm, MinNm: f.minNm, MaxNm: f.maxNm}
		}
		eval, extrapolated = f.maxNm, true
	}
	n := evalFormula(f.id, f.coeffs, eval/1000.0)
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0, false, domain.MaterialStateError{Material: f.name, Reason: "formula produced a non-physical index"}
	}
	return complex(n, 0), extrapolated, nil
}

// evalFormula computes n for wavelength um in micrometres. Out-of-bounds
// coefficient positions read as zero, matching the database's variable-length
// coefficient lists.
func evalFormula(id int, c []float64, um float64) float64 {
	at := func(i int) float64 {
		if i < len(c) {
			return c[i]
		}
		return 0
	}
	w2 := um * um
	switch id {
	case 1: // Sellmeier
		nsq := 1 + at(0)
		for i := 1; i+1 < len(c); i += 2 {
			nsq += at(i) * w2 / (w2 - at(i+1)*at(i+1))
		}
		return math.Sqrt(nsq)
	case 2: // Sellmeier-2
		nsq := 1 + at(0)
		for i := 1; i+1 < len(c); i += 2 {
			nsq += at(i) * w2 / (w2 - at(i+1))
		}
		return math.Sqrt(nsq)
	case 3: // polynomial
		nsq := at(0)
		for i := 1; i+1 < len(c); i += 2 {
			nsq += at(i) * math.Pow(um, at(i+1))
		}
		return math.Sqrt(nsq)
	case 4: // refractiveindex.info composite
		nsq := at(0)
		for i := 1; i+3 < len(c) && i <= 5; i += 4 {
			nsq += at(i) * math.Pow(um, at(i+1)) / (w2 - math.Pow(at(i+2), at(i+3)))
		}
		for i := 9; i+1 < len(c); i += 2 {
			nsq += at(i) * math.Pow(um, at(i+1))
		}
		return math.Sqrt(nsq)
	case 5: // Cauchy
		n := at(0)
		for i := 1; i+1 < len(c); i += 2 {
			n += at(i) * math.Pow(um, at(i+1))
		}
		return n
	case 6: // gases
		n := 1 + at(0)
		for i := 1; i+1 < len(c); i += 2 {
			n += at(i) / (at(i+1) - 1/w2)
		}
		return n
	case 7: // Herzberger
		d := w2 - 0.028
		return at(0) + at(1)/d + at(2)/(d*d) + at(3)*w2 + at(4)*w2*w2 + at(5)*w2*w2*w2
	case 8: // retro
		rhs := at(0) + at(1)*w2/(w2-at(2)) + at(3)*w2
		if rhs >= 1 {
			return math.NaN()
		}
		return math.Sqrt((1 + 2*rhs) / (1 - rhs))
	case 9: // exotic
		d := um - at(4)
		nsq := at(0) + at(1)/(w2-at(2)) + at(3)*d/(d*d+at(5))
		return math.Sqrt(nsq)
	default:
		return math.NaN()
	}
}
