// Package tmm implements the transfer matrix method for 1D multilayer
// stacks: per-layer 2x2 characteristic matrices in complex arithmetic,
// multiplied in physical order and combined with the bounding media
// admittances to obtain reflectance and transmittance.
package tmm

import "math/cmplx"

// Mat2 is a 2x2 complex matrix in row-major order:
//
//	[ A B ]
//	[ C D ]
type Mat2 struct {
	A, B, C, D complex128
}

// Identity is the characteristic matrix of an empty stack.
var Identity = Mat2{A: 1, D: 1}

// Mul returns m·o.
func (m Mat2) Mul(o Mat2) Mat2 {
	return Mat2{
		A: m.A*o.A + m.B*o.C,
		B: m.A*o.B + m.B*o.D,
		C: m.C*o.A + m.D*o.C,
		D: m.C*o.B + m.D*o.D,
	}
}

// Finite reports whether all entries are finite. Overflowing complex
// trigonometry in strongly absorbing layers produces Inf entries that must
// surface as errors rather than propagate silently.
func (m Mat2) Finite() bool {
	for _, e := range [4]complex128{m.A, m.B, m.C, m.D} {
		if cmplx.IsInf(e) || cmplx.IsNaN(e) {
			return false
		}
	}
	return true
}

// characteristic builds the layer matrix from the complex phase thickness
// delta and the polarization-dependent admittance eta:
//
//	[ cos δ        i sin δ / η ]
//	[ i η sin δ    cos δ       ]
//
// cos/sin of the complex argument are evaluated with the standard complex
// identities; for lossy layers their magnitude grows exponentially with
// thickness, which Finite checks catch downstream.
func characteristic(delta, eta complex128) Mat2 {
	cosD := cmplx.Cos(delta)
	sinD := cmplx.Sin(delta)
	return Mat2{
		A: cosD,
		B: 1i * sinD / eta,
		C: 1i * eta * sinD,
		D: cosD,
	}
}
