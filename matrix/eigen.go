// SPDX-License-Identifier: MIT
// Package matrix - Jacobi eigen decomposition and symmetric matrix functions.
//
// Purpose:
//   - Eigen: eigenvalues/eigenvectors of a real symmetric matrix.
//   - FromEigen: rebuild Q·diag(λ)·Qᵀ (exactly symmetric output).
//   - SqrtSym / InvSqrtSym / InverseSym: spectral matrix functions used by
//     the overlap preparer (Σ^{1/2}, Σ^{-1/2}, Σ^{-1}).
//
// Notes:
//   - Convergence and symmetry checks are relative to max|A[i,j]|, so the same
//     tol works for covariance matrices rescaled by 1e-6 or by 1e5.

package matrix

import (
	"fmt"
	"math"
)

// DefaultEigenTol is the relative off-diagonal threshold used by the spectral
// helpers below.
const DefaultEigenTol = 1e-13

// eigenSweeps bounds Jacobi rotations as eigenSweeps·n² (classic Jacobi
// converges quadratically after a handful of sweeps).
const eigenSweeps = 64

// Eigen computes eigenvalues and eigenvectors of a symmetric matrix via Jacobi rotations.
// Implementation:
//   - Stage 1: Validate symmetric square input within tol·max|A| (not nil, square, symmetric).
//   - Stage 2: Repeatedly pick (p,q) with the largest |A[p,q]| in i→j order and apply a Jacobi rotation.
//   - Stage 3: Read eigenvalues off the diagonal; Q accumulates the rotations.
//
// Behavior highlights:
//   - Stable, deterministic pivot scan on the flat slice.
//   - A zero matrix returns zero eigenvalues and Q = I.
//
// Inputs:
//   - m: symmetric Matrix; n := m.Rows().
//   - tol: relative convergence threshold (typ. 1e-12..1e-14 for float64).
//   - maxIter: safety cap on rotations.
//
// Returns:
//   - []float64: eigenvalues (diagonal of the rotated matrix, unsorted).
//   - *Dense: Q whose columns are the matching eigenvectors (A = Q·Λ·Qᵀ).
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch, ErrAsymmetry, ErrNaNInf,
//     ErrMatrixEigenFailed (max off-diagonal ≥ tol·max|A| after maxIter).
//
// Complexity:
//   - Time O(maxIter · n), Space O(n²).
func Eigen(m Matrix, tol float64, maxIter int) ([]float64, *Dense, error) {
	if err := ValidateSquare(m); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	scale := MaxAbs(m)
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, nil, matrixErrorf(opEigen, ErrNaNInf)
	}
	symTol := tol * scale
	if symTol == 0 {
		symTol = tol
	}
	if err := ValidateSymmetric(m, symTol); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}

	n := m.Rows()
	src, err := asDense(m)
	if err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	A := src.CloneDense() // working copy; the input stays untouched
	Q, err := Identity(n)
	if err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	if scale == 0 {
		return make([]float64, n), Q, nil
	}

	var (
		iter               int     // rotation counter
		i, j, p, q         int     // loop iterators and pivot indices
		maxOff, off        float64 // current max |A[p,q]|; temporary
		app, aqq, apq      float64 // pivot block entries
		aip, aiq, qip, qiq float64 // temporaries for A[i,p], A[i,q] and Q[i,p], Q[i,q]
		newIP, newIQ       float64 // updated values for A[i,p] and A[i,q]
		theta, t, c, s     float64 // rotation parameters
		a                  = A.data
		qd                 = Q.data
	)
	for iter = 0; ; iter++ {
		// J.1: Find pivot (p,q) maximizing |A[p,q]|.
		maxOff = 0
		for i = 0; i < n; i++ {
			for j = i + 1; j < n; j++ {
				off = math.Abs(a[i*n+j])
				if off > maxOff {
					maxOff, p, q = off, i, j
				}
			}
		}
		// J.2: Converged?
		if maxOff <= tol*scale {
			break
		}
		if iter >= maxIter {
			return nil, nil, matrixErrorf(opEigen, ErrMatrixEigenFailed)
		}

		// J.3: Rotation parameters from A[p,p], A[q,q], A[p,q].
		app = a[p*n+p]
		aqq = a[q*n+q]
		apq = a[p*n+q]
		theta = (aqq - app) / (2 * apq)
		t = math.Copysign(1.0/(math.Abs(theta)+math.Hypot(theta, 1)), theta)
		c = 1.0 / math.Sqrt(t*t+1)
		s = t * c

		// J.4: Apply rotation to A (symmetric updates).
		for i = 0; i < n; i++ {
			if i == p || i == q {
				continue
			}
			aip = a[i*n+p]
			aiq = a[i*n+q]
			newIP = c*aip - s*aiq
			newIQ = s*aip + c*aiq
			a[i*n+p], a[p*n+i] = newIP, newIP
			a[i*n+q], a[q*n+i] = newIQ, newIQ
		}
		a[p*n+p] = c*c*app - 2*c*s*apq + s*s*aqq
		a[q*n+q] = s*s*app + 2*c*s*apq + c*c*aqq
		a[p*n+q], a[q*n+p] = 0, 0

		// J.5: Accumulate rotation into Q.
		for i = 0; i < n; i++ {
			qip = qd[i*n+p]
			qiq = qd[i*n+q]
			qd[i*n+p] = c*qip - s*qiq
			qd[i*n+q] = s*qip + c*qiq
		}
	}

	eigs := make([]float64, n)
	for i = 0; i < n; i++ {
		eigs[i] = a[i*n+i]
	}

	return eigs, Q, nil
}

// EigenSym runs Eigen with the package defaults (DefaultEigenTol, eigenSweeps·n² rotations).
func EigenSym(m Matrix) ([]float64, *Dense, error) {
	if err := ValidateSquare(m); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	n := m.Rows()

	return Eigen(m, DefaultEigenTol, eigenSweeps*n*n)
}

// FromEigen rebuilds Q·diag(vals)·Qᵀ.
// The output is filled from the upper triangle, so it is exactly symmetric.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (Q not square or len(vals) != n).
//
// Complexity:
//   - Time O(n³), Space O(n²).
func FromEigen(vals []float64, Q Matrix) (*Dense, error) {
	if err := ValidateSquare(Q); err != nil {
		return nil, matrixErrorf(opFromEigen, err)
	}
	qd, err := asDense(Q)
	if err != nil {
		return nil, matrixErrorf(opFromEigen, err)
	}
	n := qd.r
	if err = ValidateVecLen(vals, n); err != nil {
		return nil, matrixErrorf(opFromEigen, err)
	}
	out, err := NewDense(n, n)
	if err != nil {
		return nil, matrixErrorf(opFromEigen, err)
	}
	var (
		i, j, l int
		s       float64
	)
	for i = 0; i < n; i++ {
		for j = i; j < n; j++ {
			s = 0
			for l = 0; l < n; l++ {
				s += qd.data[i*n+l] * vals[l] * qd.data[j*n+l]
			}
			out.data[i*n+j] = s
			out.data[j*n+i] = s
		}
	}

	return out, nil
}

// symFunc applies f to the spectrum of a symmetric matrix: Q·diag(f(λ))·Qᵀ.
// When positive is set, eigenvalues ≤ 0 yield ErrNotPositiveDefinite;
// otherwise tiny negative eigenvalues (round-off of a PSD input) are clamped to 0.
func symFunc(tag string, m Matrix, positive bool, f func(float64) float64) (*Dense, error) {
	vals, Q, err := EigenSym(m)
	if err != nil {
		return nil, matrixErrorf(tag, err)
	}
	fv := make([]float64, len(vals))
	for i, v := range vals {
		if v <= 0 {
			if positive {
				return nil, matrixErrorf(tag, fmt.Errorf("λ[%d]=%g: %w", i, v, ErrNotPositiveDefinite))
			}
			v = 0
		}
		fv[i] = f(v)
	}
	out, err := FromEigen(fv, Q)
	if err != nil {
		return nil, matrixErrorf(tag, err)
	}

	return out, nil
}

// SqrtSym returns the symmetric square root S of a PSD matrix (S·S = m).
// Complexity: O(n³).
func SqrtSym(m Matrix) (*Dense, error) {
	return symFunc(opSqrtSym, m, false, math.Sqrt)
}

// InvSqrtSym returns m^{-1/2} for a positive definite m.
// Complexity: O(n³).
func InvSqrtSym(m Matrix) (*Dense, error) {
	return symFunc(opInvSqrt, m, true, func(v float64) float64 { return 1 / math.Sqrt(v) })
}

// InverseSym returns m^{-1} for a positive definite m.
// Complexity: O(n³).
func InverseSym(m Matrix) (*Dense, error) {
	return symFunc(opInverse, m, true, func(v float64) float64 { return 1 / v })
}
