// SPDX-License-Identifier: MIT
// Package matrix provides universal operations on any Matrix implementation:
// matrix multiplication, transpose, scalar scaling and matrix-vector products.
// All functions perform strict fail-fast validation and return wrapped
// sentinels on dimension mismatches.
//
// Notes:
//   - Every kernel allocates a fresh *Dense result; operands are never mutated.
//   - Non-*Dense operands are first materialized through asDense, so the hot
//     loops always run on flat slices.

package matrix

import (
	"fmt"
)

// Operation name constants for unified error wrapping and reducing magic strings.
const (
	opMul        = "Mul"
	opTranspose  = "Transpose"
	opScale      = "Scale"
	opMatVec     = "MatVec"
	opEigen      = "Eigen"
	opFromEigen  = "FromEigen"
	opSqrtSym    = "SqrtSym"
	opInvSqrt    = "InvSqrtSym"
	opInverse    = "InverseSym"
	opTrace      = "Trace"
	opCov        = "Covariance"
	opQuadForm   = "QuadForm"
	opSymmetrize = "Symmetrize"
)

// matrixErrorf wraps err with an operation tag, preserving the original error via %w.
// Use only when err != nil to avoid creating a non-nil wrapper around a nil cause.
//
// Complexity:
//   - Time O(1), Space O(1).
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// asDense returns m itself when it is a *Dense, otherwise a *Dense copy read
// through At. The copy path keeps every kernel on a single fast code path.
//
// Errors:
//   - ErrNilMatrix, ErrInvalidDimensions, wrapped At errors.
//
// Complexity:
//   - O(1) for *Dense, O(r*c) otherwise.
func asDense(m Matrix) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, err
	}
	if d, ok := m.(*Dense); ok {
		return d, nil
	}
	out, err := NewDense(m.Rows(), m.Cols())
	if err != nil {
		return nil, err
	}
	var (
		i, j int
		v    float64
	)
	for i = 0; i < out.r; i++ {
		for j = 0; j < out.c; j++ {
			if v, err = m.At(i, j); err != nil {
				return nil, err
			}
			out.data[i*out.c+j] = v
		}
	}

	return out, nil
}

// Mul computes the matrix product a*b.
//
// Implementation:
//   - Stage 1: ValidateMulCompatible(a, b).
//   - Stage 2: i→k→j loop order over flat slices (row-major friendly).
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (wrapped with "Mul").
//
// Complexity:
//   - Time O(r*n*c), Space O(r*c).
func Mul(a, b Matrix) (*Dense, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	ad, err := asDense(a)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	bd, err := asDense(b)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	out, err := NewDense(ad.r, bd.c)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}

	var (
		i, k, j int
		aik     float64
		n       = ad.c
		c       = bd.c
	)
	for i = 0; i < ad.r; i++ {
		for k = 0; k < n; k++ {
			aik = ad.data[i*n+k]
			if aik == 0 {
				continue
			}
			for j = 0; j < c; j++ {
				out.data[i*c+j] += aik * bd.data[k*c+j]
			}
		}
	}

	return out, nil
}

// Transpose returns mᵀ.
// Errors: ErrNilMatrix (wrapped with "Transpose").
// Complexity: Time O(r*c), Space O(r*c).
func Transpose(m Matrix) (*Dense, error) {
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	out, err := NewDense(d.c, d.r)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	var i, j int
	for i = 0; i < d.r; i++ {
		for j = 0; j < d.c; j++ {
			out.data[j*d.r+i] = d.data[i*d.c+j]
		}
	}

	return out, nil
}

// Scale returns alpha*m.
// Errors: ErrNilMatrix (wrapped with "Scale").
// Complexity: Time O(r*c), Space O(r*c).
func Scale(m Matrix, alpha float64) (*Dense, error) {
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	out := d.CloneDense()
	for i := range out.data {
		out.data[i] *= alpha
	}

	return out, nil
}

// MatVec returns y = m*x.
// Errors: ErrNilMatrix, ErrDimensionMismatch (wrapped with "MatVec").
// Complexity: Time O(r*c), Space O(r).
func MatVec(m Matrix, x []float64) ([]float64, error) {
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	if err = ValidateVecLen(x, d.c); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	y := make([]float64, d.r)
	var i, j int
	for i = 0; i < d.r; i++ {
		for j = 0; j < d.c; j++ {
			y[i] += d.data[i*d.c+j] * x[j]
		}
	}

	return y, nil
}

// QuadForm returns xᵀ m x for a square m.
// Errors: ErrNilMatrix, ErrDimensionMismatch (wrapped with "QuadForm").
// Complexity: Time O(n²).
func QuadForm(m Matrix, x []float64) (float64, error) {
	if err := ValidateSquare(m); err != nil {
		return 0, matrixErrorf(opQuadForm, err)
	}
	y, err := MatVec(m, x)
	if err != nil {
		return 0, matrixErrorf(opQuadForm, err)
	}
	var s float64
	for i := range x {
		s += x[i] * y[i]
	}

	return s, nil
}

// Symmetrize returns (m + mᵀ)/2 for a square m. Products such as S·B·S of
// symmetric factors are symmetric only up to round-off; Jacobi needs exact
// symmetry.
// Errors: ErrNilMatrix, ErrDimensionMismatch (wrapped with "Symmetrize").
// Complexity: Time O(n²).
func Symmetrize(m Matrix) (*Dense, error) {
	if err := ValidateSquare(m); err != nil {
		return nil, matrixErrorf(opSymmetrize, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opSymmetrize, err)
	}
	n := d.r
	out := d.CloneDense()
	var i, j int
	for i = 0; i < n; i++ {
		for j = i + 1; j < n; j++ {
			avg := 0.5 * (d.data[i*n+j] + d.data[j*n+i])
			out.data[i*n+j], out.data[j*n+i] = avg, avg
		}
	}

	return out, nil
}
