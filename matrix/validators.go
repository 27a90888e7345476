// SPDX-License-Identifier: MIT
// Package matrix - shared validators.
//
// Every kernel validates through these helpers so that the error priority
// (nil -> shape -> symmetry) stays identical across the package.

package matrix

import (
	"fmt"
	"math"
)

// zeroTol is the smallest tolerance accepted by symmetry checks.
const zeroTol = 0.0

// validatorErrorf wraps err with the validator name.
func validatorErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// isNilMatrix reports whether m is nil, including a typed nil *Dense.
func isNilMatrix(m Matrix) bool {
	if m == nil {
		return true
	}
	if d, ok := m.(*Dense); ok && d == nil {
		return true
	}

	return false
}

// ValidateNotNil returns ErrNilMatrix if m is nil.
// Complexity: O(1).
func ValidateNotNil(m Matrix) error {
	if isNilMatrix(m) {
		return validatorErrorf("ValidateNotNil", ErrNilMatrix)
	}

	return nil
}

// ValidateSquare returns ErrDimensionMismatch if m is not square.
// Complexity: O(1).
func ValidateSquare(m Matrix) error {
	if err := ValidateNotNil(m); err != nil {
		return err
	}
	if m.Rows() != m.Cols() {
		return validatorErrorf("ValidateSquare", ErrDimensionMismatch)
	}

	return nil
}

// ValidateMulCompatible checks a.Cols() == b.Rows() for a product a*b.
// Complexity: O(1).
func ValidateMulCompatible(a, b Matrix) error {
	if isNilMatrix(a) || isNilMatrix(b) {
		return validatorErrorf("ValidateMulCompatible", ErrNilMatrix)
	}
	if a.Cols() != b.Rows() {
		return validatorErrorf("ValidateMulCompatible", ErrDimensionMismatch)
	}

	return nil
}

// ValidateVecLen checks len(x) == n.
// Complexity: O(1).
func ValidateVecLen(x []float64, n int) error {
	if len(x) != n {
		return validatorErrorf("ValidateVecLen", ErrDimensionMismatch)
	}

	return nil
}

// ValidateSymmetric checks A is symmetric within tolerance tol:
// |A[i,j] - A[j,i]| ≤ tol for all i<j.
//
// Returns ErrNilMatrix/ErrDimensionMismatch on structural issues, ErrNaNInf on
// a bad tol or a non-finite entry, ErrAsymmetry on violation.
// Complexity: O(n²).
func ValidateSymmetric(m Matrix, tol float64) error {
	if err := ValidateSquare(m); err != nil {
		return validatorErrorf("ValidateSymmetric", err)
	}
	if math.IsNaN(tol) || math.IsInf(tol, 0) {
		return validatorErrorf("ValidateSymmetric", ErrNaNInf)
	}
	if tol < zeroTol {
		tol = -tol
	}

	n := m.Rows()
	var (
		i, j     int
		aij, aji float64
	)
	for i = 0; i < n; i++ {
		for j = i; j < n; j++ {
			aij, _ = m.At(i, j) // shape validated above
			aji, _ = m.At(j, i)
			if math.IsNaN(aij) || math.IsInf(aij, 0) || math.IsNaN(aji) || math.IsInf(aji, 0) {
				return validatorErrorf("ValidateSymmetric", ErrNaNInf)
			}
			if math.Abs(aij-aji) > tol {
				return validatorErrorf("ValidateSymmetric", ErrAsymmetry)
			}
		}
	}

	return nil
}

// MaxAbs returns max |A[i,j]|; 0 for a nil matrix.
// Complexity: O(r*c).
func MaxAbs(m Matrix) float64 {
	if isNilMatrix(m) {
		return 0
	}
	var best float64
	if d, ok := m.(*Dense); ok {
		for _, v := range d.data {
			if a := math.Abs(v); a > best {
				best = a
			}
		}

		return best
	}
	for i := 0; i < m.Rows(); i++ {
		for j := 0; j < m.Cols(); j++ {
			v, _ := m.At(i, j)
			if a := math.Abs(v); a > best {
				best = a
			}
		}
	}

	return best
}
