// SPDX-License-Identifier: MIT
package matrix_test

import (
	"sort"
	"testing"

	"github.com/katalvlaran/mixsim/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEigen_Errors covers the sentinel priority: shape -> symmetry -> convergence.
func TestEigen_Errors(t *testing.T) {
	t.Parallel()

	var err error
	// non-square → ErrDimensionMismatch
	ns := MustDense(t, 3, 4)
	_, _, err = matrix.Eigen(ns, 1e-10, 50)
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)

	// not symmetric within tol → ErrAsymmetry
	asym := MustDense(t, 3, 3)
	MustSet(t, asym, 0, 1, 1)
	MustSet(t, asym, 1, 0, 2)
	_, _, err = matrix.Eigen(asym, 1e-12, 50)
	assert.ErrorIs(t, err, matrix.ErrAsymmetry)

	// zero iterations with nonzero off-diagonals → ErrMatrixEigenFailed
	sym := NewFilledDense(t, 3, 3, []float64{2, 1, 0, 1, 3, 0, 0, 0, 4})
	_, _, err = matrix.Eigen(sym, 1e-12, 0)
	assert.ErrorIs(t, err, matrix.ErrMatrixEigenFailed)

	// nil → ErrNilMatrix
	_, _, err = matrix.Eigen(nil, 1e-12, 10)
	assert.ErrorIs(t, err, matrix.ErrNilMatrix)
}

// TestEigen_Diagonal_NoRotation: diagonal matrices return the diagonal and Q=I.
func TestEigen_Diagonal_NoRotation(t *testing.T) {
	t.Parallel()

	diagVals := []float64{1, -2, 5, 3}
	A, err := matrix.Diagonal(diagVals)
	require.NoError(t, err)

	vals, Q, err := matrix.Eigen(A, 1e-12, 10)
	require.NoError(t, err)
	assert.Equal(t, diagVals, vals)

	I, err := matrix.Identity(4)
	require.NoError(t, err)
	requireAllClose(t, Q, I, 0)
}

// TestEigen_2x2_Analytic: [[2,1],[1,2]] has eigenvalues {1,3}.
func TestEigen_2x2_Analytic(t *testing.T) {
	t.Parallel()

	A := NewFilledDense(t, 2, 2, []float64{2, 1, 1, 2})
	vals, Q, err := matrix.Eigen(A, 1e-12, 50)
	require.NoError(t, err)

	got := append([]float64(nil), vals...)
	sort.Float64s(got)
	assert.InDelta(t, 1.0, got[0], 1e-10)
	assert.InDelta(t, 3.0, got[1], 1e-10)

	propOrthonormal(t, Q, 1e-10)
	propEigenEquation(t, A, Q, vals, 1e-10)
}

// TestEigen_FallbackPath: a non-*Dense operand gives the same spectrum.
func TestEigen_FallbackPath(t *testing.T) {
	t.Parallel()

	A := NewFilledDense(t, 3, 3, []float64{4, 1, 2, 1, 3, 0.5, 2, 0.5, 5})
	fast, _, err := matrix.EigenSym(A)
	require.NoError(t, err)
	slow, _, err := matrix.EigenSym(hide{A})
	require.NoError(t, err)
	assert.Equal(t, fast, slow)
}

// TestEigen_ScaleInvariantConvergence: the relative threshold converges for
// large and tiny magnitudes alike.
func TestEigen_ScaleInvariantConvergence(t *testing.T) {
	t.Parallel()

	base := []float64{4, 1, 2, 1, 3, 0.5, 2, 0.5, 5}
	for _, alpha := range []float64{1e-9, 1, 1e6} {
		A, err := matrix.Scale(NewFilledDense(t, 3, 3, base), alpha)
		require.NoError(t, err)
		vals, Q, err := matrix.EigenSym(A)
		require.NoErrorf(t, err, "alpha=%g", alpha)
		propEigenEquation(t, A, Q, vals, 1e-9*alpha)
	}
}

// TestFromEigen_RoundTrip: Q·diag(λ)·Qᵀ reproduces A exactly symmetric.
func TestFromEigen_RoundTrip(t *testing.T) {
	t.Parallel()

	A := NewFilledDense(t, 3, 3, []float64{4, 1, 2, 1, 3, 0.5, 2, 0.5, 5})
	vals, Q, err := matrix.EigenSym(A)
	require.NoError(t, err)
	B, err := matrix.FromEigen(vals, Q)
	require.NoError(t, err)
	requireAllClose(t, A, B, 1e-10)
	require.NoError(t, matrix.ValidateSymmetric(B, 0))

	_, err = matrix.FromEigen([]float64{1}, Q)
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

// TestSymmetricFunctions checks S·S = A, A^{-1/2}·A·A^{-1/2} = I and A·A^{-1} = I.
func TestSymmetricFunctions(t *testing.T) {
	t.Parallel()

	A := NewFilledDense(t, 3, 3, []float64{4, 1, 2, 1, 3, 0.5, 2, 0.5, 5})
	I, err := matrix.Identity(3)
	require.NoError(t, err)

	S, err := matrix.SqrtSym(A)
	require.NoError(t, err)
	SS, err := matrix.Mul(S, S)
	require.NoError(t, err)
	requireAllClose(t, SS, A, 1e-10)

	R, err := matrix.InvSqrtSym(A)
	require.NoError(t, err)
	RA, err := matrix.Mul(R, A)
	require.NoError(t, err)
	RAR, err := matrix.Mul(RA, R)
	require.NoError(t, err)
	requireAllClose(t, RAR, I, 1e-10)

	Inv, err := matrix.InverseSym(A)
	require.NoError(t, err)
	AInv, err := matrix.Mul(A, Inv)
	require.NoError(t, err)
	requireAllClose(t, AInv, I, 1e-10)

	// singular input
	Z := NewFilledDense(t, 2, 2, []float64{1, 1, 1, 1})
	_, err = matrix.InverseSym(Z)
	assert.ErrorIs(t, err, matrix.ErrNotPositiveDefinite)
}
