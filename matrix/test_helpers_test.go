// SPDX-License-Identifier: MIT
// Package matrix_test contains test helpers
//
// Purpose:
//   - Provide small, deterministic test fixtures and utilities for kernels.
//   - Keep all data finite and well-formed to avoid numeric-policy interference.

package matrix_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/mixsim/matrix"
	"github.com/stretchr/testify/require"
)

// hide wraps any Matrix to hide its concrete type from type assertions,
// forcing kernels onto their non-*Dense copy path.
type hide struct{ matrix.Matrix }

// MustDense allocates an r×c *Dense or fails the test.
func MustDense(t *testing.T, r, c int) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDense(r, c)
	require.NoError(t, err)

	return m
}

// NewFilledDense allocates an r×c *Dense from row-major vals or fails the test.
func NewFilledDense(t *testing.T, r, c int, vals []float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFrom(r, c, vals)
	require.NoError(t, err)

	return m
}

// MustAt reads m[i,j] or fails the test.
func MustAt(t *testing.T, m matrix.Matrix, i, j int) float64 {
	t.Helper()
	v, err := m.At(i, j)
	require.NoError(t, err)

	return v
}

// MustSet writes m[i,j] or fails the test.
func MustSet(t *testing.T, m matrix.Matrix, i, j int, v float64) {
	t.Helper()
	require.NoError(t, m.Set(i, j, v))
}

// requireAllClose asserts |a[i,j]-b[i,j]| ≤ tol for all entries.
func requireAllClose(t *testing.T, a, b matrix.Matrix, tol float64) {
	t.Helper()
	require.Equal(t, a.Rows(), b.Rows(), "rows")
	require.Equal(t, a.Cols(), b.Cols(), "cols")
	for i := 0; i < a.Rows(); i++ {
		for j := 0; j < a.Cols(); j++ {
			av, bv := MustAt(t, a, i, j), MustAt(t, b, i, j)
			require.LessOrEqualf(t, math.Abs(av-bv), tol, "entry (%d,%d): %g vs %g", i, j, av, bv)
		}
	}
}

// propOrthonormal asserts QᵀQ ≈ I.
func propOrthonormal(t *testing.T, Q matrix.Matrix, tol float64) {
	t.Helper()
	Qt, err := matrix.Transpose(Q)
	require.NoError(t, err)
	QtQ, err := matrix.Mul(Qt, Q)
	require.NoError(t, err)
	I, err := matrix.Identity(Q.Rows())
	require.NoError(t, err)
	requireAllClose(t, QtQ, I, tol)
}

// propEigenEquation asserts A·q_k ≈ λ_k·q_k for every column k of Q.
func propEigenEquation(t *testing.T, A, Q matrix.Matrix, vals []float64, tol float64) {
	t.Helper()
	n := A.Rows()
	for k := 0; k < n; k++ {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = MustAt(t, Q, i, k)
		}
		Aq, err := matrix.MatVec(A, col)
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			require.InDeltaf(t, vals[k]*col[i], Aq[i], tol, "eigenpair %d row %d", k, i)
		}
	}
}
