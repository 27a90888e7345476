// SPDX-License-Identifier: MIT
// Package matrix - column statistics over row observations.

package matrix

// ColumnMeans returns the mean of every column of X (rows are observations).
// Errors: ErrNilMatrix.
// Complexity: O(r*c).
func ColumnMeans(X Matrix) ([]float64, error) {
	d, err := asDense(X)
	if err != nil {
		return nil, matrixErrorf(opCov, err)
	}
	means := make([]float64, d.c)
	var i, j int
	for i = 0; i < d.r; i++ {
		for j = 0; j < d.c; j++ {
			means[j] += d.data[i*d.c+j]
		}
	}
	for j = range means {
		means[j] /= float64(d.r)
	}

	return means, nil
}

// Covariance computes the sample covariance of the columns of X:
// Cov = Σ_k (x_k − x̄)(x_k − x̄)ᵀ / (r − 1).
//
// Behavior highlights:
//   - Symmetric output (upper triangle mirrored); diagonal holds column variances.
//   - PSD on finite data, positive definite almost surely when r > c for
//     continuous draws.
//
// Inputs:
//   - X: Matrix (r×c), r>=2.
//
// Returns:
//   - *Dense: covariance (c×c).
//   - []float64: column means used for centering.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (r<2).
//
// Determinism:
//   - Fixed k→i→j accumulation order.
//
// Complexity:
//   - Time O(r*c²), Space O(c²).
func Covariance(X Matrix) (*Dense, []float64, error) {
	d, err := asDense(X)
	if err != nil {
		return nil, nil, matrixErrorf(opCov, err)
	}
	if d.r < 2 {
		return nil, nil, matrixErrorf(opCov, ErrDimensionMismatch)
	}
	means, err := ColumnMeans(d)
	if err != nil {
		return nil, nil, err
	}

	c := d.c
	cov, err := NewDense(c, c)
	if err != nil {
		return nil, nil, matrixErrorf(opCov, err)
	}
	centered := make([]float64, c)
	var k, i, j int
	for k = 0; k < d.r; k++ {
		for j = 0; j < c; j++ {
			centered[j] = d.data[k*c+j] - means[j]
		}
		for i = 0; i < c; i++ {
			for j = i; j < c; j++ {
				cov.data[i*c+j] += centered[i] * centered[j]
			}
		}
	}
	inv := 1.0 / float64(d.r-1)
	for i = 0; i < c; i++ {
		for j = i; j < c; j++ {
			cov.data[i*c+j] *= inv
			cov.data[j*c+i] = cov.data[i*c+j]
		}
	}

	return cov, means, nil
}
