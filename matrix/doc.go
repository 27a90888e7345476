// Package matrix offers the dense linear algebra used by the mixture
// generator and the overlap evaluator.
//
// The matrix package provides:
//
//   - Dense, a row-major float64 matrix with bounds-checked accessors.
//   - Kernels: Mul, Transpose, Scale, MatVec, Outer accumulation.
//   - Eigen: Jacobi eigen decomposition of symmetric matrices.
//   - Symmetric matrix functions built on Eigen: FromEigen, SqrtSym,
//     InvSqrtSym, InverseSym.
//   - Covariance: sample covariance of row observations.
//   - Validators shared by every kernel (nil, shape, symmetry, finiteness).
//
// Matrices here are small (v×v with v the data dimension), so the kernels
// favour determinism and clarity over blocking or BLAS bindings.
//
// See example_test.go for usage patterns.
package matrix
