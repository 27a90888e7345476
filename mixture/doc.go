// Package mixture holds the parameters of a Gaussian finite mixture and the
// random generator that draws them.
//
// A Generator draws, from one injected math/rand/v2 source:
//
//   - mixing proportions from a flat Dirichlet lifted to a lower bound,
//   - centroids uniformly inside a hypercube,
//   - general covariances with bounded eccentricity, or spherical ones.
//
// Determinism: the same seed and the same sequence of calls produce identical
// parameters. Generators and sources are not goroutine-safe; derive one source
// per goroutine with DeriveSource.
//
// Example:
//
//	g := mixture.NewGenerator(mixture.NewSource(42))
//	mix, uniform, err := g.Mixture(mixture.Shape{K: 3, V: 2, Upper: 1, MaxEccentricity: 0.9})
package mixture
