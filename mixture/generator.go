package mixture

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/mixsim/matrix"
)

// Generator draws random mixture parameters from a single injected source.
// It is not safe for concurrent use.
type Generator struct {
	src     rand.Source
	gamma   distuv.Gamma
	normal  distuv.Normal
	unitUni distuv.Uniform
}

// NewGenerator binds the gonum distributions to src. A nil src is replaced by
// NewSource(0).
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = NewSource(0)
	}

	return &Generator{
		src:     src,
		gamma:   distuv.Gamma{Alpha: 1, Beta: 1, Src: src},
		normal:  distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		unitUni: distuv.Uniform{Min: 0, Max: 1, Src: src},
	}
}

// Shape describes one candidate mixture to draw.
type Shape struct {
	K, V            int
	MinProportion   float64
	Lower, Upper    float64
	Spherical       bool
	Homogeneous     bool
	MaxEccentricity float64
}

// Proportions draws k mixing proportions from a flat Dirichlet, then lifts
// every component to at least lower:
//
//	p_i = lower + g_i/Σg · (1 − k·lower),  g_i ~ Gamma(1, 1).
//
// When lower is outside [0,1) or a transformed value still falls below lower
// (k·lower > 1) the result is the uniform vector 1/k and the second return is
// true. That case is a degraded outcome, not an error.
func (g *Generator) Proportions(k int, lower float64) ([]float64, bool, error) {
	if k < 1 {
		return nil, false, fmt.Errorf("Proportions: k=%d: %w", k, ErrBadK)
	}
	if !(lower >= 0 && lower < 1) {
		return uniform(k), true, nil
	}

	p := make([]float64, k)
	for i := range p {
		p[i] = g.gamma.Rand()
	}
	sum := floats.Sum(p)
	if !(sum > 0) {
		return uniform(k), true, nil
	}
	floats.Scale((1-float64(k)*lower)/sum, p)
	floats.AddConst(lower, p)
	for _, x := range p {
		if x < lower {
			return uniform(k), true, nil
		}
	}

	return p, false, nil
}

func uniform(k int) []float64 {
	p := make([]float64, k)
	for i := range p {
		p[i] = 1 / float64(k)
	}

	return p
}

// Centroids draws a k×v matrix of means, every entry Uniform[lower, upper].
func (g *Generator) Centroids(v, k int, lower, upper float64) (*matrix.Dense, error) {
	if k < 1 {
		return nil, fmt.Errorf("Centroids: k=%d: %w", k, ErrBadK)
	}
	if v < 1 {
		return nil, fmt.Errorf("Centroids: v=%d: %w", v, ErrBadV)
	}
	if !(lower < upper) || math.IsInf(lower, 0) || math.IsInf(upper, 0) {
		return nil, fmt.Errorf("Centroids: [%g,%g]: %w", lower, upper, ErrBadBounds)
	}

	u := distuv.Uniform{Min: lower, Max: upper, Src: g.src}
	vals := make([]float64, k*v)
	for i := range vals {
		vals[i] = u.Rand()
	}

	return matrix.NewDenseFrom(k, v, vals)
}

// Covariances draws k v×v covariance matrices with eccentricity at most maxEcc.
//
// Implementation:
//   - Stage 1: v+1 standard normal vectors; sample covariance with divisor v.
//   - Stage 2: Jacobi eigen decomposition; e = sqrt(1 − λmin/λmax).
//   - Stage 3: if e > maxEcc, eigenvalues are pulled towards λmax so that
//     λmin' = λmax(1 − maxEcc²), keeping the eigenvectors.
//
// Homogeneous mode draws one matrix and returns k deep copies of it.
func (g *Generator) Covariances(v, k int, maxEcc float64, homogeneous bool) ([]*matrix.Dense, error) {
	if k < 1 {
		return nil, fmt.Errorf("Covariances: k=%d: %w", k, ErrBadK)
	}
	if v < 1 {
		return nil, fmt.Errorf("Covariances: v=%d: %w", v, ErrBadV)
	}
	if !(maxEcc > 0 && maxEcc <= 1) {
		return nil, fmt.Errorf("Covariances: ecc=%g: %w", maxEcc, ErrBadEccentricity)
	}

	out := make([]*matrix.Dense, k)
	n := k
	if homogeneous {
		n = 1
	}
	for i := 0; i < n; i++ {
		s, err := g.covariance(v, maxEcc)
		if err != nil {
			return nil, fmt.Errorf("Covariances: %w", err)
		}
		out[i] = s
	}
	if homogeneous {
		for i := 1; i < k; i++ {
			out[i] = out[0].CloneDense()
		}
	}

	return out, nil
}

func (g *Generator) covariance(v int, maxEcc float64) (*matrix.Dense, error) {
	obs := make([]float64, (v+1)*v)
	for i := range obs {
		obs[i] = g.normal.Rand()
	}
	X, err := matrix.NewDenseFrom(v+1, v, obs)
	if err != nil {
		return nil, err
	}
	cov, _, err := matrix.Covariance(X)
	if err != nil {
		return nil, err
	}
	// v+1 rows, so the (r−1) divisor is v. A 1×1 matrix has eccentricity 0.
	if v == 1 {
		return cov, nil
	}

	vals, Q, err := matrix.EigenSym(cov)
	if err != nil {
		return nil, err
	}
	lmin, lmax := floats.Min(vals), floats.Max(vals)
	if eccentricity(lmin, lmax) <= maxEcc {
		return cov, nil
	}

	target := lmax * (1 - maxEcc*maxEcc)
	span := lmax - lmin
	for i, l := range vals {
		vals[i] = lmax - (lmax-l)*(lmax-target)/span
	}

	return matrix.FromEigen(vals, Q)
}

// SphericalCovariances returns k matrices s·I, s ~ Uniform(0,1]. Homogeneous
// mode shares one s.
func (g *Generator) SphericalCovariances(v, k int, homogeneous bool) ([]*matrix.Dense, error) {
	if k < 1 {
		return nil, fmt.Errorf("SphericalCovariances: k=%d: %w", k, ErrBadK)
	}
	if v < 1 {
		return nil, fmt.Errorf("SphericalCovariances: v=%d: %w", v, ErrBadV)
	}

	out := make([]*matrix.Dense, k)
	var s float64
	for i := range out {
		if i == 0 || !homogeneous {
			s = g.positiveUnit()
		}
		id, err := matrix.Identity(v)
		if err != nil {
			return nil, fmt.Errorf("SphericalCovariances: %w", err)
		}
		sc, err := matrix.Scale(id, s)
		if err != nil {
			return nil, fmt.Errorf("SphericalCovariances: %w", err)
		}
		out[i] = sc
	}

	return out, nil
}

// positiveUnit draws from Uniform(0,1], redrawing exact zeros.
func (g *Generator) positiveUnit() float64 {
	for {
		if s := g.unitUni.Rand(); s > 0 {
			return s
		}
	}
}

// Mixture draws one candidate mixture of the given shape. The boolean reports
// the uniform proportion fallback.
func (g *Generator) Mixture(s Shape) (*Mixture, bool, error) {
	pi, fallback, err := g.Proportions(s.K, s.MinProportion)
	if err != nil {
		return nil, false, err
	}
	mu, err := g.Centroids(s.V, s.K, s.Lower, s.Upper)
	if err != nil {
		return nil, false, err
	}
	var covs []*matrix.Dense
	if s.Spherical {
		covs, err = g.SphericalCovariances(s.V, s.K, s.Homogeneous)
	} else {
		covs, err = g.Covariances(s.V, s.K, s.MaxEccentricity, s.Homogeneous)
	}
	if err != nil {
		return nil, false, err
	}

	return &Mixture{Proportions: pi, Centroids: mu, Covariances: covs}, fallback, nil
}

// Eccentricity returns sqrt(1 − λmin/λmax) of a symmetric matrix. Negative
// round-off in λmin is treated as 0; a zero matrix has eccentricity 0.
func Eccentricity(S matrix.Matrix) (float64, error) {
	vals, _, err := matrix.EigenSym(S)
	if err != nil {
		return 0, fmt.Errorf("Eccentricity: %w", err)
	}

	return eccentricity(floats.Min(vals), floats.Max(vals)), nil
}

func eccentricity(lmin, lmax float64) float64 {
	if !(lmax > 0) {
		return 0
	}
	if lmin < 0 {
		lmin = 0
	}

	return math.Sqrt(1 - lmin/lmax)
}
