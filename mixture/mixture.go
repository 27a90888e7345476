package mixture

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/mixsim/matrix"
)

// Sentinel errors returned by the mixture package.
var (
	// ErrBadK indicates a cluster count below the operation's minimum.
	ErrBadK = errors.New("mixture: cluster count must be positive")

	// ErrBadV indicates a dimension below 1.
	ErrBadV = errors.New("mixture: dimension must be >= 1")

	// ErrBadBounds indicates a hypercube with lower >= upper or non-finite bounds.
	ErrBadBounds = errors.New("mixture: hypercube bounds require lower < upper")

	// ErrBadEccentricity indicates a maximum eccentricity outside (0,1].
	ErrBadEccentricity = errors.New("mixture: eccentricity must be in (0,1]")

	// ErrMalformed indicates a Mixture whose parts disagree in shape or
	// violate the proportion/covariance invariants.
	ErrMalformed = errors.New("mixture: malformed mixture")
)

// proportionTol is the tolerance for "proportions sum to 1".
const proportionTol = 1e-9

// Mixture holds the parameters of a k-component Gaussian mixture in v dimensions.
//
// Fields:
//   - Proportions: k positive mixing proportions summing to 1.
//   - Centroids:   k×v matrix; row i is the mean of cluster i.
//   - Covariances: k symmetric positive definite v×v matrices.
//
// A Mixture is created fresh for each resampling attempt and is never shared
// between attempts; rescaling returns a new value (see ScaleCovariances).
type Mixture struct {
	Proportions []float64
	Centroids   *matrix.Dense
	Covariances []*matrix.Dense
}

// K returns the number of clusters.
func (m *Mixture) K() int { return len(m.Proportions) }

// V returns the dimension (0 when centroids are missing).
func (m *Mixture) V() int {
	if m.Centroids == nil {
		return 0
	}

	return m.Centroids.Cols()
}

// Clone returns a deep copy.
func (m *Mixture) Clone() *Mixture {
	out := &Mixture{
		Proportions: append([]float64(nil), m.Proportions...),
		Covariances: make([]*matrix.Dense, len(m.Covariances)),
	}
	if m.Centroids != nil {
		out.Centroids = m.Centroids.CloneDense()
	}
	for i, s := range m.Covariances {
		out.Covariances[i] = s.CloneDense()
	}

	return out
}

// Validate checks shape agreement, proportions (positive, sum to 1) and
// covariance symmetry. Positive definiteness is left to the consumers that
// factorize the matrices.
func (m *Mixture) Validate() error {
	k := m.K()
	if k < 1 {
		return fmt.Errorf("Validate: %w", ErrBadK)
	}
	if m.Centroids == nil || m.Centroids.Rows() != k {
		return fmt.Errorf("Validate: centroids must be %d×v: %w", k, ErrMalformed)
	}
	if len(m.Covariances) != k {
		return fmt.Errorf("Validate: %d covariances for %d clusters: %w", len(m.Covariances), k, ErrMalformed)
	}
	v := m.V()
	var sum float64
	for i, p := range m.Proportions {
		if !(p > 0) || math.IsInf(p, 0) {
			return fmt.Errorf("Validate: proportion[%d]=%g: %w", i, p, ErrMalformed)
		}
		sum += p
	}
	if math.Abs(sum-1) > proportionTol {
		return fmt.Errorf("Validate: proportions sum to %g: %w", sum, ErrMalformed)
	}
	for i, s := range m.Covariances {
		if s == nil || s.Rows() != v || s.Cols() != v {
			return fmt.Errorf("Validate: covariance[%d] must be %d×%d: %w", i, v, v, ErrMalformed)
		}
		if err := matrix.ValidateSymmetric(s, 1e-9*math.Max(1, matrix.MaxAbs(s))); err != nil {
			return fmt.Errorf("Validate: covariance[%d]: %w", i, err)
		}
	}

	return nil
}

// ScaleCovariances returns a copy of m whose covariance i is multiplied by c
// unless fixed[i] is set. fixed may be nil (scale everything).
func (m *Mixture) ScaleCovariances(c float64, fixed []bool) (*Mixture, error) {
	if fixed != nil && len(fixed) != m.K() {
		return nil, fmt.Errorf("ScaleCovariances: mask length %d for %d clusters: %w", len(fixed), m.K(), ErrMalformed)
	}
	out := m.Clone()
	for i, s := range m.Covariances {
		if fixed != nil && fixed[i] {
			continue
		}
		scaled, err := matrix.Scale(s, c)
		if err != nil {
			return nil, fmt.Errorf("ScaleCovariances: %w", err)
		}
		out.Covariances[i] = scaled
	}

	return out, nil
}
