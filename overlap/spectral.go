package overlap

import (
	"fmt"
	"math"

	"github.com/katalvlaran/mixsim/matrix"
	"github.com/katalvlaran/mixsim/mixture"
)

// PairParams are the spectral quantities of one ordered cluster pair (i,j).
//
// With W ~ N(0, I_v), a point of cluster i is classified into j iff
//
//	Σ_l λ_l (W_l + w_l)² − Σ_l W_l² < ρ + Σ_l log λ_l,
//
// where λ are the eigenvalues of Σ_i^{1/2} Σ_j^{-1} Σ_i^{1/2}, w is the
// whitened centroid difference rotated onto their eigenvectors and
// ρ = 2 log(π_j/π_i).
type PairParams struct {
	Lambda []float64
	W      []float64
	Rho    float64
}

// Spectral holds PairParams for every ordered pair of a k-cluster mixture.
// Pairs[i][i] is zero-valued.
type Spectral struct {
	K, V  int
	Pairs [][]PairParams
}

// Pair returns the parameters of the ordered pair (i,j).
func (s *Spectral) Pair(i, j int) (*PairParams, error) {
	if i < 0 || j < 0 || i >= s.K || j >= s.K || i == j {
		return nil, fmt.Errorf("Pair(%d,%d): %w", i, j, ErrBadPair)
	}

	return &s.Pairs[i][j], nil
}

// clusterFactors caches Σ^{1/2}, Σ^{-1/2} and Σ^{-1} of one cluster.
type clusterFactors struct {
	sqrt, invSqrt, inv *matrix.Dense
}

// Prepare computes the spectral parameters of every ordered pair.
//
// Implementation:
//   - Stage 1: validate shapes (k proportions, k×v centroids, k v×v covariances).
//   - Stage 2: per cluster, Σ^{1/2}, Σ^{-1/2} and Σ^{-1} from one eigen decomposition each.
//   - Stage 3: per ordered pair, eigen-decompose A = Σ_i^{1/2} Σ_j^{-1} Σ_i^{1/2}
//     and rotate Σ_i^{-1/2}(μ_i − μ_j) onto its eigenvectors.
//
// Errors:
//   - ErrBadInput on shape or proportion problems.
//   - matrix.ErrNotPositiveDefinite for singular covariances.
//
// Complexity:
//   - Time O(k²·v³), Space O(k²·v).
func Prepare(v, k int, proportions []float64, centroids matrix.Matrix, covariances []*matrix.Dense) (*Spectral, error) {
	if err := validateInput(v, k, proportions, centroids, covariances); err != nil {
		return nil, overlapErrorf("Prepare", err)
	}

	factors := make([]clusterFactors, k)
	var err error
	for i, s := range covariances {
		f := &factors[i]
		if f.sqrt, err = matrix.SqrtSym(s); err != nil {
			return nil, overlapErrorf("Prepare", fmt.Errorf("cluster %d: %w", i, err))
		}
		if f.invSqrt, err = matrix.InvSqrtSym(s); err != nil {
			return nil, overlapErrorf("Prepare", fmt.Errorf("cluster %d: %w", i, err))
		}
		if f.inv, err = matrix.InverseSym(s); err != nil {
			return nil, overlapErrorf("Prepare", fmt.Errorf("cluster %d: %w", i, err))
		}
	}

	means := make([][]float64, k)
	for i := range means {
		means[i] = make([]float64, v)
		for l := 0; l < v; l++ {
			means[i][l], _ = centroids.At(i, l) // shape validated above
		}
	}

	sp := &Spectral{K: k, V: v, Pairs: make([][]PairParams, k)}
	for i := 0; i < k; i++ {
		sp.Pairs[i] = make([]PairParams, k)
		for j := 0; j < k; j++ {
			if i == j {
				continue
			}
			pp, err := preparePair(factors[i], factors[j], means[i], means[j])
			if err != nil {
				return nil, overlapErrorf("Prepare", fmt.Errorf("pair (%d,%d): %w", i, j, err))
			}
			pp.Rho = 2 * math.Log(proportions[j]/proportions[i])
			sp.Pairs[i][j] = pp
		}
	}

	return sp, nil
}

// PrepareMixture is Prepare over the fields of m.
func PrepareMixture(m *mixture.Mixture) (*Spectral, error) {
	if m == nil {
		return nil, overlapErrorf("PrepareMixture", ErrBadInput)
	}

	return Prepare(m.V(), m.K(), m.Proportions, m.Centroids, m.Covariances)
}

func preparePair(fi, fj clusterFactors, mui, muj []float64) (PairParams, error) {
	left, err := matrix.Mul(fi.sqrt, fj.inv)
	if err != nil {
		return PairParams{}, err
	}
	A, err := matrix.Mul(left, fi.sqrt)
	if err != nil {
		return PairParams{}, err
	}
	if A, err = matrix.Symmetrize(A); err != nil {
		return PairParams{}, err
	}
	lambda, gamma, err := matrix.EigenSym(A)
	if err != nil {
		return PairParams{}, err
	}

	d := make([]float64, len(mui))
	for l := range d {
		d[l] = mui[l] - muj[l]
	}
	m, err := matrix.MatVec(fi.invSqrt, d)
	if err != nil {
		return PairParams{}, err
	}
	gt, err := matrix.Transpose(gamma)
	if err != nil {
		return PairParams{}, err
	}
	w, err := matrix.MatVec(gt, m)
	if err != nil {
		return PairParams{}, err
	}

	return PairParams{Lambda: lambda, W: w}, nil
}

func validateInput(v, k int, proportions []float64, centroids matrix.Matrix, covariances []*matrix.Dense) error {
	if k < 2 || v < 1 {
		return fmt.Errorf("k=%d v=%d: %w", k, v, ErrBadInput)
	}
	if len(proportions) != k || len(covariances) != k {
		return fmt.Errorf("%d proportions, %d covariances for k=%d: %w", len(proportions), len(covariances), k, ErrBadInput)
	}
	for i, p := range proportions {
		if !(p > 0) || math.IsInf(p, 0) {
			return fmt.Errorf("proportion[%d]=%g: %w", i, p, ErrBadInput)
		}
	}
	if err := matrix.ValidateNotNil(centroids); err != nil {
		return err
	}
	if centroids.Rows() != k || centroids.Cols() != v {
		return fmt.Errorf("centroids %d×%d, want %d×%d: %w", centroids.Rows(), centroids.Cols(), k, v, ErrBadInput)
	}
	for i, s := range covariances {
		if err := matrix.ValidateSquare(s); err != nil {
			return fmt.Errorf("covariance[%d]: %w", i, err)
		}
		if s.Rows() != v {
			return fmt.Errorf("covariance[%d] is %d×%d, want %d×%d: %w", i, s.Rows(), s.Rows(), v, v, ErrBadInput)
		}
	}

	return nil
}
