package overlap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/mixsim/mixture"
)

// Defaults for Query fields left at zero.
const (
	DefaultTolerance = 1e-6
	DefaultLimit     = 1_000_000
)

// unitEigenTol: eigenvalues within this distance of 1 contribute a normal
// term instead of a degenerate χ² term.
const unitEigenTol = 1e-8

// Query selects how a spectral decomposition is evaluated.
type Query struct {
	// Scale multiplies every covariance whose Fixed entry is false.
	Scale float64
	// Fixed marks clusters kept at their prepared covariance; nil means none.
	Fixed []bool
	// Asymptotic evaluates the limit of unbounded spread: location terms
	// vanish and Scale/Fixed are ignored.
	Asymptotic bool
	// Tolerance is the absolute accuracy of each probability (DefaultTolerance if 0).
	Tolerance float64
	// Limit bounds the integration terms per probability (DefaultLimit if 0).
	Limit int
}

func (q Query) tolerance() float64 {
	if q.Tolerance > 0 {
		return q.Tolerance
	}
	return DefaultTolerance
}

func (q Query) limit() int {
	if q.Limit > 0 {
		return q.Limit
	}
	return DefaultLimit
}

func (q Query) scaleOf(l int) float64 {
	if q.Fixed != nil && q.Fixed[l] {
		return 1
	}
	return q.Scale
}

// Exact evaluates misclassification probabilities through the distribution
// of a weighted sum of noncentral χ² variables plus a normal term (QF).
// The zero value is ready to use.
type Exact struct{}

// Evaluate returns the full overlap map of sp under query q.
func (e Exact) Evaluate(sp *Spectral, q Query) (*Map, error) {
	if err := checkQuery(sp, q); err != nil {
		return nil, overlapErrorf("Evaluate", err)
	}
	m, err := NewMap(sp.K)
	if err != nil {
		return nil, err
	}
	for i := 0; i < sp.K; i++ {
		row := m.Omega.RawRowView(i)
		for j := 0; j < sp.K; j++ {
			if i == j {
				continue
			}
			if row[j], err = e.pair(sp, i, j, q); err != nil {
				return nil, overlapErrorf("Evaluate", fmt.Errorf("pair (%d,%d): %w", i, j, err))
			}
		}
	}
	m.Summarize()

	return m, nil
}

// EvaluatePair returns Omega(i,j) + Omega(j,i) under query q.
func (e Exact) EvaluatePair(sp *Spectral, i, j int, q Query) (float64, error) {
	if err := checkQuery(sp, q); err != nil {
		return 0, overlapErrorf("EvaluatePair", err)
	}
	if i < 0 || j < 0 || i >= sp.K || j >= sp.K || i == j {
		return 0, overlapErrorf("EvaluatePair", fmt.Errorf("(%d,%d): %w", i, j, ErrBadPair))
	}
	ij, err := e.pair(sp, i, j, q)
	if err != nil {
		return 0, overlapErrorf("EvaluatePair", err)
	}
	ji, err := e.pair(sp, j, i, q)
	if err != nil {
		return 0, overlapErrorf("EvaluatePair", err)
	}

	return ij + ji, nil
}

// pair computes Omega(i,j): the probability that
//
//	Σ_{λ'≠1} (λ'−1)·χ²(1, (λ'w'/(λ'−1))²) + Σ_{λ'≈1} 2λ'w'·Z < x,
//	x = ρ + Σ log λ' + Σ_{λ'≠1} λ'w'²/(λ'−1) − Σ_{λ'≈1} λ'w'²,
//
// with λ' = λ·s_i/s_j and w' = w/√s_i for the query scales s.
func (e Exact) pair(sp *Spectral, i, j int, q Query) (float64, error) {
	pp := &sp.Pairs[i][j]
	ratio, rootI := 1.0, 1.0
	if !q.Asymptotic {
		si, sj := q.scaleOf(i), q.scaleOf(j)
		ratio = si / sj
		rootI = math.Sqrt(si)
	}

	terms := make([]Term, 0, len(pp.Lambda))
	x := pp.Rho
	var sigsq float64
	for l, lambda := range pp.Lambda {
		lam := lambda * ratio
		w := 0.0
		if !q.Asymptotic {
			w = pp.W[l] / rootI
		}
		x += math.Log(lam)
		if math.Abs(lam-1) > unitEigenTol {
			shift := lam * w / (lam - 1)
			terms = append(terms, Term{Lambda: lam - 1, DoF: 1, NC: shift * shift})
			x += lam * w * w / (lam - 1)
			continue
		}
		sigsq += 4 * lam * lam * w * w
		x -= lam * w * w
	}
	sigma := math.Sqrt(sigsq)

	if len(terms) == 0 {
		return normalStep(x, sigma), nil
	}

	return QF(terms, sigma, x, q.tolerance(), q.limit())
}

// normalStep is P(σZ < x); a zero σ degenerates to a step with value 1/2 at x = 0.
func normalStep(x, sigma float64) float64 {
	if sigma > 0 {
		return distuv.UnitNormal.CDF(x / sigma)
	}
	switch {
	case x > 0:
		return 1
	case x < 0:
		return 0
	default:
		return 0.5
	}
}

func checkQuery(sp *Spectral, q Query) error {
	if sp == nil || sp.K < 2 || len(sp.Pairs) != sp.K {
		return ErrBadInput
	}
	if q.Fixed != nil && len(q.Fixed) != sp.K {
		return fmt.Errorf("fixed mask length %d for k=%d: %w", len(q.Fixed), sp.K, ErrBadInput)
	}
	if !q.Asymptotic && (!(q.Scale > 0) || math.IsInf(q.Scale, 0)) {
		return fmt.Errorf("scale=%g: %w", q.Scale, ErrBadScale)
	}

	return nil
}

// Compute returns the overlap map of a given mixture at its own covariances.
// tol and lim follow the Query conventions (0 selects the defaults).
func Compute(m *mixture.Mixture, tol float64, lim int) (*Map, error) {
	sp, err := PrepareMixture(m)
	if err != nil {
		return nil, overlapErrorf("Compute", err)
	}

	return Exact{}.Evaluate(sp, Query{Scale: 1, Tolerance: tol, Limit: lim})
}
