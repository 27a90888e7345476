package calibrate

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/mixsim/overlap"
)

// Evaluator computes overlaps of a prepared mixture. overlap.Exact is the
// default implementation.
type Evaluator interface {
	Evaluate(sp *overlap.Spectral, q overlap.Query) (*overlap.Map, error)
	EvaluatePair(sp *overlap.Spectral, i, j int, q overlap.Query) (float64, error)
}

// Method selects the statistic a root search drives to its target.
type Method int

const (
	// Average drives the average pairwise overlap.
	Average Method = iota
	// Maximum drives the maximum pairwise overlap.
	Maximum
	// Pair drives the overlap of one fixed cluster pair.
	Pair
)

func (m Method) String() string {
	switch m {
	case Average:
		return "average"
	case Maximum:
		return "maximum"
	case Pair:
		return "pair"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// Outcome of one root search.
type Outcome int

const (
	NotConverged Outcome = iota
	Converged
)

func (o Outcome) String() string {
	if o == Converged {
		return "converged"
	}
	return "not converged"
}

// maxBisections caps the iterations of one root search.
const maxBisections = 1000

// Search describes one root search for the covariance scale.
type Search struct {
	Target    float64
	Method    Method
	Pair      [2]int // used by Method == Pair
	Fixed     []bool // clusters left unscaled; nil for none
	Tolerance float64
	Limit     int
}

// State reports a finished root search. C is 0 unless Outcome is Converged.
type State struct {
	C            float64
	Lower, Upper float64
	Realized     float64 // statistic at the last evaluated scale
	Diff         float64 // Realized − Target
	Iterations   int
	Outcome      Outcome
}

// FindScale bisects [lower, upper] for the scale c at which the statistic
// selected by s equals s.Target within s.Tolerance. The statistic is assumed
// to grow with c.
//
// Behavior highlights:
//   - The upper endpoint is probed first: within tolerance converges there,
//     below target fails at once (the target is not bracketed).
//   - A realized value below target raises lower, otherwise upper drops.
//   - After 1000 bisections, or once the bracket can no longer shrink, the
//     search ends NotConverged with C = 0.
//   - overlap.ErrLimitExceeded from the evaluator ends the search NotConverged;
//     other evaluator errors are returned.
//
// Returns the map evaluated at C for Average and Maximum searches (nil for Pair).
func FindScale(ev Evaluator, sp *overlap.Spectral, s Search, lower, upper float64) (State, *overlap.Map, error) {
	st := State{Lower: lower, Upper: upper}
	if !(upper > lower) || lower < 0 || math.IsInf(upper, 0) {
		return st, nil, fmt.Errorf("FindScale: [%g,%g]: %w", lower, upper, ErrBadBracket)
	}

	eval := func(c float64) (float64, *overlap.Map, error) {
		q := overlap.Query{Scale: c, Fixed: s.Fixed, Tolerance: s.Tolerance, Limit: s.Limit}
		if s.Method == Pair {
			v, err := ev.EvaluatePair(sp, s.Pair[0], s.Pair[1], q)
			return v, nil, err
		}
		m, err := ev.Evaluate(sp, q)
		if err != nil {
			return 0, nil, err
		}
		if s.Method == Maximum {
			return m.Max, m, nil
		}
		return m.Bar, m, nil
	}
	// step evaluates c and reports whether the search is over.
	step := func(c float64) (bool, *overlap.Map, error) {
		v, m, err := eval(c)
		if err != nil {
			if errors.Is(err, overlap.ErrLimitExceeded) {
				st.Outcome, st.C = NotConverged, 0
				return true, nil, nil
			}
			return true, nil, fmt.Errorf("FindScale: c=%g: %w", c, err)
		}
		st.Realized, st.Diff = v, v-s.Target
		if math.Abs(st.Diff) <= s.Tolerance {
			st.Outcome, st.C = Converged, c
			return true, m, nil
		}

		return false, nil, nil
	}

	done, m, err := step(upper)
	if done || err != nil {
		return st, m, err
	}
	if st.Diff < 0 {
		return st, nil, nil
	}

	for st.Iterations = 1; st.Iterations <= maxBisections; st.Iterations++ {
		mid := st.Lower + (st.Upper-st.Lower)/2
		if mid <= st.Lower || mid >= st.Upper {
			break
		}
		if done, m, err = step(mid); done || err != nil {
			return st, m, err
		}
		if st.Diff < 0 {
			st.Lower = mid
		} else {
			st.Upper = mid
		}
	}
	st.Outcome, st.C = NotConverged, 0

	return st, nil, nil
}
