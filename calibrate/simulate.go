package calibrate

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog"

	"github.com/katalvlaran/mixsim/mixture"
	"github.com/katalvlaran/mixsim/overlap"
)

// Bracket policy of the single-target protocol.
const (
	initialUpper  = 4.0
	bracketCeil   = 1e5
	dualPairUpper = 1024.0
)

// Result of a calibrated simulation.
//
// Map is always the overlap map of Mixture as returned. On success Mixture
// carries the rescaled covariances. When every attempt failed, Fail is set,
// Message says why, Mixture is the last attempt's draw and Map is nil only if
// the evaluator ran out of budget on it.
type Result struct {
	Mixture *mixture.Mixture
	Map     *overlap.Map

	AverageOverlap float64
	MaximumOverlap float64
	Pair           [2]int

	Scale    float64 // covariance multiplier of the first stage
	Scale2   float64 // second-stage multiplier of the dual protocol (1 otherwise)
	Attempts int

	Fail               bool
	Message            string
	UniformProportions bool
}

// Simulator runs attempts of one calibration. It is not safe for concurrent use.
type Simulator struct {
	opts Options
	gen  *mixture.Generator
	ev   Evaluator
	log  zerolog.Logger
}

// NewSimulator validates opts and binds a generator to src (nil: NewSource(0)).
// A nil ev selects overlap.Exact.
func NewSimulator(src rand.Source, opts Options, ev Evaluator) (*Simulator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if ev == nil {
		ev = overlap.Exact{}
	}

	return &Simulator{
		opts: opts,
		gen:  mixture.NewGenerator(src),
		ev:   ev,
		log:  opts.logger().With().Str("component", "calibrate").Logger(),
	}, nil
}

// Simulate is NewSimulator followed by Run with the default evaluator.
func Simulate(src rand.Source, opts Options) (*Result, error) {
	s, err := NewSimulator(src, opts, nil)
	if err != nil {
		return nil, err
	}

	return s.Run()
}

// attempt is the outcome of one generated candidate.
type attempt struct {
	mix     *mixture.Mixture
	m       *overlap.Map
	c1, c2  float64
	uniform bool
	reason  string // empty on success
}

// Run performs up to MaxResamplings attempts and returns the first success.
// Errors are reserved for invalid input and numerical failures; an
// unreachable target is reported through Result.Fail.
func (s *Simulator) Run() (*Result, error) {
	var last attempt
	for n := 1; n <= s.opts.MaxResamplings; n++ {
		var (
			a   attempt
			err error
		)
		if s.opts.Dual() {
			a, err = s.dual()
		} else {
			a, err = s.single()
		}
		if err != nil {
			return nil, fmt.Errorf("Run: attempt %d: %w", n, err)
		}
		if a.reason == "" {
			s.log.Debug().Int("attempt", n).Float64("scale", a.c1).Float64("scale2", a.c2).
				Float64("bar", a.m.Bar).Float64("max", a.m.Max).Msg("calibrated")
			return s.result(a, n, false, ""), nil
		}
		s.log.Debug().Int("attempt", n).Str("reason", a.reason).Msg("resampling")
		last = a
	}

	msg := fmt.Sprintf("no mixture reached the requested overlap in %d attempts (last: %s); "+
		"increase MaxResamplings or relax the targets", s.opts.MaxResamplings, last.reason)
	s.log.Warn().Int("attempts", s.opts.MaxResamplings).Str("reason", last.reason).Msg("calibration failed")
	m, err := s.mapOf(last.mix)
	if err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}
	last.m = m

	return s.result(last, s.opts.MaxResamplings, true, msg), nil
}

func (s *Simulator) result(a attempt, n int, fail bool, msg string) *Result {
	r := &Result{
		Mixture:            a.mix,
		Map:                a.m,
		Scale:              a.c1,
		Scale2:             a.c2,
		Attempts:           n,
		Fail:               fail,
		Message:            msg,
		UniformProportions: a.uniform,
	}
	if a.m != nil {
		r.AverageOverlap, r.MaximumOverlap, r.Pair = a.m.Bar, a.m.Max, a.m.Pair
	}

	return r
}

func (s *Simulator) shape() mixture.Shape {
	return mixture.Shape{
		K:               s.opts.K,
		V:               s.opts.V,
		MinProportion:   s.opts.MinProportion,
		Lower:           s.opts.Lower,
		Upper:           s.opts.Upper,
		Spherical:       s.opts.Spherical,
		Homogeneous:     s.opts.Homogeneous,
		MaxEccentricity: s.opts.MaxEccentricity,
	}
}

// draw generates and prepares one candidate.
func (s *Simulator) draw() (attempt, *overlap.Spectral, error) {
	mix, uniform, err := s.gen.Mixture(s.shape())
	if err != nil {
		return attempt{}, nil, err
	}
	sp, err := overlap.PrepareMixture(mix)
	if err != nil {
		return attempt{}, nil, err
	}

	return attempt{mix: mix, uniform: uniform, c2: 1}, sp, nil
}

// mapOf evaluates mix at scale 1. A spent evaluator budget yields a nil map.
func (s *Simulator) mapOf(mix *mixture.Mixture) (*overlap.Map, error) {
	sp, err := overlap.PrepareMixture(mix)
	if err != nil {
		return nil, err
	}
	m, err := s.ev.Evaluate(sp, s.query(1))
	if errors.Is(err, overlap.ErrLimitExceeded) {
		return nil, nil
	}

	return m, err
}

func (s *Simulator) query(c float64) overlap.Query {
	return overlap.Query{Scale: c, Tolerance: s.opts.Tolerance, Limit: s.opts.EvaluatorLimit}
}

// asymptotic evaluates the unbounded-spread map. ok is false when the
// evaluator ran out of budget.
func (s *Simulator) asymptotic(sp *overlap.Spectral) (*overlap.Map, bool, error) {
	q := s.query(0)
	q.Asymptotic = true
	m, err := s.ev.Evaluate(sp, q)
	if errors.Is(err, overlap.ErrLimitExceeded) {
		return nil, false, nil
	}

	return m, err == nil, err
}

func (s *Simulator) search(target float64, method Method) Search {
	return Search{Target: target, Method: method, Tolerance: s.opts.Tolerance, Limit: s.opts.EvaluatorLimit}
}

// single calibrates one statistic: the average when only AverageOverlap is
// set, the maximum otherwise.
func (s *Simulator) single() (attempt, error) {
	a, sp, err := s.draw()
	if err != nil {
		return a, err
	}

	target, method := s.opts.MaximumOverlap, Maximum
	if s.opts.AverageOverlap != 0 {
		target, method = s.opts.AverageOverlap, Average
	}

	inf, ok, err := s.asymptotic(sp)
	if err != nil || !ok {
		a.reason = "asymptotic overlap exceeded the evaluator limit"
		return a, err
	}
	a.m = inf
	reachable := inf.Max
	if method == Average {
		reachable = inf.Bar
	}
	if target > reachable {
		a.reason = fmt.Sprintf("%s overlap %.6g unreachable (limit %.6g)", method, target, reachable)
		return a, nil
	}

	lower, upper := 0.0, initialUpper
	for {
		st, m, err := FindScale(s.ev, sp, s.search(target, method), lower, upper)
		if err != nil {
			return a, err
		}
		if st.Outcome == Converged {
			if a.mix, err = a.mix.ScaleCovariances(st.C, nil); err != nil {
				return a, err
			}
			a.m, a.c1 = m, st.C
			return a, nil
		}
		lower, upper = upper, upper*upper
		if upper > bracketCeil {
			a.reason = fmt.Sprintf("no scale in [0,%g] reaches the %s overlap", bracketCeil, method)
			return a, nil
		}
	}
}

// dual calibrates the maximum overlap on one pair, then the average with
// that pair frozen.
func (s *Simulator) dual() (attempt, error) {
	a, sp, err := s.draw()
	if err != nil {
		return a, err
	}
	barT, maxT, tol := s.opts.AverageOverlap, s.opts.MaximumOverlap, s.opts.Tolerance

	inf, ok, err := s.asymptotic(sp)
	if err != nil || !ok {
		a.reason = "asymptotic overlap exceeded the evaluator limit"
		return a, err
	}
	a.m = inf
	if inf.Max < maxT || inf.Bar < barT {
		a.reason = fmt.Sprintf("targets unreachable (limits: bar %.6g, max %.6g)", inf.Bar, inf.Max)
		return a, nil
	}

	// Stage 1: find c1 at which the pair holding the maximum hits maxT.
	pair, upper := inf.Pair, dualPairUpper
	var c1 float64
	var m1 *overlap.Map
	pairs := s.opts.K * (s.opts.K - 1) / 2
	for hop := 0; hop <= pairs && m1 == nil; hop++ {
		if inf.Pairwise(pair[0], pair[1]) < maxT {
			a.reason = fmt.Sprintf("pair %v cannot reach the maximum overlap", pair)
			return a, nil
		}
		ps := s.search(maxT, Pair)
		ps.Pair = pair
		st, _, err := FindScale(s.ev, sp, ps, 0, upper)
		if err != nil {
			return a, err
		}
		if st.Outcome != Converged {
			a.reason = fmt.Sprintf("maximum overlap search on pair %v did not converge", pair)
			return a, nil
		}
		m, err := s.ev.Evaluate(sp, s.query(st.C))
		if errors.Is(err, overlap.ErrLimitExceeded) {
			a.reason = "overlap map exceeded the evaluator limit"
			return a, nil
		}
		if err != nil {
			return a, err
		}
		a.m = m
		if m.Bar < barT-tol {
			a.reason = fmt.Sprintf("average overlap %.6g below target at the maximum's scale", m.Bar)
			return a, nil
		}
		if m.Max <= maxT+tol {
			c1, m1 = st.C, m
			break
		}
		pair, upper = m.Pair, st.C
	}
	if m1 == nil {
		a.reason = "maximum pair did not settle"
		return a, nil
	}
	if a.mix, err = a.mix.ScaleCovariances(c1, nil); err != nil {
		return a, err
	}
	a.c1, a.m = c1, m1
	if barT-tol <= m1.Bar && m1.Bar <= barT+tol {
		return a, nil
	}

	// Stage 2: shrink every other cluster until the average hits barT.
	sp1, err := overlap.PrepareMixture(a.mix)
	if err != nil {
		return a, err
	}
	fixed := make([]bool, s.opts.K)
	fixed[pair[0]], fixed[pair[1]] = true, true
	as := s.search(barT, Average)
	as.Fixed = fixed
	st, m2, err := FindScale(s.ev, sp1, as, 0, 1)
	if err != nil {
		return a, err
	}
	if st.Outcome != Converged {
		a.reason = "average overlap search did not converge"
		return a, nil
	}
	if m2.Pair != pair && m2.Max-maxT > tol {
		a.m = m2
		a.reason = fmt.Sprintf("pair %v overtook the maximum after the average stage", m2.Pair)
		return a, nil
	}
	if a.mix, err = a.mix.ScaleCovariances(st.C, fixed); err != nil {
		return a, err
	}
	a.m, a.c2 = m2, st.C

	return a, nil
}
