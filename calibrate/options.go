package calibrate

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Sentinel errors returned by Options.Validate and the calibration entry points.
var (
	// ErrBadK indicates fewer than two clusters.
	ErrBadK = errors.New("calibrate: number of clusters must be >= 2")

	// ErrBadV indicates a dimension below 1.
	ErrBadV = errors.New("calibrate: dimension must be >= 1")

	// ErrBadEccentricity indicates MaxEccentricity outside (0,1].
	ErrBadEccentricity = errors.New("calibrate: max eccentricity must be in (0,1]")

	// ErrBadMinProportion indicates MinProportion outside [0,1].
	ErrBadMinProportion = errors.New("calibrate: min proportion must be in [0,1]")

	// ErrBadBounds indicates Lower >= Upper or non-finite hypercube bounds.
	ErrBadBounds = errors.New("calibrate: lower bound must be below upper bound")

	// ErrBadResamplings indicates MaxResamplings < 1.
	ErrBadResamplings = errors.New("calibrate: max resamplings must be >= 1")

	// ErrBadTolerance indicates a non-positive tolerance.
	ErrBadTolerance = errors.New("calibrate: tolerance must be positive")

	// ErrBadLimit indicates an evaluator limit below 1.
	ErrBadLimit = errors.New("calibrate: evaluator limit must be >= 1")

	// ErrBadTarget indicates an overlap target outside (0,1).
	ErrBadTarget = errors.New("calibrate: overlap targets must be in (0,1)")

	// ErrNoTarget indicates that neither the average nor the maximum overlap is set.
	ErrNoTarget = errors.New("calibrate: no overlap target set")

	// ErrInconsistentTargets indicates average and maximum targets that no
	// mixture can satisfy together (max < average, or max > average·k(k−1)/2).
	ErrInconsistentTargets = errors.New("calibrate: inconsistent average and maximum overlap")

	// ErrBadBracket indicates a root search bracket with lower >= upper or upper <= 0.
	ErrBadBracket = errors.New("calibrate: invalid search bracket")
)

// Defaults applied by DefaultOptions.
const (
	DefaultMaximumOverlap  = 0.15
	DefaultMaxEccentricity = 0.9
	DefaultUpper           = 1.0
	DefaultMaxResamplings  = 100
	DefaultTolerance       = 1e-6
	DefaultEvaluatorLimit  = 1_000_000
)

// Options configures one calibrated simulation.
//
// A zero AverageOverlap or MaximumOverlap means "not targeted". With one
// target set the single-target protocol runs; with both, the dual one.
type Options struct {
	K, V int

	AverageOverlap float64 // target average pairwise overlap (0 = unset)
	MaximumOverlap float64 // target maximum pairwise overlap (0 = unset)

	Spherical   bool // covariances s·I instead of general ones
	Homogeneous bool // one covariance shared by every cluster

	MaxEccentricity float64 // bound for general covariances, in (0,1]
	MinProportion   float64 // lower bound of every mixing proportion
	Lower, Upper    float64 // hypercube for the centroids

	MaxResamplings int     // attempts before reporting failure
	Tolerance      float64 // absolute accuracy of the achieved overlap
	EvaluatorLimit int     // integration budget per probability

	// Logger receives per-attempt debug events; nil disables logging.
	Logger *zerolog.Logger

	explicitMax bool
}

// Option represents a functional option for configuring a simulation.
type Option func(*Options)

// WithAverageOverlap targets the average pairwise overlap. Unless
// WithMaximumOverlap is also given, the default maximum target is dropped
// and the average alone is calibrated.
func WithAverageOverlap(bar float64) Option {
	return func(o *Options) { o.AverageOverlap = bar }
}

// WithMaximumOverlap targets the maximum pairwise overlap.
func WithMaximumOverlap(max float64) Option {
	return func(o *Options) {
		o.MaximumOverlap = max
		o.explicitMax = true
	}
}

// WithSpherical draws spherical covariances.
func WithSpherical() Option {
	return func(o *Options) { o.Spherical = true }
}

// WithHomogeneous shares one covariance matrix across clusters.
func WithHomogeneous() Option {
	return func(o *Options) { o.Homogeneous = true }
}

// WithMaxEccentricity bounds the eccentricity of general covariances.
func WithMaxEccentricity(ecc float64) Option {
	return func(o *Options) { o.MaxEccentricity = ecc }
}

// WithMinProportion sets the lower bound of mixing proportions.
func WithMinProportion(p float64) Option {
	return func(o *Options) { o.MinProportion = p }
}

// WithBounds sets the centroid hypercube [lower, upper]^v.
func WithBounds(lower, upper float64) Option {
	return func(o *Options) { o.Lower, o.Upper = lower, upper }
}

// WithMaxResamplings sets the attempt budget.
func WithMaxResamplings(n int) Option {
	return func(o *Options) { o.MaxResamplings = n }
}

// WithTolerance sets the overlap accuracy.
func WithTolerance(tol float64) Option {
	return func(o *Options) { o.Tolerance = tol }
}

// WithEvaluatorLimit sets the per-probability integration budget.
func WithEvaluatorLimit(lim int) Option {
	return func(o *Options) { o.EvaluatorLimit = lim }
}

// WithLogger routes debug events to l.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Logger = &l }
}

// DefaultOptions returns the defaults for k clusters in v dimensions.
//
// Defaults:
//   - MaximumOverlap:  0.15 (AverageOverlap unset).
//   - MaxEccentricity: 0.9.
//   - MinProportion:   0.
//   - Lower, Upper:    0, 1.
//   - MaxResamplings:  100.
//   - Tolerance:       1e-6.
//   - EvaluatorLimit:  1e6.
func DefaultOptions(k, v int) Options {
	return Options{
		K:               k,
		V:               v,
		MaximumOverlap:  DefaultMaximumOverlap,
		MaxEccentricity: DefaultMaxEccentricity,
		Lower:           0,
		Upper:           DefaultUpper,
		MaxResamplings:  DefaultMaxResamplings,
		Tolerance:       DefaultTolerance,
		EvaluatorLimit:  DefaultEvaluatorLimit,
	}
}

// NewOptions applies opts on top of DefaultOptions(k, v).
func NewOptions(k, v int, opts ...Option) Options {
	o := DefaultOptions(k, v)
	for _, opt := range opts {
		opt(&o)
	}
	if o.AverageOverlap != 0 && !o.explicitMax {
		o.MaximumOverlap = 0
	}

	return o
}

// Dual reports whether both targets are set.
func (o Options) Dual() bool { return o.AverageOverlap != 0 && o.MaximumOverlap != 0 }

// Validate checks every field and the consistency of the targets.
func (o Options) Validate() error {
	switch {
	case o.K < 2:
		return fmt.Errorf("Validate: k=%d: %w", o.K, ErrBadK)
	case o.V < 1:
		return fmt.Errorf("Validate: v=%d: %w", o.V, ErrBadV)
	case !(o.MaxEccentricity > 0 && o.MaxEccentricity <= 1):
		return fmt.Errorf("Validate: ecc=%g: %w", o.MaxEccentricity, ErrBadEccentricity)
	case !(o.MinProportion >= 0 && o.MinProportion <= 1):
		return fmt.Errorf("Validate: pilow=%g: %w", o.MinProportion, ErrBadMinProportion)
	case !(o.Lower < o.Upper) || math.IsInf(o.Lower, 0) || math.IsInf(o.Upper, 0):
		return fmt.Errorf("Validate: [%g,%g]: %w", o.Lower, o.Upper, ErrBadBounds)
	case o.MaxResamplings < 1:
		return fmt.Errorf("Validate: resn=%d: %w", o.MaxResamplings, ErrBadResamplings)
	case !(o.Tolerance > 0):
		return fmt.Errorf("Validate: tol=%g: %w", o.Tolerance, ErrBadTolerance)
	case o.EvaluatorLimit < 1:
		return fmt.Errorf("Validate: lim=%d: %w", o.EvaluatorLimit, ErrBadLimit)
	}

	if o.AverageOverlap == 0 && o.MaximumOverlap == 0 {
		return fmt.Errorf("Validate: %w", ErrNoTarget)
	}
	for _, t := range []float64{o.AverageOverlap, o.MaximumOverlap} {
		if t != 0 && !(t > 0 && t < 1) {
			return fmt.Errorf("Validate: target=%g: %w", t, ErrBadTarget)
		}
	}
	if o.Dual() {
		pairs := float64(o.K*(o.K-1)) / 2
		if o.MaximumOverlap < o.AverageOverlap || o.MaximumOverlap > o.AverageOverlap*pairs {
			return fmt.Errorf("Validate: bar=%g max=%g k=%d: %w",
				o.AverageOverlap, o.MaximumOverlap, o.K, ErrInconsistentTargets)
		}
	}

	return nil
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}

	return *o.Logger
}
