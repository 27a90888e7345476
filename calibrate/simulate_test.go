package calibrate_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/mixsim/calibrate"
	"github.com/katalvlaran/mixsim/mixture"
	"github.com/katalvlaran/mixsim/overlap"
)

func shapeOf(o calibrate.Options) mixture.Shape {
	return mixture.Shape{
		K: o.K, V: o.V, MinProportion: o.MinProportion, Lower: o.Lower, Upper: o.Upper,
		Spherical: o.Spherical, Homogeneous: o.Homogeneous, MaxEccentricity: o.MaxEccentricity,
	}
}

// TestSimulator_SingleScalesCovariances: the returned covariances are the
// first draw multiplied by the root of the stub response.
func TestSimulator_SingleScalesCovariances(t *testing.T) {
	t.Parallel()

	opts := calibrate.DefaultOptions(2, 2)
	s, err := calibrate.NewSimulator(mixture.NewSource(99), opts, rationalEval{half: 1})
	require.NoError(t, err)
	res, err := s.Run()
	require.NoError(t, err)
	require.False(t, res.Fail)
	assert.Equal(t, 1, res.Attempts)

	wantC := 0.15 / 0.85
	assert.InDelta(t, wantC, res.Scale, 1e-5)
	assert.InDelta(t, 0.15, res.MaximumOverlap, 1e-6)

	orig, _, err := mixture.NewGenerator(mixture.NewSource(99)).Mixture(shapeOf(opts))
	require.NoError(t, err)
	want, err := orig.ScaleCovariances(res.Scale, nil)
	require.NoError(t, err)
	for i := range want.Covariances {
		assert.Equal(t, want.Covariances[i].Values(), res.Mixture.Covariances[i].Values())
	}
	assert.Equal(t, orig.Proportions, res.Mixture.Proportions)
}

func TestSimulator_BracketExpansion(t *testing.T) {
	t.Parallel()

	opts := calibrate.NewOptions(2, 1, calibrate.WithAverageOverlap(0.15))
	require.Zero(t, opts.MaximumOverlap, "an average target alone drops the default maximum")

	s, err := calibrate.NewSimulator(mixture.NewSource(1), opts, rationalEval{half: 100})
	require.NoError(t, err)
	res, err := s.Run()
	require.NoError(t, err)
	require.False(t, res.Fail)
	assert.InDelta(t, 100*0.15/0.85, res.Scale, 1e-3)
	assert.InDelta(t, 0.15, res.AverageOverlap, 1e-6)
}

func TestSimulator_BracketExceeded(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	opts := calibrate.NewOptions(2, 1,
		calibrate.WithMaximumOverlap(0.5),
		calibrate.WithMaxResamplings(3),
		calibrate.WithLogger(zerolog.New(&buf)),
	)
	s, err := calibrate.NewSimulator(nil, opts, rationalEval{half: 1e6})
	require.NoError(t, err)
	res, err := s.Run()
	require.NoError(t, err)
	assert.True(t, res.Fail)
	assert.Equal(t, 3, res.Attempts)
	assert.Contains(t, res.Message, "3 attempts")
	assert.NotNil(t, res.Mixture)
	assert.InDelta(t, 1/(1e6+1.0), res.MaximumOverlap, 1e-12, "map of the unscaled draw")
	assert.Contains(t, buf.String(), "resampling")
	assert.Contains(t, buf.String(), "calibration failed")
}

func TestSimulate_ConfigErrors(t *testing.T) {
	t.Parallel()

	_, err := calibrate.Simulate(nil, calibrate.NewOptions(3, 2,
		calibrate.WithAverageOverlap(0.5), calibrate.WithMaximumOverlap(0.4)))
	assert.ErrorIs(t, err, calibrate.ErrInconsistentTargets)

	noTarget := calibrate.DefaultOptions(3, 2)
	noTarget.MaximumOverlap = 0
	_, err = calibrate.Simulate(nil, noTarget)
	assert.ErrorIs(t, err, calibrate.ErrNoTarget)
}

// TestSimulate_MaximumEndToEnd runs the exact evaluator with the defaults.
func TestSimulate_MaximumEndToEnd(t *testing.T) {
	t.Parallel()

	res, err := calibrate.Simulate(mixture.NewSource(2024), calibrate.DefaultOptions(3, 4))
	require.NoError(t, err)
	require.False(t, res.Fail, res.Message)
	assert.InDelta(t, 0.15, res.MaximumOverlap, 1e-6)
	require.NoError(t, res.Mixture.Validate())

	again, err := overlap.Compute(res.Mixture, 1e-8, 0)
	require.NoError(t, err)
	assert.InDelta(t, res.MaximumOverlap, again.Max, 1e-5)
	assert.InDelta(t, res.AverageOverlap, again.Bar, 1e-5)
}

func TestSimulate_DualEndToEnd(t *testing.T) {
	t.Parallel()

	opts := calibrate.NewOptions(4, 3,
		calibrate.WithAverageOverlap(0.05),
		calibrate.WithMaximumOverlap(0.15),
	)
	require.True(t, opts.Dual())
	res, err := calibrate.Simulate(mixture.NewSource(7), opts)
	require.NoError(t, err)
	require.False(t, res.Fail, res.Message)
	assert.InDelta(t, 0.05, res.AverageOverlap, 1e-6)
	assert.InDelta(t, 0.15, res.MaximumOverlap, 1e-6)
	assert.Equal(t, res.Map.Max, res.Map.Pairwise(res.Pair[0], res.Pair[1]))
}

func TestSimulate_SphericalAverage(t *testing.T) {
	t.Parallel()

	opts := calibrate.NewOptions(5, 2, calibrate.WithSpherical(), calibrate.WithAverageOverlap(0.01))
	res, err := calibrate.Simulate(mixture.NewSource(3), opts)
	require.NoError(t, err)
	require.False(t, res.Fail, res.Message)
	assert.InDelta(t, 0.01, res.AverageOverlap, 1e-6)
	for _, s := range res.Mixture.Covariances {
		v := s.Values()
		assert.Equal(t, v[0][0], v[1][1])
		assert.Equal(t, 0.0, v[0][1])
	}
}

func TestSimulate_Unreachable(t *testing.T) {
	t.Parallel()

	opts := calibrate.NewOptions(3, 4, calibrate.WithMaximumOverlap(0.999), calibrate.WithMaxResamplings(1))
	res, err := calibrate.Simulate(mixture.NewSource(11), opts)
	require.NoError(t, err)
	assert.True(t, res.Fail)
	assert.Equal(t, 1, res.Attempts)
	assert.Contains(t, res.Message, "in 1 attempts")
	assert.Zero(t, res.Scale)
	require.NotNil(t, res.Mixture)
	require.NoError(t, res.Mixture.Validate())

	// the reported map is the overlap of the returned mixture
	want, err := overlap.Compute(res.Mixture, opts.Tolerance, opts.EvaluatorLimit)
	require.NoError(t, err)
	require.NotNil(t, res.Map)
	assert.Equal(t, want.Omega.Values(), res.Map.Omega.Values())
	assert.Equal(t, want.Max, res.MaximumOverlap)
	assert.Equal(t, want.Bar, res.AverageOverlap)
}

func TestSimulate_Deterministic(t *testing.T) {
	t.Parallel()

	opts := calibrate.NewOptions(3, 2, calibrate.WithHomogeneous(), calibrate.WithMaximumOverlap(0.05))
	a, err := calibrate.Simulate(mixture.NewSource(5), opts)
	require.NoError(t, err)
	b, err := calibrate.Simulate(mixture.NewSource(5), opts)
	require.NoError(t, err)
	assert.Equal(t, a.Scale, b.Scale)
	assert.Equal(t, a.Attempts, b.Attempts)
	assert.Equal(t, a.Mixture.Covariances[0].Values(), b.Mixture.Covariances[0].Values())
}

func TestSimulator_MinProportionOneFallsBackToUniform(t *testing.T) {
	t.Parallel()

	opts := calibrate.NewOptions(3, 2, calibrate.WithMinProportion(1))
	s, err := calibrate.NewSimulator(mixture.NewSource(4), opts, rationalEval{half: 1})
	require.NoError(t, err)
	res, err := s.Run()
	require.NoError(t, err)
	assert.True(t, res.UniformProportions)
	for _, p := range res.Mixture.Proportions {
		assert.InDelta(t, 1.0/3, p, 1e-15)
	}
}
