package mixture_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/katalvlaran/mixsim/matrix"
	"github.com/katalvlaran/mixsim/mixture"
)

func TestProportions_LowerBound(t *testing.T) {
	t.Parallel()

	g := mixture.NewGenerator(mixture.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		p, fallback, err := g.Proportions(5, 0.1)
		require.NoError(t, err)
		assert.False(t, fallback)
		assert.InDelta(t, 1.0, floats.Sum(p), 1e-12)
		for _, x := range p {
			assert.GreaterOrEqual(t, x, 0.1)
		}
	}
}

func TestProportions_Fallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		k     int
		lower float64
	}{
		{"infeasible k*lower>1", 4, 0.3},
		{"lower=1", 3, 1},
		{"negative lower", 3, -0.1},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := mixture.NewGenerator(mixture.NewSource(1))
			p, fallback, err := g.Proportions(tc.k, tc.lower)
			require.NoError(t, err)
			assert.True(t, fallback)
			for _, x := range p {
				assert.InDelta(t, 1/float64(tc.k), x, 1e-15)
			}
		})
	}

	_, _, err := mixture.NewGenerator(nil).Proportions(0, 0)
	assert.ErrorIs(t, err, mixture.ErrBadK)
}

func TestCentroids_Bounds(t *testing.T) {
	t.Parallel()

	g := mixture.NewGenerator(mixture.NewSource(3))
	mu, err := g.Centroids(3, 4, -2, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, mu.Rows())
	assert.Equal(t, 3, mu.Cols())
	for _, row := range mu.Values() {
		for _, x := range row {
			assert.GreaterOrEqual(t, x, -2.0)
			assert.LessOrEqual(t, x, 5.0)
		}
	}

	_, err = g.Centroids(3, 4, 1, 1)
	assert.ErrorIs(t, err, mixture.ErrBadBounds)
	_, err = g.Centroids(0, 4, 0, 1)
	assert.ErrorIs(t, err, mixture.ErrBadV)
}

func TestCovariances_EccentricityBound(t *testing.T) {
	t.Parallel()

	for _, ecc := range []float64{0.1, 0.5, 0.9} {
		g := mixture.NewGenerator(mixture.NewSource(11))
		covs, err := g.Covariances(4, 6, ecc, false)
		require.NoError(t, err)
		require.Len(t, covs, 6)
		for i, s := range covs {
			require.NoError(t, matrix.ValidateSymmetric(s, 0))
			e, err := mixture.Eccentricity(s)
			require.NoError(t, err)
			assert.LessOrEqualf(t, e, ecc+1e-6, "ecc=%g cluster=%d", ecc, i)
			vals, _, err := matrix.EigenSym(s)
			require.NoError(t, err)
			assert.Greater(t, floats.Min(vals), 0.0)
		}
	}

	_, err := mixture.NewGenerator(nil).Covariances(2, 2, 0, false)
	assert.ErrorIs(t, err, mixture.ErrBadEccentricity)
}

func TestCovariances_Homogeneous(t *testing.T) {
	t.Parallel()

	g := mixture.NewGenerator(mixture.NewSource(5))
	covs, err := g.Covariances(3, 4, 0.9, true)
	require.NoError(t, err)
	for i := 1; i < len(covs); i++ {
		assert.Equal(t, covs[0].Values(), covs[i].Values())
	}
	require.NoError(t, covs[1].Set(0, 0, 42))
	assert.NotEqual(t, 42.0, covs[0].Values()[0][0], "copies must not alias")
}

func TestSphericalCovariances(t *testing.T) {
	t.Parallel()

	g := mixture.NewGenerator(mixture.NewSource(9))
	covs, err := g.SphericalCovariances(3, 3, false)
	require.NoError(t, err)
	for _, s := range covs {
		d := s.Values()
		assert.Greater(t, d[0][0], 0.0)
		assert.LessOrEqual(t, d[0][0], 1.0)
		assert.Equal(t, d[0][0], d[2][2])
		assert.Equal(t, 0.0, d[0][1])
	}

	hom, err := g.SphericalCovariances(2, 3, true)
	require.NoError(t, err)
	assert.Equal(t, hom[0].Values(), hom[2].Values())
}

func TestMixture_Deterministic(t *testing.T) {
	t.Parallel()

	shape := mixture.Shape{K: 3, V: 2, Lower: 0, Upper: 1, MaxEccentricity: 0.9}
	a, _, err := mixture.NewGenerator(mixture.NewSource(42)).Mixture(shape)
	require.NoError(t, err)
	b, _, err := mixture.NewGenerator(mixture.NewSource(42)).Mixture(shape)
	require.NoError(t, err)

	require.NoError(t, a.Validate())
	assert.Equal(t, a.Proportions, b.Proportions)
	assert.Equal(t, a.Centroids.Values(), b.Centroids.Values())
	for i := range a.Covariances {
		assert.Equal(t, a.Covariances[i].Values(), b.Covariances[i].Values())
	}

	c, _, err := mixture.NewGenerator(mixture.NewSource(43)).Mixture(shape)
	require.NoError(t, err)
	assert.NotEqual(t, a.Proportions, c.Proportions)
}
