package overlap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/mixsim/overlap"
)

// TestQF_ClosedForms compares against χ² distribution values known in closed form.
func TestQF_ClosedForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		terms []overlap.Term
		sigma float64
		x     float64
		want  float64
	}{
		{"chi2(1) < 1", []overlap.Term{{Lambda: 1, DoF: 1}}, 0, 1, 0.6826894921},
		{"chi2(2) < 2", []overlap.Term{{Lambda: 1, DoF: 2}}, 0, 2, 0.6321205588},
		{"split dof", []overlap.Term{{Lambda: 1, DoF: 1}, {Lambda: 1, DoF: 1}}, 0, 2, 0.6321205588},
		{"noncentral (Z+1)^2 < 1", []overlap.Term{{Lambda: 1, DoF: 1, NC: 1}}, 0, 1, 0.4772498681},
		{"negative weight", []overlap.Term{{Lambda: -1, DoF: 1}}, 0, -1, 0.3173105079},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := overlap.QF(tc.terms, tc.sigma, tc.x, 1e-7, 1_000_000)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, p, 1e-5)
		})
	}
}

func TestQF_Errors(t *testing.T) {
	t.Parallel()

	_, err := overlap.QF([]overlap.Term{{Lambda: 1, DoF: -1}}, 0, 1, 1e-6, 100)
	assert.ErrorIs(t, err, overlap.ErrBadQFParams)
	_, err = overlap.QF([]overlap.Term{{Lambda: 1, DoF: 1, NC: -2}}, 0, 1, 1e-6, 100)
	assert.ErrorIs(t, err, overlap.ErrBadQFParams)
	_, err = overlap.QF([]overlap.Term{{Lambda: 1, DoF: 1}}, 0, 1, 0, 100)
	assert.ErrorIs(t, err, overlap.ErrBadQFParams)

	_, err = overlap.QF([]overlap.Term{{Lambda: 1, DoF: 1}}, 0, 1, 1e-6, 3)
	assert.ErrorIs(t, err, overlap.ErrLimitExceeded)
}

func TestQF_Degenerate(t *testing.T) {
	t.Parallel()

	p, err := overlap.QF(nil, 0, 1, 1e-6, 100)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)

	p, err = overlap.QF([]overlap.Term{{Lambda: 0, DoF: 3}}, 0, -1, 1e-6, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)
}

func BenchmarkQF(b *testing.B) {
	terms := []overlap.Term{{Lambda: 0.8, DoF: 1, NC: 0.3}, {Lambda: -0.4, DoF: 1, NC: 2}, {Lambda: 1.5, DoF: 1, NC: 0.1}}
	for i := 0; i < b.N; i++ {
		_, _ = overlap.QF(terms, 0.2, 0.5, 1e-6, 1_000_000)
	}
}
