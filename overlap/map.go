package overlap

import (
	"fmt"

	"github.com/katalvlaran/mixsim/matrix"
)

// Map is the k×k matrix of pairwise misclassification probabilities and its
// summaries.
//
// Omega(i,j) is the probability that a point of cluster i is classified into
// cluster j; the diagonal is 1. Bar is the average pairwise overlap
// Σ_{i≠j} Omega(i,j) / (k(k−1)/2); Max is the largest
// Omega(i,j)+Omega(j,i) over i<j and Pair is the (i,j) attaining it.
type Map struct {
	Omega *matrix.Dense
	Bar   float64
	Max   float64
	Pair  [2]int
}

// NewMap returns a k×k map with a unit diagonal and zero off-diagonals.
func NewMap(k int) (*Map, error) {
	if k < 2 {
		return nil, overlapErrorf("NewMap", fmt.Errorf("k=%d: %w", k, ErrBadInput))
	}
	id, err := matrix.Identity(k)
	if err != nil {
		return nil, overlapErrorf("NewMap", err)
	}

	return &Map{Omega: id}, nil
}

// K returns the number of clusters.
func (m *Map) K() int { return m.Omega.Rows() }

// Summarize recomputes Bar, Max and Pair from Omega. Ties on Max keep the
// first pair in row-major order.
func (m *Map) Summarize() {
	k := m.Omega.Rows()
	var sum float64
	m.Max, m.Pair = -1, [2]int{0, 1}
	for i := 0; i < k; i++ {
		row := m.Omega.RawRowView(i)
		for j := i + 1; j < k; j++ {
			back := m.Omega.RawRowView(j)[i]
			s := row[j] + back
			sum += s
			if s > m.Max {
				m.Max, m.Pair = s, [2]int{i, j}
			}
		}
	}
	m.Bar = sum / (float64(k*(k-1)) / 2)
}

// Pairwise returns Omega(i,j)+Omega(j,i).
func (m *Map) Pairwise(i, j int) float64 {
	a, _ := m.Omega.At(i, j)
	b, _ := m.Omega.At(j, i)

	return a + b
}
